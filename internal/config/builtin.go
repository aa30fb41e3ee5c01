package config

import (
	"log/slog"
	"os"

	"hookbox/internal/githubhook"
	"hookbox/internal/jobs"
	"hookbox/internal/webhook"
)

// Names of the built-in implementations.
const (
	DefaultName           = "default"
	GitHubName            = "github"
	ProcessEverythingName = "process-everything"
	HeaderMatchName       = "header-match"
	GitHubPushName        = "github-push"
	AcceptedName          = "accepted"
)

// DefaultRegistry returns a registry holding every built-in implementation.
// Callers may register their own on top before loading configs.
func DefaultRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	reg := NewRegistry()

	reg.RegisterValidator(DefaultName, func(Options) (webhook.SignatureValidator, error) {
		return webhook.HMACValidator{}, nil
	})
	reg.RegisterValidator(GitHubName, func(Options) (webhook.SignatureValidator, error) {
		return githubhook.Validator{}, nil
	})

	reg.RegisterProfile(ProcessEverythingName, func(Options) (webhook.Profile, error) {
		return webhook.ProcessEverything{}, nil
	})
	reg.RegisterProfile(HeaderMatchName, func(opts Options) (webhook.Profile, error) {
		header, err := opts.String("header")
		if err != nil {
			return nil, err
		}
		values, err := opts.Strings("values")
		if err != nil {
			return nil, err
		}
		return webhook.NewHeaderMatch(header, values)
	})
	reg.RegisterProfile(GitHubPushName, func(opts Options) (webhook.Profile, error) {
		branch, err := opts.String("branch")
		if err != nil {
			return nil, err
		}
		return githubhook.NewPushProfile(branch)
	})

	reg.RegisterResponse(DefaultName, func(Options) (webhook.Responder, error) {
		return webhook.OKResponder{}, nil
	})
	reg.RegisterResponse(AcceptedName, func(Options) (webhook.Responder, error) {
		return webhook.AcceptedResponder{}, nil
	})

	reg.RegisterModel(DefaultName, func(Options) (webhook.RecordFactory, error) {
		return webhook.DefaultRecordFactory{}, nil
	})

	reg.RegisterJob(jobs.NoopName, func(Options) (webhook.Job, error) {
		return jobs.Noop{}, nil
	})
	reg.RegisterJob(jobs.LogName, func(Options) (webhook.Job, error) {
		return jobs.NewLog(logger), nil
	})
	reg.RegisterJob(jobs.CommandName, func(opts Options) (webhook.Job, error) {
		timeout, err := opts.Seconds("timeout", jobs.DefaultCommandTimeout)
		if err != nil {
			return nil, err
		}
		secret, err := opts.String(KeySigningSecret)
		if err != nil {
			return nil, err
		}
		names, err := opts.Strings("redact_env")
		if err != nil {
			return nil, err
		}
		redact := []string{secret}
		for _, name := range names {
			redact = append(redact, os.Getenv(name))
		}
		return jobs.NewCommand(opts.Value("command"), timeout, logger, redact...)
	})

	return reg
}
