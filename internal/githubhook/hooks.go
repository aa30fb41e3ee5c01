package githubhook

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// NewClient creates a GitHub client authenticated with a personal access token.
func NewClient(ctx context.Context, token string) (*github.Client, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token is required")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts)), nil
}

// HookRequest describes the repository webhook to register.
type HookRequest struct {
	OwnerRepo string
	URL       string
	Secret    string
	Events    []string
}

// EnsureHook creates the repository webhook unless one with the same URL
// already exists. It reports whether a hook was created.
func EnsureHook(ctx context.Context, client *github.Client, req HookRequest) (bool, error) {
	owner, repo, ok := strings.Cut(req.OwnerRepo, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return false, fmt.Errorf("invalid owner/repo format: %s", req.OwnerRepo)
	}

	hooks, _, err := client.Repositories.ListHooks(ctx, owner, repo, nil)
	if err != nil {
		return false, fmt.Errorf("listing webhooks: %w", err)
	}

	for _, hook := range hooks {
		if hook.Config == nil {
			continue
		}
		if url, ok := hook.Config["url"].(string); ok && url == req.URL {
			return false, nil
		}
	}

	events := req.Events
	if len(events) == 0 {
		events = []string{"push"}
	}

	_, _, err = client.Repositories.CreateHook(ctx, owner, repo, &github.Hook{
		Events: events,
		Active: github.Bool(true),
		Config: map[string]interface{}{
			"url":          req.URL,
			"content_type": "json",
			"secret":       req.Secret,
			"insecure_ssl": "0",
		},
	})
	if err != nil {
		return false, fmt.Errorf("creating webhook: %w", err)
	}

	return true, nil
}
