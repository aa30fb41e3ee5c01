package githubhook

import (
	"context"
	"fmt"

	"github.com/google/go-github/v57/github"

	"hookbox/internal/security"
	"hookbox/internal/webhook"
)

// PushProfile processes push events, optionally only those for Branch.
type PushProfile struct {
	Branch string
}

// NewPushProfile validates branch. An empty branch accepts every push.
func NewPushProfile(branch string) (*PushProfile, error) {
	if branch != "" {
		if err := security.ValidateBranchName(branch); err != nil {
			return nil, err
		}
	}
	return &PushProfile{Branch: branch}, nil
}

func (p *PushProfile) ShouldProcess(_ context.Context, rec *webhook.Record) (bool, error) {
	event := rec.HeaderValue(github.EventTypeHeader)
	if event == "" {
		return false, fmt.Errorf("record has no %s header (is it excluded by store_headers?)", github.EventTypeHeader)
	}
	if event != "push" {
		return false, nil
	}

	parsed, err := github.ParseWebHook(event, rec.Payload)
	if err != nil {
		return false, fmt.Errorf("failed to parse push payload: %w", err)
	}
	push, ok := parsed.(*github.PushEvent)
	if !ok {
		return false, fmt.Errorf("unexpected event type %T", parsed)
	}

	if p.Branch == "" {
		return true, nil
	}
	return push.GetRef() == "refs/heads/"+p.Branch, nil
}
