package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"hookbox/internal/webhook"
)

const testYAML = `
webhooks:
  - name: stripe
    signing_secret: ${HOOKBOX_TEST_STRIPE_SECRET}
    signature_header_name: Stripe-Signature
    signature_validator: default
    webhook_profile: process-everything
    webhook_model: default
    process_webhook_job: noop

  - name: github
    signing_secret: gh-secret
    signature_header_name: X-Hub-Signature-256
    signature_validator: github
    webhook_profile: github-push
    profile_options:
      branch: main
    webhook_response: accepted
    webhook_model: default
    process_webhook_job: log
    store_headers: [X-GitHub-Event, X-GitHub-Delivery]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webhooks.yaml")
	if err := os.WriteFile(path, []byte(content), 0640); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("HOOKBOX_TEST_STRIPE_SECRET", "whsec_test")

	set, err := Load(writeConfig(t, testYAML), DefaultRegistry(nil))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if set.Count() != 2 {
		t.Fatalf("Expected 2 configs, got %d", set.Count())
	}
	if names := set.List(); names[0] != "github" || names[1] != "stripe" {
		t.Errorf("Expected sorted names, got %v", names)
	}

	stripe, err := set.Get("stripe")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if stripe.SigningSecret != "whsec_test" {
		t.Errorf("Expected expanded secret, got %q", stripe.SigningSecret)
	}

	github, _ := set.Get("github")
	if _, ok := github.Response.(webhook.AcceptedResponder); !ok {
		t.Errorf("Expected accepted responder, got %T", github.Response)
	}
	if len(github.StoreHeaders) != 2 {
		t.Errorf("Expected store_headers, got %v", github.StoreHeaders)
	}
}

func TestLoad_UnsetEnvIsMissing(t *testing.T) {
	t.Setenv("HOOKBOX_TEST_STRIPE_SECRET", "")

	_, err := Load(writeConfig(t, testYAML), DefaultRegistry(nil))

	var invalid *webhook.InvalidConfigError
	if !errors.As(err, &invalid) {
		t.Fatalf("Expected InvalidConfigError, got %v", err)
	}
	if invalid.Key != KeySigningSecret || invalid.Reason != webhook.ReasonMissing {
		t.Errorf("Unexpected error: %+v", invalid)
	}
}

func TestLoad_DuplicateName(t *testing.T) {
	content := `
webhooks:
  - {name: a, signing_secret: s, signature_header_name: X, signature_validator: default, webhook_profile: process-everything, webhook_model: default, process_webhook_job: noop}
  - {name: a, signing_secret: s, signature_header_name: X, signature_validator: default, webhook_profile: process-everything, webhook_model: default, process_webhook_job: noop}
`
	_, err := Load(writeConfig(t, content), DefaultRegistry(nil))
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("Expected ErrDuplicateName, got %v", err)
	}
}

func TestLoad_InvalidName(t *testing.T) {
	content := `
webhooks:
  - {name: "a/b", signing_secret: s, signature_header_name: X, signature_validator: default, webhook_profile: process-everything, webhook_model: default, process_webhook_job: noop}
`
	if _, err := Load(writeConfig(t, content), DefaultRegistry(nil)); err == nil {
		t.Error("Expected error for unsafe name")
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), DefaultRegistry(nil)); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := Load(writeConfig(t, "webhooks: [\n"), DefaultRegistry(nil)); err == nil {
		t.Error("Expected error for malformed YAML")
	}
}

func TestLoad_Empty(t *testing.T) {
	set, err := Load(writeConfig(t, ""), DefaultRegistry(nil))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if set.Count() != 0 {
		t.Errorf("Expected empty set, got %d", set.Count())
	}
}

func TestSet_GetUnknown(t *testing.T) {
	set, err := NewSet()
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}
	if _, err := set.Get("nope"); !errors.Is(err, ErrUnknownWebhook) {
		t.Errorf("Expected ErrUnknownWebhook, got %v", err)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("HOOKBOX_TEST_A", "alpha")

	got := expandEnv(map[string]any{
		"plain":  "no $HOOKBOX_TEST_A expansion",
		"braced": "x-${HOOKBOX_TEST_A}-y",
		"list":   []any{"${HOOKBOX_TEST_A}", 3},
		"nested": map[string]any{"k": "${HOOKBOX_TEST_A}"},
	}).(map[string]any)

	if got["plain"] != "no $HOOKBOX_TEST_A expansion" {
		t.Errorf("Bare $VAR must be left alone, got %v", got["plain"])
	}
	if got["braced"] != "x-alpha-y" {
		t.Errorf("Expected braced expansion, got %v", got["braced"])
	}
	if got["list"].([]any)[0] != "alpha" || got["list"].([]any)[1] != 3 {
		t.Errorf("Unexpected list expansion: %v", got["list"])
	}
	if got["nested"].(map[string]any)["k"] != "alpha" {
		t.Errorf("Unexpected nested expansion: %v", got["nested"])
	}
}
