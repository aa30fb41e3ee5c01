package githubhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/google/go-github/v57/github"

	"hookbox/internal/webhook"
)

const testSecret = "kJ8mN2pQ5tR7vX1zB4cE6gH9jL3nP8qS2uW5yA7bD0fG3hK6"

func TestValidator(t *testing.T) {
	body := []byte(`{"ref":"refs/heads/main"}`)

	sha1MAC := hmac.New(sha1.New, []byte(testSecret))
	sha1MAC.Write(body)

	tests := []struct {
		name       string
		headerName string
		header     string
		value      string
		secret     string
		want       bool
	}{
		{"sha256 default header", "", "X-Hub-Signature-256", "sha256=" + webhook.Sign(body, testSecret), testSecret, true},
		{"sha1 explicit header", "X-Hub-Signature", "X-Hub-Signature", "sha1=" + hex.EncodeToString(sha1MAC.Sum(nil)), testSecret, true},
		{"unprefixed", "", "X-Hub-Signature-256", webhook.Sign(body, testSecret), testSecret, false},
		{"wrong secret", "", "X-Hub-Signature-256", "sha256=" + webhook.Sign(body, "other"), testSecret, false},
		{"missing header", "", "X-Other", "sha256=" + webhook.Sign(body, testSecret), testSecret, false},
		{"empty secret", "", "X-Hub-Signature-256", "sha256=" + webhook.Sign(body, ""), "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			h.Set(tt.header, tt.value)
			if got := (Validator{}).Verify(h, body, tt.secret, tt.headerName); got != tt.want {
				t.Errorf("Verify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func pushRecord(event, payload string) *webhook.Record {
	rec := &webhook.Record{Payload: []byte(payload)}
	if event != "" {
		rec.Headers = []webhook.Header{{Name: "X-Github-Event", Values: []string{event}}}
	}
	return rec
}

func TestPushProfile(t *testing.T) {
	main, err := NewPushProfile("main")
	if err != nil {
		t.Fatalf("NewPushProfile failed: %v", err)
	}
	anyBranch, _ := NewPushProfile("")

	tests := []struct {
		name    string
		profile *PushProfile
		rec     *webhook.Record
		want    bool
		wantErr bool
	}{
		{"push to branch", main, pushRecord("push", `{"ref":"refs/heads/main"}`), true, false},
		{"push to other branch", main, pushRecord("push", `{"ref":"refs/heads/dev"}`), false, false},
		{"tag push", main, pushRecord("push", `{"ref":"refs/tags/main"}`), false, false},
		{"any branch", anyBranch, pushRecord("push", `{"ref":"refs/heads/dev"}`), true, false},
		{"ping", main, pushRecord("ping", `{"zen":"hi"}`), false, false},
		{"no event header", main, pushRecord("", `{}`), false, true},
		{"bad payload", main, pushRecord("push", `not json`), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.profile.ShouldProcess(context.Background(), tt.rec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ShouldProcess() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewPushProfile_InvalidBranch(t *testing.T) {
	if _, err := NewPushProfile("-x"); err == nil {
		t.Error("Expected error for invalid branch")
	}
}

func newTestClient(t *testing.T, handler http.Handler) *github.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	if err != nil {
		t.Fatalf("Failed to parse URL: %v", err)
	}
	client.BaseURL = base
	return client
}

func TestEnsureHook_Creates(t *testing.T) {
	var created atomic.Int32
	var body map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/shop/hooks", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Write([]byte(`[]`))
		case http.MethodPost:
			created.Add(1)
			raw, _ := io.ReadAll(r.Body)
			json.Unmarshal(raw, &body)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":1}`))
		}
	})

	ok, err := EnsureHook(context.Background(), newTestClient(t, mux), HookRequest{
		OwnerRepo: "acme/shop",
		URL:       "https://hooks.example.com/webhooks/github",
		Secret:    testSecret,
	})
	if err != nil {
		t.Fatalf("EnsureHook failed: %v", err)
	}
	if !ok || created.Load() != 1 {
		t.Errorf("Expected hook to be created once, created=%v calls=%d", ok, created.Load())
	}

	cfg, _ := body["config"].(map[string]any)
	if cfg["url"] != "https://hooks.example.com/webhooks/github" || cfg["secret"] != testSecret {
		t.Errorf("Unexpected hook config: %v", cfg)
	}
}

func TestEnsureHook_Exists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/shop/hooks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Unexpected %s request", r.Method)
		}
		w.Write([]byte(`[{"id":7,"config":{"url":"https://hooks.example.com/webhooks/github"}}]`))
	})

	ok, err := EnsureHook(context.Background(), newTestClient(t, mux), HookRequest{
		OwnerRepo: "acme/shop",
		URL:       "https://hooks.example.com/webhooks/github",
	})
	if err != nil {
		t.Fatalf("EnsureHook failed: %v", err)
	}
	if ok {
		t.Error("Expected existing hook to be left alone")
	}
}

func TestEnsureHook_InvalidRepo(t *testing.T) {
	for _, repo := range []string{"acme", "/shop", "acme/", "a/b/c"} {
		if _, err := EnsureHook(context.Background(), github.NewClient(nil), HookRequest{OwnerRepo: repo}); err == nil {
			t.Errorf("Expected error for %q", repo)
		}
	}
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient(context.Background(), ""); err == nil {
		t.Error("Expected error for empty token")
	}
	client, err := NewClient(context.Background(), "ghp_test")
	if err != nil || client == nil {
		t.Errorf("Expected client, got %v", err)
	}
}
