package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"hookbox/internal/pipeline"
	"hookbox/internal/queue"
	"hookbox/internal/record"
	"hookbox/internal/webhook"
)

const cliYAML = `
webhooks:
  - name: stripe
    signing_secret: short
    signature_header_name: Stripe-Signature
    signature_validator: default
    webhook_profile: process-everything
    webhook_model: default
    process_webhook_job: noop
`

func writeCLIConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webhooks.yaml")
	if err := os.WriteFile(path, []byte(cliYAML), 0640); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func captured() (*cobra.Command, *bytes.Buffer) {
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	return cmd, &out
}

func TestConfigCheck(t *testing.T) {
	configFile = writeCLIConfig(t)
	t.Cleanup(func() { configFile = "" })

	cmd, out := captured()
	if err := runConfigCheck(cmd, nil); err != nil {
		t.Fatalf("config check failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{"Webhooks: 1", "stripe", "job:        noop", "warning:"} {
		if !strings.Contains(text, want) {
			t.Errorf("Output missing %q:\n%s", want, text)
		}
	}
}

func TestConfigCheck_MissingFile(t *testing.T) {
	configFile = filepath.Join(t.TempDir(), "absent.yaml")
	t.Cleanup(func() { configFile = "" })

	cmd, _ := captured()
	if err := runConfigCheck(cmd, nil); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestSecret(t *testing.T) {
	cmd, out := captured()
	if err := secretCmd.RunE(cmd, nil); err != nil {
		t.Fatalf("secret failed: %v", err)
	}
	if got := strings.TrimSpace(out.String()); len(got) < 32 {
		t.Errorf("Secret too short: %q", got)
	}
}

func TestPrune(t *testing.T) {
	dbPath = filepath.Join(t.TempDir(), "hookbox.db")
	storeBackend = record.BackendSQLite
	pruneOlderThan = time.Hour
	t.Cleanup(func() { storeBackend = "" })

	ctx := context.Background()
	store, err := record.Open(ctx, record.BackendSQLite, dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	old := &webhook.Record{ID: "old", ConfigName: "stripe", Status: webhook.StatusProcessed, CreatedAt: time.Now().UTC().Add(-2 * time.Hour)}
	fresh := &webhook.Record{ID: "fresh", ConfigName: "stripe", Status: webhook.StatusProcessed, CreatedAt: time.Now().UTC()}
	for _, rec := range []*webhook.Record{old, fresh} {
		if err := store.Create(ctx, rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}
	store.Close()

	cmd, out := captured()
	if err := runPrune(cmd, nil); err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if !strings.Contains(out.String(), "Deleted 1 records") {
		t.Errorf("Unexpected output %q", out.String())
	}
}

func TestReconcile_RefusesMemoryQueue(t *testing.T) {
	configFile = writeCLIConfig(t)
	queueBackend = queue.BackendMemory
	t.Cleanup(func() { configFile = "" })

	cmd, _ := captured()
	err := runReconcile(cmd, nil)
	if err == nil || !strings.Contains(err.Error(), "shared queue") {
		t.Errorf("Expected shared queue error, got %v", err)
	}
}

func TestRecoverUnqueued(t *testing.T) {
	configFile = writeCLIConfig(t)
	t.Cleanup(func() { configFile = "" })

	logger := cliLogger()
	configs, _, err := loadConfigs(logger)
	if err != nil {
		t.Fatalf("loadConfigs failed: %v", err)
	}

	ctx := context.Background()
	store, err := record.Open(ctx, record.BackendSQLite, filepath.Join(t.TempDir(), "hookbox.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	startedAt := time.Now().UTC()
	before := startedAt.Add(-time.Minute)
	for _, rec := range []*webhook.Record{
		{ID: "received", ConfigName: "stripe", Status: webhook.StatusReceived, CreatedAt: before},
		{ID: "queued", ConfigName: "stripe", Status: webhook.StatusQueued, CreatedAt: before},
		{ID: "done", ConfigName: "stripe", Status: webhook.StatusProcessed, CreatedAt: before},
		{ID: "current", ConfigName: "stripe", Status: webhook.StatusReceived, CreatedAt: startedAt.Add(time.Second)},
	} {
		if err := store.Create(ctx, rec); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	q := queue.NewMemory(8, 10*time.Millisecond)
	defer q.Close()

	recoverUnqueued(ctx, pipeline.New(store, q, pipeline.WithLogger(logger)), configs, logger, startedAt)

	if q.Len() != 2 {
		t.Errorf("Expected 2 recovered tasks, got %d", q.Len())
	}
	for id, want := range map[string]string{
		"received": webhook.StatusQueued,
		"queued":   webhook.StatusQueued,
		"done":     webhook.StatusProcessed,
		"current":  webhook.StatusReceived,
	} {
		rec, err := store.Get(ctx, id)
		if err != nil {
			t.Fatalf("Get %s failed: %v", id, err)
		}
		if rec.Status != want {
			t.Errorf("Record %s: expected %s, got %s", id, want, rec.Status)
		}
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("HOOKBOX_TEST_VALUE", "set")
	t.Setenv("HOOKBOX_TEST_INT", "42")
	t.Setenv("HOOKBOX_TEST_BAD_INT", "forty")
	t.Setenv("HOOKBOX_TEST_DURATION", "90s")

	if got := getEnvOrDefault("HOOKBOX_TEST_VALUE", "default"); got != "set" {
		t.Errorf("getEnvOrDefault = %q", got)
	}
	if got := getEnvOrDefault("HOOKBOX_TEST_UNSET", "default"); got != "default" {
		t.Errorf("getEnvOrDefault unset = %q", got)
	}
	if got := getEnvOrDefaultInt("HOOKBOX_TEST_INT", 1); got != 42 {
		t.Errorf("getEnvOrDefaultInt = %d", got)
	}
	if got := getEnvOrDefaultInt("HOOKBOX_TEST_BAD_INT", 1); got != 1 {
		t.Errorf("getEnvOrDefaultInt bad = %d", got)
	}
	if got := getEnvOrDefaultDuration("HOOKBOX_TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("getEnvOrDefaultDuration = %v", got)
	}
}
