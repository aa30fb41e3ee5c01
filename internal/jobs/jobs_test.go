package jobs

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hookbox/internal/webhook"
)

func testRecord() *webhook.Record {
	return &webhook.Record{
		ID:         "rec-1",
		ConfigName: "stripe",
		Payload:    []byte(`{"type":"charge.succeeded"}`),
		Attempts:   1,
	}
}

func TestNoop(t *testing.T) {
	rec := testRecord()
	task := Noop{}.NewTask(rec)
	if task.Job != NoopName || task.RecordID != rec.ID || task.ConfigName != rec.ConfigName {
		t.Errorf("Unexpected task: %+v", task)
	}
	if task.ID == "" {
		t.Error("Expected task ID")
	}
	if err := (Noop{}).Handle(context.Background(), rec); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	job := NewLog(slog.New(slog.NewJSONHandler(&buf, nil)))

	if err := job.Handle(context.Background(), testRecord()); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"record":"rec-1"`) || !strings.Contains(out, `"config":"stripe"`) {
		t.Errorf("Expected record attributes in log line: %s", out)
	}
	if job.NewTask(testRecord()).Job != LogName {
		t.Error("Expected log job name on task")
	}
}

func TestCommand_PayloadOnStdin(t *testing.T) {
	out := filepath.Join(t.TempDir(), "payload.json")
	job, err := NewCommand([]any{"sh", "-c", `cat > "$0"; echo "$HOOKBOX_RECORD_ID" >> "$0"`, out}, time.Second*5, nil)
	if err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}

	if err := job.Handle(context.Background(), testRecord()); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	want := `{"type":"charge.succeeded"}rec-1` + "\n"
	if string(data) != want {
		t.Errorf("Expected %q, got %q", want, data)
	}
}

func TestCommand_FailureIncludesOutput(t *testing.T) {
	job, err := NewCommand(`sh -c "echo boom >&2; exit 1"`, 0, nil)
	if err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}
	if job.timeout != DefaultCommandTimeout {
		t.Errorf("Expected default timeout, got %s", job.timeout)
	}

	err = job.Handle(context.Background(), testRecord())
	if err == nil {
		t.Fatal("Expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected command output in error, got %v", err)
	}
}

func TestCommand_FailureMasksSecrets(t *testing.T) {
	job, err := NewCommand(`sh -c "echo sig=whsec_123 token=tok-9; exit 3"`, 0, nil, "whsec_123", "", "tok-9")
	if err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}

	err = job.Handle(context.Background(), testRecord())
	if err == nil {
		t.Fatal("Expected error")
	}
	msg := err.Error()
	if strings.Contains(msg, "whsec_123") || strings.Contains(msg, "tok-9") {
		t.Errorf("Secret leaked into error: %v", msg)
	}
	if !strings.Contains(msg, "sig=***REDACTED*** token=***REDACTED***") {
		t.Errorf("Expected masked output, got %v", msg)
	}
}

func TestCommand_Timeout(t *testing.T) {
	job, err := NewCommand("sleep 5", 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("NewCommand failed: %v", err)
	}
	err = job.Handle(context.Background(), testRecord())
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("Expected timeout error, got %v", err)
	}
}

func TestNewCommand_Invalid(t *testing.T) {
	for _, cmd := range []any{"", nil, 3, []any{}} {
		if _, err := NewCommand(cmd, 0, nil); err == nil {
			t.Errorf("Expected error for %#v", cmd)
		}
	}
}
