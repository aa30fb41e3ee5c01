package webhook

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// SignatureValidator decides whether a request was sent by a holder of secret.
// headerName names the header carrying the signature. Implementations return
// false (never panic) when the header is missing or malformed.
type SignatureValidator interface {
	Verify(header http.Header, body []byte, secret, headerName string) bool
}

// Profile decides whether a stored record should be processed. It runs after
// the record is persisted and the response has been sent.
type Profile interface {
	ShouldProcess(ctx context.Context, rec *Record) (bool, error)
}

// Responder builds the immediate response for an accepted request.
type Responder interface {
	Respond(req *Request) Response
}

// RecordFactory builds the record persisted for a verified request.
type RecordFactory interface {
	NewRecord(configName string, req *Request, storeHeaders []string) (*Record, error)
}

// Job is the processing target of a webhook configuration: it builds the task
// placed on the queue and handles the record when a worker picks the task up.
type Job interface {
	NewTask(rec *Record) Task
	Handle(ctx context.Context, rec *Record) error
}

// TaskFor builds a task for the named job bound to rec.
func TaskFor(job string, rec *Record) Task {
	return Task{
		ID:         uuid.NewString(),
		Job:        job,
		RecordID:   rec.ID,
		ConfigName: rec.ConfigName,
	}
}
