package webhook

import (
	"net/http"
	"time"
)

// Request is an inbound call exactly as it was received.
// Body holds the raw bytes; signature checks must run against them, never
// against a re-encoded form.
type Request struct {
	Method     string
	URL        string
	Header     http.Header
	Body       []byte
	ReceivedAt time.Time
}

// NewRequest captures an HTTP request whose body has already been read.
func NewRequest(r *http.Request, body []byte) *Request {
	return &Request{
		Method:     r.Method,
		URL:        r.URL.String(),
		Header:     r.Header.Clone(),
		Body:       body,
		ReceivedAt: time.Now().UTC(),
	}
}

// Response is the descriptor of the immediate reply sent to the sender.
type Response struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}
