package webhook

import (
	"net/http"
	"sort"
	"strings"
	"time"
)

// Record statuses
const (
	StatusReceived   = "received"
	StatusRejected   = "rejected"
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusProcessed  = "processed"
	StatusFailed     = "failed"
)

// Header is one stored request header. Records keep headers as an ordered list
// so that stores and API output are deterministic.
type Header struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Record is the durable representation of one received call.
type Record struct {
	ID             string         `json:"id"`
	ConfigName     string         `json:"config_name"`
	Method         string         `json:"method"`
	URL            string         `json:"url"`
	Headers        []Header       `json:"headers"`
	Payload        []byte         `json:"-"`
	ParsedPayload  map[string]any `json:"payload,omitempty"`
	SignatureValid bool           `json:"signature_valid"`
	Status         string         `json:"status"`
	Exception      *string        `json:"exception,omitempty"`
	Attempts       int            `json:"attempts"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	ProcessedAt    *time.Time     `json:"processed_at,omitempty"`
}

// HeaderValue returns the first value stored for name (case-insensitive).
func (r *Record) HeaderValue(name string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) && len(h.Values) > 0 {
			return h.Values[0]
		}
	}
	return ""
}

// SetException records a processing error, or clears it when err is nil.
func (r *Record) SetException(err error) {
	if err == nil {
		r.Exception = nil
		return
	}
	msg := err.Error()
	r.Exception = &msg
}

// HeadersFrom converts an http.Header into the ordered form. When keep is
// non-empty only the listed names are stored; "*" keeps everything.
func HeadersFrom(h http.Header, keep []string) []Header {
	all := len(keep) == 0
	allowed := make(map[string]bool, len(keep))
	for _, name := range keep {
		if name == "*" {
			all = true
		}
		allowed[http.CanonicalHeaderKey(name)] = true
	}

	names := make([]string, 0, len(h))
	for name := range h {
		if all || allowed[http.CanonicalHeaderKey(name)] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	headers := make([]Header, 0, len(names))
	for _, name := range names {
		values := append([]string(nil), h[name]...)
		headers = append(headers, Header{Name: name, Values: values})
	}
	return headers
}
