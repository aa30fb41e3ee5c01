package webhook

import (
	"bytes"
	"encoding/json"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultRecordFactory stores the raw body, the selected headers and, for JSON
// object bodies, the decoded payload.
type DefaultRecordFactory struct{}

// NewRecord implements RecordFactory.
func (DefaultRecordFactory) NewRecord(configName string, req *Request, storeHeaders []string) (*Record, error) {
	received := req.ReceivedAt
	if received.IsZero() {
		received = time.Now().UTC()
	}
	rec := &Record{
		ID:             uuid.NewString(),
		ConfigName:     configName,
		Method:         req.Method,
		URL:            req.URL,
		Headers:        HeadersFrom(req.Header, storeHeaders),
		Payload:        append([]byte(nil), req.Body...),
		SignatureValid: true,
		Status:         StatusReceived,
		CreatedAt:      received,
		UpdatedAt:      received,
	}
	rec.ParsedPayload = parsePayload(req)
	return rec, nil
}

// parsePayload decodes JSON object bodies. Anything else is kept raw only.
func parsePayload(req *Request) map[string]any {
	body := bytes.TrimSpace(req.Body)
	if len(body) == 0 || body[0] != '{' {
		return nil
	}
	if ct := req.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err == nil && mediaType != "application/json" && !strings.HasSuffix(mediaType, "+json") {
			return nil
		}
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload
}
