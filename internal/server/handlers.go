package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"hookbox/internal/security"
	"hookbox/internal/webhook"
)

const (
	MaxPayloadBytes    = 1_000_000 // 1 MB
	RecentRecordsLimit = 10        // Number of records returned by the status endpoint
)

// HandleWebhook admits an inbound webhook call for the config named in the
// URL. The configured response is written by the pipeline callback; any
// admission error is reported as JSON.
func (s *Server) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := security.ValidateConfigName(name); err != nil {
		s.Logger.Warn("Invalid webhook name in request", "config", name, "error", err)
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid webhook name: %v", err), "INVALID_NAME")
		return
	}

	cfg, err := s.Configs.Get(name)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Unknown webhook", "UNKNOWN_WEBHOOK")
		return
	}

	// ContentLength can be -1 when not set; the limited read below covers that case
	if r.ContentLength > MaxPayloadBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, "Payload too large", "PAYLOAD_TOO_LARGE")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxPayloadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "Payload too large", "PAYLOAD_TOO_LARGE")
			return
		}
		s.Logger.Error("Failed to read request body", "config", name, "error", err)
		s.respondError(w, http.StatusBadRequest, "Failed to read payload", "READ_FAILED")
		return
	}

	_, err = s.Pipeline.Admit(r.Context(), cfg, webhook.NewRequest(r, body), func(resp webhook.Response) error {
		return writeResponse(w, resp)
	})
	if err != nil {
		status, code := webhook.HTTPStatus(err)
		message := http.StatusText(status)
		if status == http.StatusUnauthorized {
			message = "Invalid signature"
		}
		s.respondError(w, status, message, code)
	}
}

// writeResponse sends a responder's descriptor as-is.
func writeResponse(w http.ResponseWriter, resp webhook.Response) error {
	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if len(resp.Body) > 0 {
		if _, err := w.Write(resp.Body); err != nil {
			return err
		}
	}

	// the sender sees the response before the record is filtered
	if err := http.NewResponseController(w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	return nil
}

// HandleHealth handles health check requests
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":        "ok",
		"webhooks":      s.Configs.List(),
		"webhook_count": s.Configs.Count(),
	}

	s.respondJSON(w, http.StatusOK, response)
}

// HandleStatus returns the most recent records of a webhook config.
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := security.ValidateConfigName(name); err != nil {
		s.Logger.Warn("Invalid webhook name in status request", "config", name, "error", err)
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid webhook name: %v", err), "INVALID_NAME")
		return
	}

	if _, err := s.Configs.Get(name); err != nil {
		s.respondError(w, http.StatusNotFound, "Unknown webhook", "UNKNOWN_WEBHOOK")
		return
	}

	recent, err := s.Store.Recent(r.Context(), name, RecentRecordsLimit)
	if err != nil {
		s.Logger.Error("Failed to list recent records", "config", name, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to fetch webhook status", "STATUS_FAILED")
		return
	}

	summaries := make([]recordSummary, 0, len(recent))
	for _, rec := range recent {
		summaries = append(summaries, summarize(rec))
	}

	response := map[string]interface{}{
		"webhook":        name,
		"recent_records": summaries,
	}
	if len(summaries) > 0 {
		response["latest_record"] = summaries[0]
	}

	s.respondJSON(w, http.StatusOK, response)
}

// recordSummary is the status view of a record; payload and headers are left out.
type recordSummary struct {
	ID          string  `json:"id"`
	Status      string  `json:"status"`
	Attempts    int     `json:"attempts"`
	Exception   *string `json:"exception,omitempty"`
	CreatedAt   string  `json:"created_at"`
	ProcessedAt *string `json:"processed_at,omitempty"`
}

func summarize(rec *webhook.Record) recordSummary {
	sum := recordSummary{
		ID:        rec.ID,
		Status:    rec.Status,
		Attempts:  rec.Attempts,
		Exception: rec.Exception,
		CreatedAt: rec.CreatedAt.Format(timeLayout),
	}
	if rec.ProcessedAt != nil {
		at := rec.ProcessedAt.Format(timeLayout)
		sum.ProcessedAt = &at
	}
	return sum
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

// respondError sends the JSON error envelope.
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message, code string) {
	body := map[string]string{"error": message}
	if code != "" {
		body["code"] = code
	}
	s.respondJSON(w, statusCode, body)
}

// respondJSON sends a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.Logger.Error("Failed to encode JSON response", "error", err)
	}
}
