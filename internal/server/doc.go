// Package server implements the HTTP front of hookbox.
//
// This package provides:
//   - The webhook endpoint, which hands each request to the admission pipeline
//   - Per-IP rate limiting for all routes and a tighter limit for webhooks
//   - Health, status and prometheus metrics endpoints
//   - Structured logging of all HTTP requests
//
// The server integrates with other packages:
//   - internal/config: resolved webhook configs by name
//   - internal/pipeline: signature check, persistence, response and hand-off
//   - internal/record: recent records for the status endpoint
//
// Request limits:
//   - Payload size limit (1MB max, 413 above it)
//   - Config names validated before lookup (400 when malformed, 404 when unknown)
package server
