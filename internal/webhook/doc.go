// Package webhook defines the data and capability contracts of the webhook
// admission pipeline.
//
// A received call moves through four pluggable stages, each selected per
// webhook configuration:
//   - SignatureValidator: decides whether the raw request is authentic
//   - RecordFactory: builds the durable Record from the request
//   - Responder: builds the immediate HTTP response for the sender
//   - Profile: decides whether a stored Record should be processed
//
// Records that pass the profile are turned into a Task by the configured Job and
// handed to a queue. The Job later handles the Record on a worker.
package webhook
