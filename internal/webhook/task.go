package webhook

import "time"

// Task is the unit of deferred work placed on a queue. It only references the
// record; the worker loads the record before running the job.
type Task struct {
	ID         string    `json:"id"`
	Job        string    `json:"job"`
	RecordID   string    `json:"record_id"`
	ConfigName string    `json:"config_name"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	Attempt    int       `json:"attempt"`
}
