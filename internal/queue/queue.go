// Package queue hands processing tasks from the admission pipeline to the
// workers. Delivery is at-least-once: a task stays owned by the backend until
// it is acknowledged.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hookbox/internal/webhook"
)

// ErrClosed is returned by operations on a closed queue.
var ErrClosed = errors.New("queue closed")

// DefaultPollTimeout is how long Dequeue waits before returning empty-handed.
const DefaultPollTimeout = 5 * time.Second

// Message is a dequeued task plus the backend handle needed to Ack it.
type Message struct {
	Task   webhook.Task
	handle string
}

// Queue is the deferral boundary. Dequeue returns (nil, nil) when nothing
// arrived before the poll timeout.
type Queue interface {
	Enqueue(ctx context.Context, task webhook.Task) error
	Dequeue(ctx context.Context) (*Message, error)
	Ack(ctx context.Context, msg *Message) error
	Close() error
}

// Backends accepted by Open.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQS    = "sqs"
)

// Options selects and configures a backend.
type Options struct {
	Backend     string
	URL         string // redis URL or SQS queue URL
	Name        string // redis list name
	Region      string // AWS region for SQS
	PollTimeout time.Duration
	BufferSize  int // memory only
}

// Open creates the queue described by opts.
func Open(ctx context.Context, opts Options) (Queue, error) {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}

	switch opts.Backend {
	case BackendMemory, "":
		return NewMemory(opts.BufferSize, opts.PollTimeout), nil
	case BackendRedis:
		q, err := OpenRedis(ctx, opts.URL, opts.Name, opts.PollTimeout)
		if err != nil {
			return nil, err
		}
		return q, nil
	case BackendSQS:
		q, err := OpenSQS(ctx, opts.URL, opts.Region, opts.PollTimeout)
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q (expected memory, redis or sqs)", opts.Backend)
	}
}

func encodeTask(task webhook.Task) (string, error) {
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}
	data, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("failed to encode task: %w", err)
	}
	return string(data), nil
}

func decodeTask(body string) (webhook.Task, error) {
	var task webhook.Task
	if err := json.Unmarshal([]byte(body), &task); err != nil {
		return task, fmt.Errorf("failed to decode task: %w", err)
	}
	return task, nil
}
