package queue

import (
	"context"
	"sync"
	"time"

	"hookbox/internal/webhook"
)

// DefaultBufferSize is the capacity of the in-process queue.
const DefaultBufferSize = 1024

// Memory is an in-process queue backed by a buffered channel. Tasks do not
// survive a restart; serve re-settles what was lost when it starts again.
type Memory struct {
	tasks       chan webhook.Task
	pollTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewMemory(size int, pollTimeout time.Duration) *Memory {
	if size <= 0 {
		size = DefaultBufferSize
	}
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &Memory{
		tasks:       make(chan webhook.Task, size),
		pollTimeout: pollTimeout,
		done:        make(chan struct{}),
	}
}

// Enqueue blocks while the buffer is full, until ctx is done.
func (m *Memory) Enqueue(ctx context.Context, task webhook.Task) error {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}

	select {
	case m.tasks <- task:
		return nil
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Memory) Dequeue(ctx context.Context) (*Message, error) {
	timer := time.NewTimer(m.pollTimeout)
	defer timer.Stop()

	select {
	case task := <-m.tasks:
		return &Message{Task: task}, nil
	case <-timer.C:
		return nil, nil
	case <-m.done:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Memory) Ack(context.Context, *Message) error { return nil }

// Len returns the number of waiting tasks.
func (m *Memory) Len() int { return len(m.tasks) }

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}
