package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hookbox/internal/webhook"
)

// DefaultRedisList is the list tasks are pushed to.
const DefaultRedisList = "hookbox:tasks"

// Redis is a reliable list queue: LPUSH to the pending list, BLMOVE into a
// processing list on dequeue, LREM from it on Ack. Tasks left in the
// processing list by a crashed worker are returned by Recover.
type Redis struct {
	client      *redis.Client
	pending     string
	processing  string
	pollTimeout time.Duration
}

// OpenRedis connects using a redis:// URL and checks the connection.
func OpenRedis(ctx context.Context, url, list string, pollTimeout time.Duration) (*Redis, error) {
	if url == "" {
		return nil, fmt.Errorf("redis queue requires a URL")
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedis(client, list, pollTimeout), nil
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, list string, pollTimeout time.Duration) *Redis {
	if list == "" {
		list = DefaultRedisList
	}
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &Redis{
		client:      client,
		pending:     list,
		processing:  list + ":processing",
		pollTimeout: pollTimeout,
	}
}

func (r *Redis) Enqueue(ctx context.Context, task webhook.Task) error {
	body, err := encodeTask(task)
	if err != nil {
		return err
	}
	if err := r.client.LPush(ctx, r.pending, body).Err(); err != nil {
		return fmt.Errorf("failed to push task: %w", err)
	}
	return nil
}

func (r *Redis) Dequeue(ctx context.Context) (*Message, error) {
	body, err := r.client.BLMove(ctx, r.pending, r.processing, "RIGHT", "LEFT", r.pollTimeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop task: %w", err)
	}

	task, err := decodeTask(body)
	if err != nil {
		// drop poison messages so they are not retried forever
		r.client.LRem(ctx, r.processing, 1, body)
		return nil, err
	}
	return &Message{Task: task, handle: body}, nil
}

func (r *Redis) Ack(ctx context.Context, msg *Message) error {
	if err := r.client.LRem(ctx, r.processing, 1, msg.handle).Err(); err != nil {
		return fmt.Errorf("failed to ack task: %w", err)
	}
	return nil
}

// Recover moves every task left in the processing list back to pending and
// returns how many were moved. Run it before starting workers.
func (r *Redis) Recover(ctx context.Context) (int, error) {
	n := 0
	for {
		err := r.client.LMove(ctx, r.processing, r.pending, "LEFT", "RIGHT").Err()
		if errors.Is(err, redis.Nil) {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("failed to recover tasks: %w", err)
		}
		n++
	}
}

// Len returns the number of pending tasks.
func (r *Redis) Len(ctx context.Context) (int64, error) {
	return r.client.LLen(ctx, r.pending).Result()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
