package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"hookbox/internal/webhook"
)

// SQSAPI is the subset of the SQS client the queue uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, input *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, input *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQS uses long polling; Ack deletes the message by receipt handle. Messages
// not acknowledged reappear after the queue's visibility timeout.
type SQS struct {
	client      SQSAPI
	queueURL    string
	waitSeconds int32
}

// OpenSQS loads the default AWS configuration (environment, shared config,
// instance role).
func OpenSQS(ctx context.Context, queueURL, region string, pollTimeout time.Duration) (*SQS, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("sqs queue requires a queue URL")
	}

	var optFns []func(*awsconfig.LoadOptions) error
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSQS(sqs.NewFromConfig(cfg), queueURL, pollTimeout), nil
}

// NewSQS wraps an existing client. SQS caps long polling at 20 seconds.
func NewSQS(client SQSAPI, queueURL string, pollTimeout time.Duration) *SQS {
	wait := int32(pollTimeout / time.Second)
	if wait < 0 {
		wait = 0
	}
	if wait > 20 {
		wait = 20
	}
	return &SQS{client: client, queueURL: queueURL, waitSeconds: wait}
}

func (q *SQS) Enqueue(ctx context.Context, task webhook.Task) error {
	body, err := encodeTask(task)
	if err != nil {
		return err
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to send task: %w", err)
	}
	return nil
}

func (q *SQS) Dequeue(ctx context.Context) (*Message, error) {
	resp, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     q.waitSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive task: %w", err)
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}

	m := resp.Messages[0]
	handle := aws.ToString(m.ReceiptHandle)
	task, err := decodeTask(aws.ToString(m.Body))
	if err != nil {
		q.Ack(ctx, &Message{handle: handle})
		return nil, err
	}
	return &Message{Task: task, handle: handle}, nil
}

func (q *SQS) Ack(ctx context.Context, msg *Message) error {
	_, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(msg.handle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (q *SQS) Close() error { return nil }
