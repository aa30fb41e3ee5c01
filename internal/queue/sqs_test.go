package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hookbox/internal/webhook"
)

type fakeSQS struct {
	mu       sync.Mutex
	messages []types.Message
	deleted  []string
	lastWait int32
	sendErr  error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return nil, f.sendErr
	}
	id := aws.String("msg-" + string(rune('a'+len(f.messages))))
	f.messages = append(f.messages, types.Message{
		MessageId:     id,
		Body:          in.MessageBody,
		ReceiptHandle: aws.String("receipt-" + *id),
	})
	return &sqs.SendMessageOutput{MessageId: id}, nil
}

func (f *fakeSQS) ReceiveMessage(_ context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastWait = in.WaitTimeSeconds
	if len(f.messages) == 0 {
		return &sqs.ReceiveMessageOutput{}, nil
	}
	m := f.messages[0]
	f.messages = f.messages[1:]
	return &sqs.ReceiveMessageOutput{Messages: []types.Message{m}}, nil
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func TestSQS_EnqueueDequeueAck(t *testing.T) {
	fake := &fakeSQS{}
	q := NewSQS(fake, "https://sqs.eu-west-1.amazonaws.com/123/hookbox", 30*time.Second)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, webhook.Task{ID: "t1", Job: "log", RecordID: "rec-1", ConfigName: "github"}))

	msg, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "rec-1", msg.Task.RecordID)
	assert.Equal(t, "log", msg.Task.Job)
	assert.Equal(t, int32(20), fake.lastWait, "long polling is capped at 20 seconds")

	require.NoError(t, q.Ack(ctx, msg))
	assert.Equal(t, []string{"receipt-msg-a"}, fake.deleted)
}

func TestSQS_Empty(t *testing.T) {
	q := NewSQS(&fakeSQS{}, "url", 2*time.Second)

	msg, err := q.Dequeue(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, msg)
}

func TestSQS_SendError(t *testing.T) {
	q := NewSQS(&fakeSQS{sendErr: errors.New("throttled")}, "url", time.Second)

	err := q.Enqueue(context.Background(), webhook.Task{ID: "t1"})
	assert.ErrorContains(t, err, "throttled")
}

func TestSQS_PoisonMessageDeleted(t *testing.T) {
	fake := &fakeSQS{messages: []types.Message{{
		Body:          aws.String("{"),
		ReceiptHandle: aws.String("bad"),
	}}}
	q := NewSQS(fake, "url", time.Second)

	msg, err := q.Dequeue(context.Background())
	assert.Error(t, err)
	assert.Nil(t, msg)
	assert.Equal(t, []string{"bad"}, fake.deleted)
}
