package messagebus

import (
	"context"
	"time"

	"github.com/tanisharajgor/Mongo-Exploratory/utils"
)

// Message represents a message in the message bus
type Message struct {
	Topic     string            `json:"topic"`
	Key       string            `json:"key,omitempty"`
	Value     []byte            `json:"value"`
	Headers   map[string]string `json:"headers,omitempty"`
	Partition int32             `json:"partition,omitempty"`
	Offset    int64             `json:"offset,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Producer interface for publishing messages
type Producer interface {
	// Send sends a message synchronously and returns the partition and offset
	Send(ctx context.Context, message *Message) (partition int32, offset int64, err error)

	// Close flushes pending messages and closes the producer
	Close() error
}

// Consumer interface for consuming messages
type Consumer interface {
	// Subscribe subscribes to topics and starts delivering to the OnMessage callback
	Subscribe(topics []string) error

	// OnMessage sets the callback for incoming messages. Messages of one
	// consumer are delivered one at a time, in order.
	OnMessage(fn func(*Message))

	// Commit marks message and everything before it on its partition as processed
	Commit(ctx context.Context, message *Message) error

	// Close stops delivery and closes the consumer
	Close() error
}

// WithTraceHeader copies the trace ID of ctx, if any, onto the message headers.
func WithTraceHeader(ctx context.Context, message *Message) *Message {
	traceID, ok := utils.GetTraceID(ctx)
	if !ok {
		return message
	}
	if message.Headers == nil {
		message.Headers = make(map[string]string)
	}
	message.Headers[utils.TraceIDHeader] = traceID
	return message
}
