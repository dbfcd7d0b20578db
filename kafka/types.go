package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Message is the envelope delivered to handlers: a topic name plus a
// JSON-encoded payload, with broker position metadata for logging.
type Message struct {
	Key       string    `json:"key"`
	Value     []byte    `json:"value"`
	Topic     string    `json:"topic"`
	Partition int       `json:"partition"`
	Offset    int64     `json:"offset"`
	Timestamp time.Time `json:"timestamp"`
}

// MessageHandler processes one delivered message. A non-nil error is logged
// by the consume loop and the next message is still processed.
type MessageHandler func(ctx context.Context, msg Message) error

// JSONHandler adapts a typed payload handler to a MessageHandler, decoding
// the message value as JSON first. A decode failure is reported as a handler
// error and isolated like any other.
func JSONHandler[T any](fn func(ctx context.Context, payload T) error) MessageHandler {
	return func(ctx context.Context, msg Message) error {
		var payload T
		if err := msg.UnmarshalValueJSON(&payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.Topic, err)
		}
		return fn(ctx, payload)
	}
}

// FromKafkaMessage converts a kafka-go Message to the platform envelope.
func FromKafkaMessage(msg kafka.Message) Message {
	return Message{
		Key:       string(msg.Key),
		Value:     msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}

// UnmarshalValueJSON unmarshals the message value as JSON into v.
func (m Message) UnmarshalValueJSON(v interface{}) error {
	return json.Unmarshal(m.Value, v)
}
