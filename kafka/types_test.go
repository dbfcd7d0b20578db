package kafka

import (
	"context"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
)

func TestFromKafkaMessage(t *testing.T) {
	now := time.Now()
	src := kafkago.Message{
		Key:       []byte("42"),
		Value:     []byte(`{"id":"42"}`),
		Topic:     "product.created",
		Partition: 2,
		Offset:    17,
		Time:      now,
	}

	msg := FromKafkaMessage(src)

	if msg.Key != "42" {
		t.Errorf("Key = %q, want 42", msg.Key)
	}
	if msg.Topic != "product.created" {
		t.Errorf("Topic = %q, want product.created", msg.Topic)
	}
	if msg.Partition != 2 || msg.Offset != 17 {
		t.Errorf("position = %d/%d, want 2/17", msg.Partition, msg.Offset)
	}
	if !msg.Timestamp.Equal(now) {
		t.Errorf("Timestamp = %v, want %v", msg.Timestamp, now)
	}
}

func TestJSONHandler_DecodesPayload(t *testing.T) {
	type payload struct {
		ID    string  `json:"id"`
		Name  string  `json:"name"`
		Price float64 `json:"price"`
	}

	var got payload
	handler := JSONHandler(func(ctx context.Context, p payload) error {
		got = p
		return nil
	})

	msg := Message{
		Topic: "product.created",
		Value: []byte(`{"id":"42","name":"Shoe","price":19.99}`),
	}
	if err := handler(context.Background(), msg); err != nil {
		t.Fatalf("handler error = %v", err)
	}

	if got.ID != "42" || got.Name != "Shoe" || got.Price != 19.99 {
		t.Errorf("decoded payload = %+v", got)
	}
}

func TestJSONHandler_DecodeErrorIsReturned(t *testing.T) {
	called := false
	handler := JSONHandler(func(ctx context.Context, p map[string]any) error {
		called = true
		return nil
	})

	msg := Message{Topic: "product.created", Value: []byte("not json")}
	if err := handler(context.Background(), msg); err == nil {
		t.Fatal("expected decode error")
	}
	if called {
		t.Error("typed handler must not run on decode failure")
	}
}
