package kafka

import (
	"errors"
	"fmt"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
)

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{fmt.Errorf("dial tcp 127.0.0.1:9094: connection refused"), true},
		{fmt.Errorf("read: i/o timeout"), true},
		{fmt.Errorf("broken pipe"), true},
		{fmt.Errorf("invalid message size"), false},
	}

	for _, tt := range tests {
		if got := IsConnectionError(tt.err); got != tt.want {
			t.Errorf("IsConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestIsTopicNotReady(t *testing.T) {
	if !IsTopicNotReady(kafkago.UnknownTopicOrPartition) {
		t.Error("UnknownTopicOrPartition should be topic-not-ready")
	}
	wrapped := fmt.Errorf("read partitions: %w", kafkago.UnknownTopicOrPartition)
	if !IsTopicNotReady(wrapped) {
		t.Error("wrapped UnknownTopicOrPartition should be topic-not-ready")
	}
	if IsTopicNotReady(errors.New("authorization failed")) {
		t.Error("authorization failure must not be treated as topic-not-ready")
	}
	if IsTopicNotReady(nil) {
		t.Error("nil is not topic-not-ready")
	}
}

func TestIsRetryableError(t *testing.T) {
	if !IsRetryableError(fmt.Errorf("connection refused")) {
		t.Error("connection errors are retryable")
	}
	if !IsRetryableError(kafkago.UnknownTopicOrPartition) {
		t.Error("topic-not-ready errors are retryable")
	}
	if IsRetryableError(errors.New("message too large")) {
		t.Error("oversized message is not retryable")
	}
}
