package kafka

import (
	"errors"
	"strings"

	"github.com/segmentio/kafka-go"
)

// IsConnectionError checks if an error is a broker connection-level error.
// Connection errors are always retried by the connect policy.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	connectionPatterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"broker not available",
		"leader not available",
		"connection closed",
		"dial tcp",
		"unexpected eof",
	}
	for _, p := range connectionPatterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// IsTopicNotReady reports whether a subscribe failure means the topic or
// partition has not been auto-created yet. A fresh cluster races the first
// subscriber, so only this class of subscribe error is retried; anything
// else propagates immediately.
func IsTopicNotReady(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, kafka.UnknownTopicOrPartition) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "unknown topic or partition") ||
		strings.Contains(errStr, "leader not available")
}

// IsRetryableError determines if a broker error should trigger a retry.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if IsConnectionError(err) || IsTopicNotReady(err) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"temporary",
		"request timed out",
		"not enough replicas",
	}
	for _, p := range retryablePatterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}
