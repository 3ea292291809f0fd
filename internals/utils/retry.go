package utils

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

const maxStoreAttempts = 3

// WithRetry runs op, retrying transient store failures up to 3 times with
// linear backoff (1s, 2s). Non-retryable errors propagate immediately.
func WithRetry(op func() error) error {
	var err error
	for attempt := 1; attempt <= maxStoreAttempts; attempt++ {
		err = op()
		if err == nil || !IsTransient(err) {
			return err
		}
		if attempt < maxStoreAttempts {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	return err
}

// IsTransient reports whether an error is worth retrying: timeouts,
// connection resets and abrupt connection terminations.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection terminated unexpectedly") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "database is locked")
}
