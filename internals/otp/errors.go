package otp

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidOrExpired covers a wrong code, a missing row, an expired row and
// an already-used row. The cases are deliberately merged so a caller (or an
// attacker) cannot tell which failure mode occurred.
var ErrInvalidOrExpired = errors.New("invalid or expired code")

// LockedError is returned while a credential-level lockout is in effect.
// RetryAfter always carries enough data for the caller to render a countdown.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("locked, retry after %ds", RetryAfterSeconds(e.RetryAfter))
}

// TooManyAttemptsError is returned on the verification that crosses the
// attempt bound. Every call after it fails with LockedError until the lock
// expires.
type TooManyAttemptsError struct {
	RetryAfter time.Duration
}

func (e *TooManyAttemptsError) Error() string {
	return fmt.Sprintf("too many attempts, retry after %ds", RetryAfterSeconds(e.RetryAfter))
}

// RetryAfterSeconds converts a remaining lock duration to whole seconds,
// rounding up so a client never retries early.
func RetryAfterSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
