package otp

import "time"

// LockoutPolicy is the pure decision logic for OTP rate limiting. The attempt
// counter lives on the code row, but the lock lives on the credential, so a
// lock outlives any single code and blocks fresh issuance too. Otherwise a
// caller could reset their attempt budget by requesting a new code.
type LockoutPolicy struct {
	// MaxAttempts is the number of wrong codes tolerated per issued code.
	MaxAttempts int
	// LockFor is how long a credential stays locked after crossing the bound.
	LockFor time.Duration
}

// DefaultLockoutPolicy mirrors the portal defaults: 3 wrong tries, 15 minutes.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: 3, LockFor: 15 * time.Minute}
}

// Blocked reports whether a lock is currently active and, if so, how long
// until it expires. A past timestamp is treated as no lock at all (lazy
// expiry, no unlock step required).
func (p LockoutPolicy) Blocked(until *time.Time, now time.Time) (bool, time.Duration) {
	if until == nil || !until.After(now) {
		return false, 0
	}
	return true, until.Sub(now)
}

// ShouldLock reports whether an attempt count has crossed the bound.
func (p LockoutPolicy) ShouldLock(attempts int) bool {
	return attempts >= p.MaxAttempts
}
