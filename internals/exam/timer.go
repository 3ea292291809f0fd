package exam

import (
	"sync"
	"time"
)

// Remaining derives the time left in an attempt from the server-stamped start
// time. The result is never negative. The client countdown built on this is
// advisory; the stored start time stays authoritative.
func Remaining(startedAt time.Time, duration time.Duration, now time.Time) time.Duration {
	remaining := duration - now.Sub(startedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Countdown fires onExpire exactly once when the attempt window closes.
// Stop latches the countdown so a stale timer callback can never fire after
// the attempt has already ended another way.
type Countdown struct {
	timer *time.Timer
	once  sync.Once
}

// StartCountdown schedules onExpire after remaining. A zero or negative
// remaining fires immediately.
func StartCountdown(remaining time.Duration, onExpire func()) *Countdown {
	c := &Countdown{}
	c.timer = time.AfterFunc(remaining, func() {
		c.once.Do(onExpire)
	})
	return c
}

// Stop cancels the countdown. Safe to call more than once and after expiry.
func (c *Countdown) Stop() {
	c.once.Do(func() {})
	c.timer.Stop()
}
