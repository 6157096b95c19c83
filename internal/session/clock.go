package session

import (
	"context"
	"time"
)

// SessionClock fixes one absolute deadline per attempt. The deadline is
// written once on first entry and only read afterwards, so reloading never
// extends the attempt.
type SessionClock struct {
	store AttemptStore
	now   func() time.Time
}

// NewSessionClock creates a new SessionClock.
func NewSessionClock(store AttemptStore, now func() time.Time) *SessionClock {
	return &SessionClock{store: store, now: now}
}

// Deadline returns the persisted deadline for key, creating now+duration on first entry.
func (c *SessionClock) Deadline(ctx context.Context, key AttemptKey, duration time.Duration) (time.Time, error) {
	return c.store.InitDeadline(ctx, key, c.now().Add(duration))
}

// Remaining is the time left before deadline as seen now.
func (c *SessionClock) Remaining(deadline time.Time) time.Duration {
	return Remaining(deadline, c.now())
}

// Remaining returns max(0, deadline-now).
func Remaining(deadline, now time.Time) time.Duration {
	d := deadline.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Seconds truncates d to whole seconds.
func Seconds(d time.Duration) int {
	return int(d / time.Second)
}
