package auth

import (
	"sync"
	"time"
)

// Cooldown gates resend-code attempts with a fixed local countdown. It is
// purely client-side and not synchronized with server rate limiting.
type Cooldown struct {
	mu    sync.Mutex
	d     time.Duration
	until time.Time
	now   func() time.Time
}

// NewCooldown builds a cooldown of the given duration, initially ready.
func NewCooldown(d time.Duration) *Cooldown {
	return &Cooldown{d: d, now: time.Now}
}

// Start arms the countdown. Call after each successful resend.
func (c *Cooldown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.until = c.now().Add(c.d)
}

// Ready reports whether the countdown has reached zero.
func (c *Cooldown) Ready() bool {
	return c.Remaining() <= 0
}

// Remaining returns the time left until resend is allowed again.
func (c *Cooldown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.until.Sub(c.now())
}
