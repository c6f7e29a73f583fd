package auth

import (
	"fmt"
	"sync"
	"time"
)

const countdownSentinel = "--:--"

// Countdown derives a live MM:SS string from the session expiry and fires the
// expire callback exactly once when the remaining time reaches zero.
// At most one ticker is active per instance: changing the expiry cancels the
// previous ticker before any new one starts.
type Countdown struct {
	onExpire func()
	now      func() time.Time
	tick     time.Duration

	mu      sync.Mutex
	expiry  *int64 // epoch millis
	display string
	stopCh  chan struct{}
}

// NewCountdown creates a countdown with no expiry set (display "--:--").
func NewCountdown(onExpire func()) *Countdown {
	return &Countdown{
		onExpire: onExpire,
		now:      time.Now,
		tick:     time.Second,
		display:  countdownSentinel,
	}
}

// SetExpiry replaces the watched expiry. A nil expiry cancels the ticker and
// pins the display to the sentinel; otherwise the display is recomputed
// immediately and a fresh 1-second ticker starts.
func (c *Countdown) SetExpiry(expiry *int64) {
	c.mu.Lock()
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	c.expiry = expiry
	if expiry == nil {
		c.display = countdownSentinel
		c.mu.Unlock()
		return
	}

	c.display = FormatRemaining(*expiry - c.now().UnixMilli())
	stop := make(chan struct{})
	c.stopCh = stop
	target := *expiry
	c.mu.Unlock()

	go c.run(target, stop)
}

func (c *Countdown) run(expiry int64, stop chan struct{}) {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			if c.stopCh != stop {
				// Superseded by a newer expiry.
				c.mu.Unlock()
				return
			}
			diff := expiry - c.now().UnixMilli()
			if diff > 0 {
				c.display = FormatRemaining(diff)
				c.mu.Unlock()
				continue
			}
			c.display = "00:00"
			c.stopCh = nil
			fn := c.onExpire
			c.mu.Unlock()
			if fn != nil {
				fn()
			}
			return
		case <-stop:
			return
		}
	}
}

// Remaining returns the current display string.
func (c *Countdown) Remaining() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// Stop cancels any active ticker.
func (c *Countdown) Stop() {
	c.mu.Lock()
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
	c.mu.Unlock()
}

// FormatRemaining formats milliseconds as zero-padded MM:SS. Minutes are not
// capped at 59; negative input formats as "00:00".
func FormatRemaining(ms int64) string {
	if ms < 0 {
		return "00:00"
	}
	totalSeconds := ms / 1000
	return fmt.Sprintf("%02d:%02d", totalSeconds/60, totalSeconds%60)
}
