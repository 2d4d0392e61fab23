package device

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// AutoCloseTimer tracks a single optional deadline after which the dispenser
// should be closed again. Arming replaces any earlier deadline.
type AutoCloseTimer struct {
	clock Clock

	mu       sync.Mutex
	deadline time.Time
	armed    bool
}

// NewAutoCloseTimer creates a disarmed timer. A nil clock uses the system clock.
func NewAutoCloseTimer(clock Clock) *AutoCloseTimer {
	if clock == nil {
		clock = SystemClock()
	}
	return &AutoCloseTimer{clock: clock}
}

// Arm sets the deadline to now+delay. A non-positive delay uses DefaultAutoCloseDelay.
func (t *AutoCloseTimer) Arm(delay time.Duration) time.Time {
	if delay <= 0 {
		delay = DefaultAutoCloseDelay
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.deadline = t.clock.Now().Add(delay)
	t.armed = true
	return t.deadline
}

// Disarm clears the deadline.
func (t *AutoCloseTimer) Disarm() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deadline = time.Time{}
	t.armed = false
}

// Deadline returns the armed deadline, if any.
func (t *AutoCloseTimer) Deadline() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.deadline, t.armed
}

// Due reports whether a deadline is armed and has been reached.
func (t *AutoCloseTimer) Due() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed && !t.clock.Now().Before(t.deadline)
}

// PollAndMaybeClose closes compartment through link when the deadline has
// passed and the link reports the dispenser open. A failed close keeps the
// deadline armed so the next poll tries again.
func (t *AutoCloseTimer) PollAndMaybeClose(ctx context.Context, link Link, compartment int) (bool, error) {
	if !link.IsOpen() || !t.Due() {
		return false, nil
	}

	if err := link.SendCommand(ctx, Command{Compartment: compartment, Action: ActionClose}); err != nil {
		log.Warn().Err(err).Int("compartment", compartment).Msg("Auto-close failed, will retry on next poll")
		return false, err
	}

	t.Disarm()
	return true, nil
}
