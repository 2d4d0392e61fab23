package device

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// AutoClosePoller periodically asks a Controller to honour an armed
// auto-close deadline. The cadence should be well below the auto-close delay
// to bound how late an automatic close can be.
type AutoClosePoller struct {
	controller Controller
	interval   time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewAutoClosePoller creates a stopped poller. A non-positive interval uses
// DefaultAutoClosePollEvery.
func NewAutoClosePoller(controller Controller, interval time.Duration) *AutoClosePoller {
	if interval <= 0 {
		interval = DefaultAutoClosePollEvery
	}
	return &AutoClosePoller{
		controller: controller,
		interval:   interval,
	}
}

// Start launches the poll loop. It runs until ctx is cancelled or Stop is called.
func (p *AutoClosePoller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)

	go p.loop(ctx)

	log.Info().Dur("interval", p.interval).Msg("Auto-close poller started")
}

// Stop cancels the poll loop and waits for it to exit.
func (p *AutoClosePoller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.mu.Unlock()

	cancel()
	p.wg.Wait()

	p.mu.Lock()
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	log.Info().Msg("Auto-close poller stopped")
}

// IsRunning reports whether the loop is active.
func (p *AutoClosePoller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *AutoClosePoller) loop(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.controller.CheckAutoClose(ctx)
		}
	}
}
