package device

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Options tunes a Dispenser.
type Options struct {
	// AutoCloseDelay is how long a scheduled open stays open
	AutoCloseDelay time.Duration
	// DefaultCompartment is the compartment closed by the auto-close poll
	DefaultCompartment int
	Clock              Clock
}

func (o Options) withDefaults() Options {
	if o.AutoCloseDelay <= 0 {
		o.AutoCloseDelay = DefaultAutoCloseDelay
	}
	if o.DefaultCompartment < 1 {
		o.DefaultCompartment = DefaultCompartment
	}
	if o.Clock == nil {
		o.Clock = SystemClock()
	}
	return o
}

// Dispenser implements Controller on top of a Link and an AutoCloseTimer.
// A single mutex serializes operator commands and the auto-close poll so that
// the check-then-send sequences never interleave.
type Dispenser struct {
	*Broadcaster

	link  Link
	timer *AutoCloseTimer
	opts  Options

	mu sync.Mutex

	// snapMu guards snap, the open flag and deadline as of the last
	// completed command. Status reads it so it never waits on an exchange.
	snapMu sync.RWMutex
	snap   Status
}

// NewDispenser wraps an already connected link.
func NewDispenser(link Link, opts Options) *Dispenser {
	opts = opts.withDefaults()
	d := &Dispenser{
		Broadcaster: NewBroadcaster(),
		link:        link,
		timer:       NewAutoCloseTimer(opts.Clock),
		opts:        opts,
	}
	d.refresh()
	return d
}

// ConnectOrSimulate connects link and wraps it in a Dispenser. When the link
// cannot be opened the dispenser runs against a SimulatedLink instead.
func ConnectOrSimulate(ctx context.Context, link Link, opts Options) *Dispenser {
	if link != nil {
		err := link.Connect(ctx)
		if err == nil {
			log.Info().Msg("Dispenser link connected")
			return NewDispenser(link, opts)
		}
		log.Warn().Err(err).Msg("Dispenser unavailable, using simulated dispenser")
	}

	sim := NewSimulatedLink()
	_ = sim.Connect(ctx)
	return NewDispenser(sim, opts)
}

func (d *Dispenser) Open(ctx context.Context, compartment int, scheduled bool) OpenResult {
	cmd := Command{Compartment: compartment, Action: ActionOpen}
	if err := cmd.Validate(); err != nil {
		return OpenResult{Err: err}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.refresh()

	if d.link.IsOpen() {
		return OpenResult{AlreadyOpen: true, Err: ErrAlreadyOpen}
	}

	if err := d.link.SendCommand(ctx, cmd); err != nil {
		d.publishFailure(cmd, SourceOperator, err)
		return OpenResult{Err: err}
	}

	evt := NewEvent(EventOpened, cmd, SourceOperator, d.opts.Clock.Now())
	evt.Scheduled = scheduled
	if scheduled {
		deadline := d.timer.Arm(d.opts.AutoCloseDelay)
		log.Info().Int("compartment", compartment).Time("deadline", deadline).Msg("Auto-close armed")
	} else {
		d.timer.Disarm()
	}
	d.publish(evt)

	return OpenResult{Succeeded: true}
}

func (d *Dispenser) Close(ctx context.Context, compartment int) CloseResult {
	cmd := Command{Compartment: compartment, Action: ActionClose}
	if err := cmd.Validate(); err != nil {
		return CloseResult{Err: err}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.refresh()

	if !d.link.IsOpen() {
		return CloseResult{AlreadyClosed: true, Err: ErrAlreadyClosed}
	}

	if err := d.link.SendCommand(ctx, cmd); err != nil {
		d.publishFailure(cmd, SourceOperator, err)
		return CloseResult{Err: err}
	}

	d.timer.Disarm()
	d.publish(NewEvent(EventClosed, cmd, SourceOperator, d.opts.Clock.Now()))

	return CloseResult{Succeeded: true}
}

func (d *Dispenser) CheckAutoClose(ctx context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	defer d.refresh()

	cmd := Command{Compartment: d.opts.DefaultCompartment, Action: ActionClose}
	closed, err := d.timer.PollAndMaybeClose(ctx, d.link, cmd.Compartment)
	if err != nil {
		d.publishFailure(cmd, SourceAutoClose, err)
		return false
	}
	if closed {
		log.Info().Int("compartment", cmd.Compartment).Msg("Dispenser closed automatically")
		d.publish(NewEvent(EventAutoClosed, cmd, SourceAutoClose, d.opts.Clock.Now()))
	}
	return closed
}

// Status reports the state after the last completed command. The open flag
// and the auto-close deadline always come from the same moment.
func (d *Dispenser) Status() Status {
	d.snapMu.RLock()
	st := d.snap
	d.snapMu.RUnlock()

	st.Connected = d.link.IsConnected()
	st.Simulated = d.link.Simulated()
	return st
}

// refresh captures link and timer state. Callers hold d.mu or, in
// NewDispenser, sole ownership of d.
func (d *Dispenser) refresh() {
	deadline, armed := d.timer.Deadline()
	open := d.link.IsOpen()

	d.snapMu.Lock()
	d.snap = Status{IsOpen: open, AutoCloseArmed: armed, AutoCloseAt: deadline}
	d.snapMu.Unlock()
}

func (d *Dispenser) IsConnected() bool {
	return d.link.IsConnected()
}

func (d *Dispenser) Shutdown() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.link.Disconnect(); err != nil {
		log.Warn().Err(err).Msg("Failed to disconnect dispenser")
	}
	d.CloseAll()
}

func (d *Dispenser) publish(evt Event) {
	evt.Simulated = d.link.Simulated()
	d.Publish(evt)
}

func (d *Dispenser) publishFailure(cmd Command, source string, err error) {
	log.Warn().Err(err).Str("command", cmd.String()).Str("source", source).Msg("Dispenser command failed")

	evt := NewEvent(EventCommandFailed, cmd, source, d.opts.Clock.Now())
	evt.Error = err.Error()
	d.publish(evt)
}
