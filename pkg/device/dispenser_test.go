package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedLink acknowledges commands according to a queue of results.
// An empty queue acknowledges positively.
type scriptedLink struct {
	mu        sync.Mutex
	open      bool
	connected bool
	results   []error
	sent      []Command
}

func (l *scriptedLink) Connect(context.Context) error { l.connected = true; return nil }
func (l *scriptedLink) Disconnect() error             { l.connected = false; return nil }
func (l *scriptedLink) IsConnected() bool             { return l.connected }
func (l *scriptedLink) Simulated() bool               { return false }

func (l *scriptedLink) IsOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}

func (l *scriptedLink) SendCommand(_ context.Context, cmd Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sent = append(l.sent, cmd)
	if len(l.results) > 0 {
		err := l.results[0]
		l.results = l.results[1:]
		if err != nil {
			return err
		}
	}
	l.open = cmd.Action == ActionOpen
	return nil
}

func (l *scriptedLink) fail(errs ...error) {
	l.mu.Lock()
	l.results = append(l.results, errs...)
	l.mu.Unlock()
}

func (l *scriptedLink) sentCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.sent)
}

var testStart = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

func newTestDispenser(link Link) (*Dispenser, *ManualClock) {
	clock := NewManualClock(testStart)
	return NewDispenser(link, Options{Clock: clock}), clock
}

func TestDispenser_StatusTracksLastSuccessfulCommand(t *testing.T) {
	link := &scriptedLink{connected: true}
	d, _ := newTestDispenser(link)
	ctx := context.Background()

	steps := []struct {
		open     bool
		fail     error
		wantOpen bool
	}{
		{open: true, wantOpen: true},
		{open: false, wantOpen: false},
		{open: true, fail: ErrCommandTimeout, wantOpen: false},
		{open: true, wantOpen: true},
		{open: false, fail: ErrCommandRejected, wantOpen: true},
		{open: false, wantOpen: false},
	}

	for i, step := range steps {
		if step.fail != nil {
			link.fail(step.fail)
		}
		if step.open {
			d.Open(ctx, 1, false)
		} else {
			d.Close(ctx, 1)
		}
		assert.Equal(t, step.wantOpen, d.Status().IsOpen, "step %d", i)
	}
}

func TestDispenser_OpenWhileOpen(t *testing.T) {
	link := &scriptedLink{connected: true}
	d, _ := newTestDispenser(link)
	ctx := context.Background()

	require.True(t, d.Open(ctx, 1, false).Succeeded)

	res := d.Open(ctx, 3, true)
	assert.True(t, res.AlreadyOpen)
	assert.False(t, res.Succeeded)
	assert.ErrorIs(t, res.Err, ErrAlreadyOpen)
	assert.Equal(t, 1, link.sentCount())
	assert.False(t, d.Status().AutoCloseArmed)
}

func TestDispenser_CloseWhileClosed(t *testing.T) {
	link := &scriptedLink{connected: true}
	d, _ := newTestDispenser(link)

	res := d.Close(context.Background(), 1)
	assert.True(t, res.AlreadyClosed)
	assert.ErrorIs(t, res.Err, ErrAlreadyClosed)
	assert.Equal(t, 0, link.sentCount())
	assert.False(t, d.Status().IsOpen)
}

func TestDispenser_FailedOpenDoesNotArm(t *testing.T) {
	link := &scriptedLink{connected: true}
	d, _ := newTestDispenser(link)
	link.fail(ErrCommandRejected)

	res := d.Open(context.Background(), 1, true)
	assert.False(t, res.Succeeded)
	assert.False(t, res.AlreadyOpen)
	assert.ErrorIs(t, res.Err, ErrCommandRejected)

	status := d.Status()
	assert.False(t, status.IsOpen)
	assert.False(t, status.AutoCloseArmed)
}

func TestDispenser_InvalidCompartment(t *testing.T) {
	link := &scriptedLink{connected: true}
	d, _ := newTestDispenser(link)

	assert.ErrorIs(t, d.Open(context.Background(), 0, false).Err, ErrInvalidCompartment)
	assert.ErrorIs(t, d.Close(context.Background(), -2).Err, ErrInvalidCompartment)
	assert.Equal(t, 0, link.sentCount())
}

func TestDispenser_AutoCloseScenario(t *testing.T) {
	link := &scriptedLink{connected: true}
	d, clock := newTestDispenser(link)
	ctx := context.Background()

	require.True(t, d.Open(ctx, 1, true).Succeeded)
	status := d.Status()
	require.True(t, status.AutoCloseArmed)
	assert.Equal(t, testStart.Add(60*time.Second), status.AutoCloseAt)

	clock.Advance(30 * time.Second)
	assert.False(t, d.CheckAutoClose(ctx))
	assert.True(t, d.Status().IsOpen)

	clock.Advance(31 * time.Second)
	assert.True(t, d.CheckAutoClose(ctx))
	status = d.Status()
	assert.False(t, status.IsOpen)
	assert.False(t, status.AutoCloseArmed)

	link.mu.Lock()
	last := link.sent[len(link.sent)-1]
	link.mu.Unlock()
	assert.Equal(t, Command{Compartment: DefaultCompartment, Action: ActionClose}, last)
}

func TestDispenser_AutoCloseUsesConfiguredDelayAndCompartment(t *testing.T) {
	link := &scriptedLink{connected: true}
	clock := NewManualClock(testStart)
	d := NewDispenser(link, Options{Clock: clock, AutoCloseDelay: 10 * time.Second, DefaultCompartment: 4})
	ctx := context.Background()

	require.True(t, d.Open(ctx, 2, true).Succeeded)
	clock.Advance(10 * time.Second)
	require.True(t, d.CheckAutoClose(ctx))

	link.mu.Lock()
	defer link.mu.Unlock()
	assert.Equal(t, Command{Compartment: 4, Action: ActionClose}, link.sent[1])
}

func TestDispenser_UnscheduledOpenNeverAutoCloses(t *testing.T) {
	link := &scriptedLink{connected: true}
	d, clock := newTestDispenser(link)
	ctx := context.Background()

	require.True(t, d.Open(ctx, 1, false).Succeeded)
	clock.Advance(time.Hour)
	assert.False(t, d.CheckAutoClose(ctx))
	assert.True(t, d.Status().IsOpen)
}

func TestDispenser_ManualCloseDisarms(t *testing.T) {
	link := &scriptedLink{connected: true}
	d, clock := newTestDispenser(link)
	ctx := context.Background()

	require.True(t, d.Open(ctx, 1, true).Succeeded)
	require.True(t, d.Close(ctx, 1).Succeeded)
	assert.False(t, d.Status().AutoCloseArmed)

	clock.Advance(2 * time.Minute)
	assert.False(t, d.CheckAutoClose(ctx))
	assert.Equal(t, 2, link.sentCount())
}

func TestDispenser_FailedAutoCloseStaysArmed(t *testing.T) {
	link := &scriptedLink{connected: true}
	d, clock := newTestDispenser(link)
	ctx := context.Background()

	require.True(t, d.Open(ctx, 1, true).Succeeded)
	clock.Advance(61 * time.Second)

	link.fail(ErrCommandTimeout)
	assert.False(t, d.CheckAutoClose(ctx))
	status := d.Status()
	assert.True(t, status.IsOpen)
	assert.True(t, status.AutoCloseArmed)

	assert.True(t, d.CheckAutoClose(ctx))
	assert.False(t, d.Status().IsOpen)
}

func TestDispenser_PublishesEvents(t *testing.T) {
	link := &scriptedLink{connected: true}
	d, clock := newTestDispenser(link)
	ctx := context.Background()

	events := d.Subscribe()
	defer d.Unsubscribe(events)

	require.True(t, d.Open(ctx, 2, true).Succeeded)
	evt := <-events
	assert.Equal(t, EventOpened, evt.Type)
	assert.Equal(t, 2, evt.Compartment)
	assert.Equal(t, ActionOpen, evt.Action)
	assert.Equal(t, SourceOperator, evt.Source)
	assert.True(t, evt.Scheduled)
	assert.NotEmpty(t, evt.ID)

	clock.Advance(time.Minute)
	link.fail(ErrCommandRejected)
	d.CheckAutoClose(ctx)
	evt = <-events
	assert.Equal(t, EventCommandFailed, evt.Type)
	assert.Equal(t, SourceAutoClose, evt.Source)
	assert.Contains(t, evt.Error, "rejected")

	d.CheckAutoClose(ctx)
	evt = <-events
	assert.Equal(t, EventAutoClosed, evt.Type)
	assert.Equal(t, ActionClose, evt.Action)
}

func TestDispenser_ConcurrentCommandsStayConsistent(t *testing.T) {
	link := &scriptedLink{connected: true}
	d, _ := newTestDispenser(link)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	opened := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.Open(ctx, 1, true).Succeeded {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, link.sentCount())
}

type brokenLink struct{ SimulatedLink }

func (b *brokenLink) Connect(context.Context) error {
	return &ConnectionError{Port: "/dev/ttyACM0", Err: errors.New("no such file or directory")}
}

func (b *brokenLink) Simulated() bool { return false }

func TestConnectOrSimulate_FallsBack(t *testing.T) {
	d := ConnectOrSimulate(context.Background(), &brokenLink{}, Options{})
	defer d.Shutdown()

	status := d.Status()
	assert.True(t, status.Simulated)
	assert.True(t, status.Connected)
	assert.True(t, d.Open(context.Background(), 1, false).Succeeded)
}

func TestConnectOrSimulate_UsesHealthyLink(t *testing.T) {
	link := &scriptedLink{}
	d := ConnectOrSimulate(context.Background(), link, Options{})

	assert.False(t, d.Status().Simulated)
	assert.True(t, d.IsConnected())

	d.Shutdown()
	assert.False(t, d.IsConnected())
}

// gatedLink applies a command's state change, then holds the exchange open
// until released, like a board that acknowledged but has not returned yet.
type gatedLink struct {
	scriptedLink
	gate     bool
	applied  chan struct{}
	released chan struct{}
}

func (l *gatedLink) SendCommand(ctx context.Context, cmd Command) error {
	if err := l.scriptedLink.SendCommand(ctx, cmd); err != nil {
		return err
	}
	if l.gate {
		close(l.applied)
		<-l.released
	}
	return nil
}

func TestDispenser_StatusConsistentDuringClose(t *testing.T) {
	link := &gatedLink{
		scriptedLink: scriptedLink{connected: true},
		applied:      make(chan struct{}),
		released:     make(chan struct{}),
	}
	d, _ := newTestDispenser(link)
	ctx := context.Background()

	require.True(t, d.Open(ctx, 1, true).Succeeded)
	link.gate = true

	done := make(chan CloseResult)
	go func() { done <- d.Close(ctx, 1) }()
	<-link.applied

	// the link already reports closed but the deadline is still armed
	mid := d.Status()
	assert.True(t, mid.IsOpen)
	assert.True(t, mid.AutoCloseArmed)

	close(link.released)
	require.True(t, (<-done).Succeeded)

	after := d.Status()
	assert.False(t, after.IsOpen)
	assert.False(t, after.AutoCloseArmed)
}
