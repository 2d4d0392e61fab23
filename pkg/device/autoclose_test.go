package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoCloseTimer_ArmDefaultDelay(t *testing.T) {
	clock := NewManualClock(testStart)
	timer := NewAutoCloseTimer(clock)

	deadline := timer.Arm(0)
	assert.Equal(t, testStart.Add(DefaultAutoCloseDelay), deadline)

	got, armed := timer.Deadline()
	assert.True(t, armed)
	assert.Equal(t, deadline, got)
}

func TestAutoCloseTimer_ArmOverwrites(t *testing.T) {
	clock := NewManualClock(testStart)
	timer := NewAutoCloseTimer(clock)

	timer.Arm(time.Minute)
	clock.Advance(20 * time.Second)
	timer.Arm(10 * time.Second)

	got, armed := timer.Deadline()
	require.True(t, armed)
	assert.Equal(t, testStart.Add(30*time.Second), got)
}

func TestAutoCloseTimer_Due(t *testing.T) {
	clock := NewManualClock(testStart)
	timer := NewAutoCloseTimer(clock)
	assert.False(t, timer.Due())

	timer.Arm(time.Minute)
	clock.Advance(59 * time.Second)
	assert.False(t, timer.Due())

	clock.Advance(time.Second)
	assert.True(t, timer.Due(), "deadline itself counts as elapsed")

	timer.Disarm()
	assert.False(t, timer.Due())
	_, armed := timer.Deadline()
	assert.False(t, armed)
}

func TestAutoCloseTimer_PollNoopWhenClosed(t *testing.T) {
	clock := NewManualClock(testStart)
	timer := NewAutoCloseTimer(clock)
	link := &scriptedLink{connected: true}

	timer.Arm(time.Second)
	clock.Advance(time.Minute)

	closed, err := timer.PollAndMaybeClose(context.Background(), link, 1)
	assert.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, 0, link.sentCount())
}

func TestAutoCloseTimer_PollNoopWhenDisarmed(t *testing.T) {
	timer := NewAutoCloseTimer(NewManualClock(testStart))
	link := &scriptedLink{connected: true, open: true}

	closed, err := timer.PollAndMaybeClose(context.Background(), link, 1)
	assert.NoError(t, err)
	assert.False(t, closed)
	assert.Equal(t, 0, link.sentCount())
}

func TestAutoCloseTimer_PollFailureKeepsDeadline(t *testing.T) {
	clock := NewManualClock(testStart)
	timer := NewAutoCloseTimer(clock)
	link := &scriptedLink{connected: true, open: true}
	link.fail(ErrCommandTimeout)

	timer.Arm(time.Second)
	clock.Advance(2 * time.Second)

	closed, err := timer.PollAndMaybeClose(context.Background(), link, 1)
	assert.ErrorIs(t, err, ErrCommandTimeout)
	assert.False(t, closed)
	_, armed := timer.Deadline()
	assert.True(t, armed)

	closed, err = timer.PollAndMaybeClose(context.Background(), link, 1)
	assert.NoError(t, err)
	assert.True(t, closed)
	_, armed = timer.Deadline()
	assert.False(t, armed)
	assert.False(t, link.IsOpen())
}
