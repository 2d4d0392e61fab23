package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedLink_TracksState(t *testing.T) {
	s := NewSimulatedLink()
	ctx := context.Background()

	assert.False(t, s.IsConnected())
	require.NoError(t, s.Connect(ctx))
	assert.True(t, s.IsConnected())
	assert.True(t, s.Simulated())

	require.NoError(t, s.SendCommand(ctx, Command{Compartment: 2, Action: ActionOpen}))
	assert.True(t, s.IsOpen())
	require.NoError(t, s.SendCommand(ctx, Command{Compartment: 2, Action: ActionClose}))
	assert.False(t, s.IsOpen())

	assert.ErrorIs(t, s.SendCommand(ctx, Command{Compartment: 0, Action: ActionOpen}), ErrInvalidCompartment)
	assert.Len(t, s.Sent(), 2)

	require.NoError(t, s.Disconnect())
	assert.False(t, s.IsConnected())
}

// The simulated and scripted-physical dispensers must be indistinguishable
// through the Controller interface.
func TestSimulatedDispenser_MatchesPhysicalBehaviour(t *testing.T) {
	sim := NewSimulatedLink()
	require.NoError(t, sim.Connect(context.Background()))

	links := map[string]Link{
		"simulated": sim,
		"physical":  &scriptedLink{connected: true},
	}

	for name, link := range links {
		t.Run(name, func(t *testing.T) {
			d, clock := newTestDispenser(link)
			var c Controller = d
			ctx := context.Background()

			assert.True(t, c.Close(ctx, 1).AlreadyClosed)
			assert.True(t, c.Open(ctx, 1, true).Succeeded)
			assert.True(t, c.Open(ctx, 1, true).AlreadyOpen)
			assert.True(t, c.Status().IsOpen)

			clock.Advance(30 * time.Second)
			assert.False(t, c.CheckAutoClose(ctx))

			clock.Advance(31 * time.Second)
			assert.True(t, c.CheckAutoClose(ctx))
			assert.False(t, c.Status().IsOpen)
			assert.False(t, c.Status().AutoCloseArmed)
		})
	}
}
