package device

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// SimulatedLink is a Link with no hardware behind it. Every command succeeds
// and flips the open/closed flag exactly as an acknowledged command would.
// It is used when no dispenser is attached and in tests.
type SimulatedLink struct {
	mu        sync.RWMutex
	open      bool
	connected bool
	sent      []Command
}

// NewSimulatedLink creates a closed, disconnected SimulatedLink.
func NewSimulatedLink() *SimulatedLink {
	return &SimulatedLink{}
}

func (s *SimulatedLink) Connect(_ context.Context) error {
	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	log.Info().Msg("SIMULATION: dispenser connected")
	return nil
}

func (s *SimulatedLink) Disconnect() error {
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	log.Info().Msg("SIMULATION: dispenser disconnected")
	return nil
}

func (s *SimulatedLink) SendCommand(_ context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.open = cmd.Action == ActionOpen
	s.sent = append(s.sent, cmd)
	s.mu.Unlock()

	log.Info().Int("compartment", cmd.Compartment).Str("action", string(cmd.Action)).Msg("SIMULATION: motor moved")
	return nil
}

func (s *SimulatedLink) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

func (s *SimulatedLink) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *SimulatedLink) Simulated() bool { return true }

// Sent returns a copy of every command accepted so far.
func (s *SimulatedLink) Sent() []Command {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Command, len(s.sent))
	copy(out, s.sent)
	return out
}
