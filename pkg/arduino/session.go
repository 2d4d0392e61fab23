package arduino

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urmzd/pillbox/pkg/device"
)

// Default session timings
const (
	DefaultInitDelay  = 2 * time.Second
	DefaultAckTimeout = 5 * time.Second
)

// Config describes how a Session reaches the dispenser.
type Config struct {
	// Port is the serial device path; empty selects DefaultPortPath
	Port     string
	BaudRate int
	// ReadTimeout bounds a single read while waiting for an acknowledgement
	ReadTimeout time.Duration
	// InitDelay is slept after opening the port while the board resets
	InitDelay time.Duration
	// AckTimeout is the total wait for an acknowledgement
	AckTimeout time.Duration
	// Opener opens the transport; nil uses OpenSerial
	Opener Opener
}

// DefaultConfig returns the settings used by the dispenser board firmware.
func DefaultConfig() Config {
	return Config{
		Port:        DefaultPortPath(),
		BaudRate:    DefaultBaudRate,
		ReadTimeout: DefaultReadTimeout,
		InitDelay:   DefaultInitDelay,
		AckTimeout:  DefaultAckTimeout,
		Opener:      OpenSerial,
	}
}

// Session owns one Transport and performs command/acknowledgement exchanges
// over it, one at a time. It implements device.Link.
type Session struct {
	cfg Config

	// mu serializes transport use; a second writer would corrupt the stream
	mu        sync.Mutex
	transport Transport

	stateMu   sync.RWMutex
	open      bool
	connected bool
}

// NewSession creates a disconnected Session.
func NewSession(cfg Config) *Session {
	if cfg.Port == "" {
		cfg.Port = DefaultPortPath()
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = DefaultAckTimeout
	}
	if cfg.InitDelay < 0 {
		cfg.InitDelay = 0
	}
	if cfg.Opener == nil {
		cfg.Opener = OpenSerial
	}
	return &Session{cfg: cfg}
}

// Port returns the serial device path in use.
func (s *Session) Port() string {
	return s.cfg.Port
}

// Connect opens the transport and waits InitDelay for the board to boot.
// Failures are reported as *device.ConnectionError.
func (s *Session) Connect(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport != nil {
		return nil
	}

	log.Info().Str("port", s.cfg.Port).Int("baud", s.cfg.BaudRate).Msg("Connecting to dispenser")

	t, err := s.cfg.Opener(s.cfg.Port, s.cfg.BaudRate)
	if err != nil {
		return &device.ConnectionError{Port: s.cfg.Port, Err: err}
	}

	if err := t.SetReadTimeout(s.cfg.ReadTimeout); err != nil {
		_ = t.Close()
		return &device.ConnectionError{Port: s.cfg.Port, Err: fmt.Errorf("set read timeout: %w", err)}
	}

	if s.cfg.InitDelay > 0 {
		time.Sleep(s.cfg.InitDelay)
	}

	s.transport = t
	s.setConnected(true)

	log.Info().Str("port", s.cfg.Port).Msg("Dispenser connected")
	return nil
}

// Disconnect releases the transport. It is safe to call when not connected.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport == nil {
		return nil
	}

	err := s.transport.Close()
	s.transport = nil
	s.setConnected(false)

	if err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	log.Info().Str("port", s.cfg.Port).Msg("Dispenser disconnected")
	return nil
}

// SendCommand writes cmd and waits up to AckTimeout for an acknowledgement.
// Only a positive acknowledgement changes the observed open/closed state.
// The wait is not interrupted by ctx once the command is on the wire.
func (s *Session) SendCommand(ctx context.Context, cmd device.Command) error {
	line, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport == nil {
		return device.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// A reply that missed an earlier ack window must not answer this command.
	if err := s.transport.ResetInputBuffer(); err != nil {
		return fmt.Errorf("reset input buffer: %w", err)
	}

	log.Debug().Bytes("line", bytes.TrimSpace(line)).Msg("Dispenser TX")

	if _, err := s.transport.Write(line); err != nil {
		return fmt.Errorf("write command: %w", err)
	}

	reply, result, err := s.awaitAck()
	if err != nil {
		return err
	}

	switch result {
	case AckPositive:
		s.setOpen(cmd.Action == device.ActionOpen)
		log.Debug().Str("command", cmd.String()).Msg("Dispenser acknowledged")
		return nil
	case AckNegative:
		return fmt.Errorf("%w: %q", device.ErrCommandRejected, reply)
	default:
		return fmt.Errorf("%w after %s", device.ErrCommandTimeout, s.cfg.AckTimeout)
	}
}

// awaitAck accumulates reply bytes until DecodeAck is conclusive or the
// acknowledgement window closes. Callers hold s.mu.
func (s *Session) awaitAck() (string, AckResult, error) {
	deadline := time.Now().Add(s.cfg.AckTimeout)
	var buf []byte
	chunk := make([]byte, defaultReadChunkSize)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return string(bytes.TrimSpace(buf)), AckIndeterminate, nil
		}

		if err := s.transport.SetReadTimeout(min(s.cfg.ReadTimeout, remaining)); err != nil {
			return "", AckIndeterminate, fmt.Errorf("set read timeout: %w", err)
		}

		n, err := s.transport.Read(chunk)
		if err != nil {
			return "", AckIndeterminate, fmt.Errorf("read acknowledgement: %w", err)
		}
		if n == 0 {
			continue
		}

		buf = append(buf, chunk[:n]...)
		if result := DecodeAck(buf); result != AckIndeterminate {
			log.Debug().Bytes("reply", bytes.TrimSpace(buf)).Stringer("ack", result).Msg("Dispenser RX")
			return string(bytes.TrimSpace(buf)), result, nil
		}
	}
}

func (s *Session) IsOpen() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.open
}

func (s *Session) IsConnected() bool {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.connected
}

func (s *Session) Simulated() bool { return false }

func (s *Session) setOpen(open bool) {
	s.stateMu.Lock()
	s.open = open
	s.stateMu.Unlock()
}

func (s *Session) setConnected(connected bool) {
	s.stateMu.Lock()
	s.connected = connected
	s.stateMu.Unlock()
}
