package device

import (
	"fmt"
	"strings"
	"time"
)

// Action is the movement requested from a compartment motor.
type Action string

// Wire tokens understood by the dispenser firmware
const (
	ActionOpen  Action = "open"
	ActionClose Action = "close"
)

// ParseAction converts a user supplied action name into an Action.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionOpen:
		return ActionOpen, nil
	case ActionClose:
		return ActionClose, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAction, s)
	}
}

// Valid reports whether a is one of the two known actions.
func (a Action) Valid() bool {
	return a == ActionOpen || a == ActionClose
}

// Command addresses one compartment with one action. It lives for a single exchange.
type Command struct {
	Compartment int
	Action      Action
}

// Validate checks the compartment number and action.
func (c Command) Validate() error {
	if c.Compartment < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidCompartment, c.Compartment)
	}
	if !c.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, string(c.Action))
	}
	return nil
}

func (c Command) String() string {
	return fmt.Sprintf("%s compartment %d", c.Action, c.Compartment)
}

// OpenResult is the outcome of Controller.Open.
type OpenResult struct {
	Succeeded   bool
	AlreadyOpen bool
	// Err carries the failure cause for logging; nil on success.
	Err error
}

// CloseResult is the outcome of Controller.Close.
type CloseResult struct {
	Succeeded     bool
	AlreadyClosed bool
	Err           error
}

// Status is a snapshot of the dispenser as seen by the controller.
type Status struct {
	IsOpen         bool      `json:"is_open"`
	AutoCloseArmed bool      `json:"auto_close_armed"`
	AutoCloseAt    time.Time `json:"auto_close_at,omitempty"`
	Connected      bool      `json:"connected"`
	Simulated      bool      `json:"simulated"`
}

// Defaults shared by the physical and simulated dispensers
const (
	DefaultAutoCloseDelay     = 60 * time.Second
	DefaultCompartment        = 1
	DefaultAutoClosePollEvery = 5 * time.Second
)
