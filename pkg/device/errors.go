package device

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected indicates the link to the dispenser is not open
	ErrNotConnected = errors.New("dispenser not connected")

	// ErrCommandRejected indicates the dispenser answered with a negative acknowledgement
	ErrCommandRejected = errors.New("command rejected by dispenser")

	// ErrCommandTimeout indicates no conclusive acknowledgement arrived in time
	ErrCommandTimeout = errors.New("timed out waiting for acknowledgement")

	// ErrAlreadyOpen indicates an open was requested while the dispenser is open
	ErrAlreadyOpen = errors.New("dispenser already open")

	// ErrAlreadyClosed indicates a close was requested while the dispenser is closed
	ErrAlreadyClosed = errors.New("dispenser already closed")

	// ErrInvalidCompartment indicates a compartment number below 1
	ErrInvalidCompartment = errors.New("invalid compartment")

	// ErrInvalidAction indicates an action other than open or close
	ErrInvalidAction = errors.New("invalid action")
)

// ConnectionError reports a link that could not be opened.
type ConnectionError struct {
	Port string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to dispenser on %s: %v", e.Port, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
