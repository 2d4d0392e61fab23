package device

import "context"

// Controller is the entry point used by the API and MCP layers to drive the
// dispenser. The physical and simulated dispensers both satisfy it and are
// interchangeable from a caller's point of view.
type Controller interface {
	// Open opens a compartment. A scheduled open arms the auto-close timer.
	Open(ctx context.Context, compartment int, scheduled bool) OpenResult

	// Close closes a compartment and disarms any pending auto-close.
	Close(ctx context.Context, compartment int) CloseResult

	// Status returns the current open/closed state without touching the link
	Status() Status

	// CheckAutoClose closes the dispenser if an armed deadline has passed.
	// It reports whether a close was issued and acknowledged.
	CheckAutoClose(ctx context.Context) bool

	// IsConnected returns true if a physical link is up
	IsConnected() bool

	// Shutdown releases the link
	Shutdown()
}

// Link is the capability a Dispenser drives: a physical serial session or a
// simulation with no I/O. Implementations own the observed open/closed flag
// and only change it after a positively acknowledged command.
type Link interface {
	Connect(ctx context.Context) error
	Disconnect() error
	SendCommand(ctx context.Context, cmd Command) error
	IsOpen() bool
	IsConnected() bool
	Simulated() bool
}

// EventSubscriber defines the interface for subscribing to dispenser events
type EventSubscriber interface {
	// Subscribe returns a channel that receives dispenser events
	Subscribe() chan Event

	// Unsubscribe removes a subscription
	Unsubscribe(ch chan Event)
}
