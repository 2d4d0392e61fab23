package device

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultSubscriberBuffer is the channel depth handed out by Subscribe.
const DefaultSubscriberBuffer = 16

// Event types published by a Dispenser
const (
	EventOpened        = "opened"
	EventClosed        = "closed"
	EventAutoClosed    = "auto_closed"
	EventCommandFailed = "command_failed"
)

// Event sources
const (
	SourceOperator  = "operator"
	SourceAutoClose = "auto_close"
)

// Event records the outcome of one command sent to the dispenser.
type Event struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Compartment int       `json:"compartment"`
	Action      Action    `json:"action"`
	Source      string    `json:"source"`
	Scheduled   bool      `json:"scheduled,omitempty"`
	Simulated   bool      `json:"simulated"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEvent builds an Event with a fresh ID.
func NewEvent(eventType string, cmd Command, source string, at time.Time) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		Compartment: cmd.Compartment,
		Action:      cmd.Action,
		Source:      source,
		Timestamp:   at,
	}
}

// Broadcaster fans events out to subscribers. Slow subscribers miss events
// rather than block the publisher.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers []chan Event
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Publish sends evt to every subscriber that has room for it.
func (b *Broadcaster) Publish(evt Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			log.Warn().Str("event_id", evt.ID).Str("event", evt.Type).Msg("Subscriber full, event dropped")
		}
	}
}

func (b *Broadcaster) Subscribe() chan Event {
	return b.SubscribeBuffered(DefaultSubscriberBuffer)
}

// SubscribeBuffered subscribes with a channel of the given depth, for
// consumers that must not miss events under bursts.
func (b *Broadcaster) SubscribeBuffered(size int) chan Event {
	if size < 1 {
		size = DefaultSubscriberBuffer
	}
	ch := make(chan Event, size)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// CloseAll closes every subscriber channel.
func (b *Broadcaster) CloseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
}
