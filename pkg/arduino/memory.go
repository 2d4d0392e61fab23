package arduino

import (
	"bytes"
	"errors"
	"sync"
	"time"
)

var errLinkClosed = errors.New("link closed")

// Responder produces the reply chunks for one line written to a MemoryLink.
// Returning nil keeps the link silent.
type Responder func(line []byte) [][]byte

// Reply answers every line with the given chunks, in order.
func Reply(chunks ...string) Responder {
	return func([]byte) [][]byte {
		out := make([][]byte, len(chunks))
		for i, c := range chunks {
			out[i] = []byte(c)
		}
		return out
	}
}

// Silent never answers.
func Silent() Responder {
	return func([]byte) [][]byte { return nil }
}

// MemoryLink is an in-memory Transport standing in for the serial port. It
// records what is written and feeds back whatever the Responder produces.
type MemoryLink struct {
	mu          sync.Mutex
	responder   Responder
	inbox       bytes.Buffer
	written     bytes.Buffer
	partial     []byte
	lines       [][]byte
	readTimeout time.Duration
	closed      bool

	// ReplyDelay postpones delivery of replies
	ReplyDelay time.Duration
	// ReadError is returned by the next Read call if set
	ReadError error
	// WriteError is returned by the next Write call if set
	WriteError error

	notify chan struct{}
	done   chan struct{}
}

// NewMemoryLink creates an open MemoryLink. A nil responder behaves like Silent.
func NewMemoryLink(responder Responder) *MemoryLink {
	if responder == nil {
		responder = Silent()
	}
	return &MemoryLink{
		responder:   responder,
		readTimeout: 10 * time.Millisecond,
		notify:      make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// Opener returns an Opener that always hands out this link.
func (m *MemoryLink) Opener() Opener {
	return func(string, int) (Transport, error) {
		return m, nil
	}
}

// SetResponder swaps the reply behaviour.
func (m *MemoryLink) SetResponder(r Responder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r == nil {
		r = Silent()
	}
	m.responder = r
}

func (m *MemoryLink) Read(p []byte) (int, error) {
	for {
		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return 0, errLinkClosed
		}
		if m.ReadError != nil {
			err := m.ReadError
			m.ReadError = nil
			m.mu.Unlock()
			return 0, err
		}
		if m.inbox.Len() > 0 {
			n, err := m.inbox.Read(p)
			m.mu.Unlock()
			return n, err
		}
		timeout := m.readTimeout
		m.mu.Unlock()

		if !m.wait(timeout) {
			return 0, nil
		}
	}
}

// wait blocks until data may be available or the link closes. It returns
// false once timeout elapses; a non-positive timeout waits indefinitely.
func (m *MemoryLink) wait(timeout time.Duration) bool {
	if timeout <= 0 {
		select {
		case <-m.notify:
		case <-m.done:
		}
		return true
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-m.notify:
		return true
	case <-m.done:
		return true
	case <-timer.C:
		return false
	}
}

func (m *MemoryLink) Write(p []byte) (int, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, errLinkClosed
	}
	if m.WriteError != nil {
		err := m.WriteError
		m.WriteError = nil
		m.mu.Unlock()
		return 0, err
	}

	m.written.Write(p)
	m.partial = append(m.partial, p...)

	var replies [][]byte
	for {
		idx := bytes.IndexByte(m.partial, '\n')
		if idx < 0 {
			break
		}
		line := append([]byte(nil), m.partial[:idx]...)
		m.partial = m.partial[idx+1:]
		m.lines = append(m.lines, line)
		replies = append(replies, m.responder(line)...)
	}
	delay := m.ReplyDelay
	m.mu.Unlock()

	if len(replies) > 0 {
		if delay > 0 {
			time.AfterFunc(delay, func() { m.feedAll(replies) })
		} else {
			m.feedAll(replies)
		}
	}

	return len(p), nil
}

// Feed queues data for subsequent reads, as if the board had sent it.
func (m *MemoryLink) Feed(data []byte) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.inbox.Write(data)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

func (m *MemoryLink) feedAll(chunks [][]byte) {
	for _, c := range chunks {
		m.Feed(c)
	}
}

func (m *MemoryLink) SetReadTimeout(timeout time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readTimeout = timeout
	return nil
}

// ResetInputBuffer discards queued replies. Replies still waiting on
// ReplyDelay are delivered later.
func (m *MemoryLink) ResetInputBuffer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox.Reset()
	return nil
}

func (m *MemoryLink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.done)
	}
	return nil
}

// Closed reports whether Close was called.
func (m *MemoryLink) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Lines returns every complete line written so far, without terminators.
func (m *MemoryLink) Lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.lines))
	for i, l := range m.lines {
		out[i] = string(l)
	}
	return out
}

// Written returns all raw bytes written so far.
func (m *MemoryLink) Written() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.written.Bytes()...)
}
