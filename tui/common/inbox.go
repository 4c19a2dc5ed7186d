package common

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Inbox carries messages from callbacks running on other goroutines (realtime
// handlers, auth listeners) into the Bubble Tea loop. The model re-arms Next
// after every message it receives from the inbox.
type Inbox struct {
	ch   chan tea.Msg
	done chan struct{}
	once sync.Once
}

// NewInbox creates an inbox buffering up to size messages.
func NewInbox(size int) *Inbox {
	return &Inbox{
		ch:   make(chan tea.Msg, size),
		done: make(chan struct{}),
	}
}

// Post delivers msg, waiting while the buffer is full. It returns false once
// the inbox is closed.
func (b *Inbox) Post(msg tea.Msg) bool {
	select {
	case <-b.done:
		return false
	default:
	}
	select {
	case b.ch <- msg:
		return true
	case <-b.done:
		return false
	}
}

// Next returns a command that waits for the next message. After Close the
// command yields nil, which Bubble Tea ignores.
func (b *Inbox) Next() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.ch:
			return msg
		case <-b.done:
			return nil
		}
	}
}

// Close releases waiting senders and receivers. It is safe to call twice.
func (b *Inbox) Close() {
	b.once.Do(func() { close(b.done) })
}

// Closed reports whether Close was called.
func (b *Inbox) Closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}
