// Package flash holds the transient notifications shown after an action.
package flash

import "sync"

// Category mirrors the categories the server flashes with.
type Category string

const (
	Success     Category = "success"
	Error       Category = "error"
	Warning     Category = "warning"
	Information Category = "information"
)

// Message is a single flashed notification.
type Message struct {
	Category Category
	Text     string
}

// Bus collects flashed messages and fans them out to subscribers.
type Bus struct {
	mu          sync.Mutex
	messages    []Message
	subscribers []func(Message)
}

func NewBus() *Bus {
	return &Bus{}
}

// Flash appends a message. Empty text is ignored.
func (b *Bus) Flash(category Category, text string) {
	if text == "" {
		return
	}
	msg := Message{Category: category, Text: text}

	b.mu.Lock()
	b.messages = append(b.messages, msg)
	subscribers := make([]func(Message), len(b.subscribers))
	copy(subscribers, b.subscribers)
	b.mu.Unlock()

	for _, fn := range subscribers {
		fn(msg)
	}
}

// Clear removes every message currently shown.
func (b *Bus) Clear() {
	b.mu.Lock()
	b.messages = nil
	b.mu.Unlock()
}

// Dismiss removes the message at index i, if present.
func (b *Bus) Dismiss(i int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if i < 0 || i >= len(b.messages) {
		return
	}
	b.messages = append(b.messages[:i], b.messages[i+1:]...)
}

// Messages returns a copy of the messages currently shown.
func (b *Bus) Messages() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Subscribe registers fn to be called for every flashed message.
func (b *Bus) Subscribe(fn func(Message)) {
	b.mu.Lock()
	b.subscribers = append(b.subscribers, fn)
	b.mu.Unlock()
}
