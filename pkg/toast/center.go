package toast

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultBufferSize = 50

// Level classifies one-shot toast styling.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Toast is one transient, auto-dismissing notification. It carries no
// decision and is never deduplicated beyond its own lifetime.
type Toast struct {
	ID    string    `json:"id"`
	Level Level     `json:"level"`
	Title string    `json:"title"`
	Body  string    `json:"body,omitempty"`
	At    time.Time `json:"at"`
}

// Center fans one-shot toasts out to UI subscribers.
type Center struct {
	mu               sync.Mutex
	subscribers      map[uint64]chan Toast
	nextSubscriberID uint64
	closed           bool
}

func NewCenter() *Center {
	return &Center{subscribers: make(map[uint64]chan Toast)}
}

// Push publishes a toast to every subscriber and returns it.
func (c *Center) Push(level Level, title string, body string) Toast {
	t := Toast{
		ID:    uuid.NewString(),
		Level: level,
		Title: title,
		Body:  body,
		At:    time.Now().UTC(),
	}

	c.mu.Lock()
	subs := make([]chan Toast, 0, len(c.subscribers))
	for _, ch := range c.subscribers {
		subs = append(subs, ch)
	}
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- t:
		default:
			// Drop instead of blocking the publisher on slow subscribers.
		}
	}

	return t
}

// Subscribe returns a toast stream and its unsubscribe func.
func (c *Center) Subscribe(buffer int) (<-chan Toast, func()) {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	ch := make(chan Toast, buffer)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}

	id := c.nextSubscriberID
	c.nextSubscriberID++
	c.subscribers[id] = ch
	c.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			c.mu.Lock()
			if sub, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(sub)
			}
			c.mu.Unlock()
		})
	}

	return ch, unsubscribe
}

// Close releases all subscribers.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	for id, ch := range c.subscribers {
		close(ch)
		delete(c.subscribers, id)
	}
}
