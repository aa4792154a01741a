package cache

import (
	"strings"
	"sync"
	"time"
)

const defaultBufferSize = 100

// Store is an in-memory query cache keyed by hierarchical string keys
// ("tasks", "tasks/42", "revenue/summary"). Screens read through it; the
// dispatcher marks entries stale so dependent screens refetch.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	subscribers      map[uint64]chan string
	nextSubscriberID uint64

	done      chan struct{}
	closeOnce sync.Once
}

type entry struct {
	value     any
	stale     bool
	fetchedAt time.Time
}

func NewStore() *Store {
	return &Store{
		entries:     make(map[string]*entry),
		subscribers: make(map[uint64]chan string),
		done:        make(chan struct{}),
	}
}

// Set stores a freshly fetched value under key.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = &entry{value: value, fetchedAt: time.Now().UTC()}
}

// Get returns the cached value and whether it is present and fresh. A stale
// entry reports ok=false so the caller refetches, but the value is still
// returned for stale-while-revalidate rendering.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}

	return e.value, !e.stale
}

// InvalidatePrefix marks every entry whose key equals prefix or starts with
// prefix+"/" as stale and notifies subscribers once per prefix. It returns
// the number of entries touched. Invalidating a prefix with no cached entries
// is not an error; subscribers are still notified so screens without a cached
// value yet can schedule a fetch.
func (s *Store) InvalidatePrefix(prefix string) int {
	s.mu.Lock()

	touched := 0
	for key, e := range s.entries {
		if key == prefix || strings.HasPrefix(key, prefix+"/") {
			if !e.stale {
				e.stale = true
				touched++
			}
		}
	}

	subs := make([]chan string, 0, len(s.subscribers))
	for _, ch := range s.subscribers {
		subs = append(subs, ch)
	}
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- prefix:
		default:
			// Drop instead of blocking the dispatcher on slow subscribers.
		}
	}

	return touched
}

// Subscribe returns a channel of invalidated prefixes and an unsubscribe
// func. The channel is closed on unsubscribe or store close.
func (s *Store) Subscribe(buffer int) (<-chan string, func()) {
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	ch := make(chan string, buffer)

	s.mu.Lock()
	select {
	case <-s.done:
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}

	id := s.nextSubscriberID
	s.nextSubscriberID++
	s.subscribers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			s.mu.Lock()
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
			s.mu.Unlock()
		})
	}

	return ch, unsubscribe
}

// Close releases all subscribers. Further invalidations are silent no-ops
// for notification purposes.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		for id, ch := range s.subscribers {
			close(ch)
			delete(s.subscribers, id)
		}
		s.mu.Unlock()
	})
}
