// Package events is an in-process publish/subscribe layer with typed topics.
// Views use it to tell each other that shared backend data changed and
// should be fetched again.
package events

import (
	"sync"
	"time"
)

// subscriberBuffer is the per-subscriber queue depth. Publishes to a full
// queue are dropped for that subscriber.
const subscriberBuffer = 8

// Topic fans out values of type T to every live subscriber.
type Topic[T any] struct {
	name string
	mu   sync.Mutex
	subs map[int]chan T
	next int
}

// NewTopic creates a topic. The name is only used for logging.
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name, subs: make(map[int]chan T)}
}

// Name returns the topic name.
func (t *Topic[T]) Name() string { return t.name }

// Subscribe registers a new subscriber. The returned cancel func closes the
// channel and is safe to call more than once.
func (t *Topic[T]) Subscribe() (<-chan T, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	ch := make(chan T, subscriberBuffer)
	t.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			close(ch)
		})
	}
}

// Publish delivers v to every subscriber without blocking. It returns the
// number of subscribers that received the value.
func (t *Topic[T]) Publish(v T) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	delivered := 0
	for _, ch := range t.subs {
		select {
		case ch <- v:
			delivered++
		default:
		}
	}
	return delivered
}

// Subscribers returns the number of live subscribers.
func (t *Topic[T]) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// LibraryConfigsChanged is published after library configurations were
// edited, imported or synced.
type LibraryConfigsChanged struct {
	LibraryIDs []int // empty means "any"
	At         time.Time
}

// TeachersChanged is published after the teacher list changed on the backend.
type TeachersChanged struct {
	Created int
	Updated int
	At      time.Time
}

// Bus groups the topics shared by the dashboard views.
type Bus struct {
	LibraryConfigs *Topic[LibraryConfigsChanged]
	Teachers       *Topic[TeachersChanged]
}

// NewBus creates a bus with all topics.
func NewBus() *Bus {
	return &Bus{
		LibraryConfigs: NewTopic[LibraryConfigsChanged]("library-configs:updated"),
		Teachers:       NewTopic[TeachersChanged]("teachers:updated"),
	}
}
