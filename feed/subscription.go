package feed

import (
	"sync"

	"feedlab/domain"
)

// Subscription is one live caller's view of the feed. Snapshots arrive
// on Snapshots() each time the underlying set changes, newest state
// last. The channel is closed on unsubscribe.
type Subscription struct {
	ch     chan []domain.Message
	mu     sync.Mutex
	closed bool
}

func newSubscription() *Subscription {
	// Capacity one: push replaces an undelivered stale snapshot, so a
	// slow consumer never stalls the writer and always converges to
	// the latest state.
	return &Subscription{ch: make(chan []domain.Message, 1)}
}

// Snapshots returns the delivery channel. Every value is a complete,
// consistently ordered copy of the feed.
func (s *Subscription) Snapshots() <-chan []domain.Message {
	return s.ch
}

// push delivers a snapshot without ever blocking. If the previous
// snapshot was not consumed yet it is dropped in favor of the new one.
func (s *Subscription) push(snapshot []domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.ch <- snapshot:
			return
		default:
			select {
			case <-s.ch: // discard the stale snapshot
			default:
			}
		}
	}
}

// close stops delivery. Safe to call more than once.
func (s *Subscription) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
