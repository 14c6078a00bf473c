package statesync

import (
	"context"
	"sync"
)

// Publisher receives every settled view, in increasing sequence order.
type Publisher interface {
	Publish(ctx context.Context, view View) error
}

// Broadcaster fans views out to in-process subscribers. Each subscriber
// holds at most one pending view; a slow subscriber only ever sees the
// newest one.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan View
	nextID int
	latest *View
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]chan View),
	}
}

// Subscribe returns a channel of views and a function that detaches it. A
// new subscriber immediately receives the latest view, if any.
func (b *Broadcaster) Subscribe() (<-chan View, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan View, 1)
	if b.latest != nil {
		ch <- *b.latest
	}
	b.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
	return ch, unsubscribe
}

func (b *Broadcaster) Publish(ctx context.Context, view View) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest = &view
	for _, ch := range b.subs {
		select {
		case ch <- view:
		default:
			// Replace the stale pending view.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- view:
			default:
			}
		}
	}
	return nil
}

// Subscribers reports how many consumers are attached.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
