package changefeed

import (
	"context"
	"sync"
)

// MemoryFeed delivers events inside one process. Publish never waits for a subscriber:
// every subscription queues its events and hands them out in publish order.
type MemoryFeed struct {
	mu   sync.RWMutex
	subs map[string]map[*memorySubscription]struct{}
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		subs: make(map[string]map[*memorySubscription]struct{}),
	}
}

func (that *MemoryFeed) Publish(_ context.Context, event Event) error {
	that.mu.RLock()
	defer that.mu.RUnlock()

	for sub := range that.subs[event.RoomID] {
		sub.push(event)
	}

	return nil
}

func (that *MemoryFeed) Subscribe(_ context.Context, roomID string) (Subscription, error) {
	sub := &memorySubscription{
		feed:   that,
		roomID: roomID,
		events: make(chan Event, bufferSize),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	that.mu.Lock()
	if that.subs[roomID] == nil {
		that.subs[roomID] = make(map[*memorySubscription]struct{})
	}
	that.subs[roomID][sub] = struct{}{}
	that.mu.Unlock()

	go sub.run()

	return sub, nil
}

func (that *MemoryFeed) unsubscribe(sub *memorySubscription) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.subs[sub.roomID], sub)
	if len(that.subs[sub.roomID]) == 0 {
		delete(that.subs, sub.roomID)
	}
}

// Subscribers - number of open subscriptions of a room.
func (that *MemoryFeed) Subscribers(roomID string) int {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return len(that.subs[roomID])
}

type memorySubscription struct {
	feed   *MemoryFeed
	roomID string
	events chan Event

	mu      sync.Mutex
	pending []Event
	wake    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func (that *memorySubscription) push(event Event) {
	that.mu.Lock()
	that.pending = append(that.pending, event)
	that.mu.Unlock()

	select {
	case that.wake <- struct{}{}:
	default:
	}
}

func (that *memorySubscription) take() []Event {
	that.mu.Lock()
	defer that.mu.Unlock()

	batch := that.pending
	that.pending = nil

	return batch
}

func (that *memorySubscription) run() {
	defer close(that.events)

	for {
		batch := that.take()
		if len(batch) == 0 {
			select {
			case <-that.wake:
				continue
			case <-that.done:
				return
			}
		}

		for _, event := range batch {
			select {
			case that.events <- event:
			case <-that.done:
				return
			}
		}
	}
}

func (that *memorySubscription) Events() <-chan Event {
	return that.events
}

func (that *memorySubscription) Close() error {
	that.once.Do(func() {
		that.feed.unsubscribe(that)
		close(that.done)
	})

	return nil
}
