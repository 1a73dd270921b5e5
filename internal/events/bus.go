// Package events implements an in-process change-event bus the UI
// layer subscribes to for entity updates.
package events

import "sync/atomic"

// Event types published by the storage layer.
const (
	ProjectSaved    = "project.saved"
	ProjectDeleted  = "project.deleted"
	SceneDeleted    = "scene.deleted"
	MediaAdded      = "media.added"
	MediaDeleted    = "media.deleted"
	TimelineSaved   = "timeline.saved"
	TimelineDropped = "timeline.dropped"
	StorageCleared  = "storage.cleared"
)

// Event describes one entity change.
type Event struct {
	Type      string `json:"type"`
	EntityID  string `json:"entityId,omitempty"`
	ProjectID string `json:"projectId,omitempty"`
}

// Bus fans change events out to subscribers.
//
// Concurrency model: a single internal event loop (goroutine) owns the
// subscriber map. Public methods communicate with this loop through
// channels, so no mutexes are required. Slow subscribers are skipped
// rather than blocking the loop.
type Bus struct {
	subscribeCh   chan chan Event
	unsubscribeCh chan chan Event
	publishCh     chan Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBus creates a bus and starts its event loop.
func NewBus() *Bus {
	b := &Bus{
		subscribeCh:   make(chan chan Event),
		unsubscribeCh: make(chan chan Event),
		publishCh:     make(chan Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *Bus) run() {
	defer close(b.stopped)

	subs := make(map[chan Event]struct{})

	for {
		select {
		case <-b.stopCh:
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			subs[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case ev := <-b.publishCh:
			for ch := range subs {
				select {
				case ch <- ev:
				default:
					// Subscriber buffer full; skip to avoid blocking the loop.
				}
			}

		case resp := <-b.countReqCh:
			resp <- len(subs)
		}
	}
}

// Close stops the loop and closes all subscriber channels.
func (b *Bus) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Bus) Unsubscribe(ch chan Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// Publish delivers ev to every subscriber. Publishing on a nil or
// closed bus is a no-op, so callers need no wiring for the quiet case.
func (b *Bus) Publish(ev Event) {
	if b == nil || b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- ev:
	case <-b.stopped:
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}
