package events

import (
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	b.Publish(Event{Type: MediaAdded, EntityID: "m1", ProjectID: "p1"})

	for i, ch := range []chan Event{ch1, ch2} {
		select {
		case ev := <-ch:
			if ev.Type != MediaAdded || ev.EntityID != "m1" {
				t.Errorf("subscriber %d: event = %+v", i, ev)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %d: no event", i)
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := NewBus()
	defer b.Close()

	ch := b.Subscribe()
	if n := b.SubscriberCount(); n != 1 {
		t.Fatalf("count = %d, want 1", n)
	}

	b.Unsubscribe(ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	if n := b.SubscriberCount(); n != 0 {
		t.Errorf("count after unsubscribe = %d", n)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	b := NewBus()
	ch := b.Subscribe()

	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("subscriber channel should be closed")
	}

	// Operations after close must not panic or block.
	b.Publish(Event{Type: ProjectSaved})
	if got := b.Subscribe(); got == nil {
		t.Error("Subscribe after close should return a closed channel")
	}
	if n := b.SubscriberCount(); n != 0 {
		t.Errorf("count after close = %d", n)
	}
}

func TestPublishOnNilBus(t *testing.T) {
	var b *Bus
	// Must be a silent no-op.
	b.Publish(Event{Type: StorageCleared})
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBus()
	defer b.Close()

	_ = b.Subscribe() // never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			b.Publish(Event{Type: TimelineSaved, EntityID: "s1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publishing blocked on a slow subscriber")
	}
}
