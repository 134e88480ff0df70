package stream

import (
	"testing"
	"time"
)

func collect(ch <-chan Event, max int, wait time.Duration) []Event {
	var out []Event
	timer := time.After(wait)
	for len(out) < max {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		case <-timer:
			return out
		}
	}
	return out
}

func TestBroadcasterReplaysBufferedEvents(t *testing.T) {
	b := NewBroadcaster()
	b.Publish(Event{Type: EventTextDelta, Content: "Hello "})
	b.Publish(Event{Type: EventTextDelta, Content: "world"})

	ch, cancel := b.Subscribe()
	defer cancel()

	got := collect(ch, 2, time.Second)
	if len(got) != 2 || got[0].Content != "Hello " || got[1].Content != "world" {
		t.Fatalf("unexpected replay: %#v", got)
	}
}

func TestBroadcasterDeliversLiveEventsAndClose(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(Event{Type: EventTextDelta, Content: "a"})
	b.Publish(Event{Type: EventFinish})
	b.Close()

	got := collect(ch, 3, time.Second)
	if len(got) != 2 {
		t.Fatalf("expected 2 events before close, got %#v", got)
	}
	if got[1].Type != EventFinish {
		t.Fatalf("expected finish event, got %#v", got[1])
	}
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed after Close")
	}
}

func TestSubscribeAfterCloseYieldsBufferThenClosed(t *testing.T) {
	b := NewBroadcaster()
	b.Publish(Event{Type: EventTextDelta, Content: "x"})
	b.Close()

	ch, cancel := b.Subscribe()
	defer cancel()

	got := collect(ch, 2, time.Second)
	if len(got) != 1 || got[0].Content != "x" {
		t.Fatalf("expected buffered event then close, got %#v", got)
	}
}

func TestPublishAfterCloseIsNoop(t *testing.T) {
	b := NewBroadcaster()
	b.Close()
	b.Publish(Event{Type: EventTextDelta, Content: "late"})

	ch, cancel := b.Subscribe()
	defer cancel()
	if got := collect(ch, 1, 100*time.Millisecond); len(got) != 0 {
		t.Fatalf("expected no events after close, got %#v", got)
	}
}

func TestCancelReleasesSubscriber(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected channel closed after cancel")
	}
	// Publishing after cancel must not panic.
	b.Publish(Event{Type: EventTextDelta, Content: "y"})
	b.Close()
}
