package stream

import "sync"

// Broadcaster fans one generation's events out to live subscribers. Events
// are buffered so a subscriber attaching mid-generation replays from the
// start; publishing never blocks on a slow reader.
type Broadcaster struct {
	mu     sync.Mutex
	events []Event
	subs   map[chan Event]struct{}
	closed bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Event]struct{})}
}

// Publish appends the event to the buffer and delivers it to subscribers.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.events = append(b.events, ev)
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; it will miss this delta but still sees
			// the buffered prefix it already consumed plus the close.
		}
	}
}

// Close marks the generation finished and releases all subscribers.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
		delete(b.subs, ch)
	}
}

// Subscribe returns a channel replaying buffered events followed by live
// ones, and a cancel function releasing the subscription.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	buffered := make([]Event, len(b.events))
	copy(buffered, b.events)
	ch := make(chan Event, len(buffered)+64)
	for _, ev := range buffered {
		ch <- ev
	}
	if b.closed {
		close(ch)
		b.mu.Unlock()
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}
