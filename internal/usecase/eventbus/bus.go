// Package eventbus delivers per-session progress event streams.
//
// Each session has an ordered stream of ProgressEvents. Subscribers get a
// bounded channel; when a slow subscriber falls behind, the oldest unread
// event is dropped and the next delivered event carries a gap marker.
// Publishing never blocks the reasoning loop.
package eventbus

import (
	"log/slog"
	"sync"
	"time"

	"ald-01/internal/domain"
)

// DefaultCapacity is the per-subscriber buffer size.
const DefaultCapacity = 64

// DefaultEvictAfter is how long a terminated stream's entry is kept so late
// subscribers still observe an already-closed stream before it is released.
const DefaultEvictAfter = time.Minute

type subscriber struct {
	ch   chan domain.ProgressEvent
	gap  bool // a drop happened since the last delivered event
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

type stream struct {
	seq        uint64
	terminated bool
	subs       []*subscriber
}

// Bus is an in-process, goroutine-safe progress event bus.
type Bus struct {
	mu         sync.Mutex
	streams    map[string]*stream
	capacity   int
	evictAfter time.Duration
	closed     bool
	logger     *slog.Logger
}

// Compile-time interface assertion.
var _ domain.EventSink = (*Bus)(nil)

// New creates an event bus. capacity <= 0 uses DefaultCapacity.
func New(capacity int, logger *slog.Logger) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Bus{
		streams:    make(map[string]*stream),
		capacity:   capacity,
		evictAfter: DefaultEvictAfter,
		logger:     logger,
	}
}

// Publish assigns the event its per-session sequence number and fans it out
// to the session's subscribers. A terminal event closes the stream; events
// published after that are dropped. Publish never blocks.
func (b *Bus) Publish(ev domain.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || ev.SessionID == "" {
		return
	}

	s, ok := b.streams[ev.SessionID]
	if !ok {
		s = &stream{}
		b.streams[ev.SessionID] = s
	}
	if s.terminated {
		b.logger.Debug("event after terminal dropped",
			"session", ev.SessionID, "kind", string(ev.Kind))
		return
	}

	s.seq++
	ev.Seq = s.seq
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	for _, sub := range s.subs {
		b.deliver(sub, ev)
	}

	if ev.Kind.Terminal() {
		s.terminated = true
		for _, sub := range s.subs {
			sub.close()
		}
		s.subs = nil
		b.scheduleEvict(ev.SessionID)
	}
}

// scheduleEvict releases a terminated stream's entry after the grace period,
// so long-lived embedders do not accumulate one entry per finished session.
func (b *Bus) scheduleEvict(sessionID string) {
	delay := b.evictAfter
	if delay <= 0 {
		delay = DefaultEvictAfter
	}
	time.AfterFunc(delay, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.streams[sessionID]; ok && s.terminated {
			delete(b.streams, sessionID)
		}
	})
}

// deliver sends without blocking, dropping the subscriber's oldest unread
// event to make room when the buffer is full.
func (b *Bus) deliver(sub *subscriber, ev domain.ProgressEvent) {
	ev.Gap = sub.gap

	select {
	case sub.ch <- ev:
		sub.gap = false
		return
	default:
	}

	// Buffer full: drop the oldest and tag the incoming event.
	select {
	case <-sub.ch:
	default:
	}
	sub.gap = false
	ev.Gap = true
	select {
	case sub.ch <- ev:
	default:
		// Still full after a drop only if the subscriber raced us; give up
		// on this event and carry the gap forward.
		sub.gap = true
	}
}

// Subscribe returns a channel of the session's events and a cancel function.
// Subscribing to a terminated or unknown-and-closed stream yields a channel
// that is already closed.
func (b *Bus) Subscribe(sessionID string) (<-chan domain.ProgressEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{ch: make(chan domain.ProgressEvent, b.capacity)}

	s, ok := b.streams[sessionID]
	if b.closed || (ok && s.terminated) {
		sub.close()
		return sub.ch, func() {}
	}
	if !ok {
		s = &stream{}
		b.streams[sessionID] = s
	}
	s.subs = append(s.subs, sub)

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, existing := range s.subs {
			if existing == sub {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				break
			}
		}
		sub.close()
	}
	return sub.ch, cancel
}

// Close terminates every stream and closes all subscriber channels.
// Close is idempotent.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.streams {
		s.terminated = true
		for _, sub := range s.subs {
			sub.close()
		}
		s.subs = nil
	}
}
