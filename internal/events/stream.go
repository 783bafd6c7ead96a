package events

import (
	"sync"
	"time"
)

// Stream is the append-only progress log of the engine. It holds the most
// recent capacity events; when full the oldest event is dropped so that a
// publisher never waits on a reader. Readers poll with Since and learn how
// many events they missed, or subscribe for live delivery.
type Stream struct {
	mu      sync.Mutex
	ring    []Event
	head    int // index of the oldest event
	size    int
	nextSeq uint64
	dropped uint64
	hub     *Hub
}

func NewStream(capacity int) *Stream {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Stream{
		ring:    make([]Event, capacity),
		nextSeq: 1,
		hub:     NewHub(64),
	}
}

// Publish stamps e with the next sequence number and appends it.
func (s *Stream) Publish(e Event) Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.Seq = s.nextSeq
	s.nextSeq++
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	if s.size == len(s.ring) {
		s.head = (s.head + 1) % len(s.ring)
		s.size--
		s.dropped++
	}
	s.ring[(s.head+s.size)%len(s.ring)] = e
	s.size++

	// under the lock so subscribers see sequence order
	s.hub.Publish(e)
	return e
}

// Since returns up to limit buffered events with Seq > after (limit <= 0 means
// all), plus how many events after `after` were already dropped.
func (s *Stream) Since(after uint64, limit int) ([]Event, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.size == 0 {
		return nil, 0
	}
	oldest := s.ring[s.head].Seq
	var missed uint64
	if after+1 < oldest {
		missed = oldest - after - 1
	}

	var out []Event
	for i := 0; i < s.size; i++ {
		e := s.ring[(s.head+i)%len(s.ring)]
		if e.Seq <= after {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, missed
}

// LastSeq is the sequence number of the newest event, 0 if none.
func (s *Stream) LastSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextSeq - 1
}

func (s *Stream) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Subscribe returns a live feed and its cancel func.
func (s *Stream) Subscribe() (<-chan Event, func()) {
	ch := s.hub.Subscribe()
	return ch, func() { s.hub.Unsubscribe(ch) }
}

func (s *Stream) Hub() *Hub { return s.hub }
