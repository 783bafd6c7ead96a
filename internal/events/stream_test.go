package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"northscrape-engine/internal/domain"
)

func TestStream_SequenceStartsAtOneAndIncreases(t *testing.T) {
	s := NewStream(8)
	assert.Equal(t, uint64(0), s.LastSeq())

	a := s.Publish(Event{Kind: RunStarted, RunID: "r1"})
	b := s.Publish(Event{Kind: LeadDiscovered, RunID: "r1"})
	assert.Equal(t, uint64(1), a.Seq)
	assert.Equal(t, uint64(2), b.Seq)
	assert.False(t, a.At.IsZero())
	assert.Equal(t, uint64(2), s.LastSeq())
}

func TestStream_DropsOldestWhenFull(t *testing.T) {
	s := NewStream(3)
	for i := 0; i < 5; i++ {
		s.Publish(Event{Kind: LeadDiscovered})
	}

	got, missed := s.Since(0, 0)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(3), got[0].Seq)
	assert.Equal(t, uint64(5), got[2].Seq)
	assert.Equal(t, uint64(2), missed)
	assert.Equal(t, uint64(2), s.Dropped())

	got, missed = s.Since(3, 0)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(4), got[0].Seq)
	assert.Equal(t, uint64(0), missed)
}

func TestStream_SinceLimit(t *testing.T) {
	s := NewStream(10)
	for i := 0; i < 6; i++ {
		s.Publish(Event{Kind: LeadEnriched})
	}
	got, _ := s.Since(1, 2)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(2), got[0].Seq)
	assert.Equal(t, uint64(3), got[1].Seq)

	got, missed := s.Since(6, 0)
	assert.Empty(t, got)
	assert.Zero(t, missed)
}

func TestStream_ConcurrentPublishersGetUniqueContiguousSeqs(t *testing.T) {
	s := NewStream(1000)
	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s.Publish(Event{Kind: LeadEnriched})
			}
		}()
	}
	wg.Wait()

	got, missed := s.Since(0, 0)
	require.Len(t, got, 500)
	assert.Zero(t, missed)
	for i, e := range got {
		assert.Equal(t, uint64(i+1), e.Seq)
	}
}

func TestStream_SlowSubscriberNeverBlocksPublisher(t *testing.T) {
	s := NewStream(4)
	ch, cancel := s.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			s.Publish(Event{Kind: LeadDiscovered})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on a subscriber that never reads")
	}

	first := <-ch
	assert.Equal(t, uint64(1), first.Seq)
}

func TestStream_SubscriberSeesOrder(t *testing.T) {
	s := NewStream(16)
	ch, cancel := s.Subscribe()
	for i := 0; i < 10; i++ {
		s.Publish(Event{Kind: LeadDiscovered})
	}
	cancel()

	var last uint64
	for e := range ch {
		assert.Greater(t, e.Seq, last)
		last = e.Seq
	}
	assert.Equal(t, uint64(10), last)
	assert.Equal(t, 0, s.Hub().Subscribers())
}

func TestWire(t *testing.T) {
	lead := &domain.Lead{Name: "Bob's Plumbing", Status: domain.LeadFailed}
	raw := Wire(Event{Seq: 7, Kind: LeadFailed, RunID: "r1", Lead: lead, Reason: "timeout"})

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, "LeadFailed", env.Type)
	assert.Equal(t, uint64(7), env.Seq)
	assert.Equal(t, "r1", env.RunID)
	assert.Contains(t, string(env.Data), `"reason":"timeout"`)
	assert.Contains(t, string(env.Data), `"name":"Bob's Plumbing"`)
}

func TestMakeEvent(t *testing.T) {
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(MakeEvent("req-1", "ping", 1, nil)), &env))
	assert.Equal(t, "ping", env.Type)
	assert.Equal(t, "req-1", env.RequestID)
	assert.Empty(t, env.Data)
}
