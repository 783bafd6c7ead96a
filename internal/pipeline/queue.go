package pipeline

import (
	"sync"

	"northscrape-engine/internal/domain"
)

// task is one lead waiting for a worker. listing carries the contact data the
// directory page already showed for it, if any.
type task struct {
	idx     int
	listing *domain.EnrichmentCandidate
}

// taskQueue is the unbounded hand-off between the producer and the workers.
// The producer never waits on workers; workers check stop before every
// dispatch.
type taskQueue struct {
	mu     sync.Mutex
	items  []task
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newTaskQueue() *taskQueue {
	return &taskQueue{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (q *taskQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *taskQueue) push(t task) {
	q.mu.Lock()
	q.items = append(q.items, t)
	q.mu.Unlock()
	q.signal()
}

// close marks the end of production. Workers finish what is queued.
func (q *taskQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
}

// pop blocks for the next task. It returns false once stop is closed, or
// when the queue is closed and empty.
func (q *taskQueue) pop(stop <-chan struct{}) (task, bool) {
	for {
		select {
		case <-stop:
			return task{}, false
		default:
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			t := q.items[0]
			q.items = q.items[1:]
			more := len(q.items) > 0
			q.mu.Unlock()
			if more {
				q.signal()
			}
			return t, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return task{}, false
		}

		select {
		case <-q.wake:
		case <-q.done:
		case <-stop:
			return task{}, false
		}
	}
}

// drain removes and returns everything still queued.
func (q *taskQueue) drain() []task {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}
