package pipeline

import (
	"context"
	"sync"
	"time"

	"northscrape-engine/internal/domain"
	"northscrape-engine/internal/events"
	"northscrape-engine/internal/normalize"
)

// run is the state of one pipeline execution. Its lead collection and
// counters are guarded by mu; each lead is written by at most one worker.
type run struct {
	id     string
	query  domain.Query
	events *events.Stream

	mu       sync.Mutex
	status   domain.RunStatus
	leads    []domain.Lead
	index    map[string]int
	enriched int
	failed   int
	skipped  int
	started  time.Time
	finished *time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newRun(id string, q domain.Query, stream *events.Stream) *run {
	return &run{
		id:      id,
		query:   q,
		events:  stream,
		status:  domain.RunRunning,
		index:   make(map[string]int),
		started: time.Now().UTC(),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (r *run) publish(e events.Event) {
	e.RunID = r.id
	r.events.Publish(e)
}

func leadEvent(kind events.Kind, l domain.Lead, reason string) events.Event {
	c := l.Clone()
	return events.Event{Kind: kind, Lead: &c, Reason: reason}
}

// requestStop flips the run to Cancelled. It reports false when the run had
// already finished or been cancelled.
func (r *run) requestStop() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != domain.RunRunning {
		return false
	}
	r.status = domain.RunCancelled
	r.stopOnce.Do(func() { close(r.stop) })
	return true
}

func (r *run) stopped() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

// admit inserts a newly discovered lead unless the run already holds one
// with the same identity key or has been cancelled. The LeadDiscovered event
// is published under the lock so discovery order and cancellation are exact.
func (r *run) admit(l domain.Lead) (int, bool) {
	l.Name = normalize.NormalizeName(l.Name)
	if l.Address.City == "" {
		l.Address = normalize.NormalizeAddress(l.RawAddress, l.Address.PostalCode)
	}
	l.Key = normalize.IdentityKey(l.Name, l.Address)
	if l.DiscoveredAt.IsZero() {
		l.DiscoveredAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != domain.RunRunning {
		return 0, false
	}
	if _, dup := r.index[l.Key]; dup {
		return 0, false
	}
	idx := len(r.leads)
	r.leads = append(r.leads, l)
	r.index[l.Key] = idx
	r.publish(leadEvent(events.LeadDiscovered, l, ""))
	if l.Status == domain.LeadSkipped {
		r.skipped++
		r.publish(leadEvent(events.LeadSkipped, l, "already complete"))
	}
	return idx, true
}

// begin moves a Pending lead to Enriching and returns a copy to work on.
func (r *run) begin(idx int) (domain.Lead, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.leads[idx].Status != domain.LeadPending {
		return domain.Lead{}, false
	}
	r.leads[idx].Status = domain.LeadEnriching
	return r.leads[idx].Clone(), true
}

func (r *run) finish(idx int, l domain.Lead) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.Key = r.leads[idx].Key
	l.Status = domain.LeadEnriched
	r.leads[idx] = l
	r.enriched++
	r.publish(leadEvent(events.LeadEnriched, l, ""))
}

func (r *run) fail(idx int, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leads[idx].Status = domain.LeadFailed
	r.leads[idx].FailureReason = reason
	r.failed++
	r.publish(leadEvent(events.LeadFailed, r.leads[idx], reason))
}

func (r *run) skip(idx int, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.leads[idx].Status.Terminal() {
		return
	}
	r.leads[idx].Status = domain.LeadSkipped
	r.skipped++
	r.publish(leadEvent(events.LeadSkipped, r.leads[idx], reason))
}

// complete sets the terminal status and returns the final summary.
func (r *run) complete() domain.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == domain.RunRunning {
		r.status = domain.RunCompleted
	}
	now := time.Now().UTC()
	r.finished = &now
	return r.summaryLocked()
}

func (r *run) summary() domain.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summaryLocked()
}

func (r *run) summaryLocked() domain.Summary {
	s := domain.Summary{
		RunID:      r.id,
		Query:      r.query,
		Status:     r.status,
		Total:      len(r.leads),
		Enriched:   r.enriched,
		Failed:     r.failed,
		Skipped:    r.skipped,
		Completed:  r.enriched + r.failed + r.skipped,
		StartedAt:  r.started,
		FinishedAt: r.finished,
	}
	for _, l := range r.leads {
		if l.NeedsReview {
			s.NeedsReview++
		}
	}
	return s
}

func (r *run) snapshot() []domain.Lead {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Lead, len(r.leads))
	for i, l := range r.leads {
		out[i] = l.Clone()
	}
	return out
}

// RunHandle is the caller's view of a started run.
type RunHandle struct {
	o *Orchestrator
	r *run
}

func (h *RunHandle) ID() string { return h.r.id }

// Done is closed once the run reached Completed or Cancelled and every
// dispatched task has returned.
func (h *RunHandle) Done() <-chan struct{} { return h.r.done }

func (h *RunHandle) Wait(ctx context.Context) (domain.Summary, error) {
	select {
	case <-h.r.done:
		return h.r.summary(), nil
	case <-ctx.Done():
		return h.r.summary(), ctx.Err()
	}
}

func (h *RunHandle) Summary() domain.Summary { return h.r.summary() }

// Leads returns the run's leads in discovery order.
func (h *RunHandle) Leads() []domain.Lead { return h.r.snapshot() }

func (h *RunHandle) Cancel() error { return h.o.Cancel(h.r.id) }
