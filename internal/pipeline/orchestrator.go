// Package pipeline runs lead discovery and enrichment on a bounded worker
// pool and reports progress as an event stream.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"northscrape-engine/internal/domain"
	"northscrape-engine/internal/events"
	"northscrape-engine/internal/resilience"
	"northscrape-engine/internal/scrape/types"
)

var (
	ErrRunAlreadyActive = eris.New("pipeline: a run is already active")
	ErrRunNotActive     = eris.New("pipeline: run is not active")
	ErrEmptyQuery       = domain.ErrEmptyQuery
	ErrNoLeads          = eris.New("pipeline: nothing to enrich")
)

// DefaultWorkers suits network-bound enrichment; it is independent of the
// number of CPUs.
const DefaultWorkers = 20

// Merger reconciles a lead with its enrichment candidates.
type Merger interface {
	Merge(ctx context.Context, lead domain.Lead, dir, search *domain.EnrichmentCandidate) domain.Lead
}

// Recorder persists a finished run. It is called once, after RunCompleted
// state is reached and before the event is published.
type Recorder interface {
	RecordRun(ctx context.Context, s domain.Summary, leads []domain.Lead) error
}

type Options struct {
	Workers int
	Retry   resilience.RetryConfig
}

type Deps struct {
	Directory types.LeadSource
	// DirectoryLookup is asked for leads whose listing showed no phone.
	DirectoryLookup types.ContactFinder
	Search          types.ContactFinder
	Merger          Merger
	Events          *events.Stream
	Recorder        Recorder
}

type Orchestrator struct {
	opts Options
	deps Deps

	mu     sync.Mutex
	active *run
	last   *run
	wg     sync.WaitGroup
	abort  context.CancelFunc
}

func New(opts Options, deps Deps) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if deps.Events == nil {
		deps.Events = events.NewStream(0)
	}
	return &Orchestrator{opts: opts, deps: deps}
}

func (o *Orchestrator) Events() *events.Stream { return o.deps.Events }

// StartRun begins discovery for q and returns immediately. Only one run can
// be active at a time.
func (o *Orchestrator) StartRun(ctx context.Context, q domain.Query) (*RunHandle, error) {
	q = q.Clean()
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if o.deps.Directory == nil {
		return nil, eris.New("pipeline: no directory source configured")
	}
	src := o.deps.Directory
	return o.start(ctx, q, func(ctx context.Context) iter.Seq2[intake, error] {
		return fromDirectory(src.Search(ctx, q))
	})
}

// StartImport enriches previously exported leads. Rows that already carry a
// valid phone and a website are kept as they are and reported Skipped.
func (o *Orchestrator) StartImport(ctx context.Context, label string, leads []domain.Lead) (*RunHandle, error) {
	if len(leads) == 0 {
		return nil, ErrNoLeads
	}
	if label == "" {
		label = "import"
	}
	q := domain.Query{Category: label}
	in := append([]domain.Lead(nil), leads...)
	return o.start(ctx, q, func(context.Context) iter.Seq2[intake, error] {
		return fromImport(in)
	})
}

func (o *Orchestrator) start(ctx context.Context, q domain.Query, source func(context.Context) iter.Seq2[intake, error]) (*RunHandle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active != nil {
		return nil, ErrRunAlreadyActive
	}

	r := newRun(uuid.NewString(), q, o.deps.Events)
	o.active = r

	// the run outlives the caller's request; Shutdown aborts it
	runCtx, abort := context.WithCancel(context.WithoutCancel(ctx))
	o.abort = abort
	context.AfterFunc(runCtx, func() { r.requestStop() })

	r.publish(events.Event{Kind: events.RunStarted, Summary: ptr(r.summary())})
	zap.L().Info("pipeline: run started",
		zap.String("run_id", r.id), zap.String("query", q.String()), zap.Int("workers", o.opts.Workers))

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer abort()
		o.execute(runCtx, r, source(runCtx))
	}()
	return &RunHandle{o: o, r: r}, nil
}

// Cancel stops scheduling for the active run with the given id. Tasks already
// dispatched finish; queued leads become Skipped.
func (o *Orchestrator) Cancel(runID string) error {
	o.mu.Lock()
	r := o.active
	o.mu.Unlock()
	if r == nil || r.id != runID {
		return eris.Wrapf(ErrRunNotActive, "run %s", runID)
	}
	if !r.requestStop() {
		return eris.Wrapf(ErrRunNotActive, "run %s", runID)
	}
	zap.L().Info("pipeline: cancel requested", zap.String("run_id", runID))
	return nil
}

// Current returns the active run, if any.
func (o *Orchestrator) Current() (*RunHandle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active == nil {
		return nil, false
	}
	return &RunHandle{o: o, r: o.active}, true
}

// Run looks up the active or the most recently finished run.
func (o *Orchestrator) Run(id string) (*RunHandle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, r := range []*run{o.active, o.last} {
		if r != nil && r.id == id {
			return &RunHandle{o: o, r: r}, true
		}
	}
	return nil, false
}

// Last returns the most recently finished run.
func (o *Orchestrator) Last() (*RunHandle, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return nil, false
	}
	return &RunHandle{o: o, r: o.last}, true
}

// Shutdown aborts the active run, interrupting in-flight fetches, and waits
// for it to wind down.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.active != nil {
		o.active.requestStop()
	}
	if o.abort != nil {
		o.abort()
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "pipeline: shutdown")
	}
}

func (o *Orchestrator) execute(ctx context.Context, r *run, source iter.Seq2[intake, error]) {
	defer close(r.done)

	queue := newTaskQueue()
	var workers sync.WaitGroup
	for i := 0; i < o.opts.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for {
				t, ok := queue.pop(r.stop)
				if !ok {
					return
				}
				o.enrich(ctx, r, t)
			}
		}()
	}

	for in, err := range source {
		if r.stopped() {
			break
		}
		if err != nil {
			zap.L().Warn("pipeline: source error", zap.String("run_id", r.id), zap.Error(err))
			continue
		}
		idx, ok := r.admit(in.lead)
		if !ok || in.lead.Status == domain.LeadSkipped {
			continue
		}
		queue.push(task{idx: idx, listing: in.listing})
	}
	queue.close()
	workers.Wait()

	for _, t := range queue.drain() {
		r.skip(t.idx, "run cancelled")
	}

	sum := r.complete()
	if sum.Status == domain.RunCompleted && o.deps.Recorder != nil {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		if err := o.deps.Recorder.RecordRun(rctx, sum, r.snapshot()); err != nil {
			zap.L().Error("pipeline: record run failed", zap.String("run_id", r.id), zap.Error(err))
		}
		cancel()
	}

	o.mu.Lock()
	o.active = nil
	o.last = r
	o.abort = nil
	kind := events.RunCompleted
	if sum.Status == domain.RunCancelled {
		kind = events.RunCancelled
	}
	r.publish(events.Event{Kind: kind, Summary: &sum})
	o.mu.Unlock()

	zap.L().Info("pipeline: run finished",
		zap.String("run_id", r.id),
		zap.String("status", string(sum.Status)),
		zap.Int("total", sum.Total),
		zap.Int("enriched", sum.Enriched),
		zap.Int("failed", sum.Failed),
		zap.Int("skipped", sum.Skipped),
	)
}

// enrich runs one lead's lookups and merge. Any failure is confined to the
// lead.
func (o *Orchestrator) enrich(ctx context.Context, r *run, t task) {
	lead, ok := r.begin(t.idx)
	if !ok {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			zap.L().Error("pipeline: enrichment panicked",
				zap.String("run_id", r.id), zap.String("lead", lead.Name), zap.Any("panic", p))
			r.fail(t.idx, fmt.Sprintf("internal error: %v", p))
		}
	}()

	dir, search, err := o.lookup(ctx, lead, t.listing)
	if err != nil {
		zap.L().Warn("pipeline: lead failed",
			zap.String("run_id", r.id), zap.String("lead", lead.Name), zap.Error(err))
		r.fail(t.idx, err.Error())
		return
	}
	r.finish(t.idx, o.deps.Merger.Merge(ctx, lead, dir, search))
}

// lookup gathers the directory and search candidates concurrently. NotFound
// from a source is an empty candidate; other errors fail the lead once the
// retry budget is spent.
func (o *Orchestrator) lookup(ctx context.Context, lead domain.Lead, listing *domain.EnrichmentCandidate) (*domain.EnrichmentCandidate, *domain.EnrichmentCandidate, error) {
	var dir, search *domain.EnrichmentCandidate
	g, gctx := errgroup.WithContext(ctx)

	dir = listing
	if (listing == nil || listing.Phone == "") && o.deps.DirectoryLookup != nil {
		g.Go(func() error {
			c, err := o.find(gctx, o.deps.DirectoryLookup, lead)
			if err != nil {
				return err
			}
			dir = mergeListing(listing, c)
			return nil
		})
	}
	if o.deps.Search != nil {
		g.Go(func() error {
			c, err := o.find(gctx, o.deps.Search, lead)
			if err != nil {
				return err
			}
			search = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return dir, search, nil
}

func (o *Orchestrator) find(ctx context.Context, f types.ContactFinder, lead domain.Lead) (*domain.EnrichmentCandidate, error) {
	cfg := o.opts.Retry
	cfg.OnRetry = resilience.RetryLogger("pipeline", f.Name(), zap.String("lead", lead.Name))
	c, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (domain.EnrichmentCandidate, error) {
		return f.FindContact(ctx, lead.Name, lead.Address.City)
	})
	if errors.Is(err, types.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "%s lookup", f.Name())
	}
	return &c, nil
}

// mergeListing fills gaps in what the listing page showed with the lookup.
func mergeListing(listing, lookup *domain.EnrichmentCandidate) *domain.EnrichmentCandidate {
	switch {
	case lookup == nil:
		return listing
	case listing == nil:
		return lookup
	}
	out := *listing
	if out.Phone == "" {
		out.Phone = lookup.Phone
	}
	if out.Website == "" {
		out.Website = lookup.Website
	}
	return &out
}

func ptr[T any](v T) *T { return &v }
