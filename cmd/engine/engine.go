package main

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"northscrape-engine/internal/config"
	"northscrape-engine/internal/events"
	"northscrape-engine/internal/fetch"
	"northscrape-engine/internal/merge"
	"northscrape-engine/internal/pipeline"
	"northscrape-engine/internal/resilience"
	"northscrape-engine/internal/resolve"
	"northscrape-engine/internal/scrape/duckduckgo"
	"northscrape-engine/internal/scrape/yellowpages"
	"northscrape-engine/internal/store"
)

const dbFile = "northscrape.db"

// engine holds everything a command needs to run leads.
type engine struct {
	runs  *pipeline.Orchestrator
	store store.Store
	lock  *flock.Flock
}

func newEngine(ctx context.Context, c config.Config) (*engine, error) {
	lock, err := store.LockDataDir(c.App.DataDir)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, c.Store.Driver, storeDSN(c))
	if err != nil {
		_ = lock.Unlock()
		return nil, eris.Wrap(err, "open store")
	}

	f := fetch.NewHTTPFetcher(fetch.Options{
		Timeout:        c.Fetch.Timeout,
		RequestsPerSec: c.Fetch.RequestsPerSecond,
		Burst:          c.Fetch.Burst,
		UserAgents:     c.Fetch.UserAgents,
	})
	directory := yellowpages.New(yellowpages.Config{
		BaseURL:  c.Directory.BaseURL,
		MaxPages: c.Directory.MaxPages,
		Timeout:  c.Fetch.Timeout,
	}, f)
	search := duckduckgo.New(duckduckgo.Config{
		BaseURL:   c.Search.BaseURL,
		Timeout:   c.Fetch.Timeout,
		Blocklist: c.Resolver.Blocklist,
	}, f)
	resolver := resolve.New(f, resolve.Options{
		MaxHops:   c.Resolver.MaxHops,
		Timeout:   c.Resolver.Timeout,
		Blocklist: c.Resolver.Blocklist,
	})

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = c.Pipeline.RetryAttempts
	retry.InitialBackoff = c.Pipeline.BackoffInitial
	retry.MaxBackoff = c.Pipeline.BackoffMax

	runs := pipeline.New(pipeline.Options{
		Workers: c.Pipeline.Workers,
		Retry:   retry,
	}, pipeline.Deps{
		Directory:       directory,
		DirectoryLookup: directory,
		Search:          search,
		Merger:          merge.New(resolver),
		Events:          events.NewStream(c.Pipeline.EventBuffer),
		Recorder:        store.Recorder{Store: st},
	})

	zap.L().Info("engine: ready",
		zap.String("data_dir", c.App.DataDir),
		zap.String("store", c.Store.Driver),
		zap.Int("workers", c.Pipeline.Workers))
	return &engine{runs: runs, store: st, lock: lock}, nil
}

// Close aborts any active run and releases the store and data-dir lock.
func (e *engine) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.runs.Shutdown(ctx); err != nil {
		zap.L().Warn("engine: shutdown timed out", zap.Error(err))
	}
	if err := e.store.Close(); err != nil {
		zap.L().Warn("engine: close store", zap.Error(err))
	}
	if err := e.lock.Unlock(); err != nil {
		zap.L().Warn("engine: release data dir lock", zap.Error(err))
	}
}

// storeDSN defaults the sqlite database into the data dir.
func storeDSN(c config.Config) string {
	if c.Store.DSN == "" && (c.Store.Driver == "" || c.Store.Driver == "sqlite") {
		return filepath.Join(c.App.DataDir, dbFile)
	}
	return c.Store.DSN
}

func configValue(c config.Config) *atomic.Value {
	v := &atomic.Value{}
	v.Store(c)
	return v
}
