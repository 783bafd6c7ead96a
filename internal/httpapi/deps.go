package httpapi

import (
	"sync/atomic"
	"time"

	"northscrape-engine/internal/config"
	"northscrape-engine/internal/pipeline"
	"northscrape-engine/internal/store"
)

type Deps struct {
	Runs  *pipeline.Orchestrator
	Store store.Store // nil disables history and stored exports

	// Atomic store of config.Config
	CfgVal *atomic.Value

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
	// KeepAlive is the SSE ping interval. Zero means 20s.
	KeepAlive time.Duration
}

func (d Deps) config() config.Config {
	if d.CfgVal == nil {
		return config.Default()
	}
	if cfg, ok := d.CfgVal.Load().(config.Config); ok {
		return cfg
	}
	return config.Default()
}
