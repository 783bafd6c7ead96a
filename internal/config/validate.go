package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

func (v Validation) Error() string {
	return "config validation failed:\n- " + strings.Join(v.Errors, "\n- ")
}

// NormalizeAndValidate returns a normalized copy of cfg along with what is
// wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	out.Catalog.Categories = trimList(out.Catalog.Categories)
	out.Catalog.Locations = trimList(out.Catalog.Locations)
	out.Fetch.UserAgents = trimList(out.Fetch.UserAgents)
	out.Resolver.Blocklist = trimList(out.Resolver.Blocklist)
	for i, d := range out.Resolver.Blocklist {
		out.Resolver.Blocklist[i] = strings.ToLower(d)
	}
	out.Log.Level = strings.ToLower(strings.TrimSpace(out.Log.Level))
	out.Log.Format = strings.ToLower(strings.TrimSpace(out.Log.Format))
	out.Store.Driver = strings.ToLower(strings.TrimSpace(out.Store.Driver))

	// ---- app ----
	if _, _, err := net.SplitHostPort(out.App.Addr); err != nil {
		res.addErr("app.addr must be host:port (%v)", err)
	}
	if strings.TrimSpace(out.App.DataDir) == "" {
		res.addErr("app.data_dir is required")
	}

	// ---- log ----
	switch out.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		res.addErr("log.level must be one of debug, info, warn, error")
	}
	if out.Log.Format != "console" && out.Log.Format != "json" {
		res.addErr("log.format must be console or json")
	}

	// ---- pipeline ----
	if out.Pipeline.Workers <= 0 {
		res.addErr("pipeline.workers must be > 0")
	} else if out.Pipeline.Workers > 64 {
		res.addWarn("pipeline.workers is %d; the directory and search hosts may start refusing requests.", out.Pipeline.Workers)
	}
	if out.Pipeline.RetryAttempts < 1 {
		res.addErr("pipeline.retry_attempts must be >= 1")
	}
	if out.Pipeline.BackoffInitial <= 0 {
		res.addErr("pipeline.backoff_initial must be > 0")
	}
	if out.Pipeline.BackoffMax < out.Pipeline.BackoffInitial {
		out.Pipeline.BackoffMax = out.Pipeline.BackoffInitial
		res.addWarn("pipeline.backoff_max was below backoff_initial; raised to %s", out.Pipeline.BackoffMax)
	}
	if out.Pipeline.EventBuffer < 16 {
		out.Pipeline.EventBuffer = 16
		res.addWarn("pipeline.event_buffer raised to 16")
	}

	// ---- fetch ----
	if out.Fetch.Timeout <= 0 {
		res.addErr("fetch.timeout must be > 0")
	} else if out.Fetch.Timeout < time.Second {
		res.addWarn("fetch.timeout is very low (%s)", out.Fetch.Timeout)
	}
	if out.Fetch.RequestsPerSecond <= 0 {
		res.addWarn("fetch.requests_per_second <= 0 disables rate limiting")
	}
	if out.Fetch.Burst < 1 {
		out.Fetch.Burst = 1
	}
	if len(out.Fetch.UserAgents) == 0 {
		res.addWarn("fetch.user_agents is empty; the built-in list is used")
	}

	// ---- sources ----
	checkURL := func(key, raw string) {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			res.addErr("%s must be an absolute http(s) URL", key)
		}
	}
	checkURL("directory.base_url", out.Directory.BaseURL)
	checkURL("search.base_url", out.Search.BaseURL)
	if out.Directory.MaxPages <= 0 {
		res.addErr("directory.max_pages must be > 0")
	}

	// ---- resolver ----
	if out.Resolver.MaxHops <= 0 {
		res.addErr("resolver.max_hops must be > 0")
	}
	if out.Resolver.Timeout <= 0 {
		res.addErr("resolver.timeout must be > 0")
	}

	// ---- store ----
	switch out.Store.Driver {
	case "sqlite":
	case "postgres":
		if strings.TrimSpace(out.Store.DSN) == "" {
			res.addErr("store.dsn is required when store.driver=postgres")
		}
	default:
		res.addErr("store.driver must be sqlite or postgres")
	}
	if out.History.Limit <= 0 {
		res.addErr("history.limit must be > 0")
	}

	// ---- catalog ----
	if len(out.Catalog.Categories) == 0 {
		res.addWarn("catalog.categories is empty")
	}
	if len(out.Catalog.Locations) == 0 {
		res.addWarn("catalog.locations is empty")
	}

	return out, res
}
