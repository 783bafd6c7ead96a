// Package resolve turns candidate website links into canonical business URLs.
package resolve

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"northscrape-engine/internal/fetch"
)

var (
	ErrTooManyRedirects = eris.New("resolve: too many redirects")
	ErrUnreachable      = eris.New("resolve: unreachable")
	ErrNotABusinessSite = eris.New("resolve: not a business site")
)

type Options struct {
	MaxHops   int
	Timeout   time.Duration
	Blocklist []string
}

// Resolver follows redirects by hand so the hop count is bounded. It never
// retries; a failed resolution is reported to the caller as is.
type Resolver struct {
	fetcher   fetch.Fetcher
	maxHops   int
	timeout   time.Duration
	blocklist Blocklist
}

func New(f fetch.Fetcher, opts Options) *Resolver {
	if opts.MaxHops <= 0 {
		opts.MaxHops = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}
	if opts.Blocklist == nil {
		opts.Blocklist = DefaultBlocklist
	}
	return &Resolver{
		fetcher:   f,
		maxHops:   opts.MaxHops,
		timeout:   opts.Timeout,
		blocklist: Blocklist(opts.Blocklist),
	}
}

func (r *Resolver) Blocklist() Blocklist { return r.blocklist }

// Resolve returns the canonical URL that candidate lands on. The timeout
// covers the whole redirect walk.
func (r *Resolver) Resolve(ctx context.Context, candidate string) (string, error) {
	cur, err := Canonicalize(UnwrapRedirect(candidate))
	if err != nil {
		return "", eris.Wrapf(ErrUnreachable, "%v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	for hops := 0; ; hops++ {
		// a hop onto an aggregator ends the walk without fetching it
		if r.blocklist.BlockedURL(cur) {
			return "", eris.Wrapf(ErrNotABusinessSite, "%s", cur)
		}
		resp, err := r.fetcher.Fetch(ctx, fetch.Request{URL: cur, NoRedirect: true, Timeout: r.timeout})
		if err != nil {
			return "", eris.Wrapf(ErrUnreachable, "%s: %v", cur, err)
		}
		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			break
		}
		next, ok := resp.Location()
		if !ok {
			return "", eris.Wrapf(ErrUnreachable, "%s: redirect without location", cur)
		}
		if hops >= r.maxHops {
			return "", eris.Wrapf(ErrTooManyRedirects, "%s after %d hops", candidate, hops)
		}
		cur = UnwrapRedirect(next)
	}

	final, err := Canonicalize(cur)
	if err != nil {
		return "", eris.Wrapf(ErrUnreachable, "%v", err)
	}
	if r.blocklist.BlockedURL(final) {
		return "", eris.Wrapf(ErrNotABusinessSite, "%s", final)
	}
	return final, nil
}
