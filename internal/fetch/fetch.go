// Package fetch is the single network boundary for the scrapers and the
// website resolver.
package fetch

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

const maxBodyBytes = 2 << 20

// DefaultUserAgents are rotated per request.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/119 Safari/537.36",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/119.0",
}

type Request struct {
	Method     string // defaults to GET, or POST when Form is set
	URL        string
	Form       url.Values // sent as an urlencoded body
	Timeout    time.Duration
	NoRedirect bool // return 3xx responses instead of following them
}

type Response struct {
	StatusCode int
	URL        string // final URL after any followed redirects
	Header     http.Header
	Body       []byte
}

// Location resolves the Location header against the response URL.
func (r *Response) Location() (string, bool) {
	loc := r.Header.Get("Location")
	if loc == "" {
		return "", false
	}
	base, err := url.Parse(r.URL)
	if err != nil {
		return loc, true
	}
	ref, err := url.Parse(loc)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// Fetcher retrieves one URL. Failures are *Error unless the caller's context
// ended first.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

type Options struct {
	Timeout        time.Duration
	RequestsPerSec float64
	Burst          int
	UserAgents     []string
}

type HTTPFetcher struct {
	follow   *http.Client
	noFollow *http.Client
	limiter  *HostLimiter
	timeout  time.Duration
	agents   []string
}

func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if len(opts.UserAgents) == 0 {
		opts.UserAgents = DefaultUserAgents
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConnsPerHost: 8,
	}
	return &HTTPFetcher{
		follow: &http.Client{Transport: transport},
		noFollow: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: NewHostLimiter(opts.RequestsPerSec, opts.Burst),
		timeout: opts.Timeout,
		agents:  opts.UserAgents,
	}
}

func (f *HTTPFetcher) userAgent() string {
	return f.agents[rand.IntN(len(f.agents))]
}

func (f *HTTPFetcher) Fetch(ctx context.Context, r Request) (*Response, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = f.timeout
	}
	if err := f.limiter.WaitURL(ctx, r.URL); err != nil {
		return nil, eris.Wrap(err, "fetch: rate limit wait")
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := r.Method
	var body io.Reader
	if r.Form != nil {
		if method == "" {
			method = http.MethodPost
		}
		body = strings.NewReader(r.Form.Encode())
	}
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, r.URL, body)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: build request")
	}
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-CA,en;q=0.9")
	if r.Form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	client := f.follow
	if r.NoRedirect {
		client = f.noFollow
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, classify(ctx, r.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, statusError(r.URL, resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classify(ctx, r.URL, err)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		URL:        resp.Request.URL.String(),
		Header:     resp.Header,
		Body:       b,
	}, nil
}

// classify maps a transport failure onto a fetch Error. A caller-side
// cancellation is returned as is so it is never mistaken for a transient fault.
func classify(ctx context.Context, rawURL string, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return eris.Wrap(err, "fetch: cancelled")
	}
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return &Error{Kind: KindTimeout, URL: rawURL, Err: err}
	}
	return &Error{Kind: KindConnection, URL: rawURL, Err: err}
}
