package resolve

import (
	"net/url"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

var ErrInvalidURL = eris.New("resolve: invalid url")

var trackingParams = map[string]bool{
	"gclid":   true,
	"fbclid":  true,
	"msclkid": true,
	"yclid":   true,
	"mc_cid":  true,
	"mc_eid":  true,
	"mkt_tok": true,
	"igshid":  true,
	"srsltid": true,
	"_ga":     true,
	"ref":     true,
}

// Canonicalize returns raw with a lowercased scheme and host, no fragment, no
// marketing parameters, a sorted query and no trailing slash. Scheme-less
// input is taken as https.
func Canonicalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", eris.Wrap(ErrInvalidURL, "empty")
	}
	lower := strings.ToLower(raw)
	for _, p := range []string{"mailto:", "tel:", "javascript:", "data:"} {
		if strings.HasPrefix(lower, p) {
			return "", eris.Wrapf(ErrInvalidURL, "%q", raw)
		}
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + strings.TrimPrefix(raw, "//")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", eris.Wrapf(ErrInvalidURL, "%q", raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", eris.Wrapf(ErrInvalidURL, "scheme %q", u.Scheme)
	}
	u.Host = strings.ToLower(u.Host)
	host := u.Hostname()
	if host == "" || (!strings.Contains(host, ".") && host != "localhost" && u.Port() == "") {
		return "", eris.Wrapf(ErrInvalidURL, "host %q", u.Host)
	}
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || trackingParams[lk] {
			q.Del(k)
		}
	}
	for k := range q {
		vals := q[k]
		sort.Strings(vals)
		q[k] = vals
	}
	u.RawQuery = q.Encode()

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String(), nil
}

// UnwrapRedirect extracts the real target from search and directory
// click-through links (DuckDuckGo "uddg", YellowPages "redirect").
func UnwrapRedirect(href string) string {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	q := u.Query()
	for _, key := range []string{"uddg", "redirect", "url"} {
		if v := q.Get(key); v != "" && (strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://")) {
			return v
		}
	}
	return href
}

func HostOf(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "https://" + strings.TrimPrefix(raw, "//")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
