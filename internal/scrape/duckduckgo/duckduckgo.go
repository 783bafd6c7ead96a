// Package duckduckgo finds contact details for a business through the
// DuckDuckGo HTML endpoint.
package duckduckgo

import (
	"bytes"
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"northscrape-engine/internal/domain"
	"northscrape-engine/internal/fetch"
	"northscrape-engine/internal/normalize"
	"northscrape-engine/internal/resolve"
	"northscrape-engine/internal/scrape/types"
)

const DefaultBaseURL = "https://html.duckduckgo.com/html/"

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Blocklist []string // hosts never taken as the business site
}

type Scraper struct {
	cfg       Config
	f         fetch.Fetcher
	blocklist resolve.Blocklist
}

func New(cfg Config, f fetch.Fetcher) *Scraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Blocklist == nil {
		cfg.Blocklist = resolve.DefaultBlocklist
	}
	return &Scraper{cfg: cfg, f: f, blocklist: resolve.Blocklist(cfg.Blocklist)}
}

func (s *Scraper) Name() string { return "duckduckgo" }

// FindContact searches "<name> <city> phone" and takes the first result whose
// snippet has a phone number or whose link is a plausible business domain.
func (s *Scraper) FindContact(ctx context.Context, businessName, city string) (domain.EnrichmentCandidate, error) {
	q := sanitizeForSearch(businessName)
	if q == "" {
		return domain.EnrichmentCandidate{}, types.ErrNotFound
	}
	if city != "" && city != normalize.UnknownCity {
		q += " " + city
	}
	q += " phone"

	resp, err := s.f.Fetch(ctx, fetch.Request{
		URL:     s.cfg.BaseURL,
		Form:    url.Values{"q": {q}},
		Timeout: s.cfg.Timeout,
	})
	if err != nil {
		return domain.EnrichmentCandidate{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return domain.EnrichmentCandidate{}, eris.Wrap(err, "duckduckgo: parse results")
	}

	var (
		cand  domain.EnrichmentCandidate
		found bool
	)
	doc.Find("div.result").EachWithBreak(func(_ int, res *goquery.Selection) bool {
		// sponsored results
		if res.HasClass("result--ad") {
			return true
		}
		link := res.Find("a.result__a").First()
		snippet := normalize.CleanText(res.Find(".result__snippet").Text())

		phone, hasPhone := normalize.FindPhone(snippet)
		website := ""
		if href, ok := link.Attr("href"); ok {
			target := resolve.UnwrapRedirect(href)
			if host := resolve.HostOf(target); host != "" && !s.blocklist.Blocked(host) {
				website = target
			}
		}
		if !hasPhone && website == "" {
			return true
		}
		cand = domain.EnrichmentCandidate{Phone: phone, Website: website, Source: domain.SourceSearch}
		found = true
		return false
	})
	if !found {
		zap.L().Debug("duckduckgo: no qualifying result", zap.String("query", q))
		return domain.EnrichmentCandidate{}, types.ErrNotFound
	}
	return cand, nil
}

func sanitizeForSearch(s string) string {
	r := strings.NewReplacer(
		", Inc.", "", " Inc.", "", " Inc", "",
		", Ltd.", "", " Ltd.", "", " Ltd", "",
		" Limited", "",
		"&amp;", "&",
	)
	return normalize.CleanText(r.Replace(s))
}
