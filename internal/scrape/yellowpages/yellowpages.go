// Package yellowpages scrapes the YellowPages.ca directory: listing pages for
// lead discovery and single-business searches for enrichment.
package yellowpages

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"net/url"
	"strings"
	"sync/atomic"
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

const DefaultBaseURL = "https://www.yellowpages.ca"

type Config struct {
	BaseURL  string
	MaxPages int // page ceiling per location
	Timeout  time.Duration
}

type Scraper struct {
	cfg Config
	f   fetch.Fetcher
}

func New(cfg Config, f fetch.Fetcher) *Scraper {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	return &Scraper{cfg: cfg, f: f}
}

func (s *Scraper) Name() string { return "yellowpages" }

// Search walks the listing pages of every location in order. Pages are only
// fetched as the consumer asks for more leads. A failed page is yielded as an
// error and ends that location; the next location still runs.
func (s *Scraper) Search(ctx context.Context, q domain.Query) iter.Seq2[domain.RawLead, error] {
	q = q.Clean()
	var used atomic.Bool
	return func(yield func(domain.RawLead, error) bool) {
		if used.Swap(true) {
			yield(domain.RawLead{}, types.ErrSequenceConsumed)
			return
		}
		for _, loc := range q.Locations {
			for page := 1; page <= s.cfg.MaxPages; page++ {
				if err := ctx.Err(); err != nil {
					yield(domain.RawLead{}, eris.Wrap(err, "yellowpages: search"))
					return
				}
				leads, hasNext, err := s.fetchPage(ctx, q.Category, loc, page)
				if err != nil {
					zap.L().Warn("yellowpages: page fetch failed",
						zap.String("location", loc), zap.Int("page", page), zap.Error(err))
					if !yield(domain.RawLead{Location: loc, Page: page}, err) {
						return
					}
					break
				}
				for _, l := range leads {
					l.Category = q.Category
					if !yield(l, nil) {
						return
					}
				}
				if len(leads) == 0 || !hasNext {
					break
				}
			}
		}
	}
}

// FindContact searches the directory for one business and returns the first
// listing that carries a phone or website.
func (s *Scraper) FindContact(ctx context.Context, businessName, city string) (domain.EnrichmentCandidate, error) {
	where := strings.TrimSpace(city)
	if where == "" || where == normalize.UnknownCity {
		where = "ON"
	} else {
		where += " ON"
	}
	leads, _, err := s.fetchPage(ctx, businessName, where, 1)
	if err != nil {
		return domain.EnrichmentCandidate{}, err
	}
	for _, l := range leads {
		if l.Phone == "" && l.Website == "" {
			continue
		}
		return domain.EnrichmentCandidate{Phone: l.Phone, Website: l.Website, Source: domain.SourceDirectory}, nil
	}
	return domain.EnrichmentCandidate{}, types.ErrNotFound
}

func (s *Scraper) pageURL(what, where string, page int) string {
	return fmt.Sprintf("%s/search/si/%d/%s/%s", s.cfg.BaseURL, page, plusEscape(what), plusEscape(where))
}

func plusEscape(s string) string {
	return strings.ReplaceAll(url.PathEscape(normalize.CleanText(s)), "%20", "+")
}

func (s *Scraper) fetchPage(ctx context.Context, what, where string, page int) ([]domain.RawLead, bool, error) {
	u := s.pageURL(what, where, page)
	resp, err := s.f.Fetch(ctx, fetch.Request{URL: u, Timeout: s.cfg.Timeout})
	if err != nil {
		return nil, false, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, false, eris.Wrapf(err, "yellowpages: parse %s", u)
	}
	leads := parseListings(doc, where, page)
	hasNext := doc.Find(`a[rel="next"], a.pageButton--next`).Length() > 0
	zap.L().Debug("yellowpages: page parsed",
		zap.String("url", u), zap.Int("listings", len(leads)), zap.Bool("next", hasNext))
	return leads, hasNext, nil
}

func parseListings(doc *goquery.Document, location string, page int) []domain.RawLead {
	var out []domain.RawLead
	doc.Find("div.listing__content__wrapper").Each(func(_ int, item *goquery.Selection) {
		name := normalize.CleanText(item.Find("a.listing__name--link").First().Text())
		if name == "" {
			return
		}
		l := domain.RawLead{
			Name:     name,
			Address:  normalize.CleanText(item.Find("span.listing__address--full").First().Text()),
			Location: location,
			Page:     page,
			Source:   domain.SourceDirectory,
		}
		if pc := normalize.CleanText(item.Find(`[itemprop="postalCode"]`).First().Text()); pc != "" {
			l.PostalCode = pc
		}

		phoneSel := item.Find("h4.impl_phone_number, li.mlr__item--phone, [data-phone]").First()
		rawPhone, ok := phoneSel.Attr("data-phone")
		if !ok {
			rawPhone = phoneSel.Text()
		}
		if p, err := normalize.NormalizePhone(rawPhone); err == nil {
			l.Phone = p
		}

		if href, ok := item.Find("li.mlr__item--website a").First().Attr("href"); ok {
			l.Website = resolve.UnwrapRedirect(href)
		}
		out = append(out, l)
	})
	return out
}
