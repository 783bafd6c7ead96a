package yellowpages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"northscrape-engine/internal/domain"
	"northscrape-engine/internal/fetch"
	"northscrape-engine/internal/scrape/types"
)

func listing(name, addr, phone, website string) string {
	out := `<div class="listing__content__wrapper">
  <a class="listing__name--link" href="/bus/x">` + name + `</a>
  <span class="listing__address--full">` + addr + `</span>`
	if phone != "" {
		out += `<ul><li class="mlr__item--phone"><a>` + phone + `</a></li></ul>`
	}
	if website != "" {
		out += `<ul><li class="mlr__item--website"><a href="` + website + `">Website</a></li></ul>`
	}
	return out + "</div>"
}

func page(next bool, items ...string) string {
	out := "<html><body>"
	for _, it := range items {
		out += it
	}
	if next {
		out += `<a rel="next" href="#">Next</a>`
	}
	return out + "</body></html>"
}

type directoryServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newDirectoryServer(t *testing.T) *directoryServer {
	t.Helper()
	ds := &directoryServer{}
	pages := map[string]string{
		"/search/si/1/Plumbers/Sudbury": page(true,
			listing("Bob's Plumbing", "123 Main St, Sudbury, ON P3A 1B2", "705-555-0101", "/gourl/1?redirect=http%3A%2F%2Fbobsplumbing.ca"),
			listing("Nickel City Drains", "9 Elm St, Sudbury, ON P3C 1T2", "", "")),
		"/search/si/2/Plumbers/Sudbury": page(false,
			listing("Lasalle Pipes", "400 Lasalle Blvd, Sudbury, ON P3A 1W8", "(705) 555-0303", "")),
		"/search/si/1/Plumbers/North+Bay": page(false,
			listing("Bay Plumbing", "55 Main St W, North Bay, ON P1B 2T6", "705 555 0404", "")),
		"/search/si/1/Bob's+Plumbing/Sudbury+ON": page(false,
			listing("Bob's Plumbing", "123 Main St, Sudbury, ON P3A 1B2", "705-555-0101", "/gourl/1?redirect=http%3A%2F%2Fbobsplumbing.ca")),
	}
	ds.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ds.hits.Add(1)
		if r.URL.Path == "/search/si/1/Plumbers/Timmins" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		body, ok := pages[r.URL.Path]
		if !ok {
			body = page(false)
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ds.Close)
	return ds
}

func newScraper(base string, maxPages int) *Scraper {
	return New(Config{BaseURL: base, MaxPages: maxPages}, fetch.NewHTTPFetcher(fetch.Options{Timeout: time.Second}))
}

func TestSearch_PaginatesAndContinuesPastFailedLocation(t *testing.T) {
	ds := newDirectoryServer(t)
	s := newScraper(ds.URL, 5)

	var names []string
	var errs []error
	for l, err := range s.Search(context.Background(), domain.Query{Category: "Plumbers", Locations: []string{"Sudbury", "Timmins", "North Bay"}}) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		names = append(names, l.Name)
		assert.Equal(t, "Plumbers", l.Category)
		assert.Equal(t, domain.SourceDirectory, l.Source)
	}

	assert.Equal(t, []string{"Bob's Plumbing", "Nickel City Drains", "Lasalle Pipes", "Bay Plumbing"}, names)
	require.Len(t, errs, 1)
	assert.True(t, fetch.IsKind(errs[0], fetch.KindHTTP5xx))
}

func TestSearch_ParsesListingFields(t *testing.T) {
	ds := newDirectoryServer(t)
	s := newScraper(ds.URL, 1)

	var got []domain.RawLead
	for l, err := range s.Search(context.Background(), domain.Query{Category: "Plumbers", Locations: []string{"Sudbury"}}) {
		require.NoError(t, err)
		got = append(got, l)
	}
	require.Len(t, got, 2)
	assert.Equal(t, "123 Main St, Sudbury, ON P3A 1B2", got[0].Address)
	assert.Equal(t, "(705) 555-0101", got[0].Phone)
	assert.Equal(t, "http://bobsplumbing.ca", got[0].Website)
	assert.Equal(t, "Sudbury", got[0].Location)
	assert.Equal(t, 1, got[0].Page)
	assert.Empty(t, got[1].Phone)
}

func TestSearch_PageCeiling(t *testing.T) {
	ds := newDirectoryServer(t)
	s := newScraper(ds.URL, 1)

	n := 0
	for _, err := range s.Search(context.Background(), domain.Query{Category: "Plumbers", Locations: []string{"Sudbury"}}) {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, int32(1), ds.hits.Load())
}

func TestSearch_NotRestartable(t *testing.T) {
	ds := newDirectoryServer(t)
	seq := newScraper(ds.URL, 5).Search(context.Background(), domain.Query{Category: "Plumbers", Locations: []string{"North Bay"}})

	for _, err := range seq {
		require.NoError(t, err)
	}
	var second []error
	for _, err := range seq {
		second = append(second, err)
	}
	require.Len(t, second, 1)
	assert.ErrorIs(t, second[0], types.ErrSequenceConsumed)
}

func TestSearch_StopsFetchingWhenConsumerStops(t *testing.T) {
	ds := newDirectoryServer(t)
	s := newScraper(ds.URL, 5)

	for range s.Search(context.Background(), domain.Query{Category: "Plumbers", Locations: []string{"Sudbury", "North Bay"}}) {
		break
	}
	assert.Equal(t, int32(1), ds.hits.Load())
}

func TestSearch_CancelledContext(t *testing.T) {
	ds := newDirectoryServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var errs []error
	for _, err := range newScraper(ds.URL, 5).Search(ctx, domain.Query{Category: "Plumbers", Locations: []string{"Sudbury"}}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.Canceled)
	assert.Equal(t, int32(0), ds.hits.Load())
}

func TestFindContact(t *testing.T) {
	ds := newDirectoryServer(t)
	s := newScraper(ds.URL, 5)

	cand, err := s.FindContact(context.Background(), "Bob's Plumbing", "Sudbury")
	require.NoError(t, err)
	assert.Equal(t, "(705) 555-0101", cand.Phone)
	assert.Equal(t, "http://bobsplumbing.ca", cand.Website)
	assert.Equal(t, domain.SourceDirectory, cand.Source)

	_, err = s.FindContact(context.Background(), "Nobody Here", "Sudbury")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
