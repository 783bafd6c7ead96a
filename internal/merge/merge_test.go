package merge

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"

	"northscrape-engine/internal/domain"
	"northscrape-engine/internal/normalize"
	"northscrape-engine/internal/resolve"
)

// fakeResolver answers from a table and records what it was asked.
type fakeResolver struct {
	mu    sync.Mutex
	ok    map[string]string
	calls []string
}

func (f *fakeResolver) Resolve(_ context.Context, candidate string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, candidate)
	if resolve.Blocklist(resolve.DefaultBlocklist).BlockedURL(candidate) {
		return "", eris.Wrap(resolve.ErrNotABusinessSite, candidate)
	}
	if w, ok := f.ok[candidate]; ok {
		return w, nil
	}
	return "", eris.Wrap(resolve.ErrUnreachable, candidate)
}

func baseLead() domain.Lead {
	addr := normalize.NormalizeAddress("123 Main St, Sudbury, ON P3A 1B2", "")
	return domain.Lead{
		Key:        normalize.IdentityKey("Bob's Plumbing", addr),
		Name:       "  Bob's   Plumbing ",
		RawAddress: "123 Main St, Sudbury, ON P3A 1B2",
		Address:    addr,
		Status:     domain.LeadEnriching,
	}
}

func TestMerge_DirectoryPhoneWins(t *testing.T) {
	m := New(&fakeResolver{})
	dir := &domain.EnrichmentCandidate{Phone: "705-555-0101", Source: domain.SourceDirectory}
	search := &domain.EnrichmentCandidate{Phone: "705-555-9999", Source: domain.SourceSearch}

	got := m.Merge(context.Background(), baseLead(), dir, search)
	assert.Equal(t, "(705) 555-0101", got.Phone)
	assert.Equal(t, domain.SourceDirectory, got.Provenance.Phone)
	assert.Equal(t, "Bob's Plumbing", got.Name)
	assert.Equal(t, domain.LeadEnriched, got.Status)
}

func TestMerge_InvalidDirectoryPhoneFallsBackToSearch(t *testing.T) {
	m := New(&fakeResolver{})
	dir := &domain.EnrichmentCandidate{Phone: "555-0101", Source: domain.SourceDirectory}
	search := &domain.EnrichmentCandidate{Phone: "+1 705 555 9999", Source: domain.SourceSearch}

	got := m.Merge(context.Background(), baseLead(), dir, search)
	assert.Equal(t, "(705) 555-9999", got.Phone)
	assert.Equal(t, domain.SourceSearch, got.Provenance.Phone)
}

func TestMerge_NoPhoneAnywhere(t *testing.T) {
	got := New(&fakeResolver{}).Merge(context.Background(), baseLead(), nil, &domain.EnrichmentCandidate{Phone: "n/a"})
	assert.Empty(t, got.Phone)
	assert.Contains(t, got.ReviewReasons, ReasonNoPhone)
	assert.Equal(t, domain.LeadEnriched, got.Status)
}

func TestMerge_SearchWebsitePreferredOverAggregator(t *testing.T) {
	r := &fakeResolver{ok: map[string]string{"https://bobsplumbing.ca/?utm_source=ddg": "https://bobsplumbing.ca"}}
	dir := &domain.EnrichmentCandidate{Phone: "705-555-0101", Website: "https://www.yellowpages.ca/bus/Ontario/Sudbury/Bobs/1.html", Source: domain.SourceDirectory}
	search := &domain.EnrichmentCandidate{Website: "https://bobsplumbing.ca/?utm_source=ddg", Source: domain.SourceSearch}

	got := New(r).Merge(context.Background(), baseLead(), dir, search)
	assert.Equal(t, "https://bobsplumbing.ca", got.Website)
	assert.Equal(t, domain.SourceSearch, got.Provenance.Website)
	assert.False(t, got.NeedsReview)
	assert.Equal(t, []string{"https://bobsplumbing.ca/?utm_source=ddg"}, r.calls)
}

func TestMerge_SearchWebsiteUnresolvableFallsBackToDirectory(t *testing.T) {
	r := &fakeResolver{ok: map[string]string{"http://bobs.ca": "http://bobs.ca"}}
	dir := &domain.EnrichmentCandidate{Website: "http://bobs.ca", Source: domain.SourceDirectory}
	search := &domain.EnrichmentCandidate{Website: "https://dead.example", Source: domain.SourceSearch}

	got := New(r).Merge(context.Background(), baseLead(), dir, search)
	assert.Equal(t, "http://bobs.ca", got.Website)
	assert.Equal(t, domain.SourceDirectory, got.Provenance.Website)
}

func TestMerge_NoResolvableWebsiteFlagsReviewNotFailure(t *testing.T) {
	dir := &domain.EnrichmentCandidate{Phone: "705-555-0101", Website: "https://www.yelp.ca/biz/bobs", Source: domain.SourceDirectory}
	search := &domain.EnrichmentCandidate{Website: "https://dead.example", Source: domain.SourceSearch}

	got := New(&fakeResolver{}).Merge(context.Background(), baseLead(), dir, search)
	assert.Empty(t, got.Website)
	assert.True(t, got.NeedsReview)
	assert.Equal(t, []string{ReasonNoWebsite}, got.ReviewReasons)
	assert.Equal(t, domain.LeadEnriched, got.Status)
}

func TestMerge_KeepsExistingDataWhenSourcesHaveNothing(t *testing.T) {
	lead := baseLead()
	lead.Phone = "7055550101"
	lead.Website = "https://bobs.ca"
	r := &fakeResolver{ok: map[string]string{"https://bobs.ca": "https://bobs.ca"}}

	got := New(r).Merge(context.Background(), lead, nil, nil)
	assert.Equal(t, "(705) 555-0101", got.Phone)
	assert.Equal(t, "https://bobs.ca", got.Website)
	assert.False(t, got.NeedsReview)
}

func TestMerge_UnknownCityFlagged(t *testing.T) {
	lead := domain.Lead{Name: "Far Away Co", RawAddress: "1 King St, ON M5H 1A1"}
	got := New(&fakeResolver{}).Merge(context.Background(), lead, &domain.EnrichmentCandidate{Phone: "416-555-0100", Source: domain.SourceDirectory}, nil)
	assert.Equal(t, normalize.UnknownCity, got.Address.City)
	assert.Contains(t, got.ReviewReasons, ReasonUnknownCity)
}

func TestMerge_DoesNotModifyInput(t *testing.T) {
	lead := baseLead()
	lead.ReviewReasons = []string{"imported"}
	_ = New(&fakeResolver{}).Merge(context.Background(), lead, nil, nil)
	assert.Equal(t, []string{"imported"}, lead.ReviewReasons)
	assert.Equal(t, domain.LeadEnriching, lead.Status)
}
