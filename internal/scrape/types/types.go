package types

import (
	"context"
	"iter"

	"github.com/rotisserie/eris"

	"northscrape-engine/internal/domain"
)

var (
	// ErrNotFound means a source had nothing for the lead. It is an expected
	// outcome, not a failure.
	ErrNotFound = eris.New("scrape: no qualifying result")

	ErrSequenceConsumed = eris.New("scrape: lead sequence already consumed")
)

// LeadSource turns a query into raw leads. The returned sequence may be
// ranged over once; a second pass yields ErrSequenceConsumed.
type LeadSource interface {
	Name() string
	Search(ctx context.Context, q domain.Query) iter.Seq2[domain.RawLead, error]
}

// ContactFinder looks up phone/website for a known business.
type ContactFinder interface {
	Name() string
	FindContact(ctx context.Context, businessName, city string) (domain.EnrichmentCandidate, error)
}
