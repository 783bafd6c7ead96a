// Package merge reconciles a lead with the contact data its sources offered.
package merge

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"northscrape-engine/internal/domain"
	"northscrape-engine/internal/normalize"
)

const (
	ReasonNoWebsite   = "no website"
	ReasonNoPhone     = "no phone"
	ReasonUnknownCity = "city unknown"
)

var errNoWebsite = eris.New("merge: no website")

// Resolver validates a candidate website and returns its canonical form.
type Resolver interface {
	Resolve(ctx context.Context, candidate string) (string, error)
}

type Merger struct {
	resolver Resolver
}

func New(r Resolver) *Merger {
	return &Merger{resolver: r}
}

// Merge returns lead with phone and website chosen from the candidates:
//
//   - phone: directory if it normalises, else search, else whatever the lead
//     already carried;
//   - website: the first of search, directory that resolves, else the lead's
//     own; a lead left without one is flagged for review.
//
// Either candidate may be nil. The input lead is not modified.
func (m *Merger) Merge(ctx context.Context, lead domain.Lead, dir, search *domain.EnrichmentCandidate) domain.Lead {
	out := lead.Clone()
	out.Name = normalize.NormalizeName(out.Name)
	if out.Address.City == "" {
		out.Address = normalize.NormalizeAddress(out.RawAddress, out.Address.PostalCode)
	}

	if p, src, ok := pickPhone(dir, search); ok {
		out.Phone = p
		out.Provenance.Phone = src
	} else if p, err := normalize.NormalizePhone(out.Phone); err == nil {
		out.Phone = p
	} else {
		out.Phone = ""
		out.Provenance.Phone = domain.SourceNone
	}

	if w, src, ok := m.pickWebsite(ctx, out.Name, search, dir); ok {
		out.Website = w
		out.Provenance.Website = src
	} else if w, err := m.resolveExisting(ctx, out.Website); err == nil {
		out.Website = w
	} else {
		out.Website = ""
		out.Provenance.Website = domain.SourceNone
	}

	if out.Website == "" {
		out.FlagReview(ReasonNoWebsite)
	}
	if out.Phone == "" {
		out.FlagReview(ReasonNoPhone)
	}
	if out.Address.NeedsReview {
		out.FlagReview(ReasonUnknownCity)
	}
	out.Status = domain.LeadEnriched
	out.FailureReason = ""
	return out
}

func pickPhone(cands ...*domain.EnrichmentCandidate) (string, domain.Source, bool) {
	for _, c := range cands {
		if c == nil || c.Phone == "" {
			continue
		}
		if p, err := normalize.NormalizePhone(c.Phone); err == nil {
			return p, c.Source, true
		}
	}
	return "", domain.SourceNone, false
}

func (m *Merger) pickWebsite(ctx context.Context, name string, cands ...*domain.EnrichmentCandidate) (string, domain.Source, bool) {
	for _, c := range cands {
		if c == nil || c.Website == "" {
			continue
		}
		w, err := m.resolver.Resolve(ctx, c.Website)
		if err != nil {
			zap.L().Debug("merge: website rejected",
				zap.String("lead", name), zap.String("source", string(c.Source)),
				zap.String("candidate", c.Website), zap.Error(err))
			continue
		}
		return w, c.Source, true
	}
	return "", domain.SourceNone, false
}

func (m *Merger) resolveExisting(ctx context.Context, website string) (string, error) {
	if website == "" {
		return "", errNoWebsite
	}
	return m.resolver.Resolve(ctx, website)
}
