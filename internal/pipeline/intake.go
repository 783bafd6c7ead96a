package pipeline

import (
	"iter"

	"northscrape-engine/internal/domain"
	"northscrape-engine/internal/normalize"
	"northscrape-engine/internal/resolve"
)

// intake is a lead on its way into a run.
type intake struct {
	lead    domain.Lead
	listing *domain.EnrichmentCandidate
}

func fromDirectory(seq iter.Seq2[domain.RawLead, error]) iter.Seq2[intake, error] {
	return func(yield func(intake, error) bool) {
		for raw, err := range seq {
			if err != nil {
				if !yield(intake{}, err) {
					return
				}
				continue
			}
			if !yield(newDirectoryIntake(raw), nil) {
				return
			}
		}
	}
}

func newDirectoryIntake(raw domain.RawLead) intake {
	l := domain.Lead{
		Name:       raw.Name,
		RawAddress: raw.Address,
		Address:    normalize.NormalizeAddress(raw.Address, raw.PostalCode),
		Status:     domain.LeadPending,
		Category:   raw.Category,
		Location:   raw.Location,
		Provenance: domain.Provenance{Name: raw.Source, Address: raw.Source},
	}
	in := intake{lead: l}
	if raw.Phone != "" || raw.Website != "" {
		in.listing = &domain.EnrichmentCandidate{Phone: raw.Phone, Website: raw.Website, Source: raw.Source}
	}
	return in
}

func fromImport(leads []domain.Lead) iter.Seq2[intake, error] {
	return func(yield func(intake, error) bool) {
		for _, l := range leads {
			if !yield(newImportIntake(l), nil) {
				return
			}
		}
	}
}

// newImportIntake keeps the imported values that are already canonical. A lead with a valid phone and a
// well-formed website needs no enrichment.
func newImportIntake(l domain.Lead) intake {
	l = l.Clone()
	l.FailureReason = ""
	if l.Provenance.Name == domain.SourceNone {
		l.Provenance.Name = domain.SourceImport
		l.Provenance.Address = domain.SourceImport
	}

	// a malformed value is dropped, never carried into the run
	phone, phoneErr := normalize.NormalizePhone(l.Phone)
	switch {
	case phoneErr == nil:
		l.Phone = phone
		if l.Provenance.Phone == domain.SourceNone {
			l.Provenance.Phone = domain.SourceImport
		}
	case l.Phone != "":
		l.Phone = ""
		l.Provenance.Phone = domain.SourceNone
		l.FlagReview(domain.ReasonInvalidPhone)
	}
	site, siteErr := resolve.Canonicalize(l.Website)
	switch {
	case siteErr == nil:
		l.Website = site
		if l.Provenance.Website == domain.SourceNone {
			l.Provenance.Website = domain.SourceImport
		}
	case l.Website != "":
		l.Website = ""
		l.Provenance.Website = domain.SourceNone
		l.FlagReview(domain.ReasonInvalidWebsite)
	}

	if phoneErr == nil && siteErr == nil {
		l.Status = domain.LeadSkipped
	} else {
		l.Status = domain.LeadPending
	}
	return intake{lead: l}
}
