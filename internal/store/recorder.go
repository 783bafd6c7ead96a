package store

import (
	"context"

	"github.com/rotisserie/eris"

	"northscrape-engine/internal/domain"
)

// Recorder writes a completed run to a Store: its leads first, then the
// history entry that points at them.
type Recorder struct {
	Store Store
}

func (r Recorder) RecordRun(ctx context.Context, s domain.Summary, leads []domain.Lead) error {
	if err := r.Store.SaveLeads(ctx, s.RunID, leads); err != nil {
		return eris.Wrapf(err, "store: record run %s", s.RunID)
	}
	at := s.StartedAt
	if s.FinishedAt != nil {
		at = *s.FinishedAt
	}
	_, err := r.Store.AppendHistory(ctx, HistoryEntry{
		RunID:       s.RunID,
		Query:       s.Query,
		At:          at,
		ResultCount: len(leads),
	})
	if err != nil {
		return eris.Wrapf(err, "store: record run %s", s.RunID)
	}
	return nil
}
