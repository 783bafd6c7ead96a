// Package store persists run history and the lead snapshots of finished runs.
package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"northscrape-engine/internal/domain"
)

var ErrUnknownDriver = eris.New("store: unknown driver")

// HistoryEntry is one finished run as the history list shows it.
type HistoryEntry struct {
	ID          int64        `json:"id"`
	RunID       string       `json:"run_id"`
	Query       domain.Query `json:"query"`
	At          time.Time    `json:"at"`
	ResultCount int          `json:"result_count"`
}

// Store is append-only run history plus the leads each run produced.
type Store interface {
	AppendHistory(ctx context.Context, e HistoryEntry) (HistoryEntry, error)
	// ListHistory returns at most limit entries, newest first. limit <= 0
	// returns everything.
	ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error)
	SaveLeads(ctx context.Context, runID string, leads []domain.Lead) error
	LoadLeads(ctx context.Context, runID string) ([]domain.Lead, error)
	Close() error
}

// Open returns the store for driver ("sqlite" or "postgres"). For sqlite the
// dsn is a file path.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		return OpenSQLite(ctx, dsn)
	case "postgres", "postgresql", "pg":
		return OpenPostgres(ctx, dsn)
	default:
		return nil, eris.Wrapf(ErrUnknownDriver, "driver %q", driver)
	}
}

func encodeLocations(locs []string) (string, error) {
	if locs == nil {
		locs = []string{}
	}
	b, err := json.Marshal(locs)
	return string(b), err
}

func decodeLocations(s string) []string {
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func encodeLead(l domain.Lead) (string, error) {
	b, err := json.Marshal(l)
	if err != nil {
		return "", eris.Wrapf(err, "store: encode lead %q", l.Name)
	}
	return string(b), nil
}

func decodeLead(s string) (domain.Lead, error) {
	var l domain.Lead
	if err := json.Unmarshal([]byte(s), &l); err != nil {
		return domain.Lead{}, eris.Wrap(err, "store: decode lead")
	}
	return l, nil
}
