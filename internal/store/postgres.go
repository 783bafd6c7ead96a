package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"northscrape-engine/internal/domain"
)

// pgPool is the part of pgxpool.Pool the store needs.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

type PostgresStore struct {
	pool pgPool
}

var _ Store = (*PostgresStore)(nil)

func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: ping postgres")
	}
	s := NewPostgres(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres wraps an existing pool. The store owns it from then on.
func NewPostgres(pool pgPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS northscrape_history (
  id BIGSERIAL PRIMARY KEY,
  run_id TEXT NOT NULL,
  category TEXT NOT NULL,
  locations TEXT NOT NULL DEFAULT '[]',
  at TIMESTAMPTZ NOT NULL,
  result_count INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS northscrape_run_leads (
  run_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  lead_key TEXT NOT NULL,
  data TEXT NOT NULL,
  PRIMARY KEY (run_id, position)
);`)
	return eris.Wrap(err, "store: migrate postgres")
}

func (s *PostgresStore) AppendHistory(ctx context.Context, e HistoryEntry) (HistoryEntry, error) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	e.At = e.At.UTC()
	locs, err := encodeLocations(e.Query.Locations)
	if err != nil {
		return HistoryEntry{}, eris.Wrap(err, "store: encode locations")
	}
	err = s.pool.QueryRow(ctx, `
INSERT INTO northscrape_history (run_id, category, locations, at, result_count)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`,
		e.RunID, e.Query.Category, locs, e.At, e.ResultCount).Scan(&e.ID)
	if err != nil {
		return HistoryEntry{}, eris.Wrap(err, "store: append history")
	}
	return e, nil
}

func (s *PostgresStore) ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	q := `SELECT id, run_id, category, locations, at, result_count
FROM northscrape_history
ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "store: list history")
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			e    HistoryEntry
			locs string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Query.Category, &locs, &e.At, &e.ResultCount); err != nil {
			return nil, eris.Wrap(err, "store: scan history")
		}
		e.Query.Locations = decodeLocations(locs)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "store: list history")
}

// SaveLeads replaces the stored snapshot of runID in one transaction.
func (s *PostgresStore) SaveLeads(ctx context.Context, runID string, leads []domain.Lead) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "store: save leads")
	}
	if err := saveLeadsTx(ctx, tx, runID, leads); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "store: save leads")
}

func saveLeadsTx(ctx context.Context, tx pgx.Tx, runID string, leads []domain.Lead) error {
	if _, err := tx.Exec(ctx, `DELETE FROM northscrape_run_leads WHERE run_id = $1`, runID); err != nil {
		return eris.Wrap(err, "store: save leads")
	}
	for i, l := range leads {
		data, err := encodeLead(l)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
INSERT INTO northscrape_run_leads (run_id, position, lead_key, data)
VALUES ($1, $2, $3, $4)`, runID, i, l.Key, data); err != nil {
			return eris.Wrapf(err, "store: save lead %q", l.Name)
		}
	}
	return nil
}

func (s *PostgresStore) LoadLeads(ctx context.Context, runID string) ([]domain.Lead, error) {
	rows, err := s.pool.Query(ctx, `
SELECT data FROM northscrape_run_leads
WHERE run_id = $1
ORDER BY position`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "store: load leads")
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "store: scan lead")
		}
		l, err := decodeLead(data)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, eris.Wrap(rows.Err(), "store: load leads")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
