package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"northscrape-engine/internal/domain"
)

const schemaVersion = 1

type SQLiteStore struct {
	Pool *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, eris.New("store: sqlite path is empty")
	}
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: open sqlite")
	}
	pool.SetMaxOpenConns(1) // one writer
	pool.SetConnMaxLifetime(5 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.PingContext(pctx); err != nil {
		_ = pool.Close()
		return nil, eris.Wrap(err, "store: ping sqlite")
	}
	if err := migrateSQLite(ctx, pool); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return &SQLiteStore{Pool: pool}, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: migrate")
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return eris.Wrap(err, "store: read schema version")
	}
	if v >= schemaVersion {
		return tx.Commit()
	}

	// ---- Schema v1 ----
	stmts := []string{`
CREATE TABLE IF NOT EXISTS history (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  run_id TEXT NOT NULL,
  category TEXT NOT NULL,
  locations TEXT NOT NULL DEFAULT '[]',
  at TEXT NOT NULL,
  result_count INTEGER NOT NULL DEFAULT 0
);`, `
CREATE TABLE IF NOT EXISTS run_leads (
  run_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  lead_key TEXT NOT NULL,
  data TEXT NOT NULL,
  PRIMARY KEY (run_id, position)
);`, `
CREATE INDEX IF NOT EXISTS idx_history_run_id
ON history(run_id);`,
		fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion),
	}
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return eris.Wrap(err, "store: migrate")
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) AppendHistory(ctx context.Context, e HistoryEntry) (HistoryEntry, error) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	e.At = e.At.UTC()
	locs, err := encodeLocations(e.Query.Locations)
	if err != nil {
		return HistoryEntry{}, eris.Wrap(err, "store: encode locations")
	}
	res, err := s.Pool.ExecContext(ctx, `
INSERT INTO history(run_id, category, locations, at, result_count)
VALUES(?,?,?,?,?);`,
		e.RunID, e.Query.Category, locs, e.At.Format(time.RFC3339Nano), e.ResultCount)
	if err != nil {
		return HistoryEntry{}, eris.Wrap(err, "store: append history")
	}
	e.ID, _ = res.LastInsertId()
	return e, nil
}

func (s *SQLiteStore) ListHistory(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := s.Pool.QueryContext(ctx, `
SELECT id, run_id, category, locations, at, result_count
FROM history
ORDER BY id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: list history")
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var (
			e        HistoryEntry
			locs, at string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.Query.Category, &locs, &at, &e.ResultCount); err != nil {
			return nil, eris.Wrap(err, "store: scan history")
		}
		e.Query.Locations = decodeLocations(locs)
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: list history")
	}
	return out, nil
}

// SaveLeads replaces the stored snapshot of runID.
func (s *SQLiteStore) SaveLeads(ctx context.Context, runID string, leads []domain.Lead) error {
	tx, err := s.Pool.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "store: save leads")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_leads WHERE run_id = ?;`, runID); err != nil {
		return eris.Wrap(err, "store: save leads")
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO run_leads(run_id, position, lead_key, data)
VALUES(?,?,?,?);`)
	if err != nil {
		return eris.Wrap(err, "store: save leads")
	}
	defer stmt.Close()

	for i, l := range leads {
		data, err := encodeLead(l)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, runID, i, l.Key, data); err != nil {
			return eris.Wrapf(err, "store: save lead %q", l.Name)
		}
	}
	return eris.Wrap(tx.Commit(), "store: save leads")
}

func (s *SQLiteStore) LoadLeads(ctx context.Context, runID string) ([]domain.Lead, error) {
	rows, err := s.Pool.QueryContext(ctx, `
SELECT data FROM run_leads
WHERE run_id = ?
ORDER BY position;`, runID)
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
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "store: load leads")
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.Pool == nil {
		return nil
	}
	return s.Pool.Close()
}
