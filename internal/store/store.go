// Package store persists league snapshots and committed game results in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/derekprior/gridiron/internal/league"
)

// ErrNotFound is returned when a league has no saved snapshot.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS leagues (
	name       TEXT PRIMARY KEY,
	week       INTEGER NOT NULL,
	snapshot   TEXT NOT NULL,
	schedule   TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS game_results (
	id         TEXT PRIMARY KEY,
	league     TEXT NOT NULL,
	week       INTEGER NOT NULL,
	home       INTEGER NOT NULL,
	away       INTEGER NOT NULL,
	score_home INTEGER NOT NULL,
	score_away INTEGER NOT NULL,
	overtime   INTEGER NOT NULL,
	payload    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS game_results_league_week ON game_results (league, week);
`

// Store is a SQLite-backed season store.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the store at path, creating the schema when missing.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return nil
}

// SaveLeague writes l's snapshot, replacing any earlier snapshot with the
// same name. The schedule is stored separately in the nested shape.
func (s *Store) SaveLeague(ctx context.Context, l *league.League) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("league name is required")
	}

	sched, err := league.EncodeSchedule(l.Schedule)
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}
	snap := *l
	snap.Schedule = league.Schedule{}
	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("encode league: %w", err)
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO leagues (name, week, snapshot, schedule, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (name) DO UPDATE SET
	week = excluded.week,
	snapshot = excluded.snapshot,
	schedule = excluded.schedule,
	updated_at = excluded.updated_at
`,
		l.Name,
		l.Week,
		string(data),
		string(sched),
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save league: %w", err)
	}
	return nil
}

// LoadLeague reads the snapshot saved under name. Schedules in either the
// nested or the legacy flat shape are accepted.
func (s *Store) LoadLeague(ctx context.Context, name string) (*league.League, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var snapshot, sched string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT snapshot, schedule FROM leagues WHERE name = ?`, name).
		Scan(&snapshot, &sched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("league %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load league: %w", err)
	}

	var l league.League
	if err := json.Unmarshal([]byte(snapshot), &l); err != nil {
		return nil, fmt.Errorf("decode league %q: %w", name, err)
	}
	l.Schedule, err = league.DecodeSchedule([]byte(sched))
	if err != nil {
		return nil, fmt.Errorf("decode schedule of %q: %w", name, err)
	}
	l.EnsureResultWeeks()
	return &l, nil
}

// SaveResults records results under leagueName and returns how many were
// new. A result whose id is already stored is skipped, so saving the same
// batch twice is harmless.
func (s *Store) SaveResults(ctx context.Context, leagueName string, results []league.GameResult) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().UnixMilli()
	inserted := 0
	for _, r := range results {
		if strings.TrimSpace(r.ID) == "" {
			return 0, fmt.Errorf("week %d %d vs %d: result id is required", r.Week, r.Home, r.Away)
		}
		payload, err := json.Marshal(r)
		if err != nil {
			return 0, fmt.Errorf("encode result %s: %w", r.ID, err)
		}
		res, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO game_results (
	id,
	league,
	week,
	home,
	away,
	score_home,
	score_away,
	overtime,
	payload,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
			r.ID,
			leagueName,
			r.Week,
			int(r.Home),
			int(r.Away),
			r.ScoreHome,
			r.ScoreAway,
			r.Overtime,
			string(payload),
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("save result %s: %w", r.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("save result %s: %w", r.ID, err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit results: %w", err)
	}
	return inserted, nil
}

// Results lists the stored results of leagueName in commit order. A
// positive week limits the list to that week.
func (s *Store) Results(ctx context.Context, leagueName string, week int) ([]league.GameResult, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	query := `SELECT payload FROM game_results WHERE league = ?`
	args := []any{leagueName}
	if week > 0 {
		query += ` AND week = ?`
		args = append(args, week)
	}
	query += ` ORDER BY week, rowid`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []league.GameResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var r league.GameResult
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
