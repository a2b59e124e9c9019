package qec

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS sweeps (
	id         TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS reports (
	sweep_id           TEXT NOT NULL REFERENCES sweeps(id),
	point              INTEGER NOT NULL,
	noise_level        REAL NOT NULL,
	mode               INTEGER NOT NULL,
	criterion          INTEGER NOT NULL,
	shots              INTEGER NOT NULL,
	executed           INTEGER NOT NULL,
	attempts           INTEGER NOT NULL,
	accepted           INTEGER NOT NULL,
	successes          INTEGER NOT NULL,
	corrections        INTEGER NOT NULL,
	ambiguous          INTEGER NOT NULL,
	verified           INTEGER NOT NULL,
	execution_failures INTEGER NOT NULL,
	partial            INTEGER NOT NULL,
	histogram          BLOB,
	PRIMARY KEY (sweep_id, point)
);`

// Store persists fidelity reports in SQLite.
type Store struct {
	conn *sql.DB
	path string
}

// OpenStore opens or creates the database at path. ":memory:" keeps it in memory.
func OpenStore(path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// one connection, so an in-memory database is shared by every query
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn, path: path}
	if err := s.Migrate(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

/*
SaveSweep writes all reports of one sweep in a transaction. The reports must
share a sweep id; an empty id is replaced by a fresh one. The id is returned.
*/
func (s *Store) SaveSweep(ctx context.Context, reports []*FidelityReport) (string, error) {
	id := ""
	for _, r := range reports {
		if r.SweepID != "" {
			id = r.SweepID
			break
		}
	}
	if id == "" {
		id = uuid.NewString()
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sweeps (id, created_at) VALUES (?, ?)`,
		id, time.Now().Unix(),
	); err != nil {
		return "", fmt.Errorf("failed to insert sweep: %w", err)
	}

	for point, r := range reports {
		if r.SweepID != "" && r.SweepID != id {
			return "", fmt.Errorf("%w: report %d belongs to sweep %s", ErrParameterBounds, point, r.SweepID)
		}

		hist, err := msgpack.Marshal(r.ErrorHistogram)
		if err != nil {
			return "", fmt.Errorf("failed to encode histogram: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO reports (
				sweep_id, point, noise_level, mode, criterion, shots, executed, attempts,
				accepted, successes, corrections, ambiguous, verified, execution_failures,
				partial, histogram
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, point, r.NoiseLevel, int(r.Mode), int(r.Criterion), r.Shots, r.Executed, r.Attempts,
			r.Accepted, r.Successes, r.Corrections, r.Ambiguous, r.Verified, r.ExecutionFailures,
			r.Partial, hist,
		); err != nil {
			return "", fmt.Errorf("failed to insert report %d: %w", point, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return id, nil
}

// LoadSweep reads back the reports of a sweep in point order.
func (s *Store) LoadSweep(ctx context.Context, id string) ([]*FidelityReport, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT noise_level, mode, criterion, shots, executed, attempts, accepted, successes,
		       corrections, ambiguous, verified, execution_failures, partial, histogram
		FROM reports WHERE sweep_id = ? ORDER BY point`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var reports []*FidelityReport
	for rows.Next() {
		var (
			mode, criterion int
			hist            []byte
		)
		r := &FidelityReport{SweepID: id}
		if err := rows.Scan(
			&r.NoiseLevel, &mode, &criterion, &r.Shots, &r.Executed, &r.Attempts, &r.Accepted,
			&r.Successes, &r.Corrections, &r.Ambiguous, &r.Verified, &r.ExecutionFailures,
			&r.Partial, &hist,
		); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		r.Mode, r.Criterion = Mode(mode), Criterion(criterion)

		r.ErrorHistogram = make(map[int]int)
		if len(hist) > 0 {
			if err := msgpack.Unmarshal(hist, &r.ErrorHistogram); err != nil {
				return nil, fmt.Errorf("failed to decode histogram: %w", err)
			}
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// Sweeps lists stored sweep ids, newest first.
func (s *Store) Sweeps(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id FROM sweeps ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweeps: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan sweep: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
