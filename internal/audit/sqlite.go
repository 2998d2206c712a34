// File: sqlite.go

// Package audit keeps a SQLite log of verification outcomes. Answers and
// solutions are never written.
package audit

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"captchaAuth/internal/challenge"
)

type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and makes sure the schema exists.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping audit database: %w", err)
	}
	// sqlite 单写者
	db.SetMaxOpenConns(1)

	a := &DB{db: db}
	if err := a.CreateTables(); err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

func (a *DB) Close() error {
	return a.db.Close()
}

func (a *DB) CreateTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS verifications (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			challenge_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			outcome TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_verifications_outcome ON verifications(kind, outcome)`,
	}
	for _, q := range queries {
		if _, err := a.db.Exec(q); err != nil {
			return fmt.Errorf("create audit schema: %w", err)
		}
	}
	return nil
}

// Record implements challenge.Recorder.
func (a *DB) Record(ctx context.Context, o challenge.Outcome) error {
	_, err := a.db.ExecContext(ctx,
		"INSERT INTO verifications (challenge_id, kind, outcome, created_at) VALUES (?, ?, ?, ?)",
		o.ChallengeID, string(o.Kind), o.Result, o.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record verification: %w", err)
	}
	return nil
}

// Counts returns the number of recorded outcomes per kind and result.
// Lookups that never resolved a kind are reported under "".
func (a *DB) Counts(ctx context.Context) (map[string]map[string]int, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT kind, outcome, COUNT(*) FROM verifications GROUP BY kind, outcome")
	if err != nil {
		return nil, fmt.Errorf("count verifications: %w", err)
	}
	defer rows.Close()

	out := make(map[string]map[string]int)
	for rows.Next() {
		var kind, outcome string
		var n int
		if err := rows.Scan(&kind, &outcome, &n); err != nil {
			return nil, fmt.Errorf("scan verification count: %w", err)
		}
		if out[kind] == nil {
			out[kind] = make(map[string]int)
		}
		out[kind][outcome] = n
	}
	return out, rows.Err()
}
