// Package history keeps an append-only log of answered questions in SQLite.
// The log is for review only; it is never consulted to answer a question.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dgallion1/docqa/internal/qa"
)

// Run is one answered question.
type Run struct {
	ID       int64     `json:"id"`
	At       time.Time `json:"at"`
	Source   string    `json:"source"`
	Format   string    `json:"format"`
	Model    string    `json:"model"`
	Question string    `json:"question"`
	Chunks   int       `json:"chunks"`
	Failed   int       `json:"failed"`
	Answer   string    `json:"answer"`
}

// FromAnswer builds the run record for an aggregate answer.
func FromAnswer(agg *qa.AggregateAnswer, format string, at time.Time) Run {
	return Run{
		At:       at,
		Source:   agg.Source,
		Format:   format,
		Model:    agg.Model,
		Question: agg.Question,
		Chunks:   agg.TotalChunks,
		Failed:   len(agg.Failures),
		Answer:   agg.String(),
	}
}

type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the history database at path. ":memory:" keeps it
// in process.
func Open(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// A single connection serialises writers and keeps :memory: databases shared.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn, path: path}
	if err := db.setupTables(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to setup history tables: %w", err)
	}
	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Path() string {
	return db.path
}

func (db *DB) setupTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			at TEXT NOT NULL,
			source TEXT NOT NULL,
			format TEXT NOT NULL,
			model TEXT NOT NULL,
			question TEXT NOT NULL,
			chunks INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			answer TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_at ON runs(at)`,
	}
	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %s, error: %w", query, err)
		}
	}
	return nil
}

// Record appends r and sets its ID.
func (db *DB) Record(ctx context.Context, r *Run) error {
	if r.At.IsZero() {
		r.At = time.Now()
	}
	query := `INSERT INTO runs (at, source, format, model, question, chunks, failed, answer)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`
	err := db.conn.QueryRowContext(ctx, query,
		r.At.UTC().Format(time.RFC3339Nano), r.Source, r.Format, r.Model,
		r.Question, r.Chunks, r.Failed, r.Answer,
	).Scan(&r.ID)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (db *DB) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, at, source, format, model, question, chunks, failed, answer
		FROM runs ORDER BY id DESC LIMIT ?`
	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var at string
		if err := rows.Scan(&r.ID, &at, &r.Source, &r.Format, &r.Model, &r.Question, &r.Chunks, &r.Failed, &r.Answer); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("failed to parse time of run %d: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}
