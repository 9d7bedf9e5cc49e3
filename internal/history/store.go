// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history persists completed research runs in a SQLite database and
// retrieves them by id, recency, or full-text search over queries and
// summaries.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

const dbFile = "research.db"

const defaultMaxResults = 20

// Store manages the research history SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the history database at dir/research.db,
// creating the schema if it does not exist.
func NewStore(cfg types.HistoryConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("history directory not configured")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT NOT NULL,
			depth TEXT NOT NULL,
			summary TEXT NOT NULL,
			iterations INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_sources (
			run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			url TEXT NOT NULL,
			title TEXT,
			snippet TEXT,
			author TEXT,
			published_date TEXT,
			accessed_at TEXT,
			PRIMARY KEY (run_id, position)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='runs_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE runs_fts USING fts5(query, summary, content=runs, content_rowid=id)`,
			`CREATE TRIGGER runs_ai AFTER INSERT ON runs BEGIN
				INSERT INTO runs_fts(rowid, query, summary) VALUES (new.id, new.query, new.summary);
			END`,
			`CREATE TRIGGER runs_ad AFTER DELETE ON runs BEGIN
				INSERT INTO runs_fts(runs_fts, rowid, query, summary) VALUES('delete', old.id, old.query, old.summary);
			END`,
			`CREATE TRIGGER runs_au AFTER UPDATE ON runs BEGIN
				INSERT INTO runs_fts(runs_fts, rowid, query, summary) VALUES('delete', old.id, old.query, old.summary);
				INSERT INTO runs_fts(rowid, query, summary) VALUES (new.id, new.query, new.summary);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// Run is a stored research run.
type Run struct {
	ID                   int64 `json:"id" yaml:"id"`
	types.ResearchResult `yaml:",inline"`
}

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	ID          int64               `json:"id" yaml:"id"`
	Query       string              `json:"query" yaml:"query"`
	Depth       types.ResearchDepth `json:"depth" yaml:"depth"`
	SourceCount int                 `json:"source_count" yaml:"source_count"`
	CreatedAt   time.Time           `json:"created_at" yaml:"created_at"`
}

// SaveRun stores a completed run and its sources. It returns the assigned
// run id.
func (s *Store) SaveRun(ctx context.Context, res *types.ResearchResult) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO runs (query, depth, summary, iterations, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		res.Query,
		string(res.Depth),
		res.Summary,
		res.Iterations,
		res.Duration.Milliseconds(),
		res.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	for i, src := range res.Sources {
		var accessedAt string
		if !src.AccessedAt.IsZero() {
			accessedAt = src.AccessedAt.UTC().Format(time.RFC3339Nano)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_sources (run_id, position, url, title, snippet, author, published_date, accessed_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i+1, src.URL, src.Title, src.Snippet, src.Author, src.PublishedDate, accessedAt,
		); err != nil {
			return 0, fmt.Errorf("inserting source %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// GetRun loads a stored run with its sources.
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	var (
		run        Run
		depth      string
		durationMS int64
		createdAt  string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, query, depth, summary, iterations, duration_ms, created_at
		 FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Query, &depth, &run.Summary, &run.Iterations, &durationMS, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading run %d: %w", id, err)
	}

	run.Depth = types.ResearchDepth(depth)
	run.Duration = time.Duration(durationMS) * time.Millisecond
	run.Timestamp, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing run %d timestamp: %w", id, err)
	}

	run.Sources, err = s.runSources(ctx, id)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *Store) runSources(ctx context.Context, id int64) ([]types.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, title, snippet, author, published_date, accessed_at
		 FROM run_sources WHERE run_id = ? ORDER BY position`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("loading sources for run %d: %w", id, err)
	}
	defer rows.Close()

	var sources []types.Source
	for rows.Next() {
		var (
			src        types.Source
			accessedAt string
		)
		if err := rows.Scan(&src.URL, &src.Title, &src.Snippet, &src.Author, &src.PublishedDate, &accessedAt); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		if accessedAt != "" {
			src.AccessedAt, err = time.Parse(time.RFC3339Nano, accessedAt)
			if err != nil {
				return nil, fmt.Errorf("parsing source accessed_at: %w", err)
			}
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}

// ListRuns returns the most recent runs, newest first. Zero limit uses the
// configured default.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.query, r.depth, r.created_at, count(rs.run_id)
		 FROM runs r
		 LEFT JOIN run_sources rs ON rs.run_id = r.id
		 GROUP BY r.id
		 ORDER BY r.id DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// SearchRuns returns runs whose query or summary matches the FTS5 query,
// ranked by relevance.
func (s *Store) SearchRuns(ctx context.Context, query string, limit int) ([]RunSummary, error) {
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if limit <= 0 {
		limit = s.maxResults
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.query, r.depth, r.created_at, count(rs.run_id)
		 FROM runs_fts
		 JOIN runs r ON r.id = runs_fts.rowid
		 LEFT JOIN run_sources rs ON rs.run_id = r.id
		 WHERE runs_fts MATCH ?
		 GROUP BY r.id
		 ORDER BY runs_fts.rank
		 LIMIT ?`, query, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("searching runs: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func scanSummaries(rows *sql.Rows) ([]RunSummary, error) {
	var summaries []RunSummary
	for rows.Next() {
		var (
			sum       RunSummary
			depth     string
			createdAt string
		)
		if err := rows.Scan(&sum.ID, &sum.Query, &depth, &createdAt, &sum.SourceCount); err != nil {
			return nil, fmt.Errorf("scanning run summary: %w", err)
		}
		sum.Depth = types.ResearchDepth(depth)
		var err error
		sum.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing run created_at: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}
