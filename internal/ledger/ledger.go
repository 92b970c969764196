package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"go.uber.org/zap"
)

// Application statuses as recorded in the ledger.
const (
	StatusApplied = "applied"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

const schema = `
CREATE TABLE IF NOT EXISTS applications (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	url         TEXT NOT NULL UNIQUE,
	company     TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT '',
	platform    TEXT NOT NULL DEFAULT '',
	resume_variant TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT 'applied',
	notes       TEXT NOT NULL DEFAULT '',
	applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_applications_applied_at ON applications (applied_at);
`

// Application is one recorded submission.
type Application struct {
	ID            int64
	URL           string
	Company       string
	Role          string
	Platform      string
	ResumeVariant string
	Status        string
	Notes         string
	AppliedAt     time.Time
}

// Statistics summarises the ledger contents.
type Statistics struct {
	Total      int
	Today      int
	ByStatus   map[string]int
	ByPlatform map[string]int
}

// Store is the persistent application ledger. It is the single source of
// truth for "have we already applied here": every job is checked against it
// before any form work starts, and every submission is recorded through it.
type Store struct {
	db     *sql.DB
	path   string
	mirror *Mirror
	logger *zap.Logger

	now func() time.Time
}

// Open opens (or creates) the ledger database at the given directory. A
// plain-text mirror of the applied jobs is kept next to it for quick manual
// inspection.
func Open(dataDir string, logger *zap.Logger) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".apply-pilot")
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ledger.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating ledger schema: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{
		db:     db,
		path:   dbPath,
		mirror: NewMirror(filepath.Join(dataDir, "applied_jobs.txt")),
		logger: logger,
		now:    time.Now,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// NormalizeURL canonicalises a job posting URL for de-duplication: the query
// string and fragment are dropped (most boards carry tracking parameters
// there) and a trailing slash is stripped.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}

	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.Path = strings.TrimRight(parsed.Path, "/")

	return parsed.String()
}

// HasApplied reports whether the normalized URL is already in the ledger.
func (s *Store) HasApplied(ctx context.Context, jobURL string) (bool, error) {
	normalized := NormalizeURL(jobURL)
	if normalized == "" {
		return false, nil
	}

	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM applications WHERE url = ?", normalized).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying ledger: %w", err)
	}

	return true, nil
}

// Record appends an application to the ledger. It returns false when the
// normalized URL was already present; the check and the insert run in one
// immediate transaction so concurrent runs cannot both claim a job.
func (s *Store) Record(ctx context.Context, app Application) (bool, error) {
	normalized := NormalizeURL(app.URL)
	if normalized == "" {
		return false, errors.New("application url is required")
	}

	if app.Status == "" {
		app.Status = StatusApplied
	}
	if app.AppliedAt.IsZero() {
		app.AppliedAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("starting ledger transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM applications WHERE url = ?", normalized).Scan(&exists)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("querying ledger: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO applications (url, company, role, platform, resume_variant, status, notes, applied_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		normalized, app.Company, app.Role, app.Platform, app.ResumeVariant, app.Status, app.Notes, app.AppliedAt.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("recording application: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing application: %w", err)
	}

	// The mirror is a convenience copy, a write failure must not undo a
	// committed application.
	if app.Status == StatusApplied && s.mirror != nil {
		if err := s.mirror.Append(app); err != nil {
			s.logger.Warn("failed to update applied jobs mirror", zap.Error(err))
		}
	}

	return true, nil
}

// UpdateStatus changes the recorded status of an application. Non-empty
// notes replace the stored notes; empty notes leave them untouched.
func (s *Store) UpdateStatus(ctx context.Context, jobURL, status, notes string) error {
	normalized := NormalizeURL(jobURL)

	query := "UPDATE applications SET status = ? WHERE url = ?"
	args := []any{status, normalized}
	if notes != "" {
		query = "UPDATE applications SET status = ?, notes = ? WHERE url = ?"
		args = []any{status, notes, normalized}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating application status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating application status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("application %q is not in the ledger", normalized)
	}

	return nil
}

// TodayCount returns the number of applications recorded since local
// midnight, regardless of status: a job attempted and later marked skipped
// or failed still spent its slot of the daily budget.
func (s *Store) TodayCount(ctx context.Context) (int, error) {
	now := s.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM applications WHERE applied_at >= ?",
		midnight.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting today's applications: %w", err)
	}

	return count, nil
}

// Recent returns the most recent applications, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Application, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, url, company, role, platform, resume_variant, status, notes, applied_at FROM applications ORDER BY applied_at DESC, id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent applications: %w", err)
	}
	defer rows.Close()

	var apps []Application
	for rows.Next() {
		var app Application
		if err := rows.Scan(&app.ID, &app.URL, &app.Company, &app.Role, &app.Platform, &app.ResumeVariant, &app.Status, &app.Notes, &app.AppliedAt); err != nil {
			return nil, fmt.Errorf("scanning application row: %w", err)
		}
		apps = append(apps, app)
	}

	return apps, rows.Err()
}

// Stats aggregates ledger counters for the history command.
func (s *Store) Stats(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{
		ByStatus:   make(map[string]int),
		ByPlatform: make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx, "SELECT status, platform, COUNT(*) FROM applications GROUP BY status, platform")
	if err != nil {
		return nil, fmt.Errorf("querying ledger statistics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status, platform string
		var count int
		if err := rows.Scan(&status, &platform, &count); err != nil {
			return nil, fmt.Errorf("scanning statistics row: %w", err)
		}
		stats.Total += count
		stats.ByStatus[status] += count
		if platform != "" {
			stats.ByPlatform[platform] += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	today, err := s.TodayCount(ctx)
	if err != nil {
		return nil, err
	}
	stats.Today = today

	return stats, nil
}
