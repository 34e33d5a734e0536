/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

INTERFACES IMPLEMENTED:
  worklog.WorkStore:   Work records and manual-close updates
  worklog.EntryLedger: Append-mostly time-entry ledger
  auth.UserStore:      User accounts
  auth.SessionStore:   Bearer-token sessions

LEDGER ENFORCEMENT:
  time_entries is append-mostly: the only UPDATE permitted sets
  ended_at/duration_seconds exactly once on an open row. A partial
  unique index (idx_open_session) guarantees at most one open entry per
  work at the schema level, independent of engine locking.

WAL MODE:
  SQLite is opened with WAL for better concurrency: readers don't block,
  a single writer at a time, better crash recovery. A sync.RWMutex
  additionally serializes access through this process.

USAGE:
  store, err := sqlite.New("./data/worklog.db")  // ":memory:" for tests
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - worklog/store.go: Interface contracts
  - worklog/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/worklog-engine/auth"
	"github.com/warp/worklog-engine/worklog"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection: SQLite allows one writer anyway, and ":memory:"
	// databases are per-connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		expires_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

	CREATE TABLE IF NOT EXISTS works (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		sprint_name TEXT NOT NULL DEFAULT '',
		hourly_rate_cents INTEGER NOT NULL,
		currency TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		closed_at TEXT,
		closed_reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_works_user ON works(user_id);

	-- Time entries (append-mostly ledger)
	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		work_id TEXT NOT NULL REFERENCES works(id),
		started_at TEXT NOT NULL,
		ended_at TEXT,
		duration_seconds INTEGER NOT NULL DEFAULT 0,
		note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- CRITICAL: at most one open session per work
	CREATE UNIQUE INDEX IF NOT EXISTS idx_open_session
		ON time_entries(work_id)
		WHERE ended_at IS NULL;

	-- For recent-entries and range scans (hot path)
	CREATE INDEX IF NOT EXISTS idx_entries_work_started
		ON time_entries(work_id, started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WORK STORE
// =============================================================================

func (s *Store) SaveWork(ctx context.Context, w worklog.Work) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO works
		(id, user_id, title, sprint_name, hourly_rate_cents, currency,
		 start_date, end_date, closed_at, closed_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		w.ID,
		w.UserID,
		w.Title,
		w.SprintName,
		w.HourlyRateCents,
		w.Currency,
		w.StartDate.String(),
		w.EndDate.String(),
		nullTime(w.ClosedAt),
		nullString(w.ClosedReason),
		w.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return &worklog.StorageError{Op: "save work", Err: err}
	}
	return nil
}

func (s *Store) GetWork(ctx context.Context, userID worklog.UserID, id worklog.WorkID) (worklog.Work, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	works, err := s.queryWorks(ctx, workSelect+` WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return worklog.Work{}, err
	}
	if len(works) == 0 {
		return worklog.Work{}, worklog.ErrWorkNotFound
	}
	return works[0], nil
}

func (s *Store) ListWorks(ctx context.Context, userID worklog.UserID) ([]worklog.Work, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryWorks(ctx, workSelect+` WHERE user_id = ? ORDER BY rowid ASC`, userID)
}

func (s *Store) MarkClosed(ctx context.Context, userID worklog.UserID, id worklog.WorkID, closedAt time.Time, reason string) (worklog.Work, error) {
	s.mu.Lock()
	res, err := s.db.ExecContext(ctx,
		`UPDATE works SET closed_at = ?, closed_reason = ? WHERE id = ? AND user_id = ?`,
		closedAt.UTC().Format(time.RFC3339),
		nullString(reason),
		id,
		userID,
	)
	if err != nil {
		s.mu.Unlock()
		return worklog.Work{}, &worklog.StorageError{Op: "close work", Err: err}
	}
	affected, _ := res.RowsAffected()
	s.mu.Unlock()

	if affected == 0 {
		return worklog.Work{}, worklog.ErrWorkNotFound
	}
	return s.GetWork(ctx, userID, id)
}

const workSelect = `
	SELECT id, user_id, title, sprint_name, hourly_rate_cents, currency,
	       start_date, end_date, closed_at, closed_reason, created_at
	FROM works`

func (s *Store) queryWorks(ctx context.Context, query string, args ...any) ([]worklog.Work, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &worklog.StorageError{Op: "query works", Err: err}
	}
	defer rows.Close()

	var works []worklog.Work
	for rows.Next() {
		w, err := scanWork(rows)
		if err != nil {
			return nil, err
		}
		works = append(works, w)
	}
	return works, rows.Err()
}

func scanWork(rows *sql.Rows) (worklog.Work, error) {
	var (
		w            worklog.Work
		startDate    string
		endDate      string
		closedAt     sql.NullString
		closedReason sql.NullString
		createdAt    string
	)
	err := rows.Scan(&w.ID, &w.UserID, &w.Title, &w.SprintName, &w.HourlyRateCents,
		&w.Currency, &startDate, &endDate, &closedAt, &closedReason, &createdAt)
	if err != nil {
		return worklog.Work{}, &worklog.StorageError{Op: "scan work", Err: err}
	}

	if w.StartDate, err = worklog.ParseDate(startDate); err != nil {
		return worklog.Work{}, &worklog.StorageError{Op: "parse start_date", Err: err}
	}
	if w.EndDate, err = worklog.ParseDate(endDate); err != nil {
		return worklog.Work{}, &worklog.StorageError{Op: "parse end_date", Err: err}
	}
	if closedAt.Valid {
		t, err := time.Parse(time.RFC3339, closedAt.String)
		if err != nil {
			return worklog.Work{}, &worklog.StorageError{Op: "parse closed_at", Err: err}
		}
		w.ClosedAt = &t
	}
	w.ClosedReason = closedReason.String
	w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return w, nil
}

// =============================================================================
// ENTRY LEDGER
// =============================================================================

func (s *Store) Append(ctx context.Context, e worklog.TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO time_entries
		(id, work_id, started_at, ended_at, duration_seconds, note, created_at)
		VALUES (?, ?, ?, NULL, 0, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.WorkID,
		e.StartedAt.UTC().Format(time.RFC3339),
		e.Note,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return worklog.ErrSessionAlreadyOpen
		}
		return &worklog.StorageError{Op: "append entry", Err: err}
	}
	return nil
}

func (s *Store) OpenEntry(ctx context.Context, workID worklog.WorkID) (*worklog.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.queryEntries(ctx, entrySelect+` WHERE work_id = ? AND ended_at IS NULL`, workID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &entries[0], nil
}

func (s *Store) CloseEntry(ctx context.Context, id worklog.EntryID, endedAt time.Time, durationSeconds int64) (worklog.TimeEntry, error) {
	s.mu.Lock()
	// The one permitted mutation: closing an open entry.
	res, err := s.db.ExecContext(ctx,
		`UPDATE time_entries SET ended_at = ?, duration_seconds = ?
		 WHERE id = ? AND ended_at IS NULL`,
		endedAt.UTC().Format(time.RFC3339),
		durationSeconds,
		id,
	)
	if err != nil {
		s.mu.Unlock()
		return worklog.TimeEntry{}, &worklog.StorageError{Op: "close entry", Err: err}
	}
	affected, _ := res.RowsAffected()
	s.mu.Unlock()

	if affected == 0 {
		// Missing row vs already-closed row: look it up to tell them apart.
		if _, err := s.getEntry(ctx, id); err != nil {
			return worklog.TimeEntry{}, err
		}
		return worklog.TimeEntry{}, worklog.ErrEntryAlreadyClosed
	}
	return s.getEntry(ctx, id)
}

func (s *Store) ClosedSeconds(ctx context.Context, workID worklog.WorkID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT SUM(duration_seconds) FROM time_entries
		 WHERE work_id = ? AND ended_at IS NOT NULL`,
		workID,
	).Scan(&total)
	if err != nil {
		return 0, &worklog.StorageError{Op: "sum closed seconds", Err: err}
	}
	return total.Int64, nil
}

func (s *Store) RecentEntries(ctx context.Context, workID worklog.WorkID, limit int) ([]worklog.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := entrySelect + ` WHERE work_id = ? ORDER BY started_at DESC, created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		return s.queryEntries(ctx, query, workID, limit)
	}
	return s.queryEntries(ctx, query, workID)
}

func (s *Store) ClosedInRange(ctx context.Context, workID worklog.WorkID, r worklog.DateRange) ([]worklog.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := entrySelect + `
		WHERE work_id = ? AND ended_at IS NOT NULL
		  AND DATE(started_at) >= ? AND DATE(started_at) <= ?
		ORDER BY started_at ASC`
	return s.queryEntries(ctx, query, workID, r.From.String(), r.To.String())
}

func (s *Store) getEntry(ctx context.Context, id worklog.EntryID) (worklog.TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.queryEntries(ctx, entrySelect+` WHERE id = ?`, id)
	if err != nil {
		return worklog.TimeEntry{}, err
	}
	if len(entries) == 0 {
		return worklog.TimeEntry{}, worklog.ErrEntryNotFound
	}
	return entries[0], nil
}

const entrySelect = `
	SELECT id, work_id, started_at, ended_at, duration_seconds, note
	FROM time_entries`

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]worklog.TimeEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &worklog.StorageError{Op: "query entries", Err: err}
	}
	defer rows.Close()

	var entries []worklog.TimeEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (worklog.TimeEntry, error) {
	var (
		e         worklog.TimeEntry
		startedAt string
		endedAt   sql.NullString
	)
	err := rows.Scan(&e.ID, &e.WorkID, &startedAt, &endedAt, &e.DurationSeconds, &e.Note)
	if err != nil {
		return worklog.TimeEntry{}, &worklog.StorageError{Op: "scan entry", Err: err}
	}

	e.StartedAt, err = time.Parse(time.RFC3339, startedAt)
	if err != nil {
		return worklog.TimeEntry{}, &worklog.StorageError{Op: "parse started_at", Err: err}
	}
	if endedAt.Valid {
		t, err := time.Parse(time.RFC3339, endedAt.String)
		if err != nil {
			return worklog.TimeEntry{}, &worklog.StorageError{Op: "parse ended_at", Err: err}
		}
		e.EndedAt = &t
	}
	return e, nil
}

// =============================================================================
// USER STORE
// =============================================================================

func (s *Store) SaveUser(ctx context.Context, u auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return auth.ErrEmailTaken
		}
		return &worklog.StorageError{Op: "save user", Err: err}
	}
	return nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (auth.User, error) {
	return s.getUser(ctx, `WHERE email = ?`, email)
}

func (s *Store) GetUser(ctx context.Context, id string) (auth.User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		u         auth.User
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, &worklog.StorageError{Op: "get user", Err: err}
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return u, nil
}

// =============================================================================
// SESSION STORE
// =============================================================================

func (s *Store) SaveSession(ctx context.Context, session auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		session.Token,
		session.UserID,
		session.ExpiresAt.UTC().Format(time.RFC3339),
		session.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return &worklog.StorageError{Op: "save session", Err: err}
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (auth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		session   auth.Session
		expiresAt string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, expires_at, created_at FROM sessions WHERE token = ?`, token,
	).Scan(&session.Token, &session.UserID, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return auth.Session{}, auth.ErrSessionNotFound
	}
	if err != nil {
		return auth.Session{}, &worklog.StorageError{Op: "get session", Err: err}
	}
	session.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
	session.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return session, nil
}

func (s *Store) DeleteSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return &worklog.StorageError{Op: "delete session", Err: err}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
