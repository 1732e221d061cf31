package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/chatflow/core"

	// Pure-Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

// SQLite is a ThreadStore backed by a SQLite database file.
//
// The DSN is passed through to the driver, e.g.
// "file:chatflow.db?_journal=WAL".
type SQLite struct {
	db *sql.DB
}

var _ core.ThreadStore = (*SQLite)(nil)

// NewSQLite opens the database, initializes the schema and returns the store.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// NewSQLiteFromDB wraps an existing database handle. The caller keeps
// ownership of the handle's lifecycle configuration; Close still closes it.
func NewSQLiteFromDB(db *sql.DB) (*SQLite, error) {
	s := &SQLite{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLite) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			workflow TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);`,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Get implements core.ThreadStore.
func (s *SQLite) Get(ctx context.Context, threadID string) (*core.ThreadRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT thread_id, workflow, state, created_at, updated_at
		FROM threads
		WHERE thread_id = ?`,
		threadID,
	)

	return scanThread(row)
}

// Upsert implements core.ThreadStore. Conflicts on thread_id replace workflow
// and state while keeping the original creation timestamp.
func (s *SQLite) Upsert(ctx context.Context, rec core.ThreadRecord) error {
	now := time.Now().UTC().UnixNano()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threads (thread_id, workflow, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			workflow = excluded.workflow,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		rec.ThreadID,
		rec.Workflow,
		string(rec.State),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert thread %s: %w", rec.ThreadID, err)
	}

	return nil
}

// List implements core.ThreadStore.
func (s *SQLite) List(ctx context.Context) ([]core.ThreadRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT thread_id, workflow, state, created_at, updated_at
		FROM threads
		ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []core.ThreadRecord
	for rows.Next() {
		var (
			rec                  core.ThreadRecord
			state                string
			createdAt, updatedAt int64
		)
		if err := rows.Scan(&rec.ThreadID, &rec.Workflow, &state, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		rec.State = []byte(state)
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		rec.UpdatedAt = time.Unix(0, updatedAt).UTC()
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Ping implements core.ThreadStore.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements core.ThreadStore.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// scanThread maps one row onto a record, translating sql.ErrNoRows into the
// store contract's not-found error.
func scanThread(row *sql.Row) (*core.ThreadRecord, error) {
	var (
		rec                  core.ThreadRecord
		state                string
		createdAt, updatedAt int64
	)

	if err := row.Scan(&rec.ThreadID, &rec.Workflow, &state, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrThreadNotFound
		}
		return nil, err
	}

	rec.State = []byte(state)
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.UpdatedAt = time.Unix(0, updatedAt).UTC()

	return &rec, nil
}
