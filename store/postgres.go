package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hupe1980/chatflow/core"

	// PostgreSQL driver via pgx's database/sql adapter, registered as "pgx".
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres is a ThreadStore backed by PostgreSQL. State documents live in a
// JSONB column so they stay queryable from SQL.
type Postgres struct {
	db *sql.DB
}

var _ core.ThreadStore = (*Postgres)(nil)

// NewPostgres opens a connection pool for the given DSN, initializes the
// schema and returns the store.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return p, nil
}

func (p *Postgres) initSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			workflow TEXT NOT NULL,
			state JSONB NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		);`,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// Get implements core.ThreadStore.
func (p *Postgres) Get(ctx context.Context, threadID string) (*core.ThreadRecord, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT thread_id, workflow, state, created_at, updated_at
		FROM threads
		WHERE thread_id = $1`,
		threadID,
	)

	return scanThread(row)
}

// Upsert implements core.ThreadStore.
func (p *Postgres) Upsert(ctx context.Context, rec core.ThreadRecord) error {
	now := time.Now().UTC().UnixNano()

	_, err := p.db.ExecContext(ctx, `
		INSERT INTO threads (thread_id, workflow, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (thread_id) DO UPDATE SET
			workflow = EXCLUDED.workflow,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at`,
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
func (p *Postgres) List(ctx context.Context) ([]core.ThreadRecord, error) {
	rows, err := p.db.QueryContext(ctx, `
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
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close implements core.ThreadStore.
func (p *Postgres) Close() error {
	return p.db.Close()
}
