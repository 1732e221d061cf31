package core

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrThreadNotFound indicates no persisted record exists for a thread id.
var ErrThreadNotFound = errors.New("thread not found")

// ThreadRecord is the persisted snapshot of one conversation: its thread id,
// the workflow that owns the state, and the serialized state document.
type ThreadRecord struct {
	ThreadID  string          `json:"thread_id"`
	Workflow  string          `json:"workflow"`
	State     json.RawMessage `json:"state"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ThreadStore is the persistence boundary for suspended conversations.
//
// Contract:
//   - Get returns ErrThreadNotFound (possibly wrapped) for absent thread ids
//   - Upsert is atomic per thread id: insert when absent, otherwise replace
//     workflow and state (last writer wins)
//   - Implementations must be safe for concurrent use
//
// There is no delete operation; removing threads belongs to the surrounding
// account subsystem.
type ThreadStore interface {
	// Get loads the record for a thread id.
	Get(ctx context.Context, threadID string) (*ThreadRecord, error)

	// Upsert inserts or replaces the record stored under rec.ThreadID.
	Upsert(ctx context.Context, rec ThreadRecord) error

	// List enumerates all persisted records.
	List(ctx context.Context) ([]ThreadRecord, error)

	// Ping verifies the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}
