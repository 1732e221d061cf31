package testutil

import (
	"github.com/hupe1980/chatflow/core"
)

// RecordBuilder assembles persisted thread records for store-facing tests.
// Example:
//
//	rec := NewRecordBuilder("thread-1").State(state).Build()
type RecordBuilder struct {
	threadID string
	workflow string
	state    core.State
}

// NewRecordBuilder creates a builder for the given thread id. The workflow
// defaults to the Simple Chat builtin.
func NewRecordBuilder(threadID string) *RecordBuilder {
	return &RecordBuilder{
		threadID: threadID,
		workflow: "Simple Chat",
		state:    core.NewState(),
	}
}

// Workflow overrides the recorded workflow name (chainable).
func (b *RecordBuilder) Workflow(name string) *RecordBuilder { b.workflow = name; return b }

// State sets the state snapshot to persist (chainable).
func (b *RecordBuilder) State(s core.State) *RecordBuilder { b.state = s; return b }

// Build serializes the state and constructs the core.ThreadRecord value. It
// panics when the state cannot be serialized, which for builder-constructed
// states indicates a broken test input.
func (b *RecordBuilder) Build() core.ThreadRecord {
	raw, err := core.MarshalState(b.state)
	if err != nil {
		panic(err)
	}

	return core.ThreadRecord{
		ThreadID: b.threadID,
		Workflow: b.workflow,
		State:    raw,
	}
}
