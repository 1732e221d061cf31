// Package engine implements the session orchestration layer for chatflow.
//
// The Engine owns the set of live conversations: it compiles a workflow into
// an executable graph when a session starts, threads each inbound message
// through a streamed graph run, applies settings updates, and persists or
// restores session state through a core.ThreadStore when sessions end or
// resume.
//
// # Core Responsibilities
//
// Session lifecycle:
//   - Thread-safe session registry keyed by thread id
//   - One in-flight turn per session; concurrent turns are rejected
//   - Graceful teardown persisting every live session
//
// Turn execution:
//   - Streamed graph execution with token, node and done events
//   - The turn's final state replaces the active state only when the run
//     completes; failed or cancelled turns leave the last committed state
//
// Persistence protocol:
//   - End serializes the active state and upserts it keyed by thread id
//   - Resume recompiles the recorded workflow and restores its state
//     atomically; records with unknown message variants fail resume instead
//     of silently dropping history
package engine
