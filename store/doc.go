// Package store provides core.ThreadStore implementations over several
// backends: an in-memory map for tests and ephemeral runs, SQLite for
// single-node deployments, PostgreSQL for shared deployments and Redis for
// deployments that already run one.
//
// All implementations share the same contract: Get returns
// core.ErrThreadNotFound for absent ids, and Upsert is idempotent per thread
// id (insert when absent, otherwise replace workflow and state, preserving
// the original creation timestamp).
package store
