package graph

import (
	"context"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/logging"
)

// Run carries the execution scope handed to every node: the ambient
// cancellation context, the event emission channel, the per-run model call
// limiter and a logger. Nodes use it to stream partial output while they
// work.
type Run struct {
	Context context.Context
	Emit    chan<- Event
	Limiter *core.CallLimiter
	Logger  logging.Logger

	node string // current node, set by the executor before each call
}

// Node returns the name of the node currently executing.
func (r *Run) Node() string { return r.node }

// Done returns a channel closed when the underlying context is cancelled.
func (r *Run) Done() <-chan struct{} { return r.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (r *Run) Err() error { return r.Context.Err() }

// EmitToken forwards one model output fragment to the run's event stream.
// It blocks until the event is accepted or the run is cancelled.
func (r *Run) EmitToken(token string) error {
	select {
	case <-r.Context.Done():
		return r.Context.Err()
	case r.Emit <- NewTokenEvent(r.node, token):
	}
	return nil
}
