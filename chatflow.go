// Package chatflow provides a high-level façade over the workflow registry,
// model adapters and the session engine enabling rapid construction of
// resumable conversational applications. Most applications interact with this
// package by:
//  1. Creating a Chatflow via New() (optionally overriding the default in-memory model & store)
//  2. Registering one or more workflows (the "Simple Chat" built-in comes pre-registered)
//  3. Driving conversation turns asynchronously (Send) or synchronously (SendSync)
//
// The façade delegates orchestration to engine.Engine while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable thread store and
// a structured logger.
package chatflow

import (
	"context"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/engine"
	"github.com/hupe1980/chatflow/graph"
	"github.com/hupe1980/chatflow/logging"
	"github.com/hupe1980/chatflow/model"
	"github.com/hupe1980/chatflow/store"
	"github.com/hupe1980/chatflow/workflow"
)

// Options configures the Chatflow instance.
type Options struct {
	// Model generates assistant replies. Defaults to the in-memory mock,
	// which echoes scripted responses and suits tests and examples.
	Model model.Model

	// Store persists ended sessions for later resume (defaults to the
	// in-memory store).
	Store core.ThreadStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// MaxSteps bounds node executions per graph run.
	MaxSteps int

	// EventBufferSize sets the channel buffer size for turn events. Larger
	// buffers reduce blocking but increase memory usage.
	EventBufferSize int
}

// Chatflow is the high-level façade aggregating the workflow registry and the
// underlying engine.
type Chatflow struct {
	opts     Options
	registry *workflow.Registry
	engine   *engine.Engine
}

// New creates a new Chatflow instance with optional overrides. The built-in
// workflows are pre-registered; any unset collaborator is initialized with an
// in-memory implementation.
func New(optFns ...func(o *Options)) *Chatflow {
	opts := Options{
		Model:  model.NewMockModel("mock", "mock"),
		Store:  store.NewMemory(),
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	registry := workflow.NewRegistry()
	workflow.RegisterBuiltins(registry)

	eng := engine.New(registry, opts.Model, func(o *engine.Options) {
		o.Store = opts.Store
		o.Logger = opts.Logger
		if opts.MaxSteps > 0 {
			o.MaxSteps = opts.MaxSteps
		}
		if opts.EventBufferSize > 0 {
			o.EventBufferSize = opts.EventBufferSize
		}
	})

	return &Chatflow{opts: opts, registry: registry, engine: eng}
}

// RegisterWorkflow adds a workflow to the underlying registry. Registering
// under an already-taken name replaces the earlier entry.
func (c *Chatflow) RegisterWorkflow(fn func() workflow.Workflow) {
	c.registry.Register(fn)
}

// Workflows enumerates the registered workflow descriptors.
func (c *Chatflow) Workflows() []workflow.Descriptor { return c.engine.Workflows() }

// Engine exposes the underlying engine, e.g. for mounting the HTTP server.
func (c *Chatflow) Engine() *engine.Engine { return c.engine }

// Start creates a fresh session for the named workflow. An empty thread id is
// replaced by a generated one.
func (c *Chatflow) Start(threadID, workflowName string) (*engine.Session, error) {
	return c.engine.Start(threadID, workflowName)
}

// Send starts an asynchronous conversation turn returning event & error
// channels.
func (c *Chatflow) Send(ctx context.Context, threadID, text string) (<-chan graph.Event, <-chan error, error) {
	return c.engine.Message(ctx, threadID, text)
}

// SendSync is a synchronous helper that drains the async channels and returns
// the assistant's reply for the turn.
func (c *Chatflow) SendSync(ctx context.Context, threadID, text string) (string, error) {
	events, errs, err := c.engine.Message(ctx, threadID, text)
	if err != nil {
		return "", err
	}

	// Collect events until completion, keeping the final state.
	var final core.State
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case ev, ok := <-events:
			if !ok {
				// Events channel closed - check for terminal error
				if err := <-errs; err != nil {
					return "", err
				}
				return lastReply(final), nil
			}
			if ev.IsFinal() {
				final = ev.State
			}

		case err := <-errs:
			if err != nil {
				return "", err
			}
		}
	}
}

// UpdateSettings overwrites declared settings fields on the session's active
// state.
func (c *Chatflow) UpdateSettings(threadID string, values map[string]any) error {
	return c.engine.UpdateSettings(threadID, values)
}

// Resume restores a persisted conversation from the thread store.
func (c *Chatflow) Resume(ctx context.Context, threadID string) (*engine.Session, error) {
	return c.engine.Resume(ctx, threadID)
}

// End persists the session into the thread store and removes it.
func (c *Chatflow) End(ctx context.Context, threadID string) error {
	return c.engine.End(ctx, threadID)
}

// lastReply extracts the assistant text that closed the turn.
func lastReply(s core.State) string {
	if s == nil {
		return ""
	}

	if msg, ok := s.LastMessage().(core.AIMessage); ok {
		return msg.Text()
	}

	return ""
}
