package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/graph"
	"github.com/hupe1980/chatflow/logging"
	"github.com/hupe1980/chatflow/model"
	"github.com/hupe1980/chatflow/store"
	"github.com/hupe1980/chatflow/workflow"
)

var (
	// ErrSessionNotFound indicates no live session exists for a thread id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTurnInFlight indicates a message arrived while the session's
	// previous turn was still executing.
	ErrTurnInFlight = errors.New("a turn is already in flight for this session")
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// Store persists ended sessions for later resume.
	Store core.ThreadStore
	// Logger receives orchestration diagnostics.
	Logger logging.Logger
	// MaxSteps bounds node executions per graph run.
	MaxSteps int
	// MaxModelCalls limits the number of model calls per run.
	MaxModelCalls int
	// EventBufferSize sets channel buffering for events.
	EventBufferSize int
}

// Engine coordinates conversation sessions: it starts and resumes them,
// streams message turns through compiled graphs, applies settings updates and
// persists state on end. Public methods are safe for concurrent use.
type Engine struct {
	service *GraphService
	store   core.ThreadStore
	logger  logging.Logger

	eventBufferSize int

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New constructs an Engine over the given workflow registry and model
// collaborator, with optional overrides.
func New(registry *workflow.Registry, m model.Model, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Store:           store.NewMemory(),
		Logger:          logging.NoOpLogger{},
		MaxSteps:        50,
		MaxModelCalls:   100,
		EventBufferSize: 100,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	service := &GraphService{
		registry:        registry,
		model:           m,
		maxSteps:        opts.MaxSteps,
		maxModelCalls:   opts.MaxModelCalls,
		eventBufferSize: opts.EventBufferSize,
		logger:          opts.Logger,
	}

	return &Engine{
		service:         service,
		store:           opts.Store,
		logger:          opts.Logger,
		eventBufferSize: opts.EventBufferSize,
		sessions:        make(map[string]*Session),
	}
}

// Service exposes the graph compilation service.
func (e *Engine) Service() *GraphService { return e.service }

// Workflows enumerates the registered workflow descriptors for selection
// menus.
func (e *Engine) Workflows() []workflow.Descriptor {
	return e.service.registry.Descriptors()
}

// Start creates a fresh session for the chosen workflow and installs it under
// the thread id. An empty thread id is replaced by a generated one. Any
// existing session under the same id is discarded.
func (e *Engine) Start(threadID, workflowName string) (*Session, error) {
	if threadID == "" {
		threadID = core.NewID()
	}

	w, g, err := e.service.Compile(workflowName)
	if err != nil {
		return nil, err
	}

	state, err := e.service.NewState(workflowName)
	if err != nil {
		return nil, err
	}

	sess := newSession(threadID, w, g, state)

	e.mu.Lock()
	e.sessions[threadID] = sess
	e.mu.Unlock()

	e.logger.Info("engine.session.started", "thread_id", threadID, "workflow", workflowName)

	return sess, nil
}

// Get returns the live session for a thread id.
func (e *Engine) Get(threadID string) (*Session, error) {
	e.mu.RLock()
	sess, ok := e.sessions[threadID]
	e.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}

	return sess, nil
}

// Message appends the inbound text as a Human message and streams one graph
// turn. Events are forwarded until the run finishes; the turn's final state
// becomes the session's active state only when the run completes. At most one
// turn per session runs at a time.
func (e *Engine) Message(ctx context.Context, threadID, text string) (<-chan graph.Event, <-chan error, error) {
	sess, err := e.Get(threadID)
	if err != nil {
		return nil, nil, err
	}

	if !sess.turn.TryLock() {
		return nil, nil, ErrTurnInFlight
	}

	turnState := sess.appendMessage(sess.workflow.FormatMessage(text))

	events, errs := sess.graph.Stream(ctx, turnState)

	out := make(chan graph.Event, e.eventBufferSize)
	errOut := make(chan error, 1)

	go func() {
		defer sess.turn.Unlock()
		defer close(out)
		defer close(errOut)

		var final core.State
		for ev := range events {
			if ev.IsFinal() {
				final = ev.State
			}
			out <- ev
		}

		if err := <-errs; err != nil {
			e.logger.Error("engine.turn.failed", "thread_id", threadID, "error", err.Error())
			errOut <- err
			return
		}

		if final != nil {
			sess.commit(final)
			e.logger.Debug("engine.turn.committed",
				"thread_id", threadID,
				"messages", len(final.Messages()),
			)
		}
	}()

	return out, errOut, nil
}

// UpdateSettings overwrites active state fields from the given values for
// declared settings whose key exists in the state. Unknown keys are ignored.
func (e *Engine) UpdateSettings(threadID string, values map[string]any) error {
	sess, err := e.Get(threadID)
	if err != nil {
		return err
	}

	sess.applySettings(values)
	e.logger.Debug("engine.session.settings_updated", "thread_id", threadID)

	return nil
}

// End serializes the session's active state, upserts it into the thread store
// keyed by thread id and removes the session. The session stays live if
// persisting fails.
func (e *Engine) End(ctx context.Context, threadID string) error {
	sess, err := e.Get(threadID)
	if err != nil {
		return err
	}

	raw, err := core.MarshalState(sess.State())
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}

	rec := core.ThreadRecord{
		ThreadID: threadID,
		Workflow: sess.WorkflowName(),
		State:    raw,
	}
	if err := e.store.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("failed to persist thread %s: %w", threadID, err)
	}

	e.mu.Lock()
	delete(e.sessions, threadID)
	e.mu.Unlock()

	e.logger.Info("engine.session.ended", "thread_id", threadID, "workflow", rec.Workflow)

	return nil
}

// Resume restores a persisted conversation: it loads the record, recompiles
// the recorded workflow, deserializes the state and installs the session.
// core.ErrThreadNotFound is returned (wrapped) when no record exists, leaving
// the caller free to start fresh. A record whose state fails to decode aborts
// the resume; no partial history is installed.
func (e *Engine) Resume(ctx context.Context, threadID string) (*Session, error) {
	rec, err := e.store.Get(ctx, threadID)
	if err != nil {
		if errors.Is(err, core.ErrThreadNotFound) {
			return nil, fmt.Errorf("thread %s: %w", threadID, core.ErrThreadNotFound)
		}
		return nil, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}

	w, g, err := e.service.Compile(rec.Workflow)
	if err != nil {
		return nil, err
	}

	state, err := core.UnmarshalState(rec.State)
	if err != nil {
		return nil, fmt.Errorf("failed to restore thread %s: %w", threadID, err)
	}

	sess := newSession(threadID, w, g, state)

	e.mu.Lock()
	e.sessions[threadID] = sess
	e.mu.Unlock()

	e.logger.Info("engine.session.resumed",
		"thread_id", threadID,
		"workflow", rec.Workflow,
		"messages", len(state.Messages()),
	)

	return sess, nil
}

// EndAll ends every live session, persisting each. Used for graceful
// shutdown.
func (e *Engine) EndAll(ctx context.Context) error {
	e.mu.RLock()
	ids := make([]string, 0, len(e.sessions))
	for id := range e.sessions {
		ids = append(ids, id)
	}
	e.mu.RUnlock()

	var errs []error
	for _, id := range ids {
		if err := e.End(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
