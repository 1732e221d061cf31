package engine

import (
	"sync"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/graph"
	"github.com/hupe1980/chatflow/workflow"
)

// Session is one live conversation: its compiled graph, its workflow and the
// accumulated state. All state access is mutex-guarded; the turn mutex
// serializes graph runs so a session executes at most one turn at a time.
type Session struct {
	threadID string
	workflow workflow.Workflow
	graph    *graph.Graph

	mu    sync.RWMutex
	state core.State

	turn sync.Mutex
}

func newSession(threadID string, w workflow.Workflow, g *graph.Graph, state core.State) *Session {
	return &Session{
		threadID: threadID,
		workflow: w,
		graph:    g,
		state:    state,
	}
}

// ThreadID returns the conversation's stable identifier.
func (s *Session) ThreadID() string { return s.threadID }

// WorkflowName returns the name of the workflow driving this session.
func (s *Session) WorkflowName() string { return s.workflow.Name() }

// State returns a copy of the active state safe for independent use.
func (s *Session) State() core.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Settings returns the workflow's declared settings with initial values taken
// from the active state where present.
func (s *Session) Settings() []workflow.Setting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return workflow.SettingsFor(s.workflow, s.state)
}

// appendMessage adds a message to the active history and returns a snapshot
// for the upcoming graph run.
func (s *Session) appendMessage(msg core.Message) core.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = s.state.Append(msg)
	return s.state.Clone()
}

// commit installs the final state of a completed turn.
func (s *Session) commit(final core.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = final
}

// applySettings overwrites state fields from the given values, but only for
// declared settings whose id already exists as a state key. Unknown keys are
// ignored.
func (s *Session) applySettings(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, setting := range s.workflow.Settings() {
		v, ok := values[setting.ID]
		if !ok {
			continue
		}
		if _, exists := s.state[setting.ID]; exists {
			s.state[setting.ID] = v
		}
	}
}
