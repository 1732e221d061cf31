package engine

import (
	"fmt"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/graph"
	"github.com/hupe1980/chatflow/logging"
	"github.com/hupe1980/chatflow/model"
	"github.com/hupe1980/chatflow/workflow"
)

// GraphService turns registered workflow names into executable graphs and
// fresh session state. Compilation is cheap relative to model inference, so
// nothing is cached across calls.
type GraphService struct {
	registry *workflow.Registry
	model    model.Model

	maxSteps        int
	maxModelCalls   int
	eventBufferSize int
	logger          logging.Logger
}

// Compile instantiates the named workflow and compiles its graph over the
// service's model collaborator.
func (s *GraphService) Compile(name string) (workflow.Workflow, *graph.Graph, error) {
	w, err := s.registry.Create(name)
	if err != nil {
		return nil, nil, err
	}

	g, err := w.Graph(s.model).Compile(func(o *graph.Options) {
		o.MaxSteps = s.maxSteps
		o.MaxModelCalls = s.maxModelCalls
		o.EventBufferSize = s.eventBufferSize
		o.Logger = s.logger
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile workflow %q: %w", name, err)
	}

	return w, g, nil
}

// NewState instantiates the named workflow's default state, stamped with the
// workflow name under the chat_profile key.
func (s *GraphService) NewState(name string) (core.State, error) {
	w, err := s.registry.Create(name)
	if err != nil {
		return nil, err
	}

	state := w.DefaultState()
	state[core.StateKeyChatProfile] = name

	return state, nil
}
