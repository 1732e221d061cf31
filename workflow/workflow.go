// Package workflow defines the pluggable conversation workflow contract and
// the registry used to select workflows by name. A workflow owns its default
// state shape, its tool table, its configurable settings surface and the
// conversation graph wiring those together.
package workflow

import (
	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/graph"
	"github.com/hupe1980/chatflow/model"
	"github.com/hupe1980/chatflow/tool"
)

// Shared node names used by tool-looping workflows.
const (
	NodeChat  = "chat"
	NodeTools = "tools"
)

// Workflow is one selectable conversation behavior. Implementations must be
// cheap to construct: the registry instantiates them on demand for every
// session.
type Workflow interface {
	// Name returns the unique registry name clients select the workflow by.
	Name() string

	// Description returns a short human-readable summary for selection menus.
	Description() string

	// DefaultState returns the initial state for a fresh session, including
	// every workflow-specific key later settable via settings updates.
	DefaultState() core.State

	// Tools returns the tool table offered to the model.
	Tools() []tool.Tool

	// Graph builds the conversation graph over the given model collaborator.
	// The result is compiled once per session by the engine.
	Graph(m model.Model) *graph.Definition

	// FormatMessage wraps raw inbound user text as a history message.
	FormatMessage(text string) core.Message

	// Settings declares the workflow's configurable settings surface.
	Settings() []Setting
}

// SettingType enumerates the widget kinds a workflow can declare.
type SettingType string

const (
	SettingTypeText   SettingType = "text"
	SettingTypeSelect SettingType = "select"
	SettingTypeSwitch SettingType = "switch"
	SettingTypeSlider SettingType = "slider"
)

// Setting is one declared, typed configuration input. Its ID doubles as the
// state key a settings update writes to.
type Setting struct {
	ID      string      `json:"id"`
	Label   string      `json:"label"`
	Type    SettingType `json:"type"`
	Options []string    `json:"options,omitempty"`
	Initial any         `json:"initial,omitempty"`
}

// SettingsFor returns the workflow's declared settings with initial values
// overridden by the given state wherever a setting's ID exists as a state
// key. The override is one-way: state to displayed setting, never the
// reverse.
func SettingsFor(w Workflow, state core.State) []Setting {
	declared := w.Settings()

	settings := make([]Setting, len(declared))
	copy(settings, declared)

	if state == nil {
		return settings
	}

	for i := range settings {
		if v, ok := state[settings[i].ID]; ok {
			settings[i].Initial = v
		}
	}

	return settings
}

// ToolRouting is the branching decision shared by tool-looping workflows. It
// inspects only the last message: absent history or a message without
// tool-call requests terminates the run, otherwise the tools node is next.
// It is deterministic and side-effect free.
func ToolRouting(s core.State) string {
	last := s.LastMessage()
	if last == nil {
		return graph.End
	}

	if ai, ok := last.(core.AIMessage); ok && ai.HasToolCalls() {
		return NodeTools
	}

	return graph.End
}
