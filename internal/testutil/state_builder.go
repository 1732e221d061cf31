package testutil

import (
	"github.com/hupe1980/chatflow/core"
)

// StateBuilder provides a fluent helper for constructing workflow states in
// tests. Example:
//
//	state := NewStateBuilder().Human("Hi").Assistant("Hello!").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type StateBuilder struct {
	profile string
	fields  map[string]any
	msgs    []core.Message
}

// NewStateBuilder creates a builder with an empty message history.
func NewStateBuilder() *StateBuilder {
	return &StateBuilder{fields: map[string]any{}}
}

// Profile stamps the owning workflow name on the state (chainable).
func (b *StateBuilder) Profile(name string) *StateBuilder { b.profile = name; return b }

// Field sets or overwrites a workflow-specific state key (chainable).
func (b *StateBuilder) Field(key string, val any) *StateBuilder {
	b.fields[key] = val
	return b
}

// System appends a system instruction (chainable).
func (b *StateBuilder) System(text string) *StateBuilder {
	b.msgs = append(b.msgs, core.SystemMessage{Content: text})
	return b
}

// Human appends a human turn (chainable).
func (b *StateBuilder) Human(text string) *StateBuilder {
	b.msgs = append(b.msgs, core.HumanMessage{Content: text})
	return b
}

// Assistant appends an assistant reply (chainable).
func (b *StateBuilder) Assistant(text string) *StateBuilder {
	b.msgs = append(b.msgs, core.AIMessage{Content: text})
	return b
}

// AssistantCall appends an assistant turn requesting one tool call (chainable).
func (b *StateBuilder) AssistantCall(callID, tool string, args map[string]any) *StateBuilder {
	b.msgs = append(b.msgs, core.AIMessage{
		ToolCalls: []core.ToolCall{{ID: callID, Name: tool, Args: args}},
	})
	return b
}

// ToolResult appends a tool observation correlated to callID (chainable).
func (b *StateBuilder) ToolResult(callID, tool, content string) *StateBuilder {
	b.msgs = append(b.msgs, core.ToolMessage{Content: content, Name: tool, ToolCallID: callID})
	return b
}

// Message appends an arbitrary message (chainable).
func (b *StateBuilder) Message(msg core.Message) *StateBuilder {
	b.msgs = append(b.msgs, msg)
	return b
}

// Build constructs the core.State value.
func (b *StateBuilder) Build() core.State {
	state := core.NewState().Append(b.msgs...)
	if b.profile != "" {
		state[core.StateKeyChatProfile] = b.profile
	}
	for k, v := range b.fields {
		state[k] = v
	}
	return state
}
