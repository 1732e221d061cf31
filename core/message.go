package core

import "github.com/google/uuid"

// Message type tags. These are the only values a persisted message may carry
// in its "type" field; deserialization rejects everything else.
const (
	MessageTypeSystem = "system"
	MessageTypeHuman  = "human"
	MessageTypeAI     = "ai"
	MessageTypeTool   = "tool"
)

// Message represents one conversation turn. Concrete message types implement
// the unexported isMessage marker enabling a closed set.
type Message interface {
	isMessage()

	// Type returns the stable variant tag used on the wire.
	Type() string

	// Text returns the plain text content of the message.
	Text() string
}

// SystemMessage carries instructions for the model (not user visible).
type SystemMessage struct {
	Content string `json:"content"`
}

// isMessage implements the Message interface for SystemMessage.
func (SystemMessage) isMessage() {}

// Type implements the Message interface for SystemMessage.
func (SystemMessage) Type() string { return MessageTypeSystem }

// Text implements the Message interface for SystemMessage.
func (m SystemMessage) Text() string { return m.Content }

// HumanMessage is an inbound user turn.
type HumanMessage struct {
	Content string `json:"content"`
}

// isMessage implements the Message interface for HumanMessage.
func (HumanMessage) isMessage() {}

// Type implements the Message interface for HumanMessage.
func (HumanMessage) Type() string { return MessageTypeHuman }

// Text implements the Message interface for HumanMessage.
func (m HumanMessage) Text() string { return m.Content }

// AIMessage is a model reply. It either carries prose content, or one or more
// tool-call requests the host must satisfy before the conversation continues.
type AIMessage struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// isMessage implements the Message interface for AIMessage.
func (AIMessage) isMessage() {}

// Type implements the Message interface for AIMessage.
func (AIMessage) Type() string { return MessageTypeAI }

// Text implements the Message interface for AIMessage.
func (m AIMessage) Text() string { return m.Content }

// HasToolCalls reports whether the message requests any tool invocations.
func (m AIMessage) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// ToolMessage is the result of one tool invocation, correlated to the
// originating request through ToolCallID.
type ToolMessage struct {
	Content    string `json:"content"`                // JSON-encoded tool result
	Name       string `json:"name,omitempty"`         // Tool name
	ToolCallID string `json:"tool_call_id,omitempty"` // Matches the requesting ToolCall.ID
}

// isMessage implements the Message interface for ToolMessage.
func (ToolMessage) isMessage() {}

// Type implements the Message interface for ToolMessage.
func (ToolMessage) Type() string { return MessageTypeTool }

// Text implements the Message interface for ToolMessage.
func (m ToolMessage) Text() string { return m.Content }

// ToolCall describes a tool invocation request emitted by the model.
type ToolCall struct {
	ID   string         `json:"id"`             // Unique call id correlating request and result
	Name string         `json:"name"`           // Tool name used for dispatch lookup
	Args map[string]any `json:"args,omitempty"` // Named argument mapping
}

// NewID returns a fresh unique identifier. Used for thread ids, tool-call ids
// and outbound message ids.
func NewID() string { return uuid.NewString() }
