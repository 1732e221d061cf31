package core

import (
	"encoding/json"
	"fmt"
)

// UnknownVariantError is returned when a persisted message carries a type tag
// outside the closed variant set. Deserialization never constructs a type
// chosen by the stored data; a tag that is not in the table fails the whole
// decode.
type UnknownVariantError struct {
	Variant string
}

// Error implements the error interface for UnknownVariantError.
func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("unknown message variant %q", e.Variant)
}

// messageEnvelope is the flat wire form of one message: the variant tag plus
// the union of all variant fields.
type messageEnvelope struct {
	Type       string     `json:"type"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// messageVariants is the closed tag table. Deserialization selects the
// concrete message type from here and nowhere else.
var messageVariants = map[string]func(env messageEnvelope) Message{
	MessageTypeSystem: func(env messageEnvelope) Message {
		return SystemMessage{Content: env.Content}
	},
	MessageTypeHuman: func(env messageEnvelope) Message {
		return HumanMessage{Content: env.Content}
	},
	MessageTypeAI: func(env messageEnvelope) Message {
		return AIMessage{Content: env.Content, ToolCalls: env.ToolCalls}
	},
	MessageTypeTool: func(env messageEnvelope) Message {
		return ToolMessage{Content: env.Content, Name: env.Name, ToolCallID: env.ToolCallID}
	},
}

// MarshalMessage encodes a message into its flat wire form, preserving the
// variant tag and all variant-specific fields.
func MarshalMessage(m Message) (json.RawMessage, error) {
	env := messageEnvelope{Type: m.Type(), Content: m.Text()}

	switch v := m.(type) {
	case SystemMessage, HumanMessage:
		// tag + content only
	case AIMessage:
		env.ToolCalls = v.ToolCalls
	case ToolMessage:
		env.Name = v.Name
		env.ToolCallID = v.ToolCallID
	default:
		return nil, fmt.Errorf("unsupported message type %T", m)
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	return raw, nil
}

// UnmarshalMessage rebuilds a concrete message from its wire form. The
// variant is chosen from the closed tag table; an unknown tag yields
// *UnknownVariantError.
func UnmarshalMessage(raw json.RawMessage) (Message, error) {
	var env messageEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}

	construct, ok := messageVariants[env.Type]
	if !ok {
		return nil, &UnknownVariantError{Variant: env.Type}
	}

	return construct(env), nil
}

// MarshalState converts a workflow state into one storage-safe JSON document.
// Extension fields are copied verbatim; the message history is replaced with
// per-message wire records.
func MarshalState(s State) ([]byte, error) {
	doc := make(map[string]any, len(s))
	for k, v := range s {
		if k == StateKeyMessages {
			continue
		}
		doc[k] = v
	}

	msgs := s.Messages()
	encoded := make([]json.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		raw, err := MarshalMessage(m)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, raw)
	}
	doc[StateKeyMessages] = encoded

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	return data, nil
}

// UnmarshalState rebuilds a workflow state from its persisted document. The
// messages field is reconstructed through the closed variant table; the first
// unknown tag aborts the whole reconstruction and no partial state is
// returned.
func UnmarshalState(data []byte) (State, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}

	s := make(State, len(doc))
	for k, raw := range doc {
		if k == StateKeyMessages {
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("failed to decode state field %q: %w", k, err)
		}
		s[k] = v
	}

	var rawMsgs []json.RawMessage
	if raw, ok := doc[StateKeyMessages]; ok {
		if err := json.Unmarshal(raw, &rawMsgs); err != nil {
			return nil, fmt.Errorf("failed to decode message history: %w", err)
		}
	}

	msgs := make([]Message, 0, len(rawMsgs))
	for _, rm := range rawMsgs {
		m, err := UnmarshalMessage(rm)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	s[StateKeyMessages] = msgs

	return s, nil
}
