package core

// Well-known state keys. Every workflow state carries these two; concrete
// workflows may add further keys which ride along untouched.
const (
	StateKeyMessages    = "messages"
	StateKeyChatProfile = "chat_profile"
)

// State is the mutable data a graph run threads through its nodes: the
// ordered message history under StateKeyMessages plus arbitrary
// workflow-specific fields. Node outputs are partial states (deltas) combined
// via Merge.
//
// Contract:
//   - The messages value is always []Message and is append-only during a turn
//   - Clone copies the map and the messages slice for safe divergence
//   - Merge never mutates its receiver or the delta
type State map[string]any

// NewState creates an empty state with an initialized message history.
func NewState() State {
	return State{StateKeyMessages: []Message{}}
}

// Messages returns the ordered message history. A missing or mistyped entry
// yields nil.
func (s State) Messages() []Message {
	msgs, _ := s[StateKeyMessages].([]Message)
	return msgs
}

// LastMessage returns the most recent message or nil when the history is
// empty.
func (s State) LastMessage() Message {
	msgs := s.Messages()
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

// ChatProfile returns the registered name of the workflow that owns this
// state.
func (s State) ChatProfile() string {
	p, _ := s[StateKeyChatProfile].(string)
	return p
}

// Clone returns a copy of the state safe for independent mutation. Values are
// copied shallowly except the messages slice, which is duplicated.
func (s State) Clone() State {
	clone := make(State, len(s))
	for k, v := range s {
		clone[k] = v
	}
	msgs := s.Messages()
	cp := make([]Message, len(msgs))
	copy(cp, msgs)
	clone[StateKeyMessages] = cp
	return clone
}

// Merge combines a node's output delta into the state and returns the result.
// The messages key appends; every other key replaces. Neither input is
// mutated.
func (s State) Merge(delta State) State {
	out := s.Clone()
	for k, v := range delta {
		if k == StateKeyMessages {
			if add, ok := v.([]Message); ok && len(add) > 0 {
				out[StateKeyMessages] = append(out.Messages(), add...)
			}
			continue
		}
		out[k] = v
	}
	return out
}

// Append returns the state with the given messages added to the history.
func (s State) Append(msgs ...Message) State {
	return s.Merge(State{StateKeyMessages: msgs})
}
