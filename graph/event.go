package graph

import "github.com/hupe1980/chatflow/core"

// EventType discriminates the events a graph run emits.
type EventType string

const (
	// EventToken is a partial model output fragment streamed from inside a
	// node.
	EventToken EventType = "token"
	// EventNode signals that a node completed and its delta was merged.
	EventNode EventType = "node"
	// EventDone signals that the run reached End; State carries the final
	// accumulated state.
	EventDone EventType = "done"
)

// Event is one element of a graph run's output stream.
type Event struct {
	ID    string     `json:"id"`
	Type  EventType  `json:"type"`
	Node  string     `json:"node,omitempty"`  // Producing node
	Token string     `json:"token,omitempty"` // Model output fragment (EventToken)
	Delta core.State `json:"delta,omitempty"` // Node output (EventNode)
	State core.State `json:"state,omitempty"` // Final state (EventDone)
}

// NewTokenEvent creates a streamed model-output event.
func NewTokenEvent(node, token string) Event {
	return Event{ID: core.NewID(), Type: EventToken, Node: node, Token: token}
}

// NewNodeEvent creates a node-completion event carrying the node's delta.
func NewNodeEvent(node string, delta core.State) Event {
	return Event{ID: core.NewID(), Type: EventNode, Node: node, Delta: delta}
}

// NewDoneEvent creates the terminal event carrying the final state.
func NewDoneEvent(state core.State) Event {
	return Event{ID: core.NewID(), Type: EventDone, State: state}
}

// IsFinal reports whether this event terminates the run.
func (e Event) IsFinal() bool { return e.Type == EventDone }
