package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/chatflow/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized model input produced by graph nodes: the
// full conversation history (system message included) plus the workflow's
// declared tools.
type Request struct {
	Messages []core.Message   `json:"messages"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
	Stream   bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming model. A
// partial carries one output fragment in Token; the final response carries
// the complete assistant message, which may hold tool-call requests.
type Response struct {
	ID           string          `json:"id"`
	Partial      bool            `json:"partial"`
	Token        string          `json:"token,omitempty"`
	Message      *core.AIMessage `json:"message,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage     `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required to drive generation. Generate
// returns a response channel emitting zero or more partials followed by
// exactly one final response, and an error channel for terminal failures.
// Both channels are closed when the call finishes.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Replies are scripted two ways: Queue schedules full assistant messages
// (tool calls included) consumed in order, and AddResponse registers
// prompt-keyed prose fallbacks.
type MockModel struct {
	info      Info
	mu        sync.Mutex
	queued    []core.AIMessage
	responses map[string]string
	calls     int
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Queue schedules an assistant message returned by the next unconsumed
// Generate call. Queued messages take precedence over canned responses.
func (m *MockModel) Queue(msg core.AIMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, msg)
}

// Calls returns how many Generate calls were made.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements Model; emits optional streaming rune chunks then the
// final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}

		final := m.nextMessage(req.Messages[len(req.Messages)-1].Text())

		if req.Stream && final.Content != "" {
			for _, r := range final.Content {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Token: string(r)}:
				}
			}
		}

		finishReason := "stop"
		if final.HasToolCalls() {
			finishReason = "tool_calls"
		}

		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{Message: &final, FinishReason: finishReason}:
		}
	}()

	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }

func (m *MockModel) nextMessage(inputText string) core.AIMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++

	if len(m.queued) > 0 {
		msg := m.queued[0]
		m.queued = m.queued[1:]
		return msg
	}

	full := m.responses[inputText]
	if full == "" {
		full = fmt.Sprintf("Mock response to: %s", inputText)
	}

	return core.AIMessage{Content: full}
}
