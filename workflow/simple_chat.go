package workflow

import (
	"context"
	"fmt"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/graph"
	"github.com/hupe1980/chatflow/internal/util"
	"github.com/hupe1980/chatflow/model"
	"github.com/hupe1980/chatflow/tool"
)

// StateKeyChatModel is the simple-chat state key holding the preferred chat
// model id. Settings updates write it; it rides along in persistence.
const StateKeyChatModel = "chat_model"

// SimpleChatOptions configure the simple chat workflow.
type SimpleChatOptions struct {
	// SystemPrompt seeds every model request. It may reference state keys via
	// template syntax, e.g. {{.chat_profile}}.
	SystemPrompt string
	// Tools offered to the model. Defaults to the builtin datetime tool.
	Tools []tool.Tool
	// ChatModels, when non-empty, turns the chat_model setting into a select
	// over these choices; the first entry is the default.
	ChatModels []string
}

// SimpleChat is a ChatGPT-like chatbot workflow: one chat node invoking the
// model with the full history, a tools node dispatching requested calls, and
// a loop feeding every tool result back to the model until it answers without
// further requests.
type SimpleChat struct {
	systemPrompt string
	tools        []tool.Tool
	chatModels   []string
}

var _ Workflow = (*SimpleChat)(nil)

// NewSimpleChat creates the simple chat workflow.
func NewSimpleChat(optFns ...func(o *SimpleChatOptions)) *SimpleChat {
	opts := SimpleChatOptions{
		SystemPrompt: "You're a helpful assistant.",
		Tools:        []tool.Tool{tool.NewDatetimeTool()},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &SimpleChat{
		systemPrompt: opts.SystemPrompt,
		tools:        opts.Tools,
		chatModels:   opts.ChatModels,
	}
}

// Name returns the registry name clients select this workflow by.
func (w *SimpleChat) Name() string { return "Simple Chat" }

// Description returns the selection menu summary.
func (w *SimpleChat) Description() string { return "A ChatGPT-like chatbot." }

// DefaultState returns a fresh state carrying an empty history and the
// workflow-specific chat_model key.
func (w *SimpleChat) DefaultState() core.State {
	chatModel := ""
	if len(w.chatModels) > 0 {
		chatModel = w.chatModels[0]
	}

	return core.State{
		core.StateKeyMessages:    []core.Message{},
		core.StateKeyChatProfile: w.Name(),
		StateKeyChatModel:        chatModel,
	}
}

// Tools returns the tool table offered to the model.
func (w *SimpleChat) Tools() []tool.Tool { return w.tools }

// FormatMessage wraps raw client text as a Human message.
func (w *SimpleChat) FormatMessage(text string) core.Message {
	return core.HumanMessage{Content: text}
}

// Settings declares the configurable settings surface.
func (w *SimpleChat) Settings() []Setting {
	setting := Setting{
		ID:      StateKeyChatModel,
		Label:   "Chat model",
		Type:    SettingTypeText,
		Initial: "",
	}
	if len(w.chatModels) > 0 {
		setting.Type = SettingTypeSelect
		setting.Options = w.chatModels
		setting.Initial = w.chatModels[0]
	}

	return []Setting{setting}
}

// Graph wires chat and tools into the looped conversation graph: entry at
// chat, a conditional edge routing to tools while the model keeps requesting
// calls, and an unconditional edge closing the loop.
func (w *SimpleChat) Graph(m model.Model) *graph.Definition {
	return graph.NewDefinition().
		AddNode(NodeChat, w.chatNode(m)).
		AddNode(NodeTools, tool.Node(w.tools)).
		SetEntryPoint(NodeChat).
		AddConditionalEdge(NodeChat, ToolRouting).
		AddEdge(NodeTools, NodeChat)
}

// chatNode invokes the model with the system prompt plus the full history,
// streams token deltas into the run and appends the model's single returned
// message.
func (w *SimpleChat) chatNode(m model.Model) graph.NodeFunc {
	return func(ctx context.Context, run *graph.Run, state core.State) (core.State, error) {
		if err := run.Limiter.Increment(); err != nil {
			return nil, err
		}

		system, err := util.RenderTemplate(w.systemPrompt, state)
		if err != nil {
			return nil, fmt.Errorf("failed to render system prompt: %w", err)
		}

		history := state.Messages()
		messages := make([]core.Message, 0, len(history)+1)
		messages = append(messages, core.SystemMessage{Content: system})
		messages = append(messages, history...)

		out, errCh := m.Generate(ctx, model.Request{
			Messages: messages,
			Tools:    tool.Definitions(w.tools),
			Stream:   true,
		})

		// Drain the response channel fully even if emission fails, so the
		// generator goroutine can finish.
		var final *core.AIMessage
		var emitErr error
		for resp := range out {
			if resp.Partial {
				if emitErr == nil && resp.Token != "" {
					emitErr = run.EmitToken(resp.Token)
				}
				continue
			}
			if resp.Message != nil {
				final = resp.Message
			}
		}

		if err := <-errCh; err != nil {
			return nil, err
		}
		if emitErr != nil {
			return nil, emitErr
		}
		if final == nil {
			return nil, fmt.Errorf("model returned no final message")
		}

		return core.State{core.StateKeyMessages: []core.Message{*final}}, nil
	}
}
