package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/chatflow/core"
	"github.com/hupe1980/chatflow/graph"
)

// Node adapts a tool table into a graph node that executes the tool calls
// requested by the most recent assistant message.
//
// Calls run in the order the model requested them, and each produces one Tool
// message carrying the JSON-encoded result plus the originating call id. A
// request naming an unknown tool aborts the whole dispatch with
// *UnknownToolError before any message is appended. The dispatcher does not
// retry; retry policy, if any, belongs to the individual tool implementation.
//
// Tool names must be unique within the table; a duplicate name silently
// shadows the earlier registration.
func Node(tools []Tool) graph.NodeFunc {
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}

	return func(ctx context.Context, run *graph.Run, state core.State) (core.State, error) {
		messages := state.Messages()
		if len(messages) == 0 {
			return nil, fmt.Errorf("no messages found in state")
		}

		last, ok := messages[len(messages)-1].(core.AIMessage)
		if !ok || !last.HasToolCalls() {
			return core.State{core.StateKeyMessages: []core.Message{}}, nil
		}

		for _, call := range last.ToolCalls {
			if _, ok := byName[call.Name]; !ok {
				return nil, &UnknownToolError{Tool: call.Name}
			}
		}

		outputs := make([]core.Message, 0, len(last.ToolCalls))
		for _, call := range last.ToolCalls {
			t := byName[call.Name]

			args := call.Args
			if args == nil {
				args = map[string]any{}
			}

			run.Logger.Debug("tool.call.start", "tool", call.Name, "call_id", call.ID)
			start := time.Now()

			result, err := t.Call(ctx, args)
			if err != nil {
				run.Logger.Error("tool.call.error", "tool", call.Name, "call_id", call.ID, "error", err.Error())
				return nil, err
			}

			encoded, err := json.Marshal(result)
			if err != nil {
				return nil, fmt.Errorf("failed to encode result of tool %q: %w", call.Name, err)
			}

			run.Logger.Info("tool.call.success",
				"tool", call.Name,
				"call_id", call.ID,
				"duration_ms", time.Since(start).Milliseconds(),
			)

			outputs = append(outputs, core.ToolMessage{
				Content:    string(encoded),
				Name:       call.Name,
				ToolCallID: call.ID,
			})
		}

		return core.State{core.StateKeyMessages: outputs}, nil
	}
}
