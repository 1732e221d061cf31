package model

import (
	"context"
	"testing"

	"github.com/hupe1980/chatflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ Model = (*MockModel)(nil)

func drain(t *testing.T, respCh <-chan Response, errCh <-chan error) ([]Response, error) {
	t.Helper()
	var out []Response
	for r := range respCh {
		out = append(out, r)
	}
	return out, <-errCh
}

func TestMockModelStreamsThenFinal(t *testing.T) {
	m := NewMockModel("mock", "mock")
	m.AddResponse("Hi", "Hello!")

	respCh, errCh := m.Generate(context.Background(), Request{
		Messages: []core.Message{core.HumanMessage{Content: "Hi"}},
		Stream:   true,
	})

	responses, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	require.NotEmpty(t, responses)

	var streamed string
	for _, r := range responses[:len(responses)-1] {
		assert.True(t, r.Partial)
		streamed += r.Token
	}

	final := responses[len(responses)-1]
	assert.False(t, final.Partial)
	require.NotNil(t, final.Message)
	assert.Equal(t, "Hello!", final.Message.Content)
	assert.Equal(t, "Hello!", streamed)
	assert.Equal(t, "stop", final.FinishReason)
}

func TestMockModelQueueConsumedInOrder(t *testing.T) {
	m := NewMockModel("mock", "mock")
	m.Queue(core.AIMessage{ToolCalls: []core.ToolCall{{ID: "c1", Name: "get_datetime_now"}}})
	m.Queue(core.AIMessage{Content: "done"})

	req := Request{Messages: []core.Message{core.HumanMessage{Content: "what time is it?"}}}

	respCh, errCh := m.Generate(context.Background(), req)
	responses, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Message)
	assert.True(t, responses[0].Message.HasToolCalls())
	assert.Equal(t, "tool_calls", responses[0].FinishReason)

	respCh, errCh = m.Generate(context.Background(), req)
	responses, err = drain(t, respCh, errCh)
	require.NoError(t, err)
	require.Len(t, responses, 1)
	assert.Equal(t, "done", responses[0].Message.Content)

	assert.Equal(t, 2, m.Calls())
}

func TestMockModelEmptyRequest(t *testing.T) {
	m := NewMockModel("mock", "mock")

	respCh, errCh := m.Generate(context.Background(), Request{})
	_, err := drain(t, respCh, errCh)
	require.Error(t, err)
}
