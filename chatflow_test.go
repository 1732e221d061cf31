package chatflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/chatflow/model"
	"github.com/hupe1980/chatflow/store"
	"github.com/hupe1980/chatflow/workflow"
)

func TestChatflowSendSync(t *testing.T) {
	mock := model.NewMockModel("test-model", "mock")
	mock.AddResponse("Hi", "Hello! How can I help you?")

	app := New(func(o *Options) {
		o.Model = mock
	})

	sess, err := app.Start("", "Simple Chat")
	require.NoError(t, err)

	reply, err := app.SendSync(context.Background(), sess.ThreadID(), "Hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help you?", reply)
}

func TestChatflowEndAndResume(t *testing.T) {
	mock := model.NewMockModel("test-model", "mock")
	mock.AddResponse("Hi", "Hello!")
	mem := store.NewMemory()

	app := New(func(o *Options) {
		o.Model = mock
		o.Store = mem
	})

	sess, err := app.Start("thread-1", "Simple Chat")
	require.NoError(t, err)

	_, err = app.SendSync(context.Background(), sess.ThreadID(), "Hi")
	require.NoError(t, err)

	require.NoError(t, app.End(context.Background(), "thread-1"))

	rec, err := mem.Get(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "Simple Chat", rec.Workflow)

	resumed, err := app.Resume(context.Background(), "thread-1")
	require.NoError(t, err)
	assert.Len(t, resumed.State().Messages(), 2)
}

func TestChatflowRegisterWorkflowReplaces(t *testing.T) {
	app := New()

	app.RegisterWorkflow(func() workflow.Workflow {
		return workflow.NewSimpleChat(func(o *workflow.SimpleChatOptions) {
			o.ChatModels = []string{"gpt-4o", "claude-sonnet"}
		})
	})

	descriptors := app.Workflows()
	require.Len(t, descriptors, 1)
	require.Len(t, descriptors[0].Settings, 1)
	assert.Equal(t, workflow.SettingTypeSelect, descriptors[0].Settings[0].Type)
	assert.Equal(t, "gpt-4o", descriptors[0].Settings[0].Initial)
}

func TestChatflowDefaultsToMockModel(t *testing.T) {
	app := New()

	sess, err := app.Start("", "Simple Chat")
	require.NoError(t, err)

	reply, err := app.SendSync(context.Background(), sess.ThreadID(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "Mock response to: ping", reply)
}
