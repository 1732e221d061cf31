package graph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/chatflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passThrough(_ context.Context, _ *Run, _ core.State) (core.State, error) {
	return core.State{}, nil
}

func TestCompileValidation(t *testing.T) {
	_, err := NewDefinition().Compile()
	assert.Error(t, err, "empty graph must not compile")

	_, err = NewDefinition().AddNode("a", passThrough).Compile()
	assert.Error(t, err, "missing entry point must not compile")

	_, err = NewDefinition().AddNode("a", passThrough).SetEntryPoint("b").Compile()
	assert.Error(t, err, "unknown entry point must not compile")

	_, err = NewDefinition().
		AddNode("a", passThrough).
		AddEdge("a", "b").
		SetEntryPoint("a").
		Compile()
	assert.Error(t, err, "edge to unknown node must not compile")

	_, err = NewDefinition().
		AddNode("a", passThrough).
		AddEdge("a", End).
		AddConditionalEdge("a", func(core.State) string { return End }).
		SetEntryPoint("a").
		Compile()
	assert.Error(t, err, "static plus conditional edge on one node must not compile")
}

func TestStreamLinear(t *testing.T) {
	def := NewDefinition().
		AddNode("first", func(_ context.Context, _ *Run, _ core.State) (core.State, error) {
			return core.State{"a": 1}, nil
		}).
		AddNode("second", func(_ context.Context, _ *Run, s core.State) (core.State, error) {
			assert.Equal(t, 1, s["a"], "second node must see first node's delta")
			return core.State{"b": 2}, nil
		}).
		AddEdge("first", "second").
		SetEntryPoint("first")

	g, err := def.Compile()
	require.NoError(t, err)

	events, errs := g.Stream(context.Background(), core.NewState())

	var types []EventType
	var final core.State
	for ev := range events {
		types = append(types, ev.Type)
		if ev.IsFinal() {
			final = ev.State
		}
	}
	require.NoError(t, <-errs)

	assert.Equal(t, []EventType{EventNode, EventNode, EventDone}, types)
	require.NotNil(t, final)
	assert.Equal(t, 1, final["a"])
	assert.Equal(t, 2, final["b"])
}

func TestStreamConditionalLoop(t *testing.T) {
	def := NewDefinition().
		AddNode("count", func(_ context.Context, _ *Run, s core.State) (core.State, error) {
			n, _ := s["n"].(int)
			return core.State{"n": n + 1}, nil
		}).
		AddConditionalEdge("count", func(s core.State) string {
			if n, _ := s["n"].(int); n < 3 {
				return "count"
			}
			return End
		}).
		SetEntryPoint("count")

	g, err := def.Compile()
	require.NoError(t, err)

	final, err := g.Invoke(context.Background(), core.NewState())
	require.NoError(t, err)
	assert.Equal(t, 3, final["n"])
}

func TestStreamMaxStepsExceeded(t *testing.T) {
	def := NewDefinition().
		AddNode("loop", passThrough).
		AddEdge("loop", "loop").
		SetEntryPoint("loop")

	g, err := def.Compile(func(o *Options) { o.MaxSteps = 5 })
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), core.NewState())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max graph steps")
}

func TestStreamNodeError(t *testing.T) {
	boom := errors.New("boom")
	def := NewDefinition().
		AddNode("fail", func(_ context.Context, _ *Run, _ core.State) (core.State, error) {
			return nil, boom
		}).
		SetEntryPoint("fail")

	g, err := def.Compile()
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), core.NewState())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestStreamCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	def := NewDefinition().
		AddNode("block", func(ctx context.Context, _ *Run, _ core.State) (core.State, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}).
		SetEntryPoint("block")

	g, err := def.Compile()
	require.NoError(t, err)

	events, errs := g.Stream(ctx, core.NewState())

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	for range events {
	}
	err = <-errs
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStreamTokens(t *testing.T) {
	def := NewDefinition().
		AddNode("speak", func(_ context.Context, run *Run, _ core.State) (core.State, error) {
			for _, tok := range []string{"he", "llo"} {
				if err := run.EmitToken(tok); err != nil {
					return nil, err
				}
			}
			return core.State{"spoken": true}, nil
		}).
		SetEntryPoint("speak")

	g, err := def.Compile()
	require.NoError(t, err)

	events, errs := g.Stream(context.Background(), core.NewState())

	var tokens []string
	var sawNode bool
	for ev := range events {
		switch ev.Type {
		case EventToken:
			assert.False(t, sawNode, "tokens must precede the node event")
			assert.Equal(t, "speak", ev.Node)
			tokens = append(tokens, ev.Token)
		case EventNode:
			sawNode = true
		}
	}
	require.NoError(t, <-errs)
	assert.Equal(t, []string{"he", "llo"}, tokens)
}

func TestRunLimiter(t *testing.T) {
	def := NewDefinition().
		AddNode("call", func(_ context.Context, run *Run, _ core.State) (core.State, error) {
			if err := run.Limiter.Increment(); err != nil {
				return nil, err
			}
			return core.State{}, nil
		}).
		AddConditionalEdge("call", func(core.State) string { return "call" }).
		SetEntryPoint("call")

	g, err := def.Compile(func(o *Options) { o.MaxModelCalls = 3; o.MaxSteps = 100 })
	require.NoError(t, err)

	_, err = g.Invoke(context.Background(), core.NewState())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max model calls")
}
