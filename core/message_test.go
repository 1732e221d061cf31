package core

import "testing"

func TestMessageTypeTags(t *testing.T) {
	cases := []struct {
		msg  Message
		want string
	}{
		{SystemMessage{Content: "sys"}, MessageTypeSystem},
		{HumanMessage{Content: "hi"}, MessageTypeHuman},
		{AIMessage{Content: "hello"}, MessageTypeAI},
		{ToolMessage{Content: "{}", ToolCallID: "call-1"}, MessageTypeTool},
	}

	for _, c := range cases {
		if got := c.msg.Type(); got != c.want {
			t.Errorf("Type() = %q, want %q", got, c.want)
		}
	}
}

func TestMessageText(t *testing.T) {
	msgs := []Message{
		SystemMessage{Content: "a"},
		HumanMessage{Content: "b"},
		AIMessage{Content: "c"},
		ToolMessage{Content: "d"},
	}
	want := []string{"a", "b", "c", "d"}

	for i, m := range msgs {
		if m.Text() != want[i] {
			t.Errorf("Text() = %q, want %q", m.Text(), want[i])
		}
	}
}

func TestAIMessageHasToolCalls(t *testing.T) {
	plain := AIMessage{Content: "just prose"}
	if plain.HasToolCalls() {
		t.Error("expected no tool calls")
	}

	calling := AIMessage{ToolCalls: []ToolCall{{ID: "c1", Name: "get_datetime_now"}}}
	if !calling.HasToolCalls() {
		t.Error("expected tool calls")
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if id == "" {
			t.Fatal("empty id")
		}
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
