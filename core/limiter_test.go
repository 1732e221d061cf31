package core

import "testing"

func TestCallLimiter(t *testing.T) {
	cl := NewCallLimiter(2)

	if err := cl.Increment(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cl.Increment(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cl.Remaining() != 0 {
		t.Errorf("expected 0 remaining, got %d", cl.Remaining())
	}
	if err := cl.Increment(); err == nil {
		t.Fatal("expected limit error")
	}
	if cl.Count() != 3 {
		t.Errorf("expected count 3, got %d", cl.Count())
	}
}

func TestCallLimiterUnlimited(t *testing.T) {
	cl := NewCallLimiter(0)
	for i := 0; i < 50; i++ {
		if err := cl.Increment(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if cl.Remaining() != -1 {
		t.Errorf("expected -1 remaining for unlimited, got %d", cl.Remaining())
	}
}
