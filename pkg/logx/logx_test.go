package logx

import "testing"

func TestIsDebugEnabled(t *testing.T) {
	SetDebug(false, nil)
	if IsDebugEnabled("pipeline") {
		t.Error("Expected debug disabled by default")
	}

	SetDebug(true, nil)
	if !IsDebugEnabled("pipeline") {
		t.Error("Expected all domains enabled when no filter set")
	}

	SetDebug(true, []string{"conversation"})
	if IsDebugEnabled("pipeline") {
		t.Error("Expected pipeline domain filtered out")
	}
	if !IsDebugEnabled("conversation") {
		t.Error("Expected conversation domain enabled")
	}

	// Restore defaults for other tests.
	SetDebug(false, nil)
}

func TestWithComponent(t *testing.T) {
	base := NewLogger("conversation")
	sub := base.WithComponent("session-abc")

	if sub.Component() != "session-abc" {
		t.Errorf("Expected component session-abc, got %s", sub.Component())
	}
	if base.Component() != "conversation" {
		t.Error("Expected base logger unchanged")
	}
}

func TestWrapNil(t *testing.T) {
	if err := Wrap(nil, "context"); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
}
