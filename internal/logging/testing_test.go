// pattern: Imperative Shell

package logging

import (
	"testing"
)

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	if logger == nil {
		t.Fatal("NopLogger() returned nil")
	}

	// Should not panic
	logger.Debug("pty resized")
	logger.Info("pty resized")
	logger.Warn("pty resized")
	logger.Error("pty resized")
}

func TestNopLogger_With(t *testing.T) {
	logger := NopLogger()
	withLogger := logger.With("session", "session1")
	if withLogger == nil {
		t.Fatal("With() returned nil")
	}

	// Should not panic
	withLogger.Info("session attached")
}

func TestNewTestLogManager(t *testing.T) {
	lm := NewTestLogManager(10)
	if lm == nil {
		t.Fatal("NewTestLogManager() returned nil")
	}
	defer func() { _ = lm.Close() }()

	// Get logger and write
	logger := lm.For("terminal.session1")
	logger.Info("session attached")

	// Should receive entry on channel
	select {
	case entry := <-lm.Channel():
		if entry.Message != "session attached" {
			t.Errorf("expected 'session attached', got %q", entry.Message)
		}
		if entry.Scope != "terminal.session1" {
			t.Errorf("expected scope 'terminal.session1', got %q", entry.Scope)
		}
	default:
		t.Error("no entry received on channel")
	}
}

func TestNewTestLogManager_Channel(t *testing.T) {
	lm := NewTestLogManager(5)
	defer func() { _ = lm.Close() }()

	ch := lm.Channel()
	if ch == nil {
		t.Error("Channel() returned nil")
	}
}
