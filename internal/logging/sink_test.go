// pattern: Imperative Shell

package logging

import (
	"encoding/json"
	"testing"
	"time"
)

func TestChannelSink_Write(t *testing.T) {
	sink := NewChannelSink(10)
	defer func() { _ = sink.Close() }()

	// Write a log entry as JSON (simulating what zap sends)
	raw := map[string]any{
		"level":  "info",
		"ts":     time.Now().Unix(),
		"logger": "terminal.supervisor",
		"msg":    "session attached",
		"shell":  "/bin/zsh",
	}
	data, _ := json.Marshal(raw)
	data = append(data, '\n')

	n, err := sink.Write(data)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if n != len(data) {
		t.Errorf("Write() = %d, want %d", n, len(data))
	}

	select {
	case got := <-sink.Entries():
		if got.Message != "session attached" {
			t.Errorf("Message = %q, want %q", got.Message, "session attached")
		}
		if got.Scope != "terminal.supervisor" {
			t.Errorf("Scope = %q, want %q", got.Scope, "terminal.supervisor")
		}
		if got.Level != "INFO" {
			t.Errorf("Level = %q, want %q", got.Level, "INFO")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for log entry")
	}
}

func TestChannelSink_WriteDropsOldestWhenFull(t *testing.T) {
	sink := NewChannelSink(2)
	defer func() { _ = sink.Close() }()

	raw := map[string]any{"level": "info", "msg": "pty read", "logger": "terminal.output_pump"}
	data, _ := json.Marshal(raw)
	data = append(data, '\n')

	const writes = 5
	for i := 0; i < writes; i++ {
		n, err := sink.Write(data)
		if err != nil {
			t.Fatalf("Write() error on iteration %d: %v", i, err)
		}
		if n != len(data) {
			t.Errorf("Write() = %d, want %d", n, len(data))
		}
	}

	drained := 0
drainLoop:
	for {
		select {
		case <-sink.Entries():
			drained++
		default:
			break drainLoop
		}
	}
	if drained > 2 {
		t.Errorf("drained %d entries, want at most the buffer size (2)", drained)
	}
}

func TestChannelSink_Sync(t *testing.T) {
	sink := NewChannelSink(10)
	defer func() { _ = sink.Close() }()

	if err := sink.Sync(); err != nil {
		t.Errorf("Sync() error = %v", err)
	}
}

func TestChannelSink_WriteAfterCloseErrors(t *testing.T) {
	sink := NewChannelSink(10)
	_ = sink.Close()

	if _, err := sink.Write([]byte(`{"msg":"late write"}`)); err == nil {
		t.Error("Write() after Close() should return an error")
	}
}

func TestChannelSink_ConcurrentWriteAndClose(t *testing.T) {
	sink := NewChannelSink(10)

	raw := map[string]any{"level": "info", "msg": "concurrent write", "logger": "tmux"}
	data, _ := json.Marshal(raw)
	data = append(data, '\n')

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_, _ = sink.Write(data)
		}
	}()

	// Close while the writer is mid-flight — must not panic or deadlock.
	_ = sink.Close()
	<-done
}

func TestChannelSink_Send(t *testing.T) {
	sink := NewChannelSink(10)
	defer func() { _ = sink.Close() }()

	sink.Send(LogEntry{
		Timestamp: time.Now(),
		Level:     "INFO",
		Scope:     "vcs",
		Message:   "checked out branch",
		Fields:    map[string]any{"branch": "main"},
	})

	select {
	case got := <-sink.Entries():
		if got.Message != "checked out branch" {
			t.Errorf("Message = %q, want %q", got.Message, "checked out branch")
		}
		if got.Scope != "vcs" {
			t.Errorf("Scope = %q, want %q", got.Scope, "vcs")
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for log entry from Send()")
	}
}

func TestChannelSink_SendDropsOldestWhenFull(t *testing.T) {
	sink := NewChannelSink(2)
	defer func() { _ = sink.Close() }()

	entry := LogEntry{
		Timestamp: time.Now(),
		Level:     "INFO",
		Scope:     "cwd",
		Message:   "resolved",
		Fields:    make(map[string]any),
	}

	const sends = 5
	for i := 0; i < sends; i++ {
		sink.Send(entry)
	}

	drained := 0
drainLoop:
	for {
		select {
		case <-sink.Entries():
			drained++
		default:
			break drainLoop
		}
	}
	if drained > 2 {
		t.Errorf("drained %d entries, want at most the buffer size (2)", drained)
	}
}

func TestChannelSink_SendAfterCloseIsNoop(t *testing.T) {
	sink := NewChannelSink(10)
	_ = sink.Close()

	// Must not panic.
	sink.Send(LogEntry{
		Timestamp: time.Now(),
		Level:     "INFO",
		Scope:     "cwd",
		Message:   "resolved",
		Fields:    make(map[string]any),
	})
}
