package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"devagent/internal/logging"
)

type fakeConn struct {
	mu      sync.Mutex
	inbox   []fakeMessage
	inIdx   int
	written [][]byte
}

func (c *fakeConn) Read(ctx context.Context) (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inIdx >= len(c.inbox) {
		return 0, nil, fmt.Errorf("fakeConn: exhausted: %w", ErrClientClosed)
	}
	m := c.inbox[c.inIdx]
	c.inIdx++
	return m.messageType, m.data, nil
}

func (c *fakeConn) Write(_ context.Context, _ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, append([]byte{}, data...))
	return nil
}

func (c *fakeConn) snapshot() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.written))
	copy(out, c.written)
	return out
}

func newInitFrame(t *testing.T, cols, rows uint32) []byte {
	t.Helper()
	body, err := json.Marshal(InitMessage{Columns: cols, Rows: rows})
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func TestSessionSupervisor_RunsSessionAndForwardsTTYAnnounce(t *testing.T) {
	dir := t.TempDir()
	registry := NewClientTTYRegistry()

	conn := &fakeConn{inbox: []fakeMessage{
		{messageType: TextMessage, data: newInitFrame(t, 80, 24)},
	}}

	cfg := Config{
		Shell:        "/bin/sh",
		WrapperPath:  filepath.Join(dir, "wrapper.sh"),
		TTYProbePath: filepath.Join(dir, "tty_probe"),
		CWDProbePath: filepath.Join(dir, "cwd_probe"),
	}

	sup := NewSessionSupervisor(cfg, registry, nil, logging.NopLogger())

	done := make(chan error, 1)
	go func() { done <- sup.Run(context.Background(), conn) }()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, ErrRouterClosed) {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within timeout")
	}

	frames := conn.snapshot()
	var sawAnnounce bool
	for _, f := range frames {
		if len(f) > 0 && Opcode(f[0]) == OpOutput && strings.Contains(string(f[1:]), "]7337;") {
			sawAnnounce = true
		}
	}
	if !sawAnnounce {
		t.Error("expected at least one output frame carrying the tty announce sequence")
	}
}

func TestSessionSupervisor_HandshakeFailureEndsSession(t *testing.T) {
	dir := t.TempDir()
	conn := &fakeConn{inbox: nil}

	cfg := Config{
		Shell:        "/bin/sh",
		WrapperPath:  filepath.Join(dir, "wrapper.sh"),
		TTYProbePath: filepath.Join(dir, "tty_probe"),
		CWDProbePath: filepath.Join(dir, "cwd_probe"),
	}
	sup := NewSessionSupervisor(cfg, NewClientTTYRegistry(), nil, logging.NopLogger())

	err := sup.Run(context.Background(), conn)
	if err == nil {
		t.Fatal("expected error when no handshake message is available")
	}
}

func TestSessionSupervisor_PtySpawnFailureReportsErrorFrame(t *testing.T) {
	dir := t.TempDir()
	conn := &fakeConn{inbox: []fakeMessage{
		{messageType: TextMessage, data: newInitFrame(t, 80, 24)},
	}}

	cfg := Config{
		Shell:        "/no/such/shell-xyz",
		WrapperPath:  filepath.Join(dir, "wrapper.sh"),
		TTYProbePath: filepath.Join(dir, "tty_probe"),
		CWDProbePath: filepath.Join(dir, "cwd_probe"),
	}
	sup := NewSessionSupervisor(cfg, NewClientTTYRegistry(), nil, logging.NopLogger())

	err := sup.Run(context.Background(), conn)
	if err == nil {
		t.Fatal("expected error for unspawnable shell")
	}

	frames := conn.snapshot()
	if len(frames) != 1 || Opcode(frames[0][0]) != OpOutput || !strings.HasPrefix(string(frames[0][1:]), "Error:") {
		t.Fatalf("frames = %v, want a single Error: output frame", frames)
	}
}

func TestSessionSupervisor_TeardownKeepsOtherTTYInRegistry(t *testing.T) {
	dir := t.TempDir()
	registry := NewClientTTYRegistry()
	registry.SetIfEmptyOrEqual("/dev/pts/99")

	conn := &fakeConn{inbox: []fakeMessage{
		{messageType: TextMessage, data: newInitFrame(t, 80, 24)},
	}}

	cfg := Config{
		Shell:        "/bin/sh",
		WrapperPath:  filepath.Join(dir, "wrapper.sh"),
		TTYProbePath: filepath.Join(dir, "tty_probe"),
		CWDProbePath: filepath.Join(dir, "cwd_probe"),
	}
	sup := NewSessionSupervisor(cfg, registry, nil, logging.NopLogger())

	done := make(chan error, 1)
	go func() { done <- sup.Run(context.Background(), conn) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within timeout")
	}

	// The session's own announce path differs from the pre-seeded /dev/pts/99,
	// so ClearIfEqual must be a no-op and the stale value must survive.
	if got := registry.Get(); got != "/dev/pts/99" {
		t.Fatalf("registry.Get() = %q, want unchanged /dev/pts/99", got)
	}
}

func TestSessionSupervisor_DetacherInvokedWithPerConnectionTTY(t *testing.T) {
	dir := t.TempDir()
	conn := &fakeConn{inbox: []fakeMessage{
		{messageType: TextMessage, data: newInitFrame(t, 80, 24)},
	}}

	var mu sync.Mutex
	var detachedWith string
	detach := func(_ context.Context, clientTTY string) error {
		mu.Lock()
		defer mu.Unlock()
		detachedWith = clientTTY
		return nil
	}

	cfg := Config{
		Shell:        "/bin/sh",
		WrapperPath:  filepath.Join(dir, "wrapper.sh"),
		TTYProbePath: filepath.Join(dir, "tty_probe"),
		CWDProbePath: filepath.Join(dir, "cwd_probe"),
	}
	sup := NewSessionSupervisor(cfg, NewClientTTYRegistry(), detach, logging.NopLogger())

	done := make(chan error, 1)
	go func() { done <- sup.Run(context.Background(), conn) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return within timeout")
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.HasPrefix(detachedWith, "/dev/pts/") {
		t.Fatalf("detachedWith = %q, want a /dev/pts/ path", detachedWith)
	}
}
