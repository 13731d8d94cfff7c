package terminal

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"

	"devagent/internal/logging"
)

const teardownGracePeriod = 100 * time.Millisecond

// Conn is the narrow coder/websocket.Conn surface SessionSupervisor needs:
// enough to both read inbound frames and write outbound ones. A real
// *websocket.Conn satisfies this directly; tests substitute a fake.
type Conn interface {
	FrameSink
	MessageSource
}

// Detacher performs a best-effort multiplexer detach for the session owning
// clientTTY. Wired to internal/tmux in production; failures are logged, never
// fatal, per the teardown contract.
type Detacher func(ctx context.Context, clientTTY string) error

// Config configures a SessionSupervisor's spawn behavior. Probe and wrapper
// paths are process-wide by design — a single-instance simplification.
type Config struct {
	Shell          string
	WrapperPath    string
	TTYProbePath   string
	CWDProbePath   string
	WrapperBuilder *WrapperScriptBuilder
}

// SessionSupervisor wires a PtySession, FlowGate, OutputPump, and
// InputRouter into one terminal session and owns teardown ordering.
type SessionSupervisor struct {
	cfg      Config
	registry *ClientTTYRegistry
	detach   Detacher
	logger   *logging.ScopedLogger
}

// NewSessionSupervisor constructs a supervisor. detach may be nil, in which
// case teardown skips the multiplexer-detach step entirely.
func NewSessionSupervisor(cfg Config, registry *ClientTTYRegistry, detach Detacher, logger *logging.ScopedLogger) *SessionSupervisor {
	if cfg.WrapperBuilder == nil {
		cfg.WrapperBuilder = NewWrapperScriptBuilder()
	}
	return &SessionSupervisor{cfg: cfg, registry: registry, detach: detach, logger: logger}
}

// Run drives one terminal session end to end: handshake, wrapper emission,
// PTY spawn, task fan-out, and teardown. It returns once the session has
// fully torn down; the returned error, if any, reflects why the session
// ended (not a teardown failure, which is always best-effort).
func (s *SessionSupervisor) Run(ctx context.Context, conn Conn) error {
	cols, rows, err := s.handshake(ctx, conn)
	if err != nil {
		return fmt.Errorf("handshake: %w", err)
	}

	if err := s.cfg.WrapperBuilder.Build(s.cfg.WrapperPath, s.cfg.Shell, s.cfg.TTYProbePath, s.cfg.CWDProbePath); err != nil {
		return fmt.Errorf("build wrapper script: %w", err)
	}

	pty, err := Open(s.cfg.WrapperPath, nil, childEnv(), cols, rows)
	if err != nil {
		errFrame := append([]byte{byte(OpOutput)}, []byte(fmt.Sprintf("Error: %v\r\n", err))...)
		_ = conn.Write(ctx, BinaryMessage, errFrame)
		return fmt.Errorf("open pty: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	gate := NewFlowGate(s.logger)
	pump := NewOutputPump(conn, s.registry, s.logger)
	router := NewInputRouter(conn, pty, gate, s.logger)

	chunks := make(chan []byte)
	readerDone := make(chan struct{})
	go s.readLoop(sessionCtx, pty, gate, chunks, readerDone)

	pumpErr := make(chan error, 1)
	routerErr := make(chan error, 1)
	go func() { pumpErr <- pump.Run(sessionCtx, chunks) }()
	go func() { routerErr <- router.Run(sessionCtx) }()

	var runErr error
	pumpDone, routerDone := false, false
	select {
	case runErr = <-pumpErr:
		pumpDone = true
	case runErr = <-routerErr:
		routerDone = true
	}

	cancel()

	// (a) release the flow gate before joining the reader thread.
	gate.Resume()

	select {
	case <-readerDone:
	case <-time.After(2 * time.Second):
		if s.logger != nil {
			s.logger.Warn("pty reader did not exit within grace period")
		}
	}

	// (b) multiplexer detach is best-effort using the per-connection
	// observation, never the registry. Both it and the final pty.Close
	// below can fail independently, so collect rather than let the second
	// error silently win.
	var teardownErr error
	clientTTY := pump.SessionTTY()
	if s.detach != nil && clientTTY != "" {
		detachCtx, detachCancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := s.detach(detachCtx, clientTTY); err != nil {
			teardownErr = multierr.Append(teardownErr, fmt.Errorf("multiplexer detach: %w", err))
		}
		detachCancel()
	}

	if s.registry != nil && clientTTY != "" {
		s.registry.ClearIfEqual(clientTTY)
	}

	// (c) 100ms grace before the final handle drop, so detach (if any) has
	// propagated before the child receives SIGHUP from master close.
	time.Sleep(teardownGracePeriod)

	if err := pty.Close(); err != nil {
		teardownErr = multierr.Append(teardownErr, fmt.Errorf("pty close: %w", err))
	}
	if !pumpDone {
		<-pumpErr
	}
	if !routerDone {
		<-routerErr
	}

	if teardownErr != nil && s.logger != nil {
		s.logger.Warn("session teardown had errors", "error", teardownErr)
	}

	return runErr
}

// handshake reads exactly one message and parses it as an InitMessage,
// defaulting to 80x24 on any parse failure or unexpected message type.
func (s *SessionSupervisor) handshake(ctx context.Context, conn Conn) (cols, rows uint16, err error) {
	messageType, data, err := conn.Read(ctx)
	if err != nil {
		return 0, 0, err
	}
	if messageType != BinaryMessage && messageType != TextMessage {
		return defaultCols, defaultRows, nil
	}
	cols, rows = parseInitMessage(data)
	return cols, rows, nil
}

// readLoop performs blocking reads off the PTY master, respecting the flow
// gate before each read, and forwards chunks to the pump until the PTY
// closes or ctx is cancelled and the pump has stopped accepting chunks. It
// is the session's one true reader thread.
func (s *SessionSupervisor) readLoop(ctx context.Context, pty *PtySession, gate *FlowGate, chunks chan<- []byte, done chan<- struct{}) {
	defer close(done)
	defer close(chunks)

	buf := make([]byte, 16*1024)
	reader := pty.Reader()
	for {
		gate.WaitIfPaused()

		n, err := reader.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// childEnv builds the spawned shell's environment: the parent's environment
// plus a forced TERM, minus multiplexer inheritance variables (the wrapper
// script also unsets these, but setting env here keeps non-interactive
// children, e.g. a `sh -c` probe, consistent too).
func childEnv() []string {
	env := os.Environ()
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if hasEnvKey(kv, "TMUX") || hasEnvKey(kv, "TMUX_PANE") || hasEnvKey(kv, "TERM") {
			continue
		}
		out = append(out, kv)
	}
	out = append(out, "TERM=xterm-256color")
	return out
}

func hasEnvKey(kv, key string) bool {
	return len(kv) > len(key) && kv[:len(key)] == key && kv[len(key)] == '='
}
