package terminal

import (
	"context"
	"errors"

	"devagent/internal/logging"
)

// ErrRouterClosed is returned by Run when the socket sent a close message or
// the source was exhausted, as opposed to a hard transport error.
var ErrRouterClosed = errors.New("terminal: input router closed")

// MessageSource is the subset of coder/websocket.Conn's read surface
// InputRouter needs, shaped for substitution with a fake in tests.
type MessageSource interface {
	Read(ctx context.Context) (messageType int, data []byte, err error)
}

// TextMessage matches coder/websocket.MessageText's value without importing
// the package, mirroring BinaryMessage's approach in OutputPump.
const TextMessage = 1

// Writer is the narrow PtySession surface InputRouter needs to perform
// writes and resizes; satisfied by *PtySession.
type Writer interface {
	Write(payload []byte) error
	Resize(cols, rows uint16) error
}

// InputRouter decodes inbound WebSocket messages per the framed sub-protocol
// and dispatches each to a PTY write, a PTY resize, or a FlowGate
// pause/resume. One router serves exactly one TerminalSession.
type InputRouter struct {
	source MessageSource
	pty    Writer
	gate   *FlowGate
	logger *logging.ScopedLogger
}

// NewInputRouter constructs a router reading from source and dispatching to
// pty and gate.
func NewInputRouter(source MessageSource, pty Writer, gate *FlowGate, logger *logging.ScopedLogger) *InputRouter {
	return &InputRouter{source: source, pty: pty, gate: gate, logger: logger}
}

// Run reads messages until the source errors, the client closes the socket,
// or ctx is cancelled. A PTY write error terminates the router immediately;
// malformed control payloads are dropped silently per the wire contract.
func (r *InputRouter) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		messageType, data, err := r.source.Read(ctx)
		if err != nil {
			if isCloseError(err) {
				return ErrRouterClosed
			}
			return err
		}

		switch messageType {
		case BinaryMessage:
			if err := r.dispatchBinary(data); err != nil {
				return err
			}
		case TextMessage:
			r.dispatchText(data)
		default:
			// Ping/pong/continuation frames are handled by the transport
			// layer beneath MessageSource; nothing else to do here.
		}
	}
}

func (r *InputRouter) dispatchBinary(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	switch Opcode(data[0]) {
	case OpOutput:
		return r.pty.Write(data[1:])
	case OpResize:
		if msg, ok := parseResizeMessage(data[1:]); ok {
			if err := r.pty.Resize(msg.Columns, msg.Rows); err != nil && r.logger != nil {
				r.logger.Warn("resize failed", "error", err)
			}
		}
	case OpPause:
		r.gate.Pause()
	case OpResume:
		r.gate.Resume()
	default:
		// Unknown opcodes are ignored per the wire contract.
	}
	return nil
}

func (r *InputRouter) dispatchText(data []byte) {
	msg, ok := parseResizeMessage(data)
	if !ok {
		return
	}
	if err := r.pty.Resize(msg.Columns, msg.Rows); err != nil && r.logger != nil {
		r.logger.Warn("resize failed", "error", err)
	}
}

// isCloseError reports whether err represents a normal WebSocket close.
// MessageSource implementations should wrap their transport's close
// indication (e.g. coder/websocket's *websocket.CloseError) with
// ErrClientClosed so InputRouter need not import the transport package.
func isCloseError(err error) bool {
	return errors.Is(err, ErrClientClosed)
}

// ErrClientClosed is a sentinel MessageSource implementations wrap (via
// fmt.Errorf("%w: %w", ErrClientClosed, err)) to signal a clean close without
// InputRouter depending on the coder/websocket package directly.
var ErrClientClosed = errors.New("terminal: client closed connection")
