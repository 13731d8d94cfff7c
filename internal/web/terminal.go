// pattern: Imperative Shell

package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coder/websocket"

	"devagent/internal/terminal"
)

// websocketConn adapts *websocket.Conn to terminal.Conn so internal/terminal
// never needs to import the transport package directly.
type websocketConn struct {
	conn *websocket.Conn
}

func (c *websocketConn) Write(ctx context.Context, messageType int, data []byte) error {
	return c.conn.Write(ctx, websocket.MessageType(messageType), data)
}

func (c *websocketConn) Read(ctx context.Context) (int, []byte, error) {
	mt, data, err := c.conn.Read(ctx)
	if err != nil && websocket.CloseStatus(err) != -1 {
		err = fmt.Errorf("%w: %w", terminal.ErrClientClosed, err)
	}
	return int(mt), data, err
}

// handleWS upgrades to the "tty" WebSocket sub-protocol and runs a terminal
// session for the connection's lifetime.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       []string{"tty"},
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Error("websocket accept failed", "error", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()
	conn.SetReadLimit(1 << 20)

	supervisor := terminal.NewSessionSupervisor(terminal.Config{
		Shell:        s.cfg.Shell,
		WrapperPath:  s.wrapperPath,
		TTYProbePath: s.ttyProbePath,
		CWDProbePath: s.cwdProbePath,
	}, s.registry, s.detachClient, s.logger)

	// The request context dies when the handler returns, which would race
	// the session's own lifetime; the supervisor owns its own teardown via
	// the connection closing, not ours.
	if err := supervisor.Run(context.Background(), &websocketConn{conn: conn}); err != nil {
		s.logger.Warn("terminal session ended", "error", err)
	}

	_ = conn.Close(websocket.StatusNormalClosure, "terminal closed")
}

// detachClient best-effort detaches clientTTY's multiplexer client at
// session teardown, matching the teardown step the supervisor calls for.
func (s *Server) detachClient(ctx context.Context, clientTTY string) error {
	return s.tmuxClient.DetachClient(ctx, clientTTY)
}
