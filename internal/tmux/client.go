// pattern: Imperative Shell

package tmux

import (
	"context"
	"fmt"
	"strings"

	"devagent/internal/logging"
	"devagent/internal/subprocess"
)

// Client wraps the host tmux binary: it shells out to the tmux CLI rather
// than speaking its control-mode protocol, matching how the wrapper script
// itself drives tmux (has-session / attach / set).
type Client struct {
	runner *subprocess.Runner
	logger *logging.ScopedLogger
}

// NewClient creates a tmux Client backed by runner.
func NewClient(runner *subprocess.Runner, logger *logging.ScopedLogger) *Client {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Client{runner: runner, logger: logger}
}

// ListSessions lists all sessions on the host tmux server. A missing tmux
// server (no sessions yet) is not an error: it yields an empty slice.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	out, err := c.runner.Run(ctx, "tmux", "ls", "-F", "#{session_name}:#{session_windows}:#{session_attached}")
	if err != nil {
		c.logger.Debug("no tmux server running", "error", err)
		return nil, nil
	}
	return ParseSessions(out), nil
}

// ClientTTYs lists the controlling TTY of every client currently attached to
// the tmux server.
func (c *Client) ClientTTYs(ctx context.Context) ([]string, error) {
	out, err := c.runner.Run(ctx, "tmux", "list-clients", "-F", "#{client_tty}")
	if err != nil {
		return nil, err
	}
	var ttys []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			ttys = append(ttys, line)
		}
	}
	return ttys, nil
}

// IsClientAttached reports whether clientTTY currently has a tmux client.
func (c *Client) IsClientAttached(ctx context.Context, clientTTY string) bool {
	ttys, err := c.ClientTTYs(ctx)
	if err != nil {
		return false
	}
	for _, t := range ttys {
		if t == clientTTY {
			return true
		}
	}
	return false
}

// CurrentSession returns the name of the tmux session clientTTY's client is
// attached to, or "" if it isn't attached to any.
func (c *Client) CurrentSession(ctx context.Context, clientTTY string) (string, error) {
	if clientTTY == "" {
		return "", nil
	}
	out, err := c.runner.Run(ctx, "tmux", "list-clients", "-F", "#{client_tty} #{client_session}")
	if err != nil {
		return "", nil
	}
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(strings.TrimSpace(line), " ", 2)
		if len(parts) == 2 && parts[0] == clientTTY {
			return parts[1], nil
		}
	}
	return "", nil
}

// PaneCWD returns the current working directory of the session clientTTY's
// client is attached to, or "" if it cannot be determined.
func (c *Client) PaneCWD(ctx context.Context, clientTTY string) (string, error) {
	session, err := c.runner.Run(ctx, "tmux", "display-message", "-c", clientTTY, "-p", "#{client_session}")
	if err != nil {
		return "", err
	}
	session = strings.TrimSpace(session)
	if session == "" {
		return "", fmt.Errorf("tmux: no session for client %s", clientTTY)
	}

	path, err := c.runner.Run(ctx, "tmux", "display-message", "-t", session, "-p", "#{pane_current_path}")
	if err != nil {
		return "", err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("tmux: empty pane path for session %s", session)
	}
	return path, nil
}

// CreateSession creates a new detached session named name.
func (c *Client) CreateSession(ctx context.Context, name string) error {
	_, err := c.runner.Run(ctx, "tmux", "new-session", "-d", "-s", name)
	return err
}

// SwitchClient switches clientTTY's client to session.
func (c *Client) SwitchClient(ctx context.Context, clientTTY, session string) error {
	_, err := c.runner.Run(ctx, "tmux", "switch-client", "-c", clientTTY, "-t", session)
	return err
}

// KillSession destroys session.
func (c *Client) KillSession(ctx context.Context, name string) error {
	_, err := c.runner.Run(ctx, "tmux", "kill-session", "-t", name)
	return err
}

// DetachClient detaches clientTTY's client. Used by SessionSupervisor's
// teardown path; failures are expected and non-fatal when no multiplexer
// client was ever attached.
func (c *Client) DetachClient(ctx context.Context, clientTTY string) error {
	_, err := c.runner.Run(ctx, "tmux", "detach-client", "-t", clientTTY)
	return err
}
