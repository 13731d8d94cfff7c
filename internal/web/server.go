// pattern: Imperative Shell

package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"devagent/internal/cwd"
	"devagent/internal/logging"
	"devagent/internal/subprocess"
	"devagent/internal/terminal"
	"devagent/internal/tmux"
	"devagent/internal/vcs"
)

// Config holds web server configuration. ProbeDir is the directory the
// wrapper script, its TTY/CWD probe files, and uploaded images live under;
// StaticDir is served for every path the API routes don't claim.
type Config struct {
	Bind      string
	Port      int
	Shell     string
	StaticDir string
	ProbeDir  string
}

// Server is the HTTP/WebSocket gateway: one `/ws` terminal endpoint plus the
// REST collaborators (cwd, git, tmux, image upload, log/event streams) that
// give the browser UI everything a local terminal emulator gets for free.
type Server struct {
	httpServer *http.Server
	logger     *logging.ScopedLogger
	addr       string
	listener   net.Listener

	cfg        Config
	registry   *terminal.ClientTTYRegistry
	tmuxClient *tmux.Client
	repo       *vcs.Repository
	resolver   *cwd.Resolver
	logEntries <-chan logging.LogEntry

	wrapperPath  string
	ttyProbePath string
	cwdProbePath string
	imagesDir    string
}

// New wires a Server from its collaborators. logEntries, if non-nil, backs
// GET /api/logs/stream (typically (*logging.Manager).Entries()).
func New(cfg Config, logProvider logging.LoggerProvider, logEntries <-chan logging.LogEntry) *Server {
	if cfg.ProbeDir == "" {
		cfg.ProbeDir = "/tmp/devagent"
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "/tmp/devagent_static"
	}
	if cfg.Shell == "" {
		cfg.Shell = "/bin/bash"
	}

	logger := logProvider.For("web")
	runner := subprocess.New(logProvider.For("subprocess"))
	tmuxClient := tmux.NewClient(runner, logProvider.For("tmux"))

	s := &Server{
		logger:       logger,
		addr:         fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		cfg:          cfg,
		registry:     terminal.NewClientTTYRegistry(),
		tmuxClient:   tmuxClient,
		repo:         vcs.NewRepository(runner),
		logEntries:   logEntries,
		wrapperPath:  filepath.Join(cfg.ProbeDir, "wrapper.sh"),
		ttyProbePath: filepath.Join(cfg.ProbeDir, "client_tty"),
		cwdProbePath: filepath.Join(cfg.ProbeDir, "cwd"),
		imagesDir:    filepath.Join(cfg.ProbeDir, "images"),
	}
	s.resolver = cwd.NewResolver(runner, s.cwdProbePath, s.tmuxPaneCWD)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/client-tty", s.handleClientTTY)
	mux.HandleFunc("GET /api/cwd", s.handleCwd)
	mux.HandleFunc("GET /api/diff", s.handleDiff)
	mux.HandleFunc("GET /api/git/branches", s.handleGitBranches)
	mux.HandleFunc("GET /api/git/checkout", s.handleGitCheckout)
	mux.HandleFunc("GET /api/tmux/list", s.handleTmuxList)
	mux.HandleFunc("GET /api/tmux/switch", s.handleTmuxSwitch)
	mux.HandleFunc("GET /api/tmux/create", s.handleTmuxCreate)
	mux.HandleFunc("GET /api/tmux/kill", s.handleTmuxKill)
	mux.HandleFunc("GET /api/tmux/detach", s.handleTmuxDetach)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/logs/stream", s.handleLogStream)
	mux.HandleFunc("POST /api/upload-image", s.handleUploadImage)
	mux.Handle("/", s.staticHandler())

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// tmuxPaneCWD adapts tmux.Client.PaneCWD to cwd.PaneLocator's signature.
func (s *Server) tmuxPaneCWD(ctx context.Context, clientTTY string) (string, error) {
	return s.tmuxClient.PaneCWD(ctx, clientTTY)
}

// staticHandler serves cfg.StaticDir, falling back to index.html for
// unknown paths so client-side routing works — the same contract
// original_source's serve_static implements against a built frontend/dist,
// just driven by a configured directory instead of an embedded one.
func (s *Server) staticHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rel := strings.TrimPrefix(r.URL.Path, "/")
		if rel == "" {
			rel = "index.html"
		}
		full := filepath.Join(s.cfg.StaticDir, rel)

		if info, err := os.Stat(full); err == nil && !info.IsDir() {
			http.ServeFile(w, r, full)
			return
		}

		index := filepath.Join(s.cfg.StaticDir, "index.html")
		if _, err := os.Stat(index); err == nil {
			http.ServeFile(w, r, index)
			return
		}

		http.Error(w, "frontend not built", http.StatusNotFound)
	})
}

// Listen binds the server to its configured address and returns the
// listener. Call Serve() after Listen() to start accepting connections —
// this split lets callers read back the actual bound address (port 0 in
// tests) before the server blocks on Serve().
func (s *Server) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("web server listen: %w", err)
	}
	s.listener = ln
	return ln, nil
}

// Serve accepts connections on ln. Blocks until the server stops.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("web server started", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Start is a convenience that calls Listen() then Serve(). Blocks until the
// server stops.
func (s *Server) Start() error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Addr returns the address the server is listening on after Listen() or
// Start(); before that it returns the configured bind:port address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("web server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
