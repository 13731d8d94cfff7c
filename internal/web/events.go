// pattern: Imperative Shell

package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// eventsSnapshot is the state an SSE subscriber re-renders on each tick.
type eventsSnapshot struct {
	Branch string       `json:"branch"`
	Path   string       `json:"path"`
	Tmux   tmuxSnapshot `json:"tmux"`
}

type tmuxSnapshot struct {
	Sessions       []any `json:"sessions"`
	CurrentSession any   `json:"currentSession"`
}

// snapshot computes the current branch/path/tmux state for clientTTY.
func (s *Server) snapshot(ctx context.Context, clientTTY string) eventsSnapshot {
	resolved := s.resolver.Resolve(ctx, clientTTY)
	branch := "unknown"
	if s.repo.IsRepo(ctx, resolved) {
		resolved = s.repo.Root(ctx, resolved)
		branch = s.repo.Branch(ctx, resolved)
	}

	sessions, _ := s.tmuxClient.ListSessions(ctx)
	sessAny := make([]any, len(sessions))
	for i, sess := range sessions {
		sessAny[i] = sess
	}
	current, _ := s.tmuxClient.CurrentSession(ctx, clientTTY)

	return eventsSnapshot{
		Branch: branch,
		Path:   resolved,
		Tmux: tmuxSnapshot{
			Sessions:       sessAny,
			CurrentSession: orNull(current),
		},
	}
}

// handleEvents handles GET /api/events: a polling SSE stream that recomputes
// the cwd/branch/tmux snapshot and pushes it on connect and on every tick,
// rather than fanning out change notifications from writers.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	clientTTY := s.effectiveClientTTY(ctx, r.URL.Query().Get("client_tty"))

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	keepAlive := time.NewTicker(15 * time.Second)
	defer keepAlive.Stop()

	writeSnapshot := func() bool {
		data, err := json.Marshal(s.snapshot(ctx, clientTTY))
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: update\ndata: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !writeSnapshot() {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !writeSnapshot() {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprintf(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// handleLogStream handles GET /api/logs/stream: an SSE tap onto the
// process's structured log entries, for diagnosing a gateway instance
// without shelling in.
func (s *Server) handleLogStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	if s.logEntries == nil {
		http.Error(w, "log streaming not available", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	keepAlive := time.NewTicker(15 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-s.logEntries:
			if !ok {
				return
			}
			data, err := json.Marshal(entry)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: log\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := fmt.Fprintf(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
