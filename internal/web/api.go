// pattern: Imperative Shell

package web

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
)

// writeJSON writes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeAPIError writes the {"error": code, "message": message} shape the
// git/tmux collaborators use for failures.
func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

// orNull turns an empty string into a JSON null instead of "".
func orNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// effectiveClientTTY returns explicit if set, else the registry's live
// observation, else the best guess from the TTY probe file (cross-checked
// against the tmux clients actually attached right now).
func (s *Server) effectiveClientTTY(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if tty := s.registry.Get(); tty != "" {
		return tty
	}
	return s.clientTTYFromFile(ctx)
}

func (s *Server) clientTTYFromFile(ctx context.Context) string {
	fromFile := ""
	if data, err := os.ReadFile(s.ttyProbePath); err == nil {
		fromFile = strings.TrimSpace(string(data))
	}

	clients, err := s.tmuxClient.ClientTTYs(ctx)
	if err != nil {
		return fromFile
	}
	if fromFile != "" {
		for _, c := range clients {
			if c == fromFile {
				return fromFile
			}
		}
	}
	if len(clients) == 1 {
		return clients[0]
	}
	return fromFile
}

// handleClientTTY handles GET /api/client-tty.
func (s *Server) handleClientTTY(w http.ResponseWriter, r *http.Request) {
	tty := s.effectiveClientTTY(r.Context(), "")
	writeJSON(w, http.StatusOK, map[string]any{"client_tty": orNull(tty)})
}

// handleCwd handles GET /api/cwd.
func (s *Server) handleCwd(w http.ResponseWriter, r *http.Request) {
	clientTTY := s.effectiveClientTTY(r.Context(), r.URL.Query().Get("client_tty"))
	resolved := s.resolver.Resolve(r.Context(), clientTTY)
	isGit := s.repo.IsRepo(r.Context(), resolved)
	writeJSON(w, http.StatusOK, map[string]any{"cwd": resolved, "is_git": isGit})
}

// handleDiff handles GET /api/diff. A non-repo cwd is a 200 carrying an
// error-shaped body, not a 4xx — the caller (polling UI) treats "no diff to
// show" as a normal steady state rather than a failure.
func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientTTY := s.effectiveClientTTY(ctx, r.URL.Query().Get("client_tty"))
	resolved := s.resolver.Resolve(ctx, clientTTY)

	if !s.repo.IsRepo(ctx, resolved) {
		writeJSON(w, http.StatusOK, map[string]any{
			"error":   "not_git_repo",
			"message": "'" + resolved + "' is not a git repository",
			"cwd":     resolved,
		})
		return
	}

	gitRoot := s.repo.Root(ctx, resolved)
	branch := s.repo.Branch(ctx, gitRoot)
	diff := s.repo.Files(ctx, gitRoot)

	writeJSON(w, http.StatusOK, map[string]any{
		"cwd":      resolved,
		"git_root": gitRoot,
		"branch":   branch,
		"files":    diff.Files,
		"summary":  diff.Summary,
	})
}

// handleGitBranches handles GET /api/git/branches.
func (s *Server) handleGitBranches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientTTY := s.effectiveClientTTY(ctx, r.URL.Query().Get("client_tty"))
	resolved := s.resolver.Resolve(ctx, clientTTY)

	if !s.repo.IsRepo(ctx, resolved) {
		writeAPIError(w, http.StatusBadRequest, "not_git_repo", "Not a git repository")
		return
	}

	gitRoot := s.repo.Root(ctx, resolved)
	writeJSON(w, http.StatusOK, s.repo.AllBranches(ctx, gitRoot))
}

// handleGitCheckout handles GET /api/git/checkout?branch=....
func (s *Server) handleGitCheckout(w http.ResponseWriter, r *http.Request) {
	branch := r.URL.Query().Get("branch")
	if branch == "" {
		writeAPIError(w, http.StatusBadRequest, "missing_branch", "Branch name required")
		return
	}

	ctx := r.Context()
	clientTTY := s.effectiveClientTTY(ctx, r.URL.Query().Get("client_tty"))
	resolved := s.resolver.Resolve(ctx, clientTTY)

	if !s.repo.IsRepo(ctx, resolved) {
		writeAPIError(w, http.StatusBadRequest, "not_git_repo", "Not a git repository")
		return
	}

	gitRoot := s.repo.Root(ctx, resolved)
	if err := s.repo.Checkout(ctx, gitRoot, branch); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "checkout_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "branch": branch})
}
