// pattern: Imperative Shell

package web

import (
	"net/http"
)

// handleTmuxList handles GET /api/tmux/list.
func (s *Server) handleTmuxList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessions, err := s.tmuxClient.ListSessions(ctx)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	clientTTY := s.effectiveClientTTY(ctx, r.URL.Query().Get("client_tty"))
	current, _ := s.tmuxClient.CurrentSession(ctx, clientTTY)

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions":       sessions,
		"currentSession": orNull(current),
	})
}

// handleTmuxSwitch handles GET /api/tmux/switch?session=....
func (s *Server) handleTmuxSwitch(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session")
	if session == "" {
		writeAPIError(w, http.StatusBadRequest, "missing_session", "Session name required")
		return
	}

	ctx := r.Context()
	clientTTY := s.effectiveClientTTY(ctx, r.URL.Query().Get("client_tty"))
	if clientTTY == "" {
		writeAPIError(w, http.StatusBadRequest, "missing_client_tty", "No attached client to switch")
		return
	}

	if !s.tmuxClient.IsClientAttached(ctx, clientTTY) {
		writeAPIError(w, http.StatusInternalServerError, "switch_failed", "not attached to tmux")
		return
	}
	if err := s.tmuxClient.SwitchClient(ctx, clientTTY, session); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "switch_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleTmuxCreate handles GET /api/tmux/create?name=....
// Creates the session, then switches the attached client to it; a failure of
// either step is answered with a 500.
func (s *Server) handleTmuxCreate(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeAPIError(w, http.StatusBadRequest, "missing_name", "Session name required")
		return
	}

	ctx := r.Context()
	clientTTY := s.effectiveClientTTY(ctx, r.URL.Query().Get("client_tty"))
	if clientTTY == "" {
		writeAPIError(w, http.StatusBadRequest, "missing_client_tty", "No attached client to switch")
		return
	}

	if err := s.tmuxClient.CreateSession(ctx, name); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "create_failed", err.Error())
		return
	}
	if err := s.tmuxClient.SwitchClient(ctx, clientTTY, name); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "create_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Session '" + name + "' created",
	})
}

// handleTmuxKill handles GET /api/tmux/kill?name=....
func (s *Server) handleTmuxKill(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		writeAPIError(w, http.StatusBadRequest, "missing_name", "Session name required")
		return
	}

	if err := s.tmuxClient.KillSession(r.Context(), name); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "kill_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Session '" + name + "' killed",
	})
}

// handleTmuxDetach handles GET /api/tmux/detach.
func (s *Server) handleTmuxDetach(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	clientTTY := s.effectiveClientTTY(ctx, r.URL.Query().Get("client_tty"))
	if clientTTY == "" {
		writeAPIError(w, http.StatusBadRequest, "missing_client_tty", "No attached client to detach")
		return
	}

	if !s.tmuxClient.IsClientAttached(ctx, clientTTY) {
		writeAPIError(w, http.StatusInternalServerError, "detach_failed", "client is not attached")
		return
	}
	if err := s.tmuxClient.DetachClient(ctx, clientTTY); err != nil {
		writeAPIError(w, http.StatusInternalServerError, "detach_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
