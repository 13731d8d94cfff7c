package web_test

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestHandleTmuxList_NoServer(t *testing.T) {
	fakeTmuxOnPath(t, `echo "no server running for socket" >&2
exit 1
`)
	base := startAPITestServer(t)

	resp, err := http.Get(base + "/api/tmux/list")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if body["currentSession"] != nil {
		t.Errorf("currentSession = %v, want nil", body["currentSession"])
	}
}

func TestHandleTmuxList_WithSessions(t *testing.T) {
	fakeTmuxOnPath(t, `case "$1" in
  ls) echo "dev:2:1"; echo "main:1:0" ;;
  list-clients) echo "" ;;
esac
`)
	base := startAPITestServer(t)

	resp, err := http.Get(base + "/api/tmux/list")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	sessions, ok := body["sessions"].([]any)
	if !ok || len(sessions) != 2 {
		t.Fatalf("sessions = %v, want 2 entries", body["sessions"])
	}
}

func TestHandleTmuxSwitch_MissingSession(t *testing.T) {
	fakeTmuxOnPath(t, `exit 1`)
	base := startAPITestServer(t)

	resp, err := http.Get(base + "/api/tmux/switch")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if body["error"] != "missing_session" {
		t.Errorf("error = %q, want missing_session", body["error"])
	}
}

func TestHandleTmuxSwitch_MissingClientTTY(t *testing.T) {
	fakeTmuxOnPath(t, `exit 1`)
	base := startAPITestServer(t)

	resp, err := http.Get(base + "/api/tmux/switch?session=dev")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if body["error"] != "missing_client_tty" {
		t.Errorf("error = %q, want missing_client_tty", body["error"])
	}
}

func TestHandleTmuxSwitch_Success(t *testing.T) {
	fakeTmuxOnPath(t, `case "$1" in
  switch-client) exit 0 ;;
  list-clients) echo "/dev/pts/3" ;;
esac
`)
	base := startAPITestServer(t)

	resp, err := http.Get(base + "/api/tmux/switch?session=dev&client_tty=/dev/pts/3")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestHandleTmuxKill_MissingName(t *testing.T) {
	fakeTmuxOnPath(t, `exit 1`)
	base := startAPITestServer(t)

	resp, err := http.Get(base + "/api/tmux/kill")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleTmuxKill_Success(t *testing.T) {
	fakeTmuxOnPath(t, `exit 0`)
	base := startAPITestServer(t)

	resp, err := http.Get(base + "/api/tmux/kill?name=dev")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if body["message"] != "Session 'dev' killed" {
		t.Errorf("message = %q, want %q", body["message"], "Session 'dev' killed")
	}
}

func TestHandleTmuxDetach_MissingClientTTY(t *testing.T) {
	fakeTmuxOnPath(t, `exit 1`)
	base := startAPITestServer(t)

	resp, err := http.Get(base + "/api/tmux/detach")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleTmuxDetach_NotAttached(t *testing.T) {
	fakeTmuxOnPath(t, `case "$1" in
  list-clients) echo "/dev/pts/9" ;;
esac
`)
	base := startAPITestServer(t)

	resp, err := http.Get(base + "/api/tmux/detach?client_tty=/dev/pts/3")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}
