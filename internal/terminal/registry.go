// pattern: Imperative Shell

package terminal

import "sync"

// ClientTTYRegistry is a process-wide mapping of the currently attached
// client's TTY path, read by the REST collaborators (cwd/tmux endpoints)
// and written only by OutputPump (first observation) and SessionSupervisor
// (teardown sweep). Compare-and-swap semantics on clear prevent a crashed
// or slow-tearing-down session from clobbering a newer connection's value.
type ClientTTYRegistry struct {
	mu  sync.Mutex
	tty string
}

// NewClientTTYRegistry creates an empty registry.
func NewClientTTYRegistry() *ClientTTYRegistry {
	return &ClientTTYRegistry{}
}

// Get returns the current observation, or "" if none.
func (r *ClientTTYRegistry) Get() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tty
}

// SetIfEmptyOrEqual publishes path if the registry is empty or already
// holds path. This is the "None → Some(path)" transition from spec.md: once
// a session has published its TTY, later chunks don't need to re-publish
// (OutputPump only calls this on first observation anyway), but a second
// session independently observing the same path is harmless.
func (r *ClientTTYRegistry) SetIfEmptyOrEqual(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tty == "" || r.tty == path {
		r.tty = path
	}
}

// ClearIfEqual clears the registry iff it currently equals path — the
// compare-and-swap sweep run at teardown so a departing connection never
// clobbers a different, newer connection's observation.
func (r *ClientTTYRegistry) ClearIfEqual(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tty == path {
		r.tty = ""
	}
}
