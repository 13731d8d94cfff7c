// pattern: Functional Core

package tmux

// Session describes one session known to the host tmux server.
type Session struct {
	Name     string `json:"name"`
	Windows  int    `json:"windows"`
	Attached bool   `json:"attached"`
}
