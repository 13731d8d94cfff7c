// pattern: Functional Core

package tmux

import (
	"strconv"
	"strings"
)

// ParseSessions parses the output of
// `tmux ls -F "#{session_name}:#{session_windows}:#{session_attached}"`
// into a slice of Session. Lines with fewer than three colon-separated
// fields are skipped; a missing or non-numeric windows/attached field
// defaults to zero/false rather than dropping the line, so a session still
// surfaces even if one field is unexpectedly empty.
func ParseSessions(output string) []Session {
	var sessions []Session

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		parts := strings.Split(line, ":")
		if len(parts) < 3 {
			continue
		}

		windows, _ := strconv.Atoi(parts[1])
		attached, _ := strconv.Atoi(parts[2])

		sessions = append(sessions, Session{
			Name:     parts[0],
			Windows:  windows,
			Attached: attached > 0,
		})
	}

	return sessions
}
