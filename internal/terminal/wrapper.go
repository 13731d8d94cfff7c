package terminal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const ttyAnnounceFormat = "printf '\\033]7337;%s\\033\\\\' \"$(tty)\" 2>/dev/null\n"

const attachExistingSession = `if tmux has-session 2>/dev/null; then
    tmux set -g window-size latest 2>/dev/null
    tmux attach
fi
`

// WrapperScriptBuilder generates the small shell script that every PTY
// session execs in place of the user's shell directly. The script reports
// the session's controlling TTY to the server (via probe file and OSC
// announce), wires a per-prompt CWD probe hook where the shell family
// supports one, and then execs the real shell.
type WrapperScriptBuilder struct {
	// ZdotDir is the synthetic ZDOTDIR used for the zsh variant. Exposed for
	// tests; production callers should leave it at its default.
	ZdotDir string
	// BashRCPath is where the generated bash rcfile is written.
	BashRCPath string
	// HomeDir overrides $HOME resolution for dotfile symlinking; tests set
	// this to a temp directory.
	HomeDir string
}

// NewWrapperScriptBuilder returns a builder using the conventional
// /tmp-rooted paths.
func NewWrapperScriptBuilder() *WrapperScriptBuilder {
	return &WrapperScriptBuilder{
		ZdotDir:    "/tmp/devagent_zdotdir",
		BashRCPath: "/tmp/devagent_bashrc",
	}
}

// Build writes an executable wrapper script to scriptPath for shell, wiring
// ttyProbePath and cwdProbePath into the generated script. shell may be a
// bare name ("zsh") or an absolute path ending in one.
func (b *WrapperScriptBuilder) Build(scriptPath, shell, ttyProbePath, cwdProbePath string) error {
	switch {
	case isShellFamily(shell, "zsh"):
		return b.buildZsh(scriptPath, shell, ttyProbePath, cwdProbePath)
	case isShellFamily(shell, "bash"):
		return b.buildBash(scriptPath, shell, ttyProbePath, cwdProbePath)
	default:
		return b.buildGeneric(scriptPath, shell, ttyProbePath)
	}
}

func isShellFamily(shell, name string) bool {
	return shell == name || strings.HasSuffix(shell, "/"+name)
}

func (b *WrapperScriptBuilder) buildZsh(scriptPath, shell, ttyProbePath, cwdProbePath string) error {
	if err := os.MkdirAll(b.ZdotDir, 0o755); err != nil {
		return fmt.Errorf("create zdotdir: %w", err)
	}

	home := b.HomeDir
	if home == "" {
		home = os.Getenv("HOME")
	}
	if home == "" {
		home = "/root"
	}

	for _, f := range []string{".zshenv", ".zprofile", ".zlogin", ".zlogout"} {
		src := filepath.Join(home, f)
		dst := filepath.Join(b.ZdotDir, f)
		_ = os.Remove(dst)
		if _, err := os.Stat(src); err == nil {
			_ = os.Symlink(src, dst)
		}
	}

	zshrc := fmt.Sprintf(`ZDOTDIR="$HOME" source "$HOME/.zshrc" 2>/dev/null
__devagent_cwd_hook() { echo $PWD > %s 2>/dev/null; }
precmd_functions+=(__devagent_cwd_hook)
`, cwdProbePath)
	if err := os.WriteFile(filepath.Join(b.ZdotDir, ".zshrc"), []byte(zshrc), 0o644); err != nil {
		return fmt.Errorf("write synthetic zshrc: %w", err)
	}

	script := "#!/bin/zsh\n" +
		"unset TMUX TMUX_PANE\n" +
		fmt.Sprintf("tty > %s 2>/dev/null\n", ttyProbePath) +
		ttyAnnounceFormat +
		attachExistingSession +
		fmt.Sprintf("ZDOTDIR=%s exec %s\n", b.ZdotDir, shell)

	return writeExecutable(scriptPath, script)
}

func (b *WrapperScriptBuilder) buildBash(scriptPath, shell, ttyProbePath, cwdProbePath string) error {
	bashrc := fmt.Sprintf(`[ -f "$HOME/.bashrc" ] && source "$HOME/.bashrc"
__devagent_cwd_hook() { echo $PWD > %s 2>/dev/null; }
PROMPT_COMMAND="__devagent_cwd_hook${PROMPT_COMMAND:+;$PROMPT_COMMAND}"
`, cwdProbePath)
	if err := os.WriteFile(b.BashRCPath, []byte(bashrc), 0o644); err != nil {
		return fmt.Errorf("write synthetic bashrc: %w", err)
	}

	script := "#!/bin/bash\n" +
		"unset TMUX TMUX_PANE\n" +
		fmt.Sprintf("tty > %s 2>/dev/null\n", ttyProbePath) +
		ttyAnnounceFormat +
		attachExistingSession +
		fmt.Sprintf("exec %s --rcfile %s\n", shell, b.BashRCPath)

	return writeExecutable(scriptPath, script)
}

// buildGeneric covers every shell family without a known CWD hook; callers
// must fall back to /proc/<pid>/cwd traversal for those sessions.
func (b *WrapperScriptBuilder) buildGeneric(scriptPath, shell, ttyProbePath string) error {
	script := "#!/bin/sh\n" +
		"unset TMUX TMUX_PANE\n" +
		fmt.Sprintf("tty > %s 2>/dev/null\n", ttyProbePath) +
		ttyAnnounceFormat +
		attachExistingSession +
		fmt.Sprintf("exec %s\n", shell)

	return writeExecutable(scriptPath, script)
}

func writeExecutable(path, contents string) error {
	if err := os.WriteFile(path, []byte(contents), 0o755); err != nil {
		return fmt.Errorf("write wrapper script: %w", err)
	}
	return os.Chmod(path, 0o755)
}
