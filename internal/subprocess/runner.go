// pattern: Imperative Shell

// Package subprocess runs one-shot external commands with captured output,
// stripping multiplexer-inheritance environment variables so a spawned git,
// tmux, or pgrep invocation never inherits the gateway's own TMUX state.
package subprocess

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"devagent/internal/logging"
)

// inheritedMuxVars are stripped from every spawned command's environment.
// A gateway running inside an attached tmux pane must not leak that
// attachment into the shells and tools it spawns on behalf of a client.
var inheritedMuxVars = []string{"TMUX", "TMUX_PANE"}

// Runner executes external commands with captured, fully-buffered output.
// No retries and no streaming: callers that need a live stream (the PTY
// bridge) use internal/terminal instead.
type Runner struct {
	logger *logging.ScopedLogger
}

// New creates a Runner. logger may be logging.NopLogger() in tests.
func New(logger *logging.ScopedLogger) *Runner {
	return &Runner{logger: logger}
}

// strippedEnv returns the current process environment with the multiplexer
// inheritance variables removed.
func strippedEnv() []string {
	env := os.Environ()
	out := make([]string, 0, len(env))
	for _, kv := range env {
		skip := false
		for _, v := range inheritedMuxVars {
			if strings.HasPrefix(kv, v+"=") {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, kv)
		}
	}
	return out
}

// Run executes name with args in the current directory. On exit-zero it
// returns stdout verbatim; on non-zero exit it returns trimmed stderr as an
// error.
func (r *Runner) Run(ctx context.Context, name string, args ...string) (string, error) {
	return r.RunIn(ctx, "", name, args...)
}

// RunIn executes name with args in dir (the process's own working directory
// if dir is empty).
func (r *Runner) RunIn(ctx context.Context, dir, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Env = strippedEnv()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		r.logger.Debug("subprocess failed", "cmd", name, "args", args, "error", msg)
		return "", fmt.Errorf("%s: %s", name, msg)
	}

	return stdout.String(), nil
}
