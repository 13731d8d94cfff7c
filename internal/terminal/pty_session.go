// pattern: Imperative Shell

package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"
)

// PtySession owns the master side of a PTY pair and the spawned child.
// Ownership is exclusive to one TerminalSession. The writer and master
// handle are each guarded by their own mutex because write() and resize()
// may be issued from different goroutines (InputRouter and, in principle,
// any future second caller); a single *os.File in Go already supports
// concurrent Read/Write from separate goroutines, so no reader-side clone
// is needed the way the underlying PTY library's Rust counterpart requires
// — master itself doubles as PtySession's reader.
type PtySession struct {
	master *os.File
	cmd    *exec.Cmd

	writeMu  sync.Mutex
	resizeMu sync.Mutex
}

// Open allocates a PTY at (cols, rows), spawns path as the slave's child
// with env as its complete environment, and releases the
// slave handle immediately after spawn so the child receives end-of-file
// when the master is later closed.
func Open(path string, args []string, env []string, cols, rows uint16) (*PtySession, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("open pty: %w", err)
	}

	if err := pty.Setsize(master, &pty.Winsize{Cols: cols, Rows: rows}); err != nil {
		_ = master.Close()
		_ = slave.Close()
		return nil, fmt.Errorf("set initial pty size: %w", err)
	}

	cmd := exec.Command(path, args...)
	cmd.Stdin = slave
	cmd.Stdout = slave
	cmd.Stderr = slave
	cmd.SysProcAttr = setsidProcAttr()
	cmd.Env = env

	if err := cmd.Start(); err != nil {
		_ = master.Close()
		_ = slave.Close()
		return nil, fmt.Errorf("spawn: %w", err)
	}

	// Mandatory: the child now owns the slave fd via dup(); our copy must
	// close so EOF propagates to the child when master closes, not before.
	_ = slave.Close()

	return &PtySession{master: master, cmd: cmd}, nil
}

// Reader returns the master handle for blocking reads. Safe to call once;
// the returned *os.File must only be read from the dedicated reader thread.
func (s *PtySession) Reader() *os.File {
	return s.master
}

// Write writes payload to the PTY under the writer mutex, retrying short
// writes until the full payload is written or an error occurs.
func (s *PtySession) Write(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	for len(payload) > 0 {
		n, err := s.master.Write(payload)
		if err != nil {
			return err
		}
		payload = payload[n:]
	}
	return nil
}

// Resize changes the PTY's window size under the resize mutex.
func (s *PtySession) Resize(cols, rows uint16) error {
	s.resizeMu.Lock()
	defer s.resizeMu.Unlock()
	return pty.Setsize(s.master, &pty.Winsize{Cols: cols, Rows: rows})
}

// Close closes the master handle, which delivers EOF to the reader thread
// and SIGHUP to the child's foreground process group.
func (s *PtySession) Close() error {
	return s.master.Close()
}

// Pid returns the spawned child's process ID, or 0 if unavailable.
func (s *PtySession) Pid() int {
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Wait releases the child process's resources once it has exited. Callers
// should not block on this during the hot teardown path; spawn a goroutine
// if the exit status is not needed synchronously.
func (s *PtySession) Wait() error {
	if s.cmd == nil {
		return nil
	}
	return s.cmd.Wait()
}
