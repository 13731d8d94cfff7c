//go:build !windows

package terminal

import "syscall"

// setsidProcAttr makes the spawned shell a session leader with the PTY
// slave as its controlling terminal, so `tty`/job control inside the shell
// behave as they would for a real login session.
func setsidProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid:  true,
		Setctty: true,
	}
}
