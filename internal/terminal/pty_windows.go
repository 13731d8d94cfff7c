//go:build windows

package terminal

import "syscall"

// setsidProcAttr is a no-op on windows; creack/pty's ConPTY backend doesn't
// use POSIX session/controlling-terminal semantics.
func setsidProcAttr() *syscall.SysProcAttr {
	return nil
}
