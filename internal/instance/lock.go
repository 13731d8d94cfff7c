// pattern: Imperative Shell
package instance

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	lockFileName = "devagent.lock"
	portFileName = "devagent.port"
)

func lockPath(dataDir string) string { return filepath.Join(dataDir, lockFileName) }
func portPath(dataDir string) string { return filepath.Join(dataDir, portFileName) }

// Lock acquires an exclusive file lock for single-instance enforcement.
// Returns the flock handle (caller must defer Cleanup) or an error if
// another instance already holds the lock.
func Lock(dataDir string) (*flock.Flock, error) {
	fl := flock.New(lockPath(dataDir))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another devagent instance is already running")
	}
	return fl, nil
}

// WritePort writes the web server's listener address to the port file, so a
// client (e.g. a CLI companion) can discover which port the gateway bound to.
func WritePort(dataDir, addr string) error {
	if err := os.WriteFile(portPath(dataDir), []byte(addr), 0600); err != nil {
		return fmt.Errorf("failed to write port file: %w", err)
	}
	return nil
}

// Cleanup removes the port file and releases the file lock.
func Cleanup(dataDir string, fl *flock.Flock) {
	_ = os.Remove(portPath(dataDir))
	if fl != nil {
		_ = fl.Unlock()
	}
}
