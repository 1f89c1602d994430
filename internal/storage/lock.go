package storage

import (
	"fmt"
	"os"
	"syscall"
)

// acquireLock takes an exclusive flock on path, creating it if missing, and
// returns the function releasing it.
func acquireLock(path string) (release func() error, err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock %s: %w", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	return func() error {
		unlockErr := syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		if err := f.Close(); err != nil && unlockErr == nil {
			return err
		}
		return unlockErr
	}, nil
}
