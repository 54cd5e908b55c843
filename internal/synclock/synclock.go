// Package synclock implements the sync lock (C4): a per-device, per-cycle
// guard against overlapping sync cycles, backed by a PID file with a
// liveness check on the stale holder.
package synclock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ErrSkipped indicates another live process already holds the lock; the
// caller should return Skipped for this cycle rather than treat it as a
// failure.
var ErrSkipped = errors.New("sync skipped: another cycle is in progress")

// Lock guards a single sync cycle using a PID file at path.
type Lock struct {
	path string
}

// New returns a Lock backed by the PID file at path.
func New(path string) *Lock {
	return &Lock{path: path}
}

// Acquire attempts to take the lock. If the file is absent, or present
// but its referenced process is no longer alive, it writes the current
// PID and returns a release func. If the referenced process is alive, it
// returns ErrSkipped.
func (l *Lock) Acquire() (release func(), err error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	if pid, ok := readPID(l.path); ok {
		if processAlive(pid) {
			return nil, ErrSkipped
		}
		// Stale holder: remove and proceed.
		os.Remove(l.path)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			// Lost a race with another process that just acquired it.
			return nil, ErrSkipped
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()
		os.Remove(l.path)
		return nil, fmt.Errorf("write lock file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(l.path)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(l.path)
		return nil, fmt.Errorf("close lock file: %w", err)
	}

	return func() { os.Remove(l.path) }, nil
}

// Status reports whether the lock is currently held by a live process,
// and by which PID, without acquiring it.
func (l *Lock) Status() (held bool, pid int, err error) {
	pid, ok := readPID(l.path)
	if !ok {
		return false, 0, nil
	}
	return processAlive(pid), pid, nil
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// processAlive reports whether pid refers to a live process, probing via
// signal 0 (no signal delivered, only existence/permission checked).
func processAlive(pid int) bool {
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	if errors.Is(err, unix.EPERM) {
		// Exists but owned by another user — treat as alive.
		return true
	}
	return false
}
