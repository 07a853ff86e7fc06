// Package dbdir guards a database directory against being opened for
// writing by more than one process at a time, per the concurrency model's
// single-active-writer invariant (spec.md §5). It writes a lock file
// containing a random session id and the owning PID, and refuses to open
// over a lock still held by a live process.
package dbdir

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/kasuganosora/kuzugraph/pkg/kerr"
)

const lockFileName = ".lock"

// Lock represents this process's exclusive hold on a database directory.
// Its SessionID is a random uuid distinct from any graph/relationship
// identifier — purely a liveness token for the lock file.
type Lock struct {
	Directory string
	SessionID uuid.UUID
	path      string
}

// Acquire creates dir if necessary and takes its open-lock. Returns a
// LogicError if another live process already holds it; a stale lock (owning
// PID no longer running) is silently reclaimed.
func Acquire(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, kerr.IO(err, "failed to create database directory %s", dir)
	}

	lockPath := filepath.Join(dir, lockFileName)

	if held, pid, err := readLock(lockPath); err == nil && held {
		if processAlive(pid) {
			return nil, kerr.Logic("database directory %s is already open (pid %d holds the lock)", dir, pid)
		}
	}

	sessionID := uuid.New()
	pid := os.Getpid()
	contents := fmt.Sprintf("%s\n%d\n", sessionID.String(), pid)

	if err := os.WriteFile(lockPath, []byte(contents), 0o644); err != nil {
		return nil, kerr.IO(err, "failed to write lock file %s", lockPath)
	}

	return &Lock{Directory: dir, SessionID: sessionID, path: lockPath}, nil
}

// Release removes the lock file. Safe to call on an already-released lock.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return kerr.IO(err, "failed to remove lock file %s", l.path)
	}
	return nil
}

// readLock reports whether a lock file exists at path and, if so, the PID
// recorded in it. A malformed or missing lock file is treated as "not held"
// rather than an error, since a half-written lock file from a crashed
// process should not block reopening the directory.
func readLock(path string) (held bool, pid int, err error) {
	data, readErr := os.ReadFile(path)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return false, 0, nil
		}
		return false, 0, readErr
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		return false, 0, nil
	}
	parsedPID, parseErr := strconv.Atoi(strings.TrimSpace(lines[1]))
	if parseErr != nil {
		return false, 0, nil
	}
	return true, parsedPID, nil
}

// processAlive reports whether pid refers to a currently running process.
// On Unix, os.FindProcess always succeeds; sending signal 0 is the
// conventional liveness probe.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
