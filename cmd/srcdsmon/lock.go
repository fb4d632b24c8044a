package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

const lockFileName = ".srcdsmon.lock"

var errAlreadyRunning = errors.New("another srcdsmon instance is already monitoring this directory")

// acquireLock takes an exclusive lock on workDir so two monitors never fight
// over the same server.
func acquireLock(workDir string) (*flock.Flock, error) {
	l := flock.New(filepath.Join(workDir, lockFileName))
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", l.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", errAlreadyRunning, workDir)
	}
	return l, nil
}
