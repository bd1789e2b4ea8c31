// Package instance keeps two auto-commit runs from working on the same
// repositories file at once.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	// RunLockFileNameConstant names the lock file placed beside the repositories file.
	RunLockFileNameConstant = "git-autocommit.lock"

	runInProgressMessageConstant       = "another git-autocommit run is in progress"
	lockDirectoryErrorTemplateConstant = "prepare lock directory %s: %w"
	lockAcquireErrorTemplateConstant   = "acquire run lock %s: %w"
	lockDirectoryPermissionsConstant   = 0o755
)

// ErrRunInProgress indicates another process holds the run lock.
var ErrRunInProgress = errors.New(runInProgressMessageConstant)

// RunLock is a held process-level lock.
type RunLock struct {
	fileLock *flock.Flock
}

// AcquireRunLock takes the run lock in directory without blocking. It
// returns ErrRunInProgress when another process already holds it.
func AcquireRunLock(directory string) (*RunLock, error) {
	if mkdirError := os.MkdirAll(directory, lockDirectoryPermissionsConstant); mkdirError != nil {
		return nil, fmt.Errorf(lockDirectoryErrorTemplateConstant, directory, mkdirError)
	}

	lockPath := filepath.Join(directory, RunLockFileNameConstant)
	fileLock := flock.New(lockPath)
	locked, lockError := fileLock.TryLock()
	if lockError != nil {
		return nil, fmt.Errorf(lockAcquireErrorTemplateConstant, lockPath, lockError)
	}
	if !locked {
		return nil, ErrRunInProgress
	}
	return &RunLock{fileLock: fileLock}, nil
}

// Path reports the lock file location.
func (runLock *RunLock) Path() string {
	return runLock.fileLock.Path()
}

// Release unlocks the run lock. The lock file is left in place.
func (runLock *RunLock) Release() error {
	if runLock == nil || runLock.fileLock == nil {
		return nil
	}
	return runLock.fileLock.Unlock()
}
