package shared

import (
	"context"
	"io/fs"
	"time"

	"github.com/temirov/git-autocommit/internal/execshell"
)

const (
	// GitMetadataDirectoryNameConstant names the entry that marks a working copy.
	GitMetadataDirectoryNameConstant = ".git"
)

// Clock abstracts time acquisition for deterministic testing.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system time source.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FileSystem exposes the filesystem operations used by the store and the updater.
type FileSystem interface {
	Stat(path string) (fs.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, permissions fs.FileMode) error
	Rename(oldPath string, newPath string) error
	Remove(path string) error
	MkdirAll(path string, permissions fs.FileMode) error
}

// GitExecutor runs git subcommands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}
