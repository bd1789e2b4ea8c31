package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/git-autocommit/internal/repos/filesystem"
)

type stubLocker struct {
	unlockError error
	unlocked    bool
}

func (locker *stubLocker) Lock() error {
	return nil
}

func (locker *stubLocker) Unlock() error {
	locker.unlocked = true
	return locker.unlockError
}

func TestSaveWarnsWhenLockReleaseFails(testInstance *testing.T) {
	filePath := filepath.Join(testInstance.TempDir(), "repositories.json")
	observedCore, observedLogs := observer.New(zapcore.DebugLevel)

	store, creationError := NewStore(filePath, Dependencies{FileSystem: filesystem.OSFileSystem{}, Logger: zap.New(observedCore)})
	require.NoError(testInstance, creationError)

	locker := &stubLocker{unlockError: errors.New("bad file descriptor")}
	var requestedLockPath string
	store.newLocker = func(lockPath string) fileLocker {
		requestedLockPath = lockPath
		return locker
	}

	require.NoError(testInstance, store.Save(Repositories{{Name: "repo", Path: "/srv/repo"}}))

	require.True(testInstance, locker.unlocked)
	require.Equal(testInstance, filePath+lockFileSuffixConstant, requestedLockPath)
	warnings := observedLogs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(testInstance, warnings, 1)
	require.Equal(testInstance, lockReleaseWarningMessageConstant, warnings[0].Message)
	require.Equal(testInstance, requestedLockPath, warnings[0].ContextMap()[logFieldLockPathConstant])

	content, readError := os.ReadFile(filePath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, "{\n    \"repo\": \"/srv/repo\"\n}\n", string(content))
}
