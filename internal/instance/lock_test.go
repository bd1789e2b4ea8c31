package instance_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/git-autocommit/internal/instance"
)

func TestAcquireRunLockIsExclusive(testInstance *testing.T) {
	lockDirectory := filepath.Join(testInstance.TempDir(), "files")

	firstLock, firstError := instance.AcquireRunLock(lockDirectory)
	require.NoError(testInstance, firstError)
	require.Equal(testInstance, filepath.Join(lockDirectory, instance.RunLockFileNameConstant), firstLock.Path())

	_, secondError := instance.AcquireRunLock(lockDirectory)
	require.ErrorIs(testInstance, secondError, instance.ErrRunInProgress)

	require.NoError(testInstance, firstLock.Release())

	thirdLock, thirdError := instance.AcquireRunLock(lockDirectory)
	require.NoError(testInstance, thirdError)
	require.NoError(testInstance, thirdLock.Release())
}

func TestReleaseToleratesNilLock(testInstance *testing.T) {
	var runLock *instance.RunLock
	require.NoError(testInstance, runLock.Release())
}
