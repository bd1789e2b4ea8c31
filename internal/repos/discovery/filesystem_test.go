package discovery_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/temirov/git-autocommit/internal/repos/discovery"
)

const (
	developerDirectoryName             = "Dev"
	engineeringGroupDirectoryName      = "Group1"
	applicationRepositoryDirectoryName = "Repo1"
	serviceRepositoryDirectoryName     = "Repo2"
	toolsRepositoryDirectoryName       = "Repo3"
	gitMetadataDirectoryName           = ".git"
	repositoryDirectoryPermissions     = 0o755
)

func createRepository(testFramework *testing.T, segments ...string) string {
	testFramework.Helper()
	repositoryPath := filepath.Join(segments...)
	require.NoError(testFramework, os.MkdirAll(filepath.Join(repositoryPath, gitMetadataDirectoryName), repositoryDirectoryPermissions))
	return repositoryPath
}

func TestFilesystemRepositoryDiscovererDiscoversNestedLayouts(testFramework *testing.T) {
	rootDirectory := testFramework.TempDir()
	applicationRepository := createRepository(testFramework, rootDirectory, developerDirectoryName, engineeringGroupDirectoryName, applicationRepositoryDirectoryName)
	serviceRepository := createRepository(testFramework, rootDirectory, developerDirectoryName, engineeringGroupDirectoryName, serviceRepositoryDirectoryName)
	toolsRepository := createRepository(testFramework, rootDirectory, developerDirectoryName, toolsRepositoryDirectoryName)
	require.NoError(testFramework, os.MkdirAll(filepath.Join(rootDirectory, developerDirectoryName, "notes"), repositoryDirectoryPermissions))

	testCases := []struct {
		name  string
		roots []string
	}{
		{name: "SingleRoot", roots: []string{rootDirectory}},
		{name: "OverlappingRoots", roots: []string{rootDirectory, filepath.Join(rootDirectory, developerDirectoryName, engineeringGroupDirectoryName), " "}},
	}

	for _, testCase := range testCases {
		testFramework.Run(testCase.name, func(testFramework *testing.T) {
			discoveredRepositories, discoveryError := discovery.NewFilesystemRepositoryDiscoverer(zap.NewNop()).DiscoverRepositories(testCase.roots)
			require.NoError(testFramework, discoveryError)
			require.Equal(testFramework, []string{applicationRepository, serviceRepository, toolsRepository}, discoveredRepositories)
		})
	}
}

func TestFilesystemRepositoryDiscovererSkipsNestedWorkingCopies(testFramework *testing.T) {
	rootDirectory := testFramework.TempDir()
	outerRepository := createRepository(testFramework, rootDirectory, "outer")
	createRepository(testFramework, outerRepository, "vendor", "inner")

	gitFileRepository := filepath.Join(rootDirectory, "worktree")
	require.NoError(testFramework, os.MkdirAll(gitFileRepository, repositoryDirectoryPermissions))
	require.NoError(testFramework, os.WriteFile(filepath.Join(gitFileRepository, gitMetadataDirectoryName), []byte("gitdir: ../outer/.git/worktrees/w\n"), 0o644))

	discoveredRepositories, discoveryError := discovery.NewFilesystemRepositoryDiscoverer(nil).DiscoverRepositories([]string{rootDirectory})
	require.NoError(testFramework, discoveryError)
	require.Equal(testFramework, []string{outerRepository, gitFileRepository}, discoveredRepositories)
}

func TestFilesystemRepositoryDiscovererRejectsMissingRoot(testFramework *testing.T) {
	_, discoveryError := discovery.NewFilesystemRepositoryDiscoverer(nil).DiscoverRepositories([]string{filepath.Join(testFramework.TempDir(), "absent")})
	require.ErrorIs(testFramework, discoveryError, os.ErrNotExist)
}
