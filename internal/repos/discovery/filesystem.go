package discovery

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/git-autocommit/internal/repos/shared"
)

const (
	unreadableEntryMessageConstant = "skipping unreadable directory during discovery"
	logFieldPathConstant           = "path"
)

// FilesystemRepositoryDiscoverer locates git working copies beneath root directories.
type FilesystemRepositoryDiscoverer struct {
	logger *zap.Logger
}

// NewFilesystemRepositoryDiscoverer constructs a repository discoverer backed by filepath.WalkDir.
func NewFilesystemRepositoryDiscoverer(logger *zap.Logger) *FilesystemRepositoryDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilesystemRepositoryDiscoverer{logger: logger}
}

// DiscoverRepositories walks the provided roots and returns the absolute,
// sorted paths of directories holding a .git entry. The walk does not
// descend into a discovered working copy, so submodules and nested
// checkouts are not reported separately. A root that does not exist is an
// error; unreadable directories below a root are skipped.
func (discoverer *FilesystemRepositoryDiscoverer) DiscoverRepositories(roots []string) ([]string, error) {
	seen := make(map[string]struct{})
	var repositories []string

	for _, root := range roots {
		trimmedRoot := strings.TrimSpace(root)
		if len(trimmedRoot) == 0 {
			continue
		}
		absoluteRoot, absoluteError := filepath.Abs(trimmedRoot)
		if absoluteError != nil {
			return nil, absoluteError
		}
		if _, rootStatError := os.Stat(absoluteRoot); rootStatError != nil {
			return nil, rootStatError
		}

		walkError := filepath.WalkDir(absoluteRoot, func(path string, directoryEntry fs.DirEntry, walkError error) error {
			if walkError != nil {
				discoverer.logger.Debug(unreadableEntryMessageConstant, zap.String(logFieldPathConstant, path), zap.Error(walkError))
				if directoryEntry != nil && directoryEntry.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !directoryEntry.IsDir() {
				return nil
			}
			if directoryEntry.Name() == shared.GitMetadataDirectoryNameConstant {
				return fs.SkipDir
			}

			if _, metadataError := os.Lstat(filepath.Join(path, shared.GitMetadataDirectoryNameConstant)); metadataError != nil {
				if errors.Is(metadataError, fs.ErrNotExist) {
					return nil
				}
				discoverer.logger.Debug(unreadableEntryMessageConstant, zap.String(logFieldPathConstant, path), zap.Error(metadataError))
				return nil
			}

			if _, alreadySeen := seen[path]; !alreadySeen {
				seen[path] = struct{}{}
				repositories = append(repositories, path)
			}
			return fs.SkipDir
		})
		if walkError != nil {
			return nil, walkError
		}
	}

	sort.Strings(repositories)
	return repositories, nil
}
