package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/temirov/git-autocommit/internal/repos/shared"
	pathutils "github.com/temirov/git-autocommit/internal/utils/path"
)

const (
	lockFileSuffixConstant             = ".lock"
	temporaryFileSuffixConstant        = ".tmp"
	documentPermissionsConstant        = 0o644
	directoryPermissionsConstant       = 0o755
	fileMissingWarningTemplateConstant = "%s not found. Creating empty repositories file."
	readFailureLogTemplateConstant     = "Error reading %s"
	writeFailureLogTemplateConstant    = "Error writing to %s"
	lockAcquireErrorTemplateConstant   = "acquire lock %s: %w"
	isDirectoryMessageConstant         = "path is a directory"
	logFieldFilePathConstant           = "file_path"
	logFieldRepositoryCountConstant    = "repository_count"
	logFieldLockPathConstant           = "lock_path"
	lockReleaseWarningMessageConstant  = "unable to release repositories file lock"
	repositoriesLoadedMessageConstant  = "repositories loaded"
)

// Repository names a working copy the updater maintains.
type Repository struct {
	Name string
	Path string
	// DeclaredPath holds the path as written in the document when loading
	// rewrote it (for example "~/site"). Save writes it back unchanged.
	DeclaredPath string
}

func (repository Repository) documentPath() string {
	if len(repository.DeclaredPath) > 0 {
		return repository.DeclaredPath
	}
	return repository.Path
}

// Repositories is the ordered mapping of names to paths, in declaration order.
type Repositories []Repository

// Dependencies enumerates the collaborators of a Store.
type Dependencies struct {
	FileSystem   shared.FileSystem
	Logger       *zap.Logger
	HomeExpander *pathutils.HomeExpander
}

type fileLocker interface {
	Lock() error
	Unlock() error
}

func newFlockLocker(lockPath string) fileLocker {
	return flock.New(lockPath)
}

// Store reads and writes the repositories document.
type Store struct {
	newLocker    func(lockPath string) fileLocker
	filePath     string
	format       documentFormat
	fileSystem   shared.FileSystem
	logger       *zap.Logger
	homeExpander *pathutils.HomeExpander
}

// NewStore constructs a Store for the document at filePath.
func NewStore(filePath string, dependencies Dependencies) (*Store, error) {
	trimmedFilePath := strings.TrimSpace(filePath)
	if len(trimmedFilePath) == 0 {
		return nil, ErrFilePathRequired
	}
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	homeExpander := dependencies.HomeExpander
	if homeExpander == nil {
		homeExpander = pathutils.NewHomeExpander()
	}

	resolvedFilePath := homeExpander.Expand(trimmedFilePath)
	return &Store{
		filePath:     resolvedFilePath,
		format:       detectDocumentFormat(resolvedFilePath),
		fileSystem:   dependencies.FileSystem,
		logger:       logger,
		homeExpander: homeExpander,
		newLocker:    newFlockLocker,
	}, nil
}

// FilePath reports the resolved location of the repositories document.
func (store *Store) FilePath() string {
	return store.filePath
}

// Load returns the configured repositories. An absent document is created
// empty and yields an empty mapping. Unreadable documents yield *ReadError;
// malformed documents yield *ParseError.
func (store *Store) Load() (Repositories, error) {
	fileInfo, statError := store.fileSystem.Stat(store.filePath)
	switch {
	case errors.Is(statError, fs.ErrNotExist):
		store.logger.Warn(fmt.Sprintf(fileMissingWarningTemplateConstant, store.filePath), zap.String(logFieldFilePathConstant, store.filePath))
		if initializationError := store.initialize(); initializationError != nil {
			return Repositories{}, nil
		}
	case statError != nil:
		return nil, store.readFailure(statError)
	case fileInfo.IsDir():
		return nil, store.readFailure(errors.New(isDirectoryMessageConstant))
	}

	content, readError := store.fileSystem.ReadFile(store.filePath)
	if readError != nil {
		return nil, store.readFailure(readError)
	}

	repositories, decodeError := decodeDocument(store.format, content)
	if decodeError != nil {
		parseError := &ParseError{FilePath: store.filePath, Cause: decodeError}
		store.logger.Error(fmt.Sprintf(readFailureLogTemplateConstant, store.filePath), zap.String(logFieldFilePathConstant, store.filePath), zap.Error(parseError))
		return nil, parseError
	}

	for repositoryIndex := range repositories {
		declaredPath := repositories[repositoryIndex].Path
		expandedPath := store.homeExpander.Expand(declaredPath)
		if expandedPath != declaredPath {
			repositories[repositoryIndex].Path = expandedPath
			repositories[repositoryIndex].DeclaredPath = declaredPath
		}
	}

	store.logger.Debug(repositoriesLoadedMessageConstant, zap.String(logFieldFilePathConstant, store.filePath), zap.Int(logFieldRepositoryCountConstant, len(repositories)))
	return repositories, nil
}

// Save overwrites the document with repositories in the given order.
func (store *Store) Save(repositories Repositories) error {
	return store.persist(repositories, false)
}

func (store *Store) initialize() error {
	return store.persist(Repositories{}, true)
}

// persist writes under an exclusive lock. With onlyIfAbsent set, a document
// created by a concurrent process after the caller's check is left intact.
func (store *Store) persist(repositories Repositories, onlyIfAbsent bool) error {
	content, encodeError := encodeDocument(store.format, repositories)
	if encodeError != nil {
		return store.writeFailure(encodeError)
	}

	if mkdirError := store.fileSystem.MkdirAll(filepath.Dir(store.filePath), directoryPermissionsConstant); mkdirError != nil {
		return store.writeFailure(mkdirError)
	}

	lockPath := store.filePath + lockFileSuffixConstant
	fileLock := store.newLocker(lockPath)
	if lockError := fileLock.Lock(); lockError != nil {
		return store.writeFailure(fmt.Errorf(lockAcquireErrorTemplateConstant, lockPath, lockError))
	}
	defer func() {
		if unlockError := fileLock.Unlock(); unlockError != nil {
			store.logger.Warn(lockReleaseWarningMessageConstant, zap.String(logFieldLockPathConstant, lockPath), zap.Error(unlockError))
		}
	}()

	if onlyIfAbsent {
		if _, statError := store.fileSystem.Stat(store.filePath); statError == nil {
			return nil
		}
	}

	temporaryPath := store.filePath + temporaryFileSuffixConstant
	if writeError := store.fileSystem.WriteFile(temporaryPath, content, documentPermissionsConstant); writeError != nil {
		return store.writeFailure(writeError)
	}
	if renameError := store.fileSystem.Rename(temporaryPath, store.filePath); renameError != nil {
		_ = store.fileSystem.Remove(temporaryPath)
		return store.writeFailure(renameError)
	}
	return nil
}

func (store *Store) readFailure(cause error) error {
	readError := &ReadError{FilePath: store.filePath, Cause: cause}
	store.logger.Error(fmt.Sprintf(readFailureLogTemplateConstant, store.filePath), zap.String(logFieldFilePathConstant, store.filePath), zap.Error(readError))
	return readError
}

func (store *Store) writeFailure(cause error) error {
	writeError := &WriteError{FilePath: store.filePath, Cause: cause}
	store.logger.Error(fmt.Sprintf(writeFailureLogTemplateConstant, store.filePath), zap.String(logFieldFilePathConstant, store.filePath), zap.Error(writeError))
	return writeError
}
