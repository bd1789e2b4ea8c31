package autocommit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/git-autocommit/internal/execshell"
	"github.com/temirov/git-autocommit/internal/registry"
	"github.com/temirov/git-autocommit/internal/repos/shared"
)

const (
	// DefaultCommitMessagePrefixConstant opens every generated commit message.
	DefaultCommitMessagePrefixConstant = "Auto-commit: Updated files"

	commitMessageTemplateConstant        = "%s - %s"
	commitTimestampLayoutConstant        = "2006-01-02 15:04"
	storeMissingMessageConstant          = "repository store not configured"
	gitExecutorMissingMessageConstant    = "git executor not configured"
	fileSystemMissingMessageConstant     = "file system not configured"
	noRepositoriesMessageConstant        = "No repository paths found"
	runSummaryTemplateConstant           = "Auto-commit run complete: %d/%d updated"
	missingPathTemplateConstant          = "Path for %s does not exist: %s"
	inaccessiblePathTemplateConstant     = "Path for %s is not accessible: %s"
	notRepositoryTemplateConstant        = "Directory %s is not a git repository: %s"
	noChangesTemplateConstant            = "No changes to commit in %s: %s"
	updatedTemplateConstant              = "Successfully auto-committed and pushed changes in %s: %s"
	unexpectedErrorTemplateConstant      = "Unexpected error updating %s: %s - %v"
	repositoryOutcomeMessageConstant     = "repository update finished"
	gitTerminalPromptEnvironmentConstant = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant    = "0"
	logFieldRepositoryNameConstant       = "repository_name"
	logFieldRepositoryPathConstant       = "repository_path"
	logFieldOutcomeConstant              = "outcome"
	logFieldSucceededConstant            = "succeeded"
	logFieldTotalConstant                = "total"
	logFieldPanicConstant                = "panic"
	gitAddSubcommandConstant             = "add"
	gitAddAllPathspecConstant            = "."
	gitCommitSubcommandConstant          = "commit"
	gitCommitMessageFlagConstant         = "-m"
	gitPushSubcommandConstant            = "push"
)

// ErrStoreNotConfigured indicates the service was constructed without a repository store.
var ErrStoreNotConfigured = errors.New(storeMissingMessageConstant)

// ErrGitExecutorNotConfigured indicates the service was constructed without a git executor.
var ErrGitExecutorNotConfigured = errors.New(gitExecutorMissingMessageConstant)

// ErrFileSystemNotConfigured indicates the service was constructed without a file system.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// Dependencies enumerates the collaborators of the auto-commit service.
type Dependencies struct {
	Store               RepositoryStore
	GitExecutor         shared.GitExecutor
	FileSystem          shared.FileSystem
	Clock               shared.Clock
	Logger              *zap.Logger
	CommitMessagePrefix string
}

// Service commits and pushes pending changes across the configured repositories.
type Service struct {
	store         RepositoryStore
	executor      shared.GitExecutor
	fileSystem    shared.FileSystem
	logger        *zap.Logger
	commitMessage string
}

// NewService validates dependencies and fixes the commit message for the run.
func NewService(dependencies Dependencies) (*Service, error) {
	if dependencies.Store == nil {
		return nil, ErrStoreNotConfigured
	}
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorNotConfigured
	}
	if dependencies.FileSystem == nil {
		return nil, ErrFileSystemNotConfigured
	}

	clock := dependencies.Clock
	if clock == nil {
		clock = shared.SystemClock{}
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	commitMessagePrefix := strings.TrimSpace(dependencies.CommitMessagePrefix)
	if len(commitMessagePrefix) == 0 {
		commitMessagePrefix = DefaultCommitMessagePrefixConstant
	}

	return &Service{
		store:         dependencies.Store,
		executor:      dependencies.GitExecutor,
		fileSystem:    dependencies.FileSystem,
		logger:        logger,
		commitMessage: fmt.Sprintf(commitMessageTemplateConstant, commitMessagePrefix, clock.Now().Format(commitTimestampLayoutConstant)),
	}, nil
}

// CommitMessage returns the message used for every commit made by this service.
func (service *Service) CommitMessage() string {
	return service.commitMessage
}

// UpdateAll updates every configured repository in declaration order.
func (service *Service) UpdateAll(executionContext context.Context) Summary {
	repositories, loadError := service.store.Load()
	if loadError != nil || len(repositories) == 0 {
		service.logger.Warn(noRepositoriesMessageConstant)
		return Summary{}
	}

	summary := Summary{Total: len(repositories), Results: make([]RepositoryResult, 0, len(repositories))}
	for _, repository := range repositories {
		outcome := service.UpdateRepository(executionContext, repository)
		if outcome.Succeeded() {
			summary.Succeeded++
		}
		summary.Results = append(summary.Results, RepositoryResult{Repository: repository, Outcome: outcome})
		service.logger.Debug(repositoryOutcomeMessageConstant, append(repositoryFields(repository), zap.Stringer(logFieldOutcomeConstant, outcome))...)
	}

	service.logger.Info(
		fmt.Sprintf(runSummaryTemplateConstant, summary.Succeeded, summary.Total),
		zap.Int(logFieldSucceededConstant, summary.Succeeded),
		zap.Int(logFieldTotalConstant, summary.Total),
	)
	return summary
}

// UpdateRepository stages, commits, and pushes pending changes in one repository.
// Each step runs only when the previous one succeeded.
func (service *Service) UpdateRepository(executionContext context.Context, repository registry.Repository) (outcome Outcome) {
	fields := repositoryFields(repository)

	defer func() {
		if recovered := recover(); recovered != nil {
			service.logger.Error(
				fmt.Sprintf(unexpectedErrorTemplateConstant, repository.Name, repository.Path, recovered),
				append(fields, zap.Any(logFieldPanicConstant, recovered))...,
			)
			outcome = OutcomeFailedUnexpectedError
		}
	}()

	if _, statError := service.fileSystem.Stat(repository.Path); statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			service.logger.Error(fmt.Sprintf(missingPathTemplateConstant, repository.Name, repository.Path), fields...)
		} else {
			service.logger.Error(fmt.Sprintf(inaccessiblePathTemplateConstant, repository.Name, repository.Path), append(fields, zap.Error(statError))...)
		}
		return OutcomeFailedMissingPath
	}

	if _, statError := service.fileSystem.Stat(filepath.Join(repository.Path, shared.GitMetadataDirectoryNameConstant)); statError != nil {
		service.logger.Warn(fmt.Sprintf(notRepositoryTemplateConstant, repository.Name, repository.Path), fields...)
		return OutcomeFailedNotRepository
	}

	changeState, detectionError := service.DetectChanges(executionContext, repository.Path)
	if detectionError != nil {
		return OutcomeFailedCommandError
	}
	if changeState == ChangeStateClean {
		service.logger.Info(fmt.Sprintf(noChangesTemplateConstant, repository.Name, repository.Path), fields...)
		return OutcomeSkippedNoChanges
	}

	if !service.executeCommand(executionContext, []string{gitAddSubcommandConstant, gitAddAllPathspecConstant}, repository.Path) {
		return OutcomeFailedCommandError
	}
	if !service.executeCommand(executionContext, []string{gitCommitSubcommandConstant, gitCommitMessageFlagConstant, service.commitMessage}, repository.Path) {
		return OutcomeFailedCommandError
	}
	if !service.executeCommand(executionContext, []string{gitPushSubcommandConstant}, repository.Path) {
		return OutcomeFailedCommandError
	}

	service.logger.Info(fmt.Sprintf(updatedTemplateConstant, repository.Name, repository.Path), fields...)
	return OutcomeUpdated
}

func (service *Service) executeGit(executionContext context.Context, arguments []string, repositoryPath string) (execshell.ExecutionResult, error) {
	return service.executor.ExecuteGit(executionContext, execshell.CommandDetails{
		Arguments:            arguments,
		WorkingDirectory:     repositoryPath,
		EnvironmentVariables: map[string]string{gitTerminalPromptEnvironmentConstant: gitTerminalPromptDisabledConstant},
	})
}

func repositoryFields(repository registry.Repository) []zap.Field {
	return []zap.Field{
		zap.String(logFieldRepositoryNameConstant, repository.Name),
		zap.String(logFieldRepositoryPathConstant, repository.Path),
	}
}
