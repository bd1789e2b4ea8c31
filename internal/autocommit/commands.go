package autocommit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/git-autocommit/internal/execshell"
)

const (
	gitStatusSubcommandConstant        = "status"
	gitStatusPorcelainFlagConstant     = "--porcelain"
	gitStatusIgnoreSubmodulesConstant  = "--ignore-submodules=dirty"
	statusCheckFailureTemplateConstant = "Failed to check git status in %s"
	statusCheckErrorTemplateConstant   = "check git status in %s: %w"
	commandFailureTemplateConstant     = "Git command %s failed in %s: %v"
	logFieldExitCodeConstant           = "exit_code"
	logFieldStandardOutputConstant     = "stdout"
	logFieldStandardErrorConstant      = "stderr"
	logFieldWorkingDirectoryConstant   = "working_directory"
)

// DetectChanges reports whether the working tree at repositoryPath has
// anything to commit. Nested submodule contents are not inspected, but a
// moved submodule pointer counts as a change.
func (service *Service) DetectChanges(executionContext context.Context, repositoryPath string) (ChangeState, error) {
	result, statusError := service.executeGit(executionContext, []string{gitStatusSubcommandConstant, gitStatusPorcelainFlagConstant, gitStatusIgnoreSubmodulesConstant}, repositoryPath)
	if statusError != nil {
		service.logger.Error(
			fmt.Sprintf(statusCheckFailureTemplateConstant, repositoryPath),
			append(commandFailureFields(repositoryPath, statusError), zap.Error(statusError))...,
		)
		return ChangeStateUnknown, fmt.Errorf(statusCheckErrorTemplateConstant, repositoryPath, statusError)
	}

	if len(strings.TrimSpace(result.StandardOutput)) == 0 {
		return ChangeStateClean, nil
	}
	return ChangeStateDirty, nil
}

// executeCommand runs one git step and reports whether it exited with zero.
func (service *Service) executeCommand(executionContext context.Context, arguments []string, repositoryPath string) bool {
	_, executionError := service.executeGit(executionContext, arguments, repositoryPath)
	if executionError == nil {
		return true
	}

	displayedCommand := execshell.ShellCommand{Name: execshell.CommandGit, Details: execshell.CommandDetails{Arguments: arguments}}.DisplayString()
	service.logger.Error(
		fmt.Sprintf(commandFailureTemplateConstant, displayedCommand, repositoryPath, executionError),
		commandFailureFields(repositoryPath, executionError)...,
	)
	return false
}

func commandFailureFields(repositoryPath string, executionError error) []zap.Field {
	fields := []zap.Field{zap.String(logFieldWorkingDirectoryConstant, repositoryPath)}

	var failedError execshell.CommandFailedError
	if !errors.As(executionError, &failedError) {
		return fields
	}

	fields = append(fields, zap.Int(logFieldExitCodeConstant, failedError.Result.ExitCode))
	if standardOutput := strings.TrimSpace(failedError.Result.StandardOutput); len(standardOutput) > 0 {
		fields = append(fields, zap.String(logFieldStandardOutputConstant, standardOutput))
	}
	if standardError := strings.TrimSpace(failedError.Result.StandardError); len(standardError) > 0 {
		fields = append(fields, zap.String(logFieldStandardErrorConstant, standardError))
	}
	return fields
}
