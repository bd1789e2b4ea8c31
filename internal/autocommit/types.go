package autocommit

import (
	"github.com/temirov/git-autocommit/internal/registry"
)

const (
	outcomeUpdatedNameConstant               = "updated"
	outcomeSkippedNoChangesNameConstant      = "skipped_no_changes"
	outcomeFailedMissingPathNameConstant     = "failed_missing_path"
	outcomeFailedNotRepositoryNameConstant   = "failed_not_repository"
	outcomeFailedCommandErrorNameConstant    = "failed_command_error"
	outcomeFailedUnexpectedErrorNameConstant = "failed_unexpected_error"
	changeStateUnknownNameConstant           = "unknown"
	changeStateCleanNameConstant             = "clean"
	changeStateDirtyNameConstant             = "dirty"
	unrecognizedEnumerationNameConstant      = "unrecognized"
)

// Outcome classifies how a single repository update ended.
type Outcome int

const (
	// OutcomeUpdated means changes were staged, committed, and pushed.
	OutcomeUpdated Outcome = iota
	// OutcomeSkippedNoChanges means the working tree was clean.
	OutcomeSkippedNoChanges
	// OutcomeFailedMissingPath means the configured path does not exist.
	OutcomeFailedMissingPath
	// OutcomeFailedNotRepository means the path has no .git entry.
	OutcomeFailedNotRepository
	// OutcomeFailedCommandError means a git invocation failed.
	OutcomeFailedCommandError
	// OutcomeFailedUnexpectedError means the update panicked and was recovered.
	OutcomeFailedUnexpectedError
)

// Succeeded reports whether the outcome counts toward the updated total.
func (outcome Outcome) Succeeded() bool {
	return outcome == OutcomeUpdated || outcome == OutcomeSkippedNoChanges
}

func (outcome Outcome) String() string {
	switch outcome {
	case OutcomeUpdated:
		return outcomeUpdatedNameConstant
	case OutcomeSkippedNoChanges:
		return outcomeSkippedNoChangesNameConstant
	case OutcomeFailedMissingPath:
		return outcomeFailedMissingPathNameConstant
	case OutcomeFailedNotRepository:
		return outcomeFailedNotRepositoryNameConstant
	case OutcomeFailedCommandError:
		return outcomeFailedCommandErrorNameConstant
	case OutcomeFailedUnexpectedError:
		return outcomeFailedUnexpectedErrorNameConstant
	default:
		return unrecognizedEnumerationNameConstant
	}
}

// ChangeState is the result of inspecting a working tree.
type ChangeState int

const (
	// ChangeStateUnknown means the status query failed.
	ChangeStateUnknown ChangeState = iota
	// ChangeStateClean means there is nothing to commit.
	ChangeStateClean
	// ChangeStateDirty means at least one path is modified, staged, or untracked.
	ChangeStateDirty
)

func (state ChangeState) String() string {
	switch state {
	case ChangeStateUnknown:
		return changeStateUnknownNameConstant
	case ChangeStateClean:
		return changeStateCleanNameConstant
	case ChangeStateDirty:
		return changeStateDirtyNameConstant
	default:
		return unrecognizedEnumerationNameConstant
	}
}

// RepositoryResult pairs a repository with the outcome of its update.
type RepositoryResult struct {
	Repository registry.Repository
	Outcome    Outcome
}

// Summary describes a completed run in iteration order.
type Summary struct {
	Total     int
	Succeeded int
	Results   []RepositoryResult
}

// RepositoryStore supplies the repositories to update.
type RepositoryStore interface {
	Load() (registry.Repositories, error)
}
