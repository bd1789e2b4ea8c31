package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/temirov/git-autocommit/internal/autocommit"
	"github.com/temirov/git-autocommit/internal/instance"
	"github.com/temirov/git-autocommit/internal/registry"
	"github.com/temirov/git-autocommit/internal/repos/dependencies"
	"github.com/temirov/git-autocommit/internal/repos/discovery"
	"github.com/temirov/git-autocommit/internal/repos/shared"
	"github.com/temirov/git-autocommit/internal/utils"
	pathutils "github.com/temirov/git-autocommit/internal/utils/path"
)

const (
	applicationNameConstant                  = "git-autocommit"
	applicationShortDescriptionConstant      = "Commit and push pending changes in every configured repository"
	applicationLongDescriptionConstant       = "git-autocommit walks the repositories listed in the repositories file and, for each one with uncommitted changes, stages everything, commits with a timestamped message, and pushes to the upstream branch."
	configFileFlagNameConstant               = "config"
	configFileFlagUsageConstant              = "Optional path to a configuration file (YAML or JSON)."
	logLevelFlagNameConstant                 = "log-level"
	logLevelFlagUsageConstant                = "Override the configured log level (debug, info, warn, error)."
	logFormatFlagNameConstant                = "log-format"
	logFormatFlagUsageConstant               = "Override the configured log format (structured or console)."
	logFileFlagNameConstant                  = "log-file"
	logFileFlagUsageConstant                 = "Override the configured log file path."
	repositoriesFlagNameConstant             = "repositories"
	repositoriesFlagUsageConstant            = "Override the configured repositories file path (JSON, or YAML by extension)."
	environmentPrefixConstant                = "AUTOCOMMIT"
	configurationSearchPathEnvironmentName   = "AUTOCOMMIT_CONFIG_SEARCH_PATH"
	configurationNameConstant                = "config"
	configurationTypeConstant                = "yaml"
	defaultConfigurationSearchPathConstant   = "."
	userConfigurationSearchPathConstant      = "~/.config/git-autocommit"
	configurationInitializedMessageConstant  = "configuration initialized"
	configurationLogLevelFieldConstant       = "log_level"
	configurationLogFormatFieldConstant      = "log_format"
	configurationLogFileFieldConstant        = "log_file"
	configurationFileFieldConstant           = "config_file"
	configurationRepositoriesFieldConstant   = "repositories_file"
	configurationLoadErrorTemplateConstant   = "unable to load configuration: %w"
	flagValueErrorTemplateConstant           = "invalid --%s value: %w"
	loggerCreationErrorTemplateConstant      = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant          = "unable to flush logger: %w"
	logFileCloseErrorTemplateConstant        = "unable to close log file: %w"
	runLockErrorTemplateConstant             = "unable to acquire run lock: %w"
	storeCreationErrorTemplateConstant       = "unable to open repositories file: %w"
	executorCreationErrorTemplateConstant    = "unable to create git executor: %w"
	serviceCreationErrorTemplateConstant     = "unable to create auto-commit service: %w"
	discoverFlagNameConstant                 = "discover"
	discoverFlagUsageConstant                = "Register git repositories found beneath this directory before updating (repeatable)."
	discoveryErrorTemplateConstant           = "unable to discover repositories: %w"
	discoverySkippedMessageConstant          = "repositories file unavailable; discovered repositories were not registered"
	repositoryRegisteredTemplateConstant     = "Registered repository %s: %s"
	logFieldRepositoryNameConstant           = "repository_name"
	logFieldRepositoryPathConstant           = "repository_path"
	runInProgressWarningMessageConstant      = "another git-autocommit run is in progress"
	runLockReleaseWarningMessageConstant     = "unable to release run lock"
	logFieldLockPathConstant                 = "lock_path"
	loggerNotInitializedMessageConstant      = "logger not initialized"
	configurationSearchPathSeparatorConstant = string(os.PathListSeparator)
)

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common       ApplicationCommonConfiguration       `mapstructure:"common"`
	Repositories ApplicationRepositoriesConfiguration `mapstructure:"repositories"`
	AutoCommit   ApplicationAutoCommitConfiguration   `mapstructure:"autocommit"`
}

// ApplicationCommonConfiguration stores logging configuration.
type ApplicationCommonConfiguration struct {
	LogLevel      utils.LogLevel  `mapstructure:"log_level"`
	LogFormat     utils.LogFormat `mapstructure:"log_format"`
	LogFile       string          `mapstructure:"log_file"`
	LogMaxSizeMB  int             `mapstructure:"log_max_size_mb"`
	LogMaxBackups int             `mapstructure:"log_max_backups"`
	LogMaxAgeDays int             `mapstructure:"log_max_age_days"`
}

// ApplicationRepositoriesConfiguration locates the repositories file.
type ApplicationRepositoriesConfiguration struct {
	File          string   `mapstructure:"file"`
	DiscoverRoots []string `mapstructure:"discover_roots"`
}

// ApplicationAutoCommitConfiguration tunes the generated commits.
type ApplicationAutoCommitConfiguration struct {
	CommitMessagePrefix string `mapstructure:"commit_message_prefix"`
}

// applicationDependencies lets tests replace the process-facing collaborators.
type applicationDependencies struct {
	gitExecutor   shared.GitExecutor
	fileSystem    shared.FileSystem
	clock         shared.Clock
	consoleWriter io.Writer
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	homeExpander          *pathutils.HomeExpander
	logger                *zap.Logger
	logFileCloser         io.Closer
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	logFileFlagValue      string
	repositoriesFlagValue string
	discoverFlagValues    []string
	dependencies          applicationDependencies
	lastSummary           autocommit.Summary
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	return newApplication(applicationDependencies{})
}

func newApplication(applicationDependencies applicationDependencies) *Application {
	homeExpander := pathutils.NewHomeExpander()
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		resolveConfigurationSearchPaths(homeExpander),
	)
	defaultDocument := DefaultConfigurationDocument()
	configurationLoader.SetEmbeddedConfiguration(defaultDocument.Content, defaultDocument.Format)

	loggerFactory := utils.NewLoggerFactory()
	if applicationDependencies.consoleWriter != nil {
		loggerFactory = utils.NewLoggerFactoryWithConsole(applicationDependencies.consoleWriter)
	}

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       loggerFactory,
		homeExpander:        homeExpander,
		logger:              zap.NewNop(),
		dependencies:        applicationDependencies,
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return application.runRootCommand(command)
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.PersistentFlags().StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.logFileFlagValue, logFileFlagNameConstant, "", logFileFlagUsageConstant)
	cobraCommand.PersistentFlags().StringVar(&application.repositoriesFlagValue, repositoriesFlagNameConstant, "", repositoriesFlagUsageConstant)
	cobraCommand.PersistentFlags().StringArrayVar(&application.discoverFlagValues, discoverFlagNameConstant, nil, discoverFlagUsageConstant)

	application.rootCommand = cobraCommand

	return application
}

// Execute runs the root command and ensures the logger is flushed and the log file closed.
func (application *Application) Execute() error {
	executionError := application.rootCommand.Execute()
	if syncError := application.flushLogger(); syncError != nil {
		return fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	if application.logFileCloser != nil {
		if closeError := application.logFileCloser.Close(); closeError != nil {
			return fmt.Errorf(logFileCloseErrorTemplateConstant, closeError)
		}
	}
	return executionError
}

// Execute builds a fresh application instance and executes the root command.
func Execute() error {
	return NewApplication().Execute()
}

func resolveConfigurationSearchPaths(homeExpander *pathutils.HomeExpander) []string {
	if overrideValue := strings.TrimSpace(os.Getenv(configurationSearchPathEnvironmentName)); len(overrideValue) > 0 {
		searchPaths := []string{}
		for _, candidatePath := range strings.Split(overrideValue, configurationSearchPathSeparatorConstant) {
			if expandedPath := homeExpander.Expand(candidatePath); len(expandedPath) > 0 {
				searchPaths = append(searchPaths, expandedPath)
			}
		}
		return searchPaths
	}
	return []string{defaultConfigurationSearchPathConstant, homeExpander.Expand(userConfigurationSearchPathConstant)}
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(
		application.homeExpander.Expand(application.configurationFilePath),
		nil,
		&application.configuration,
	)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		if levelError := application.configuration.Common.LogLevel.UnmarshalText([]byte(application.logLevelFlagValue)); levelError != nil {
			return fmt.Errorf(flagValueErrorTemplateConstant, logLevelFlagNameConstant, levelError)
		}
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		if formatError := application.configuration.Common.LogFormat.UnmarshalText([]byte(application.logFormatFlagValue)); formatError != nil {
			return fmt.Errorf(flagValueErrorTemplateConstant, logFormatFlagNameConstant, formatError)
		}
	}

	if application.persistentFlagChanged(command, logFileFlagNameConstant) {
		application.configuration.Common.LogFile = application.logFileFlagValue
	}

	if application.persistentFlagChanged(command, repositoriesFlagNameConstant) {
		application.configuration.Repositories.File = application.repositoriesFlagValue
	}

	if application.persistentFlagChanged(command, discoverFlagNameConstant) {
		application.configuration.Repositories.DiscoverRoots = append([]string{}, application.discoverFlagValues...)
	}

	application.configuration.Common.LogFile = application.homeExpander.Expand(application.configuration.Common.LogFile)
	application.configuration.Repositories.File = application.homeExpander.Expand(application.configuration.Repositories.File)

	logger, logFileCloser, loggerCreationError := application.loggerFactory.CreateLogger(utils.LoggerSettings{
		Level:      application.configuration.Common.LogLevel,
		Format:     application.configuration.Common.LogFormat,
		FilePath:   application.configuration.Common.LogFile,
		MaxSizeMB:  application.configuration.Common.LogMaxSizeMB,
		MaxBackups: application.configuration.Common.LogMaxBackups,
		MaxAgeDays: application.configuration.Common.LogMaxAgeDays,
	})
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger
	application.logFileCloser = logFileCloser

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, string(application.configuration.Common.LogLevel)),
		zap.String(configurationLogFormatFieldConstant, string(application.configuration.Common.LogFormat)),
		zap.String(configurationLogFileFieldConstant, application.configuration.Common.LogFile),
		zap.String(configurationRepositoriesFieldConstant, application.configuration.Repositories.File),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

func (application *Application) runRootCommand(command *cobra.Command) error {
	if application.logger == nil {
		return errors.New(loggerNotInitializedMessageConstant)
	}

	repositoriesFilePath := application.configuration.Repositories.File
	runLock, lockError := instance.AcquireRunLock(filepath.Dir(repositoriesFilePath))
	if errors.Is(lockError, instance.ErrRunInProgress) {
		application.logger.Warn(runInProgressWarningMessageConstant, zap.String(logFieldLockPathConstant, filepath.Join(filepath.Dir(repositoriesFilePath), instance.RunLockFileNameConstant)))
		return nil
	}
	if lockError != nil {
		return fmt.Errorf(runLockErrorTemplateConstant, lockError)
	}
	defer func() {
		if releaseError := runLock.Release(); releaseError != nil {
			application.logger.Warn(runLockReleaseWarningMessageConstant, zap.String(logFieldLockPathConstant, runLock.Path()), zap.Error(releaseError))
		}
	}()

	fileSystem := dependencies.ResolveFileSystem(application.dependencies.fileSystem)

	store, storeError := registry.NewStore(repositoriesFilePath, registry.Dependencies{
		FileSystem:   fileSystem,
		Logger:       application.logger,
		HomeExpander: application.homeExpander,
	})
	if storeError != nil {
		return fmt.Errorf(storeCreationErrorTemplateConstant, storeError)
	}

	if registrationError := application.registerDiscoveredRepositories(store); registrationError != nil {
		return registrationError
	}

	gitExecutor, executorError := dependencies.ResolveGitExecutor(application.dependencies.gitExecutor, application.logger)
	if executorError != nil {
		return fmt.Errorf(executorCreationErrorTemplateConstant, executorError)
	}

	service, serviceError := autocommit.NewService(autocommit.Dependencies{
		Store:               store,
		GitExecutor:         gitExecutor,
		FileSystem:          fileSystem,
		Clock:               application.dependencies.clock,
		Logger:              application.logger,
		CommitMessagePrefix: application.configuration.AutoCommit.CommitMessagePrefix,
	})
	if serviceError != nil {
		return fmt.Errorf(serviceCreationErrorTemplateConstant, serviceError)
	}

	application.lastSummary = service.UpdateAll(command.Context())
	return nil
}

// registerDiscoveredRepositories appends working copies found beneath the
// configured discovery roots to the repositories file.
func (application *Application) registerDiscoveredRepositories(store *registry.Store) error {
	if len(application.configuration.Repositories.DiscoverRoots) == 0 {
		return nil
	}

	expandedRoots := make([]string, 0, len(application.configuration.Repositories.DiscoverRoots))
	for _, discoveryRoot := range application.configuration.Repositories.DiscoverRoots {
		expandedRoots = append(expandedRoots, application.homeExpander.Expand(discoveryRoot))
	}

	discoveredPaths, discoveryError := discovery.NewFilesystemRepositoryDiscoverer(application.logger).DiscoverRepositories(expandedRoots)
	if discoveryError != nil {
		return fmt.Errorf(discoveryErrorTemplateConstant, discoveryError)
	}

	repositories, loadError := store.Load()
	if loadError != nil {
		application.logger.Warn(discoverySkippedMessageConstant, zap.Error(loadError))
		return nil
	}

	updatedRepositories, addedRepositories := repositories.Register(discoveredPaths)
	if len(addedRepositories) == 0 {
		return nil
	}
	if saveError := store.Save(updatedRepositories); saveError != nil {
		return nil
	}

	for _, addedRepository := range addedRepositories {
		application.logger.Info(
			fmt.Sprintf(repositoryRegisteredTemplateConstant, addedRepository.Name, addedRepository.Path),
			zap.String(logFieldRepositoryNameConstant, addedRepository.Name),
			zap.String(logFieldRepositoryPathConstant, addedRepository.Path),
		)
	}
	return nil
}

func (application *Application) flushLogger() error {
	return application.syncLoggerInstance(application.logger)
}

func (application *Application) syncLoggerInstance(logger *zap.Logger) error {
	if logger == nil {
		return nil
	}

	syncError := logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}
