package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
	logDirectoryCreationTemplateConstant = "unable to create log directory %s: %w"
	logFilePathRequiredMessageConstant   = "log file path must be provided"
	logTimeKeyConstant                   = "time"
	logDirectoryPermissionsConstant      = 0o755
	defaultLogMaxSizeMegabytesConstant   = 10
	defaultLogMaxBackupsConstant         = 5
	defaultLogMaxAgeDaysConstant         = 30
)

// ErrLogFilePathRequired indicates the logger settings did not name a log file.
var ErrLogFilePathRequired = errors.New(logFilePathRequiredMessageConstant)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// UnmarshalText normalizes and validates a configured log level.
func (level *LogLevel) UnmarshalText(text []byte) error {
	candidate := LogLevel(strings.ToLower(strings.TrimSpace(string(text))))
	if _, supported := logLevelMapping[candidate]; !supported {
		return fmt.Errorf(unsupportedLogLevelTemplateConstant, string(text))
	}
	*level = candidate
	return nil
}

// UnmarshalText normalizes and validates a configured log format.
func (format *LogFormat) UnmarshalText(text []byte) error {
	candidate := LogFormat(strings.ToLower(strings.TrimSpace(string(text))))
	if candidate != LogFormatStructured && candidate != LogFormatConsole {
		return fmt.Errorf(unsupportedLogFormatTemplateConstant, string(text))
	}
	*format = candidate
	return nil
}

// LoggerSettings describes the level, encoding, and file sink of a logger.
type LoggerSettings struct {
	Level      LogLevel
	Format     LogFormat
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// LoggerFactory builds zap.Logger instances that tee records to the console and a log file.
type LoggerFactory struct {
	consoleWriter io.Writer
}

// NewLoggerFactory constructs a logger factory writing console output to standard error.
func NewLoggerFactory() *LoggerFactory {
	return NewLoggerFactoryWithConsole(os.Stderr)
}

// NewLoggerFactoryWithConsole constructs a logger factory writing console output to the provided writer.
func NewLoggerFactoryWithConsole(consoleWriter io.Writer) *LoggerFactory {
	if consoleWriter == nil {
		consoleWriter = os.Stderr
	}
	return &LoggerFactory{consoleWriter: consoleWriter}
}

// CreateLogger produces a logger honoring the requested settings. The returned
// closer releases the log file and must be called after the logger is synced.
func (factory *LoggerFactory) CreateLogger(settings LoggerSettings) (*zap.Logger, io.Closer, error) {
	zapLogLevel, levelExists := logLevelMapping[settings.Level]
	if !levelExists {
		return nil, nil, fmt.Errorf(unsupportedLogLevelTemplateConstant, settings.Level)
	}

	encoder, encoderError := buildEncoder(settings.Format)
	if encoderError != nil {
		return nil, nil, encoderError
	}

	trimmedFilePath := strings.TrimSpace(settings.FilePath)
	if len(trimmedFilePath) == 0 {
		return nil, nil, ErrLogFilePathRequired
	}

	logDirectory := filepath.Dir(trimmedFilePath)
	if mkdirError := os.MkdirAll(logDirectory, logDirectoryPermissionsConstant); mkdirError != nil {
		return nil, nil, fmt.Errorf(logDirectoryCreationTemplateConstant, logDirectory, mkdirError)
	}

	fileWriter := &lumberjack.Logger{
		Filename:   trimmedFilePath,
		MaxSize:    positiveOrDefault(settings.MaxSizeMB, defaultLogMaxSizeMegabytesConstant),
		MaxBackups: positiveOrDefault(settings.MaxBackups, defaultLogMaxBackupsConstant),
		MaxAge:     positiveOrDefault(settings.MaxAgeDays, defaultLogMaxAgeDaysConstant),
	}

	consoleCore := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(NewFlushingWriter(factory.consoleWriter))), zapLogLevel)
	fileCore := zapcore.NewCore(encoder.Clone(), zapcore.AddSync(fileWriter), zapLogLevel)

	return zap.New(zapcore.NewTee(consoleCore, fileCore)), fileWriter, nil
}

func buildEncoder(format LogFormat) (zapcore.Encoder, error) {
	encoderConfiguration := zap.NewProductionEncoderConfig()
	encoderConfiguration.TimeKey = logTimeKeyConstant
	encoderConfiguration.EncodeTime = zapcore.ISO8601TimeEncoder

	switch format {
	case LogFormatStructured:
		encoderConfiguration.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(encoderConfiguration), nil
	case LogFormatConsole:
		encoderConfiguration.EncodeLevel = zapcore.CapitalLevelEncoder
		encoderConfiguration.CallerKey = zapcore.OmitKey
		return zapcore.NewConsoleEncoder(encoderConfiguration), nil
	default:
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, format)
	}
}

func positiveOrDefault(value int, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
