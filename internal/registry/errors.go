package registry

import (
	"errors"
	"fmt"
)

const (
	filePathRequiredMessageConstant  = "repositories file path must be provided"
	fileSystemMissingMessageConstant = "repositories store file system not configured"
	parseErrorTemplateConstant       = "unable to parse repositories file %s: %v"
	readErrorTemplateConstant        = "unable to read repositories file %s: %v"
	writeErrorTemplateConstant       = "unable to write repositories file %s: %v"
)

// ErrFilePathRequired indicates the store was constructed without a file path.
var ErrFilePathRequired = errors.New(filePathRequiredMessageConstant)

// ErrFileSystemNotConfigured indicates the store was constructed without a file system.
var ErrFileSystemNotConfigured = errors.New(fileSystemMissingMessageConstant)

// ParseError reports a repositories file whose contents are not a flat
// name to path mapping. Callers must treat it as "no mapping available",
// never as an empty mapping.
type ParseError struct {
	FilePath string
	Cause    error
}

func (parseError *ParseError) Error() string {
	return fmt.Sprintf(parseErrorTemplateConstant, parseError.FilePath, parseError.Cause)
}

// Unwrap exposes the decoding failure.
func (parseError *ParseError) Unwrap() error {
	return parseError.Cause
}

// ReadError reports a repositories file that exists but cannot be read.
type ReadError struct {
	FilePath string
	Cause    error
}

func (readError *ReadError) Error() string {
	return fmt.Sprintf(readErrorTemplateConstant, readError.FilePath, readError.Cause)
}

// Unwrap exposes the I/O failure.
func (readError *ReadError) Unwrap() error {
	return readError.Cause
}

// WriteError reports a failure to persist the repositories file.
type WriteError struct {
	FilePath string
	Cause    error
}

func (writeError *WriteError) Error() string {
	return fmt.Sprintf(writeErrorTemplateConstant, writeError.FilePath, writeError.Cause)
}

// Unwrap exposes the I/O failure.
func (writeError *WriteError) Unwrap() error {
	return writeError.Cause
}
