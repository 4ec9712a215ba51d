package errors

import (
	"errors"
	"fmt"
	"strconv"
)

// CorpusError is the structured error type for corpusctl.
// It carries enough context (operation, document id, index) for a user
// to retry the failed step by hand.
type CorpusError struct {
	// Code is the unique error code (e.g., "ERR_303_CONTENT_FETCH").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *CorpusError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *CorpusError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a CorpusError with the same code.
func (e *CorpusError) Is(target error) bool {
	if t, ok := target.(*CorpusError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *CorpusError) WithDetail(key, value string) *CorpusError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *CorpusError) WithSuggestion(suggestion string) *CorpusError {
	e.Suggestion = suggestion
	return e
}

// New creates a new CorpusError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *CorpusError {
	return &CorpusError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a CorpusError from an existing error.
// The error's message becomes the CorpusError message.
func Wrap(code string, err error) *CorpusError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *CorpusError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ConfigLoad creates an error for an index settings file that could not be
// read or parsed. Recovered per index by the settings reload.
func ConfigLoad(index, path string, cause error) *CorpusError {
	return New(ErrCodeConfigLoad, fmt.Sprintf("cannot load settings for index %s", index), cause).
		WithDetail("index", index).
		WithDetail("path", path).
		WithSuggestion("check engine.config_dir contains _global.conf.json and " + index + ".conf.json")
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *CorpusError {
	return New(ErrCodeFileNotFound, message, cause)
}

// EngineRequest creates an error for a failed search-engine call.
func EngineRequest(op string, cause error) *CorpusError {
	return New(ErrCodeEngineRequest, op+" failed", cause).WithDetail("operation", op)
}

// MetadataFetch creates an error for a failed metadata download.
func MetadataFetch(url string, cause error) *CorpusError {
	return New(ErrCodeMetadataFetch, "cannot fetch metadata file", cause).
		WithDetail("url", url)
}

// ContentFetch creates an error for a failed document content download.
// Recovered per document by the indexer.
func ContentFetch(id string, cause error) *CorpusError {
	return New(ErrCodeContentFetch, fmt.Sprintf("cannot fetch content of %s", id), cause).
		WithDetail("operation", "fetch").
		WithDetail("id", id)
}

// Submit creates an error for a failed document write to the search engine.
// Recovered per document by the indexer.
func Submit(index, id string, cause error) *CorpusError {
	return New(ErrCodeSubmit, fmt.Sprintf("cannot index %s into %s", id, index), cause).
		WithDetail("operation", "submit").
		WithDetail("index", index).
		WithDetail("id", id)
}

// Incomplete creates the error of a batch that finished with per-item
// failures. The failures are joined as its cause.
func Incomplete(summary string, failures []error) *CorpusError {
	return New(ErrCodeIncomplete, summary, errors.Join(failures...)).
		WithDetail("failed", strconv.Itoa(len(failures))).
		WithSuggestion("rerun the command for the failed items; details are in the log")
}

// MalformedMetadata creates an error for a structurally invalid metadata table.
// Fatal to an index run.
func MalformedMetadata(message string, cause error) *CorpusError {
	return New(ErrCodeMalformedMetadata, message, cause).
		WithSuggestion("check the metadata file header and metadata.indexable_columns")
}

// MissingMetadata creates an error for a selected id without a metadata record.
func MissingMetadata(id string) *CorpusError {
	return New(ErrCodeMissingMetadata, fmt.Sprintf("no metadata for %s", id), nil).
		WithDetail("operation", "lookup").
		WithDetail("id", id)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *CorpusError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *CorpusError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
// Fatal errors abort the current run.
func IsFatal(err error) bool {
	var ce *CorpusError
	if errors.As(err, &ce) {
		return ce.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a CorpusError anywhere in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var ce *CorpusError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// GetCategory extracts the category from a CorpusError.
func GetCategory(err error) Category {
	var ce *CorpusError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ""
}
