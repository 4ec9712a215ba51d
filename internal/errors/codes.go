// Package errors provides structured error handling for corpusctl.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: IO errors (file, disk)
//   - 3XX: Network errors (metadata source, text service, search engine)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and disk I/O errors.
	CategoryIO Category = "IO"
	// CategoryNetwork indicates network-related errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the batch can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigLoad     = "ERR_104_CONFIG_LOAD"

	// IO errors (200-299)
	ErrCodeFileNotFound = "ERR_201_FILE_NOT_FOUND"

	// Network errors (300-399)
	ErrCodeEngineRequest = "ERR_301_ENGINE_REQUEST"
	ErrCodeMetadataFetch = "ERR_302_METADATA_FETCH"
	ErrCodeContentFetch  = "ERR_303_CONTENT_FETCH"
	ErrCodeSubmit        = "ERR_304_SUBMIT"
	ErrCodeIncomplete    = "ERR_305_INCOMPLETE"

	// Validation errors (400-499)
	ErrCodeMalformedMetadata = "ERR_401_MALFORMED_METADATA"
	ErrCodeInvalidYearRange  = "ERR_402_INVALID_YEAR_RANGE"
	ErrCodeInvalidQuery      = "ERR_403_INVALID_QUERY"
	ErrCodeMissingMetadata   = "ERR_404_MISSING_METADATA"
	ErrCodeInvalidInput      = "ERR_405_INVALID_INPUT"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "101" from "ERR_101_CONFIG_NOT_FOUND"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeMalformedMetadata, ErrCodeMetadataFetch, ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodeMissingMetadata:
		return SeverityWarning
	default:
		return SeverityError
	}
}
