package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorpusError_Unwrap_PreservesOriginalError(t *testing.T) {
	// Given: an original error
	originalErr := errors.New("connection refused")

	// When: wrapping it as a content fetch failure
	err := ContentFetch("ENCPOS_1992_01", originalErr)

	// Then: the cause is still reachable
	require.NotNil(t, err)
	assert.Equal(t, originalErr, errors.Unwrap(err))
	assert.True(t, errors.Is(err, originalErr))
}

func TestCorpusError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      *CorpusError
		expected string
	}{
		{
			name:     "config error",
			err:      New(ErrCodeConfigNotFound, "config file not found", nil),
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "content fetch",
			err:      ContentFetch("ENCPOS_1992_01", nil),
			expected: "[ERR_303_CONTENT_FETCH] cannot fetch content of ENCPOS_1992_01",
		},
		{
			name:     "submit",
			err:      Submit("encpos_document", "ENCPOS_1992_01", nil),
			expected: "[ERR_304_SUBMIT] cannot index ENCPOS_1992_01 into encpos_document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestCorpusError_Is_MatchesByCode(t *testing.T) {
	err1 := ContentFetch("a", nil)
	err2 := ContentFetch("b", nil)

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, Submit("idx", "a", nil)))
}

func TestCorpusError_Is_ThroughFmtWrapping(t *testing.T) {
	// Given: a CorpusError wrapped by fmt.Errorf
	wrapped := fmt.Errorf("index run: %w", MalformedMetadata("header missing", nil))

	// Then: errors.Is and GetCode still see it
	assert.True(t, errors.Is(wrapped, New(ErrCodeMalformedMetadata, "", nil)))
	assert.Equal(t, ErrCodeMalformedMetadata, GetCode(wrapped))
	assert.True(t, IsFatal(wrapped))
}

func TestCategoryAndSeverity_DerivedFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeConfigLoad, CategoryConfig, SeverityError},
		{ErrCodeConfigInvalid, CategoryConfig, SeverityFatal},
		{ErrCodeFileNotFound, CategoryIO, SeverityError},
		{ErrCodeContentFetch, CategoryNetwork, SeverityError},
		{ErrCodeSubmit, CategoryNetwork, SeverityError},
		{ErrCodeIncomplete, CategoryNetwork, SeverityError},
		{ErrCodeMetadataFetch, CategoryNetwork, SeverityFatal},
		{ErrCodeMalformedMetadata, CategoryValidation, SeverityFatal},
		{ErrCodeMissingMetadata, CategoryValidation, SeverityWarning},
		{ErrCodeInternal, CategoryInternal, SeverityError},
		{"bad", CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "msg", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
		})
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestConfigLoad_CarriesIndexAndPath(t *testing.T) {
	err := ConfigLoad("encpos_document", "/etc/conf/encpos_document.conf.json", errors.New("no such file"))

	assert.Equal(t, "encpos_document", err.Details["index"])
	assert.Equal(t, "/etc/conf/encpos_document.conf.json", err.Details["path"])
	assert.Contains(t, err.Suggestion, "encpos_document.conf.json")
	assert.False(t, IsFatal(err))
}

func TestIncomplete_JoinsFailures(t *testing.T) {
	// Given: two per-document failures
	fetch := ContentFetch("ENCPOS_1900_01", nil)
	submit := Submit("encpos__document", "ENCPOS_1900_02", nil)

	// When: summarising the batch
	err := Incomplete("2 of 5 documents failed", []error{fetch, submit})

	// Then: the summary is the message and both failures stay matchable
	assert.Equal(t, "2 of 5 documents failed", err.Message)
	assert.Equal(t, "2", err.Details["failed"])
	assert.ErrorIs(t, err, New(ErrCodeContentFetch, "", nil))
	assert.ErrorIs(t, err, New(ErrCodeSubmit, "", nil))
	assert.Equal(t, ErrCodeIncomplete, GetCode(err))
}

func TestFormatForCLI(t *testing.T) {
	// Given: a submit failure with a cause
	err := Submit("encpos_document", "ENCPOS_1992_01", errors.New("status 500"))

	// When: formatting for the terminal
	out := FormatForCLI(err)

	// Then: message, details, cause and code are present
	assert.Contains(t, out, "Error: cannot index ENCPOS_1992_01 into encpos_document")
	assert.Contains(t, out, "Cause: status 500")
	assert.Contains(t, out, "id: ENCPOS_1992_01")
	assert.Contains(t, out, "operation: submit")
	assert.Contains(t, out, "Code: ERR_304_SUBMIT")
}

func TestFormatForCLI_StandardError(t *testing.T) {
	out := FormatForCLI(errors.New("boom"))

	assert.Contains(t, out, "Error: boom")
	assert.Contains(t, out, ErrCodeInternal)
	assert.Equal(t, "", FormatForCLI(nil))
}

func TestFormatJSON(t *testing.T) {
	err := MalformedMetadata("line 3 has 2 fields, header has 4", errors.New("short row"))

	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ErrCodeMalformedMetadata, decoded["code"])
	assert.Equal(t, "VALIDATION", decoded["category"])
	assert.Equal(t, "FATAL", decoded["severity"])
	assert.Equal(t, "short row", decoded["cause"])
}

func TestFormatForLog(t *testing.T) {
	attrs := FormatForLog(ContentFetch("ENCPOS_1992_01", errors.New("timeout")))

	assert.Equal(t, ErrCodeContentFetch, attrs["error_code"])
	assert.Equal(t, "ENCPOS_1992_01", attrs["detail_id"])
	assert.Equal(t, "timeout", attrs["cause"])

	plain := FormatForLog(errors.New("plain"))
	assert.Equal(t, map[string]any{"error": "plain"}, plain)
	assert.Nil(t, FormatForLog(nil))
}
