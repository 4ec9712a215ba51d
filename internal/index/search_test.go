package index

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
)

func TestBuildSearchBody_WrapsTerm(t *testing.T) {
	body, err := BuildSearchBody(`chartes "école"`, true)

	require.NoError(t, err)
	assert.JSONEq(t,
		`{"query":{"bool":{"must":[{"query_string":{"query":"chartes \"école\""}}]}}}`,
		string(body))
}

func TestBuildSearchBody_RawQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr bool
	}{
		{name: "object", query: `{"query":{"match_all":{}}}`},
		{name: "padded object", query: "  {\"size\":1}\n"},
		{name: "plain word", query: "chartes", wantErr: true},
		{name: "truncated", query: `{"query":`, wantErr: true},
		{name: "array", query: `[1,2]`, wantErr: true},
		{name: "empty", query: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := BuildSearchBody(tt.query, false)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, cerrors.ErrCodeInvalidQuery, cerrors.GetCode(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, json.Valid(body))
		})
	}
}

func TestRunner_Search_PassesThrough(t *testing.T) {
	// Given: an engine with a canned response
	eng := NewMockEngine()
	eng.SearchResp = json.RawMessage(`{"hits":{"hits":[]}}`)
	r := newSettingsRunner(t, eng, "")

	// When: searching two indexes
	resp, err := r.Search(context.Background(), []string{"a", "b"}, json.RawMessage(`{"size":0}`))

	// Then: the request and response are forwarded untouched
	require.NoError(t, err)
	assert.JSONEq(t, `{"hits":{"hits":[]}}`, string(resp))
	assert.Equal(t, []string{"a", "b"}, eng.SearchIdx)
	assert.JSONEq(t, `{"size":0}`, string(eng.SearchBody))
}
