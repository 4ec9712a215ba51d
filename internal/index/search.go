package index

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
)

type queryString struct {
	Query string `json:"query"`
}

type mustClause struct {
	QueryString queryString `json:"query_string"`
}

type termQuery struct {
	Query struct {
		Bool struct {
			Must []mustClause `json:"must"`
		} `json:"bool"`
	} `json:"query"`
}

// BuildSearchBody returns the request body for query. With term, query is
// a query string wrapped in a bool/must query_string clause; otherwise it
// must be a JSON object sent as is.
func BuildSearchBody(query string, term bool) (json.RawMessage, error) {
	if term {
		var body termQuery
		body.Query.Bool.Must = []mustClause{{QueryString: queryString{Query: query}}}
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, cerrors.InternalError("encode term query", err)
		}
		return raw, nil
	}

	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(trimmed, "{") || !json.Valid([]byte(trimmed)) {
		return nil, cerrors.New(cerrors.ErrCodeInvalidQuery, "query is not a JSON object", nil).
			WithSuggestion("pass a JSON query body, or use --term for a plain search term")
	}
	return json.RawMessage(trimmed), nil
}

// Search runs body against indexes and returns the engine's raw response.
func (r *Runner) Search(ctx context.Context, indexes []string, body json.RawMessage) (json.RawMessage, error) {
	resp, err := r.engine.Search(ctx, indexes, body)
	if err != nil {
		return nil, err
	}
	slog.Info("search_complete",
		slog.String("indexes", strings.Join(indexes, ",")),
		slog.Int("response_bytes", len(resp)))
	return resp, nil
}
