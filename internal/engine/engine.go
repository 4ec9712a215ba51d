// Package engine talks to the full-text search engine holding the corpus
// indexes.
//
// Two backends implement Engine:
//   - Elastic: an Elasticsearch cluster through the official client
//   - Bleve: embedded bleve indexes on disk, or in memory for tests
//
// Both accept the same index settings documents, store the same
// {content, metadata} payloads and answer searches with an
// Elasticsearch-shaped JSON response.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Aman-CERP/corpusctl/internal/config"
	"github.com/Aman-CERP/corpusctl/internal/metadata"
)

// Engine is the search engine abstraction used by the CLI commands.
type Engine interface {
	// PutIndex creates or replaces the settings and mappings of index name.
	PutIndex(ctx context.Context, name string, body json.RawMessage) error

	// DeleteIndex removes index name and everything in it.
	DeleteIndex(ctx context.Context, name string) error

	// IndexDocument upserts payload under id. Writing the same id twice
	// leaves a single document.
	IndexDocument(ctx context.Context, index, id string, payload Payload) error

	// Search runs body against indexes and returns the raw JSON response.
	Search(ctx context.Context, indexes []string, body json.RawMessage) (json.RawMessage, error)

	Close() error
}

// Payload is the document stored for one corpus entry.
type Payload struct {
	Content  string          `json:"content"`
	Metadata metadata.Record `json:"metadata"`
}

// ResponseError is a non-2xx answer from the engine.
type ResponseError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *ResponseError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.Body)
}

// IsNotFound reports whether err is a 404 from the engine.
func IsNotFound(err error) bool {
	var re *ResponseError
	return errors.As(err, &re) && re.Status == http.StatusNotFound
}

// New creates the Engine selected by cfg.Engine.Backend.
func New(cfg *config.Config) (Engine, error) {
	switch cfg.Engine.Backend {
	case config.BackendElasticsearch, "":
		return NewElastic(ElasticConfig{
			URL:     cfg.Engine.URL,
			Timeout: cfg.Engine.Timeout,
		})
	case config.BackendBleve:
		return NewBleve(cfg.Engine.BleveDir)
	default:
		return nil, fmt.Errorf("unknown engine backend: %s (valid options: elasticsearch, bleve)", cfg.Engine.Backend)
	}
}
