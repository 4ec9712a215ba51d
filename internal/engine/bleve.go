package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/fr"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/gofrs/flock"

	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
)

const (
	// defaultSearchSize matches the engine default page size.
	defaultSearchSize = 10

	metadataPrefix = "metadata."

	// LockFile guards a bleve directory against a second process.
	LockFile = ".corpusctl.lock"
)

// Bleve is an Engine backed by embedded bleve indexes, one per index name.
type Bleve struct {
	mu      sync.Mutex
	dir     string
	lock    *flock.Flock
	indexes map[string]bleve.Index
	closed  bool
}

// NewBleve creates a bleve engine storing its indexes under dir as
// <name>.bleve directories. An empty dir keeps every index in memory.
//
// An on-disk engine holds an exclusive lock on dir until Close; a second
// engine on the same dir fails instead of waiting.
func NewBleve(dir string) (*Bleve, error) {
	b := &Bleve{
		dir:     dir,
		indexes: make(map[string]bleve.Index),
	}
	if dir == "" {
		return b, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	b.lock = flock.New(filepath.Join(dir, LockFile))
	locked, err := b.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", dir, err)
	}
	if !locked {
		return nil, cerrors.New(cerrors.ErrCodeEngineRequest,
			fmt.Sprintf("bleve directory %s is in use by another corpusctl process", dir), nil).
			WithDetail("lock", b.lock.Path())
	}
	return b, nil
}

// newIndexMapping analyses text with the French analyzer; corpus documents
// and their metadata are in French.
func newIndexMapping() *mapping.IndexMappingImpl {
	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = fr.AnalyzerName
	return m
}

func (b *Bleve) indexPath(name string) string {
	return filepath.Join(b.dir, name+".bleve")
}

// validateIndexIntegrity checks an on-disk index before opening it.
// Returns nil when there is no index at path.
func validateIndexIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	metaPath := filepath.Join(path, "index_meta.json")
	data, err := os.ReadFile(metaPath)
	if err != nil {
		return fmt.Errorf("cannot read index_meta.json: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("index_meta.json is empty (corrupted)")
	}
	var meta map[string]any
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("index_meta.json is corrupt: %w", err)
	}
	return nil
}

// lookup returns the open index name, opening it from disk when needed.
// The second result is false when the index does not exist.
// Must be called with b.mu held.
func (b *Bleve) lookup(name string) (bleve.Index, bool, error) {
	if idx, ok := b.indexes[name]; ok {
		return idx, true, nil
	}
	if b.dir == "" {
		return nil, false, nil
	}

	path := b.indexPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, false, nil
	}

	if err := validateIndexIntegrity(path); err != nil {
		slog.Warn("bleve_index_corrupted",
			slog.String("index", name),
			slog.String("path", path),
			slog.String("error", err.Error()))
		if removeErr := os.RemoveAll(path); removeErr != nil {
			return nil, false, fmt.Errorf("index %s corrupted at %s and cannot remove: %w", name, path, removeErr)
		}
		slog.Info("bleve_index_cleared",
			slog.String("index", name),
			slog.String("reason", "corruption detected, please reindex"))
		return nil, false, nil
	}

	idx, err := bleve.Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open index %s: %w", name, err)
	}
	b.indexes[name] = idx
	return idx, true, nil
}

// create makes a new empty index. Must be called with b.mu held.
func (b *Bleve) create(name string) (bleve.Index, error) {
	var (
		idx bleve.Index
		err error
	)
	if b.dir == "" {
		idx, err = bleve.NewMemOnly(newIndexMapping())
	} else {
		idx, err = bleve.New(b.indexPath(name), newIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create index %s: %w", name, err)
	}
	b.indexes[name] = idx
	return idx, nil
}

// open returns index name, creating it when absent.
// Must be called with b.mu held.
func (b *Bleve) open(name string) (bleve.Index, error) {
	if b.closed {
		return nil, fmt.Errorf("engine is closed")
	}
	idx, ok, err := b.lookup(name)
	if err != nil {
		return nil, err
	}
	if ok {
		return idx, nil
	}
	return b.create(name)
}

// PutIndex creates index name if it does not exist. The settings document
// must be a JSON object; its analysis settings are not applied, bleve
// indexes always use the built-in mapping.
func (b *Bleve) PutIndex(ctx context.Context, name string, body json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var settings map[string]json.RawMessage
	if err := json.Unmarshal(body, &settings); err != nil {
		return cerrors.EngineRequest("put index", notAcceptable(http.MethodPut, "/"+name, err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.open(name); err != nil {
		return cerrors.EngineRequest("put index", err)
	}
	slog.Debug("engine_index_put", slog.String("index", name), slog.String("backend", "bleve"))
	return nil
}

// DeleteIndex closes index name and removes its files.
func (b *Bleve) DeleteIndex(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return cerrors.EngineRequest("delete index", fmt.Errorf("engine is closed"))
	}

	idx, ok, err := b.lookup(name)
	if err != nil {
		return cerrors.EngineRequest("delete index", err)
	}
	if !ok {
		return cerrors.EngineRequest("delete index", notFound(http.MethodDelete, "/"+name))
	}

	delete(b.indexes, name)
	if err := idx.Close(); err != nil {
		return cerrors.EngineRequest("delete index", err)
	}
	if b.dir != "" {
		if err := os.RemoveAll(b.indexPath(name)); err != nil {
			return cerrors.EngineRequest("delete index", err)
		}
	}
	slog.Debug("engine_index_deleted", slog.String("index", name), slog.String("backend", "bleve"))
	return nil
}

// IndexDocument upserts payload under id, creating the index when absent.
// Metadata columns are stored as metadata.<column>; nil values are left out.
func (b *Bleve) IndexDocument(ctx context.Context, index, id string, payload Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idx, err := b.open(index)
	if err != nil {
		return cerrors.EngineRequest("index document", err)
	}
	if err := idx.Index(id, flatten(payload)); err != nil {
		return cerrors.EngineRequest("index document", fmt.Errorf("failed to index document %s: %w", id, err))
	}
	return nil
}

// flatten turns a payload into the document bleve stores.
func flatten(p Payload) map[string]any {
	doc := make(map[string]any, len(p.Metadata)+1)
	doc["content"] = p.Content
	for column, value := range p.Metadata {
		if value == nil {
			continue
		}
		doc[metadataPrefix+column] = value
	}
	return doc
}

// searchRequest is the subset of the engine search body bleve understands.
type searchRequest struct {
	Query json.RawMessage `json:"query"`
	Size  *int            `json:"size"`
	From  int             `json:"from"`
}

type searchResponse struct {
	Took     int64        `json:"took"`
	TimedOut bool         `json:"timed_out"`
	Hits     searchHitSet `json:"hits"`
}

type searchHitSet struct {
	Total    searchTotal `json:"total"`
	MaxScore float64     `json:"max_score"`
	Hits     []searchHit `json:"hits"`
}

type searchTotal struct {
	Value    uint64 `json:"value"`
	Relation string `json:"relation"`
}

type searchHit struct {
	Index  string         `json:"_index"`
	ID     string         `json:"_id"`
	Score  float64        `json:"_score"`
	Source map[string]any `json:"_source"`
}

// Search runs body against indexes and answers with an
// Elasticsearch-shaped response. Hits from all indexes are merged by
// descending score.
func (b *Bleve) Search(ctx context.Context, indexes []string, body json.RawMessage) (json.RawMessage, error) {
	var req searchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, cerrors.New(cerrors.ErrCodeInvalidQuery, "search body is not a JSON object", err)
	}
	q, err := parseQuery(req.Query)
	if err != nil {
		return nil, err
	}
	size := defaultSearchSize
	if req.Size != nil {
		size = *req.Size
	}
	if req.From < 0 || size < 0 {
		return nil, unsupportedQuery(fmt.Errorf("from and size must not be negative (from=%d, size=%d)", req.From, size))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, cerrors.EngineRequest("search", fmt.Errorf("engine is closed"))
	}

	resp := searchResponse{Hits: searchHitSet{
		Total: searchTotal{Relation: "eq"},
		Hits:  []searchHit{},
	}}
	for _, name := range indexes {
		idx, ok, err := b.lookup(name)
		if err != nil {
			return nil, cerrors.EngineRequest("search", err)
		}
		if !ok {
			return nil, cerrors.EngineRequest("search", notFound(http.MethodPost, "/"+name+"/_search"))
		}

		// Every index contributes its best from+size hits; the page is cut
		// after merging.
		sr := bleve.NewSearchRequestOptions(q, req.From+size, 0, false)
		sr.Fields = []string{"*"}
		result, err := idx.SearchInContext(ctx, sr)
		if err != nil {
			return nil, cerrors.EngineRequest("search", err)
		}

		resp.Took += result.Took.Milliseconds()
		resp.Hits.Total.Value += result.Total
		for _, hit := range result.Hits {
			resp.Hits.Hits = append(resp.Hits.Hits, searchHit{
				Index:  name,
				ID:     hit.ID,
				Score:  hit.Score,
				Source: source(hit.Fields),
			})
		}
	}

	sort.SliceStable(resp.Hits.Hits, func(i, j int) bool {
		return resp.Hits.Hits[i].Score > resp.Hits.Hits[j].Score
	})
	hits := resp.Hits.Hits
	if req.From >= len(hits) {
		hits = []searchHit{}
	} else {
		hits = hits[req.From:]
	}
	if len(hits) > size {
		hits = hits[:size]
	}
	resp.Hits.Hits = hits
	if len(hits) > 0 {
		resp.Hits.MaxScore = hits[0].Score
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return nil, cerrors.InternalError("encode search response", err)
	}
	return out, nil
}

// parseQuery maps the supported query shapes onto bleve queries:
//
//	{"bool": {"must": [{"query_string": {"query": "..."}}, ...]}}
//	{"query_string": {"query": "..."}}
//	{"match_all": {}}
//
// A missing query matches everything.
func parseQuery(raw json.RawMessage) (query.Query, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return bleve.NewMatchAllQuery(), nil
	}

	var clause struct {
		Bool *struct {
			Must []json.RawMessage `json:"must"`
		} `json:"bool"`
		QueryString *struct {
			Query string `json:"query"`
		} `json:"query_string"`
		MatchAll *json.RawMessage `json:"match_all"`
	}
	if err := json.Unmarshal(raw, &clause); err != nil {
		return nil, unsupportedQuery(err)
	}

	switch {
	case clause.QueryString != nil:
		if strings.TrimSpace(clause.QueryString.Query) == "" {
			return nil, unsupportedQuery(fmt.Errorf("empty query_string"))
		}
		return bleve.NewQueryStringQuery(clause.QueryString.Query), nil
	case clause.MatchAll != nil:
		return bleve.NewMatchAllQuery(), nil
	case clause.Bool != nil:
		if len(clause.Bool.Must) == 0 {
			return bleve.NewMatchAllQuery(), nil
		}
		must := make([]query.Query, 0, len(clause.Bool.Must))
		for _, m := range clause.Bool.Must {
			q, err := parseQuery(m)
			if err != nil {
				return nil, err
			}
			must = append(must, q)
		}
		if len(must) == 1 {
			return must[0], nil
		}
		return bleve.NewConjunctionQuery(must...), nil
	default:
		return nil, unsupportedQuery(fmt.Errorf("query %s", string(raw)))
	}
}

func unsupportedQuery(cause error) *cerrors.CorpusError {
	return cerrors.New(cerrors.ErrCodeInvalidQuery, "unsupported query for the bleve backend", cause).
		WithSuggestion("use --term, a query_string query or match_all")
}

// source rebuilds the {content, metadata} document from stored fields.
func source(fields map[string]any) map[string]any {
	src := map[string]any{}
	meta := map[string]any{}
	for name, value := range fields {
		if column, ok := strings.CutPrefix(name, metadataPrefix); ok {
			meta[column] = value
			continue
		}
		src[name] = value
	}
	src["metadata"] = meta
	return src
}

// DocCount returns the number of documents in index name.
func (b *Bleve) DocCount(name string) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	idx, ok, err := b.lookup(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, notFound(http.MethodGet, "/"+name+"/_count")
	}
	return idx.DocCount()
}

// Close closes every open index.
func (b *Bleve) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var firstErr error
	for name, idx := range b.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close index %s: %w", name, err)
		}
	}
	b.indexes = nil

	if b.lock != nil {
		if err := b.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unlock %s: %w", b.dir, err)
		}
	}
	return firstErr
}

func notFound(method, path string) *ResponseError {
	return &ResponseError{
		Method: method,
		URL:    path,
		Status: http.StatusNotFound,
		Body:   `{"error":{"type":"index_not_found_exception"}}`,
	}
}

func notAcceptable(method, path string, cause error) *ResponseError {
	return &ResponseError{
		Method: method,
		URL:    path,
		Status: http.StatusBadRequest,
		Body:   cause.Error(),
	}
}

var _ Engine = (*Bleve)(nil)
