package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
	"github.com/Aman-CERP/corpusctl/pkg/version"
)

// DefaultTimeout bounds a single engine request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of an error response is kept in a ResponseError.
const maxErrorBody = 4096

// ElasticConfig configures the Elasticsearch client.
type ElasticConfig struct {
	URL     string
	Timeout time.Duration

	// Transport overrides the HTTP transport, e.g. with an httptest server's.
	Transport http.RoundTripper
}

// Elastic is an Engine backed by an Elasticsearch cluster.
type Elastic struct {
	baseURL   string
	timeout   time.Duration
	client    *elasticsearch.Client
	transport http.RoundTripper
}

// NewElastic creates a client for the cluster at cfg.URL. Failed requests
// are not retried.
func NewElastic(cfg ElasticConfig) (*Elastic, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport.(*http.Transport).Clone()
	}
	baseURL := strings.TrimRight(cfg.URL, "/")

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{baseURL},
		Transport:    transport,
		DisableRetry: true,
		Header:       http.Header{"User-Agent": []string{version.UserAgent()}},
	})
	if err != nil {
		return nil, cerrors.New(cerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid engine url %q", cfg.URL), err).
			WithSuggestion("set engine.url or CORPUSCTL_ENGINE_URL to http(s)://host:port")
	}

	return &Elastic{
		baseURL:   baseURL,
		timeout:   cfg.Timeout,
		client:    client,
		transport: transport,
	}, nil
}

// PutIndex creates index name with the settings document body.
func (e *Elastic) PutIndex(ctx context.Context, name string, body json.RawMessage) error {
	req := esapi.IndicesCreateRequest{Index: name, Body: bytes.NewReader(body)}
	if _, err := e.do(ctx, "put index", http.MethodPut, "/"+name, req); err != nil {
		return err
	}
	slog.Debug("engine_index_put", slog.String("index", name))
	return nil
}

// DeleteIndex removes index name.
func (e *Elastic) DeleteIndex(ctx context.Context, name string) error {
	req := esapi.IndicesDeleteRequest{Index: []string{name}}
	if _, err := e.do(ctx, "delete index", http.MethodDelete, "/"+name, req); err != nil {
		return err
	}
	slog.Debug("engine_index_deleted", slog.String("index", name))
	return nil
}

// IndexDocument writes payload with an explicit document id, which creates
// or replaces the document.
func (e *Elastic) IndexDocument(ctx context.Context, index, id string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	req := esapi.IndexRequest{Index: index, DocumentID: id, Body: bytes.NewReader(body)}
	_, err = e.do(ctx, "index document", http.MethodPut, "/"+index+"/_doc/"+id, req)
	return err
}

// Search runs body against every index in one request.
func (e *Elastic) Search(ctx context.Context, indexes []string, body json.RawMessage) (json.RawMessage, error) {
	req := esapi.SearchRequest{Index: indexes, Body: bytes.NewReader(body)}
	return e.do(ctx, "search", http.MethodPost, "/"+strings.Join(indexes, ",")+"/_search", req)
}

// Close releases idle connections.
func (e *Elastic) Close() error {
	if t, ok := e.transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
	return nil
}

// do sends req and returns the body of a 2xx answer. Other statuses become
// a *ResponseError wrapped as an engine request error; method and path only
// label it.
func (e *Elastic) do(ctx context.Context, op, method, path string, req esapi.Request) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	target := e.baseURL + path
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return nil, cerrors.EngineRequest(op, err).WithDetail("url", target)
	}
	defer func() { _ = res.Body.Close() }()

	respBody, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, cerrors.EngineRequest(op, fmt.Errorf("read response: %w", err)).WithDetail("url", target)
	}

	if res.IsError() {
		text := string(respBody)
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return nil, cerrors.EngineRequest(op, &ResponseError{
			Method: method,
			URL:    target,
			Status: res.StatusCode,
			Body:   text,
		}).WithDetail("status", fmt.Sprint(res.StatusCode))
	}

	return json.RawMessage(respBody), nil
}

var _ Engine = (*Elastic)(nil)
