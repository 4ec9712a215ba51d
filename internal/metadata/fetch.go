package metadata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
	"github.com/Aman-CERP/corpusctl/pkg/version"
)

const defaultFetchTimeout = 60 * time.Second

// Fetcher downloads the metadata file over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. A nil client gets one with a 60s timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &Fetcher{client: client}
}

// Fetch returns the body of the metadata file at url.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", cerrors.MetadataFetch(url, fmt.Errorf("build request: %w", err))
	}

	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return "", cerrors.MetadataFetch(url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", cerrors.MetadataFetch(url, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", cerrors.MetadataFetch(url, fmt.Errorf("status %d", resp.StatusCode)).
			WithDetail("status", fmt.Sprint(resp.StatusCode))
	}

	return string(body), nil
}

// LoadURL fetches the metadata file at url and parses it with Load.
func (f *Fetcher) LoadURL(ctx context.Context, url string, indexable []string) (*Table, error) {
	raw, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	table, err := Load(raw, indexable)
	if err != nil {
		return nil, err
	}

	slog.Info("metadata_loaded",
		slog.String("url", url),
		slog.Int("documents", table.Len()))
	return table, nil
}
