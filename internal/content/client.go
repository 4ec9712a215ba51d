package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
	"github.com/Aman-CERP/corpusctl/pkg/version"
)

const defaultTimeout = 60 * time.Second

// Fetcher retrieves the raw marked-up text of a document by id.
type Fetcher interface {
	Fetch(ctx context.Context, id string) (string, error)
}

// Client fetches documents from a DTS endpoint at {baseURL}/document?id=<id>.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client for the DTS service at baseURL.
// A nil httpClient gets one with a 60s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// Fetch returns the raw text of document id. Transport failures and
// non-2xx responses are ContentFetch errors.
func (c *Client) Fetch(ctx context.Context, id string) (string, error) {
	u := c.baseURL + "/document?" + url.Values{"id": {id}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", cerrors.ContentFetch(id, err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", cerrors.ContentFetch(id, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", cerrors.ContentFetch(id, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", cerrors.ContentFetch(id, fmt.Errorf("status %d", resp.StatusCode)).
			WithDetail("url", u).
			WithDetail("status", fmt.Sprint(resp.StatusCode))
	}

	return string(body), nil
}
