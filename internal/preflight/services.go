package preflight

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/Aman-CERP/corpusctl/internal/engine"
	"github.com/Aman-CERP/corpusctl/internal/metadata"
	"github.com/Aman-CERP/corpusctl/pkg/version"
)

// maxHeaderLine caps how much of the metadata file is read for its header.
const maxHeaderLine = 64 * 1024

// get sends GET url and returns the response. The caller closes the body.
func (c *Checker) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", version.UserAgent())
	return c.client.Do(req)
}

// CheckEngine checks that the Elasticsearch root endpoint answers.
func (c *Checker) CheckEngine(ctx context.Context, url string) CheckResult {
	return c.checkReachable(ctx, "engine", url, true)
}

// CheckTextService checks that the DTS entry endpoint answers. Indexing
// fails per document without it, so the check is not required.
func (c *Checker) CheckTextService(ctx context.Context, url string) CheckResult {
	return c.checkReachable(ctx, "text_service", url, false)
}

func (c *Checker) checkReachable(ctx context.Context, name, url string, required bool) CheckResult {
	result := CheckResult{Name: name, Required: required, Details: url}

	resp, err := c.get(ctx, url)
	if err != nil {
		result.Status = failOrWarn(required)
		result.Message = fmt.Sprintf("unreachable: %v", err)
		return result
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxHeaderLine))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Status = failOrWarn(required)
		result.Message = fmt.Sprintf("status %d", resp.StatusCode)
		return result
	}

	result.Status = StatusPass
	result.Message = "OK"
	return result
}

// CheckMetadata checks that the metadata file is served and that its
// header has an id column.
func (c *Checker) CheckMetadata(ctx context.Context, url string) CheckResult {
	result := CheckResult{Name: "metadata", Required: true, Details: url}

	resp, err := c.get(ctx, url)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("unreachable: %v", err)
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("status %d", resp.StatusCode)
		return result
	}

	line, err := bufio.NewReader(io.LimitReader(resp.Body, maxHeaderLine)).ReadString('\n')
	if err != nil && line == "" {
		result.Status = StatusFail
		result.Message = "empty metadata file"
		return result
	}

	columns := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if !slices.Contains(columns, metadata.IDColumn) {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("header has no %q column", metadata.IDColumn)
		return result
	}

	result.Status = StatusPass
	result.Message = fmt.Sprintf("OK (%d columns)", len(columns))
	return result
}

// CheckSettings checks that the settings document of every index loads.
// Only update-conf needs them, so the check is not required.
func (c *Checker) CheckSettings(src *engine.SettingsSource, names []string) CheckResult {
	result := CheckResult{Name: "index_settings", Required: false}

	var broken []string
	for _, name := range names {
		if _, err := src.Load(name); err != nil {
			broken = append(broken, name)
			result.Details = err.Error()
		}
	}

	if len(broken) > 0 {
		result.Status = StatusWarn
		result.Message = "cannot load settings for " + strings.Join(broken, ", ")
		return result
	}

	result.Status = StatusPass
	result.Message = "OK"
	if src.Embedded() {
		result.Message = "OK (built-in)"
	}
	return result
}

func failOrWarn(required bool) CheckStatus {
	if required {
		return StatusFail
	}
	return StatusWarn
}
