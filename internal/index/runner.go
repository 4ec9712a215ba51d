// Package index runs the corpus indexing commands: the document index run,
// index settings reload, index deletion and search.
package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Aman-CERP/corpusctl/internal/config"
	"github.com/Aman-CERP/corpusctl/internal/content"
	"github.com/Aman-CERP/corpusctl/internal/engine"
	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
	"github.com/Aman-CERP/corpusctl/internal/logging"
	"github.com/Aman-CERP/corpusctl/internal/metadata"
	"github.com/Aman-CERP/corpusctl/internal/selection"
	"github.com/Aman-CERP/corpusctl/internal/ui"
)

// Failure operations.
const (
	OpFetch  = "fetch"
	OpLookup = "lookup"
	OpSubmit = "submit"
	OpConfig = "config"
)

// MetadataSource loads the metadata table.
type MetadataSource interface {
	LoadURL(ctx context.Context, url string, indexable []string) (*metadata.Table, error)
}

// Failure is one recovered per-item error of a run.
type Failure struct {
	// ID is the document id, or the index name for settings failures.
	ID  string
	Op  string
	Err error
}

// Report is the outcome of an index run.
type Report struct {
	Index    string
	Years    selection.YearRange
	Selected int
	Indexed  int
	Failures []Failure
	Duration time.Duration
}

// Err aggregates the run's failures into one error. Returns nil when every
// selected document was indexed.
func (r *Report) Err() error {
	return aggregate(r.Failures, fmt.Sprintf("%d of %d documents failed", len(r.Failures), r.Selected))
}

func aggregate(failures []Failure, summary string) error {
	if len(failures) == 0 {
		return nil
	}
	errs := make([]error, len(failures))
	for i, f := range failures {
		errs[i] = f.Err
	}
	return cerrors.Incomplete(summary, errs)
}

// RunnerDependencies contains the injected dependencies for Runner.
type RunnerDependencies struct {
	// Config is the loaded configuration (required).
	Config *config.Config

	// Engine holds the indexes (required).
	Engine engine.Engine

	// Renderer for progress display. Defaults to discarding plain output.
	Renderer ui.Renderer

	// Metadata loads the metadata table. Defaults to an HTTP fetcher.
	Metadata MetadataSource

	// Content fetches document text. Defaults to a DTS client.
	Content content.Fetcher

	// Settings reads index settings files. Defaults to engine.config_dir.
	Settings *engine.SettingsSource
}

// Runner executes the corpus commands against one engine. It is built once
// per command from the loaded configuration and carries no global state.
type Runner struct {
	config   *config.Config
	engine   engine.Engine
	renderer ui.Renderer
	metadata MetadataSource
	content  content.Fetcher
	settings *engine.SettingsSource
}

// NewRunner creates a Runner with injected dependencies.
func NewRunner(deps RunnerDependencies) (*Runner, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}

	r := &Runner{
		config:   deps.Config,
		engine:   deps.Engine,
		renderer: deps.Renderer,
		metadata: deps.Metadata,
		content:  deps.Content,
		settings: deps.Settings,
	}
	if r.renderer == nil {
		r.renderer = ui.NewPlainRenderer(ui.Options{Output: io.Discard})
	}
	if r.metadata == nil {
		r.metadata = metadata.NewFetcher(&http.Client{Timeout: deps.Config.Metadata.Timeout})
	}
	if r.content == nil {
		r.content = content.NewClient(deps.Config.Content.DTSURL, &http.Client{Timeout: deps.Config.Content.Timeout})
	}
	if r.settings == nil {
		r.settings = engine.NewSettingsSource(deps.Config.Engine.ConfigDir)
	}
	return r, nil
}

// Run indexes the documents of yearArg ("<start>-<end>" or "all") into the
// document index, one at a time.
//
// Metadata and year range failures abort the run. Per-document failures
// are logged, rendered and collected in the report; the batch continues.
// An interrupted context stops the run between documents and returns the
// partial report with the context error.
func (r *Runner) Run(ctx context.Context, yearArg string) (*Report, error) {
	start := time.Now()
	indexName := r.config.Engine.DocumentIndex

	years, err := selection.Resolve(yearArg, r.config.Index.AllYears)
	if err != nil {
		return nil, err
	}

	// Stage 1: metadata
	r.renderer.Stage(ui.StageMetadata, "fetching "+r.config.Metadata.FileURL)
	metaStart := time.Now()
	table, err := r.metadata.LoadURL(ctx, r.config.Metadata.FileURL, r.config.Metadata.IndexableColumns)
	if err != nil {
		return nil, err
	}
	metaDuration := time.Since(metaStart)

	// Stage 2: selection
	ids := selection.SelectDocumentIDs(table.IDs(), years)
	r.renderer.Stage(ui.StageSelecting,
		fmt.Sprintf("%d of %d documents selected for %s", len(ids), table.Len(), years))

	report := &Report{
		Index:    indexName,
		Years:    years,
		Selected: len(ids),
	}

	slog.Info("index_started",
		slog.String("index", indexName),
		slog.String("years", years.String()),
		slog.Int("selected", len(ids)),
		slog.Int("documents", table.Len()))

	// Stage 3: fetch, transform and submit each document
	r.renderer.Stage(ui.StageIndexing, "writing to "+indexName)
	indexStart := time.Now()
	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(start)
			slog.Warn("index_interrupted",
				slog.String("index", indexName),
				slog.Int("indexed", report.Indexed),
				slog.Int("remaining", len(ids)-i))
			return report, err
		}

		result := r.indexDocument(ctx, table, indexName, id)
		result.Position, result.Total = i+1, len(ids)
		if result.Failed() && ctx.Err() != nil {
			// The in-flight request was cancelled; not a document failure.
			continue
		}

		if result.Failed() {
			result.Warn = isWarning(result.Err)
			r.recordFailure(report, Failure{ID: id, Op: result.Op, Err: result.Err})
		} else {
			report.Indexed++
			slog.Debug("document_indexed",
				slog.String("index", indexName),
				slog.String("id", id),
				slog.Int64("fetch_ms", result.Fetch.Milliseconds()),
				slog.Int64("submit_ms", result.Submit.Milliseconds()))
		}
		r.renderer.Document(result)
	}
	if err := ctx.Err(); err != nil {
		report.Duration = time.Since(start)
		return report, err
	}
	indexDuration := time.Since(indexStart)

	r.indexCollections()

	report.Duration = time.Since(start)
	r.renderer.Complete(ui.Summary{
		Index:    indexName,
		Years:    years.String(),
		Selected: report.Selected,
		Indexed:  report.Indexed,
		Metadata: metaDuration,
		Duration: report.Duration,
		Engine:   r.engineInfo(),
	})

	docsPerSec := 0.0
	if indexDuration.Seconds() > 0 {
		docsPerSec = float64(report.Indexed) / indexDuration.Seconds()
	}
	slog.Info("index_complete",
		slog.String("index", indexName),
		slog.String("years", years.String()),
		slog.Int("selected", report.Selected),
		slog.Int("indexed", report.Indexed),
		slog.Int("failed", len(report.Failures)),
		slog.Int64("duration_total_ms", report.Duration.Milliseconds()),
		slog.Int64("duration_metadata_ms", metaDuration.Milliseconds()),
		slog.Int64("duration_index_ms", indexDuration.Milliseconds()),
		slog.Float64("docs_per_sec", docsPerSec))

	return report, nil
}

// indexDocument fetches, transforms and submits one document, timing the
// fetch and the submission. A failed result names the failing operation.
func (r *Runner) indexDocument(ctx context.Context, table *metadata.Table, indexName, id string) ui.DocumentResult {
	result := ui.DocumentResult{ID: id}

	began := time.Now()
	raw, err := r.content.Fetch(ctx, id)
	result.Fetch = time.Since(began)
	if err != nil {
		result.Op, result.Err = OpFetch, err
		return result
	}
	text := content.Transform(raw)

	record, ok := table.Get(id)
	if !ok {
		result.Op, result.Err = OpLookup, cerrors.MissingMetadata(id)
		return result
	}

	began = time.Now()
	err = r.engine.IndexDocument(ctx, indexName, id, engine.Payload{Content: text, Metadata: record})
	result.Submit = time.Since(began)
	if err != nil {
		result.Op, result.Err = OpSubmit, cerrors.Submit(indexName, id, err)
	}
	return result
}

func (r *Runner) recordFailure(report *Report, f Failure) {
	report.Failures = append(report.Failures, f)

	slog.Warn("document_failed",
		slog.String("index", report.Index),
		slog.String("id", f.ID),
		slog.String("operation", f.Op),
		logging.ErrorAttr(cerrors.FormatForLog(f.Err)))
}

// indexCollections is the collection index step. Collections have no
// content source yet, so there is nothing to submit.
func (r *Runner) indexCollections() {
	slog.Info("collection_index_skipped",
		slog.String("index", r.config.Engine.CollectionIndex),
		slog.String("reason", "no collection documents to index"))
}

func (r *Runner) engineInfo() ui.EngineInfo {
	info := ui.EngineInfo{Backend: r.config.Engine.Backend, Target: r.config.Engine.URL}
	if info.Backend == config.BackendBleve {
		info.Target = r.config.Engine.BleveDir
	}
	return info
}

func isWarning(err error) bool {
	var ce *cerrors.CorpusError
	return errors.As(err, &ce) && ce.Severity == cerrors.SeverityWarning
}

// ParseIndexes splits a comma-separated index list, dropping blanks.
// An empty list yields fallback.
func ParseIndexes(list string, fallback []string) []string {
	var names []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return fallback
	}
	return names
}
