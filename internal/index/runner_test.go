package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/corpusctl/internal/config"
	"github.com/Aman-CERP/corpusctl/internal/engine"
	cerrors "github.com/Aman-CERP/corpusctl/internal/errors"
	"github.com/Aman-CERP/corpusctl/internal/metadata"
	"github.com/Aman-CERP/corpusctl/internal/ui"
)

// MockRenderer implements ui.Renderer for testing.
type MockRenderer struct {
	StartCalled    bool
	StopCalled     bool
	CompleteCalled bool
	Stages         []ui.Stage
	Documents      []ui.DocumentResult
	Summary        ui.Summary
}

func (m *MockRenderer) Start(ctx context.Context) error {
	m.StartCalled = true
	return nil
}

func (m *MockRenderer) Stage(stage ui.Stage, _ string) {
	m.Stages = append(m.Stages, stage)
}

func (m *MockRenderer) Document(result ui.DocumentResult) {
	m.Documents = append(m.Documents, result)
}

func (m *MockRenderer) Complete(summary ui.Summary) {
	m.CompleteCalled = true
	m.Summary = summary
}

func (m *MockRenderer) Stop() error {
	m.StopCalled = true
	return nil
}

func (m *MockRenderer) Failed() []ui.DocumentResult {
	var failed []ui.DocumentResult
	for _, d := range m.Documents {
		if d.Failed() {
			failed = append(failed, d)
		}
	}
	return failed
}

// MockEngine records calls and returns configured errors.
type MockEngine struct {
	mu        sync.Mutex
	Documents map[string]engine.Payload // "index/id" -> payload
	Submits   int
	Puts      map[string]json.RawMessage
	Deleted   []string

	SubmitErrors map[string]error // by id
	DeleteErr    error
	PutErr       error
	SearchResp   json.RawMessage
	SearchBody   json.RawMessage
	SearchIdx    []string
}

func NewMockEngine() *MockEngine {
	return &MockEngine{
		Documents:    make(map[string]engine.Payload),
		Puts:         make(map[string]json.RawMessage),
		SubmitErrors: make(map[string]error),
	}
}

func (m *MockEngine) PutIndex(ctx context.Context, name string, body json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Puts[name] = body
	return nil
}

func (m *MockEngine) DeleteIndex(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.Deleted = append(m.Deleted, name)
	return nil
}

func (m *MockEngine) IndexDocument(ctx context.Context, index, id string, payload engine.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Submits++
	if err := m.SubmitErrors[id]; err != nil {
		return err
	}
	m.Documents[index+"/"+id] = payload
	return nil
}

func (m *MockEngine) Search(ctx context.Context, indexes []string, body json.RawMessage) (json.RawMessage, error) {
	m.SearchIdx = indexes
	m.SearchBody = body
	return m.SearchResp, nil
}

func (m *MockEngine) Close() error { return nil }

// MockMetadata serves a fixed TSV through the real table parser.
type MockMetadata struct {
	TSV   string
	Err   error
	Calls int
}

func (m *MockMetadata) LoadURL(ctx context.Context, url string, indexable []string) (*metadata.Table, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return metadata.Load(m.TSV, indexable)
}

// MockContent returns "<TEI><body>text of ID</body></TEI>" for every id,
// except the ids in Fail.
type MockContent struct {
	Fail    map[string]bool
	Fetched []string
	// OnFetch runs before each fetch.
	OnFetch func(id string)
}

func (m *MockContent) Fetch(ctx context.Context, id string) (string, error) {
	if m.OnFetch != nil {
		m.OnFetch(id)
	}
	m.Fetched = append(m.Fetched, id)
	if m.Fail[id] {
		return "", cerrors.ContentFetch(id, errors.New("status 500")).WithDetail("status", "500")
	}
	if err := ctx.Err(); err != nil {
		return "", cerrors.ContentFetch(id, err)
	}
	return fmt.Sprintf("<TEI><teiHeader>h</teiHeader><body>text of <hi>%s</hi></body></TEI>", id), nil
}

// corpusTSV builds a metadata table with n documents promoted in year.
func corpusTSV(year, n int) string {
	var sb strings.Builder
	sb.WriteString("id\ttitle_rich\tpromotion_year\ttopic\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "ENCPOS_%d_%02d\tThèse %d\t%d\tunused\n", year, i, i, year)
	}
	return sb.String()
}

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Metadata.IndexableColumns = []string{"id", "title_rich", "promotion_year"}
	return cfg
}

type fixture struct {
	runner   *Runner
	engine   *MockEngine
	meta     *MockMetadata
	content  *MockContent
	renderer *MockRenderer
}

func newFixture(t *testing.T, tsv string) *fixture {
	t.Helper()
	f := &fixture{
		engine:   NewMockEngine(),
		meta:     &MockMetadata{TSV: tsv},
		content:  &MockContent{Fail: map[string]bool{}},
		renderer: &MockRenderer{},
	}
	runner, err := NewRunner(RunnerDependencies{
		Config:   testConfig(),
		Engine:   f.engine,
		Renderer: f.renderer,
		Metadata: f.meta,
		Content:  f.content,
		Settings: engine.NewSettingsSource(""),
	})
	require.NoError(t, err)
	f.runner = runner
	return f
}

func TestNewRunner_RequiresConfigAndEngine(t *testing.T) {
	_, err := NewRunner(RunnerDependencies{Engine: NewMockEngine()})
	assert.Error(t, err)

	_, err = NewRunner(RunnerDependencies{Config: testConfig()})
	assert.Error(t, err)
}

func TestNewRunner_DefaultsDependencies(t *testing.T) {
	r, err := NewRunner(RunnerDependencies{Config: testConfig(), Engine: NewMockEngine()})

	require.NoError(t, err)
	assert.NotNil(t, r.renderer)
	assert.NotNil(t, r.metadata)
	assert.NotNil(t, r.content)
	require.NotNil(t, r.settings)
	assert.True(t, r.settings.Embedded())
}

func TestRunner_Run_IndexesSelectedDocuments(t *testing.T) {
	// Given: three documents of 1900 and one of 1901
	tsv := corpusTSV(1900, 3) + "ENCPOS_1901_01\tAutre\t1901\tx\n"
	f := newFixture(t, tsv)

	// When: indexing 1900 only
	report, err := f.runner.Run(context.Background(), "1900-1900")

	// Then: only the 1900 documents are submitted, in table order
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, 3, report.Selected)
	assert.Equal(t, 3, report.Indexed)
	assert.Equal(t, "encpos__document", report.Index)
	assert.Equal(t, []string{"ENCPOS_1900_01", "ENCPOS_1900_02", "ENCPOS_1900_03"}, f.content.Fetched)

	doc, ok := f.engine.Documents["encpos__document/ENCPOS_1900_02"]
	require.True(t, ok)
	assert.Equal(t, "text of  ENCPOS_1900_02 ", doc.Content)
	assert.Equal(t, metadata.Record{"title_rich": "Thèse 2", "promotion_year": 1900}, doc.Metadata)
}

func TestRunner_Run_ContinuesPastFetchFailure(t *testing.T) {
	// Given: 10 selected documents, the 4th of which cannot be fetched
	f := newFixture(t, corpusTSV(1900, 10))
	f.content.Fail["ENCPOS_1900_04"] = true

	// When: running the batch
	report, err := f.runner.Run(context.Background(), "1900-1900")

	// Then: 9 documents are indexed and exactly one failure is reported
	require.NoError(t, err)
	assert.Equal(t, 10, report.Selected)
	assert.Equal(t, 9, report.Indexed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "ENCPOS_1900_04", report.Failures[0].ID)
	assert.Equal(t, OpFetch, report.Failures[0].Op)
	assert.Equal(t, cerrors.ErrCodeContentFetch, cerrors.GetCode(report.Failures[0].Err))

	// And: the failed document was never submitted
	assert.Equal(t, 9, f.engine.Submits)
	_, submitted := f.engine.Documents["encpos__document/ENCPOS_1900_04"]
	assert.False(t, submitted)

	// And: the renderer saw every document, one failed at fetch, and the totals
	require.Len(t, f.renderer.Documents, 10)
	failed := f.renderer.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "ENCPOS_1900_04", failed[0].ID)
	assert.Equal(t, OpFetch, failed[0].Op)
	assert.Equal(t, 4, failed[0].Position)
	assert.Equal(t, 10, failed[0].Total)
	assert.False(t, failed[0].Warn)
	assert.Zero(t, failed[0].Submit)
	require.True(t, f.renderer.CompleteCalled)
	assert.Equal(t, 9, f.renderer.Summary.Indexed)
	assert.Equal(t, 10, f.renderer.Summary.Selected)

	// And: the aggregated error names the failure
	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "1 of 10 documents failed")
	assert.True(t, errors.Is(report.Err(), cerrors.New(cerrors.ErrCodeContentFetch, "", nil)))
}

func TestRunner_Run_ContinuesPastSubmitFailure(t *testing.T) {
	// Given: an engine rejecting one document
	f := newFixture(t, corpusTSV(1900, 3))
	f.engine.SubmitErrors["ENCPOS_1900_02"] = cerrors.EngineRequest("index document",
		&engine.ResponseError{Method: http.MethodPut, URL: "/x", Status: 400})

	// When: running the batch
	report, err := f.runner.Run(context.Background(), "1900-1900")

	// Then: the failure is a submit error and the rest is indexed
	require.NoError(t, err)
	assert.Equal(t, 2, report.Indexed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, OpSubmit, report.Failures[0].Op)
	assert.Equal(t, cerrors.ErrCodeSubmit, cerrors.GetCode(report.Failures[0].Err))

	var re *engine.ResponseError
	assert.ErrorAs(t, report.Failures[0].Err, &re)
}

func TestRunner_Run_AuxiliaryIDsNeverSelected(t *testing.T) {
	tsv := corpusTSV(1900, 1) +
		"ENCPOS_1900_01_PREV\tp\t1900\tx\n" +
		"ENCPOS_1900_01_NEXT\tn\t1900\tx\n"
	f := newFixture(t, tsv)

	report, err := f.runner.Run(context.Background(), "1900-1900")

	require.NoError(t, err)
	assert.Equal(t, 1, report.Selected)
	assert.Equal(t, []string{"ENCPOS_1900_01"}, f.content.Fetched)
}

func TestRunner_Run_AllUsesConfiguredRange(t *testing.T) {
	tsv := corpusTSV(1850, 1) + "ENCPOS_2021_01\tfutur\t2021\tx\n"
	f := newFixture(t, tsv)

	report, err := f.runner.Run(context.Background(), "all")

	require.NoError(t, err)
	assert.Equal(t, "1849-2020", report.Years.String())
	assert.Equal(t, []string{"ENCPOS_1850_01"}, f.content.Fetched)
}

func TestRunner_Run_EmptySelection(t *testing.T) {
	f := newFixture(t, corpusTSV(1900, 2))

	report, err := f.runner.Run(context.Background(), "1950-1960")

	require.NoError(t, err)
	assert.Zero(t, report.Selected)
	assert.Zero(t, report.Indexed)
	assert.NoError(t, report.Err())
	assert.Empty(t, f.content.Fetched)
	assert.True(t, f.renderer.CompleteCalled)
}

func TestRunner_Run_InvalidYearsFailBeforeFetch(t *testing.T) {
	tests := []string{"1900", "abc-1900", "1901-1900", ""}

	for _, years := range tests {
		t.Run(years, func(t *testing.T) {
			f := newFixture(t, corpusTSV(1900, 1))

			_, err := f.runner.Run(context.Background(), years)

			require.Error(t, err)
			assert.Equal(t, cerrors.ErrCodeInvalidYearRange, cerrors.GetCode(err))
			assert.Zero(t, f.meta.Calls)
		})
	}
}

func TestRunner_Run_MalformedMetadataAborts(t *testing.T) {
	// Given: a table whose second row is short
	f := newFixture(t, "id\ttitle_rich\tpromotion_year\nENCPOS_1900_01\tx\t1900\nENCPOS_1900_02\n")

	// When: running
	report, err := f.runner.Run(context.Background(), "1900-1900")

	// Then: nothing is fetched and the error is fatal
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, cerrors.IsFatal(err))
	assert.Equal(t, cerrors.ErrCodeMalformedMetadata, cerrors.GetCode(err))
	assert.Empty(t, f.content.Fetched)
}

func TestRunner_Run_MetadataFetchErrorAborts(t *testing.T) {
	f := newFixture(t, "")
	f.meta.Err = cerrors.MetadataFetch("http://x/encpos.tsv", errors.New("connection refused"))

	_, err := f.runner.Run(context.Background(), "all")

	require.Error(t, err)
	assert.Equal(t, cerrors.ErrCodeMetadataFetch, cerrors.GetCode(err))
}

func TestRunner_Run_CancelStopsBetweenDocuments(t *testing.T) {
	// Given: a run cancelled while the 2nd document is fetched
	f := newFixture(t, corpusTSV(1900, 5))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.content.OnFetch = func(id string) {
		if id == "ENCPOS_1900_02" {
			cancel()
		}
	}

	// When: running
	report, err := f.runner.Run(ctx, "1900-1900")

	// Then: the run stops with the partial report and no spurious failure
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Indexed)
	assert.Empty(t, report.Failures)
	assert.Equal(t, []string{"ENCPOS_1900_01", "ENCPOS_1900_02"}, f.content.Fetched)
	assert.False(t, f.renderer.CompleteCalled)
}

func TestRunner_Run_ReportsStagesAndDocuments(t *testing.T) {
	f := newFixture(t, corpusTSV(1900, 2))

	_, err := f.runner.Run(context.Background(), "1900-1900")
	require.NoError(t, err)

	assert.Equal(t, []ui.Stage{ui.StageMetadata, ui.StageSelecting, ui.StageIndexing}, f.renderer.Stages)
	require.Len(t, f.renderer.Documents, 2)
	for i, d := range f.renderer.Documents {
		assert.Equal(t, fmt.Sprintf("ENCPOS_1900_%02d", i+1), d.ID)
		assert.Equal(t, i+1, d.Position)
		assert.Equal(t, 2, d.Total)
		assert.False(t, d.Failed())
	}
}

func TestRunner_Run_UpsertsIntoBleve(t *testing.T) {
	// Given: an in-memory bleve engine
	b, err := engine.NewBleve("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	runner, err := NewRunner(RunnerDependencies{
		Config:   testConfig(),
		Engine:   b,
		Metadata: &MockMetadata{TSV: corpusTSV(1900, 3)},
		Content:  &MockContent{},
	})
	require.NoError(t, err)

	// When: indexing the same range twice
	for range 2 {
		report, err := runner.Run(context.Background(), "1900-1900")
		require.NoError(t, err)
		require.Equal(t, 3, report.Indexed)
	}

	// Then: each document is stored once
	count, err := b.DocCount("encpos__document")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	// And: the stored text is searchable
	body, err := BuildSearchBody("ENCPOS_1900_02", true)
	require.NoError(t, err)
	raw, err := runner.Search(context.Background(), []string{"encpos__document"}, body)
	require.NoError(t, err)

	var resp struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	require.NoError(t, json.Unmarshal(raw, &resp))
	require.NotEmpty(t, resp.Hits.Hits)
	assert.Equal(t, "ENCPOS_1900_02", resp.Hits.Hits[0].ID)
}

func TestParseIndexes(t *testing.T) {
	fallback := []string{"encpos__document", "encpos__collection"}

	tests := []struct {
		in   string
		want []string
	}{
		{"", fallback},
		{" , ", fallback},
		{"a", []string{"a"}},
		{"a, b ,,c", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIndexes(tt.in, fallback))
		})
	}
}
