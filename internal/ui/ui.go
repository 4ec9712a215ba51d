// Package ui shows the progress of an index run: which step the run is in,
// how each document went and what the run achieved.
//
// The runner reports every processed document as a DocumentResult. A
// Renderer turns those into either a live terminal view (bubbletea) or
// one line per event for pipes and CI logs.
package ui

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
)

// Stage is a step of an index run.
type Stage int

const (
	StageMetadata Stage = iota
	StageSelecting
	StageIndexing
	StageDone
)

// String returns the lower-case step name.
func (s Stage) String() string {
	switch s {
	case StageMetadata:
		return "metadata"
	case StageSelecting:
		return "select"
	case StageIndexing:
		return "index"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// DocumentResult is the outcome of one selected document.
type DocumentResult struct {
	ID string
	// Position is 1-based within the Total selected documents.
	Position int
	Total    int

	Fetch  time.Duration
	Submit time.Duration

	// Op names the failing step (fetch, lookup, submit); empty on success.
	Op   string
	Err  error
	Warn bool
}

// Failed reports whether the document was not indexed.
func (d DocumentResult) Failed() bool {
	return d.Err != nil
}

// Elapsed is the time spent on the document.
func (d DocumentResult) Elapsed() time.Duration {
	return d.Fetch + d.Submit
}

// EngineInfo describes where a run writes.
type EngineInfo struct {
	Backend string
	Target  string
}

// Summary is what the runner knows at the end of a run. Per-document
// figures come from the renderer's own Tally.
type Summary struct {
	Index    string
	Years    string
	Selected int
	Indexed  int
	Metadata time.Duration
	Duration time.Duration
	Engine   EngineInfo
}

// Renderer displays an index run.
type Renderer interface {
	Start(ctx context.Context) error

	// Stage announces a new step with a one-line description.
	Stage(stage Stage, message string)

	// Document reports one processed document, failed or not.
	Document(result DocumentResult)

	// Complete shows the run summary. It is not called for an interrupted run.
	Complete(summary Summary)

	Stop() error
}

// Options configures NewRenderer.
type Options struct {
	Output io.Writer
	// Plain forces line output even on a terminal.
	Plain   bool
	NoColor bool
	// Target is the engine URL or directory shown in the header.
	Target string
	// Interrupt is called when the user quits the live view.
	Interrupt func()
}

// NewRenderer returns the live view for an interactive terminal outside
// CI, and line output otherwise.
func NewRenderer(opts Options) Renderer {
	if opts.Plain || InCI() || !Interactive(opts.Output) {
		return NewPlainRenderer(opts)
	}
	tui, err := NewTUIRenderer(opts)
	if err != nil {
		return NewPlainRenderer(opts)
	}
	return tui
}

// Interactive reports whether w is a terminal.
func Interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// NoColorRequested reports whether NO_COLOR is set.
func NoColorRequested() bool {
	_, set := os.LookupEnv("NO_COLOR")
	return set
}

var ciVariables = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "TRAVIS"}

// InCI reports whether a CI environment variable is set.
func InCI() bool {
	for _, v := range ciVariables {
		if _, set := os.LookupEnv(v); set {
			return true
		}
	}
	return false
}
