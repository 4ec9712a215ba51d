package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer writes one line per event, for pipes and CI logs. Every
// line starts with a fixed-width step label.
type PlainRenderer struct {
	mu    sync.Mutex
	out   io.Writer
	tally *Tally
}

// NewPlainRenderer creates a line renderer writing to opts.Output.
func NewPlainRenderer(opts Options) *PlainRenderer {
	out := opts.Output
	if out == nil {
		out = io.Discard
	}
	return &PlainRenderer{out: out, tally: NewTally()}
}

func (r *PlainRenderer) Start(context.Context) error { return nil }

func (r *PlainRenderer) Stop() error { return nil }

func (r *PlainRenderer) line(label, format string, args ...any) {
	_, _ = fmt.Fprintf(r.out, "%-9s %s\n", label, fmt.Sprintf(format, args...))
}

// Stage implements Renderer.
func (r *PlainRenderer) Stage(stage Stage, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if message != "" {
		r.line(stage.String(), "%s", message)
	}
}

// Document implements Renderer.
func (r *PlainRenderer) Document(d DocumentResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tally.Record(d)
	pos := fmt.Sprintf("%d/%d", d.Position, d.Total)
	switch {
	case !d.Failed():
		r.line(pos, "%s  fetch %s  submit %s", d.ID, millis(d.Fetch), millis(d.Submit))
	case d.Warn:
		r.line(pos, "%s  skipped at %s: %v", d.ID, d.Op, d.Err)
	default:
		r.line(pos, "%s  failed at %s: %v", d.ID, d.Op, d.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.tally.Snapshot()
	r.line("done", "indexed %d/%d documents into %s in %s",
		s.Indexed, s.Selected, s.Index, s.Duration.Round(100*time.Millisecond))
	if s.Years != "" {
		r.line("", "years %s, metadata loaded in %s", s.Years, s.Metadata.Round(time.Millisecond))
	}
	if t.Done > 0 {
		r.line("", "mean fetch %s, mean submit %s", millis(t.MeanFetch), millis(t.MeanSubmit))
		r.line("", "slowest %s (%s)", t.Slowest.ID, millis(t.Slowest.Elapsed()))
	}
	for _, f := range t.Failures {
		label := "failed"
		if f.Warn {
			label = "skipped"
		}
		r.line(label, "%s (%s)", f.ID, f.Op)
	}
	if s.Engine.Backend != "" {
		r.line("engine", "%s %s", s.Engine.Backend, s.Engine.Target)
	}
}

// millis formats d with millisecond precision.
func millis(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

var _ Renderer = (*PlainRenderer)(nil)
