package ui

import (
	"sync"
	"time"
)

// recentWindow is how many of the latest documents feed the time estimate
// and the live list.
const recentWindow = 8

// Tally accumulates document results. It is safe for concurrent use.
type Tally struct {
	mu       sync.Mutex
	total    int
	done     int
	indexed  int
	warned   int
	fetched  int
	fetch    time.Duration
	submits  int
	submit   time.Duration
	slowest  DocumentResult
	recent   []DocumentResult
	failures []DocumentResult
}

// TallySnapshot is a consistent view of a Tally.
type TallySnapshot struct {
	Total   int
	Done    int
	Indexed int
	Failed  int
	Warned  int

	MeanFetch  time.Duration
	MeanSubmit time.Duration
	// Remaining extrapolates the recent documents' pace to the rest.
	Remaining time.Duration

	Slowest DocumentResult
	// Recent lists the latest documents, newest last.
	Recent   []DocumentResult
	Failures []DocumentResult
}

// NewTally creates an empty tally.
func NewTally() *Tally {
	return &Tally{}
}

// Record adds a document result.
func (t *Tally) Record(r DocumentResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if r.Total > t.total {
		t.total = r.Total
	}
	t.done++

	if r.Fetch > 0 {
		t.fetched++
		t.fetch += r.Fetch
	}
	if r.Submit > 0 {
		t.submits++
		t.submit += r.Submit
	}

	switch {
	case !r.Failed():
		t.indexed++
	case r.Warn:
		t.warned++
		t.failures = append(t.failures, r)
	default:
		t.failures = append(t.failures, r)
	}

	if r.Elapsed() > t.slowest.Elapsed() {
		t.slowest = r
	}

	t.recent = append(t.recent, r)
	if len(t.recent) > recentWindow {
		t.recent = t.recent[len(t.recent)-recentWindow:]
	}
}

// Snapshot returns the current figures.
func (t *Tally) Snapshot() TallySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := TallySnapshot{
		Total:    t.total,
		Done:     t.done,
		Indexed:  t.indexed,
		Failed:   len(t.failures) - t.warned,
		Warned:   t.warned,
		Slowest:  t.slowest,
		Recent:   append([]DocumentResult(nil), t.recent...),
		Failures: append([]DocumentResult(nil), t.failures...),
	}
	if t.fetched > 0 {
		s.MeanFetch = t.fetch / time.Duration(t.fetched)
	}
	if t.submits > 0 {
		s.MeanSubmit = t.submit / time.Duration(t.submits)
	}

	if left := t.total - t.done; left > 0 && len(t.recent) > 0 {
		var pace time.Duration
		for _, r := range t.recent {
			pace += r.Elapsed()
		}
		s.Remaining = pace / time.Duration(len(t.recent)) * time.Duration(left)
	}
	return s
}
