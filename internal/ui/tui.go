package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// stopTimeout bounds how long Stop waits for the program to exit.
const stopTimeout = 2 * time.Second

// maxListedFailures caps the failed ids shown in the summary.
const maxListedFailures = 10

// TUIRenderer is the live terminal view of an index run.
type TUIRenderer struct {
	mu      sync.Mutex
	opts    Options
	model   *runModel
	program *tea.Program
	done    chan struct{}
}

// NewTUIRenderer creates the live view. It fails when the output is not a
// terminal.
func NewTUIRenderer(opts Options) (*TUIRenderer, error) {
	if !Interactive(opts.Output) {
		return nil, fmt.Errorf("output is not a terminal")
	}
	theme := NewTheme(!opts.NoColor && !NoColorRequested())
	return &TUIRenderer{
		opts:  opts,
		model: newRunModel(NewTally(), theme, opts.Target, opts.Interrupt),
		done:  make(chan struct{}),
	}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		return nil
	}
	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if f, ok := r.opts.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)
	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

func (r *TUIRenderer) send(msg tea.Msg) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(msg)
	}
}

// Stage implements Renderer.
func (r *TUIRenderer) Stage(stage Stage, message string) {
	r.send(stageMsg{stage: stage, message: message})
}

// Document implements Renderer. The tally is updated here so the view
// never misses a document.
func (r *TUIRenderer) Document(d DocumentResult) {
	r.model.tally.Record(d)
	r.send(documentMsg{})
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(s Summary) {
	r.send(summaryMsg(s))
}

// Stop implements Renderer. The summary is printed again once the
// alternate screen is gone.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	program := r.program
	r.mu.Unlock()

	if program == nil {
		return nil
	}
	program.Quit()
	select {
	case <-r.done:
		if r.model.summary != nil {
			_, _ = fmt.Fprint(r.opts.Output, r.model.viewSummary())
		}
	case <-time.After(stopTimeout):
	}
	return nil
}

type (
	stageMsg struct {
		stage   Stage
		message string
	}
	documentMsg struct{}
	summaryMsg  Summary
)

// runModel is the bubbletea model of an index run.
type runModel struct {
	tally     *Tally
	theme     Theme
	target    string
	interrupt func()

	stage   Stage
	message string
	summary *Summary
	quit    bool
	width   int

	spinner spinner.Model
	bar     progress.Model
}

func newRunModel(tally *Tally, theme Theme, target string, interrupt func()) *runModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = theme.Current

	barOpts := []progress.Option{progress.WithWidth(40), progress.WithoutPercentage()}
	if theme.BarColor != "" {
		barOpts = append(barOpts, progress.WithSolidFill(theme.BarColor))
	}

	return &runModel{
		tally:     tally,
		theme:     theme,
		target:    target,
		interrupt: interrupt,
		width:     80,
		spinner:   s,
		bar:       progress.New(barOpts...),
	}
}

// Init implements tea.Model.
func (m *runModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if k := msg.String(); k == "ctrl+c" || k == "q" {
			m.quit = true
			if m.interrupt != nil {
				m.interrupt()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(20, msg.Width-30)
	case stageMsg:
		m.stage, m.message = msg.stage, msg.message
	case summaryMsg:
		s := Summary(msg)
		m.summary = &s
		m.stage = StageDone
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *runModel) View() string {
	if m.summary != nil {
		return m.viewSummary()
	}
	if m.quit {
		return "Interrupted; stopping after the current document.\n"
	}

	title := "corpusctl index"
	if m.target != "" {
		title += " → " + m.target
	}

	lines := []string{m.theme.Title.Render(title), m.viewSteps()}
	if m.message != "" {
		lines = append(lines, m.theme.Muted.Render(m.message))
	}
	if m.stage == StageIndexing {
		lines = append(lines, "", m.viewProgress(), "")
		lines = append(lines, m.viewRecent()...)
	}
	lines = append(lines, "", m.theme.Muted.Render("q stops the run"))
	return m.theme.Frame.Width(m.width - 2).Render(strings.Join(lines, "\n"))
}

// viewSteps renders metadata → select → index with the current step live.
func (m *runModel) viewSteps() string {
	steps := []Stage{StageMetadata, StageSelecting, StageIndexing}
	parts := make([]string, len(steps))
	for i, s := range steps {
		switch {
		case s < m.stage:
			parts[i] = m.theme.Indexed.Render("✓ " + s.String())
		case s == m.stage:
			parts[i] = m.theme.Current.Render(m.spinner.View() + " " + s.String())
		default:
			parts[i] = m.theme.Muted.Render("· " + s.String())
		}
	}
	return strings.Join(parts, m.theme.Muted.Render("  →  "))
}

func (m *runModel) viewProgress() string {
	t := m.tally.Snapshot()
	ratio := 0.0
	if t.Total > 0 {
		ratio = float64(t.Done) / float64(t.Total)
	}

	counts := fmt.Sprintf("%d/%d", t.Done, t.Total)
	if t.Failed+t.Warned > 0 {
		counts += m.theme.Failed.Render(fmt.Sprintf("  %d failed", t.Failed+t.Warned))
	}
	timing := fmt.Sprintf("fetch ~%s  submit ~%s", millis(t.MeanFetch), millis(t.MeanSubmit))
	if t.Remaining > 0 {
		timing += fmt.Sprintf("  about %s left", t.Remaining.Round(time.Second))
	}
	return m.bar.ViewAs(ratio) + "  " + counts + "\n" + m.theme.Muted.Render(timing)
}

// viewRecent lists the latest documents, newest first.
func (m *runModel) viewRecent() []string {
	recent := m.tally.Snapshot().Recent
	lines := make([]string, 0, len(recent))
	for i := len(recent) - 1; i >= 0; i-- {
		lines = append(lines, m.docLine(recent[i]))
	}
	return lines
}

func (m *runModel) docLine(d DocumentResult) string {
	id := m.theme.DocID.Render(fmt.Sprintf("%-22s", d.ID))
	if d.Failed() {
		return fmt.Sprintf("%s %s %s", m.theme.mark(d), id, m.theme.Muted.Render(d.Op+": "+d.Err.Error()))
	}
	return fmt.Sprintf("%s %s %s", m.theme.mark(d), id,
		m.theme.Muted.Render(fmt.Sprintf("%7s fetch %7s submit", millis(d.Fetch), millis(d.Submit))))
}

func (m *runModel) viewSummary() string {
	s, t := m.summary, m.tally.Snapshot()

	head := m.theme.Indexed.Render("✓ index run complete")
	if len(t.Failures) > 0 {
		head = m.theme.Warned.Render("! index run complete with failures")
	}
	lines := []string{
		head,
		"",
		fmt.Sprintf("%-10s %s", "index", s.Index),
		fmt.Sprintf("%-10s %s", "years", s.Years),
		fmt.Sprintf("%-10s %d/%d indexed", "documents", s.Indexed, s.Selected),
		fmt.Sprintf("%-10s %s (metadata %s)", "time", s.Duration.Round(100*time.Millisecond), s.Metadata.Round(time.Millisecond)),
	}
	if t.Done > 0 {
		lines = append(lines,
			fmt.Sprintf("%-10s fetch %s, submit %s", "mean", millis(t.MeanFetch), millis(t.MeanSubmit)),
			fmt.Sprintf("%-10s %s (%s)", "slowest", t.Slowest.ID, millis(t.Slowest.Elapsed())))
	}

	if len(t.Failures) > 0 {
		lines = append(lines, "")
		for i, f := range t.Failures {
			if i == maxListedFailures {
				lines = append(lines, m.theme.Muted.Render(fmt.Sprintf("  and %d more, see the log", len(t.Failures)-i)))
				break
			}
			lines = append(lines, fmt.Sprintf("%s %s %s", m.theme.mark(f), f.ID, m.theme.Muted.Render("("+f.Op+")")))
		}
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n")) + "\n"
}

var _ Renderer = (*TUIRenderer)(nil)
