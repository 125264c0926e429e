// Package progress is the Progress UI (C12): a bubbletea terminal model fed
// by the scheduler's and HTTP downloader's progress callbacks, rendering a
// gradient bar and spinner while a job is in flight and a summary line on
// completion.
package progress

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	doneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// state is the shared, mutex-protected progress state fed by whichever
// core component (scheduler or httpdownload) is driving the current job.
type state struct {
	mu        sync.RWMutex
	current   int64
	total     int64
	speed     float64
	done      bool
	err       error
	startTime time.Time
	endTime   time.Time
	finalPath string
}

func (s *state) update(current, total int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = current
	if total >= 0 {
		s.total = total
	}
	if elapsed := time.Since(s.startTime).Seconds(); elapsed > 0 {
		s.speed = float64(current) / elapsed
	}
}

func (s *state) setDone(finalPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.endTime = time.Now()
	s.finalPath = finalPath
}

func (s *state) setError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	s.done = true
}

func (s *state) get() (current, total int64, speed float64, done bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.total, s.speed, s.done, s.err
}

// SegmentReporter adapts state to the scheduler's Reporter interface.
type SegmentReporter struct{ s *state }

func (r SegmentReporter) Report(completed, total int, bytesWritten int64) {
	r.s.update(bytesWritten, int64(total))
	_ = completed
}

// HTTPReporter adapts state to the httpdownload package's Reporter interface.
type HTTPReporter struct{ s *state }

func (r HTTPReporter) Report(written, total int64) { r.s.update(written, total) }

// Model is a bubbletea model tracking one job's progress.
type Model struct {
	bar     progress.Model
	spinner spinner.Model
	label   string
	state   *state
}

// NewModel builds a Model for a job labeled label (typically the output
// filename).
func NewModel(label string) *Model {
	s := &state{startTime: time.Now()}
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(50))
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &Model{bar: bar, spinner: sp, label: label, state: s}
}

// SegmentReporter returns a scheduler.Reporter bound to this model's state.
func (m *Model) SegmentReporter() SegmentReporter { return SegmentReporter{s: m.state} }

// HTTPReporter returns an httpdownload.Reporter bound to this model's state.
func (m *Model) HTTPReporter() HTTPReporter { return HTTPReporter{s: m.state} }

// Done marks the job complete with its final output path.
func (m *Model) Done(finalPath string) { m.state.setDone(finalPath) }

// Fail marks the job as having failed with err.
func (m *Model) Fail(err error) { m.state.setError(err) }

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		barModel, cmd := m.bar.Update(msg)
		m.bar = barModel.(progress.Model)
		return m, cmd

	case tickMsg:
		current, total, _, done, err := m.state.get()
		if err != nil || done {
			return m, tea.Quit
		}
		cmds := []tea.Cmd{tickCmd()}
		if total > 0 {
			cmds = append(cmds, m.bar.SetPercent(float64(current)/float64(total)))
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m Model) View() string {
	current, total, speed, done, err := m.state.get()

	if err != nil {
		return fmt.Sprintf("\n  %s download failed: %v\n\n", errStyle.Render("x"), err)
	}

	if done {
		elapsed := m.state.endTime.Sub(m.state.startTime)
		avgSpeed := float64(current) / elapsedSecondsOrOne(elapsed)
		displayPath := m.state.finalPath
		if abs, absErr := filepath.Abs(displayPath); absErr == nil {
			displayPath = abs
		}
		return fmt.Sprintf("\n  %s download complete\n  saved: %s (%s)\n  elapsed: %s  |  avg speed: %s/s\n\n",
			doneStyle.Render("✓"), displayPath, formatBytes(current), elapsed.Round(time.Second), formatBytes(int64(avgSpeed)))
	}

	percent := 0.0
	if total > 0 {
		percent = float64(current) / float64(total)
	}
	return fmt.Sprintf("\n  %s %s %s\n  %s / %s  %s/s\n\n  %s\n",
		m.spinner.View(), m.label, m.bar.ViewAs(percent),
		formatBytes(current), formatBytes(total), formatBytes(int64(speed)),
		helpStyle.Render("press q to stop watching (download continues)"))
}

func elapsedSecondsOrOne(d time.Duration) float64 {
	if d.Seconds() <= 0 {
		return 1
	}
	return d.Seconds()
}

func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
