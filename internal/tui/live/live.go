// Package live renders the progress of a running benchmark.
package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ldapbench/internal/metrics"
	"ldapbench/internal/tui/styles"
)

const refresh = 200 * time.Millisecond

type tickMsg time.Time

// DoneMsg tells the view the run has returned.
type DoneMsg struct{}

type Model struct {
	source    func() metrics.ProgressSnapshot
	workers   int
	perWorker int

	Snap     metrics.ProgressSnapshot
	Spinner  spinner.Model
	Progress progress.Model

	StartTime time.Time
	Width     int
	done      bool
}

// NewModel watches p while workers each perform perWorker requests.
func NewModel(p *metrics.Progress, workers, perWorker int) Model {
	return Model{
		source:    p.Snapshot,
		workers:   workers,
		perWorker: perWorker,
		Spinner:   spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Active)),
		Progress:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		StartTime: time.Now(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(refresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, tick())
}

// Planned is the number of requests the surviving workers will perform.
func (m Model) Planned() uint64 {
	live := m.workers - m.Snap.Abandoned
	if live < 0 {
		live = 0
	}
	return uint64(live * m.perWorker)
}

// Percent of the planned requests already done.
func (m Model) Percent() float64 {
	planned := m.Planned()
	if planned == 0 {
		if m.done {
			return 1
		}
		return 0
	}
	pct := float64(m.Snap.Done) / float64(planned)
	if pct > 1 {
		pct = 1
	}
	return pct
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.Snap = m.source()
		return m, tick()

	case DoneMsg:
		m.Snap = m.source()
		m.done = true
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Progress.Width = min(msg.Width-8, 60)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.done {
		return ""
	}
	s := strings.Builder{}

	state := "connecting"
	if m.Snap.Ready+m.Snap.Abandoned >= m.workers {
		state = "running"
	}
	s.WriteString(fmt.Sprintf("%s %s %s\n", m.Spinner.View(), styles.Active.Render(state),
		styles.Subtle.Render(time.Since(m.StartTime).Round(time.Second).String())))

	workers := fmt.Sprintf("WORKERS: %d/%d ready", m.Snap.Ready, m.workers)
	if m.Snap.Abandoned > 0 {
		workers += styles.Warn.Render(fmt.Sprintf("  %d abandoned", m.Snap.Abandoned))
	}
	reqs := fmt.Sprintf("REQ: %d/%d", m.Snap.Done, m.Planned())
	if m.Snap.Failed > 0 {
		reqs += styles.Error.Render(fmt.Sprintf("  %d failed", m.Snap.Failed))
	}
	s.WriteString(lipgloss.JoinVertical(lipgloss.Left, workers, reqs))
	s.WriteString("\n\n")
	s.WriteString(m.Progress.ViewAs(m.Percent()))

	return styles.Panel.Render(s.String()) + "\n"
}
