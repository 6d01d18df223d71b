package live

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ldapbench/internal/metrics"
)

func TestModel(t *testing.T) {
	p := &metrics.Progress{}
	m := NewModel(p, 3, 4)
	assert.Equal(t, uint64(12), m.Planned())
	assert.Zero(t, m.Percent())

	p.WorkerReady(0)
	p.WorkerReady(1)
	p.WorkerAbandoned(2, metrics.StageConnect)
	for range 6 {
		p.RequestDone(true, time.Millisecond)
	}
	p.RequestDone(false, time.Millisecond)

	next, cmd := m.Update(tickMsg(time.Now()))
	require.NotNil(t, cmd)
	m = next.(Model)

	assert.Equal(t, uint64(8), m.Planned())
	assert.InDelta(t, 7.0/8.0, m.Percent(), 1e-9)

	view := m.View()
	assert.Contains(t, view, "WORKERS: 2/3 ready")
	assert.Contains(t, view, "1 abandoned")
	assert.Contains(t, view, "REQ: 7/8")
	assert.Contains(t, view, "1 failed")
	assert.Contains(t, view, "running")
	assert.Contains(t, view, "88%")
}

func TestModel_Done(t *testing.T) {
	p := &metrics.Progress{}
	m := NewModel(p, 1, 2)
	p.WorkerReady(0)
	p.RequestDone(true, 0)
	p.RequestDone(true, 0)

	next, cmd := m.Update(DoneMsg{})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Equal(t, 1.0, m.Percent())
	assert.Empty(t, m.View())

	// ticks after the run are ignored
	_, cmd = m.Update(tickMsg(time.Now()))
	assert.Nil(t, cmd)
}

func TestModel_AllAbandoned(t *testing.T) {
	p := &metrics.Progress{}
	m := NewModel(p, 2, 5)
	p.WorkerAbandoned(0, metrics.StageConnect)
	p.WorkerAbandoned(1, metrics.StagePrepare)

	next, _ := m.Update(tickMsg(time.Now()))
	m = next.(Model)
	assert.Zero(t, m.Planned())
	assert.Zero(t, m.Percent())
	assert.Contains(t, m.View(), "2 abandoned")
}

func TestModel_WindowSize(t *testing.T) {
	m := NewModel(&metrics.Progress{}, 1, 1)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 50, Height: 20})
	m = next.(Model)
	assert.Equal(t, 50, m.Width)
	assert.Equal(t, 42, m.Progress.Width)
}
