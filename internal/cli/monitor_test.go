package cli

import (
	"bytes"
	"context"
	"math"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtermpi/internal/estimator"
	"qtermpi/internal/quantum"
)

func newTestMonitor(cancel context.CancelFunc) monitorModel {
	return newMonitorModel(&bytes.Buffer{}, "1234567890abcdef", 3, 10000, cancel)
}

func update(t *testing.T, m monitorModel, msg tea.Msg) (monitorModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mm, ok := next.(monitorModel)
	require.True(t, ok)
	return mm, cmd
}

func TestMonitorTracksEstimates(t *testing.T) {
	m := newTestMonitor(nil)
	assert.Zero(t, m.percent())

	m, _ = update(t, m, estimateMsg{est: estimator.Estimate{Qubits: 4, Value: 8.0 / 3.0, Bitstring: "0011", Probability: 0.48}})
	m, _ = update(t, m, estimateMsg{
		est: estimator.Estimate{Qubits: 1, Value: math.NaN(), Bitstring: "0", Degenerate: true},
		err: estimator.ErrDegenerateEstimate,
	})

	require.Len(t, m.finished, 2)
	assert.Equal(t, 1, m.finished[0].Qubits, "kept in qubit order")
	assert.InDelta(t, 2.0/3.0, m.percent(), 1e-12)

	view := m.View()
	assert.Contains(t, view, "QPE sweep")
	assert.Contains(t, view, "run 12345678")
	assert.Contains(t, view, "2/3 circuits")
	assert.Contains(t, view, "10,000 shots")
	assert.Contains(t, view, "4 qubits, pi ≈ 2.6666666666666665")
	assert.Contains(t, view, "1 qubits, pi ≈ undefined")
	assert.Contains(t, view, "|0011> p=0.480")
}

func TestMonitorRecordsFailure(t *testing.T) {
	m := newTestMonitor(nil)
	m, _ = update(t, m, estimateMsg{est: estimator.Estimate{Qubits: 0}, err: quantum.ErrInvalidConfiguration})

	assert.Empty(t, m.finished)
	assert.Equal(t, 1, m.failures)
	assert.Contains(t, m.View(), "error: ")
}

func TestMonitorQuitsWhenSweepDone(t *testing.T) {
	m := newTestMonitor(nil)
	m, cmd := update(t, m, sweepDoneMsg{})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.True(t, m.done)
	assert.Contains(t, m.View(), "done: 0/3 circuits")
}

func TestMonitorAbortCancelsSweep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := newTestMonitor(cancel)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, m.interrupted)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestMonitorResize(t *testing.T) {
	m := newTestMonitor(nil)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 50, Height: 20})
	assert.Equal(t, 50, m.width)
	assert.Equal(t, 42, m.progress.Width)
}
