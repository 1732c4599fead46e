package cli

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"qtermpi/internal/estimator"
)

// estimateMsg reports one finished qubit count.
type estimateMsg struct {
	est estimator.Estimate
	err error
}

// sweepDoneMsg ends the monitor.
type sweepDoneMsg struct {
	err error
}

// monitorModel shows sweep progress while the engine runs.
type monitorModel struct {
	st       styles
	spinner  spinner.Model
	progress progress.Model

	runID string
	total int
	shots int

	finished    []estimator.Estimate
	failures    int
	done        bool
	err         error
	interrupted bool
	cancel      context.CancelFunc
	width       int
}

func newMonitorModel(out io.Writer, runID string, total, shots int, cancel context.CancelFunc) monitorModel {
	st := newStyles(out)
	return monitorModel{
		st:       st,
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(st.spinner)),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		runID:    runID,
		total:    total,
		shots:    shots,
		cancel:   cancel,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(min(msg.Width-8, 60), 10)

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.interrupted = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case estimateMsg:
		if msg.err != nil && !errors.Is(msg.err, estimator.ErrDegenerateEstimate) {
			m.failures++
			m.err = msg.err
			return m, nil
		}
		m.finished = append(m.finished, msg.est)
		slices.SortFunc(m.finished, func(a, b estimator.Estimate) int {
			return cmp.Compare(a.Qubits, b.Qubits)
		})

	case sweepDoneMsg:
		m.done = true
		if msg.err != nil {
			m.err = msg.err
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m monitorModel) percent() float64 {
	if m.total == 0 {
		return 1
	}
	return float64(len(m.finished)+m.failures) / float64(m.total)
}

func (m monitorModel) View() string {
	var sb strings.Builder

	sb.WriteString(m.st.title.Render("QPE sweep"))
	sb.WriteString(m.st.dim.Render(fmt.Sprintf("  run %s", shortID(m.runID))))
	sb.WriteString("\n\n")

	status := fmt.Sprintf("%s estimating %d/%d circuits, %s shots each",
		m.spinner.View(), len(m.finished)+m.failures, m.total, formatCount(m.shots))
	if m.done {
		status = fmt.Sprintf("done: %d/%d circuits", len(m.finished), m.total)
	}
	sb.WriteString(status)
	sb.WriteString("\n")
	sb.WriteString(m.progress.ViewAs(m.percent()))
	sb.WriteString("\n\n")

	for _, est := range m.finished {
		sb.WriteString(estimateLine(m.st, est))
		if !est.Degenerate {
			sb.WriteString(m.st.dim.Render("  |"))
			sb.WriteString(m.st.bitstring.Render(est.Bitstring))
			sb.WriteString(m.st.dim.Render(fmt.Sprintf("> p=%.3f", est.Probability)))
			sb.WriteString(m.st.dim.Render(fmt.Sprintf("  err=%.2e", est.AbsError())))
		}
		sb.WriteString("\n")
	}
	if m.err != nil {
		sb.WriteString(m.st.errText.Render("error: " + m.err.Error()))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.st.dim.Render("q/esc abort"))

	panel := m.st.panel
	if m.width > 0 {
		panel = panel.Width(m.width - 2)
	}
	return lipgloss.JoinVertical(lipgloss.Left, panel.Render(sb.String()), "")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// runMonitor runs sweep under a bubbletea program drawn on out. sweep gets
// an observer that forwards each estimate to the program.
func runMonitor(
	ctx context.Context,
	out io.Writer,
	runID string,
	total, shots int,
	sweep func(ctx context.Context, observer estimator.Observer) ([]estimator.Estimate, error),
	programOpts ...tea.ProgramOption,
) ([]estimator.Estimate, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := newMonitorModel(out, runID, total, shots, cancel)
	opts := append([]tea.ProgramOption{tea.WithOutput(out), tea.WithContext(ctx)}, programOpts...)
	p := tea.NewProgram(model, opts...)

	var (
		results  []estimator.Estimate
		sweepErr error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		results, sweepErr = sweep(ctx, func(est estimator.Estimate, err error) {
			p.Send(estimateMsg{est: est, err: err})
		})
		p.Send(sweepDoneMsg{err: sweepErr})
	}()

	final, runErr := p.Run()
	cancel()
	<-finished

	if m, ok := final.(monitorModel); ok && m.interrupted {
		return results, context.Canceled
	}
	if sweepErr != nil {
		return results, sweepErr
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return results, fmt.Errorf("monitor: %w", runErr)
	}
	return results, nil
}
