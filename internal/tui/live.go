package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/bondkit/internal/md"
	"github.com/san-kum/bondkit/internal/ndarray"
	"github.com/san-kum/bondkit/internal/system"
)

const (
	canvasWidth     = 48
	canvasHeight    = 18
	historyCapacity = 400
	frameInterval   = time.Second / 30
	maxStepsPerTick = 512
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// LiveModel steps an MD run on every tick and draws the molecule and its
// energy trace.
type LiveModel[T ndarray.Float] struct {
	sys          *system.System[T]
	dt           float64
	v0           *ndarray.Array[T]
	integ        *md.Verlet[T]
	canvas       *Canvas
	view         Viewport
	running      bool
	stepsPerTick int
	e0           float64
	drift        float64
	history      []float64
	err          error
}

func NewLiveModel[T ndarray.Float](sys *system.System[T], dt float64, v0 *ndarray.Array[T], stepsPerTick int) (*LiveModel[T], error) {
	m := &LiveModel[T]{
		sys:          sys,
		dt:           dt,
		v0:           v0,
		canvas:       NewCanvas(canvasWidth, canvasHeight),
		stepsPerTick: max(1, stepsPerTick),
	}
	if err := m.reset(); err != nil {
		return nil, err
	}
	m.view = FitViewport(m.canvas, rows(sys.Coords), 0.5)
	return m, nil
}

func (m *LiveModel[T]) reset() error {
	integ, err := md.NewVerlet(m.sys, m.dt, m.v0)
	if err != nil {
		return err
	}
	m.integ = integ
	m.running = true
	m.err = nil
	m.e0 = integ.Sample().Total()
	m.drift = 0
	m.history = append(m.history[:0], m.e0)
	return nil
}

func (m *LiveModel[T]) Init() tea.Cmd {
	return tick()
}

func (m *LiveModel[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ", "space":
			m.running = !m.running
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
		case "+", "=":
			m.stepsPerTick = min(maxStepsPerTick, m.stepsPerTick*2)
		case "-", "_":
			m.stepsPerTick = max(1, m.stepsPerTick/2)
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.advance()
		}
		return m, tick()
	}
	return m, nil
}

func (m *LiveModel[T]) advance() {
	for i := 0; i < m.stepsPerTick; i++ {
		sample, err := m.integ.Step()
		if err != nil {
			m.err = err
			return
		}
		if !sample.IsFinite() {
			m.err = fmt.Errorf("%w at step %d", md.ErrUnstable, sample.Step)
			return
		}
	}
	total := m.integ.Sample().Total()
	if m.e0 != 0 {
		m.drift = math.Max(m.drift, math.Abs(total-m.e0)/math.Abs(m.e0))
	}
	m.history = append(m.history, total)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
}

// Err is the error that stopped the run, if any.
func (m *LiveModel[T]) Err() error { return m.err }

func (m *LiveModel[T]) Steps() int { return m.integ.StepCount() }

func (m *LiveModel[T]) Running() bool { return m.running }

func (m *LiveModel[T]) StepsPerTick() int { return m.stepsPerTick }

func (m *LiveModel[T]) View() string {
	m.canvas.Clear()
	m.canvas.DrawMolecule(m.view, rows(m.integ.Positions()), m.sys.Bonds)
	canvasView := Panel.Render(m.canvas.String())

	status := StatusOK.Render("RUNNING")
	switch {
	case m.err != nil:
		status = StatusFail.Render("STOPPED: " + m.err.Error())
	case !m.running:
		status = StatusWarn.Render("PAUSED")
	}

	s := m.integ.Sample()
	var b strings.Builder
	b.WriteString(Title.Render(strings.ToUpper(m.sys.Name)) + "\n")
	b.WriteString(status + "\n\n")
	b.WriteString(KV("step", fmt.Sprintf("%d (x%d/frame)", s.Step, m.stepsPerTick)) + "\n")
	b.WriteString(KV("time", fmt.Sprintf("%.4f", s.Time)) + "\n")
	b.WriteString(KV("potential", fmt.Sprintf("%.6g", s.Potential)) + "\n")
	b.WriteString(KV("kinetic", fmt.Sprintf("%.6g", s.Kinetic)) + "\n")
	b.WriteString(KV("total", fmt.Sprintf("%.6g", s.Total())) + "\n")
	b.WriteString(KV("max drift", fmt.Sprintf("%.2e", m.drift)) + "\n")
	b.WriteString(KV("backend", m.sys.Backend.Name()) + "\n")
	if chart := PlotSeries(m.history, 36, 5, "total energy"); chart != "" {
		b.WriteString("\n" + graphStyle.Render(chart) + "\n")
	}
	b.WriteString("\n" + KeyHint.Render("space:pause r:reset +/-:speed q:quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, Panel.Render(b.String()))
}

// rows splits an [N][D] array into per-atom float64 rows.
func rows[T ndarray.Float](a *ndarray.Array[T]) [][]float64 {
	n, d := a.Dim(0), a.Dim(1)
	out := make([][]float64, n)
	data := a.Data()
	for i := range out {
		out[i] = make([]float64, d)
		for j := 0; j < d; j++ {
			out[i][j] = float64(data[i*d+j])
		}
	}
	return out
}
