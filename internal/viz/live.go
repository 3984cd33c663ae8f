package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/mpcdrive/internal/experiment"
	"github.com/san-kum/mpcdrive/internal/pilot"
	"github.com/san-kum/mpcdrive/internal/reference"
	"github.com/san-kum/mpcdrive/internal/sim"
	"github.com/san-kum/mpcdrive/internal/track"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 600
	trailCapacity   = 400
	followMetres    = 120.0
)

// Frame is one step of a closed-loop run as seen by the live view.
type Frame struct {
	T       float64
	State   sim.State
	Control sim.Control
	// Plan is the latest MPC plan, nil for other controllers.
	Plan     *pilot.Plan
	Failures int
}

type frameMsg Frame

type doneMsg struct{ err error }

// Live is a bubbletea model that runs an experiment in the background and
// draws each step: track, driven trail, predicted path and the waypoints
// handed to the fit.
type Live struct {
	exp    *experiment.Experiment
	track  *track.Track
	canvas *Canvas
	title  string

	frames chan Frame
	done   chan error
	cancel context.CancelFunc

	paused   bool
	waiting  bool
	follow   bool
	finished bool
	err      error

	last       Frame
	trail      []reference.Point
	cteHistory []float64
	vHistory   []float64
}

// NewLive wraps an experiment that has already been set up.
func NewLive(exp *experiment.Experiment) (*Live, error) {
	if exp.Simulator() == nil {
		return nil, experiment.ErrNotSetup
	}
	cfg := exp.Config()
	return &Live{
		exp:        exp,
		track:      exp.Track(),
		canvas:     NewCanvas(width, height),
		title:      fmt.Sprintf("%s on %s", cfg.Controller, exp.Track().Name),
		frames:     make(chan Frame),
		done:       make(chan error, 1),
		trail:      make([]reference.Point, 0, trailCapacity),
		cteHistory: make([]float64, 0, historyCapacity),
		vHistory:   make([]float64, 0, historyCapacity),
	}, nil
}

func (m *Live) start() {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	driver, _ := m.exp.Controller().(*pilot.Driver)
	go func() {
		err := m.exp.Simulator().RunWithCallback(ctx, m.exp.InitialState(), m.exp.SimConfig(),
			func(x sim.State, u sim.Control, t float64) bool {
				f := Frame{T: t, State: x.Clone(), Control: u.Clone()}
				if driver != nil {
					f.Plan = driver.LastPlan()
					f.Failures = driver.Failures()
				}
				select {
				case m.frames <- f:
					return true
				case <-ctx.Done():
					return false
				}
			})
		m.done <- err
	}()
}

func (m *Live) wait() tea.Cmd {
	m.waiting = true
	frames, done := m.frames, m.done
	return func() tea.Msg {
		select {
		case f := <-frames:
			return frameMsg(f)
		case err := <-done:
			return doneMsg{err: err}
		}
	}
}

func (m *Live) Init() tea.Cmd {
	m.start()
	return m.wait()
}

func (m *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Stop()
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
			if !m.paused && !m.waiting && !m.finished {
				return m, m.wait()
			}
		case "f":
			m.follow = !m.follow
		}
	case frameMsg:
		m.waiting = false
		m.observe(Frame(msg))
		if !m.paused {
			return m, m.wait()
		}
	case doneMsg:
		m.waiting = false
		m.finished = true
		m.err = msg.err
	}
	return m, nil
}

// Stop cancels the background run. It is safe to call more than once.
func (m *Live) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Live) Finished() bool { return m.finished }
func (m *Live) Err() error     { return m.err }
func (m *Live) Last() Frame    { return m.last }

func (m *Live) observe(f Frame) {
	m.last = f
	pos := reference.Point{X: f.State[0], Y: f.State[1]}

	m.trail = append(m.trail, pos)
	if len(m.trail) > trailCapacity {
		m.trail = m.trail[1:]
	}
	m.cteHistory = appendCapped(m.cteHistory, m.track.Distance(pos.X, pos.Y))
	m.vHistory = appendCapped(m.vHistory, f.State[3])
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

func (m *Live) draw() {
	m.canvas.Clear()
	if len(m.last.State) < 4 {
		m.canvas.DrawPath(Fit(m.canvas, m.track.Waypoints), m.track.Waypoints, true)
		return
	}

	pose := reference.Pose{X: m.last.State[0], Y: m.last.State[1], Psi: m.last.State[2]}
	car := reference.Point{X: pose.X, Y: pose.Y}

	v := Fit(m.canvas, m.track.Waypoints)
	if m.follow {
		v = Around(m.canvas, car, followMetres)
	}

	m.canvas.DrawPath(v, m.track.Waypoints, true)
	m.canvas.DrawPath(v, m.trail, false)

	if p := m.last.Plan; p != nil && p.Result != nil {
		predicted := reference.ToWorldFrame(reference.Zip(p.Result.X, p.Result.Y), pose)
		m.canvas.DrawPath(v, append([]reference.Point{car}, predicted...), false)
		for _, w := range reference.ToWorldFrame(p.Waypoints, pose) {
			x, y := v.Project(w)
			m.canvas.Mark(x, y, '+')
		}
	}

	x, y := v.Project(car)
	m.canvas.Mark(x, y, '●')
}

func (m *Live) View() string {
	m.draw()

	var s strings.Builder
	s.WriteString(Title.Render(strings.ToUpper(m.title)) + "\n")

	status := "RUNNING"
	switch {
	case m.err != nil:
		status = "ERROR: " + m.err.Error()
	case m.finished:
		status = "FINISHED"
	case m.paused:
		status = "PAUSED"
	}
	s.WriteString(status + "\n\n")

	cfg := m.exp.Config()
	if cfg.Duration > 0 {
		s.WriteString(ProgressBar(m.last.T/cfg.Duration, 30) + "\n\n")
	}

	s.WriteString(Row("Time", fmt.Sprintf("%.1fs", m.last.T)) + "\n")
	if len(m.last.State) >= 4 {
		s.WriteString(Row("Speed", fmt.Sprintf("%.2f", m.last.State[3])) + "\n")
	}
	if len(m.cteHistory) > 0 {
		s.WriteString(Row("Off track", fmt.Sprintf("%.2fm", m.cteHistory[len(m.cteHistory)-1])) + "\n")
	}
	if len(m.last.Control) >= 2 {
		s.WriteString(Row("Steer", fmt.Sprintf("%+.3f", m.last.Control[0])) + "\n")
		s.WriteString(Row("Throttle", fmt.Sprintf("%+.3f", m.last.Control[1])) + "\n")
	}
	if p := m.last.Plan; p != nil && p.Result != nil {
		s.WriteString("\nSOLVER\n")
		s.WriteString(MetricLabel.Render("Status") + StatusBadge(p.Result.Status) + "\n")
		s.WriteString(Row("Cost", fmt.Sprintf("%.1f", p.Result.Cost)) + "\n")
		s.WriteString(Row("Iterations", fmt.Sprintf("%d", p.Result.Iterations)) + "\n")
		s.WriteString(Row("Solve", p.Result.Elapsed.Round(100*time.Microsecond).String()) + "\n")
		s.WriteString(Row("Failures", fmt.Sprintf("%d", m.last.Failures)) + "\n")
	}

	if len(m.cteHistory) > 1 {
		s.WriteString("\n" + Subtle.Render("off track") + "\n" + Sparkline(m.cteHistory, 30) + "\n")
	}
	if chart := Chart("speed", 30, 4, m.vHistory); len(m.vHistory) > 1 && chart != "" {
		s.WriteString("\n" + chart + "\n")
	}

	s.WriteString(KeyHint.Render("\nSP:Pause F:Follow Q:Quit"))

	return lipgloss.JoinHorizontal(lipgloss.Top,
		Panel.Render(m.canvas.String()),
		Panel.Width(40).Render(s.String()))
}
