// Package tui renders a live terminal view of a running world.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/geom"
	"github.com/san-kum/rigidsim/internal/scene"
	"github.com/san-kum/rigidsim/internal/world"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

const (
	canvasWidth  = 70
	canvasHeight = 20

	// world window shown in the side view
	viewXMin = -9.0
	viewXMax = 9.0
	viewYMin = -0.5
	viewYMax = 12.0

	historyLen = 120
)

type viewer struct {
	cfg       *config.Config
	sceneName string
	world     *world.World

	paused  bool
	speed   int
	probe   bool
	probeX  float64
	history []float64
	err     error

	width  int
	height int
}

// NewViewer builds the bubbletea model for a scene.
func NewViewer(cfg *config.Config, sceneName string) (tea.Model, error) {
	w := world.New(cfg)
	if err := scene.Build(sceneName, w); err != nil {
		return nil, err
	}
	return viewer{
		cfg:       cfg,
		sceneName: sceneName,
		world:     w,
		speed:     1,
		history:   make([]float64, 0, historyLen),
		width:     80,
		height:    30,
	}, nil
}

// Run starts the viewer and blocks until quit.
func Run(cfg *config.Config, sceneName string) error {
	m, err := NewViewer(cfg, sceneName)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func (m viewer) Init() tea.Cmd { return tick() }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(16*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "r":
			w := world.New(m.cfg)
			if err := scene.Build(m.sceneName, w); err != nil {
				m.err = err
			} else {
				m.world = w
				m.history = m.history[:0]
				m.err = nil
			}
		case "+", "=":
			if m.speed < 8 {
				m.speed++
			}
		case "-":
			if m.speed > 1 {
				m.speed--
			}
		case "p":
			m.probe = !m.probe
		case "left":
			if m.probe && m.probeX > viewXMin {
				m.probeX -= 0.5
			}
		case "right":
			if m.probe && m.probeX < viewXMax {
				m.probeX += 0.5
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tickMsg:
		if !m.paused && m.err == nil {
			for i := 0; i < m.speed; i++ {
				info, err := m.world.Step(m.cfg.Dt)
				if err != nil {
					m.err = err
					break
				}
				m.history = append(m.history, info.KineticEnergy)
				if len(m.history) > historyLen {
					m.history = m.history[1:]
				}
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m viewer) View() string {
	var b strings.Builder

	b.WriteString(cyan.Render("rigidsim") + "  " +
		white.Render(m.sceneName) + "  " +
		dim.Render(fmt.Sprintf("t=%.2fs  speed=%dx", m.world.Time(), m.speed)))
	if m.paused {
		b.WriteString("  " + yellow.Render("paused"))
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(yellow.Render("error: "+m.err.Error()) + "\n")
		return b.String()
	}

	b.WriteString(dim.Render(strings.Repeat("-", canvasWidth)) + "\n")
	b.WriteString(m.drawCanvas())
	b.WriteString(dim.Render(strings.Repeat("-", canvasWidth)) + "\n")

	snaps := m.world.Snapshot()
	awake := 0
	for _, s := range snaps {
		if s.Motion == world.Dynamic && !s.Sleeping {
			awake++
		}
	}
	b.WriteString(fmt.Sprintf("%s %d   %s %d   %s %d\n",
		dim.Render("bodies"), len(snaps),
		green.Render("awake"), awake,
		dim.Render("events"), len(m.world.Events())))

	if m.probe {
		origin := mgl64.Vec3{m.probeX, viewYMax, 0}
		if hit, ok := m.world.RayCast(origin, mgl64.Vec3{0, -1, 0}, viewYMax-viewYMin); ok {
			b.WriteString(fmt.Sprintf("%s x=%.1f  hit y=%.2f  d=%.2f\n",
				yellow.Render("probe"), m.probeX, hit.Point.Y(), hit.Distance))
		} else {
			b.WriteString(fmt.Sprintf("%s x=%.1f  no hit\n", yellow.Render("probe"), m.probeX))
		}
	}

	if len(m.history) > 2 {
		b.WriteString(dim.Render("kinetic energy") + "\n")
		b.WriteString(asciigraph.Plot(m.history,
			asciigraph.Height(5),
			asciigraph.Width(canvasWidth-10)) + "\n")
	}

	b.WriteString(dim.Render("space pause  r reset  +/- speed  p probe  left/right move probe  q quit"))
	return b.String()
}

// drawCanvas projects the x/y plane onto an ASCII grid, one row per cell.
func (m viewer) drawCanvas() string {
	canvas := make([][]rune, canvasHeight)
	for i := range canvas {
		canvas[i] = make([]rune, canvasWidth)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	set := func(cx, cy int, c rune) {
		if cx >= 0 && cx < canvasWidth && cy >= 0 && cy < canvasHeight {
			canvas[cy][cx] = c
		}
	}
	project := func(x, y float64) (int, int) {
		cx := int((x - viewXMin) / (viewXMax - viewXMin) * float64(canvasWidth))
		cy := int((viewYMax - y) / (viewYMax - viewYMin) * float64(canvasHeight))
		return cx, cy
	}

	for _, s := range m.world.Snapshot() {
		if s.Kind == geom.KindPlane {
			_, gy := project(0, s.Position.Y())
			for x := 0; x < canvasWidth; x++ {
				set(x, gy, '=')
			}
			continue
		}
		cx, cy := project(s.Position.X(), s.Position.Y())
		set(cx, cy, bodyRune(s))
	}

	if m.probe {
		px, _ := project(m.probeX, 0)
		set(px, 0, 'v')
		origin := mgl64.Vec3{m.probeX, viewYMax, 0}
		if hit, ok := m.world.RayCast(origin, mgl64.Vec3{0, -1, 0}, viewYMax-viewYMin); ok {
			_, hy := project(m.probeX, hit.Point.Y())
			set(px, hy, '*')
		}
	}

	var b strings.Builder
	for _, row := range canvas {
		b.WriteString(string(row))
		b.WriteString("\n")
	}
	return b.String()
}

func bodyRune(s world.BodySnapshot) rune {
	if s.Sleeping {
		return 'z'
	}
	switch s.Kind {
	case geom.KindSphere:
		return 'O'
	case geom.KindBox:
		return '#'
	case geom.KindCapsule:
		return '|'
	case geom.KindHull:
		return '@'
	default:
		return '?'
	}
}
