// archview-tui renders the dependency graph as a live terminal canvas. The
// force layout runs in-process; nodes are colored by health bucket and the
// side panel tracks compliance and drift for the selected repository.
package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/zenpipeline/archview/internal/config"
	"github.com/zenpipeline/archview/internal/session"
	"github.com/zenpipeline/archview/pkg/api"
	"github.com/zenpipeline/archview/pkg/client"
	"github.com/zenpipeline/archview/pkg/layout"
	"github.com/zenpipeline/archview/pkg/view"
)

const (
	frameRate     = 50 * time.Millisecond
	canvasWidth   = 72
	canvasHeight  = 24
	fetchTimeout  = 15 * time.Second
	analyzeWindow = 2 * time.Minute
)

var (
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true)

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	healthyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))  // Green
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // Amber
	failingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // Red
	edgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

type frameTickMsg time.Time

type selectedMsg struct{ err error }

type analyzedMsg struct{ err error }

type model struct {
	spinner spinner.Model
	ctrl    *view.Controller
	sess    *session.Store
	repoID  uuid.UUID

	frame   layout.Frame
	dragID  string
	loading bool
	err     error
}

func initialModel(ctrl *view.Controller, sess *session.Store, repoID uuid.UUID) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return model{
		spinner: s,
		ctrl:    ctrl,
		sess:    sess,
		repoID:  repoID,
		loading: true,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.selectRepo(),
		frameTick(),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.ctrl.Close()
			return m, tea.Quit
		case "a":
			if !m.ctrl.Analyzing() {
				m.loading = true
				cmds = append(cmds, m.analyze())
			}
		case "r":
			m.loading = true
			cmds = append(cmds, m.selectRepo())
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case frameTickMsg:
		m.ctrl.Tick()
		m.frame = m.ctrl.Frame()
		cmds = append(cmds, frameTick())

	case selectedMsg:
		m.loading = false
		m.err = msg.err
		m.frame = m.ctrl.Frame()

	case analyzedMsg:
		m.loading = false
		m.err = msg.err
		m.frame = m.ctrl.Frame()
	}

	return m, tea.Batch(cmds...)
}

// Canvas content offset within the composed view: header (text + border)
// above, pane border plus padding to the left.
const (
	canvasOffsetX = 2
	canvasOffsetY = 3
)

// handleMouse maps terminal cells back to layout coordinates and drives
// the drag lifecycle: press pins, motion moves, release unpins.
func (m *model) handleMouse(msg tea.MouseMsg) {
	if m.frame.Width <= 0 || m.frame.Height <= 0 {
		return
	}
	x := float64(msg.X-canvasOffsetX) / float64(canvasWidth-1) * m.frame.Width
	y := float64(msg.Y-canvasOffsetY) / float64(canvasHeight-1) * m.frame.Height

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		// One cell of slack in layout units.
		radius := 2 * m.frame.Width / float64(canvasWidth)
		if n, ok := m.ctrl.HitTest(x, y, radius); ok {
			m.dragID = n.ID
			m.ctrl.PinNode(n.ID, x, y)
		}
	case tea.MouseActionMotion:
		if m.dragID != "" {
			m.ctrl.MoveNode(m.dragID, x, y)
		}
	case tea.MouseActionRelease:
		if m.dragID != "" {
			m.ctrl.ReleaseNode(m.dragID)
			m.dragID = ""
		}
	}
}

func (m model) View() string {
	auth := "anonymous"
	if m.sess.Get().LoggedIn() {
		auth = "authenticated"
	}
	header := headerStyle.Render(fmt.Sprintf("%s Dependency Graph %s (%s)", m.spinner.View(), m.repoID, auth))

	canvas := paneStyle.Render(renderCanvas(m.frame))

	side := m.sidePanel()

	var status string
	switch {
	case m.err != nil:
		status = errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	case m.loading:
		status = subtleStyle.Render("Working...")
	case m.ctrl.Empty():
		status = subtleStyle.Render(view.EmptyMessage)
	default:
		status = okStyle.Render(fmt.Sprintf("%d nodes • %d edges • layout %s",
			len(m.frame.Nodes), len(m.frame.Edges), m.frame.State))
	}
	footer := subtleStyle.Render("\n" + status + "\nDrag nodes with the mouse. Press a to analyze, r to refresh, q to quit")

	body := lipgloss.JoinHorizontal(lipgloss.Top, canvas, side)
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m model) sidePanel() string {
	var sb strings.Builder
	sb.WriteString(lipgloss.NewStyle().Bold(true).Underline(true).Render("Modules") + "\n\n")

	nodes := append([]layout.NodePosition(nil), m.frame.Nodes...)
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Health < nodes[j].Health })

	if len(nodes) == 0 {
		sb.WriteString(subtleStyle.Render("No modules."))
	}
	for _, n := range nodes {
		sb.WriteString(fmt.Sprintf("%s %s (%.0f)\n", healthGlyph(n.Health), n.Name, n.Health))
	}

	if snap, ok := m.ctrl.Snapshot(); ok {
		sb.WriteString(fmt.Sprintf("\nCompliance: %.1f (%s)\n", snap.Compliance.OverallScore, snap.Compliance.Trend))
		sb.WriteString(fmt.Sprintf("Drift:      %.1f\n", snap.Drift.DriftScore))
		if len(snap.Graph.CircularDependencies) > 0 {
			sb.WriteString(errorStyle.Render(fmt.Sprintf("Cycles:     %d\n", len(snap.Graph.CircularDependencies))))
		}
	}

	return paneStyle.Render(sb.String())
}

func healthGlyph(health float64) string {
	switch {
	case health >= 90:
		return healthyStyle.Render("●")
	case health >= 80:
		return warningStyle.Render("●")
	default:
		return failingStyle.Render("●")
	}
}

// renderCanvas projects layout coordinates onto a rune grid. Edges first,
// then nodes, then labels so names stay readable.
func renderCanvas(frame layout.Frame) string {
	grid := make([][]string, canvasHeight)
	for y := range grid {
		grid[y] = make([]string, canvasWidth)
		for x := range grid[y] {
			grid[y][x] = " "
		}
	}

	if frame.Width <= 0 || frame.Height <= 0 || len(frame.Nodes) == 0 {
		return strings.Repeat(strings.Repeat(" ", canvasWidth)+"\n", canvasHeight-1)
	}

	project := func(fx, fy float64) (int, int) {
		x := int(fx / frame.Width * float64(canvasWidth-1))
		y := int(fy / frame.Height * float64(canvasHeight-1))
		return clamp(x, 0, canvasWidth-1), clamp(y, 0, canvasHeight-1)
	}

	for _, e := range frame.Edges {
		x1, y1 := project(e.X1, e.Y1)
		x2, y2 := project(e.X2, e.Y2)
		plotLine(grid, x1, y1, x2, y2)
	}

	for _, n := range frame.Nodes {
		x, y := project(n.X, n.Y)
		grid[y][x] = healthGlyph(n.Health)

		label := n.Name
		if len(label) > 12 {
			label = label[:12]
		}
		for i, r := range label {
			lx := x + 2 + i
			if lx >= canvasWidth || (y < canvasHeight && grid[y][lx] != " " && grid[y][lx] != edgeStyle.Render("·")) {
				break
			}
			grid[y][lx] = labelStyle.Render(string(r))
		}
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(strings.Join(row, ""))
		sb.WriteString("\n")
	}
	return sb.String()
}

// plotLine marks a coarse Bresenham walk between two cells.
func plotLine(grid [][]string, x1, y1, x2, y2 int) {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx + dy

	x, y := x1, y1
	for {
		if grid[y][x] == " " {
			grid[y][x] = edgeStyle.Render("·")
		}
		if x == x2 && y == y2 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Commands

func (m model) selectRepo() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		return selectedMsg{err: m.ctrl.Select(ctx, m.repoID)}
	}
}

func (m model) analyze() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), analyzeWindow)
		defer cancel()
		return analyzedMsg{err: m.ctrl.Analyze(ctx)}
	}
}

func frameTick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg {
		return frameTickMsg(t)
	})
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: archview-tui <repository-id>")
		os.Exit(1)
	}
	repoID, err := uuid.Parse(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid repository id: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	sess := session.NewStore()
	sess.SetTokens(api.TokenPair{AccessToken: cfg.Token})
	sess.SelectRepo(repoID)

	apiClient := client.New(cfg.Endpoint, sess)
	ctrl := view.New(apiClient, layout.Options{Width: cfg.Width, Height: cfg.Height}, nil)

	p := tea.NewProgram(initialModel(ctrl, sess, repoID), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
