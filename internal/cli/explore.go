package cli

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/kinview/pkg/engine"
	"github.com/matzehuels/kinview/pkg/family"
	"github.com/matzehuels/kinview/pkg/geom"
	"github.com/matzehuels/kinview/pkg/render"
)

// Terminal cells are treated as cellW x cellH screen pixels.
const (
	cellW = 8
	cellH = 16

	frameInterval = time.Second / 60
	zoomStep      = 1.25
)

// exploreCommand creates the interactive terminal viewer.
func (c *CLI) exploreCommand() *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "explore [records.json]",
		Short: "Browse a family tree in the terminal",
		Long: `Browse a family tree in the terminal.

Keys:
  ←↑↓→ / hjkl   pan
  + / -         zoom around the centre
  tab           fly to the next hero
  0             fly to the root
  d             toggle forced full detail
  q             quit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplore(cmd.Context(), firstArg(args), noCache)
		},
	}
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	return cmd
}

func (c *CLI) runExplore(ctx context.Context, input string, noCache bool) error {
	records, err := c.loadRecords(ctx, input)
	if err != nil {
		return err
	}
	st, err := c.newStack(ctx, stackOptions{noCache: noCache})
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.engine.Rebuild(ctx, records)
	if err != nil {
		return err
	}

	m := newExploreModel(st.engine, snap.Scene.Index.Heroes)
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

// =============================================================================
// Model
// =============================================================================

type tickMsg struct{}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

type exploreModel struct {
	eng    *engine.Engine
	heroes []family.ID
	next   int

	cols, rows int
	animating  bool
	forced     bool
	status     string
}

func newExploreModel(eng *engine.Engine, heroes []family.ID) exploreModel {
	return exploreModel{eng: eng, heroes: heroes}
}

func (m exploreModel) Init() tea.Cmd { return nil }

func (m exploreModel) size() geom.Size {
	return geom.Size{W: float64(m.cols * cellW), H: float64(max(m.rows-2, 1) * cellH)}
}

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		first := m.cols == 0
		m.cols, m.rows = msg.Width, msg.Height
		m.eng.SetViewportSize(m.size())
		if first && len(m.heroes) > 0 {
			return m.flyTo(m.heroes[0])
		}
	case tickMsg:
		m.animating = m.eng.Step(frameInterval)
		if m.animating {
			return m, tick()
		}
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m exploreModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctrl := m.eng.Controller()
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "left", "h":
		ctrl.PanBy(4*cellW, 0)
	case "right", "l":
		ctrl.PanBy(-4*cellW, 0)
	case "up", "k":
		ctrl.PanBy(0, 2*cellH)
	case "down", "j":
		ctrl.PanBy(0, -2*cellH)
	case "+", "=":
		ctrl.ZoomBy(zoomStep, m.centre())
	case "-", "_":
		ctrl.ZoomBy(1/zoomStep, m.centre())
	case "tab":
		if len(m.heroes) == 0 {
			return m, nil
		}
		m.next = (m.next + 1) % len(m.heroes)
		return m.flyTo(m.heroes[m.next])
	case "0":
		if len(m.heroes) > 0 {
			m.next = 0
			return m.flyTo(m.heroes[0])
		}
	case "d":
		m.forced = !m.forced
		m.eng.Renderer().Tier().SetForceFullDetail(m.forced)
	}
	return m, nil
}

func (m exploreModel) centre() geom.Point {
	s := m.size()
	return geom.Point{X: s.W / 2, Y: s.H / 2}
}

func (m exploreModel) flyTo(id family.ID) (tea.Model, tea.Cmd) {
	if err := m.eng.NavigateToNode(id); err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.status = ""
	if snap := m.eng.Snapshot(); snap != nil {
		if n, ok := snap.Scene.Index.Node(id); ok {
			m.status = "→ " + n.Name
		}
	}
	if m.animating {
		return m, nil
	}
	m.animating = true
	return m, tick()
}

var (
	exploreBar  = lipgloss.NewStyle().Foreground(colorGray)
	exploreHero = lipgloss.NewStyle().Foreground(colorYellow)
)

func (m exploreModel) View() string {
	if m.cols == 0 {
		return "loading..."
	}
	f, err := m.eng.Frame(m.size())
	if err != nil {
		return err.Error()
	}

	var b strings.Builder
	t := f.Transform
	b.WriteString(StyleTitle.Render(appName))
	b.WriteString(exploreBar.Render(fmt.Sprintf("  %s · scale %.2f · %d visible", f.Tier, t.Scale, f.Stats.VisibleNodes)))
	if m.forced {
		b.WriteString(exploreHero.Render("  [full detail]"))
	}
	b.WriteString("\n")
	for _, line := range rasterize(f, m.cols, max(m.rows-2, 1)) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	status := m.status
	if status == "" {
		status = "←↑↓→ pan  +/- zoom  tab next hero  0 root  d detail  q quit"
	}
	b.WriteString(StyleDim.Render(status))
	return b.String()
}

// =============================================================================
// Rasteriser
// =============================================================================

// canvas is a character grid in screen cells.
type canvas struct {
	cols, rows int
	cells      [][]rune
}

func newCanvas(cols, rows int) *canvas {
	c := &canvas{cols: cols, rows: rows, cells: make([][]rune, rows)}
	for i := range c.cells {
		c.cells[i] = []rune(strings.Repeat(" ", cols))
	}
	return c
}

func (c *canvas) set(col, row int, r rune) {
	if col >= 0 && col < c.cols && row >= 0 && row < c.rows {
		c.cells[row][col] = r
	}
}

func (c *canvas) text(col, row int, s string) {
	for i, r := range []rune(s) {
		c.set(col+i, row, r)
	}
}

func (c *canvas) box(x0, y0, x1, y1 int, double bool) {
	h, v, tl, tr, bl, br := '─', '│', '┌', '┐', '└', '┘'
	if double {
		h, v, tl, tr, bl, br = '═', '║', '╔', '╗', '╚', '╝'
	}
	for x := x0 + 1; x < x1; x++ {
		c.set(x, y0, h)
		c.set(x, y1, h)
	}
	for y := y0 + 1; y < y1; y++ {
		c.set(x0, y, v)
		c.set(x1, y, v)
	}
	c.set(x0, y0, tl)
	c.set(x1, y0, tr)
	c.set(x0, y1, bl)
	c.set(x1, y1, br)
}

// line plots a segment between two cells.
func (c *canvas) line(x0, y0, x1, y1 int) {
	switch {
	case y0 == y1:
		for x := min(x0, x1); x <= max(x0, x1); x++ {
			c.set(x, y0, '─')
		}
	case x0 == x1:
		for y := min(y0, y1); y <= max(y0, y1); y++ {
			c.set(x0, y, '│')
		}
	default:
		n := max(abs(x1-x0), abs(y1-y0))
		for i := 0; i <= n; i++ {
			x := x0 + (x1-x0)*i/n
			y := y0 + (y1-y0)*i/n
			c.set(x, y, '·')
		}
	}
}

func (c *canvas) lines() []string {
	out := make([]string, c.rows)
	for i, row := range c.cells {
		out[i] = string(row)
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// rasterize draws f onto a cols x rows character grid. Edges go down first so
// cards overwrite them, matching the SVG draw order.
func rasterize(f render.Frame, cols, rows int) []string {
	cv := newCanvas(cols, rows)
	t := f.Transform
	cell := func(x, y float64) (int, int) {
		p := t.WorldToScreen(geom.Point{X: x, Y: y})
		return int(math.Floor(p.X / cellW)), int(math.Floor(p.Y / cellH))
	}

	for _, p := range f.Primitives {
		switch p.Kind {
		case render.KindPath:
			for _, sp := range p.Subpaths {
				for i := 1; i < len(sp); i++ {
					x0, y0 := cell(sp[i-1].X, sp[i-1].Y)
					x1, y1 := cell(sp[i].X, sp[i].Y)
					cv.line(x0, y0, x1, y1)
				}
			}
		case render.KindRect, render.KindRoundedRect:
			if p.Image != nil {
				continue
			}
			x0, y0 := cell(p.X, p.Y)
			x1, y1 := cell(p.X+p.W, p.Y+p.H)
			if x1 <= x0 || y1 <= y0 {
				cv.set(x0, y0, '■')
				continue
			}
			// Blank the interior so edges behind the card disappear.
			for y := y0 + 1; y < y1; y++ {
				for x := x0 + 1; x < x1; x++ {
					cv.set(x, y, ' ')
				}
			}
			cv.box(x0, y0, x1, y1, p.Fill == "" && p.StrokeWidth > 1)
		case render.KindCircle:
			x, y := cell(p.X, p.Y)
			cv.set(x, y, '●')
		case render.KindText:
			x, y := cell(p.X, p.Y)
			label := []rune(p.Text)
			cv.text(x-len(label)/2, y, string(label))
		}
	}
	return cv.lines()
}
