package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/wricardo/parkingjam/game/engine"
	"github.com/wricardo/parkingjam/game/solver"
)

// progressWidth is the number of cells in an animation progress bar.
const progressWidth = 10

type dispatchedMsg struct {
	result *engine.DispatchResult
}

type resetMsg struct {
	state *engine.GameState
	err   error
}

type hintMsg struct {
	pos engine.Position
	res *solver.Result
	err error
}

// Model is the terminal game screen for a single engine.
type Model struct {
	ctx     context.Context
	eng     engine.Engine
	solver  solver.Options
	state   *engine.GameState
	cursor  engine.Position
	hint    *engine.Position
	status  string
	anims   map[string]AnimationMsg
	spinner spinner.Model
	help    help.Model
	keys    keyMap
	width   int
}

// New builds a model around eng. Long operations run under ctx.
func New(ctx context.Context, eng engine.Engine, opts solver.Options) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	state := eng.GetState()
	return Model{
		ctx:     ctx,
		eng:     eng,
		solver:  opts,
		state:   state,
		status:  state.Message,
		anims:   make(map[string]AnimationMsg),
		spinner: sp,
		help:    help.New(),
		keys:    defaultKeys(),
	}
}

func (m Model) Init() tea.Cmd {
	// The spinner tick doubles as the frame clock for progress bars.
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case AnimationMsg:
		if msg.Done {
			delete(m.anims, msg.Key)
		} else {
			m.anims[msg.Key] = msg
		}
		m.state = m.eng.GetState()
		return m, nil

	case dispatchedMsg:
		m.state = msg.result.GameState
		if msg.result.Accepted {
			m.hint = nil
			m.status = m.state.Message
		} else {
			m.status = fmt.Sprintf("Can't dispatch %s: %s", m.cursor, describeReason(msg.result.Reason))
		}
		return m, nil

	case resetMsg:
		if errors.Is(msg.err, engine.ErrBusy) {
			m.status = "Wait for the cars to finish moving"
			return m, nil
		}
		if msg.err != nil {
			m.status = fmt.Sprintf("Reset failed: %v", msg.err)
			return m, nil
		}
		m.state = msg.state
		m.hint = nil
		m.anims = make(map[string]AnimationMsg)
		m.status = m.state.Message
		return m, nil

	case hintMsg:
		switch {
		case msg.err != nil:
			m.status = fmt.Sprintf("Hint failed: %v", msg.err)
		case msg.res == nil || !msg.res.Solvable:
			m.hint = nil
			m.status = fmt.Sprintf("No solution found (%d boards searched)", nodes(msg.res))
		case len(msg.res.Moves) == 0:
			m.hint = nil
			m.status = "The lot is already clear"
		default:
			pos := msg.pos
			m.hint = &pos
			m.cursor = pos
			m.status = fmt.Sprintf("Try %s (%d dispatches to go)", pos, len(msg.res.Moves))
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	size := len(m.state.Grid)
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.cursor.Row = clamp(m.cursor.Row-1, size)
	case key.Matches(msg, m.keys.Down):
		m.cursor.Row = clamp(m.cursor.Row+1, size)
	case key.Matches(msg, m.keys.Left):
		m.cursor.Col = clamp(m.cursor.Col-1, size)
	case key.Matches(msg, m.keys.Right):
		m.cursor.Col = clamp(m.cursor.Col+1, size)
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Dispatch):
		return m, m.dispatch(m.cursor)
	case key.Matches(msg, m.keys.Reset):
		return m, m.reset()
	case key.Matches(msg, m.keys.Hint):
		if m.eng.IsBusy() {
			m.status = "Wait for the cars to finish moving"
			return m, nil
		}
		m.status = "Searching..."
		return m, m.findHint()
	}
	return m, nil
}

func (m Model) dispatch(pos engine.Position) tea.Cmd {
	eng, ctx := m.eng, m.ctx
	return func() tea.Msg {
		return dispatchedMsg{result: eng.Dispatch(ctx, pos)}
	}
}

func (m Model) reset() tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		state, err := eng.Reset()
		return resetMsg{state: state, err: err}
	}
}

func (m Model) findHint() tea.Cmd {
	eng, ctx, opts := m.eng, m.ctx, m.solver
	return func() tea.Msg {
		pos, res, err := solver.Hint(ctx, eng.CloneBoard(), opts)
		return hintMsg{pos: pos, res: res, err: err}
	}
}

func (m Model) View() string {
	var b strings.Builder

	title := titleStyle.Render("Parking Jam")
	if m.state.LevelName != "" {
		title += faintStyle.Render(" · " + m.state.LevelName)
	}
	if m.eng.IsBusy() {
		title += " " + m.spinner.View()
	}
	b.WriteString(title + "\n\n")

	board := boardStyle.Render(m.renderGrid())
	side := panelStyle.Render(m.renderSlots() + "\n" + m.renderQueue())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, board, " ", side))
	b.WriteString("\n")

	if len(m.anims) > 0 {
		b.WriteString(m.renderAnimations())
	}

	b.WriteString(fmt.Sprintf("Cars left: %d  Departed: %d  Dispatches: %d\n",
		m.state.VehiclesLeft, m.state.Departed, m.state.CurrentActionsCount))
	switch {
	case m.state.Victory:
		b.WriteString(victoryStyle.Render("VICTORY!") + " ")
	case m.state.GameOver:
		b.WriteString(stuckStyle.Render("STUCK") + " ")
	}
	b.WriteString(m.status + "\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m Model) renderGrid() string {
	movable := make(map[engine.Position]bool, len(m.state.Movable))
	for _, pos := range m.state.Movable {
		movable[pos] = true
	}

	var b strings.Builder
	b.WriteString(faintStyle.Render("exit ▲") + "\n")
	for r, row := range m.state.Grid {
		for c, v := range row {
			pos := engine.Position{Row: r, Col: c}
			cell := emptyStyle.Render(" · ")
			if v != nil {
				style := colorStyle(v.Color)
				if !movable[pos] {
					style = style.Faint(true)
				}
				cell = style.Render(fmt.Sprintf("█%d ", v.Capacity))
			}
			if m.hint != nil && *m.hint == pos {
				cell = hintStyle.Render(cell)
			}
			if m.cursor == pos {
				cell = cursorStyle.Render(cell)
			}
			b.WriteString(cell)
		}
		if r < len(m.state.Grid)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m Model) renderSlots() string {
	arriving := make(map[int]float64)
	for _, a := range m.anims {
		if a.Ref.Kind == engine.KindVehicle && a.To != nil && a.To.Area == engine.AreaSlot {
			arriving[a.To.Index] = progress(a, time.Now())
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Slots") + "\n")
	for _, s := range m.state.Slots {
		if s.Vehicle == nil {
			b.WriteString(fmt.Sprintf(" %d %s\n", s.Index+1, emptyStyle.Render("[ free ]")))
			continue
		}
		seats := strings.Repeat("●", s.Boarded) + strings.Repeat("○", max(s.Vehicle.Capacity-s.Boarded, 0))
		line := colorStyle(s.Vehicle.Color).Render(fmt.Sprintf("[%s]", seats))
		if p, ok := arriving[s.Index]; ok {
			line += faintStyle.Render(" arriving " + bar(p))
		}
		b.WriteString(fmt.Sprintf(" %d %s\n", s.Index+1, line))
	}
	return b.String()
}

func (m Model) renderQueue() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Queue") + "\n ")
	for _, p := range m.state.Queue {
		b.WriteString(colorStyle(p.Color).Render("●"))
	}
	if len(m.state.Queue) == 0 {
		b.WriteString(faintStyle.Render("(empty)"))
	}
	if m.state.Upcoming > 0 {
		b.WriteString(faintStyle.Render(fmt.Sprintf(" +%d", m.state.Upcoming)))
	}
	return b.String()
}

func (m Model) renderAnimations() string {
	keys := make([]string, 0, len(m.anims))
	for k := range m.anims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := time.Now()
	var b strings.Builder
	for _, k := range keys {
		a := m.anims[k]
		what := colorStyle(a.Ref.Color).Render(fmt.Sprintf("%s %s", a.Ref.Kind, a.Ref.ID))
		switch {
		case a.Fade:
			b.WriteString(fmt.Sprintf("  %s fading %s\n", what, bar(progress(a, now))))
		case a.From != nil && a.To != nil:
			b.WriteString(fmt.Sprintf("  %s %s → %s %s\n", what, location(*a.From), location(*a.To), bar(progress(a, now))))
		}
	}
	return b.String()
}

func location(l engine.Location) string {
	switch l.Area {
	case engine.AreaGrid:
		return engine.Position{Row: l.Row, Col: l.Col}.String()
	case engine.AreaSlot:
		return fmt.Sprintf("slot %d", l.Index+1)
	case engine.AreaQueue:
		return fmt.Sprintf("queue %d", l.Index+1)
	case engine.AreaExit:
		return "exit"
	}
	return string(l.Area)
}

func progress(a AnimationMsg, now time.Time) float64 {
	if a.Duration <= 0 {
		return 1
	}
	p := float64(now.Sub(a.Start)) / float64(a.Duration)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func bar(p float64) string {
	filled := int(p * progressWidth)
	return strings.Repeat("■", filled) + strings.Repeat("□", progressWidth-filled)
}

func describeReason(r engine.Reason) string {
	switch r {
	case engine.ReasonBusy:
		return "wait for the cars to finish moving"
	case engine.ReasonOutOfBounds:
		return "outside the lot"
	case engine.ReasonEmptyCell:
		return "no car there"
	case engine.ReasonNotMovable:
		return "the car is boxed in"
	case engine.ReasonNoFreeSlot:
		return "every slot is taken"
	case engine.ReasonGameOver:
		return "the game is over, press r"
	}
	return string(r)
}

func clamp(v, size int) int {
	if v < 0 {
		return 0
	}
	if v >= size {
		return size - 1
	}
	return v
}

func nodes(res *solver.Result) int {
	if res == nil {
		return 0
	}
	return res.Nodes
}
