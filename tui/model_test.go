package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/wricardo/parkingjam/game/engine"
	"github.com/wricardo/parkingjam/game/solver"
)

// testLevel is a red car with two seats next to a blue car with one.
func testLevel() *engine.Level {
	return &engine.Level{
		Name:    "tiny",
		Vacancy: 2,
		InitialMatrix: [][]engine.Cell{
			{{Color: 1, Capacity: 2}, {Color: 2, Capacity: 1}},
			{{}, {}},
		},
		ItemQueue: []int{1, 1, 2},
	}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	eng, err := engine.NewEngine(testLevel())
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return New(context.Background(), eng, solver.Options{})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return model, cmd
}

// run feeds the message produced by cmd back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		t.Fatal("Expected a command")
	}
	m, _ = update(t, m, cmd())
	return m
}

func keyMsg(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runeMsg(r string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(r)}
}

func TestModel_CursorMovement(t *testing.T) {
	m := newTestModel(t)

	tests := []struct {
		name string
		msg  tea.KeyMsg
		want engine.Position
	}{
		{"up at top stays", keyMsg(tea.KeyUp), engine.Position{Row: 0, Col: 0}},
		{"down", keyMsg(tea.KeyDown), engine.Position{Row: 1, Col: 0}},
		{"down at bottom stays", runeMsg("s"), engine.Position{Row: 1, Col: 0}},
		{"right", keyMsg(tea.KeyRight), engine.Position{Row: 1, Col: 1}},
		{"left", runeMsg("a"), engine.Position{Row: 1, Col: 0}},
	}

	for _, tt := range tests {
		m, _ = update(t, m, tt.msg)
		if m.cursor != tt.want {
			t.Errorf("%s: cursor = %s, want %s", tt.name, m.cursor, tt.want)
		}
	}
}

func TestModel_DispatchToVictory(t *testing.T) {
	m := newTestModel(t)

	m, cmd := update(t, m, keyMsg(tea.KeyEnter))
	m = run(t, m, cmd)
	if m.state.Departed != 1 || m.state.VehiclesLeft != 1 {
		t.Fatalf("Expected red car to leave, got departed=%d left=%d", m.state.Departed, m.state.VehiclesLeft)
	}

	m, _ = update(t, m, keyMsg(tea.KeyRight))
	m, cmd = update(t, m, keyMsg(tea.KeyEnter))
	m = run(t, m, cmd)

	if !m.state.Victory {
		t.Fatal("Expected victory")
	}
	if view := m.View(); !strings.Contains(view, "VICTORY!") {
		t.Errorf("Expected victory banner in view:\n%s", view)
	}
}

func TestModel_DispatchRejected(t *testing.T) {
	m := newTestModel(t)

	m, _ = update(t, m, keyMsg(tea.KeyDown))
	m, cmd := update(t, m, keyMsg(tea.KeyEnter))
	m = run(t, m, cmd)

	if !strings.Contains(m.status, "no car there") {
		t.Errorf("Expected empty cell explanation, got %q", m.status)
	}
	if m.state.VehiclesLeft != 2 {
		t.Error("Expected board untouched")
	}
}

func TestModel_Reset(t *testing.T) {
	m := newTestModel(t)

	m, cmd := update(t, m, keyMsg(tea.KeyEnter))
	m = run(t, m, cmd)
	if m.state.VehiclesLeft != 1 {
		t.Fatal("Expected one car left after dispatch")
	}

	m, cmd = update(t, m, runeMsg("r"))
	m = run(t, m, cmd)
	if m.state.VehiclesLeft != 2 {
		t.Errorf("Expected reset board, got %d cars left", m.state.VehiclesLeft)
	}
	if m.state.TotalActions != 1 {
		t.Errorf("Expected cumulative history kept, got %d", m.state.TotalActions)
	}
}

func TestModel_Hint(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, keyMsg(tea.KeyDown))
	m, _ = update(t, m, keyMsg(tea.KeyRight))

	m, cmd := update(t, m, runeMsg("?"))
	m = run(t, m, cmd)

	want := engine.Position{Row: 0, Col: 0}
	if m.hint == nil || *m.hint != want {
		t.Fatalf("Expected hint at %s, got %v", want, m.hint)
	}
	if m.cursor != want {
		t.Errorf("Expected cursor moved to hint, got %s", m.cursor)
	}
	if !strings.Contains(m.status, "Try (0,0)") {
		t.Errorf("Unexpected status %q", m.status)
	}
}

// gate holds the first vehicle move open until release is closed.
type gate struct {
	engine.NopPresenter
	started chan struct{}
	release chan struct{}
}

func (g *gate) AnimateMove(ctx context.Context, ref engine.ObjectRef, from, to engine.Location, d time.Duration) error {
	select {
	case <-g.started:
		return nil
	default:
	}
	close(g.started)
	<-g.release
	return nil
}

func TestModel_HintWhileBusy(t *testing.T) {
	g := &gate{started: make(chan struct{}), release: make(chan struct{})}
	eng, err := engine.NewEngine(testLevel(), engine.WithPresenter(g))
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	m := New(context.Background(), eng, solver.Options{})

	done := make(chan struct{})
	go func() {
		eng.Dispatch(context.Background(), engine.Position{Row: 0, Col: 0})
		close(done)
	}()
	<-g.started

	m, cmd := update(t, m, runeMsg("?"))
	if cmd != nil || m.hint != nil {
		t.Errorf("Expected no hint search while busy, got hint %v", m.hint)
	}
	if !strings.Contains(m.status, "finish moving") {
		t.Errorf("Unexpected status %q", m.status)
	}

	close(g.release)
	<-done
}

func TestModel_HintWithoutMoves(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, hintMsg{res: &solver.Result{Solvable: true}})
	if m.hint != nil {
		t.Errorf("Expected no hint when nothing is left to send, got %v", m.hint)
	}
	if m.status != "The lot is already clear" {
		t.Errorf("Unexpected status %q", m.status)
	}
}

func TestModel_Animations(t *testing.T) {
	m := newTestModel(t)
	to := engine.SlotLocation(0)
	from := engine.GridLocation(engine.Position{Row: 0, Col: 0})

	start := AnimationMsg{
		Key:      "v1/move",
		Ref:      engine.ObjectRef{Kind: engine.KindVehicle, ID: "v1", Color: 1},
		From:     &from,
		To:       &to,
		Duration: time.Second,
		Start:    time.Now(),
	}
	m, _ = update(t, m, start)
	if len(m.anims) != 1 {
		t.Fatalf("Expected one animation, got %d", len(m.anims))
	}
	if view := m.View(); !strings.Contains(view, "vehicle v1") || !strings.Contains(view, "slot 1") {
		t.Errorf("Expected animation line in view:\n%s", view)
	}

	done := start
	done.Done = true
	m, _ = update(t, m, done)
	if len(m.anims) != 0 {
		t.Error("Expected animation removed when done")
	}
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t)
	_, cmd := update(t, m, runeMsg("q"))
	if cmd == nil {
		t.Fatal("Expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
}

func TestProgressBar(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		anim AnimationMsg
		want string
	}{
		{"instant", AnimationMsg{}, "■■■■■■■■■■"},
		{"half", AnimationMsg{Start: now.Add(-50 * time.Millisecond), Duration: 100 * time.Millisecond}, "■■■■■□□□□□"},
		{"not started", AnimationMsg{Start: now.Add(time.Second), Duration: time.Second}, "□□□□□□□□□□"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bar(progress(tt.anim, now)); got != tt.want {
				t.Errorf("bar = %s, want %s", got, tt.want)
			}
		})
	}
}
