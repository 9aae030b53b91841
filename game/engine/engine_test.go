package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// recordingPresenter records every finished animation.
type recordingPresenter struct {
	mu    sync.Mutex
	calls []string
	delay func(ref ObjectRef, from, to Location) time.Duration
	err   error
}

func (p *recordingPresenter) AnimateMove(ctx context.Context, ref ObjectRef, from, to Location, d time.Duration) error {
	if p.delay != nil {
		time.Sleep(p.delay(ref, from, to))
	}
	p.record(fmt.Sprintf("move %s %s%d>%s%d", ref.ID, from.Area, from.Index, to.Area, to.Index))
	return p.err
}

func (p *recordingPresenter) AnimateFadeOut(ctx context.Context, ref ObjectRef, d time.Duration) error {
	p.record("fade " + ref.ID)
	return p.err
}

func (p *recordingPresenter) record(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, s)
}

func (p *recordingPresenter) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func gridIDs(state *GameState) string {
	var out string
	for _, row := range state.Grid {
		for _, v := range row {
			if v == nil {
				out += ". "
			} else {
				out += v.ID + " "
			}
		}
	}
	return out
}

func indexOf(calls []string, s string) int {
	for i, c := range calls {
		if c == s {
			return i
		}
	}
	return -1
}

// blockingPresenter parks the first animation until release is closed.
type blockingPresenter struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingPresenter() *blockingPresenter {
	return &blockingPresenter{started: make(chan struct{}), release: make(chan struct{})}
}

func (p *blockingPresenter) AnimateMove(ctx context.Context, ref ObjectRef, from, to Location, d time.Duration) error {
	p.once.Do(func() {
		close(p.started)
		<-p.release
	})
	return nil
}

func (p *blockingPresenter) AnimateFadeOut(ctx context.Context, ref ObjectRef, d time.Duration) error {
	return nil
}

type countingObserver struct {
	mu         sync.Mutex
	accepted   int
	rejected   map[Reason]int
	boardings  int
	departures int
	pipelines  int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{rejected: map[Reason]int{}}
}

func (o *countingObserver) ObserveDispatch(accepted bool, reason Reason) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if accepted {
		o.accepted++
	} else {
		o.rejected[reason]++
	}
}

func (o *countingObserver) ObserveBoarding(int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.boardings++
}

func (o *countingObserver) ObserveDeparture(int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.departures++
}

func (o *countingObserver) ObservePipeline(time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pipelines++
}

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine(createTestLevel())
	if err != nil {
		t.Fatalf("Failed to create new engine: %v", err)
	}

	state := engine.GetState()
	if state.Phase != PhaseIdle {
		t.Errorf("Expected idle phase, got %s", state.Phase)
	}
	if state.GameOver || state.Victory {
		t.Error("Expected game to be in progress initially")
	}
	if state.LevelName != "Engine Test Level" {
		t.Errorf("Unexpected level name %q", state.LevelName)
	}
	if len(state.Movable) != 1 || state.Movable[0] != (Position{0, 0}) {
		t.Errorf("Expected (0,0) movable, got %v", state.Movable)
	}
	if state.Message == "" {
		t.Error("Expected a welcome message")
	}
}

func TestNewEngine_InvalidLevel(t *testing.T) {
	level := createTestLevel()
	level.Name = ""

	if _, err := NewEngine(level); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("Expected ErrInvalidLevel, got %v", err)
	}
}

func TestEngine_DispatchEndToEnd(t *testing.T) {
	presenter := &recordingPresenter{}
	observer := newCountingObserver()
	engine, err := NewEngine(createTestLevel(), WithPresenter(presenter), WithObserver(observer))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	res := engine.Dispatch(context.Background(), Position{0, 0})
	if !res.Accepted {
		t.Fatalf("Expected dispatch accepted, got reason %q", res.Reason)
	}
	if res.Slot != 0 {
		t.Errorf("Expected slot 0, got %d", res.Slot)
	}

	var types []EventType
	for _, ev := range res.Events {
		types = append(types, ev.Type)
	}
	want := []EventType{EventDispatch, EventBoard, EventBoard, EventDepart, EventVictory}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Errorf("Expected events %v, got %v", want, types)
	}

	state := res.GameState
	if state.Grid[0][0] != nil {
		t.Error("Expected (0,0) to be empty after dispatch")
	}
	if !state.Slots[0].Empty() || state.Slots[0].ArrivalSeq != NotParked {
		t.Errorf("Expected slot 0 cleared after departure, got %+v", state.Slots[0])
	}
	if len(state.Queue) != 1 || state.Queue[0].ID != "p2" {
		t.Errorf("Expected third passenger to wait, got %v", state.Queue)
	}
	if state.Departed != 1 || state.VehiclesLeft != 0 {
		t.Errorf("Expected 1 departed and none left, got %d/%d", state.Departed, state.VehiclesLeft)
	}
	if !state.Victory || state.Phase != PhaseIdle {
		t.Errorf("Expected idle victory, got victory=%v phase=%s", state.Victory, state.Phase)
	}
	if state.ArrivalCounter != 1 {
		t.Errorf("Expected arrival counter 1, got %d", state.ArrivalCounter)
	}

	calls := presenter.Calls()
	if len(calls) != 8 {
		t.Errorf("Expected 8 animations, got %d: %v", len(calls), calls)
	}
	if calls[0] != "move v1 grid0>slot0" {
		t.Errorf("Expected vehicle move first, got %q", calls[0])
	}
	if i := indexOf(calls, "move p0 queue0>slot0"); i != 1 {
		t.Errorf("Expected p0 boarding second, got index %d", i)
	}
	if indexOf(calls, "fade v1") < indexOf(calls, "move p1 queue0>slot0") {
		t.Error("Expected departure after the second boarding")
	}

	if observer.accepted != 1 || observer.boardings != 2 || observer.departures != 1 || observer.pipelines != 1 {
		t.Errorf("Unexpected observer counts %+v", observer)
	}

	history := engine.GetHistory()
	if len(history) != 1 {
		t.Fatalf("Expected 1 history entry, got %d", len(history))
	}
	if last := engine.GetLastAction(); last == nil || last.Boarded != 2 || last.Departed != 1 || last.VehicleID != "v1" {
		t.Errorf("Unexpected last action %+v", last)
	}
}

func TestEngine_DispatchRejections(t *testing.T) {
	level := &Level{
		Name:    "rejections",
		Vacancy: 1,
		InitialMatrix: [][]Cell{
			{vehicle(1, 2), vehicle(2, 2), vehicle(3, 1)},
			{vehicle(1, 2), vehicle(2, 2), vehicle(3, 1)},
			{vehicle(1, 2), vehicle(2, 2), {}},
		},
		ItemQueue: []int{2},
	}
	observer := newCountingObserver()
	engine, err := NewEngine(level, WithObserver(observer))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	before := engine.GetState()

	tests := []struct {
		name   string
		pos    Position
		reason Reason
	}{
		{"out of bounds", Position{5, 5}, ReasonOutOfBounds},
		{"empty cell", Position{2, 2}, ReasonEmptyCell},
		{"blocked", Position{1, 1}, ReasonNotMovable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := engine.Dispatch(context.Background(), tt.pos)
			if res.Accepted || res.Reason != tt.reason {
				t.Errorf("Dispatch(%v) = accepted %v reason %q, want %q", tt.pos, res.Accepted, res.Reason, tt.reason)
			}
			if res.Slot != -1 {
				t.Errorf("Expected slot -1 on rejection, got %d", res.Slot)
			}
		})
	}

	after := engine.GetState()
	if gridIDs(before) != gridIDs(after) || after.ArrivalCounter != 0 {
		t.Error("Rejected dispatches must not change the board")
	}
	if observer.rejected[ReasonNotMovable] != 1 || observer.accepted != 0 {
		t.Errorf("Unexpected observer counts %+v", observer)
	}
	if len(engine.GetHistory()) != 0 {
		t.Error("Rejected dispatches must not be recorded")
	}
}

func TestEngine_StuckIsGameOver(t *testing.T) {
	level := &Level{
		Name:    "stuck",
		Vacancy: 1,
		InitialMatrix: [][]Cell{
			{vehicle(1, 2), vehicle(2, 2)},
			{{}, {}},
		},
		ItemQueue: []int{2, 2, 1, 1},
	}
	engine, err := NewEngine(level)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	res := engine.Dispatch(context.Background(), Position{0, 0})
	if !res.Accepted {
		t.Fatalf("Expected dispatch accepted, got %q", res.Reason)
	}
	if !res.GameState.GameOver || res.GameState.Victory {
		t.Errorf("Expected game over without victory, got %+v", res.GameState)
	}
	if res.Events[len(res.Events)-1].Type != EventStuck {
		t.Errorf("Expected stuck event last, got %+v", res.Events)
	}
	if res.GameState.Slots[0].Boarded != 0 {
		t.Error("Blue head must not board a red vehicle")
	}

	res = engine.Dispatch(context.Background(), Position{0, 1})
	if res.Accepted || res.Reason != ReasonGameOver {
		t.Errorf("Expected %q after game over, got %q", ReasonGameOver, res.Reason)
	}
	if engine.CheckDispatch(Position{0, 1}) != ReasonGameOver {
		t.Error("Expected CheckDispatch to report game over")
	}
}

func TestEngine_LockRejectsConcurrentInput(t *testing.T) {
	presenter := newBlockingPresenter()
	engine, err := NewEngine(createTestLevel(), WithPresenter(presenter))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	done := make(chan *DispatchResult)
	go func() {
		done <- engine.Dispatch(context.Background(), Position{0, 0})
	}()
	<-presenter.started

	if !engine.IsBusy() {
		t.Error("Expected engine busy during animation")
	}
	if res := engine.Dispatch(context.Background(), Position{0, 0}); res.Accepted || res.Reason != ReasonBusy {
		t.Errorf("Expected busy rejection, got %+v", res)
	}
	if _, ran := engine.TryBoard(context.Background()); ran {
		t.Error("Expected TryBoard to be refused while busy")
	}
	if _, err := engine.Reset(); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy from Reset, got %v", err)
	}
	if engine.CheckDispatch(Position{0, 0}) != ReasonBusy {
		t.Error("Expected CheckDispatch to report busy")
	}

	state := engine.GetState()
	if state.Phase != PhaseDispatching {
		t.Errorf("Expected dispatching phase mid-animation, got %s", state.Phase)
	}
	if state.Slots[0].Vehicle == nil {
		t.Error("Expected vehicle parked before its animation completes")
	}

	close(presenter.release)
	res := <-done
	if !res.Accepted {
		t.Fatalf("Expected first dispatch accepted, got %q", res.Reason)
	}
	if engine.IsBusy() {
		t.Error("Expected lock released after pipeline")
	}
}

func TestEngine_QueueShiftWaitsForEveryPassenger(t *testing.T) {
	presenter := &recordingPresenter{
		delay: func(ref ObjectRef, from, to Location) time.Duration {
			if ref.ID == "p2" && to.Area == AreaQueue && to.Index == 1 {
				return 30 * time.Millisecond
			}
			return 0
		},
	}
	engine, err := NewEngine(createTestLevel(), WithPresenter(presenter))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	engine.Dispatch(context.Background(), Position{0, 0})

	calls := presenter.Calls()
	slow := indexOf(calls, "move p2 queue2>queue1")
	next := indexOf(calls, "move p1 queue0>slot0")
	if slow == -1 || next == -1 {
		t.Fatalf("Missing animations in %v", calls)
	}
	if slow > next {
		t.Errorf("Next boarding started before the slow shift finished: %v", calls)
	}
}

func TestEngine_PresenterErrorsDoNotAbort(t *testing.T) {
	presenter := &recordingPresenter{err: errors.New("canvas gone")}
	engine, err := NewEngine(createTestLevel(), WithPresenter(presenter))
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	res := engine.Dispatch(context.Background(), Position{0, 0})
	if !res.Accepted || !res.GameState.Victory {
		t.Errorf("Expected pipeline to complete despite presenter errors, got %+v", res)
	}
	if len(presenter.Calls()) != 8 {
		t.Errorf("Expected every animation to be attempted, got %v", presenter.Calls())
	}
}

func TestEngine_TryBoardIdempotent(t *testing.T) {
	engine, err := NewEngine(createTestLevel())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	events, ran := engine.TryBoard(context.Background())
	if !ran {
		t.Fatal("Expected TryBoard to run when idle")
	}
	if len(events) != 0 {
		t.Errorf("Expected no events without parked vehicles, got %v", events)
	}
	if got := len(engine.GetState().Queue); got != 3 {
		t.Errorf("Expected queue untouched, got %d", got)
	}
}

func TestEngine_Reset(t *testing.T) {
	engine, err := NewEngine(DefaultLevel())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	initial := engine.CloneBoard().Key()

	engine.Dispatch(context.Background(), Position{0, 0})
	engine.Dispatch(context.Background(), Position{0, 1})

	state, err := engine.Reset()
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if engine.CloneBoard().Key() != initial {
		t.Error("Expected board to match the level after reset")
	}
	if state.ArrivalCounter != 0 {
		t.Errorf("Expected arrival counter reset, got %d", state.ArrivalCounter)
	}
	if state.TotalActions != 2 || len(state.History) != 2 {
		t.Errorf("Expected cumulative history of 2, got %d/%d", state.TotalActions, len(state.History))
	}
	if state.CurrentActionsCount != 0 || len(state.CurrentActions) != 0 {
		t.Errorf("Expected current actions cleared, got %d", state.CurrentActionsCount)
	}

	engine.Dispatch(context.Background(), Position{0, 2})
	if last := engine.GetLastAction(); last.Number != 3 {
		t.Errorf("Expected numbering to continue across reset, got %d", last.Number)
	}
}

func TestEngine_MatchesSettle(t *testing.T) {
	engine, err := NewEngine(DefaultLevel())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	board := NewBoard(DefaultLevel())

	for step := 0; step < 20; step++ {
		movable := engine.MovableCells()
		if len(movable) == 0 || engine.IsVictory() || engine.IsGameOver() {
			break
		}
		pos := movable[len(movable)-1]

		res := engine.Dispatch(context.Background(), pos)
		if !res.Accepted {
			t.Fatalf("step %d: dispatch %v rejected: %q", step, pos, res.Reason)
		}
		if _, reason := board.Park(pos); reason != "" {
			t.Fatalf("step %d: park %v rejected: %q", step, pos, reason)
		}
		board.Settle()

		if got, want := engine.CloneBoard().Key(), board.Key(); got != want {
			t.Fatalf("step %d: engine board %q differs from settled board %q", step, got, want)
		}
	}
}

func TestEngine_CapacityNeverExceeded(t *testing.T) {
	engine, err := NewEngine(DefaultLevel())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	for i := 0; i < 20; i++ {
		movable := engine.MovableCells()
		if len(movable) == 0 {
			break
		}
		res := engine.Dispatch(context.Background(), movable[0])
		for _, s := range res.GameState.Slots {
			if s.Vehicle != nil && (s.Boarded < 0 || s.Boarded > s.Vehicle.Capacity) {
				t.Fatalf("Slot %d violates capacity: %+v", s.Index, s)
			}
		}
	}
}
