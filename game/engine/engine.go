package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

// ErrBusy is returned by operations that need the pipeline to be idle.
var ErrBusy = errors.New("engine: transition in progress")

// Engine provides the main interface for game operations
type Engine interface {
	// Game state management
	GetState() *GameState
	Reset() (*GameState, error)
	IsGameOver() bool
	IsVictory() bool
	IsBusy() bool
	Phase() Phase

	// Player input
	Dispatch(ctx context.Context, pos Position) *DispatchResult
	CheckDispatch(pos Position) Reason
	MovableCells() []Position

	// Boarding step, exposed for callers that refill or resume a queue
	TryBoard(ctx context.Context) ([]Event, bool)

	// Level and history
	GetLevel() *Level
	GetHistory() []ActionEntry
	GetLastAction() *ActionEntry

	// CloneBoard returns an independent copy of the board for analysis.
	CloneBoard() *Board
}

// GameEngine implements Engine. A single compare-and-swap flag admits one
// pipeline at a time; mu guards the board and is released while the
// presenter animates so snapshots stay available.
type GameEngine struct {
	busy atomic.Bool

	mu        sync.RWMutex
	level     *Level
	board     *Board
	phase     Phase
	message   string
	gameOver  bool
	victory   bool
	history   []ActionEntry
	current   []ActionEntry
	total     int
	presenter Presenter
	observer  Observer
	timings   Timings
	logger    *log.Logger
}

// Option configures a GameEngine.
type Option func(*GameEngine)

// WithPresenter sets the presenter that plays transitions.
func WithPresenter(p Presenter) Option {
	return func(e *GameEngine) {
		if p != nil {
			e.presenter = p
		}
	}
}

// WithObserver sets the pipeline observer.
func WithObserver(o Observer) Option {
	return func(e *GameEngine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithTimings overrides the animation durations.
func WithTimings(t Timings) Option {
	return func(e *GameEngine) {
		e.timings = t
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *GameEngine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a new game engine for the provided level
func NewEngine(level *Level, opts ...Option) (*GameEngine, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}

	e := &GameEngine{
		level:     level,
		presenter: NopPresenter{},
		observer:  nopObserver{},
		timings:   DefaultTimings(),
		logger:    log.Default(),
		history:   []ActionEntry{},
		current:   []ActionEntry{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("level", level.Name)
	e.init()
	return e, nil
}

func (e *GameEngine) init() {
	e.board = NewBoard(e.level)
	e.phase = PhaseIdle
	e.message = e.level.welcome()
	e.gameOver = false
	e.victory = false
	e.updateStatusLocked()
}

// SetPresenter swaps the presenter. It fails while a pipeline runs.
func (e *GameEngine) SetPresenter(p Presenter) error {
	if !e.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer e.busy.Store(false)
	if p == nil {
		p = NopPresenter{}
	}
	e.presenter = p
	return nil
}

// GetState returns a snapshot of the current game state
func (e *GameEngine) GetState() *GameState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

func (e *GameEngine) snapshotLocked() *GameState {
	s := e.board.Snapshot()
	s.Phase = e.phase
	s.Message = e.message
	s.GameOver = e.gameOver
	s.Victory = e.victory
	s.LevelName = e.level.Name
	s.History = append([]ActionEntry{}, e.history...)
	s.TotalActions = e.total
	s.CurrentActions = append([]ActionEntry{}, e.current...)
	s.CurrentActionsCount = len(e.current)
	return s
}

// Reset rebuilds the board from the level while keeping cumulative history.
func (e *GameEngine) Reset() (*GameState, error) {
	if !e.busy.CompareAndSwap(false, true) {
		return e.GetState(), ErrBusy
	}
	defer e.busy.Store(false)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.init()
	e.current = []ActionEntry{}
	e.logger.Info("reset", "total_actions", e.total)
	return e.snapshotLocked(), nil
}

// IsGameOver returns whether no further dispatch is possible
func (e *GameEngine) IsGameOver() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gameOver
}

// IsVictory returns whether every vehicle has departed
func (e *GameEngine) IsVictory() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.victory
}

// IsBusy reports whether a pipeline holds the animation lock.
func (e *GameEngine) IsBusy() bool {
	return e.busy.Load()
}

// Phase returns the running pipeline step.
func (e *GameEngine) Phase() Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase
}

// CheckDispatch returns why pos cannot be dispatched right now, or "".
func (e *GameEngine) CheckDispatch(pos Position) Reason {
	if e.busy.Load() {
		return ReasonBusy
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.gameOver || e.victory {
		return ReasonGameOver
	}
	return e.board.CheckDispatch(pos)
}

// MovableCells lists the grid vehicles that may be dispatched.
func (e *GameEngine) MovableCells() []Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.board.MovableCells()
}

// GetLevel returns the level the engine plays
func (e *GameEngine) GetLevel() *Level {
	return e.level
}

// GetHistory returns the cumulative action history
func (e *GameEngine) GetHistory() []ActionEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]ActionEntry{}, e.history...)
}

// GetLastAction returns the last accepted dispatch, or nil
func (e *GameEngine) GetLastAction() *ActionEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if len(e.history) == 0 {
		return nil
	}
	last := e.history[len(e.history)-1]
	return &last
}

// CloneBoard returns a copy of the board.
func (e *GameEngine) CloneBoard() *Board {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.board.Clone()
}

// Dispatch sends the vehicle at pos to the first free slot and runs the
// boarding and departure steps that follow. It blocks until the whole
// pipeline, animations included, has finished. Invalid input is ignored and
// reported through DispatchResult.Reason.
func (e *GameEngine) Dispatch(ctx context.Context, pos Position) *DispatchResult {
	if !e.busy.CompareAndSwap(false, true) {
		e.observer.ObserveDispatch(false, ReasonBusy)
		return &DispatchResult{Reason: ReasonBusy, Slot: -1, GameState: e.GetState()}
	}
	defer e.busy.Store(false)
	start := time.Now()

	e.mu.Lock()
	var (
		slot   = -1
		reason Reason
	)
	if e.gameOver || e.victory {
		reason = ReasonGameOver
	} else {
		slot, reason = e.board.Park(pos)
	}
	if reason != "" {
		state := e.snapshotLocked()
		e.mu.Unlock()
		e.observer.ObserveDispatch(false, reason)
		e.logger.Debug("dispatch ignored", "pos", pos, "reason", reason)
		return &DispatchResult{Reason: reason, Slot: -1, GameState: state}
	}
	v := e.board.Slot(slot).Vehicle
	e.phase = PhaseDispatching
	e.message = fmt.Sprintf("%s car parks in slot %d", ColorName(v.Color), slot+1)
	e.mu.Unlock()
	e.observer.ObserveDispatch(true, "")

	from := pos
	events := []Event{{
		Type:      EventDispatch,
		Message:   fmt.Sprintf("%s %s car moved from %s to slot %d", v.ID, ColorName(v.Color), pos, slot),
		VehicleID: v.ID,
		Color:     v.Color,
		Slot:      slot,
		From:      &from,
	}}
	e.wait("vehicle to slot", e.presenter.AnimateMove(ctx, vehicleRef(v), GridLocation(pos), SlotLocation(slot), e.timings.VehicleToSlot))

	boarded, departed, more := e.runBoarding(ctx)
	events = append(events, more...)

	e.mu.Lock()
	entry := e.recordLocked(pos, slot, v, boarded, departed)
	events = append(events, e.updateStatusLocked()...)
	e.phase = PhaseIdle
	state := e.snapshotLocked()
	e.mu.Unlock()

	took := time.Since(start)
	e.observer.ObservePipeline(took)
	e.logger.Info("dispatch",
		"action", entry.Number,
		"vehicle", v.ID,
		"color", ColorName(v.Color),
		"from", pos.String(),
		"slot", slot,
		"boarded", boarded,
		"departed", departed,
		"took", took)

	return &DispatchResult{Accepted: true, Slot: slot, Events: events, GameState: state}
}

// TryBoard runs the boarding loop on its own. It returns false without
// doing anything when another pipeline holds the lock.
func (e *GameEngine) TryBoard(ctx context.Context) ([]Event, bool) {
	if !e.busy.CompareAndSwap(false, true) {
		return nil, false
	}
	defer e.busy.Store(false)
	start := time.Now()

	_, _, events := e.runBoarding(ctx)

	e.mu.Lock()
	events = append(events, e.updateStatusLocked()...)
	e.phase = PhaseIdle
	e.mu.Unlock()

	e.observer.ObservePipeline(time.Since(start))
	return events, true
}

// runBoarding seats queue heads until the head has no candidate or the
// queue is empty. A vehicle that fills up departs before the next head is
// considered. The caller holds the animation lock.
func (e *GameEngine) runBoarding(ctx context.Context) (boarded, departed int, events []Event) {
	for {
		e.mu.Lock()
		slot, ok := e.board.NextBoarding()
		if !ok {
			e.mu.Unlock()
			return boarded, departed, events
		}
		step, err := e.board.BoardHead(slot)
		if err != nil {
			e.mu.Unlock()
			e.logger.Error("boarding", "slot", slot, "err", err)
			return boarded, departed, events
		}
		e.phase = PhaseBoarding
		e.message = fmt.Sprintf("%s passenger boards slot %d (%d/%d)",
			ColorName(step.Passenger.Color), slot+1, step.Boarded, step.Vehicle.Capacity)
		queue := e.board.Queue()
		e.mu.Unlock()

		boarded++
		e.observer.ObserveBoarding(step.Passenger.Color)
		events = append(events, Event{
			Type:        EventBoard,
			Message:     fmt.Sprintf("passenger %s boarded %s in slot %d (%d/%d)", step.Passenger.ID, step.Vehicle.ID, slot, step.Boarded, step.Vehicle.Capacity),
			VehicleID:   step.Vehicle.ID,
			PassengerID: step.Passenger.ID,
			Color:       step.Passenger.Color,
			Slot:        slot,
		})

		e.wait("passenger to slot", e.presenter.AnimateMove(ctx, passengerRef(step.Passenger), QueueLocation(0), SlotLocation(slot), e.timings.PassengerToSlot))
		e.shiftQueue(ctx, queue, step.Appended)

		if step.Full {
			if ev, ok := e.depart(ctx, slot); ok {
				departed++
				events = append(events, ev)
			}
		}
	}
}

// shiftQueue moves every waiting passenger one place forward and waits for
// all of them. The refilled tail passenger starts at its own place.
func (e *GameEngine) shiftQueue(ctx context.Context, queue []Passenger, appended *Passenger) {
	var g errgroup.Group
	for i, p := range queue {
		from := QueueLocation(i + 1)
		if appended != nil && p.ID == appended.ID {
			from = QueueLocation(i)
		}
		g.Go(func() error {
			return e.presenter.AnimateMove(ctx, passengerRef(p), from, QueueLocation(i), e.timings.QueueShift)
		})
	}
	e.wait("queue shift", g.Wait())
}

// depart drives the vehicle in slot off the lot and frees the slot. It is
// a no-op for an empty slot.
func (e *GameEngine) depart(ctx context.Context, slot int) (Event, bool) {
	e.mu.Lock()
	v := e.board.Slot(slot).Vehicle
	if v == nil {
		e.mu.Unlock()
		return Event{}, false
	}
	e.phase = PhaseDeparting
	e.mu.Unlock()

	ref := vehicleRef(v)
	var g errgroup.Group
	g.Go(func() error {
		return e.presenter.AnimateMove(ctx, ref, SlotLocation(slot), ExitLocation(slot), e.timings.VehicleDeparture)
	})
	g.Go(func() error {
		return e.presenter.AnimateFadeOut(ctx, ref, e.timings.VehicleDeparture)
	})
	e.wait("vehicle departure", g.Wait())

	e.mu.Lock()
	e.board.ClearSlot(slot)
	e.message = fmt.Sprintf("%s car is full and leaves slot %d", ColorName(v.Color), slot+1)
	e.mu.Unlock()

	e.observer.ObserveDeparture(v.Color)
	return Event{
		Type:      EventDepart,
		Message:   fmt.Sprintf("%s left slot %d", v.ID, slot),
		VehicleID: v.ID,
		Color:     v.Color,
		Slot:      slot,
	}, true
}

// wait logs a presenter failure. The board is already consistent, so the
// pipeline continues.
func (e *GameEngine) wait(op string, err error) {
	if err != nil {
		e.logger.Warn("presenter", "op", op, "err", err)
	}
}

func (e *GameEngine) recordLocked(pos Position, slot int, v *Vehicle, boarded, departed int) ActionEntry {
	e.total++
	entry := ActionEntry{
		Number:    e.total,
		From:      pos,
		Slot:      slot,
		VehicleID: v.ID,
		Color:     v.Color,
		Boarded:   boarded,
		Departed:  departed,
		Timestamp: time.Now().Unix(),
	}
	e.history = append(e.history, entry)
	e.current = append(e.current, entry)
	return entry
}

// updateStatusLocked sets victory or game over once the board allows it.
func (e *GameEngine) updateStatusLocked() []Event {
	if e.victory || e.gameOver {
		return nil
	}
	switch {
	case e.board.Cleared():
		e.victory = true
		e.message = e.level.victory()
		return []Event{{Type: EventVictory, Message: e.message, Slot: -1}}
	case e.board.Stuck():
		e.gameOver = true
		e.message = e.level.stuck()
		return []Event{{Type: EventStuck, Message: e.message, Slot: -1}}
	}
	return nil
}

func vehicleRef(v *Vehicle) ObjectRef {
	return ObjectRef{Kind: KindVehicle, ID: v.ID, Color: v.Color}
}

func passengerRef(p Passenger) ObjectRef {
	return ObjectRef{Kind: KindPassenger, ID: p.ID, Color: p.Color}
}
