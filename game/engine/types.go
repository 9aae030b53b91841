package engine

import "fmt"

const (
	// Validation constants
	MinGridSize     = 1
	MaxGridSize     = 12
	MinVacancy      = 1
	MaxVacancy      = 10
	MinColor        = 1
	MaxColor        = 9
	MaxCapacity     = 12
	MaxQueueSize    = 100
	DefaultQueueLen = 28

	// NoColor marks an empty cell or a skipped queue entry.
	NoColor = 0

	// NotParked is the arrival sequence of an empty slot.
	NotParked = -1
)

// colorNames follows the palette the levels are authored against.
var colorNames = map[int]string{
	1: "red",
	2: "blue",
	3: "yellow",
	4: "green",
	5: "orange",
	6: "purple",
	7: "gray",
	8: "pink",
	9: "cyan",
}

// ColorName returns the display name for a color id.
func ColorName(color int) string {
	if name, ok := colorNames[color]; ok {
		return name
	}
	return fmt.Sprintf("color-%d", color)
}

// Position is a grid coordinate. Row 0 is the exit row.
type Position struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Col)
}

// Vehicle is a car waiting on the grid or parked in a slot.
type Vehicle struct {
	ID       string `json:"id"`
	Color    int    `json:"color"`
	Capacity int    `json:"capacity"`
}

// Passenger waits in the queue until a vehicle of its color picks it up.
type Passenger struct {
	ID    string `json:"id"`
	Color int    `json:"color"`
}

// Slot is one parking position. An empty slot has a nil Vehicle and
// ArrivalSeq set to NotParked.
type Slot struct {
	Index      int      `json:"index"`
	Vehicle    *Vehicle `json:"vehicle,omitempty"`
	Boarded    int      `json:"boarded"`
	ArrivalSeq int      `json:"arrival_seq"`
}

// Empty reports whether no vehicle is parked in the slot.
func (s Slot) Empty() bool {
	return s.Vehicle == nil
}

// Full reports whether the parked vehicle has no seats left.
func (s Slot) Full() bool {
	return s.Vehicle != nil && s.Boarded >= s.Vehicle.Capacity
}

// Phase is the step of the transition pipeline currently running.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseDispatching Phase = "dispatching"
	PhaseBoarding    Phase = "boarding"
	PhaseDeparting   Phase = "departing"
)

// Reason explains why a dispatch was ignored.
type Reason string

const (
	ReasonBusy        Reason = "busy"
	ReasonOutOfBounds Reason = "out_of_bounds"
	ReasonEmptyCell   Reason = "empty_cell"
	ReasonNotMovable  Reason = "not_movable"
	ReasonNoFreeSlot  Reason = "no_free_slot"
	ReasonGameOver    Reason = "game_over"
)

// EventType names an observable change produced by a pipeline.
type EventType string

const (
	EventDispatch EventType = "dispatch"
	EventBoard    EventType = "board"
	EventDepart   EventType = "depart"
	EventVictory  EventType = "victory"
	EventStuck    EventType = "stuck"
)

// Event is a single step reported back to callers after a pipeline ran.
type Event struct {
	Type        EventType `json:"type"`
	Message     string    `json:"message"`
	VehicleID   string    `json:"vehicle_id,omitempty"`
	PassengerID string    `json:"passenger_id,omitempty"`
	Color       int       `json:"color,omitempty"`
	Slot        int       `json:"slot"`
	From        *Position `json:"from,omitempty"`
}

// ActionEntry records one accepted dispatch and what it caused.
type ActionEntry struct {
	Number    int      `json:"number"`
	From      Position `json:"from"`
	Slot      int      `json:"slot"`
	VehicleID string   `json:"vehicle_id"`
	Color     int      `json:"color"`
	Boarded   int      `json:"boarded"`
	Departed  int      `json:"departed"`
	Timestamp int64    `json:"timestamp"`
}

// DispatchResult is returned for every dispatch attempt. Rejected attempts
// leave the board untouched and carry a Reason.
type DispatchResult struct {
	Accepted  bool       `json:"accepted"`
	Reason    Reason     `json:"reason,omitempty"`
	Slot      int        `json:"slot"`
	Events    []Event    `json:"events,omitempty"`
	GameState *GameState `json:"game_state"`
}

// GameState is a read-only snapshot of a game.
type GameState struct {
	Grid           [][]*Vehicle `json:"grid"`
	Slots          []Slot       `json:"slots"`
	Queue          []Passenger  `json:"queue"`
	Upcoming       int          `json:"upcoming"`
	Movable        []Position   `json:"movable"`
	Phase          Phase        `json:"phase"`
	ArrivalCounter int          `json:"arrival_counter"`
	VehiclesLeft   int          `json:"vehicles_left"`
	Departed       int          `json:"departed"`
	Message        string       `json:"message"`
	GameOver       bool         `json:"game_over"`
	Victory        bool         `json:"victory"`
	LevelName      string       `json:"level_name"`

	// History is cumulative across resets; CurrentActions covers only the
	// actions since the last reset.
	History             []ActionEntry `json:"history"`
	TotalActions        int           `json:"total_actions"`
	CurrentActions      []ActionEntry `json:"current_actions"`
	CurrentActionsCount int           `json:"current_actions_count"`
}
