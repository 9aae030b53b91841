package engine

import (
	"context"
	"time"
)

// Area identifies which part of the scene a Location refers to.
type Area string

const (
	AreaGrid  Area = "grid"
	AreaSlot  Area = "slot"
	AreaQueue Area = "queue"
	AreaExit  Area = "exit"
)

// Location is an index-based position. Mapping it to pixels, cells or
// characters is up to the presenter.
type Location struct {
	Area  Area `json:"area"`
	Row   int  `json:"row"`
	Col   int  `json:"col"`
	Index int  `json:"index"`
}

// GridLocation returns the location of a grid cell.
func GridLocation(pos Position) Location {
	return Location{Area: AreaGrid, Row: pos.Row, Col: pos.Col}
}

// SlotLocation returns the location of a parking slot.
func SlotLocation(slot int) Location {
	return Location{Area: AreaSlot, Index: slot}
}

// QueueLocation returns the location of a queue position; 0 is the head.
func QueueLocation(i int) Location {
	return Location{Area: AreaQueue, Index: i}
}

// ExitLocation is where departing vehicles drive to, above their slot.
func ExitLocation(slot int) Location {
	return Location{Area: AreaExit, Index: slot}
}

// ObjectKind tells the presenter what sort of object is animated.
type ObjectKind string

const (
	KindVehicle   ObjectKind = "vehicle"
	KindPassenger ObjectKind = "passenger"
)

// ObjectRef identifies an animated object.
type ObjectRef struct {
	Kind  ObjectKind `json:"kind"`
	ID    string     `json:"id"`
	Color int        `json:"color"`
}

// Presenter plays transitions. Each call returns once the animation has
// finished; the engine does not continue until it does.
type Presenter interface {
	AnimateMove(ctx context.Context, ref ObjectRef, from, to Location, d time.Duration) error
	AnimateFadeOut(ctx context.Context, ref ObjectRef, d time.Duration) error
}

// NopPresenter completes every animation immediately.
type NopPresenter struct{}

func (NopPresenter) AnimateMove(context.Context, ObjectRef, Location, Location, time.Duration) error {
	return nil
}

func (NopPresenter) AnimateFadeOut(context.Context, ObjectRef, time.Duration) error {
	return nil
}

// Timings are the animation durations handed to the presenter.
type Timings struct {
	VehicleToSlot    time.Duration `json:"vehicle_to_slot"`
	PassengerToSlot  time.Duration `json:"passenger_to_slot"`
	QueueShift       time.Duration `json:"queue_shift"`
	VehicleDeparture time.Duration `json:"vehicle_departure"`
}

// DefaultTimings returns the standard animation durations.
func DefaultTimings() Timings {
	return Timings{
		VehicleToSlot:    300 * time.Millisecond,
		PassengerToSlot:  100 * time.Millisecond,
		QueueShift:       100 * time.Millisecond,
		VehicleDeparture: 300 * time.Millisecond,
	}
}
