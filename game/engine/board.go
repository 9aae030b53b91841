package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Board holds the vehicle grid, the parking slots and the passenger queue.
// It has no knowledge of animation; every method runs to completion and
// validates before it mutates.
type Board struct {
	grid      [][]*Vehicle
	slots     []Slot
	queue     []Passenger
	source    []int
	cursor    int
	queueSize int
	arrival   int
	departed  int
	total     int
}

// BoardingStep describes one passenger boarding.
type BoardingStep struct {
	Passenger Passenger
	Slot      int
	Vehicle   *Vehicle
	Boarded   int
	Full      bool
	// Appended is the passenger pulled from the source to refill the tail.
	Appended *Passenger
}

// NewBoard builds the starting board for a level. Vehicle ids follow
// row-major order.
func NewBoard(level *Level) *Board {
	size := len(level.InitialMatrix)
	b := &Board{
		grid:      make([][]*Vehicle, size),
		slots:     make([]Slot, level.Vacancy),
		source:    append([]int(nil), level.ItemQueue...),
		queueSize: level.VisibleQueue(),
	}

	n := 0
	for r, row := range level.InitialMatrix {
		b.grid[r] = make([]*Vehicle, size)
		for c, cell := range row {
			if cell.Empty() {
				continue
			}
			n++
			b.grid[r][c] = &Vehicle{
				ID:       "v" + strconv.Itoa(n),
				Color:    cell.Color,
				Capacity: cell.Capacity,
			}
		}
	}
	b.total = n

	for i := range b.slots {
		b.slots[i] = Slot{Index: i, ArrivalSeq: NotParked}
	}
	for len(b.queue) < b.queueSize && b.pull() {
	}
	return b
}

// pull appends the next non-skip source entry to the queue tail.
func (b *Board) pull() bool {
	for b.cursor < len(b.source) {
		i := b.cursor
		b.cursor++
		if b.source[i] == NoColor {
			continue
		}
		b.queue = append(b.queue, Passenger{ID: "p" + strconv.Itoa(i), Color: b.source[i]})
		return true
	}
	return false
}

// Size returns the grid dimension N.
func (b *Board) Size() int {
	return len(b.grid)
}

// InBounds reports whether pos lies on the grid.
func (b *Board) InBounds(pos Position) bool {
	return pos.Row >= 0 && pos.Row < len(b.grid) && pos.Col >= 0 && pos.Col < len(b.grid)
}

// VehicleAt returns the grid vehicle at pos, or nil.
func (b *Board) VehicleAt(pos Position) *Vehicle {
	if !b.InBounds(pos) {
		return nil
	}
	return b.grid[pos.Row][pos.Col]
}

// Slot returns a copy of slot i.
func (b *Board) Slot(i int) Slot {
	return b.slots[i]
}

// SlotCount returns the number of parking slots.
func (b *Board) SlotCount() int {
	return len(b.slots)
}

// Queue returns a copy of the waiting passengers, head first.
func (b *Board) Queue() []Passenger {
	return append([]Passenger(nil), b.queue...)
}

// Upcoming counts valid source entries not yet pulled into the queue.
func (b *Board) Upcoming() int {
	n := 0
	for _, color := range b.source[b.cursor:] {
		if color != NoColor {
			n++
		}
	}
	return n
}

// Departed returns how many vehicles left the lot.
func (b *Board) Departed() int {
	return b.departed
}

// VehiclesLeft counts vehicles still on the grid or parked.
func (b *Board) VehiclesLeft() int {
	return b.total - b.departed
}

// FreeSlot returns the lowest-indexed empty slot, or -1.
func (b *Board) FreeSlot() int {
	for i, s := range b.slots {
		if s.Empty() {
			return i
		}
	}
	return -1
}

// Park moves the vehicle at pos into the lowest empty slot. It returns the
// slot index, or a Reason when the dispatch is not allowed and nothing
// changed.
func (b *Board) Park(pos Position) (int, Reason) {
	if reason := b.CheckDispatch(pos); reason != "" {
		return -1, reason
	}
	slot := b.FreeSlot()
	v := b.grid[pos.Row][pos.Col]
	b.grid[pos.Row][pos.Col] = nil
	b.arrival++
	b.slots[slot] = Slot{Index: slot, Vehicle: v, Boarded: 0, ArrivalSeq: b.arrival}
	return slot, ""
}

// NextBoarding picks the slot the queue head would board: among parked
// vehicles of the head's color with spare seats, the one that arrived first.
func (b *Board) NextBoarding() (int, bool) {
	if len(b.queue) == 0 {
		return -1, false
	}
	head := b.queue[0]
	best := -1
	for i, s := range b.slots {
		if s.Empty() || s.Vehicle.Color != head.Color || s.Full() {
			continue
		}
		if best == -1 || s.ArrivalSeq < b.slots[best].ArrivalSeq {
			best = i
		}
	}
	return best, best != -1
}

// BoardHead seats the queue head in slot, pops it and refills the tail
// from the source.
func (b *Board) BoardHead(slot int) (BoardingStep, error) {
	if len(b.queue) == 0 {
		return BoardingStep{}, fmt.Errorf("board: queue is empty")
	}
	if slot < 0 || slot >= len(b.slots) {
		return BoardingStep{}, fmt.Errorf("board: slot %d out of range", slot)
	}
	s := &b.slots[slot]
	head := b.queue[0]
	if s.Empty() || s.Vehicle.Color != head.Color || s.Full() {
		return BoardingStep{}, fmt.Errorf("board: slot %d cannot take passenger %s", slot, head.ID)
	}

	s.Boarded++
	b.queue = b.queue[1:]
	step := BoardingStep{
		Passenger: head,
		Slot:      slot,
		Vehicle:   s.Vehicle,
		Boarded:   s.Boarded,
		Full:      s.Boarded == s.Vehicle.Capacity,
	}
	if b.pull() {
		tail := b.queue[len(b.queue)-1]
		step.Appended = &tail
	}
	return step, nil
}

// ClearSlot removes the vehicle parked in slot. It returns nil when the
// slot was already empty.
func (b *Board) ClearSlot(slot int) *Vehicle {
	if slot < 0 || slot >= len(b.slots) {
		return nil
	}
	v := b.slots[slot].Vehicle
	if v == nil {
		return nil
	}
	b.slots[slot] = Slot{Index: slot, ArrivalSeq: NotParked}
	b.departed++
	return v
}

// Settle runs boarding and departures until no passenger can board. It
// returns the number of passengers seated.
func (b *Board) Settle() int {
	seated := 0
	for {
		slot, ok := b.NextBoarding()
		if !ok {
			return seated
		}
		step, err := b.BoardHead(slot)
		if err != nil {
			return seated
		}
		seated++
		if step.Full {
			b.ClearSlot(slot)
		}
	}
}

// Cleared reports whether every vehicle has departed.
func (b *Board) Cleared() bool {
	return b.departed == b.total
}

// Stuck reports whether the game cannot continue: vehicles remain but none
// can be dispatched.
func (b *Board) Stuck() bool {
	return !b.Cleared() && len(b.MovableCells()) == 0
}

// Clone returns an independent copy. Vehicles are immutable and shared.
func (b *Board) Clone() *Board {
	c := *b
	c.grid = make([][]*Vehicle, len(b.grid))
	for r := range b.grid {
		c.grid[r] = append([]*Vehicle(nil), b.grid[r]...)
	}
	c.slots = append([]Slot(nil), b.slots...)
	c.queue = append([]Passenger(nil), b.queue...)
	return &c
}

// Key encodes the parts of the board that affect future play. Arrival
// numbers are reduced to their relative order.
func (b *Board) Key() string {
	var sb strings.Builder
	for _, row := range b.grid {
		for _, v := range row {
			if v == nil {
				sb.WriteByte('.')
			} else {
				sb.WriteString(v.ID)
			}
			sb.WriteByte(',')
		}
	}
	sb.WriteByte('|')
	for _, s := range b.slots {
		if s.Vehicle == nil {
			sb.WriteString("_;")
			continue
		}
		rank := 0
		for _, o := range b.slots {
			if o.Vehicle != nil && o.ArrivalSeq < s.ArrivalSeq {
				rank++
			}
		}
		fmt.Fprintf(&sb, "%s:%d:%d;", s.Vehicle.ID, s.Boarded, rank)
	}
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(b.cursor))
	sb.WriteByte('/')
	sb.WriteString(strconv.Itoa(len(b.queue)))
	return sb.String()
}

// Snapshot copies the board into a GameState. Callers fill in the
// engine-level fields.
func (b *Board) Snapshot() *GameState {
	grid := make([][]*Vehicle, len(b.grid))
	for r, row := range b.grid {
		grid[r] = make([]*Vehicle, len(row))
		for c, v := range row {
			if v != nil {
				cp := *v
				grid[r][c] = &cp
			}
		}
	}
	slots := make([]Slot, len(b.slots))
	for i, s := range b.slots {
		slots[i] = s
		if s.Vehicle != nil {
			cp := *s.Vehicle
			slots[i].Vehicle = &cp
		}
	}
	return &GameState{
		Grid:           grid,
		Slots:          slots,
		Queue:          b.Queue(),
		Upcoming:       b.Upcoming(),
		Movable:        b.MovableCells(),
		ArrivalCounter: b.arrival,
		VehiclesLeft:   b.VehiclesLeft(),
		Departed:       b.departed,
	}
}
