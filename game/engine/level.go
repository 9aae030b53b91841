package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidLevel is wrapped by every level validation failure.
var ErrInvalidLevel = errors.New("invalid level")

// Cell is one entry of a level's initial matrix: either empty or a vehicle
// described by color and capacity. In JSON an empty cell is 0 and a vehicle
// is [colorId, capacity].
type Cell struct {
	Color    int
	Capacity int
}

// Empty reports whether the cell holds no vehicle.
func (c Cell) Empty() bool {
	return c.Color == NoColor
}

// MarshalJSON writes 0 for empty cells and [color, capacity] otherwise.
func (c Cell) MarshalJSON() ([]byte, error) {
	if c.Empty() {
		return []byte("0"), nil
	}
	return json.Marshal([2]int{c.Color, c.Capacity})
}

// UnmarshalJSON accepts 0, null or a two element array.
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = Cell{}
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var pair []int
		if err := json.Unmarshal(data, &pair); err != nil {
			return fmt.Errorf("cell: %w", err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("cell: expected [color, capacity], got %d values", len(pair))
		}
		*c = Cell{Color: pair[0], Capacity: pair[1]}
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cell: %w", err)
	}
	if n != 0 {
		return fmt.Errorf("cell: bare number must be 0, got %d", n)
	}
	*c = Cell{}
	return nil
}

// LevelMessages holds optional player-facing texts.
type LevelMessages struct {
	Welcome string `json:"welcome,omitempty"`
	Victory string `json:"victory,omitempty"`
	Stuck   string `json:"stuck,omitempty"`
}

// Level is a puzzle definition: the starting grid, the number of parking
// slots and the ordered passenger source.
type Level struct {
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Vacancy       int           `json:"vacancy"`
	QueueSize     int           `json:"queue_size,omitempty"`
	InitialMatrix [][]Cell      `json:"initial_matrix"`
	ItemQueue     []int         `json:"item_queue"`
	Messages      LevelMessages `json:"messages,omitempty"`
}

// VisibleQueue returns how many passengers may wait in the queue at once.
func (l *Level) VisibleQueue() int {
	if l.QueueSize > 0 {
		return l.QueueSize
	}
	return DefaultQueueLen
}

func (l *Level) welcome() string {
	if l.Messages.Welcome != "" {
		return l.Messages.Welcome
	}
	return "Tap a car that can reach the exit to send it to a parking slot."
}

func (l *Level) victory() string {
	if l.Messages.Victory != "" {
		return l.Messages.Victory
	}
	return "Victory! Every car has left the lot."
}

func (l *Level) stuck() string {
	if l.Messages.Stuck != "" {
		return l.Messages.Stuck
	}
	return "No car can move. Game over!"
}

// ValidateLevel checks a level for structural correctness.
func ValidateLevel(level *Level) error {
	if level == nil {
		return fmt.Errorf("%w: level is nil", ErrInvalidLevel)
	}
	if level.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLevel)
	}
	if level.Vacancy < MinVacancy || level.Vacancy > MaxVacancy {
		return fmt.Errorf("%w: vacancy must be between %d and %d, got %d", ErrInvalidLevel, MinVacancy, MaxVacancy, level.Vacancy)
	}
	if level.QueueSize < 0 || level.QueueSize > MaxQueueSize {
		return fmt.Errorf("%w: queue_size must be between 0 and %d, got %d", ErrInvalidLevel, MaxQueueSize, level.QueueSize)
	}

	size := len(level.InitialMatrix)
	if size < MinGridSize || size > MaxGridSize {
		return fmt.Errorf("%w: initial_matrix must have between %d and %d rows, got %d", ErrInvalidLevel, MinGridSize, MaxGridSize, size)
	}

	vehicles := 0
	for r, row := range level.InitialMatrix {
		if len(row) != size {
			return fmt.Errorf("%w: row %d must have %d cells to keep the grid square, got %d", ErrInvalidLevel, r, size, len(row))
		}
		for c, cell := range row {
			if cell.Empty() {
				continue
			}
			if cell.Color < MinColor || cell.Color > MaxColor {
				return fmt.Errorf("%w: cell (%d,%d) has color %d outside %d..%d", ErrInvalidLevel, r, c, cell.Color, MinColor, MaxColor)
			}
			if cell.Capacity < 1 || cell.Capacity > MaxCapacity {
				return fmt.Errorf("%w: cell (%d,%d) has capacity %d outside 1..%d", ErrInvalidLevel, r, c, cell.Capacity, MaxCapacity)
			}
			vehicles++
		}
	}
	if vehicles == 0 {
		return fmt.Errorf("%w: initial_matrix must contain at least one vehicle", ErrInvalidLevel)
	}

	for i, color := range level.ItemQueue {
		if color != NoColor && (color < MinColor || color > MaxColor) {
			return fmt.Errorf("%w: item_queue[%d] has color %d outside %d..%d", ErrInvalidLevel, i, color, MinColor, MaxColor)
		}
	}

	return nil
}

// ParseLevel decodes a JSON level and validates it.
func ParseLevel(data []byte) (*Level, error) {
	var level Level
	if err := json.Unmarshal(data, &level); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}
	if err := ValidateLevel(&level); err != nil {
		return nil, err
	}
	return &level, nil
}

// DefaultLevel returns the built-in level used when no level files exist.
func DefaultLevel() *Level {
	v := func(color, capacity int) Cell { return Cell{Color: color, Capacity: capacity} }
	return &Level{
		Name:        "starter",
		Description: "Three colors, three slots. Clear the lot.",
		Vacancy:     3,
		InitialMatrix: [][]Cell{
			{v(1, 2), v(2, 2), v(3, 2)},
			{v(2, 2), {}, v(1, 2)},
			{v(3, 2), v(1, 2), v(2, 2)},
		},
		ItemQueue: []int{1, 1, 2, 2, 3, 3, 2, 2, 1, 1, 0, 1, 1, 3, 3, 2, 2},
	}
}
