package engine

import "sort"

// ColorBalance compares seats offered and passengers waiting for one color.
type ColorBalance struct {
	Color      int    `json:"color"`
	Name       string `json:"name"`
	Vehicles   int    `json:"vehicles"`
	Seats      int    `json:"seats"`
	Passengers int    `json:"passengers"`
}

// Balanced reports whether every seat can be filled and every passenger seated.
func (c ColorBalance) Balanced() bool {
	return c.Seats == c.Passengers
}

// CountVehicles counts the vehicles in a level's matrix
func CountVehicles(level *Level) int {
	count := 0
	for _, row := range level.InitialMatrix {
		for _, cell := range row {
			if !cell.Empty() {
				count++
			}
		}
	}
	return count
}

// CountPassengers counts the non-skip entries of a level's queue
func CountPassengers(level *Level) int {
	count := 0
	for _, color := range level.ItemQueue {
		if color != NoColor {
			count++
		}
	}
	return count
}

// LevelBalance returns seats versus passengers per color, ordered by color.
// A level can only be cleared when every color is balanced.
func LevelBalance(level *Level) []ColorBalance {
	byColor := map[int]*ColorBalance{}
	get := func(color int) *ColorBalance {
		if b, ok := byColor[color]; ok {
			return b
		}
		b := &ColorBalance{Color: color, Name: ColorName(color)}
		byColor[color] = b
		return b
	}
	for _, row := range level.InitialMatrix {
		for _, cell := range row {
			if cell.Empty() {
				continue
			}
			b := get(cell.Color)
			b.Vehicles++
			b.Seats += cell.Capacity
		}
	}
	for _, color := range level.ItemQueue {
		if color != NoColor {
			get(color).Passengers++
		}
	}

	out := make([]ColorBalance, 0, len(byColor))
	for _, b := range byColor {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Color < out[j].Color })
	return out
}

// IsBalanced reports whether every color of a level is balanced.
func IsBalanced(level *Level) bool {
	for _, b := range LevelBalance(level) {
		if !b.Balanced() {
			return false
		}
	}
	return true
}

// Neighbors returns the in-bounds orthogonal neighbors of pos.
func (b *Board) Neighbors(pos Position) []Position {
	var out []Position
	for _, d := range neighbors {
		n := Position{Row: pos.Row + d.Row, Col: pos.Col + d.Col}
		if b.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}
