package engine

var neighbors = [4]Position{{-1, 0}, {1, 0}, {0, -1}, {0, 1}}

// CheckDispatch returns the reason pos cannot be dispatched, or "" when it
// can. It is derived from the current board on every call.
func (b *Board) CheckDispatch(pos Position) Reason {
	if !b.InBounds(pos) {
		return ReasonOutOfBounds
	}
	if b.grid[pos.Row][pos.Col] == nil {
		return ReasonEmptyCell
	}
	if b.FreeSlot() == -1 {
		return ReasonNoFreeSlot
	}
	if !b.hasExit(pos) {
		return ReasonNotMovable
	}
	return ""
}

// hasExit reports whether the vehicle sits in row 0 or next to an empty cell.
func (b *Board) hasExit(pos Position) bool {
	if pos.Row == 0 {
		return true
	}
	for _, d := range neighbors {
		n := Position{Row: pos.Row + d.Row, Col: pos.Col + d.Col}
		if b.InBounds(n) && b.grid[n.Row][n.Col] == nil {
			return true
		}
	}
	return false
}

// MovableCells lists every movable vehicle position in row-major order.
// The list is empty whenever all slots are occupied.
func (b *Board) MovableCells() []Position {
	cells := []Position{}
	if b.FreeSlot() == -1 {
		return cells
	}
	for r, row := range b.grid {
		for c, v := range row {
			pos := Position{Row: r, Col: c}
			if v != nil && b.hasExit(pos) {
				cells = append(cells, pos)
			}
		}
	}
	return cells
}

// MovableMask returns one boolean per grid cell.
func (b *Board) MovableMask() [][]bool {
	mask := make([][]bool, len(b.grid))
	for r := range b.grid {
		mask[r] = make([]bool, len(b.grid))
	}
	for _, p := range b.MovableCells() {
		mask[p.Row][p.Col] = true
	}
	return mask
}
