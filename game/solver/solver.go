// Package solver searches dispatch orders that clear a Parking Jam board.
//
// The search works on engine.Board copies and never animates. Each branch
// parks one movable vehicle and settles boarding and departures, so a
// solution is the list of grid positions a player has to tap.
package solver

import (
	"context"
	"fmt"
	"sort"

	"github.com/wricardo/parkingjam/game/engine"
)

// DefaultMaxNodes bounds a search when Options.MaxNodes is zero.
const DefaultMaxNodes = 200000

// Options tune a search.
type Options struct {
	// MaxNodes is the number of distinct boards to expand before giving up.
	MaxNodes int
}

// Result is the outcome of a search.
type Result struct {
	Solvable bool              `json:"solvable"`
	Moves    []engine.Position `json:"moves"`
	Nodes    int               `json:"nodes"`
	// Exhausted is set when the node limit stopped the search, in which
	// case an unsolvable verdict is not final.
	Exhausted bool `json:"exhausted"`
}

type search struct {
	ctx   context.Context
	max   int
	nodes int
	seen  map[string]bool
	path  []engine.Position
	limit bool
}

// Solve runs a depth-first search from board. The board is not modified.
func Solve(ctx context.Context, board *engine.Board, opts Options) (*Result, error) {
	maxNodes := opts.MaxNodes
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	s := &search{
		ctx:  ctx,
		max:  maxNodes,
		seen: make(map[string]bool),
	}

	start := board.Clone()
	start.Settle()
	ok, err := s.dfs(start)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Solvable:  ok,
		Moves:     []engine.Position{},
		Nodes:     s.nodes,
		Exhausted: s.limit,
	}
	if ok {
		res.Moves = append(res.Moves, s.path...)
	}
	return res, nil
}

func (s *search) dfs(b *engine.Board) (bool, error) {
	if b.Cleared() {
		return true, nil
	}
	if s.limit {
		return false, nil
	}
	key := b.Key()
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true

	s.nodes++
	if s.nodes > s.max {
		s.limit = true
		return false, nil
	}
	if s.nodes%1024 == 0 {
		if err := s.ctx.Err(); err != nil {
			return false, err
		}
	}

	for _, pos := range orderMoves(b) {
		next := b.Clone()
		if _, reason := next.Park(pos); reason != "" {
			continue
		}
		next.Settle()

		s.path = append(s.path, pos)
		ok, err := s.dfs(next)
		if err != nil || ok {
			return ok, err
		}
		s.path = s.path[:len(s.path)-1]
	}
	return false, nil
}

// orderMoves tries vehicles wanted soonest by the queue first.
func orderMoves(b *engine.Board) []engine.Position {
	moves := b.MovableCells()
	queue := b.Queue()
	rank := func(color int) int {
		for i, p := range queue {
			if p.Color == color {
				return i
			}
		}
		return len(queue)
	}
	sort.SliceStable(moves, func(i, j int) bool {
		return rank(b.VehicleAt(moves[i]).Color) < rank(b.VehicleAt(moves[j]).Color)
	})
	return moves
}

// Hint returns the first move of a solution from board.
func Hint(ctx context.Context, board *engine.Board, opts Options) (engine.Position, *Result, error) {
	res, err := Solve(ctx, board, opts)
	if err != nil {
		return engine.Position{}, nil, err
	}
	if !res.Solvable || len(res.Moves) == 0 {
		return engine.Position{}, res, nil
	}
	return res.Moves[0], res, nil
}

// Replay applies moves to a copy of board, settling after each one.
func Replay(board *engine.Board, moves []engine.Position) (*engine.Board, error) {
	b := board.Clone()
	b.Settle()
	for i, pos := range moves {
		if _, reason := b.Park(pos); reason != "" {
			return b, fmt.Errorf("move %d %s rejected: %s", i+1, pos, reason)
		}
		b.Settle()
	}
	return b, nil
}
