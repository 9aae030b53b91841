package main

import (
	"context"
	"sort"

	"github.com/wricardo/parkingjam/game/engine"
)

// Strategy picks the next car to dispatch. ok is false when it has none.
type Strategy interface {
	NextMove(ctx context.Context, state *engine.GameState) (pos engine.Position, ok bool, err error)
	// Reset is called before each attempt.
	Reset(attempt int)
}

// GreedyStrategy sends the car whose color is wanted soonest by the queue.
// Ties are broken differently on every attempt so retries explore other orders.
type GreedyStrategy struct {
	attempt int
}

func NewGreedyStrategy() *GreedyStrategy {
	return &GreedyStrategy{}
}

func (s *GreedyStrategy) Reset(attempt int) {
	s.attempt = attempt
}

func (s *GreedyStrategy) NextMove(_ context.Context, state *engine.GameState) (engine.Position, bool, error) {
	if len(state.Movable) == 0 {
		return engine.Position{}, false, nil
	}

	rank := func(color int) int {
		for i, p := range state.Queue {
			if p.Color == color {
				return i
			}
		}
		return len(state.Queue)
	}

	moves := append([]engine.Position(nil), state.Movable...)
	ranks := make(map[engine.Position]int, len(moves))
	for _, pos := range moves {
		ranks[pos] = rank(state.Grid[pos.Row][pos.Col].Color)
	}
	sort.SliceStable(moves, func(i, j int) bool { return ranks[moves[i]] < ranks[moves[j]] })

	best := 0
	for best < len(moves) && ranks[moves[best]] == ranks[moves[0]] {
		best++
	}
	return moves[s.attempt%best], true, nil
}

// HintStrategy asks the server's solver for every move and falls back to
// the greedy choice when no solution is known.
type HintStrategy struct {
	client   *Client
	fallback *GreedyStrategy
}

func NewHintStrategy(c *Client) *HintStrategy {
	return &HintStrategy{client: c, fallback: NewGreedyStrategy()}
}

func (s *HintStrategy) Reset(attempt int) {
	s.fallback.Reset(attempt)
}

func (s *HintStrategy) NextMove(ctx context.Context, state *engine.GameState) (engine.Position, bool, error) {
	hint, err := s.client.Hint(ctx)
	if err != nil {
		return engine.Position{}, false, err
	}
	if hint.Found && hint.Position != nil {
		return *hint.Position, true, nil
	}
	return s.fallback.NextMove(ctx, state)
}
