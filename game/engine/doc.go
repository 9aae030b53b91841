// Package engine provides the core game logic for Parking Jam.
//
// The engine package implements the puzzle rules:
//   - A square grid of colored vehicles, each with a seat capacity
//   - A row of parking slots filled from the lowest index
//   - A FIFO passenger queue refilled from the level's item queue
//   - Boarding, departure, victory and game over detection
//
// Core Types:
//
// Board holds the pure puzzle state and exposes the movability rule and
// the individual mutations (park, board, clear). GameEngine wraps a Board
// with the animation lock and runs the dispatch pipeline, calling a
// Presenter for every transition and waiting for it to finish.
//
// Usage:
//
//	level, err := engine.ParseLevel(data)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(level)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res := gameEngine.Dispatch(ctx, engine.Position{Row: 0, Col: 0})
//	if !res.Accepted {
//		fmt.Println("ignored:", res.Reason)
//	}
//
// Game Rules:
//
// A vehicle may leave the grid when a slot is free and it sits in the first
// row or next to an empty cell. Once parked, the passenger at the head of
// the queue boards the earliest-arrived vehicle of its color that still has
// a seat. Full vehicles depart and free their slot. The game is won when
// every vehicle has departed and lost when no remaining vehicle can move.
package engine
