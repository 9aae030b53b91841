// Package tui is a terminal client for a single game engine, built on
// bubbletea.
//
// Model renders the lot, the parking slots and the passenger queue, and
// runs dispatches, resets and hints as commands so the UI keeps drawing
// while an engine pipeline runs. Presenter is the engine.Presenter that
// turns transitions into AnimationMsg values sent to the program; each
// call blocks for the animation duration, which paces the engine.
//
// Typical wiring:
//
//	eng, _ := engine.NewEngine(level)
//	p := tea.NewProgram(tui.New(ctx, eng, solver.Options{}))
//	eng.SetPresenter(tui.NewPresenter(p))
//	p.Run()
package tui
