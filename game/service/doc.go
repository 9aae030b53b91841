// Package service provides the business logic layer for Parking Jam.
//
// The service package implements:
//   - Session management, one engine per session
//   - Level lookup and storage
//   - Dispatch requests and the events they produce
//   - Paginated action history and hints
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// LevelManager loads, lists and stores levels.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns its own engine, presenter and board;
// nothing is shared between sessions. Rule violations such as tapping a
// blocked car are reported in DispatchResult, while missing sessions or
// levels are returned as errors wrapping ErrSessionNotFound or
// ErrLevelNotFound.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	levelMgr, _ := config.NewManager("levels")
//	gameService := service.NewGameService(sessionMgr, levelMgr,
//		service.WithPresenterFactory(hub.Presenter))
//
//	info, err := gameService.CreateSession(ctx, "starter")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	res, err := gameService.Dispatch(ctx, info.ID, engine.Position{Row: 0, Col: 1})
package service
