// Package mcp exposes the parking game to AI agents over the Model Context
// Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API, and responses are rendered as plain text an agent can read.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state: grid, slots, queue and dispatchable cars
//   - dispatch_vehicle: send the car at (row, col) to a free slot
//   - reset_game, action_history
//   - list_levels, hint, describe_cell, game_instructions
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
// A dispatch waits for its animations, so the HTTP client timeout is generous.
package mcp
