// Package api provides the HTTP REST API for the parking game.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions {"level_id": "starter"} - Create a session
//   - GET /api/sessions?sort=created|accessed&order=asc|desc&limit=N - List sessions
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game:
//   - GET /api/sessions/{id}/state - Current game state
//   - POST /api/sessions/{id}/dispatch {"row": 0, "col": 1} - Dispatch a vehicle
//   - POST /api/sessions/{id}/reset - Rebuild the board from its level
//   - GET /api/sessions/{id}/history?page=1&limit=20&order=desc - Action history
//   - GET /api/sessions/{id}/hint - Next dispatch of a known solution
//   - GET /api/sessions/{id}/cells/{row}/{col} - Describe one grid cell
//
// Levels:
//   - GET /api/levels - List levels
//   - GET /api/levels/{name} - Get a level definition
//   - POST /api/levels - Save a level (JSON body, optional "level_id")
//
// Other:
//   - GET /ws?session={id} - WebSocket stream of states and animations
//   - GET /metrics - Prometheus metrics, when configured
//   - GET /healthz - Liveness
//
// A dispatch request returns only after the whole pipeline, animations
// included, has finished. Rejected dispatches are 200 responses with
// "accepted": false and a reason. Errors are {"error": "..."} with 404 for
// unknown sessions or levels, 400 for invalid levels, 409 when the engine is
// busy and 500 otherwise.
package api
