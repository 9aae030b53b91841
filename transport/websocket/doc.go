// Package websocket streams parking game sessions to browser tabs.
//
// A Hub groups connections by session ID (passed as ?session=<id>). Run owns
// the client set; BroadcastToSession pushes state snapshots after each
// pipeline and CloseSession drops every client of a removed session.
//
// Hub.Presenter returns an engine.Presenter for one session. Each animation
// is sent as an animate_move or animate_fade_out message and the call waits
// the animation duration so the engine paces itself on what the browser
// shows. With no client attached the presenter completes immediately.
//
// Messages are JSON objects:
//
//	{"session_id": "ab12", "event": "state_update", "game_state": {...}}
//	{"session_id": "ab12", "event": "animate_move",
//	 "animation": {"object": {"kind": "vehicle", "id": "v3", "color": 2},
//	               "from": {"area": "grid", ...}, "to": {"area": "slot", ...},
//	               "duration_ms": 300}}
//
// Clients only listen; anything they send is discarded.
package websocket
