package service

import (
	"time"

	"github.com/wricardo/parkingjam/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string            `json:"id"`
	LevelID        string            `json:"level_id"`
	CreatedAt      time.Time         `json:"created_at"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
	GameState      *engine.GameState `json:"game_state"`
	Level          *engine.Level     `json:"level"`
}

// DispatchResult contains the result of a dispatch request
type DispatchResult struct {
	Accepted  bool              `json:"accepted"`
	Reason    engine.Reason     `json:"reason,omitempty"`
	Slot      int               `json:"slot"`
	Message   string            `json:"message"`
	GameState *engine.GameState `json:"game_state"`
	Events    []GameEvent       `json:"events,omitempty"`
}

// GameEvent represents an event that occurred during gameplay
type GameEvent struct {
	Type        string           `json:"type"` // "dispatch", "board", "depart", "victory", "stuck"
	Message     string           `json:"message"`
	Timestamp   time.Time        `json:"timestamp"`
	Position    *engine.Position `json:"position,omitempty"`
	Slot        int              `json:"slot"`
	VehicleID   string           `json:"vehicle_id,omitempty"`
	PassengerID string           `json:"passenger_id,omitempty"`
	Color       string           `json:"color,omitempty"`
}

// HistoryOptions configures action history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated action history
type HistoryResponse struct {
	Actions      []engine.ActionEntry `json:"actions"`
	TotalActions int                  `json:"total_actions"`
	Page         int                  `json:"page"`
	PageSize     int                  `json:"page_size"`
	TotalPages   int                  `json:"total_pages"`
	HasNext      bool                 `json:"has_next"`
	HasPrevious  bool                 `json:"has_previous"`
}

// LevelInfo provides information about a level file
type LevelInfo struct {
	Filename    string `json:"filename"`
	LevelID     string `json:"level_id"` // The identifier to use for session creation
	Name        string `json:"name"`     // Display name
	Description string `json:"description"`
	Format      string `json:"format"` // "json" or "hcl"
	GridSize    int    `json:"grid_size"`
	Vacancy     int    `json:"vacancy"`
	Vehicles    int    `json:"vehicles"`
	Passengers  int    `json:"passengers"`
	Balanced    bool   `json:"balanced"`
}

// HintResult suggests the next vehicle to dispatch
type HintResult struct {
	Found     bool              `json:"found"`
	Position  *engine.Position  `json:"position,omitempty"`
	Vehicle   *engine.Vehicle   `json:"vehicle,omitempty"`
	Solution  []engine.Position `json:"solution,omitempty"`
	Nodes     int               `json:"nodes"`
	Exhausted bool              `json:"exhausted"`
	// Busy is set when a pipeline was running and no search was made.
	Busy    bool   `json:"busy,omitempty"`
	Message string `json:"message"`
}

// CellInfo describes one grid cell from the player's point of view
type CellInfo struct {
	Position       engine.Position `json:"position"`
	Vehicle        *engine.Vehicle `json:"vehicle,omitempty"`
	ColorName      string          `json:"color_name,omitempty"`
	Movable        bool            `json:"movable"`
	Reason         engine.Reason   `json:"reason,omitempty"`
	EmptyNeighbors int             `json:"empty_neighbors"`
	FreeSlot       int             `json:"free_slot"`
}
