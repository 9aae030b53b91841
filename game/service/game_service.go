package service

import (
	"context"
	"errors"
	"time"

	"github.com/wricardo/parkingjam/game/engine"
)

// Sentinel errors shared by the service, session and level layers.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrLevelNotFound   = errors.New("level not found")
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, levelID string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Dispatch(ctx context.Context, sessionID string, pos engine.Position) (*DispatchResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.GameState, error)

	// Game State
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetActionHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)
	DescribeCell(ctx context.Context, sessionID string, pos engine.Position) (*CellInfo, error)
	Hint(ctx context.Context, sessionID string) (*HintResult, error)

	// Levels
	ListLevels(ctx context.Context) ([]*LevelInfo, error)
	LoadLevel(ctx context.Context, levelID string) (*engine.Level, error)
	SaveLevel(ctx context.Context, levelID string, level *engine.Level) error
}

// EngineFactory builds the engine for a new session.
type EngineFactory func(sessionID string, level *engine.Level) (*engine.GameEngine, error)

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id string, level *engine.Level, factory EngineFactory) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Count() int
}

// LevelManager handles level loading
type LevelManager interface {
	LoadLevel(name string) (*engine.Level, error)
	ListLevels() ([]*LevelInfo, error)
	GetDefault() *engine.Level
	SaveLevel(name string, level *engine.Level) error
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	Level          *engine.Level
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
