package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/wricardo/parkingjam/game/engine"
	"github.com/wricardo/parkingjam/game/solver"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions   SessionManager
	levels     LevelManager
	mu         sync.RWMutex
	presenters func(sessionID string) engine.Presenter
	observer   engine.Observer
	timings    *engine.Timings
	solverOpts solver.Options
	logger     *log.Logger
}

// Option configures the game service.
type Option func(*gameServiceImpl)

// WithPresenterFactory gives every new session a presenter bound to its id.
func WithPresenterFactory(f func(sessionID string) engine.Presenter) Option {
	return func(s *gameServiceImpl) {
		s.presenters = f
	}
}

// WithObserver attaches an observer to every engine.
func WithObserver(o engine.Observer) Option {
	return func(s *gameServiceImpl) {
		s.observer = o
	}
}

// WithTimings overrides the animation durations of new sessions.
func WithTimings(t engine.Timings) Option {
	return func(s *gameServiceImpl) {
		s.timings = &t
	}
}

// WithSolverOptions tunes hint searches.
func WithSolverOptions(o solver.Options) Option {
	return func(s *gameServiceImpl) {
		s.solverOpts = o
	}
}

// WithLogger sets the service logger.
func WithLogger(l *log.Logger) Option {
	return func(s *gameServiceImpl) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, levels LevelManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		levels:   levels,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// levelID returns the level_id for a given level name, used for consistent API responses
func (s *gameServiceImpl) levelID(name string) string {
	available, err := s.levels.ListLevels()
	if err == nil {
		for _, lvl := range available {
			if lvl.Name == name {
				return lvl.LevelID
			}
		}
	}
	if name == "" {
		return "default"
	}
	return name
}

// newEngine is the EngineFactory handed to the session manager.
func (s *gameServiceImpl) newEngine(sessionID string, level *engine.Level) (*engine.GameEngine, error) {
	opts := []engine.Option{
		engine.WithObserver(s.observer),
		engine.WithLogger(s.logger.With("session", sessionID)),
	}
	if s.presenters != nil {
		opts = append(opts, engine.WithPresenter(s.presenters(sessionID)))
	}
	if s.timings != nil {
		opts = append(opts, engine.WithTimings(*s.timings))
	}
	return engine.NewEngine(level, opts...)
}

func (s *gameServiceImpl) info(sess *Session, levelID string) *SessionInfo {
	if levelID == "" {
		levelID = s.levelID(sess.Level.Name)
	}
	return &SessionInfo{
		ID:             sess.ID,
		LevelID:        levelID,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		GameState:      sess.Engine.GetState(),
		Level:          sess.Level,
	}
}

func (s *gameServiceImpl) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// CreateSession creates a new game session
func (s *gameServiceImpl) CreateSession(ctx context.Context, levelID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var level *engine.Level
	if levelID != "" {
		var err error
		level, err = s.levels.LoadLevel(levelID)
		if err != nil {
			if errors.Is(err, ErrLevelNotFound) {
				if available, listErr := s.levels.ListLevels(); listErr == nil && len(available) > 0 {
					ids := make([]string, 0, len(available))
					for _, lvl := range available {
						ids = append(ids, lvl.LevelID)
					}
					return nil, fmt.Errorf("level '%s' not found, available levels: %v: %w", levelID, ids, ErrLevelNotFound)
				}
			}
			return nil, fmt.Errorf("failed to load level %s: %w", levelID, err)
		}
	} else {
		level = s.levels.GetDefault()
	}

	sess, err := s.sessions.Create("", level, s.newEngine)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Info("session created", "session", sess.ID, "level", level.Name)

	return s.info(sess, levelID), nil
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess, ""), nil
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess, ""))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	s.logger.Info("session deleted", "session", sessionID)
	return nil
}

// Dispatch sends the vehicle at pos to a parking slot. Rule violations are
// reported in the result, not as errors.
func (s *gameServiceImpl) Dispatch(ctx context.Context, sessionID string, pos engine.Position) (*DispatchResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	res := sess.Engine.Dispatch(ctx, pos)
	result := &DispatchResult{
		Accepted:  res.Accepted,
		Reason:    res.Reason,
		Slot:      res.Slot,
		GameState: res.GameState,
		Events:    convertEvents(res.Events),
	}
	if res.Accepted {
		result.Message = res.GameState.Message
	} else {
		result.Message = rejectionMessage(pos, res.Reason)
	}
	return result, nil
}

func rejectionMessage(pos engine.Position, reason engine.Reason) string {
	switch reason {
	case engine.ReasonBusy:
		return "Cars are still moving, try again in a moment"
	case engine.ReasonOutOfBounds:
		return fmt.Sprintf("%s is outside the parking lot", pos)
	case engine.ReasonEmptyCell:
		return fmt.Sprintf("There is no car at %s", pos)
	case engine.ReasonNotMovable:
		return fmt.Sprintf("The car at %s is blocked", pos)
	case engine.ReasonNoFreeSlot:
		return "All parking slots are taken"
	case engine.ReasonGameOver:
		return "The game is over, reset to play again"
	}
	return string(reason)
}

func convertEvents(events []engine.Event) []GameEvent {
	if len(events) == 0 {
		return nil
	}
	now := time.Now()
	out := make([]GameEvent, 0, len(events))
	for _, ev := range events {
		ge := GameEvent{
			Type:        string(ev.Type),
			Message:     ev.Message,
			Timestamp:   now,
			Position:    ev.From,
			Slot:        ev.Slot,
			VehicleID:   ev.VehicleID,
			PassengerID: ev.PassengerID,
		}
		if ev.Color != engine.NoColor {
			ge.Color = engine.ColorName(ev.Color)
		}
		out = append(out, ge)
	}
	return out
}

// Reset restarts the session's level
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	state, err := sess.Engine.Reset()
	if err != nil {
		return state, fmt.Errorf("reset session %s: %w", sessionID, err)
	}
	return state, nil
}

// GetGameState returns the current snapshot of a session
func (s *gameServiceImpl) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.GetState(), nil
}

// GetActionHistory returns a page of the cumulative action history
func (s *gameServiceImpl) GetActionHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.GetHistory()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order == "" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	actions := []engine.ActionEntry{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			actions = append(actions, history[i])
		}
	} else if start < total {
		actions = append(actions, history[start:end]...)
	}

	return &HistoryResponse{
		Actions:      actions,
		TotalActions: total,
		Page:         opts.Page,
		PageSize:     opts.Limit,
		TotalPages:   totalPages,
		HasNext:      opts.Page < totalPages,
		HasPrevious:  opts.Page > 1,
	}, nil
}

// DescribeCell explains whether the vehicle at pos can be dispatched
func (s *gameServiceImpl) DescribeCell(ctx context.Context, sessionID string, pos engine.Position) (*CellInfo, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	board := sess.Engine.CloneBoard()
	reason := sess.Engine.CheckDispatch(pos)
	info := &CellInfo{
		Position: pos,
		Movable:  reason == "",
		Reason:   reason,
		FreeSlot: board.FreeSlot(),
	}
	if v := board.VehicleAt(pos); v != nil {
		cp := *v
		info.Vehicle = &cp
		info.ColorName = engine.ColorName(v.Color)
	}
	for _, n := range board.Neighbors(pos) {
		if board.VehicleAt(n) == nil {
			info.EmptyNeighbors++
		}
	}
	return info, nil
}

// Hint searches for a dispatch order that clears the board from its
// current state and returns the first step.
func (s *gameServiceImpl) Hint(ctx context.Context, sessionID string) (*HintResult, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	if sess.Engine.IsBusy() {
		return &HintResult{Busy: true, Message: "Cars are still moving, ask again when they stop"}, nil
	}
	state := sess.Engine.GetState()
	if state.Victory {
		return &HintResult{Message: "The lot is already clear"}, nil
	}

	board := sess.Engine.CloneBoard()
	pos, res, err := solver.Hint(ctx, board, s.solverOpts)
	if err != nil {
		return nil, fmt.Errorf("hint for session %s: %w", sessionID, err)
	}

	hint := &HintResult{
		Found:     res.Solvable,
		Nodes:     res.Nodes,
		Exhausted: res.Exhausted,
		Solution:  res.Moves,
	}
	switch {
	case res.Solvable && len(res.Moves) == 0:
		hint.Found = false
		hint.Message = "The lot is already clear"
	case res.Solvable:
		hint.Position = &pos
		if v := board.VehicleAt(pos); v != nil {
			cp := *v
			hint.Vehicle = &cp
			hint.Message = fmt.Sprintf("Send the %s car at %s", engine.ColorName(v.Color), pos)
		}
	case res.Exhausted:
		hint.Message = fmt.Sprintf("No solution found within %d positions", res.Nodes)
	default:
		hint.Message = "The lot cannot be cleared from here, reset to try again"
	}
	s.logger.Debug("hint", "session", sessionID, "found", hint.Found, "nodes", res.Nodes)
	return hint, nil
}

// ListLevels returns the available levels
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	return s.levels.ListLevels()
}

// LoadLevel returns a level by id
func (s *gameServiceImpl) LoadLevel(ctx context.Context, levelID string) (*engine.Level, error) {
	return s.levels.LoadLevel(levelID)
}

// SaveLevel validates and stores a level
func (s *gameServiceImpl) SaveLevel(ctx context.Context, levelID string, level *engine.Level) error {
	return s.levels.SaveLevel(levelID, level)
}
