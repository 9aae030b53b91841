package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/parkingjam/game/engine"
	"github.com/wricardo/parkingjam/game/service"
)

// queuePreview is how many waiting passengers are spelled out in text output.
const queuePreview = 12

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// Dispatches block while browser tabs watch the animations.
			Timeout: 60 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Parking Jam",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Parking Jam - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Send every car from the parking lot to the slots so that waiting passengers
of the same color can board. Full cars leave. Clear the lot to win.

AVAILABLE TOOLS:
- create_session: Create new game session
- list_sessions / get_session: Inspect sessions
- game_state: Board, slots, queue and movable cars
- dispatch_vehicle: Send the car at (row, col) to a free slot - requires intent explanation
- reset_game: Rebuild the level from scratch
- action_history: View past dispatches
- list_levels: List available levels
- hint: Next dispatch of a known solution
- describe_cell: Why a cell can or cannot be dispatched
- game_instructions: Full rules

NOTE: The 'intent' parameter on dispatch_vehicle serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session with optional level selection",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"level_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the level to play (optional, see list_levels)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_state",
		Description: "Get the current board, parking slots, passenger queue and movable cars",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGameState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "dispatch_vehicle",
		Description: "Send the car at (row, col) to the lowest free parking slot. Passengers of its color board automatically and full cars leave.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row of the car (0 is the exit row)",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column of the car",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this dispatch (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleDispatch)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_game",
		Description: "Reset the game to the level's initial state",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "action_history",
		Description: "Get dispatch history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleActionHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_levels",
		Description: "List available levels",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLevels)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "hint",
		Description: "Search for a solution from the current position and suggest the next dispatch",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleHint)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Explain a grid cell: which car is there and whether it can be dispatched right now",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"row": map[string]interface{}{
					"type":        "integer",
					"description": "Row of the cell (0-based, 0 is the exit row)",
				},
				"col": map[string]interface{}{
					"type":        "integer",
					"description": "Column of the cell (0-based)",
				},
			},
			Required: []string{"session_id", "row", "col"},
		},
	}, c.handleDescribeCell)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	id, _ := args["session_id"].(string)
	if id == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(id) + suffix, nil
}

// intArg reads a JSON number argument.
func intArg(args map[string]interface{}, key string) (int, bool) {
	switch v := args[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	levelID, _ := args["level_id"].(string)

	body := map[string]string{}
	if levelID != "" {
		body["level_id"] = levelID
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nLevel: %s\n\n%s", session.ID, session.LevelID, formatGameState(session.GameState))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		status := "playing"
		if s.GameState != nil {
			status = statusWord(s.GameState)
		}
		fmt.Fprintf(&b, "- %s (Level: %s, %s, Created: %s)\n",
			s.ID, s.LevelID, status, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", path, nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleGameState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/state")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.GameState
	if err := c.apiCall(ctx, "GET", path, nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatGameState(&state)), nil
}

func (c *Client) handleDispatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/dispatch")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	row, okRow := intArg(args, "row")
	col, okCol := intArg(args, "col")
	if !okRow || !okCol {
		return mcp.NewToolResultError("row and col are required integers"), nil
	}

	// Intent parameter serves as rubber duck debugging - we don't need to process it further
	_, _ = args["intent"].(string)

	var result service.DispatchResult
	body := map[string]int{"row": row, "col": col}
	if err := c.apiCall(ctx, "POST", path, body, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatDispatchResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/reset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var response struct {
		Message string            `json:"message"`
		State   *engine.GameState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("%s\n\n%s", response.Message, formatGameState(response.State))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleActionHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	params := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		params.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		params.Set("limit", fmt.Sprint(limit))
	}
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var levels []service.LevelInfo
	if err := c.apiCall(ctx, "GET", "/api/levels", nil, &levels); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Levels:\n\n")
	for _, level := range levels {
		balanced := "balanced"
		if !level.Balanced {
			balanced = "unbalanced"
		}
		fmt.Fprintf(&b, "• %s (%s)\n  %s\n  Grid: %dx%d, Slots: %d, Cars: %d, Passengers: %d, %s\n\n",
			level.LevelID, level.Name, level.Description,
			level.GridSize, level.GridSize, level.Vacancy, level.Vehicles, level.Passengers, balanced)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleHint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/hint")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var hint service.HintResult
	if err := c.apiCall(ctx, "GET", path, nil, &hint); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHint(&hint)), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	row, okRow := intArg(args, "row")
	col, okCol := intArg(args, "col")
	if !okRow || !okCol {
		return mcp.NewToolResultError("row and col are required integers"), nil
	}
	if row < 0 || col < 0 {
		return mcp.NewToolResultError(fmt.Sprintf("Coordinates (%d,%d) are out of bounds", row, col)), nil
	}
	path, err := sessionPath(args, fmt.Sprintf("/cells/%d/%d", row, col))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var info service.CellInfo
	if err := c.apiCall(ctx, "GET", path, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatCellInfo(&info)), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

const instructions = `Parking Jam - Complete Instructions

GAME OBJECTIVE:
Clear the parking lot. Every car must be filled with passengers of its own
color and drive away.

THE BOARD:
• Grid: a square lot of cars. Row 0 is the exit row, next to the road.
• Slots: a fixed number of parking slots between the lot and the queue.
• Queue: passengers waiting in line. Only the passenger at the head boards.

GAME MECHANICS:
• Dispatch: pick a car that can reach the road. It drives to the lowest
  numbered free slot.
• A car can reach the road when it sits in row 0 or touches an empty cell.
• Boarding: while the head passenger has a parked car of the same color with
  a free seat, they board. If several cars qualify, the one that parked
  first gets the passenger.
• Departure: a full car leaves and frees its slot.
• Each boarding pulls the next passenger from the line into the queue.

CELL NOTATION (game_state):
• "1x2" - a car of color 1 with 2 seats. "*" marks cars you can dispatch.
• " . " - an empty cell.
• Colors: 1 red, 2 blue, 3 yellow, 4 green, 5 orange, 6 purple, 7 gray,
  8 pink, 9 cyan.

VICTORY CONDITIONS:
- Every car has left the lot. The game displays "VICTORY".

GAME OVER CONDITIONS:
- No car can be dispatched: either all slots are taken by cars nobody at the
  head of the queue can board, or every remaining car is boxed in.
- The game displays "STUCK". Use reset_game to try again.

STRATEGY:
- Look at the head of the queue before dispatching. A car whose color is not
  coming soon blocks a slot.
- Keep at least one slot free for as long as possible.
- Empty cells free the cars around them. Plan which cars open up the lot.
- Use hint when unsure; it searches for a full solution from the current
  position.

SESSION MANAGEMENT:
- Each session has a unique 4-character ID and its own board.
- action_history shows every dispatch, including before resets.`

// Formatting helpers

func statusWord(state *engine.GameState) string {
	switch {
	case state.Victory:
		return "victory"
	case state.GameOver:
		return "stuck"
	default:
		return "playing"
	}
}

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nLevel: %s\nCreated: %s\n\n%s",
		session.ID, session.LevelID,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatGameState(session.GameState))
}

func formatGameState(state *engine.GameState) string {
	if state == nil {
		return "No game state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Level: %s | Cars left: %d | Departed: %d | Dispatches: %d\n\n",
		state.LevelName, state.VehiclesLeft, state.Departed, state.CurrentActionsCount)

	movable := make(map[engine.Position]bool, len(state.Movable))
	for _, pos := range state.Movable {
		movable[pos] = true
	}

	b.WriteString("Grid (row 0 is the exit):\n")
	size := len(state.Grid)
	b.WriteString("    ")
	for c := 0; c < size; c++ {
		fmt.Fprintf(&b, " %-4d", c)
	}
	b.WriteString("\n")
	for r, row := range state.Grid {
		fmt.Fprintf(&b, "%-3d ", r)
		for c, v := range row {
			if v == nil {
				b.WriteString("  .  ")
				continue
			}
			mark := " "
			if movable[engine.Position{Row: r, Col: c}] {
				mark = "*"
			}
			fmt.Fprintf(&b, " %dx%d%s", v.Color, v.Capacity, mark)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nSlots:\n")
	for _, slot := range state.Slots {
		if slot.Vehicle == nil {
			fmt.Fprintf(&b, "  [%d] free\n", slot.Index)
			continue
		}
		fmt.Fprintf(&b, "  [%d] %s %s %d/%d\n", slot.Index, slot.Vehicle.ID,
			engine.ColorName(slot.Vehicle.Color), slot.Boarded, slot.Vehicle.Capacity)
	}

	b.WriteString("\nQueue (head first): ")
	b.WriteString(formatQueue(state.Queue, state.Upcoming))
	b.WriteString("\n")

	if len(state.Movable) > 0 {
		cells := make([]string, len(state.Movable))
		for i, pos := range state.Movable {
			cells[i] = pos.String()
		}
		fmt.Fprintf(&b, "Dispatchable: %s\n", strings.Join(cells, " "))
	}

	if state.Victory {
		b.WriteString("\nVICTORY!")
	} else if state.GameOver {
		b.WriteString("\nSTUCK - no car can be dispatched")
	}
	if state.Message != "" {
		fmt.Fprintf(&b, "\nMessage: %s", state.Message)
	}
	return b.String()
}

func formatQueue(queue []engine.Passenger, upcoming int) string {
	if len(queue) == 0 {
		return "(empty)"
	}
	n := len(queue)
	if n > queuePreview {
		n = queuePreview
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = engine.ColorName(queue[i].Color)
	}
	out := strings.Join(names, ", ")
	if rest := len(queue) - n + upcoming; rest > 0 {
		out += fmt.Sprintf(" (+%d more)", rest)
	}
	return out
}

func formatDispatchResult(result *service.DispatchResult) string {
	var b strings.Builder
	if result.Accepted {
		fmt.Fprintf(&b, "✓ Dispatched to slot %d\n", result.Slot)
	} else {
		fmt.Fprintf(&b, "✗ Dispatch ignored (%s)\n", result.Reason)
	}
	if result.Message != "" {
		fmt.Fprintf(&b, "%s\n", result.Message)
	}

	if len(result.Events) > 0 {
		b.WriteString("Events:\n")
		for _, event := range result.Events {
			fmt.Fprintf(&b, "- %s: %s\n", event.Type, event.Message)
		}
	}

	b.WriteString("\n")
	b.WriteString(formatGameState(result.GameState))
	return b.String()
}

func formatHint(hint *service.HintResult) string {
	if !hint.Found || hint.Position == nil {
		msg := hint.Message
		if msg == "" {
			msg = "No solution found from this position"
		}
		return fmt.Sprintf("%s (searched %d positions)", msg, hint.Nodes)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dispatch the car at %s", hint.Position)
	if hint.Vehicle != nil {
		fmt.Fprintf(&b, " (%s, %d seats)", engine.ColorName(hint.Vehicle.Color), hint.Vehicle.Capacity)
	}
	b.WriteString("\n")
	if len(hint.Solution) > 0 {
		steps := make([]string, len(hint.Solution))
		for i, pos := range hint.Solution {
			steps[i] = pos.String()
		}
		fmt.Fprintf(&b, "Full solution: %s\n", strings.Join(steps, " → "))
	}
	fmt.Fprintf(&b, "Searched %d positions", hint.Nodes)
	return b.String()
}

func formatCellInfo(info *service.CellInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cell %s\n", info.Position)
	if info.Vehicle == nil {
		b.WriteString("Empty cell. It frees the cars next to it.\n")
	} else {
		fmt.Fprintf(&b, "Car %s: %s, %d seats\n", info.Vehicle.ID, info.ColorName, info.Vehicle.Capacity)
	}
	fmt.Fprintf(&b, "Empty neighbours: %d\n", info.EmptyNeighbors)
	if info.Movable {
		fmt.Fprintf(&b, "Can be dispatched now, to slot %d.", info.FreeSlot)
	} else if info.Reason != "" {
		fmt.Fprintf(&b, "Cannot be dispatched: %s.", info.Reason)
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dispatch History (Page %d/%d) - Total (cumulative): %d\n\n",
		history.Page, history.TotalPages, history.TotalActions)

	for _, action := range history.Actions {
		fmt.Fprintf(&b, "%d. %s %s from %s → slot %d (boarded %d, departed %d)\n",
			action.Number, action.VehicleID, engine.ColorName(action.Color),
			action.From, action.Slot, action.Boarded, action.Departed)
	}
	if len(history.Actions) == 0 {
		b.WriteString("(no dispatches yet)")
	}
	return b.String()
}
