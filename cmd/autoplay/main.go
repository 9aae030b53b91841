// Command autoplay plays a Parking Jam session against a running server,
// retrying with reset until the lot is cleared.
//
//	autoplay [--url URL] [--level ID] [--continue SESSION] [--strategy hint|greedy]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/parkingjam/game/engine"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Error("autoplay failed", "error", err)
		os.Exit(1)
	}
}

type playConfig struct {
	levelID     string
	sessionID   string
	strategy    string
	maxAttempts int
	maxMoves    int
	delay       time.Duration
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "autoplay",
		Usage: "play a session through the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "game server URL", Sources: cli.EnvVars("PARKINGJAM_URL")},
			&cli.StringFlag{Name: "level", Usage: "level ID for a new session"},
			&cli.StringFlag{Name: "continue", Usage: "play an existing session by ID"},
			&cli.StringFlag{Name: "strategy", Value: "hint", Usage: "hint (server solver) or greedy"},
			&cli.IntFlag{Name: "max-attempts", Value: 20, Usage: "attempts before giving up"},
			&cli.IntFlag{Name: "max-moves", Value: 500, Usage: "dispatches per attempt"},
			&cli.DurationFlag{Name: "delay", Usage: "pause between dispatches"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log every dispatch"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			logger := log.Default()
			if cmd.Bool("verbose") {
				logger.SetLevel(log.DebugLevel)
			}
			cfg := playConfig{
				levelID:     cmd.String("level"),
				sessionID:   cmd.String("continue"),
				strategy:    cmd.String("strategy"),
				maxAttempts: cmd.Int("max-attempts"),
				maxMoves:    cmd.Int("max-moves"),
				delay:       cmd.Duration("delay"),
			}
			_, err := play(ctx, NewClient(cmd.String("url")), cfg, logger)
			return err
		},
	}
}

// errGaveUp is returned when no attempt cleared the lot.
var errGaveUp = errors.New("failed to clear the lot")

// play runs attempts until victory and returns the number of the winning attempt.
func play(ctx context.Context, client *Client, cfg playConfig, logger *log.Logger) (int, error) {
	var strategy Strategy
	switch cfg.strategy {
	case "", "hint":
		strategy = NewHintStrategy(client)
	case "greedy":
		strategy = NewGreedyStrategy()
	default:
		return 0, fmt.Errorf("unknown strategy %q", cfg.strategy)
	}

	if cfg.sessionID != "" {
		client.sessionID = cfg.sessionID
		if _, err := client.GetState(ctx); err != nil {
			return 0, fmt.Errorf("resume session %s: %w", cfg.sessionID, err)
		}
		logger.Info("Resuming session", "session", client.sessionID)
	} else {
		session, err := client.CreateSession(ctx, cfg.levelID)
		if err != nil {
			return 0, err
		}
		logger.Info("Session created", "session", session.ID, "level", session.LevelID)
	}

	for attempt := 1; attempt <= cfg.maxAttempts; attempt++ {
		state, err := client.Reset(ctx)
		if err != nil {
			return 0, err
		}
		strategy.Reset(attempt)
		logger.Info("Attempt", "n", attempt, "of", cfg.maxAttempts, "cars", state.VehiclesLeft)

		moves := 0
		for !state.Victory && !state.GameOver && moves < cfg.maxMoves {
			pos, ok, err := strategy.NextMove(ctx, state)
			if err != nil {
				return 0, err
			}
			if !ok {
				logger.Warn("No car can be dispatched")
				break
			}

			result, err := client.Dispatch(ctx, pos)
			if err != nil {
				return 0, err
			}
			state = result.GameState
			if !result.Accepted {
				logger.Warn("Dispatch ignored", "pos", pos.String(), "reason", result.Reason)
				break
			}
			moves++
			logger.Debug("dispatch", "pos", pos.String(), "slot", result.Slot, "cars", state.VehiclesLeft)

			if cfg.delay > 0 {
				select {
				case <-ctx.Done():
					return 0, ctx.Err()
				case <-time.After(cfg.delay):
				}
			}
		}

		logger.Info("Attempt finished", "n", attempt, "dispatches", moves,
			"departed", state.Departed, "cars_left", state.VehiclesLeft, "status", status(state))
		if state.Victory {
			logger.Info("VICTORY", "attempt", attempt, "dispatches", moves, "session", client.sessionID)
			return attempt, nil
		}
	}

	return 0, fmt.Errorf("%w after %d attempts (session %s)", errGaveUp, cfg.maxAttempts, client.sessionID)
}

func status(state *engine.GameState) string {
	switch {
	case state.Victory:
		return "victory"
	case state.GameOver:
		return "stuck"
	}
	return "playing"
}
