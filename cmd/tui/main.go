// Command tui plays Parking Jam in the terminal.
//
//	tui [--levels-dir DIR] [--level NAME|FILE] [--log-file PATH]
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/parkingjam/game/config"
	"github.com/wricardo/parkingjam/game/engine"
	"github.com/wricardo/parkingjam/game/solver"
	"github.com/wricardo/parkingjam/tui"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "play Parking Jam in the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "levels-dir",
				Value:   "levels",
				Usage:   "directory with level files",
				Sources: cli.EnvVars("LEVELS_DIR"),
			},
			&cli.StringFlag{
				Name:  "level",
				Usage: "level ID in --levels-dir, or a path to a level file",
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "write engine logs here (the screen is taken by the game)",
				Sources: cli.EnvVars("PARKINGJAM_LOG_FILE"),
			},
			&cli.IntFlag{
				Name:  "max-nodes",
				Usage: "search bound for hints",
				Value: solver.DefaultMaxNodes,
			},
		},
		Action: run,
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	logger, closeLog, err := openLogger(cmd.String("log-file"))
	if err != nil {
		return err
	}
	defer closeLog()

	level, err := loadLevel(cmd.String("levels-dir"), cmd.String("level"))
	if err != nil {
		return err
	}

	eng, err := engine.NewEngine(level, engine.WithLogger(logger))
	if err != nil {
		return err
	}

	model := tui.New(ctx, eng, solver.Options{MaxNodes: cmd.Int("max-nodes")})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if err := eng.SetPresenter(tui.NewPresenter(program)); err != nil {
		return err
	}

	_, err = program.Run()
	return err
}

// loadLevel resolves name as a file path first, then as a level ID. With no
// name the directory default is used, and with no directory the built-in level.
func loadLevel(dir, name string) (*engine.Level, error) {
	if name != "" && filepath.Ext(name) != "" {
		if _, err := os.Stat(name); err == nil {
			return config.LoadLevelFile(name)
		}
	}

	manager, err := config.NewManager(dir)
	if err != nil {
		if name != "" {
			return nil, err
		}
		return engine.DefaultLevel(), nil
	}
	if name == "" {
		return manager.GetDefault(), nil
	}
	return manager.LoadLevel(name)
}

func openLogger(path string) (*log.Logger, func(), error) {
	if path == "" {
		return log.New(io.Discard), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := log.NewWithOptions(f, log.Options{ReportTimestamp: true, Level: log.DebugLevel})
	return logger, func() { f.Close() }, nil
}
