// Command analyze inspects level files. It prints a summary of each level
// (grid, slots, per-color seat balance, cars that can leave at the start),
// validates levels, and searches for a dispatch order that clears the lot.
//
//	analyze summary [files...]
//	analyze validate [--solve] [files...]
//	analyze solve [--max-nodes N] [--json] [files...]
//
// Without file arguments every .json and .hcl file in --levels-dir is used.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/parkingjam/game/config"
	"github.com/wricardo/parkingjam/game/engine"
	"github.com/wricardo/parkingjam/game/solver"
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "analyze",
		Usage:  "inspect Parking Jam level files",
		Writer: w,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "levels-dir",
				Usage:   "directory scanned when no files are given",
				Value:   "levels",
				Sources: cli.EnvVars("LEVELS_DIR"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "summary",
				Usage:     "print grid, slots and color balance",
				ArgsUsage: "[files...]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					files, err := levelFiles(cmd)
					if err != nil {
						return err
					}
					for _, file := range files {
						summarize(w, file)
					}
					return nil
				},
			},
			{
				Name:      "validate",
				Usage:     "check levels load and are playable",
				ArgsUsage: "[files...]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "solve", Usage: "also require a known solution"},
					&cli.IntFlag{Name: "max-nodes", Usage: "search bound for --solve", Value: solver.DefaultMaxNodes},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					files, err := levelFiles(cmd)
					if err != nil {
						return err
					}
					invalid := 0
					for _, file := range files {
						result := validateLevel(ctx, file, cmd.Bool("solve"), cmd.Int("max-nodes"))
						printValidation(w, result)
						if !result.Valid {
							invalid++
						}
					}
					fmt.Fprintf(w, "\n%d/%d levels valid\n", len(files)-invalid, len(files))
					if invalid > 0 {
						return fmt.Errorf("%d invalid levels", invalid)
					}
					return nil
				},
			},
			{
				Name:      "solve",
				Usage:     "search for a dispatch order that clears the lot",
				ArgsUsage: "[files...]",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "max-nodes", Usage: "boards to expand before giving up", Value: solver.DefaultMaxNodes},
					&cli.BoolFlag{Name: "json", Usage: "print results as JSON"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					files, err := levelFiles(cmd)
					if err != nil {
						return err
					}
					reports := make([]solveReport, 0, len(files))
					for _, file := range files {
						reports = append(reports, solveLevel(ctx, file, cmd.Int("max-nodes")))
					}
					if cmd.Bool("json") {
						enc := json.NewEncoder(w)
						enc.SetIndent("", "  ")
						return enc.Encode(reports)
					}
					for _, r := range reports {
						printSolve(w, r)
					}
					return nil
				},
			},
		},
	}
}

// levelFiles returns the positional arguments, or every level file in
// --levels-dir when there are none.
func levelFiles(cmd *cli.Command) ([]string, error) {
	if cmd.Args().Len() > 0 {
		return cmd.Args().Slice(), nil
	}

	dir := cmd.String("levels-dir")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read levels dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".json" && ext != ".hcl") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no level files in %s", dir)
	}
	return files, nil
}

func summarize(w io.Writer, path string) {
	fmt.Fprintf(w, "\n=== Analyzing %s ===\n", filepath.Base(path))

	level, err := config.LoadLevelFile(path)
	if err != nil {
		fmt.Fprintf(w, "Error loading level: %v\n", err)
		return
	}

	size := len(level.InitialMatrix)
	fmt.Fprintf(w, "Name: %s\n", level.Name)
	if level.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", level.Description)
	}
	fmt.Fprintf(w, "Grid Size: %d x %d\n", size, size)
	fmt.Fprintf(w, "Slots: %d\n", level.Vacancy)
	fmt.Fprintf(w, "Queue Window: %d\n", level.VisibleQueue())
	fmt.Fprintf(w, "Cars: %d\n", engine.CountVehicles(level))
	fmt.Fprintf(w, "Passengers: %d\n", engine.CountPassengers(level))

	fmt.Fprintf(w, "Colors:\n")
	for _, cb := range engine.LevelBalance(level) {
		mark := "✅"
		if !cb.Balanced() {
			mark = "⚠️ "
		}
		fmt.Fprintf(w, "  %s %-7s cars %d, seats %d, passengers %d\n", mark, cb.Name, cb.Vehicles, cb.Seats, cb.Passengers)
	}

	board := engine.NewBoard(level)
	movable := board.MovableCells()
	fmt.Fprintf(w, "Movable at start: %d %s\n", len(movable), formatPositions(movable))
}

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Notes contains informational messages.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Notes  []string
}

func validateLevel(ctx context.Context, path string, solve bool, maxNodes int) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	level, err := config.LoadLevelFile(path)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	for _, cb := range engine.LevelBalance(level) {
		if !cb.Balanced() {
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("%s has %d seats for %d passengers", cb.Name, cb.Seats, cb.Passengers))
		}
	}

	board := engine.NewBoard(level)
	if len(board.MovableCells()) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, "no car can leave at the start")
	}

	if solve && result.Valid {
		res, err := solver.Solve(ctx, board, solver.Options{MaxNodes: maxNodes})
		switch {
		case err != nil:
			result.Valid = false
			result.Errors = append(result.Errors, fmt.Sprintf("search failed: %v", err))
		case res.Solvable:
			result.Notes = append(result.Notes, fmt.Sprintf("solved in %d dispatches (%d boards)", len(res.Moves), res.Nodes))
		case res.Exhausted:
			result.Notes = append(result.Notes, fmt.Sprintf("no solution within %d boards", res.Nodes))
		default:
			result.Valid = false
			result.Errors = append(result.Errors, "level cannot be cleared")
		}
	}
	return result
}

func printValidation(w io.Writer, r ValidationResult) {
	if r.Valid {
		fmt.Fprintf(w, "✅ %s\n", r.File)
	} else {
		fmt.Fprintf(w, "❌ %s\n", r.File)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "   - %s\n", e)
	}
	for _, n := range r.Notes {
		fmt.Fprintf(w, "   %s\n", n)
	}
}

type solveReport struct {
	File      string            `json:"file"`
	Level     string            `json:"level,omitempty"`
	Solvable  bool              `json:"solvable"`
	Exhausted bool              `json:"exhausted"`
	Nodes     int               `json:"nodes"`
	Moves     []engine.Position `json:"moves,omitempty"`
	Error     string            `json:"error,omitempty"`
}

func solveLevel(ctx context.Context, path string, maxNodes int) solveReport {
	report := solveReport{File: filepath.Base(path)}

	level, err := config.LoadLevelFile(path)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Level = level.Name

	res, err := solver.Solve(ctx, engine.NewBoard(level), solver.Options{MaxNodes: maxNodes})
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Solvable = res.Solvable
	report.Exhausted = res.Exhausted
	report.Nodes = res.Nodes
	report.Moves = res.Moves
	return report
}

func printSolve(w io.Writer, r solveReport) {
	fmt.Fprintf(w, "\n=== %s ===\n", r.File)
	switch {
	case r.Error != "":
		fmt.Fprintf(w, "Error: %s\n", r.Error)
	case r.Solvable:
		fmt.Fprintf(w, "Solvable in %d dispatches (%d boards searched)\n", len(r.Moves), r.Nodes)
		fmt.Fprintf(w, "Moves: %s\n", formatPositions(r.Moves))
	case r.Exhausted:
		fmt.Fprintf(w, "Unknown: search stopped after %d boards\n", r.Nodes)
	default:
		fmt.Fprintf(w, "Unsolvable (%d boards searched)\n", r.Nodes)
	}
}

func formatPositions(ps []engine.Position) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, " ")
}
