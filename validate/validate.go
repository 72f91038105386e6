// Command validate provides a small CLI that validates puzzle configuration
// files (JSON or YAML) in the configs directory. Unlike the server, which
// stops at the first problem, it reports every problem it finds. It checks:
//   - Structure and required fields
//   - Grid dimensions
//   - Piece shapes: allowed characters, no repeated cells, 4-connected cells
//   - Unique piece ids and starting placements inside the grid
//   - Piece area equal to the grid area
//   - Snapping options and required message keys
//   - Solvability: the solver finds a tiling within the time limit
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/polyfit/game/engine"
	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/solver"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) info(format string, args ...interface{}) {
	r.Errors = append(r.Errors, "✓ "+fmt.Sprintf(format, args...))
}

// validateConfig loads and validates a single configuration file. A positive
// solveTimeout also runs the solver once every structural check passed.
func validateConfig(ctx context.Context, filePath string, solveTimeout time.Duration) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	config, err := engine.DecodePuzzleConfig(data, filepath.Ext(filePath))
	if err != nil {
		result.fail("Invalid %s: %v", formatName(filePath), err)
		return result
	}

	if config.Name == "" {
		result.fail("name is required")
	}
	if config.Description == "" {
		result.fail("description is required")
	}

	// Validate grid
	if config.Width < engine.MinGridSize || config.Width > engine.MaxGridSize {
		result.fail("width must be between %d and %d, got %d", engine.MinGridSize, engine.MaxGridSize, config.Width)
	}
	if config.Height < engine.MinGridSize || config.Height > engine.MaxGridSize {
		result.fail("height must be between %d and %d, got %d", engine.MinGridSize, engine.MaxGridSize, config.Height)
	}
	if config.CellSize < 0 {
		result.fail("cell_size must be positive, got %v", config.CellSize)
	}
	if err := config.Options().Validate(); err != nil {
		result.fail("snap: %v", err)
	}

	// Validate pieces
	if len(config.Pieces) == 0 {
		result.fail("Must have at least 1 piece")
	}
	area := 0
	seen := map[string]bool{}
	for i, pc := range config.Pieces {
		label := pc.ID
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
			result.fail("Piece %s has no id", label)
		} else if seen[pc.ID] {
			result.fail("Duplicate piece id %q", pc.ID)
		}
		seen[pc.ID] = true

		cells, err := pc.LocalCells()
		if err != nil {
			result.fail("Piece %s: %v", label, err)
			continue
		}
		area += len(cells)

		if dups := repeatedCells(cells); len(dups) > 0 {
			result.fail("Piece %s repeats cells %s", label, strings.Join(dups, " "))
		}
		if !validateConnectivity(cells) {
			result.fail("Piece %s is not connected: every cell must touch another along an edge", label)
		}
		if c := pc.PlacedAt; c != nil && (c.X < 0 || c.X >= config.Width || c.Y < 0 || c.Y >= config.Height) {
			result.fail("Piece %s placed_at %s is outside the grid", label, c)
		}
	}

	if gridArea := config.Width * config.Height; len(config.Pieces) > 0 && area != gridArea {
		result.fail("Pieces cover %d cells but the grid has %d", area, gridArea)
	}

	// Validate messages
	requiredMessages := map[string]string{
		"welcome": config.Messages.Welcome,
		"solved":  config.Messages.Solved,
	}
	for _, key := range []string{"welcome", "solved"} {
		if requiredMessages[key] == "" {
			result.fail("Missing required message: %s", key)
		}
	}

	// The server's own validation must agree before the solver runs
	if result.Valid {
		if err := engine.ValidatePuzzleConfig(config); err != nil {
			result.fail("%v", err)
		}
	}

	if result.Valid && solveTimeout > 0 {
		solvable := validateSolvable(ctx, config, solveTimeout)
		if !solvable.Valid {
			result.Valid = false
		}
		result.Errors = append(result.Errors, solvable.Errors...)
	}

	// Add informational data
	if result.Valid {
		result.info("Name: %s", config.Name)
		result.info("Grid: %dx%d", config.Width, config.Height)
		result.info("Pieces: %d (%d cells)", len(config.Pieces), area)
		result.info("Snap: %s", config.Options().Policy)
	}

	return result
}

func formatName(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "YAML"
	default:
		return "JSON"
	}
}

func repeatedCells(cells []geometry.Vec) []string {
	count := map[geometry.Vec]int{}
	var dups []string
	for _, c := range cells {
		count[c]++
		if count[c] == 2 {
			dups = append(dups, fmt.Sprintf("(%v,%v)", c.X, c.Y))
		}
	}
	return dups
}

// validateConnectivity reports whether the piece cells form one polyomino
// under 4-directional adjacency, using a flood fill from the first cell.
func validateConnectivity(cells []geometry.Vec) bool {
	if len(cells) == 0 {
		return false
	}

	present := make(map[geometry.Vec]bool, len(cells))
	for _, c := range cells {
		present[c] = true
	}

	visited := map[geometry.Vec]bool{}
	queue := []geometry.Vec{cells[0]}
	directions := []geometry.Vec{{X: -1}, {X: 1}, {Y: -1}, {Y: 1}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current] {
			continue
		}
		visited[current] = true

		for _, dir := range directions {
			next := current.Add(dir)
			if present[next] && !visited[next] {
				queue = append(queue, next)
			}
		}
	}

	return len(visited) == len(present)
}

// validateSolvable runs the solver on the empty puzzle. A timeout is reported
// as a warning and leaves the config valid.
func validateSolvable(ctx context.Context, config *engine.PuzzleConfig, timeout time.Duration) ValidationResult {
	result := ValidationResult{Valid: true, Errors: []string{}}

	problem, err := config.Problem()
	if err != nil {
		result.fail("Cannot build solver problem: %v", err)
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	_, err = solver.Solve(ctx, problem)
	switch {
	case err == nil:
		result.info("Solvable: tiling found in %s", time.Since(start).Round(time.Millisecond))
	case errors.Is(err, solver.ErrNoSolution):
		result.fail("Unsolvable: no tiling of the grid exists")
	case errors.Is(err, context.DeadlineExceeded):
		result.Errors = append(result.Errors, fmt.Sprintf("? Solvability unknown: solver gave up after %s", timeout))
	default:
		result.fail("Solver failed: %v", err)
	}
	return result
}

// configFiles lists every puzzle config in dir, sorted by name
func configFiles(dir string) ([]string, error) {
	var files []string
	for _, ext := range engine.ConfigExtensions {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+ext))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// run validates every file and prints a concise report. It returns false if
// any file is invalid.
func run(ctx context.Context, files []string, solveTimeout time.Duration) bool {
	allValid := true
	for _, file := range files {
		result := validateConfig(ctx, file, solveTimeout)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	return allValid
}

// main validates the files given as arguments, or every config in --dir,
// exiting with non-zero status if any are invalid.
func main() {
	cmd := &cli.Command{
		Name:      "validate",
		Usage:     "validate puzzle configuration files",
		ArgsUsage: "[config files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Value: "configs",
				Usage: "directory scanned when no files are given",
			},
			&cli.DurationFlag{
				Name:  "solve-timeout",
				Value: 5 * time.Second,
				Usage: "time limit for the solvability check (0 disables it)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				if files, err = configFiles(cmd.String("dir")); err != nil {
					return fmt.Errorf("error finding config files: %w", err)
				}
			}
			if len(files) == 0 {
				return cli.Exit("No configuration files found", 1)
			}

			if !run(ctx, files, cmd.Duration("solve-timeout")) {
				return cli.Exit("❌ Some configurations have errors", 1)
			}
			fmt.Println("✅ All configurations are valid!")
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
