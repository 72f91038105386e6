// Command analyze prints quick, human-readable heuristics about puzzle
// configuration files in the project's configs directory. It summarizes grid
// and piece sizes, how many distinct orientations each piece has and how many
// ways it fits on the empty grid, and whether the solver finds a tiling within
// the time limit.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/polyfit/game/engine"
	"github.com/wricardo/polyfit/game/grid"
	"github.com/wricardo/polyfit/game/solver"
)

// PieceAnalysis summarizes one piece of a puzzle.
type PieceAnalysis struct {
	ID           string
	Cells        int
	Orientations int
	// Fits counts the placements that lie inside the empty grid
	Fits int
	Err  error
}

// Analysis is the result of analyzing one config file.
type Analysis struct {
	File       string
	Name       string
	Width      int
	Height     int
	PieceCells int
	Pieces     []PieceAnalysis
	// Invalid holds the validation error, if any; the solver is skipped then
	Invalid  error
	Solution *solver.Solution
	SolveErr error
	Elapsed  time.Duration
}

func main() {
	cmd := &cli.Command{
		Name:      "analyze",
		Usage:     "print heuristics and solvability for puzzle configs",
		ArgsUsage: "[config files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Value: "configs",
				Usage: "directory scanned when no files are given",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 10 * time.Second,
				Usage: "time limit for the solver per config",
			},
			&cli.BoolFlag{
				Name:  "no-solve",
				Usage: "skip the solver",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				if files, err = configFiles(cmd.String("dir")); err != nil {
					return err
				}
			}

			for _, file := range files {
				fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
				analysis, err := analyzeConfig(ctx, file, cmd.Duration("timeout"), !cmd.Bool("no-solve"))
				if err != nil {
					fmt.Printf("Error: %v\n", err)
					continue
				}
				printAnalysis(os.Stdout, analysis)
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
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
	if len(files) == 0 {
		return nil, fmt.Errorf("no config files found in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// analyzeConfig reads and analyzes a single config file. Read and parse
// failures are returned; validation failures are recorded in Invalid.
func analyzeConfig(ctx context.Context, path string, timeout time.Duration, solve bool) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	config, err := engine.DecodePuzzleConfig(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	a := &Analysis{
		File:   filepath.Base(path),
		Name:   config.Name,
		Width:  config.Width,
		Height: config.Height,
	}

	for _, pc := range config.Pieces {
		pa := PieceAnalysis{ID: pc.ID}
		offsets, err := pc.Offsets()
		if err != nil {
			pa.Err = err
			a.Pieces = append(a.Pieces, pa)
			continue
		}
		orientations := solver.Orientations(offsets)
		pa.Cells = len(offsets)
		pa.Orientations = len(orientations)
		for _, o := range orientations {
			pa.Fits += countFits(o.Cells, config.Width, config.Height)
		}
		a.PieceCells += pa.Cells
		a.Pieces = append(a.Pieces, pa)
	}

	a.Invalid = engine.ValidatePuzzleConfig(config)
	if a.Invalid != nil || !solve {
		return a, nil
	}

	problem, err := config.Problem()
	if err != nil {
		a.SolveErr = err
		return a, nil
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	a.Solution, a.SolveErr = solver.Solve(ctx, problem)
	a.Elapsed = time.Since(start)
	return a, nil
}

// countFits counts the translations of a footprint, given relative to anchor
// cell (0,0), that stay inside a width x height grid
func countFits(rel []grid.Cell, width, height int) int {
	fits := 0
	for ay := -height; ay < 2*height; ay++ {
		for ax := -width; ax < 2*width; ax++ {
			inside := true
			for _, c := range rel {
				x, y := ax+c.X, ay+c.Y
				if x < 0 || x >= width || y < 0 || y >= height {
					inside = false
					break
				}
			}
			if inside {
				fits++
			}
		}
	}
	return fits
}

func printAnalysis(w io.Writer, a *Analysis) {
	fmt.Fprintf(w, "Name: %s\n", a.Name)
	fmt.Fprintf(w, "Grid Size: %d x %d (%d cells)\n", a.Width, a.Height, a.Width*a.Height)
	fmt.Fprintf(w, "Pieces: %d covering %d cells\n", len(a.Pieces), a.PieceCells)

	for _, p := range a.Pieces {
		if p.Err != nil {
			fmt.Fprintf(w, "   %s: ⚠️  %v\n", p.ID, p.Err)
			continue
		}
		fmt.Fprintf(w, "   %s: %d cells, %d orientations, %s placements\n",
			p.ID, p.Cells, p.Orientations, humanize.Comma(int64(p.Fits)))
		if p.Fits == 0 {
			fmt.Fprintf(w, "⚠️  WARNING: piece %s does not fit on the grid in any orientation!\n", p.ID)
		}
	}

	if a.Invalid != nil {
		fmt.Fprintf(w, "⚠️  CRITICAL: %v\n", a.Invalid)
		return
	}
	fmt.Fprintf(w, "✅ Piece area matches the grid\n")

	switch {
	case a.Solution != nil:
		fmt.Fprintf(w, "✅ Solvable: tiling found in %s after %s search nodes\n",
			a.Elapsed.Round(time.Millisecond), humanize.Comma(int64(a.Solution.Nodes)))
	case a.SolveErr != nil:
		fmt.Fprintf(w, "⚠️  CRITICAL: solver: %v\n", a.SolveErr)
	}
}
