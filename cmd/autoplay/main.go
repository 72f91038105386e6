// Command autoplay solves a puzzle through the REST API the way a player
// would: it asks the server for a hint, picks the piece up, turns it, drags
// it over the target cell and lets it snap, until every cell is covered.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/wricardo/polyfit/game/engine"
	"github.com/wricardo/polyfit/game/piece"
	"github.com/wricardo/polyfit/game/service"
)

const sessionFile = ".session"

type playOptions struct {
	MaxAttempts int
	MaxMoves    int
	// Delay animates the snap with ticks of this length; zero settles at once
	Delay   time.Duration
	Verbose bool
}

// apply runs one gesture. A refused step is returned as an error.
func (c *Client) apply(key string, g Gesture) (*service.ActionResult, error) {
	var result *service.ActionResult
	var err error
	switch g.Action {
	case engine.ActionPickup:
		result, err = c.Pickup(key)
	case engine.ActionRotate:
		result, err = c.Rotate(key)
	case engine.ActionMirror:
		result, err = c.Mirror(key)
	case "drag":
		result, err = c.Drag(g.At)
	case engine.ActionRelease:
		result, err = c.Release()
	default:
		return nil, fmt.Errorf("unknown gesture %q", g.Action)
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", g.Action, key, err)
	}
	if !result.Success {
		return result, fmt.Errorf("%s %s refused: %s", g.Action, key, result.Message)
	}
	return result, nil
}

// settle ticks until the released piece stops moving
func (c *Client) settle(opts playOptions) (*service.ActionResult, error) {
	if opts.Delay <= 0 {
		return c.Tick(0, true)
	}
	for {
		result, err := c.Tick(opts.Delay.Seconds(), false)
		if err != nil || result.Outcome != string(piece.TickMoving) {
			return result, err
		}
		time.Sleep(opts.Delay)
	}
}

// move carries out one hint. It returns the state after the piece settled.
func (c *Client) move(state *engine.PuzzleState, hint *engine.Hint, opts playOptions) (*engine.PuzzleState, error) {
	view, ok := state.Piece(hint.Key)
	if !ok {
		return state, fmt.Errorf("hinted piece %s not in state", hint.Key)
	}

	var result *service.ActionResult
	for _, g := range planGesture(view, *hint, state) {
		var err error
		if result, err = c.apply(hint.Key, g); err != nil {
			return state, err
		}
	}

	if result.Outcome != string(piece.ReleaseSnapping) {
		return result.State, fmt.Errorf("%s did not snap to %s (%s)", hint.Key, hint.Cell, result.Outcome)
	}

	result, err := c.settle(opts)
	if err != nil {
		return state, err
	}
	// the server's frame loop may have finished the snap already
	if v, ok := result.State.Piece(hint.Key); ok && v.Placed {
		return result.State, nil
	}
	if result.Outcome != string(piece.TickPlaced) {
		return result.State, fmt.Errorf("%s was not placed at %s (%s)", hint.Key, hint.Cell, result.Outcome)
	}
	return result.State, nil
}

// play keeps moving pieces until the puzzle is solved. A dead end resets the
// puzzle and starts a new attempt.
func play(ctx context.Context, c *Client, state *engine.PuzzleState, opts playOptions) (bool, error) {
	for attemptNum := 1; attemptNum <= opts.MaxAttempts; attemptNum++ {
		if attemptNum > 1 {
			var err error
			if state, err = c.Reset(); err != nil {
				return false, err
			}
		}

		log.Printf("=== 🧩 Attempt %d/%d ===", attemptNum, opts.MaxAttempts)

		moveCount := 0
		for !state.Solved && moveCount < opts.MaxMoves {
			if err := ctx.Err(); err != nil {
				return false, err
			}

			hint, err := c.Hint()
			if errors.Is(err, errNoHint) {
				log.Printf("⚠️  Dead end: %v", err)
				break
			}
			if err != nil {
				return false, err
			}
			if opts.Verbose {
				log.Printf("Placed %d/%d, next: %s", state.PlacedPieces, state.TotalPieces, hint)
			}

			next, err := c.move(state, hint, opts)
			moveCount++
			if next != nil {
				state = next
			}
			if err != nil {
				log.Printf("Move failed: %v", err)
				break
			}
		}

		log.Printf("Attempt %d: Moves=%d, Placed=%d/%d", attemptNum, moveCount, state.PlacedPieces, state.TotalPieces)
		if state.Solved {
			return true, nil
		}
	}
	return false, nil
}

func main() {
	cmd := &cli.Command{
		Name:  "autoplay",
		Usage: "solve a puzzle session through the REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:8080", Usage: "Puzzle server URL"},
			&cli.StringFlag{Name: "config", Usage: "Puzzle configuration id (see /api/configs)"},
			&cli.StringFlag{Name: "continue", Usage: "Resume an existing session by ID"},
			&cli.IntFlag{Name: "max-moves", Value: 500, Usage: "Maximum moves per attempt"},
			&cli.IntFlag{Name: "max-attempts", Value: 5, Usage: "Maximum attempts before giving up"},
			&cli.DurationFlag{Name: "delay", Usage: "Animate snapping with ticks of this length (0 = settle at once)"},
			&cli.BoolFlag{Name: "v", Usage: "Verbose output"},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	serverURL := cmd.String("url")
	log.Printf("Connecting to puzzle server at %s", serverURL)
	client := NewClient(serverURL)

	// Check for saved session ID
	savedSessionID := cmd.String("continue")
	if savedSessionID == "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			savedSessionID = string(bytes.TrimSpace(data))
		}
	}

	var state *engine.PuzzleState
	var err error
	if savedSessionID != "" {
		client.sessionID = savedSessionID
		log.Printf("🔄 Resuming session: %s", client.sessionID)
		if state, err = client.GetState(); err != nil {
			log.Printf("⚠️  Failed to resume session (may be expired): %v", err)
			savedSessionID = ""
		}
	}

	if savedSessionID == "" {
		if state, err = client.CreateSession(cmd.String("config")); err != nil {
			return err
		}
		log.Printf("✨ Session created: %s", client.sessionID)

		if err := os.WriteFile(sessionFile, []byte(client.sessionID), 0644); err != nil {
			log.Printf("Warning: Failed to save session ID: %v", err)
		}
	}
	log.Printf("Puzzle: %s, Grid: %dx%d, Pieces: %d", state.ConfigName, state.Width, state.Height, state.TotalPieces)

	if state.Solved {
		log.Printf("🔄 Already solved, resetting...")
		if state, err = client.Reset(); err != nil {
			return err
		}
	}

	solved, err := play(ctx, client, state, playOptions{
		MaxAttempts: cmd.Int("max-attempts"),
		MaxMoves:    cmd.Int("max-moves"),
		Delay:       cmd.Duration("delay"),
		Verbose:     cmd.Bool("v"),
	})
	if err != nil {
		return err
	}

	log.Printf("Session: %s", client.sessionID)
	if !solved {
		return cli.Exit("❌ Failed to solve the puzzle", 1)
	}
	log.Printf("🎉 SOLVED!")
	return nil
}
