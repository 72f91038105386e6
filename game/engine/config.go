package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/polyfit/game/geometry"
	"github.com/wricardo/polyfit/game/grid"
	"github.com/wricardo/polyfit/game/piece"
	"github.com/wricardo/polyfit/game/solver"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig prefixes every validation failure
var ErrInvalidConfig = errors.New("config validation")

// ConfigExtensions lists the file extensions puzzle configs may use
var ConfigExtensions = []string{".json", ".yaml", ".yml"}

// IsCentered reports whether the piece cells are centred on their centroid
func (pc PieceConfig) IsCentered() bool {
	return pc.Centered == nil || *pc.Centered
}

// LocalCells returns the piece cells in local coordinates
func (pc PieceConfig) LocalCells() ([]geometry.Vec, error) {
	if len(pc.Cells) > 0 && len(pc.Shape) > 0 {
		return nil, fmt.Errorf("piece %q: cells and shape are mutually exclusive", pc.ID)
	}
	if len(pc.Shape) > 0 {
		cells, err := geometry.CellsFromRows(pc.Shape)
		if err != nil {
			return nil, fmt.Errorf("piece %q: %w", pc.ID, err)
		}
		return cells, nil
	}
	if len(pc.Cells) == 0 {
		return nil, fmt.Errorf("piece %q: %w", pc.ID, geometry.ErrNoCells)
	}

	cells := make([]geometry.Vec, len(pc.Cells))
	for i, c := range pc.Cells {
		cells[i] = geometry.V(float64(c[0]), float64(c[1]))
	}
	return cells, nil
}

// Offsets returns the piece offsets in its base orientation
func (pc PieceConfig) Offsets() (geometry.Offsets, error) {
	cells, err := pc.LocalCells()
	if err != nil {
		return nil, err
	}
	if pc.IsCentered() {
		return geometry.ComputeOffsets(cells)
	}
	return geometry.Offsets(cells), nil
}

// Options returns the piece options the puzzle asks for, with defaults filled
func (c *PuzzleConfig) Options() piece.Options {
	return piece.Options{
		Policy:         c.Snap.Policy,
		Threshold:      c.Snap.Threshold,
		Speed:          c.Snap.Speed,
		Epsilon:        c.Snap.Epsilon,
		IdleTransforms: c.IdleTransforms,
	}.WithDefaults()
}

// EffectiveCellSize returns the cell size, defaulting to DefaultCellSize
func (c *PuzzleConfig) EffectiveCellSize() float64 {
	if c.CellSize == 0 {
		return DefaultCellSize
	}
	return c.CellSize
}

// PieceCells returns the total number of cells over all pieces
func (c *PuzzleConfig) PieceCells() int {
	total := 0
	for _, pc := range c.Pieces {
		if cells, err := pc.LocalCells(); err == nil {
			total += len(cells)
		}
	}
	return total
}

// Problem converts the puzzle into a solver problem with every piece unplaced.
// Piece ids follow config order starting at 1.
func (c *PuzzleConfig) Problem() (solver.Problem, error) {
	p := solver.Problem{Width: c.Width, Height: c.Height}
	for i, pc := range c.Pieces {
		offsets, err := pc.Offsets()
		if err != nil {
			return solver.Problem{}, err
		}
		p.Pieces = append(p.Pieces, solver.Shape{ID: grid.PieceID(i + 1), Offsets: offsets})
	}
	return p, nil
}

// ValidatePuzzleConfig validates a puzzle configuration for correctness and
// completeness
func ValidatePuzzleConfig(config *PuzzleConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}

	// Validate required fields
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidConfig)
	}
	if config.Description == "" {
		return fmt.Errorf("%w: description is required", ErrInvalidConfig)
	}

	// Validate grid
	if config.Width < MinGridSize || config.Width > MaxGridSize {
		return fmt.Errorf("%w: width must be between %d and %d, got %d", ErrInvalidConfig, MinGridSize, MaxGridSize, config.Width)
	}
	if config.Height < MinGridSize || config.Height > MaxGridSize {
		return fmt.Errorf("%w: height must be between %d and %d, got %d", ErrInvalidConfig, MinGridSize, MaxGridSize, config.Height)
	}
	if config.CellSize < 0 {
		return fmt.Errorf("%w: cell_size must be positive, got %v", ErrInvalidConfig, config.CellSize)
	}

	// Validate snapping
	if err := config.Options().Validate(); err != nil {
		return fmt.Errorf("%w: snap: %w", ErrInvalidConfig, err)
	}

	// Validate pieces
	if len(config.Pieces) == 0 {
		return fmt.Errorf("%w: at least one piece is required", ErrInvalidConfig)
	}
	if len(config.Pieces) > MaxPieces {
		return fmt.Errorf("%w: at most %d pieces are allowed, got %d", ErrInvalidConfig, MaxPieces, len(config.Pieces))
	}

	seen := make(map[string]bool, len(config.Pieces))
	total := 0
	for i, pc := range config.Pieces {
		if pc.ID == "" {
			return fmt.Errorf("%w: piece %d has no id", ErrInvalidConfig, i+1)
		}
		if seen[pc.ID] {
			return fmt.Errorf("%w: duplicate piece id %q", ErrInvalidConfig, pc.ID)
		}
		seen[pc.ID] = true

		cells, err := pc.LocalCells()
		if err != nil {
			return fmt.Errorf("%w: %w: %w", ErrInvalidConfig, piece.ErrConfiguration, err)
		}
		if dup := duplicateCell(cells); dup != nil {
			return fmt.Errorf("%w: piece %q repeats cell (%v,%v)", ErrInvalidConfig, pc.ID, dup.X, dup.Y)
		}
		total += len(cells)

		if pc.PlacedAt != nil {
			c := *pc.PlacedAt
			if c.X < 0 || c.X >= config.Width || c.Y < 0 || c.Y >= config.Height {
				return fmt.Errorf("%w: piece %q placed_at %s is outside the %dx%d grid",
					ErrInvalidConfig, pc.ID, c, config.Width, config.Height)
			}
		}
	}

	// Validate completeness
	if area := config.Width * config.Height; total != area {
		return fmt.Errorf("%w: pieces cover %d cells but the grid has %d", ErrInvalidConfig, total, area)
	}

	return nil
}

func duplicateCell(cells []geometry.Vec) *geometry.Vec {
	seen := make(map[geometry.Vec]bool, len(cells))
	for i := range cells {
		if seen[cells[i]] {
			return &cells[i]
		}
		seen[cells[i]] = true
	}
	return nil
}

// DecodePuzzleConfig parses config data. The format is taken from ext
// (".json", ".yaml" or ".yml"); anything else is read as JSON.
func DecodePuzzleConfig(data []byte, ext string) (*PuzzleConfig, error) {
	var config PuzzleConfig
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	}
	return &config, nil
}

// EncodePuzzleConfig renders config in the format implied by ext
func EncodePuzzleConfig(config *PuzzleConfig, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Marshal(config)
	default:
		return json.MarshalIndent(config, "", "  ")
	}
}

// LoadPuzzleConfig loads a puzzle configuration from a JSON or YAML file
func LoadPuzzleConfig(filename string) (*PuzzleConfig, error) {
	// Support CONFIG_DIR environment variable for alternative config directory
	configPath := filename
	if configDir := os.Getenv("CONFIG_DIR"); configDir != "" {
		if strings.HasPrefix(filename, "configs/") {
			configPath = filepath.Join(configDir, strings.TrimPrefix(filename, "configs/"))
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	config, err := DecodePuzzleConfig(data, filepath.Ext(configPath))
	if err != nil {
		return nil, err
	}

	if err := ValidatePuzzleConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigByName loads a puzzle configuration by name from the configs
// directory, trying each supported extension
func LoadConfigByName(configName string) (*PuzzleConfig, error) {
	candidates := []string{configName}
	if !hasConfigExtension(configName) {
		candidates = candidates[:0]
		for _, ext := range ConfigExtensions {
			candidates = append(candidates, configName+ext)
		}
	}

	for _, name := range candidates {
		configPath := filepath.Join("configs", name)
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %v", name, err)
		}
		config, err := DecodePuzzleConfig(data, filepath.Ext(name))
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file '%s': %v", name, err)
		}
		if err := ValidatePuzzleConfig(config); err != nil {
			return nil, fmt.Errorf("invalid config '%s': %w", name, err)
		}
		return config, nil
	}

	return nil, fmt.Errorf("config file '%s' not found", configName)
}

func hasConfigExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ConfigExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DefaultPuzzleConfig returns the built-in 5x5 puzzle used when no config
// files are available
func DefaultPuzzleConfig() *PuzzleConfig {
	return &PuzzleConfig{
		Name:        "Classic 5x5",
		Description: "Seven pieces that tile a 5x5 board",
		Width:       5,
		Height:      5,
		CellSize:    DefaultCellSize,
		Snap:        SnapConfig{Policy: piece.SnapThreshold},
		Messages: Messages{
			Welcome: "Drag the pieces onto the board. Rotate and mirror them while dragging.",
			Solved:  "Solved! Every cell is covered.",
		},
		Pieces: []PieceConfig{
			{ID: "A", Name: "corner", Shape: []string{"##", "#."}},
			{ID: "B", Name: "hook", Shape: []string{"###", "..#"}},
			{ID: "C", Name: "flag", Shape: []string{"##", "#.", "#."}},
			{ID: "D", Name: "tee", Shape: []string{".#", "##", ".#"}},
			{ID: "E", Name: "bar", Shape: []string{"#", "#", "#"}},
			{ID: "F", Name: "post", Shape: []string{"#", "#", "#"}},
			{ID: "G", Name: "roof", Shape: []string{".#.", "###"}},
		},
	}
}
