// Package config provides puzzle configuration management.
//
// Puzzle configurations are JSON or YAML files in the configs directory.
// The file name without extension is the config id used to create
// sessions. Each configuration defines:
//   - Grid width, height, cell size and world origin
//   - The pieces, as ASCII shapes or integer cell lists
//   - Snap policy and tuning
//   - Messages shown on start and when solved
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	puzzle, err := manager.LoadConfig("classic")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	configs, err := manager.ListConfigs()
//
// Loaded configurations are validated with engine.ValidatePuzzleConfig and
// cached until RefreshCache is called. When no "classic" config exists the
// first valid file becomes the default, and with no files at all the
// built-in 5x5 puzzle is used.
package config
