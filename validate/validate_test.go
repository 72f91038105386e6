package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wricardo/polyfit/game/geometry"
)

const validConfig = `{
	"name": "Test Config",
	"description": "Test configuration",
	"width": 3,
	"height": 2,
	"messages": {
		"welcome": "Welcome!",
		"solved": "Solved!"
	},
	"pieces": [
		{"id": "A", "shape": ["##", "#."]},
		{"id": "B", "shape": ["#.", "##"]}
	]
}`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func hasError(result ValidationResult, substr string) bool {
	for _, e := range result.Errors {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestValidateConfig_ValidConfig(t *testing.T) {
	path := writeTemp(t, "test_config.json", validConfig)

	result := validateConfig(context.Background(), path, time.Second)
	if !result.Valid {
		t.Errorf("Expected valid config, but got errors: %v", result.Errors)
	}

	if result.File != "test_config.json" {
		t.Errorf("Expected file name test_config.json, got %s", result.File)
	}

	for _, info := range []string{"✓ Solvable", "✓ Grid: 3x2", "✓ Pieces: 2 (6 cells)", "✓ Snap: threshold"} {
		if !hasError(result, info) {
			t.Errorf("Expected %q in results: %v", info, result.Errors)
		}
	}
}

func TestValidateConfig_YAML(t *testing.T) {
	yamlConfig := `name: Test Config
description: Test configuration
width: 2
height: 1
messages:
  welcome: Welcome!
  solved: Solved!
pieces:
  - id: A
    shape: ["##"]
`
	path := writeTemp(t, "test_config.yaml", yamlConfig)

	result := validateConfig(context.Background(), path, time.Second)
	if !result.Valid {
		t.Errorf("Expected valid config, but got errors: %v", result.Errors)
	}
}

func TestValidateConfig_SkipSolver(t *testing.T) {
	path := writeTemp(t, "test_config.json", validConfig)

	result := validateConfig(context.Background(), path, 0)
	if !result.Valid {
		t.Errorf("Expected valid config, but got errors: %v", result.Errors)
	}
	if hasError(result, "Solvable") {
		t.Errorf("Solver should not run with a zero timeout: %v", result.Errors)
	}
}

func TestValidateConfig_InvalidJSON(t *testing.T) {
	path := writeTemp(t, "test_config.json", `{"name": "test", invalid json}`)

	result := validateConfig(context.Background(), path, time.Second)
	if result.Valid {
		t.Error("Expected invalid config for malformed JSON")
	}
	if !hasError(result, "Invalid JSON") {
		t.Errorf("Expected 'Invalid JSON' error, got: %v", result.Errors)
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig(context.Background(), "/non/existent/file.json", time.Second)
	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if !hasError(result, "Failed to read file") {
		t.Errorf("Expected 'Failed to read file' error, got: %v", result.Errors)
	}
}

func TestValidateConfig_CollectsEveryError(t *testing.T) {
	config := `{
		"name": "",
		"width": 3,
		"height": 2,
		"pieces": [
			{"id": "A", "shape": ["#.#"]},
			{"id": "A", "shape": ["#x"]},
			{"id": "", "cells": [[0,0],[0,0]], "placed_at": {"x": 5, "y": 0}}
		]
	}`
	path := writeTemp(t, "broken.json", config)

	result := validateConfig(context.Background(), path, time.Second)
	if result.Valid {
		t.Fatal("Expected invalid config")
	}

	expected := []string{
		"name is required",
		"description is required",
		"Piece A is not connected",
		"Duplicate piece id \"A\"",
		"invalid shape character",
		"Piece #3 has no id",
		"Piece #3 repeats cells (0,0)",
		"placed_at (5,0) is outside the grid",
		"Missing required message: welcome",
		"Missing required message: solved",
	}
	for _, want := range expected {
		if !hasError(result, want) {
			t.Errorf("Expected %q in errors: %v", want, result.Errors)
		}
	}
}

func TestValidateConfig_AreaMismatch(t *testing.T) {
	config := strings.Replace(validConfig, `"width": 3`, `"width": 4`, 1)
	path := writeTemp(t, "area.json", config)

	result := validateConfig(context.Background(), path, time.Second)
	if result.Valid {
		t.Error("Expected invalid config")
	}
	if !hasError(result, "Pieces cover 6 cells but the grid has 8") {
		t.Errorf("Expected area error, got: %v", result.Errors)
	}
}

func TestValidateConfig_InvalidGrid(t *testing.T) {
	config := strings.Replace(validConfig, `"height": 2`, `"height": 0`, 1)
	path := writeTemp(t, "grid.json", config)

	result := validateConfig(context.Background(), path, time.Second)
	if result.Valid {
		t.Error("Expected invalid config")
	}
	if !hasError(result, "height must be between") {
		t.Errorf("Expected height error, got: %v", result.Errors)
	}
}

func TestValidateConfig_Unsolvable(t *testing.T) {
	config := `{
		"name": "Stuck",
		"description": "The bar never fits",
		"width": 2,
		"height": 2,
		"messages": {"welcome": "Hi", "solved": "Bye"},
		"pieces": [
			{"id": "A", "shape": ["###"]},
			{"id": "B", "shape": ["#"]}
		]
	}`
	path := writeTemp(t, "stuck.json", config)

	result := validateConfig(context.Background(), path, time.Second)
	if result.Valid {
		t.Error("Expected unsolvable config to be invalid")
	}
	if !hasError(result, "Unsolvable") {
		t.Errorf("Expected 'Unsolvable' error, got: %v", result.Errors)
	}
}

func TestValidateConnectivity(t *testing.T) {
	tests := []struct {
		name   string
		cells  []geometry.Vec
		expect bool
	}{
		{"single", []geometry.Vec{{X: 0, Y: 0}}, true},
		{"L tromino", []geometry.Vec{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}, true},
		{"diagonal only", []geometry.Vec{{X: 0, Y: 0}, {X: 1, Y: 1}}, false},
		{"gap", []geometry.Vec{{X: 0, Y: 0}, {X: 2, Y: 0}}, false},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validateConnectivity(tt.cells); got != tt.expect {
				t.Errorf("Expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestConfigFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yml", "a.json", "c.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}

	files, err := configFiles(dir)
	if err != nil {
		t.Fatalf("configFiles failed: %v", err)
	}
	if len(files) != 2 || filepath.Base(files[0]) != "a.json" || filepath.Base(files[1]) != "b.yml" {
		t.Errorf("Unexpected files: %v", files)
	}
}

func TestRepositoryConfigs(t *testing.T) {
	files, err := configFiles(filepath.Join("..", "configs"))
	if err != nil || len(files) == 0 {
		t.Skip("Skipping test - configs directory not found")
	}

	if !run(context.Background(), files, 30*time.Second) {
		t.Error("Expected every repository config to be valid")
	}
}
