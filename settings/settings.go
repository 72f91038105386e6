// Package settings loads puzzle server settings from a YAML file.
package settings

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds all server configuration
type Settings struct {
	Server   ServerSettings  `yaml:"server"`
	Frames   FrameSettings   `yaml:"frames"`
	Sessions SessionSettings `yaml:"sessions"`
	Ngrok    NgrokSettings   `yaml:"ngrok"`
	MCP      MCPSettings     `yaml:"mcp"`
}

// ServerSettings holds HTTP server settings
type ServerSettings struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	ConfigDir string `yaml:"config_dir"`
	Debug     bool   `yaml:"debug"`
}

// FrameSettings tunes the background frame driver
type FrameSettings struct {
	TickRate      int           `yaml:"tick_rate"` // Hz
	AuditInterval time.Duration `yaml:"audit_interval"`
}

// SessionSettings holds session lifecycle settings
type SessionSettings struct {
	MaxAge          time.Duration `yaml:"max_age"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// NgrokSettings configures the optional public tunnel
type NgrokSettings struct {
	Enabled bool   `yaml:"enabled"`
	Domain  string `yaml:"domain"`
}

// MCPSettings configures the stdio MCP mode
type MCPSettings struct {
	ExternalURL string `yaml:"external_url"`
}

// Default returns settings with every default applied
func Default() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

// Load reads settings from a YAML file
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadOrDefault loads path when it exists and returns the defaults otherwise
func LoadOrDefault(path string) (*Settings, error) {
	if path == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

func (s *Settings) applyDefaults() {
	if s.Server.Host == "" {
		s.Server.Host = "localhost"
	}
	if s.Server.Port == 0 {
		s.Server.Port = 8080
	}
	if s.Server.ConfigDir == "" {
		s.Server.ConfigDir = "configs"
	}
	if s.Frames.TickRate == 0 {
		s.Frames.TickRate = 30
	}
	if s.Frames.AuditInterval == 0 {
		s.Frames.AuditInterval = 500 * time.Millisecond
	}
	if s.Sessions.MaxAge == 0 {
		s.Sessions.MaxAge = 24 * time.Hour
	}
	if s.Sessions.CleanupInterval == 0 {
		s.Sessions.CleanupInterval = time.Hour
	}
	if s.MCP.ExternalURL == "" {
		s.MCP.ExternalURL = "http://localhost:8080"
	}
}

// Validate checks the settings for values the server cannot run with
func (s *Settings) Validate() error {
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 0 and 65535, got %d", s.Server.Port)
	}
	if s.Frames.TickRate < 1 || s.Frames.TickRate > 240 {
		return fmt.Errorf("tick rate must be between 1 and 240 Hz, got %d", s.Frames.TickRate)
	}
	if s.Frames.AuditInterval < 0 || s.Sessions.MaxAge < 0 || s.Sessions.CleanupInterval < 0 {
		return fmt.Errorf("intervals must not be negative")
	}
	return nil
}

// FrameInterval returns the time between frame ticks
func (s *Settings) FrameInterval() time.Duration {
	return time.Second / time.Duration(s.Frames.TickRate)
}

// Addr returns host:port
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Server.Host, s.Server.Port)
}
