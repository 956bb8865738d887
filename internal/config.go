package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/forcegraph/internal/graph"
	"github.com/starford/forcegraph/internal/layout"
	"github.com/starford/forcegraph/internal/sse"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Scenes     ScenesConfig      `yaml:"scenes"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Auth       AuthConfig        `yaml:"auth"`
	Stream     StreamConfig      `yaml:"stream"`
	Simulation graph.Config      `yaml:"simulation"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Scenes.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Stream.Validate(); err != nil {
		return err
	}
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// ScenesConfig holds the path to the directory of scene files.
type ScenesConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the scenes configuration.
func (c *ScenesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// StreamConfig controls how fast simulations tick and how often their
// frames are pushed to event stream clients.
type StreamConfig struct {
	TickRate      int           `yaml:"tick_rate"`
	FrameThrottle time.Duration `yaml:"frame_throttle"`
}

// Validate validates the stream configuration.
func (c *StreamConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TickRate, validation.Required, validation.Min(1), validation.Max(1000)),
		validation.Field(&c.FrameThrottle, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Scenes: ScenesConfig{
			Path: "./scenes",
		},
		SQLite: SQLiteConfig{
			Path: "./forcegraph.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Stream: StreamConfig{
			TickRate:      layout.DefaultTickRate,
			FrameThrottle: sse.DefaultFrameThrottle,
		},
		Simulation: graph.DefaultConfig(),
	}
}
