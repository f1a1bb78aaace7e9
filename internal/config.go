package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/minuta/internal/extraction"
	"github.com/starford/minuta/internal/workflow"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	SQLite     SQLiteConfig      `yaml:"sqlite"`
	Library    LibraryConfig     `yaml:"library"`
	Uploads    UploadsConfig     `yaml:"uploads"`
	Sessions   SessionsConfig    `yaml:"sessions"`
	Auth       AuthConfig        `yaml:"auth"`
	Extraction ExtractionConfig  `yaml:"extraction"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Uploads.Validate(); err != nil {
		return err
	}
	if err := c.Sessions.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Extraction.Validate()
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

// LibraryConfig points at the template drop folder. An empty Path keeps
// templates in the database only.
type LibraryConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// UploadsConfig holds where source documents are kept during a review.
type UploadsConfig struct {
	Path     string `yaml:"path"`
	MaxBytes int64  `yaml:"max_bytes"`
}

// Validate validates the uploads configuration.
func (c *UploadsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1))),
	)
}

// SessionsConfig controls how long idle review sessions are kept.
type SessionsConfig struct {
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Validate validates the sessions configuration.
func (c *SessionsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.IdleTimeout, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.SweepInterval, validation.Required, validation.Min(time.Second)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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

// ExtractionConfig configures the document extraction collaborator.
type ExtractionConfig struct {
	Mode        string        `yaml:"mode"`
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Validate validates the extraction configuration.
func (c *ExtractionConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = extraction.ModeDisabled
	}
	remote := c.Mode != extraction.ModeDisabled
	return validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.In(extraction.ModeDisabled, extraction.ModeGateway, extraction.ModeFunction)),
		validation.Field(&c.BaseURL, validation.When(remote, validation.Required)),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
	)
}

// Client converts the section into the extraction package's settings.
func (c *ExtractionConfig) Client() extraction.Config {
	return extraction.Config{
		Mode:        c.Mode,
		BaseURL:     c.BaseURL,
		APIKey:      c.APIKey,
		Model:       c.Model,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
	}
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
		SQLite: SQLiteConfig{
			Path: "./minuta.db",
		},
		Library: LibraryConfig{
			Path:  "./modelos",
			Watch: true,
		},
		Uploads: UploadsConfig{
			Path:     "./uploads",
			MaxBytes: workflow.DefaultMaxDocumentBytes,
		},
		Sessions: SessionsConfig{
			IdleTimeout:   2 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Extraction: ExtractionConfig{
			Mode:        extraction.ModeDisabled,
			Temperature: 0.1,
			Timeout:     60 * time.Second,
		},
	}
}
