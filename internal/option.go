package internal

import (
	"io"

	"github.com/starford/minuta/internal/extraction"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	extractor extraction.Client
	logOutput io.Writer
	version   string
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithExtractor replaces the extraction client built from the config.
func WithExtractor(c extraction.Client) Option {
	return func(a *application) {
		a.extractor = c
	}
}

// WithLogOutput sends logs to w instead of stdout. The MCP server needs
// stdout for the protocol.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}
