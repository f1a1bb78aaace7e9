package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/minuta/internal/apperr"
	"github.com/starford/minuta/internal/models"
)

// Modes select which Client New builds.
const (
	ModeDisabled = "disabled"
	ModeGateway  = "gateway"
	ModeFunction = "function"
)

// Config configures the extraction clients.
type Config struct {
	Mode        string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// New returns the Client for cfg.Mode.
func New(cfg Config, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	switch cfg.Mode {
	case ModeGateway:
		return NewGatewayClient(cfg, logger)
	case ModeFunction:
		return NewFunctionClient(cfg, logger)
	default:
		return Disabled{}
	}
}

// Disabled always fails, leaving every field to manual entry.
type Disabled struct{}

// Extract implements Client.
func (Disabled) Extract(context.Context, Request) ([]models.ExtractionResult, error) {
	return nil, fmt.Errorf("%w: extraction is disabled", apperr.ErrExtractionFailed)
}

// GatewayClient calls an OpenAI-compatible chat/completions endpoint with a
// vision-capable model.
type GatewayClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewGatewayClient creates a GatewayClient. Model defaults to
// google/gemini-2.5-flash.
func NewGatewayClient(cfg Config, logger *slog.Logger) *GatewayClient {
	if cfg.Model == "" {
		cfg.Model = "google/gemini-2.5-flash"
	}
	return &GatewayClient{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

// Extract implements Client.
func (c *GatewayClient) Extract(ctx context.Context, req Request) ([]models.ExtractionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rid := uuid.NewString()
	start := time.Now()
	c.logger.Info("extraction.start",
		slog.String("req_id", rid),
		slog.String("mode", ModeGateway),
		slog.String("model", c.cfg.Model),
		slog.Int("variables", len(req.Variables)),
		slog.Int("images", len(req.Images)))

	content := []map[string]any{{"type": "text", "text": BuildPrompt(req.Variables)}}
	for _, img := range req.Images {
		content = append(content, map[string]any{
			"type":      "image_url",
			"image_url": map[string]string{"url": img},
		})
	}
	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
		"messages":    []map[string]any{{"role": "user", "content": content}},
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, err := postJSON(ctx, c.http, endpoint, c.cfg.APIKey, body, rid, c.logger)
	if err != nil {
		return nil, c.fail(rid, start, "AI processing failed", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, c.fail(rid, start, "decode gateway response", err)
	}
	if len(cc.Choices) == 0 {
		return nil, c.fail(rid, start, "no choices in gateway response", nil)
	}

	obj, ok := CutJSONObject(cc.Choices[0].Message.Content)
	if !ok {
		return nil, c.fail(rid, start, "Failed to parse AI response", nil)
	}
	results, err := ParseResults([]byte(obj))
	if err != nil {
		return nil, c.fail(rid, start, "Failed to parse AI response", err)
	}

	c.logger.Info("extraction.ok",
		slog.String("req_id", rid),
		slog.Int("results", len(results)),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	return results, nil
}

func (c *GatewayClient) fail(rid string, start time.Time, msg string, err error) error {
	return failure(c.logger, rid, start, msg, err)
}

// FunctionClient posts {variables, images} to a remote function that runs
// the model call itself and answers with {results}.
type FunctionClient struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// NewFunctionClient creates a FunctionClient targeting cfg.BaseURL.
func NewFunctionClient(cfg Config, logger *slog.Logger) *FunctionClient {
	return &FunctionClient{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

// Extract implements Client.
func (c *FunctionClient) Extract(ctx context.Context, req Request) ([]models.ExtractionResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	rid := uuid.NewString()
	start := time.Now()
	c.logger.Info("extraction.start",
		slog.String("req_id", rid),
		slog.String("mode", ModeFunction),
		slog.Int("variables", len(req.Variables)),
		slog.Int("images", len(req.Images)))

	raw, err := postJSON(ctx, c.http, c.cfg.BaseURL, c.cfg.APIKey, req, rid, c.logger)
	if err != nil {
		var e struct {
			Error string `json:"error"`
		}
		msg := "function call failed"
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return nil, failure(c.logger, rid, start, msg, err)
	}

	results, err := ParseResults(raw)
	if err != nil {
		return nil, failure(c.logger, rid, start, "Failed to parse AI response", err)
	}
	c.logger.Info("extraction.ok",
		slog.String("req_id", rid),
		slog.Int("results", len(results)),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
	return results, nil
}

func failure(logger *slog.Logger, rid string, start time.Time, msg string, err error) error {
	attrs := []any{
		slog.String("req_id", rid),
		slog.String("reason", msg),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		logger.Error("extraction.failed", attrs...)
		return fmt.Errorf("%w: %s: %v", apperr.ErrExtractionFailed, msg, err)
	}
	logger.Error("extraction.failed", attrs...)
	return fmt.Errorf("%w: %s", apperr.ErrExtractionFailed, msg)
}
