package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// postJSON sends body to url and returns the raw response. Non-2xx statuses
// are errors. reqID ties the log lines of one call together.
func postJSON(ctx context.Context, client *http.Client, url, apiKey string, body any, reqID string, logger *slog.Logger) ([]byte, error) {
	start := time.Now()

	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	logger.Info("extraction.http.request",
		slog.String("req_id", reqID),
		slog.String("url", url),
		slog.Int("content_length", len(bs)))

	resp, err := client.Do(req)
	if err != nil {
		logger.Error("extraction.http.send_error",
			slog.String("req_id", reqID),
			slog.String("error", err.Error()),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	logger.Info("extraction.http.response",
		slog.String("req_id", reqID),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(raw)),
		slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))

	if resp.StatusCode/100 != 2 {
		return raw, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, nil
}
