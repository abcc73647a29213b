package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mikey/email-priority/internal/core"
	"go.uber.org/zap"
)

// HTTPChecker is an implementation of the CalendarChecker interface that
// asks an external calendar service whether a window overlaps an existing
// commitment
type HTTPChecker struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

type conflictRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type conflictResponse struct {
	Conflict bool `json:"conflict"`
}

// NewHTTPChecker creates a new HTTP calendar checker
func NewHTTPChecker(endpoint string, timeout time.Duration, logger *zap.Logger) *HTTPChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPChecker{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

// CheckConflict reports whether the window overlaps an existing commitment
func (c *HTTPChecker) CheckConflict(ctx context.Context, window core.TimeWindow) (bool, error) {
	payload, err := json.Marshal(conflictRequest{Start: window.Start, End: window.End})
	if err != nil {
		return false, fmt.Errorf("failed to marshal conflict request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return false, fmt.Errorf("failed to build conflict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("calendar service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("calendar service returned status %d", resp.StatusCode)
	}

	var body conflictResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("failed to decode calendar service response: %w", err)
	}

	c.logger.Debug("Calendar conflict check complete",
		zap.Time("start", window.Start),
		zap.Bool("conflict", body.Conflict))

	return body.Conflict, nil
}
