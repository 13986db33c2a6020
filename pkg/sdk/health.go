package matchdex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HealthStatus is the aggregated service health.
type HealthStatus struct {
	Status  string            `json:"status"`  // "ok", "degraded", "unhealthy"
	Version string            `json:"version"` // server build version
	Checks  map[string]string `json:"checks"`  // component -> "ok"/"error"
}

// Healthy reports whether every component check passed.
func (h HealthStatus) Healthy() bool { return h.Status == "ok" }

// Health checks the health of the server and its components. A degraded
// or unhealthy server still returns a report, not an error: the 503 the
// server answers with carries the same body as the 200.
func (c *Client) Health(ctx context.Context) (hs HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("health", start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("matchdex: build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return HealthStatus{}, fmt.Errorf("matchdex: GET /health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusServiceUnavailable {
		return HealthStatus{}, decodeAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
		return HealthStatus{}, fmt.Errorf("matchdex: decode response: %w", err)
	}
	return hs, nil
}
