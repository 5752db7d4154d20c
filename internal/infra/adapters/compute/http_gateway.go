// File: internal/infra/adapters/compute/http_gateway.go
package compute

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"interpretation-broker/internal/domain/ports/adapter"
)

var _ adapter.ComputeService = (*HTTPGateway)(nil)

// HTTPGateway implements adapter.ComputeService against the super-backend's
// REST surface. The service acknowledges the request immediately and
// reports the actual result later on the broker's callback endpoint.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGateway(baseURL string, timeout time.Duration) (*HTTPGateway, error) {
	if baseURL == "" {
		return nil, errors.New("compute base url empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid compute base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// Interpret posts the job to the super-backend and returns its
// acknowledgement string.
func (g *HTTPGateway) Interpret(ctx context.Context, jobID string, params map[string]any) (string, error) {
	payload := make(map[string]any, len(params)+1)
	for k, v := range params {
		payload[k] = v
	}
	payload["job_id"] = jobID

	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/interpretations", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode acknowledgement: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("super-backend rejected job %s: %s (%d)", jobID, out.Status, resp.StatusCode)
	}
	return out.Status, nil
}
