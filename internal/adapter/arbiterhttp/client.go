// Package arbiterhttp provides an HTTP client for the dispute collaborator.
package arbiterhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client files disputes with the external adjudication service. The arbiter
// calls back into the engine's ruling endpoint once adjudication completes,
// so the only outbound operation is the filing itself.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new arbiter client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FileDispute registers a dispute for the task and returns the arbiter's
// dispute ID.
func (c *Client) FileDispute(ctx context.Context, taskID, claim string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"task_id": taskID,
		"claim":   claim,
	})
	if err != nil {
		return "", fmt.Errorf("marshal dispute request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/disputes", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("file dispute for task %s: %w", taskID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read dispute response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("arbiter error %d: %s", resp.StatusCode, string(data))
	}

	var out struct {
		DisputeID string `json:"dispute_id"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("unmarshal dispute response: %w", err)
	}
	return out.DisputeID, nil
}
