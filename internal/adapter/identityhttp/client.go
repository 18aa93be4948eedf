// Package identityhttp provides an HTTP client for the identity collaborator.
package identityhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Strob0t/TaskBazaar/internal/domain"
	"github.com/Strob0t/TaskBazaar/internal/port/identity"
	"github.com/Strob0t/TaskBazaar/internal/resilience"
)

// Client talks to the identity collaborator's verify endpoint. It holds no
// cryptographic material itself.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a new identity client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	Valid    bool           `json:"valid"`
	SignerID string         `json:"signer_id"`
	Payload  map[string]any `json:"payload"`
}

// Verify validates a compact signed token against the signer's registered
// key. An unreachable or erroring collaborator maps to
// domain.ErrIdentityUnavailable; a token the collaborator rejects maps to
// domain.ErrInvalidToken.
func (c *Client) Verify(ctx context.Context, token string) (*identity.Verification, error) {
	body, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal verify request: %w", err)
	}

	var vr verifyResponse
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/verify", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("identity request: %w", domain.ErrIdentityUnavailable)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", domain.ErrIdentityUnavailable)
		}

		if resp.StatusCode >= 500 {
			return fmt.Errorf("identity error %d: %w", resp.StatusCode, domain.ErrIdentityUnavailable)
		}
		if resp.StatusCode >= 400 {
			return fmt.Errorf("identity rejected token: %w", domain.ErrInvalidToken)
		}

		if err := json.Unmarshal(data, &vr); err != nil {
			return fmt.Errorf("unmarshal verify response: %w", domain.ErrIdentityUnavailable)
		}
		return nil
	}

	if c.breaker != nil {
		err = c.breaker.Execute(call)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, fmt.Errorf("identity circuit open: %w", domain.ErrIdentityUnavailable)
		}
	} else {
		err = call()
	}
	if err != nil {
		return nil, err
	}

	if !vr.Valid {
		return nil, fmt.Errorf("signature did not verify: %w", domain.ErrInvalidToken)
	}

	return &identity.Verification{SignerID: vr.SignerID, Payload: vr.Payload}, nil
}
