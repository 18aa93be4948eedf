// Package ledgerhttp provides an HTTP client for the escrow ledger collaborator.
package ledgerhttp

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
	"github.com/Strob0t/TaskBazaar/internal/resilience"
)

// Client talks to the ledger collaborator's escrow API. The ledger treats
// task_id as the dedup key for lock operations, so a retried lock returns
// the existing escrow ID instead of double-locking funds.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a new ledger client.
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

// ledgerError is the machine-readable error body the ledger returns.
type ledgerError struct {
	Code string `json:"code"`
}

// Lock reserves amount coins from payer for the given task.
func (c *Client) Lock(ctx context.Context, payerID string, amount int64, taskID string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"payer_id": payerID,
		"amount":   amount,
		"task_id":  taskID,
	})
	if err != nil {
		return "", fmt.Errorf("marshal lock request: %w", err)
	}

	data, err := c.doRequest(ctx, "/v1/escrow/lock", body)
	if err != nil {
		return "", fmt.Errorf("lock escrow for task %s: %w", taskID, err)
	}

	var resp struct {
		EscrowID string `json:"escrow_id"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("unmarshal lock response: %w", domain.ErrLedgerUnavailable)
	}
	return resp.EscrowID, nil
}

// Release pays the full escrow to a single recipient.
func (c *Client) Release(ctx context.Context, escrowID, recipientID string) error {
	body, err := json.Marshal(map[string]any{
		"escrow_id":    escrowID,
		"recipient_id": recipientID,
	})
	if err != nil {
		return fmt.Errorf("marshal release request: %w", err)
	}

	if _, err := c.doRequest(ctx, "/v1/escrow/release", body); err != nil {
		return fmt.Errorf("release escrow %s: %w", escrowID, err)
	}
	return nil
}

// Split divides the escrow between two recipients. The ledger pays
// floor(total*pctToA/100) to A and the remainder to B.
func (c *Client) Split(ctx context.Context, escrowID, recipientA, recipientB string, pctToA int) error {
	body, err := json.Marshal(map[string]any{
		"escrow_id":   escrowID,
		"recipient_a": recipientA,
		"recipient_b": recipientB,
		"pct_to_a":    pctToA,
	})
	if err != nil {
		return fmt.Errorf("marshal split request: %w", err)
	}

	if _, err := c.doRequest(ctx, "/v1/escrow/split", body); err != nil {
		return fmt.Errorf("split escrow %s: %w", escrowID, err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("ledger request: %w", domain.ErrLedgerUnavailable)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", domain.ErrLedgerUnavailable)
		}

		if resp.StatusCode >= 400 {
			return classify(resp.StatusCode, data)
		}

		result = data
		return nil
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Execute(call)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, fmt.Errorf("ledger circuit open: %w", domain.ErrLedgerUnavailable)
		}
	} else {
		err = call()
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// classify maps a ledger error response onto the domain error taxonomy.
func classify(status int, data []byte) error {
	var le ledgerError
	_ = json.Unmarshal(data, &le)

	switch le.Code {
	case "insufficient_funds":
		return domain.ErrInsufficientFunds
	case "account_not_found", "escrow_not_found":
		return domain.ErrNotFound
	case "escrow_already_resolved":
		return domain.ErrEscrowResolved
	}

	if status >= 500 {
		return fmt.Errorf("ledger error %d: %w", status, domain.ErrLedgerUnavailable)
	}
	return fmt.Errorf("ledger error %d: %s: %w", status, string(data), domain.ErrValidation)
}
