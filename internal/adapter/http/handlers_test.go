package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Strob0t/TaskBazaar/internal/domain"
	"github.com/Strob0t/TaskBazaar/internal/port/messagequeue"
)

func TestWriteDomainErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.ErrValidation, http.StatusBadRequest, "validation"},
		{domain.ErrInvalidToken, http.StatusBadRequest, "invalid_token"},
		{domain.ErrInsufficientFunds, http.StatusPaymentRequired, "insufficient_funds"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{domain.ErrTokenMismatch, http.StatusForbidden, "token_mismatch"},
		{domain.ErrNotFound, http.StatusNotFound, "not_found"},
		{domain.ErrConflict, http.StatusConflict, "conflict"},
		{domain.ErrEscrowResolved, http.StatusConflict, "escrow_resolved"},
		{domain.ErrIdentityUnavailable, http.StatusBadGateway, "identity_unavailable"},
		{domain.ErrLedgerUnavailable, http.StatusBadGateway, "ledger_unavailable"},
		{domain.ErrReconciliation, http.StatusBadGateway, "reconciliation_required"},
		{errors.New("something else"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeDomainError(rec, fmt.Errorf("op failed: %w", tc.err))

		if rec.Code != tc.status {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.status)
		}
		var resp errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("%v: bad body: %v", tc.err, err)
		}
		if resp.Code != tc.code {
			t.Errorf("%v: code = %q, want %q", tc.err, resp.Code, tc.code)
		}
	}
}

func TestWriteDomainErrorHidesInternalDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, errors.New("pq: relation tasks does not exist"))

	if strings.Contains(rec.Body.String(), "relation") {
		t.Error("internal error detail leaked into response")
	}
}

func TestReadJSONSizeLimit(t *testing.T) {
	big := `{"token":"` + strings.Repeat("x", maxRequestBodySize) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	rec := httptest.NewRecorder()

	if _, ok := readJSON[tokenRequest](rec, req); ok {
		t.Fatal("oversized body accepted")
	}
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestReadJSONBadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()

	if _, ok := readJSON[tokenRequest](rec, req); ok {
		t.Fatal("malformed body accepted")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	if got := bearerToken(req); got != "" {
		t.Errorf("no header: got %q", got)
	}

	req.Header.Set("Authorization", "Bearer tok-123")
	if got := bearerToken(req); got != "tok-123" {
		t.Errorf("got %q, want tok-123", got)
	}

	req.Header.Set("Authorization", "Basic abc")
	if got := bearerToken(req); got != "" {
		t.Errorf("non-bearer scheme: got %q", got)
	}
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type fakeQueue struct{ connected bool }

func (q fakeQueue) Publish(context.Context, string, []byte) error { return nil }
func (q fakeQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}
func (q fakeQueue) Drain() error      { return nil }
func (q fakeQueue) Close() error      { return nil }
func (q fakeQueue) IsConnected() bool { return q.connected }

func TestHealthOK(t *testing.T) {
	h := &Handlers{DB: fakePinger{}, Queue: fakeQueue{connected: true}}
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "ok" || resp["database"] != "ok" || resp["queue"] != "ok" {
		t.Errorf("body = %v", resp)
	}
}

func TestHealthDegradedDatabase(t *testing.T) {
	h := &Handlers{DB: fakePinger{err: errors.New("down")}, Queue: fakeQueue{connected: true}}
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "degraded" {
		t.Errorf("body = %v", resp)
	}
}
