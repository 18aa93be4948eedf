package ledgerhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Strob0t/TaskBazaar/internal/domain"
)

func TestLockSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/escrow/lock" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["task_id"] != "t1" || body["amount"] != float64(100) {
			t.Errorf("body = %v", body)
		}
		_, _ = w.Write([]byte(`{"escrow_id":"esc-1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	id, err := c.Lock(context.Background(), "alice", 100, "t1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if id != "esc-1" {
		t.Errorf("escrow id = %q", id)
	}
}

func TestLockInsufficientFunds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_, _ = w.Write([]byte(`{"code":"insufficient_funds"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Lock(context.Background(), "alice", 100, "t1"); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("got %v, want ErrInsufficientFunds", err)
	}
}

func TestReleaseAlreadyResolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"escrow_already_resolved"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if err := c.Release(context.Background(), "esc-1", "bob"); !errors.Is(err, domain.ErrEscrowResolved) {
		t.Fatalf("got %v, want ErrEscrowResolved", err)
	}
}

func TestSplitUnknownEscrow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"escrow_not_found"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if err := c.Split(context.Background(), "esc-x", "bob", "alice", 70); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if err := c.Release(context.Background(), "esc-1", "bob"); !errors.Is(err, domain.ErrLedgerUnavailable) {
		t.Fatalf("got %v, want ErrLedgerUnavailable", err)
	}
}

func TestUnreachableLedgerIsUnavailable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	if _, err := c.Lock(context.Background(), "alice", 100, "t1"); !errors.Is(err, domain.ErrLedgerUnavailable) {
		t.Fatalf("got %v, want ErrLedgerUnavailable", err)
	}
}

func TestSplitSendsPercentage(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if err := c.Split(context.Background(), "esc-1", "bob", "alice", 70); err != nil {
		t.Fatalf("split: %v", err)
	}
	if got["pct_to_a"] != float64(70) || got["recipient_a"] != "bob" {
		t.Errorf("request body = %v", got)
	}
}
