package identityhttp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Strob0t/TaskBazaar/internal/domain"
	"github.com/Strob0t/TaskBazaar/internal/resilience"
)

func TestVerifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/verify" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"valid":true,"signer_id":"alice","payload":{"action":"cancel","task_id":"t1"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	v, err := c.Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if v.SignerID != "alice" {
		t.Errorf("signer = %q", v.SignerID)
	}
	if v.Payload["action"] != "cancel" {
		t.Errorf("payload = %v", v.Payload)
	}
}

func TestVerifyInvalidSignature(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"valid":false}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Verify(context.Background(), "tok"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Verify(context.Background(), "tok"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("got %v, want ErrInvalidToken", err)
	}
}

func TestVerifyServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.Verify(context.Background(), "tok"); !errors.Is(err, domain.ErrIdentityUnavailable) {
		t.Fatalf("got %v, want ErrIdentityUnavailable", err)
	}
}

func TestVerifyUnreachableIsUnavailable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	if _, err := c.Verify(context.Background(), "tok"); !errors.Is(err, domain.ErrIdentityUnavailable) {
		t.Fatalf("got %v, want ErrIdentityUnavailable", err)
	}
}

func TestVerifyOpenBreakerIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	c.SetBreaker(resilience.NewBreaker(1, time.Minute))

	_, _ = c.Verify(context.Background(), "tok") // trips the breaker
	if _, err := c.Verify(context.Background(), "tok"); !errors.Is(err, domain.ErrIdentityUnavailable) {
		t.Fatalf("got %v, want ErrIdentityUnavailable", err)
	}
}
