package clienttransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marcus/todosync/internal/syncwire"
)

func TestHealthNoAuthRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Fatalf("expected no auth header on /health")
		}
		json.NewEncoder(w).Encode(syncwire.HealthResponse{Status: "ok"})
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	resp, err := c.Health()
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if resp.Status != "ok" {
		t.Fatalf("expected ok, got %q", resp.Status)
	}
}

func TestPushSendsBearerToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret-token" {
			t.Fatalf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		var req syncwire.PushRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Todos.Upserted) != 1 {
			t.Fatalf("expected 1 upserted todo")
		}
		json.NewEncoder(w).Encode(syncwire.PushResponse{})
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-token")
	req := syncwire.PushRequest{}
	req.Todos.Upserted = []syncwire.PushTodo{{Title: "x"}}
	if _, err := c.Push(req); err != nil {
		t.Fatalf("push: %v", err)
	}
}

func TestUnauthorizedMapsToSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"code": "UNAUTHORIZED", "message": "bad token"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "bad")
	_, err := c.State()
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestDeltaEncodesSinceParam(t *testing.T) {
	since := time.Date(2026, 1, 3, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.URL.Query().Get("since")
		want := since.Format(time.RFC3339Nano)
		if got != want {
			t.Fatalf("expected since=%q, got %q", want, got)
		}
		json.NewEncoder(w).Encode(syncwire.DeltaResponse{})
	}))
	defer srv.Close()

	c := New(srv.URL, "t")
	if _, err := c.Delta(since); err != nil {
		t.Fatalf("delta: %v", err)
	}
}
