package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/user/termdemo/internal/hub"
)

func TestHandlerRoutes(t *testing.T) {
	api := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler, err := newHandler(hub.New("secret", nil), api)
	if err != nil {
		t.Fatalf("newHandler() error = %v", err)
	}

	tests := []struct {
		name     string
		path     string
		status   int
		contains string
	}{
		{"index", "/", http.StatusOK, `<div class="td-body" id="body">`},
		{"script", "/app.js", http.StatusOK, "WebSocket"},
		{"stylesheet", "/style.css", http.StatusOK, ".td-cursor"},
		{"unknown path falls back to index", "/demo/anything", http.StatusOK, "<title>termdemo</title>"},
		{"api", "/api/status", http.StatusTeapot, ""},
		{"websocket without token", "/ws", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rr.Code != tt.status {
				t.Fatalf("GET %s status=%d want %d", tt.path, rr.Code, tt.status)
			}
			if tt.contains != "" && !strings.Contains(rr.Body.String(), tt.contains) {
				t.Fatalf("GET %s body missing %q", tt.path, tt.contains)
			}
		})
	}
}

func TestHandlerWithoutAPI(t *testing.T) {
	handler, err := newHandler(hub.New("", nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d want 404", rr.Code)
	}
}

func TestStartAndShutdown(t *testing.T) {
	srv, err := New("127.0.0.1:0", hub.New("", nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	resp, err := http.Get("http://" + srv.Addr() + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "termdemo") {
		t.Fatalf("GET / status=%d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down")
	}
}
