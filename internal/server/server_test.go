package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"wheeldeals/internal/config"
	"wheeldeals/internal/handlers"
	"wheeldeals/internal/repository/memory"
)

func newTestServer(t *testing.T) *HTTPServer {
	t.Helper()
	cfg := &config.AppConfig{
		Environment:      "test",
		HTTP:             config.HTTPConfig{Host: "127.0.0.1", Port: 0},
		Security:         config.SecurityConfig{JWTAccessSecret: "server-secret", JWTAccessTTL: time.Minute},
		AllowCORSOrigins: []string{"*"},
	}
	set := handlers.NewHandlerSet(zerolog.Nop(), cfg, memory.New(), nil, handlers.Services{})
	return NewHTTPServer(cfg, zerolog.Nop(), set)
}

func TestRoutes(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		method, path string
		want         int
		code         string
	}{
		{http.MethodGet, "/api/healthz", http.StatusOK, ""},
		{http.MethodGet, "/api/v1/nowhere", http.StatusNotFound, "not_found"},
		{http.MethodDelete, "/api/healthz", http.StatusMethodNotAllowed, "method_not_allowed"},
		{http.MethodGet, "/api/v1/auth/me", http.StatusUnauthorized, "missing_token"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		if w.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.want)
			continue
		}
		if w.Header().Get("X-Request-Id") == "" {
			t.Errorf("%s %s: missing request id", tt.method, tt.path)
		}
		if tt.code != "" {
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] != tt.code {
				t.Errorf("%s %s: body %s, want error %q", tt.method, tt.path, w.Body, tt.code)
			}
		}
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
