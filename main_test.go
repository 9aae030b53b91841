package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "Parking Jam Server" {
		t.Errorf("Unexpected app name %s", AppName)
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		debug bool
		env   string
		want  log.Level
	}{
		{"default", false, "", log.InfoLevel},
		{"debug flag", true, "", log.DebugLevel},
		{"debug flag wins", true, "error", log.DebugLevel},
		{"env warn", false, "warn", log.WarnLevel},
		{"env invalid", false, "loud", log.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := logLevel(tt.debug, tt.env); got != tt.want {
				t.Errorf("logLevel(%v, %q) = %v, want %v", tt.debug, tt.env, got, tt.want)
			}
		})
	}
}

func TestInitializeServices(t *testing.T) {
	svc, err := initializeServices(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}

	if svc.game == nil || svc.sessions == nil || svc.levels == nil || svc.hub == nil || svc.metrics == nil {
		t.Fatal("Expected all services to be initialized")
	}

	// An empty directory still yields the built-in level.
	if svc.levels.GetDefault() == nil {
		t.Error("Expected a default level")
	}
}

func TestInitializeServices_InvalidLevelsDir(t *testing.T) {
	if _, err := initializeServices("/non/existent/path", testLogger()); err == nil {
		t.Error("Expected error for non-existent levels directory")
	}
}

func TestFlagDefaults(t *testing.T) {
	if *port <= 0 || *port > 65535 {
		t.Errorf("Invalid default port: %d", *port)
	}
	if *host == "" {
		t.Error("Host should have a default value")
	}
	if *levelsDir == "" {
		t.Error("Levels directory should have a default value")
	}
	if *sessionTTL <= 0 {
		t.Error("Session TTL should be positive by default")
	}
}

func TestGetLevelsDirDefault(t *testing.T) {
	t.Setenv("LEVELS_DIR", "")
	if got := getLevelsDirDefault(); got != "levels" {
		t.Errorf("Expected levels, got %s", got)
	}

	t.Setenv("LEVELS_DIR", "/tmp/custom")
	if got := getLevelsDirDefault(); got != "/tmp/custom" {
		t.Errorf("Expected /tmp/custom, got %s", got)
	}
}

func TestRouter(t *testing.T) {
	svc, err := initializeServices(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.hub.Run(ctx)

	ts := httptest.NewServer(newRouter(svc, "http://unused"))
	defer ts.Close()

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		want   string
	}{
		{"health", "GET", "/healthz", "", http.StatusOK, "healthy"},
		{"metrics", "GET", "/metrics", "", http.StatusOK, "parkingjam_active_sessions"},
		{"levels", "GET", "/api/levels", "", http.StatusOK, ""},
		{"mcp ping", "POST", "/mcp", `{"jsonrpc":"2.0","id":1,"method":"ping"}`, http.StatusOK, `"jsonrpc"`},
		{"mcp wrong method", "GET", "/mcp", "", http.StatusMethodNotAllowed, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("Expected status %d, got %d", tt.status, resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			if tt.want != "" && !strings.Contains(string(body), tt.want) {
				t.Errorf("Expected body to contain %q, got %s", tt.want, body)
			}
		})
	}
}

func TestSessionCleanupRoutine(t *testing.T) {
	svc, err := initializeServices(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	if _, err := svc.sessions.Create("", svc.levels.GetDefault(), nil); err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.hub.Run(ctx)

	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(ctx, svc.sessions, 10*time.Millisecond, testLogger())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for svc.sessions.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if svc.sessions.Count() != 0 {
		t.Error("Expected expired session to be removed")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Cleanup routine did not stop on cancel")
	}
}

func TestSessionCleanupRoutine_Disabled(t *testing.T) {
	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(context.Background(), nil, 0, testLogger())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Expected routine to return immediately when ttl is zero")
	}
}

// closeTracker records whether a response body was closed.
type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestExternalAPIAvailable(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"healthy", http.StatusOK, true},
		{"not found", http.StatusNotFound, true},
		{"server error", http.StatusInternalServerError, false},
		{"unavailable", http.StatusServiceUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := &closeTracker{Reader: strings.NewReader(`{"status":"healthy"}`)}
			client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				if r.URL.Path != "/healthz" {
					t.Errorf("Unexpected path %s", r.URL.Path)
				}
				return &http.Response{StatusCode: tt.status, Body: body, Header: http.Header{}, Request: r}, nil
			})}

			if got := externalAPIAvailable(client, "http://localhost:1"); got != tt.want {
				t.Errorf("externalAPIAvailable() = %v, want %v", got, tt.want)
			}
			if !body.closed {
				t.Error("Expected the response body to be closed")
			}
		})
	}
}

func TestExternalAPIAvailable_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if externalAPIAvailable(&http.Client{Timeout: time.Second}, url) {
		t.Error("Expected a closed server to be unavailable")
	}
}
