// Package testhelpers provides common utilities and helper functions for
// testing the Coscribe server.
//
// It contains reusable helpers shared by the integration tests: standing up
// a server with a fresh store and hub, dialing the WebSocket endpoint with an
// allowed origin, and reading typed envelopes under a deadline.
package testhelpers

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/coscribe/coscribe/internal/server"
)

// App bundles a test server with its private store and hub so tests never
// share state through the process-wide singletons.
type App struct {
	Store  *server.Store
	Hub    *server.Hub
	Server *httptest.Server
}

// NewApp starts a server around a fresh store and hub, allows the test
// server's own origin, and registers cleanup. customize may adjust the
// configuration before it is applied; pass nil to keep defaults.
func NewApp(t *testing.T, customize func(cfg *server.Config)) *App {
	t.Helper()

	store := server.NewStore()
	hub := server.NewHub(64)

	r := chi.NewRouter()
	r.Get("/ws", server.NewWebSocketHandler(store, hub))
	r.Get("/health", server.HealthHandler)

	ts := httptest.NewServer(r)

	cfg := server.NewConfig()
	cfg.AllowedOrigins = append([]string{ts.URL}, cfg.AllowedOrigins...)
	if customize != nil {
		customize(cfg)
	}
	server.SetConfig(cfg)

	t.Cleanup(func() {
		ts.Close()
		hub.Close()
		server.SetConfig(nil)
	})

	return &App{Store: store, Hub: hub, Server: ts}
}

// Dial opens a WebSocket connection to the app's /ws endpoint using the test
// server's URL as the Origin. The connection is closed during test cleanup.
func (a *App) Dial(t *testing.T) *websocket.Conn {
	t.Helper()

	u, err := url.Parse(a.Server.URL)
	if err != nil {
		t.Fatalf("Failed to parse test server URL: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/ws"

	header := http.Header{}
	header.Set("Origin", a.Server.URL)

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		t.Fatalf("Failed to dial WebSocket: %v", err)
	}
	_ = resp.Body.Close()

	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// ReadEnvelope reads the next text frame from conn and decodes it as an
// envelope, failing the test after timeout.
func ReadEnvelope(t *testing.T, conn *websocket.Conn, timeout time.Duration) server.Envelope {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read envelope: %v", err)
	}

	var env server.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("Failed to decode envelope %q: %v", raw, err)
	}
	return env
}

// ExpectContentUpdate reads the next envelope and asserts it is a
// content_update with the given content and version.
func ExpectContentUpdate(t *testing.T, conn *websocket.Conn, content string, version uint64) {
	t.Helper()

	env := ReadEnvelope(t, conn, 2*time.Second)
	if env.Type != "content_update" {
		t.Fatalf("Expected content_update, got %q", env.Type)
	}

	var payload struct {
		Content string `json:"content"`
		Version uint64 `json:"version"`
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("Failed to decode content_update payload: %v", err)
	}
	if payload.Content != content || payload.Version != version {
		t.Fatalf("Expected content %q at version %d, got %q at %d",
			content, version, payload.Content, payload.Version)
	}
}

// ExpectUserCount reads the next envelope and asserts it is a
// user_count_update with the given count.
func ExpectUserCount(t *testing.T, conn *websocket.Conn, count int) {
	t.Helper()

	env := ReadEnvelope(t, conn, 2*time.Second)
	if env.Type != "user_count_update" {
		t.Fatalf("Expected user_count_update, got %q", env.Type)
	}

	var payload struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("Failed to decode user_count_update payload: %v", err)
	}
	if payload.Count != count {
		t.Fatalf("Expected user count %d, got %d", count, payload.Count)
	}
}

// ExpectNoMessage asserts that nothing arrives on conn within timeout.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, timeout time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}
	_, raw, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no message, but received %q", raw)
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return
	}
	t.Fatalf("Unexpected error while waiting for absence of message: %v", err)
}

// SendEnvelope writes raw JSON as a text frame.
func SendEnvelope(t *testing.T, conn *websocket.Conn, raw string) {
	t.Helper()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("Failed to send envelope: %v", err)
	}
}

// WaitForUserCount polls the store until the user count matches or the
// deadline passes. Teardown is asynchronous, so count assertions after a
// disconnect need to wait for it.
func WaitForUserCount(t *testing.T, store *server.Store, want int, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if store.UserCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Expected user count %d, still %d after %s", want, store.UserCount(), timeout)
}
