// Package integration contains end-to-end tests for the Coscribe server.
package integration

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coscribe/coscribe/internal/server"
	"github.com/coscribe/coscribe/test/testhelpers"
)

// TestManyClientsConvergeOnFinalVersion verifies that with several clients
// editing concurrently, versions stay gap-free and every client eventually
// observes the final version.
func TestManyClientsConvergeOnFinalVersion(t *testing.T) {
	app := testhelpers.NewApp(t, func(cfg *server.Config) {
		// The stress loop below exceeds the default per-session rate limit.
		cfg.RateLimit.Burst = 1000
	})

	const clients = 4
	const updatesPerClient = 10

	conns := make([]*websocket.Conn, clients)
	for i := range conns {
		conns[i] = app.Dial(t)
		testhelpers.ExpectContentUpdate(t, conns[i], "", 0)
		testhelpers.ExpectUserCount(t, conns[i], i+1)
	}

	for i, conn := range conns {
		for u := 0; u < updatesPerClient; u++ {
			msg := fmt.Sprintf(`{"type":"content_update","payload":{"content":"c%d-%d"}}`, i, u)
			testhelpers.SendEnvelope(t, conn, msg)
		}
	}

	total := uint64(clients * updatesPerClient)

	// Every client keeps receiving envelopes until it has seen the final
	// version, skipping the count updates queued by later registrations.
	for i, conn := range conns {
		deadline := time.Now().Add(5 * time.Second)
		var latest uint64
		for latest < total {
			if time.Now().After(deadline) {
				t.Fatalf("Client %d stuck at version %d of %d", i, latest, total)
			}
			env := testhelpers.ReadEnvelope(t, conn, 2*time.Second)
			if env.Type != "content_update" {
				continue
			}
			var payload struct {
				Version uint64 `json:"version"`
			}
			if err := json.Unmarshal(env.Payload, &payload); err != nil {
				t.Fatalf("Client %d: bad payload: %v", i, err)
			}
			if payload.Version < latest {
				t.Fatalf("Client %d observed version going backwards: %d after %d",
					i, payload.Version, latest)
			}
			latest = payload.Version
		}
	}

	doc, _ := app.Store.Document(server.DefaultDocumentKey)
	if doc.Version != total {
		t.Errorf("Expected final version %d in store, got %d", total, doc.Version)
	}
}
