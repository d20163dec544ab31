// Package server routes inbound client envelopes to the matching state
// mutation and broadcast.
package server

import (
	"context"
	"encoding/json"
	"log"

	"go.opentelemetry.io/otel/attribute"
)

// router interprets inbound envelopes for one session. Every recognized
// message mutates the store and publishes the result through the hub; every
// unrecognized or malformed message is dropped without ending the session.
type router struct {
	store *Store
	hub   *Hub
}

// Handle parses raw as an envelope and dispatches on its type. Errors are
// local: bad input is logged and discarded.
func (rt *router) Handle(ctx context.Context, userID string, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("Failed to parse message from user %s: %v", userID, err)
		return
	}

	switch env.Type {
	case TypeContentUpdate:
		rt.handleContentUpdate(ctx, userID, env.Payload)
	default:
		log.Printf("Unknown message type from user %s: %q", userID, env.Type)
	}
}

func (rt *router) handleContentUpdate(ctx context.Context, userID string, payload json.RawMessage) {
	var update contentUpdateIn
	if err := json.Unmarshal(payload, &update); err != nil {
		log.Printf("Invalid content_update payload from user %s: %v", userID, err)
		return
	}
	if update.Content == nil {
		log.Printf("content_update without content from user %s; ignoring", userID)
		return
	}

	_, span := tracer.Start(ctx, "ws.content_update")
	defer span.End()

	doc := rt.store.UpdateDocument(DefaultDocumentKey, *update.Content)
	rt.store.TouchUser(userID)
	metricDocumentUpdates.Inc()
	span.SetAttributes(
		attribute.String("session.id", userID),
		attribute.Int64("document.version", int64(doc.Version)),
	)

	message, err := MarshalContentUpdate(doc)
	if err != nil {
		log.Printf("Failed to encode content_update broadcast: %v", err)
		return
	}
	rt.hub.Publish(message)
}
