// Package server defines the wire envelope exchanged with clients and the
// helpers that build outbound messages.
package server

import "encoding/json"

// Envelope type discriminators recognized on the wire.
const (
	TypeContentUpdate   = "content_update"
	TypeUserCountUpdate = "user_count_update"
)

// Envelope is the JSON message unit exchanged over the WebSocket in both
// directions. Payload stays raw until the type discriminator selects a shape.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// contentUpdateIn is the inbound content_update payload. Content is a
// pointer so a missing field can be told apart from an empty document.
type contentUpdateIn struct {
	Content *string `json:"content"`
}

// contentUpdateOut is the outbound content_update payload, also used for the
// initial probe snapshot. Version is always emitted, including zero.
type contentUpdateOut struct {
	Content string `json:"content"`
	Version uint64 `json:"version"`
}

type userCountOut struct {
	Count int `json:"count"`
}

type outboundEnvelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// MarshalContentUpdate builds the outbound content_update envelope carrying
// the given document snapshot.
func MarshalContentUpdate(doc Document) ([]byte, error) {
	return json.Marshal(outboundEnvelope{
		Type:    TypeContentUpdate,
		Payload: contentUpdateOut{Content: doc.Content, Version: doc.Version},
	})
}

// MarshalUserCount builds the outbound user_count_update envelope.
func MarshalUserCount(count int) ([]byte, error) {
	return json.Marshal(outboundEnvelope{
		Type:    TypeUserCountUpdate,
		Payload: userCountOut{Count: count},
	})
}
