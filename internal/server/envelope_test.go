package server

import (
	"encoding/json"
	"strings"
	"testing"
)

// TestMarshalContentUpdateEmitsZeroVersion verifies that a fresh document's
// probe snapshot still carries an explicit version field.
func TestMarshalContentUpdateEmitsZeroVersion(t *testing.T) {
	data, err := MarshalContentUpdate(Document{})
	if err != nil {
		t.Fatalf("MarshalContentUpdate failed: %v", err)
	}
	if !strings.Contains(string(data), `"version":0`) {
		t.Errorf("Expected explicit zero version, got %s", data)
	}
	if !strings.Contains(string(data), `"content":""`) {
		t.Errorf("Expected explicit empty content, got %s", data)
	}
}

// TestMarshalContentUpdateRoundTrip verifies the outbound envelope decodes
// back into the generic envelope shape clients parse.
func TestMarshalContentUpdateRoundTrip(t *testing.T) {
	data, err := MarshalContentUpdate(Document{Content: "hello", Version: 7})
	if err != nil {
		t.Fatalf("MarshalContentUpdate failed: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if env.Type != TypeContentUpdate {
		t.Errorf("Expected type %q, got %q", TypeContentUpdate, env.Type)
	}

	var payload contentUpdateOut
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if payload.Content != "hello" || payload.Version != 7 {
		t.Errorf("Unexpected payload: %+v", payload)
	}
}

// TestMarshalUserCount verifies the user_count_update envelope shape.
func TestMarshalUserCount(t *testing.T) {
	data, err := MarshalUserCount(3)
	if err != nil {
		t.Fatalf("MarshalUserCount failed: %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Failed to decode envelope: %v", err)
	}
	if env.Type != TypeUserCountUpdate {
		t.Errorf("Expected type %q, got %q", TypeUserCountUpdate, env.Type)
	}

	var payload userCountOut
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if payload.Count != 3 {
		t.Errorf("Expected count 3, got %d", payload.Count)
	}
}

// TestInboundContentDistinguishesMissingFromEmpty verifies that an absent
// content field parses to nil while an empty string stays addressable.
func TestInboundContentDistinguishesMissingFromEmpty(t *testing.T) {
	var missing contentUpdateIn
	if err := json.Unmarshal([]byte(`{}`), &missing); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if missing.Content != nil {
		t.Error("Expected nil content for missing field")
	}

	var empty contentUpdateIn
	if err := json.Unmarshal([]byte(`{"content":""}`), &empty); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if empty.Content == nil || *empty.Content != "" {
		t.Error("Expected empty string content to be present")
	}
}
