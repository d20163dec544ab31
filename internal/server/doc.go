// Package server implements the Coscribe real-time text synchronization
// service: shared document and user state, broadcast fan-out, and the
// per-connection session lifecycle over WebSocket.
//
// The implementation is organized into specialized files for configuration,
// the state store, the broadcast hub, sessions, message routing, HTTP
// handlers, and metrics to keep the codebase maintainable and testable as
// the project grows.
package server
