// Package server manages individual WebSocket sessions, handling the initial
// liveness probe, registration, read/write pumps, and lifecycle control for
// each connection.
package server

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

var tracer = otel.Tracer("coscribe/server")

// Session drives the full lifecycle of one connected client: liveness probe,
// registration into the store, the paired outbound/inbound pumps, and
// exactly-once teardown. Whichever pump finishes first tears the session
// down, which forcibly ends the sibling.
type Session struct {
	id             string
	conn           *websocket.Conn
	store          *Store
	hub            *Hub
	sub            *Subscription
	router         *router
	addr           string
	probeTimeout   time.Duration
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
	span           trace.Span
	teardownOnce   sync.Once
}

// NewSession creates a Session for an upgraded connection with a fresh
// system-generated identifier. The session is not registered until its probe
// succeeds.
func NewSession(conn *websocket.Conn, store *Store, hub *Hub, addr string) *Session {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Session{
		id:             uuid.NewString(),
		conn:           conn,
		store:          store,
		hub:            hub,
		router:         &router{store: store, hub: hub},
		addr:           addr,
		probeTimeout:   cfg.ProbeTimeout,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
	}
}

// ID returns the session's system-generated identifier.
func (s *Session) ID() string {
	return s.id
}

// Run executes the session until either pump terminates. It blocks for the
// session's whole lifetime and always leaves the store and hub clean.
func (s *Session) Run() {
	log.Printf("User %s connecting from %s", s.id, s.addr)

	if err := s.probe(); err != nil {
		metricProbeFailures.Inc()
		log.Printf("Connection probe failed for %s (%s): %v", s.id, s.addr, err)
		s.closeConn()
		return
	}

	// Subscribe before registering so the new client's own count broadcast
	// is already visible on its subscription.
	s.sub = s.hub.Subscribe()

	count := s.store.AddUser(s.id)
	s.publishUserCount(count)
	metricSessionsTotal.Inc()
	metricActiveSessions.Inc()

	ctx, span := tracer.Start(context.Background(), "ws.session",
		trace.WithAttributes(attribute.String("session.id", s.id)))
	s.span = span

	go func() {
		s.writePump()
		s.teardown()
	}()

	s.readPump(ctx)
	s.teardown()
}

// probe validates the freshly accepted connection by pushing the current
// document snapshot under a short deadline. A connection that cannot take
// the snapshot in time is abandoned before any registration happens.
func (s *Session) probe() error {
	doc, _ := s.store.Document(DefaultDocumentKey)
	snapshot, err := MarshalContentUpdate(doc)
	if err != nil {
		return err
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.probeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, snapshot)
}

// teardown deregisters the session and releases its resources. It runs
// exactly once no matter which pump, or failure path, gets here first.
func (s *Session) teardown() {
	s.teardownOnce.Do(func() {
		s.sub.Cancel()
		s.closeConn()

		count := s.store.RemoveUser(s.id)
		s.publishUserCount(count)
		metricActiveSessions.Dec()
		if s.span != nil {
			s.span.End()
		}
		log.Printf("User %s removed, %d users remaining", s.id, count)
	})
}

func (s *Session) publishUserCount(count int) {
	message, err := MarshalUserCount(count)
	if err != nil {
		log.Printf("Failed to encode user_count_update: %v", err)
		return
	}
	s.hub.Publish(message)
}

// readPump drains inbound frames into the router until the peer closes the
// connection or a read fails. Text frames become envelopes; control and
// binary frames are ignored.
func (s *Session) readPump(ctx context.Context) {
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Error setting read deadline for %s: %v", s.addr, err)
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		messageType, raw, err := s.conn.ReadMessage()
		if err != nil {
			s.logReadError(err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		if s.rateLimiter != nil && !s.rateLimiter.allow() {
			log.Printf("Rate limit exceeded for %s (%d messages per %s); discarding message",
				s.addr, s.rateLimit.Burst, s.rateLimit.RefillInterval)
			continue
		}

		s.router.Handle(ctx, s.id, raw)
	}
}

// writePump relays hub messages to the connection and keeps it alive with
// periodic pings. It exits on write failure or when the subscription closes.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-s.sub.C():
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error setting write deadline for %s: %v", s.addr, err)
				}
				return
			}
			if !ok {
				if err := s.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil && !isExpectedCloseError(err) {
					log.Printf("Error writing close message to %s: %v", s.addr, err)
				}
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error writing message to %s: %v", s.addr, err)
				}
				return
			}
		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// logReadError classifies a read failure so expected disconnects stay quiet
// in the logs while genuine transport faults stand out.
func (s *Session) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.Printf("Message from %s exceeded maximum size of %d bytes", s.addr, s.maxMessageSize)
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.Printf("User %s disconnected: %v", s.id, err)
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		log.Printf("User %s connection closed: %v", s.id, err)
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		log.Printf("Unexpected WebSocket error from %s: %v", s.addr, err)
	default:
		log.Printf("WebSocket read error from %s: %v", s.addr, err)
	}
}

func (s *Session) closeConn() {
	if err := s.conn.Close(); err != nil && !isExpectedCloseError(err) {
		log.Printf("Error closing connection from %s: %v", s.addr, err)
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
