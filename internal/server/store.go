// Package server holds the shared document and user state for the Coscribe
// synchronization service via the Store type.
package server

import (
	"sync"
	"time"
)

// DefaultDocumentKey identifies the single document all clients currently
// collaborate on. The store itself handles any number of keys.
const DefaultDocumentKey = "default"

// User records one connected client as tracked by the store.
type User struct {
	ID           string
	ConnectedAt  time.Time
	LastActivity time.Time
}

// Document is a versioned whole-document record. Version increases by exactly
// one on every successful update and is never reused.
type Document struct {
	Content      string
	Version      uint64
	LastModified time.Time
}

func (d *Document) update(content string) {
	d.Content = content
	d.Version++
	d.LastModified = time.Now()
}

// Store is the single source of truth for documents and connected users.
// All methods are safe for concurrent use by any number of sessions; callers
// never take their own locks.
type Store struct {
	userMu sync.RWMutex
	users  map[string]*User

	docMu     sync.Mutex
	documents map[string]*Document
}

// NewStore creates an empty Store ready for concurrent use.
func NewStore() *Store {
	return &Store{
		users:     make(map[string]*User),
		documents: make(map[string]*Document),
	}
}

// AddUser inserts (or overwrites) the user record for id and returns the
// total user count after insertion.
func (s *Store) AddUser(id string) int {
	now := time.Now()

	s.userMu.Lock()
	defer s.userMu.Unlock()

	s.users[id] = &User{
		ID:           id,
		ConnectedAt:  now,
		LastActivity: now,
	}
	return len(s.users)
}

// RemoveUser deletes the user record for id if present and returns the total
// user count after removal. Removing an unknown id is a no-op.
func (s *Store) RemoveUser(id string) int {
	s.userMu.Lock()
	defer s.userMu.Unlock()

	delete(s.users, id)
	return len(s.users)
}

// UserCount returns a point-in-time snapshot of the connected user count.
func (s *Store) UserCount() int {
	s.userMu.RLock()
	defer s.userMu.RUnlock()

	return len(s.users)
}

// TouchUser refreshes the last-activity timestamp for id. A missing user is
// tolerated silently; the session may already be tearing down.
func (s *Store) TouchUser(id string) {
	s.userMu.Lock()
	defer s.userMu.Unlock()

	if user, ok := s.users[id]; ok {
		user.LastActivity = time.Now()
	}
}

// UserLastActivity reports the last-activity timestamp for id, if known.
func (s *Store) UserLastActivity(id string) (time.Time, bool) {
	s.userMu.RLock()
	defer s.userMu.RUnlock()

	if user, ok := s.users[id]; ok {
		return user.LastActivity, true
	}
	return time.Time{}, false
}

// Document returns a snapshot copy of the document stored under key.
func (s *Store) Document(key string) (Document, bool) {
	s.docMu.Lock()
	defer s.docMu.Unlock()

	doc, ok := s.documents[key]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

// UpdateDocument replaces the content of the document under key, creating it
// at version zero first if absent, and returns a snapshot of the result.
// Concurrent updates to the same key serialize here; each caller observes a
// distinct, strictly increasing version.
func (s *Store) UpdateDocument(key, content string) Document {
	s.docMu.Lock()
	defer s.docMu.Unlock()

	doc, ok := s.documents[key]
	if !ok {
		doc = &Document{}
		s.documents[key] = doc
	}
	doc.update(content)
	return *doc
}
