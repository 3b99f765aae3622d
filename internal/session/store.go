package session

import (
	"errors"
	"time"

	"github.com/patrickmn/go-cache"
)

// Session is the server-side record of an admin login.
type Session struct {
	Username  string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// errSessionExists is returned by Store.Add when an active session is recorded.
var errSessionExists = errors.New("session already exists")

// Store keeps at most one active session per username.
// Implementations must make Add atomic with respect to other Adds.
type Store interface {
	// Add records s unless an unexpired session already exists for s.Username.
	Add(s Session) error
	// Get returns the active session of username, if any.
	Get(username string) (Session, bool)
	// Delete removes the session of username. Deleting a missing session is not an error.
	Delete(username string)
	// Close releases the store's resources.
	Close()
}

// MemoryStore is a process-local Store. Entries expire on their own when the
// token they were issued with expires; everything is lost on restart.
type MemoryStore struct {
	cache *cache.Cache
}

// NewMemoryStore creates an in-memory session store that purges expired
// entries every cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{cache: cache.New(cache.NoExpiration, cleanupInterval)}
}

// Add implements Store.
func (m *MemoryStore) Add(s Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	if err := m.cache.Add(s.Username, s, ttl); err != nil {
		return errSessionExists
	}
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(username string) (Session, bool) {
	v, ok := m.cache.Get(username)
	if !ok {
		return Session{}, false
	}
	return v.(Session), true
}

// Delete implements Store.
func (m *MemoryStore) Delete(username string) {
	m.cache.Delete(username)
}

// Close drops every session.
func (m *MemoryStore) Close() {
	m.cache.Flush()
}

// Count returns the number of recorded sessions, expired ones included until purged.
func (m *MemoryStore) Count() int {
	return m.cache.ItemCount()
}
