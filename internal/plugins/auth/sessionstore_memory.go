package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memoryEntry is one stored session plus its expiry (zero = never).
type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in process memory. Records do not
// survive a restart. With a TTL, expired records are dropped lazily on Get
// and in bulk by a background sweep.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	ttl      time.Duration
	now      func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewMemorySessionStore creates an in-memory store. A ttl of zero keeps
// sessions until they are deleted.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	s := &MemorySessionStore{
		sessions: make(map[string]memoryEntry),
		ttl:      ttl,
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweepLoop(min(ttl, time.Minute))
	}
	return s
}

// Create stores a copy of sess under a new token.
func (s *MemorySessionStore) Create(_ context.Context, sess *Session) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}

	entry := memoryEntry{session: *sess}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.sessions[token] = entry
	s.mu.Unlock()

	return token, nil
}

// Get returns a copy of the stored session.
func (s *MemorySessionStore) Get(_ context.Context, token string) (*Session, error) {
	s.mu.RLock()
	entry, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.expired(entry, s.now()) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrSessionNotFound
	}

	sess := entry.session
	return &sess, nil
}

// Delete removes the session if present.
func (s *MemorySessionStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return nil
}

// Len reports the number of stored records, expired or not.
func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the background sweep.
func (s *MemorySessionStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

// sweep drops every record expired at now.
func (s *MemorySessionStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, entry := range s.sessions {
		if s.expired(entry, now) {
			delete(s.sessions, token)
		}
	}
}

func (s *MemorySessionStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(s.now())
		}
	}
}

func (s *MemorySessionStore) expired(e memoryEntry, now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}
