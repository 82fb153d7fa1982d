package domain

import (
	"sync"
	"time"
)

// Session is the per-connection state. A connection may join any number of
// rooms (tracked by the hub); it carries at most one user identity, and a
// later identify or join overwrites the previous one.
type Session struct {
	ID           string
	userID       string
	CreatedAt    time.Time
	lastActiveAt time.Time
	mu           sync.RWMutex
}

func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		CreatedAt:    now,
		lastActiveAt: now,
	}
}

// SetUserID associates a user identity with the connection. Last write wins.
func (s *Session) SetUserID(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.lastActiveAt = time.Now()
}

// UserID returns the associated user identity, or "" before identify.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

// UpdateActivity bumps the last-activity marker.
func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActiveAt = time.Now()
}

// LastActiveAt reports the last time the connection sent anything.
func (s *Session) LastActiveAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActiveAt
}
