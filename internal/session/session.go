// Package session holds the per-client identity and context that travel
// with every journey: the session ID, the platform description and the
// variant tags.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/vincentbai/journeytrace/internal/models"
)

// IDFunc generates a new session identifier.
type IDFunc func() string

// Session is safe for concurrent use.
type Session struct {
	mu       sync.RWMutex
	newID    IDFunc
	id       string
	platform models.Platform
	tags     []string
}

// New creates a Session with a freshly generated ID. A nil newID uses
// random UUIDs.
func New(newID IDFunc) *Session {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Session{newID: newID, id: newID()}
}

func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// SetID replaces the session ID, e.g. to continue a session started
// elsewhere.
func (s *Session) SetID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = id
}

// Regenerate rotates the session ID and returns the new one.
func (s *Session) Regenerate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = s.newID()
	return s.id
}

func (s *Session) Platform() models.Platform {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.platform
}

func (s *Session) SetPlatform(p models.Platform) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.platform = p
}

func (s *Session) RemovePlatform() {
	s.SetPlatform(models.Platform{})
}

// Tags returns a copy of the variant tags.
func (s *Session) Tags() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.tags) == 0 {
		return nil
	}
	return append([]string(nil), s.tags...)
}

// SetTags replaces the variant tags.
func (s *Session) SetTags(tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = append([]string(nil), tags...)
}

func (s *Session) ResetTags() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = nil
}
