package browser

import (
	"errors"
	"sort"
)

// ErrSessionExists is returned when registering a second session for a profile
var ErrSessionExists = errors.New("session already registered")

// Registry maps profile ids to sessions and owns the foreground pointer.
// The foreground id is always empty or a registered key.
type Registry struct {
	sessions map[string]*Session
	current  string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Get retrieves a session by profile id
func (r *Registry) Get(profileID string) (*Session, bool) {
	s, ok := r.sessions[profileID]
	return s, ok
}

// Add registers a session
func (r *Registry) Add(s *Session) error {
	if _, exists := r.sessions[s.ProfileID]; exists {
		return ErrSessionExists
	}
	r.sessions[s.ProfileID] = s
	return nil
}

// Remove unregisters a session and clears the foreground pointer if it
// referenced it
func (r *Registry) Remove(profileID string) (*Session, bool) {
	s, ok := r.sessions[profileID]
	if !ok {
		return nil, false
	}
	delete(r.sessions, profileID)
	if r.current == profileID {
		r.current = ""
	}
	return s, true
}

// SetCurrent moves the foreground pointer; unknown ids are rejected
func (r *Registry) SetCurrent(profileID string) bool {
	if _, ok := r.sessions[profileID]; !ok {
		return false
	}
	r.current = profileID
	return true
}

// CurrentID returns the foreground profile id or ""
func (r *Registry) CurrentID() string {
	return r.current
}

// Current returns the foreground session
func (r *Registry) Current() (*Session, bool) {
	if r.current == "" {
		return nil, false
	}
	s, ok := r.sessions[r.current]
	return s, ok
}

// IsCurrent reports whether s is the foreground session
func (r *Registry) IsCurrent(s *Session) bool {
	cur, ok := r.Current()
	return ok && cur == s
}

// Holds reports whether s is still the registered session for its profile
func (r *Registry) Holds(s *Session) bool {
	cur, ok := r.sessions[s.ProfileID]
	return ok && cur == s
}

// IDs returns the registered profile ids in sorted order
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Sessions returns the registered sessions ordered by profile id
func (r *Registry) Sessions() []*Session {
	ids := r.IDs()
	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		sessions = append(sessions, r.sessions[id])
	}
	return sessions
}

// Len returns the number of registered sessions
func (r *Registry) Len() int {
	return len(r.sessions)
}
