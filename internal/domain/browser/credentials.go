package browser

import (
	"sync"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/profile"
)

// CredentialCache holds proxy credentials per profile and maps content
// surfaces back to their profile, so an authentication challenge raised by a
// surface resolves to that surface's session only. It is read from engine
// goroutines and therefore has its own lock.
type CredentialCache struct {
	mu       sync.RWMutex
	byID     map[string]profile.Credentials
	surfaces map[string]string // view id -> profile id
}

// NewCredentialCache creates an empty cache
func NewCredentialCache() *CredentialCache {
	return &CredentialCache{
		byID:     make(map[string]profile.Credentials),
		surfaces: make(map[string]string),
	}
}

// Set stores credentials for a profile
func (c *CredentialCache) Set(profileID string, creds profile.Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[profileID] = creds
}

// Delete removes a profile's credentials and every surface bound to it
func (c *CredentialCache) Delete(profileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byID, profileID)
	for viewID, owner := range c.surfaces {
		if owner == profileID {
			delete(c.surfaces, viewID)
		}
	}
}

// Bind records that a surface belongs to a profile
func (c *CredentialCache) Bind(viewID, profileID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.surfaces[viewID] = profileID
}

// Unbind forgets a destroyed surface
func (c *CredentialCache) Unbind(viewID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.surfaces, viewID)
}

// ForProfile returns the credentials cached for a profile
func (c *CredentialCache) ForProfile(profileID string) (profile.Credentials, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	creds, ok := c.byID[profileID]
	return creds, ok
}

// ForSurface resolves credentials for the surface that raised a challenge
func (c *CredentialCache) ForSurface(viewID string) (profile.Credentials, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	owner, ok := c.surfaces[viewID]
	if !ok {
		return profile.Credentials{}, false
	}
	creds, ok := c.byID[owner]
	return creds, ok
}
