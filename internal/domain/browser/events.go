package browser

import (
	"time"

	"github.com/google/uuid"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/profile"
)

// EventType identifies an outward notification
type EventType string

const (
	EventTabsUpdated EventType = "tabs_updated"
	EventURLChanged  EventType = "url_changed"
	EventProxyStatus EventType = "proxy_status"
	EventClosed      EventType = "closed"
)

// Event is a notification for the UI
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ProfileID string      `json:"profile_id,omitempty"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// TabInfo is one entry of the tabs_updated payload
type TabInfo struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// URLChange is the url_changed payload
type URLChange struct {
	URL string `json:"url"`
}

// ProxyStatusChange is the proxy_status payload
type ProxyStatusChange struct {
	Status  profile.ProxyStatus `json:"status"`
	IP      string              `json:"ip"`
	Attempt int                 `json:"attempt"`
}

// Closed is the closed payload
type Closed struct {
	ProfileID string `json:"profile_id"`
}

// Emitter delivers events outward. Emit is called with the orchestrator lock
// held and must not block or call back into the orchestrator.
type Emitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(event Event)

// Emit calls f(event)
func (f EmitterFunc) Emit(event Event) {
	f(event)
}

func newEvent(eventType EventType, profileID string, data interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ProfileID: profileID,
		Data:      data,
		Timestamp: time.Now(),
	}
}
