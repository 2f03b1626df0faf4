package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/profile"
)

// DefaultTitle is shown until a page reports its own title
const DefaultTitle = "New Tab"

// Tab is one navigable content unit within a session
type Tab struct {
	ID    string
	Title string
	URL   string
	View  ContentView

	sub Subscription
}

// Session is the isolated browsing context of one profile. All fields are
// guarded by the orchestrator lock.
type Session struct {
	ProfileID string
	Profile   *profile.Profile
	Partition Partition
	CreatedAt time.Time

	tabs        []*Tab
	activeTabID string
	tabCounter  int

	// proxyCheckDone is the one-shot first-load trigger; proxyStatus and
	// checking track the latest run independently of it.
	proxyCheckDone bool
	proxyStatus    profile.ProxyStatus
	ip             string
	checking       bool
	cancelCheck    context.CancelFunc
}

// SessionInfo is a read-only view of a session
type SessionInfo struct {
	ProfileID   string              `json:"profile_id"`
	Name        string              `json:"name"`
	Partition   string              `json:"partition"`
	ActiveTabID string              `json:"active_tab_id"`
	Tabs        []TabDetail         `json:"tabs"`
	ProxyStatus profile.ProxyStatus `json:"proxy_status"`
	IP          string              `json:"ip,omitempty"`
	Foreground  bool                `json:"foreground"`
	CreatedAt   time.Time           `json:"created_at"`
}

// TabDetail is a read-only view of a tab
type TabDetail struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

func newSession(p *profile.Profile, partition Partition) *Session {
	return &Session{
		ProfileID:   p.ID,
		Profile:     p,
		Partition:   partition,
		CreatedAt:   time.Now(),
		proxyStatus: profile.ProxyStatusNone,
	}
}

// nextTabID allocates the next human-readable tab id
func (s *Session) nextTabID() string {
	s.tabCounter++
	return fmt.Sprintf("tab-%d", s.tabCounter)
}

func (s *Session) appendTab(tab *Tab) {
	s.tabs = append(s.tabs, tab)
}

// tab returns the tab with id and its position, or nil and -1
func (s *Session) tab(id string) (*Tab, int) {
	for i, t := range s.tabs {
		if t.ID == id {
			return t, i
		}
	}
	return nil, -1
}

// owns reports whether tab is still part of the session
func (s *Session) owns(tab *Tab) bool {
	t, _ := s.tab(tab.ID)
	return t == tab
}

func (s *Session) removeTabAt(index int) *Tab {
	tab := s.tabs[index]
	s.tabs = append(s.tabs[:index:index], s.tabs[index+1:]...)
	return tab
}

// activeTab returns the current tab, or nil when the session has none
func (s *Session) activeTab() *Tab {
	t, _ := s.tab(s.activeTabID)
	return t
}

// successorIndex picks the tab that becomes active after closing the active
// tab at closedIndex
func successorIndex(closedIndex int) int {
	if closedIndex-1 < 0 {
		return 0
	}
	return closedIndex - 1
}

func (s *Session) tabInfos() []TabInfo {
	infos := make([]TabInfo, 0, len(s.tabs))
	for _, t := range s.tabs {
		infos = append(infos, TabInfo{
			ID:     t.ID,
			Title:  t.Title,
			Active: t.ID == s.activeTabID,
		})
	}
	return infos
}

func (s *Session) info(foreground bool) SessionInfo {
	tabs := make([]TabDetail, 0, len(s.tabs))
	for _, t := range s.tabs {
		tabs = append(tabs, TabDetail{
			ID:     t.ID,
			Title:  t.Title,
			URL:    t.URL,
			Active: t.ID == s.activeTabID,
		})
	}

	partition := ""
	if s.Partition != nil {
		partition = s.Partition.Name()
	}

	return SessionInfo{
		ProfileID:   s.ProfileID,
		Name:        s.Profile.Name,
		Partition:   partition,
		ActiveTabID: s.activeTabID,
		Tabs:        tabs,
		ProxyStatus: s.proxyStatus,
		IP:          s.ip,
		Foreground:  foreground,
		CreatedAt:   s.CreatedAt,
	}
}
