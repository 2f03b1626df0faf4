package browser

import (
	"context"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/layout"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/profile"
)

// Window is the single host surface the foreground tab is attached to.
// Attach replaces whatever was attached before; calling it again for the
// attached view only moves it. Resize handlers must be invoked without holding
// any window lock.
type Window interface {
	ContentBounds() layout.Size
	Attach(view ContentView, bounds layout.Rect)
	Detach()
	OnResize(fn func(layout.Size)) (unsubscribe func())
	Destroyed() bool
}

// Engine creates storage partitions and content views
type Engine interface {
	NewPartition(profileID string) (Partition, error)
	NewView(partition Partition) (ContentView, error)
}

// Partition is an isolated cookie/cache/storage context owned by one session
type Partition interface {
	Name() string
	SetProxy(proxy *profile.Proxy) error
	Destroy() error
}

// ViewHandlers receives content view events. Views deliver them on their own
// goroutines, never from inside a ContentView method call.
type ViewHandlers struct {
	OnTitle        func(title string)
	OnNavigated    func(url string, inPage bool)
	OnLoadFinished func(url string)
}

// Subscription is released when the owning tab is destroyed
type Subscription interface {
	Close()
}

// ContentView is a renderable, navigable surface
type ContentView interface {
	ID() string
	LoadURL(url string) error
	URL() string
	CanGoBack() bool
	CanGoForward() bool
	GoBack()
	GoForward()
	Reload()
	Destroy() error
	Subscribe(handlers ViewHandlers) Subscription
}

// ProxyVerifier runs a bounded verification loop for a proxy
type ProxyVerifier interface {
	Run(ctx context.Context, proxy *profile.Proxy, report func(profile.ProxyReport)) (profile.ProxyResult, error)
}
