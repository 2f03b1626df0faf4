package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/layout"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/profile"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/infrastructure/monitoring"
)

var (
	// ErrProfileNotFound is returned by Launch when the store has no such profile
	ErrProfileNotFound = errors.New("profile not found")
	// ErrClosed is returned once the orchestrator has been shut down
	ErrClosed = errors.New("orchestrator is shut down")
)

// Dependencies are the collaborators an Orchestrator is built from
type Dependencies struct {
	Store    profile.Store
	Engine   Engine
	Window   Window
	Verifier ProxyVerifier
	Emitter  Emitter
	Logger   *zap.Logger
}

// Orchestrator owns every browsing session and the single foreground pointer.
// All state is guarded by mu; view events and verification reports re-enter
// through the same lock from their own goroutines.
type Orchestrator struct {
	mu       sync.Mutex
	registry *Registry // Protected by mu
	attached ContentView
	shutdown bool

	creds     *CredentialCache
	store     profile.Store
	engine    Engine
	window    Window
	verifier  ProxyVerifier
	emitter   Emitter
	logger    *zap.Logger
	metrics   *monitoring.Metrics
	searchURL string

	unsubscribeResize func()
}

// NewOrchestrator creates an orchestrator and subscribes to window resizes
func NewOrchestrator(deps Dependencies) *Orchestrator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	emitter := deps.Emitter
	if emitter == nil {
		emitter = EmitterFunc(func(Event) {})
	}

	o := &Orchestrator{
		registry:  NewRegistry(),
		creds:     NewCredentialCache(),
		store:     deps.Store,
		engine:    deps.Engine,
		window:    deps.Window,
		verifier:  deps.Verifier,
		emitter:   emitter,
		logger:    logger,
		searchURL: DefaultSearchURL,
	}
	o.unsubscribeResize = o.window.OnResize(o.HandleResize)
	return o
}

// WithMetrics adds metrics tracking to the orchestrator
func (o *Orchestrator) WithMetrics(metrics *monitoring.Metrics) *Orchestrator {
	o.metrics = metrics
	return o
}

// WithSearchURL sets the prefix bare search queries are appended to
func (o *Orchestrator) WithSearchURL(searchURL string) *Orchestrator {
	if searchURL != "" {
		o.searchURL = searchURL
	}
	return o
}

// Launch brings up the session for profileID, or foregrounds it when it is
// already running. A profile the store cannot resolve is the one hard failure.
func (o *Orchestrator) Launch(ctx context.Context, profileID string) error {
	o.mu.Lock()
	if o.shutdown {
		o.mu.Unlock()
		return ErrClosed
	}
	if s, ok := o.registry.Get(profileID); ok {
		o.setForegroundLocked(s)
		o.mu.Unlock()
		return nil
	}
	o.mu.Unlock()

	// The store may be remote, so it is queried outside the lock
	record, err := o.store.Get(ctx, profileID)
	if err != nil {
		if errors.Is(err, profile.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
		}
		return fmt.Errorf("failed to load profile %s: %w", profileID, err)
	}
	if record == nil {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
	}
	snapshot := record.Clone()
	snapshot.ID = profileID

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.shutdown {
		return ErrClosed
	}
	// Another caller may have launched it while the store was queried
	if s, ok := o.registry.Get(profileID); ok {
		o.setForegroundLocked(s)
		return nil
	}

	return o.launchLocked(snapshot)
}

func (o *Orchestrator) launchLocked(snapshot *profile.Profile) error {
	partition, err := o.engine.NewPartition(snapshot.ID)
	if err != nil {
		return fmt.Errorf("failed to create partition for %s: %w", snapshot.ID, err)
	}

	if snapshot.HasProxy() {
		if err := partition.SetProxy(snapshot.Proxy); err != nil {
			o.destroyPartition(snapshot.ID, partition)
			return fmt.Errorf("failed to apply proxy for %s: %w", snapshot.ID, err)
		}
		if creds, ok := snapshot.Proxy.Credentials(); ok {
			o.creds.Set(snapshot.ID, creds)
		}
	}

	s := newSession(snapshot, partition)
	if err := o.registry.Add(s); err != nil {
		o.creds.Delete(snapshot.ID)
		o.destroyPartition(snapshot.ID, partition)
		return err
	}

	tab, err := o.createTabLocked(s, BlankURL)
	if err != nil {
		o.registry.Remove(snapshot.ID)
		o.creds.Delete(snapshot.ID)
		o.destroyPartition(snapshot.ID, partition)
		return fmt.Errorf("failed to create initial tab for %s: %w", snapshot.ID, err)
	}
	s.activeTabID = tab.ID

	o.setForegroundLocked(s)

	if o.metrics != nil {
		o.metrics.IncSessionsLaunched()
	}
	o.updateGaugesLocked()

	o.logger.Info("Session launched",
		zap.String("profile_id", s.ProfileID),
		zap.String("partition", partition.Name()),
		zap.Bool("proxy", snapshot.HasProxy()),
	)
	return nil
}

// SetForeground makes profileID the visible session. Unknown ids are ignored.
func (o *Orchestrator) SetForeground(profileID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s, ok := o.registry.Get(profileID); ok {
		o.setForegroundLocked(s)
	}
}

func (o *Orchestrator) setForegroundLocked(s *Session) {
	prev := o.registry.CurrentID()
	o.registry.SetCurrent(s.ProfileID)

	o.syncAttachmentLocked()
	o.emitTabsLocked(s)
	o.emitURLLocked(s)

	// Re-foregrounding refreshes a completed check; it never touches the
	// one-shot first-load trigger
	if prev != s.ProfileID && s.proxyCheckDone && !s.checking &&
		(s.proxyStatus == profile.ProxyStatusConnected || s.proxyStatus == profile.ProxyStatusError) {
		o.startVerificationLocked(s)
	}
}

// desiredViewLocked returns the view that should be attached right now
func (o *Orchestrator) desiredViewLocked() ContentView {
	s, ok := o.registry.Current()
	if !ok {
		return nil
	}
	tab := s.activeTab()
	if tab == nil || IsBlank(tab.URL) {
		return nil
	}
	return tab.View
}

// syncAttachmentLocked brings the window in line with the foreground
// session's active tab. It does nothing when the window already shows it.
func (o *Orchestrator) syncAttachmentLocked() {
	want := o.desiredViewLocked()
	if want == o.attached {
		return
	}

	if o.attached != nil {
		o.window.Detach()
		o.attached = nil
	}
	if want != nil {
		o.window.Attach(want, layout.ComputeBounds(o.window.ContentBounds()))
		o.attached = want
	}
}

// HandleResize re-applies the layout to the attached view
func (o *Orchestrator) HandleResize(size layout.Size) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.attached == nil || o.window.Destroyed() {
		return
	}
	o.window.Attach(o.attached, layout.ComputeBounds(size))
}

// createTabLocked allocates a tab, subscribes to its view and starts loading
func (o *Orchestrator) createTabLocked(s *Session, url string) (*Tab, error) {
	view, err := o.engine.NewView(s.Partition)
	if err != nil {
		return nil, fmt.Errorf("failed to create view: %w", err)
	}

	tab := &Tab{
		ID:    s.nextTabID(),
		Title: DefaultTitle,
		URL:   url,
		View:  view,
	}
	o.creds.Bind(view.ID(), s.ProfileID)
	tab.sub = view.Subscribe(ViewHandlers{
		OnTitle: func(title string) {
			o.onTitle(s, tab, title)
		},
		OnNavigated: func(url string, inPage bool) {
			o.onNavigated(s, tab, url, inPage)
		},
		OnLoadFinished: func(url string) {
			o.onLoadFinished(s, tab, url)
		},
	})
	s.appendTab(tab)

	if err := view.LoadURL(url); err != nil {
		o.logger.Warn("Initial load failed",
			zap.String("profile_id", s.ProfileID),
			zap.String("tab_id", tab.ID),
			zap.String("url", url),
			zap.Error(err),
		)
	}
	return tab, nil
}

// liveLocked reports whether an event for tab still refers to current state
func (o *Orchestrator) liveLocked(s *Session, tab *Tab) bool {
	return !o.shutdown && o.registry.Holds(s) && s.owns(tab)
}

func (o *Orchestrator) onTitle(s *Session, tab *Tab, title string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.liveLocked(s, tab) {
		return
	}
	if title == "" {
		title = DefaultTitle
	}
	tab.Title = title
	o.emitTabsLocked(s)
}

func (o *Orchestrator) onNavigated(s *Session, tab *Tab, url string, inPage bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.liveLocked(s, tab) {
		return
	}
	tab.URL = url

	if o.registry.IsCurrent(s) && tab.ID == s.activeTabID {
		if !inPage {
			o.syncAttachmentLocked()
		}
		o.emitLocked(newEvent(EventURLChanged, s.ProfileID, URLChange{URL: url}))
	}
}

// onLoadFinished is the one-shot first verification trigger
func (o *Orchestrator) onLoadFinished(s *Session, tab *Tab, url string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.liveLocked(s, tab) {
		return
	}
	if tab.ID != s.activeTabID || s.proxyCheckDone || IsBlank(url) || IsInternal(url) {
		return
	}
	if !s.Profile.HasProxy() {
		return
	}

	s.proxyCheckDone = true
	o.startVerificationLocked(s)
}

// startVerificationLocked runs the verifier in its own goroutine. At most one
// loop per session is in flight.
func (o *Orchestrator) startVerificationLocked(s *Session) {
	if o.verifier == nil || s.checking || !s.Profile.HasProxy() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.checking = true
	s.cancelCheck = cancel
	proxy := *s.Profile.Proxy

	go func() {
		defer cancel()
		result, err := o.verifier.Run(ctx, &proxy, func(r profile.ProxyReport) {
			o.applyProxyReport(s, r)
		})
		o.finishVerification(s, result, err)
	}()
}

func (o *Orchestrator) applyProxyReport(s *Session, r profile.ProxyReport) {
	o.mu.Lock()
	defer o.mu.Unlock()

	// A closed session's loop may still report once before it notices
	if !o.registry.Holds(s) || !s.checking {
		return
	}

	s.proxyStatus = r.Status
	switch r.Status {
	case profile.ProxyStatusConnected:
		s.ip = r.IP
	case profile.ProxyStatusError:
		s.ip = ""
	}

	o.emitLocked(newEvent(EventProxyStatus, s.ProfileID, ProxyStatusChange{
		Status:  s.proxyStatus,
		IP:      s.ip,
		Attempt: r.Attempt,
	}))
}

func (o *Orchestrator) finishVerification(s *Session, result profile.ProxyResult, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.registry.Holds(s) {
		return
	}
	s.checking = false
	s.cancelCheck = nil

	if err != nil {
		o.logger.Debug("Proxy verification abandoned",
			zap.String("profile_id", s.ProfileID),
			zap.Error(err),
		)
		return
	}
	o.logger.Debug("Proxy verification finished",
		zap.String("profile_id", s.ProfileID),
		zap.String("status", string(result.Status)),
		zap.Int("attempts", result.Attempts),
	)
}

// Close tears down a session. Surfaces are destroyed before the session is
// dropped; the foreground is not reassigned.
func (o *Orchestrator) Close(profileID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closeLocked(profileID)
}

func (o *Orchestrator) closeLocked(profileID string) {
	s, ok := o.registry.Get(profileID)
	if !ok {
		return
	}

	if s.cancelCheck != nil {
		s.cancelCheck()
		s.cancelCheck = nil
	}
	s.checking = false

	for _, tab := range s.tabs {
		o.destroyTabLocked(s, tab)
	}
	s.tabs = nil
	s.activeTabID = ""

	o.destroyPartition(profileID, s.Partition)
	o.registry.Remove(profileID)
	o.creds.Delete(profileID)

	o.emitLocked(newEvent(EventClosed, profileID, Closed{ProfileID: profileID}))
	o.updateGaugesLocked()

	o.logger.Info("Session closed", zap.String("profile_id", profileID))
}

// destroyTabLocked releases a tab's subscription and surface. Failures are
// logged and never stop the caller's teardown.
func (o *Orchestrator) destroyTabLocked(s *Session, tab *Tab) {
	if tab.sub != nil {
		tab.sub.Close()
		tab.sub = nil
	}
	if tab.View == nil {
		return
	}

	o.creds.Unbind(tab.View.ID())
	if o.attached == tab.View {
		if !o.window.Destroyed() {
			o.window.Detach()
		}
		o.attached = nil
	}
	if err := tab.View.Destroy(); err != nil {
		o.logger.Warn("Failed to destroy tab view",
			zap.String("profile_id", s.ProfileID),
			zap.String("tab_id", tab.ID),
			zap.Error(err),
		)
	}
}

func (o *Orchestrator) destroyPartition(profileID string, partition Partition) {
	if partition == nil {
		return
	}
	if err := partition.Destroy(); err != nil {
		o.logger.Warn("Failed to destroy partition",
			zap.String("profile_id", profileID),
			zap.String("partition", partition.Name()),
			zap.Error(err),
		)
	}
}

// ListActive returns the running profile ids. Once the host window is gone
// every session is torn down and the result is empty.
func (o *Orchestrator) ListActive() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.window.Destroyed() && o.registry.Len() > 0 {
		o.logger.Warn("Host window destroyed, dropping sessions", zap.Int("sessions", o.registry.Len()))
		o.attached = nil
		for _, id := range o.registry.IDs() {
			o.closeLocked(id)
		}
	}
	return o.registry.IDs()
}

// CurrentID returns the foreground profile id or ""
func (o *Orchestrator) CurrentID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.registry.CurrentID()
}

// Navigate loads raw in the foreground session's active tab
func (o *Orchestrator) Navigate(raw string) {
	target := NormalizeURL(raw, o.searchURL)
	if target == "" {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	s, tab := o.activeLocked()
	if tab == nil {
		return
	}
	if err := tab.View.LoadURL(target); err != nil {
		o.logger.Warn("Navigation failed",
			zap.String("profile_id", s.ProfileID),
			zap.String("tab_id", tab.ID),
			zap.String("url", target),
			zap.Error(err),
		)
		return
	}
	tab.URL = target
	o.syncAttachmentLocked()
}

// Back goes back in the active tab's history when possible
func (o *Orchestrator) Back() {
	o.withActiveView(func(view ContentView) {
		if view.CanGoBack() {
			view.GoBack()
		}
	})
}

// Forward goes forward in the active tab's history when possible
func (o *Orchestrator) Forward() {
	o.withActiveView(func(view ContentView) {
		if view.CanGoForward() {
			view.GoForward()
		}
	})
}

// Refresh reloads the active tab
func (o *Orchestrator) Refresh() {
	o.withActiveView(func(view ContentView) {
		view.Reload()
	})
}

func (o *Orchestrator) withActiveView(fn func(ContentView)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, tab := o.activeLocked(); tab != nil {
		fn(tab.View)
	}
}

func (o *Orchestrator) activeLocked() (*Session, *Tab) {
	s, ok := o.registry.Current()
	if !ok {
		return nil, nil
	}
	return s, s.activeTab()
}

// NewTab opens a blank tab in the foreground session and switches to it
func (o *Orchestrator) NewTab() {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.registry.Current()
	if !ok {
		return
	}
	tab, err := o.createTabLocked(s, BlankURL)
	if err != nil {
		o.logger.Warn("Failed to open tab", zap.String("profile_id", s.ProfileID), zap.Error(err))
		return
	}
	o.switchTabLocked(s, tab.ID)
	o.updateGaugesLocked()
}

// SwitchTab activates tabID in the foreground session. Unknown ids are ignored.
func (o *Orchestrator) SwitchTab(tabID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if s, ok := o.registry.Current(); ok {
		o.switchTabLocked(s, tabID)
	}
}

func (o *Orchestrator) switchTabLocked(s *Session, tabID string) {
	if tab, _ := s.tab(tabID); tab == nil {
		return
	}
	s.activeTabID = tabID

	if o.registry.IsCurrent(s) {
		o.syncAttachmentLocked()
		o.emitURLLocked(s)
		o.emitTabsLocked(s)
	}
}

// CloseTab removes tabID from the foreground session. The session always
// keeps at least one tab: closing the last one replaces it with a blank tab.
func (o *Orchestrator) CloseTab(tabID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.registry.Current()
	if !ok {
		return
	}
	tab, index := s.tab(tabID)
	if tab == nil {
		return
	}
	wasActive := tabID == s.activeTabID

	if len(s.tabs) == 1 {
		// The replacement is created first so a failure leaves the old tab
		replacement, err := o.createTabLocked(s, BlankURL)
		if err != nil {
			o.logger.Warn("Failed to replace last tab", zap.String("profile_id", s.ProfileID), zap.Error(err))
			return
		}
		s.removeTabAt(index)
		o.destroyTabLocked(s, tab)
		o.switchTabLocked(s, replacement.ID)
		o.updateGaugesLocked()
		return
	}

	s.removeTabAt(index)
	o.destroyTabLocked(s, tab)

	if wasActive {
		o.switchTabLocked(s, s.tabs[successorIndex(index)].ID)
	} else {
		o.emitTabsLocked(s)
	}
	o.updateGaugesLocked()
}

// ProxyCredentials resolves credentials for the surface that raised a proxy
// authentication challenge. It never takes the orchestrator lock.
func (o *Orchestrator) ProxyCredentials(viewID string) (profile.Credentials, bool) {
	return o.creds.ForSurface(viewID)
}

// Snapshot returns a read-only view of every session ordered by profile id
func (o *Orchestrator) Snapshot() []SessionInfo {
	o.mu.Lock()
	defer o.mu.Unlock()

	sessions := o.registry.Sessions()
	infos := make([]SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.info(o.registry.IsCurrent(s)))
	}
	return infos
}

// Session returns a read-only view of one session
func (o *Orchestrator) Session(profileID string) (SessionInfo, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s, ok := o.registry.Get(profileID)
	if !ok {
		return SessionInfo{}, false
	}
	return s.info(o.registry.IsCurrent(s)), true
}

// Shutdown closes every session and stops reacting to the window
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.shutdown {
		return
	}
	for _, id := range o.registry.IDs() {
		o.closeLocked(id)
	}
	o.shutdown = true
	if o.unsubscribeResize != nil {
		o.unsubscribeResize()
	}
}

// emitTabsLocked publishes the tab list; only the foreground session's tabs
// are ever shown
func (o *Orchestrator) emitTabsLocked(s *Session) {
	if !o.registry.IsCurrent(s) {
		return
	}
	o.emitLocked(newEvent(EventTabsUpdated, s.ProfileID, s.tabInfos()))
}

func (o *Orchestrator) emitURLLocked(s *Session) {
	if !o.registry.IsCurrent(s) {
		return
	}
	url := BlankURL
	if tab := s.activeTab(); tab != nil && tab.URL != "" {
		url = tab.URL
	}
	o.emitLocked(newEvent(EventURLChanged, s.ProfileID, URLChange{URL: url}))
}

func (o *Orchestrator) emitLocked(event Event) {
	if o.metrics != nil {
		o.metrics.RecordEvent(string(event.Type))
	}
	o.emitter.Emit(event)
}

func (o *Orchestrator) updateGaugesLocked() {
	if o.metrics == nil {
		return
	}
	tabs := 0
	for _, s := range o.registry.Sessions() {
		tabs += len(s.tabs)
	}
	o.metrics.SetSessionsActive(o.registry.Len())
	o.metrics.SetTabsOpen(tabs)
}
