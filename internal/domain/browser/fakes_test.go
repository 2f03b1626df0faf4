package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/layout"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/profile"
)

type fakeStore struct {
	profiles map[string]*profile.Profile
	err      error
}

func newFakeStore(profiles ...*profile.Profile) *fakeStore {
	s := &fakeStore{profiles: make(map[string]*profile.Profile)}
	for _, p := range profiles {
		s.profiles[p.ID] = p
	}
	return s
}

func (s *fakeStore) Get(ctx context.Context, id string) (*profile.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.profiles[id]
	if !ok {
		return nil, profile.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *fakeStore) List(ctx context.Context) ([]*profile.Profile, error) {
	out := make([]*profile.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	return out, nil
}

type fakeWindow struct {
	mu        sync.Mutex
	size      layout.Size
	attached  ContentView
	bounds    layout.Rect
	attaches  int
	detaches  int
	destroyed bool
	handlers  map[int]func(layout.Size)
	nextID    int
}

func newFakeWindow(width, height int) *fakeWindow {
	return &fakeWindow{
		size:     layout.Size{Width: width, Height: height},
		handlers: make(map[int]func(layout.Size)),
	}
}

func (w *fakeWindow) ContentBounds() layout.Size {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

func (w *fakeWindow) Attach(view ContentView, bounds layout.Rect) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attached = view
	w.bounds = bounds
	w.attaches++
}

func (w *fakeWindow) Detach() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attached = nil
	w.detaches++
}

func (w *fakeWindow) OnResize(fn func(layout.Size)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.handlers[id] = fn
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.handlers, id)
	}
}

func (w *fakeWindow) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

func (w *fakeWindow) resize(width, height int) {
	w.mu.Lock()
	w.size = layout.Size{Width: width, Height: height}
	handlers := make([]func(layout.Size), 0, len(w.handlers))
	for _, fn := range w.handlers {
		handlers = append(handlers, fn)
	}
	size := w.size
	w.mu.Unlock()

	for _, fn := range handlers {
		fn(size)
	}
}

func (w *fakeWindow) state() (ContentView, layout.Rect, int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.attached, w.bounds, w.attaches, w.detaches
}

type fakePartition struct {
	mu        sync.Mutex
	name      string
	proxy     *profile.Proxy
	destroyed bool
}

func (p *fakePartition) Name() string { return p.name }

func (p *fakePartition) SetProxy(proxy *profile.Proxy) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.proxy = proxy
	return nil
}

func (p *fakePartition) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.destroyed = true
	return nil
}

func (p *fakePartition) isDestroyed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.destroyed
}

type fakeEngine struct {
	mu         sync.Mutex
	partitions []*fakePartition
	views      []*fakeView
	viewErr    error
	destroyErr error
}

func (e *fakeEngine) NewPartition(profileID string) (Partition, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p := &fakePartition{name: "persist:" + profileID}
	e.partitions = append(e.partitions, p)
	return p, nil
}

func (e *fakeEngine) NewView(partition Partition) (ContentView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.viewErr != nil {
		return nil, e.viewErr
	}
	v := &fakeView{
		id:         fmt.Sprintf("view-%d", len(e.views)+1),
		partition:  partition,
		destroyErr: e.destroyErr,
	}
	e.views = append(e.views, v)
	return v, nil
}

func (e *fakeEngine) view(i int) *fakeView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.views[i]
}

func (e *fakeEngine) viewCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.views)
}

func (e *fakeEngine) partitionCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.partitions)
}

type fakeSub struct {
	view *fakeView
}

func (s *fakeSub) Close() {
	s.view.mu.Lock()
	defer s.view.mu.Unlock()
	s.view.handlers = ViewHandlers{}
}

// fakeView records calls. Events are fired by tests through fire* helpers,
// never from inside a method, matching the ContentView contract.
type fakeView struct {
	mu         sync.Mutex
	id         string
	partition  Partition
	url        string
	loads      []string
	back       []string
	forward    []string
	reloads    int
	destroyed  bool
	destroyErr error
	handlers   ViewHandlers
}

func (v *fakeView) ID() string { return v.id }

func (v *fakeView) LoadURL(url string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed {
		return errors.New("view destroyed")
	}
	if v.url != "" {
		v.back = append(v.back, v.url)
	}
	v.forward = nil
	v.url = url
	v.loads = append(v.loads, url)
	return nil
}

func (v *fakeView) URL() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.url
}

func (v *fakeView) CanGoBack() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.back) > 0
}

func (v *fakeView) CanGoForward() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.forward) > 0
}

func (v *fakeView) GoBack() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.back) == 0 {
		return
	}
	v.forward = append(v.forward, v.url)
	v.url = v.back[len(v.back)-1]
	v.back = v.back[:len(v.back)-1]
}

func (v *fakeView) GoForward() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.forward) == 0 {
		return
	}
	v.back = append(v.back, v.url)
	v.url = v.forward[len(v.forward)-1]
	v.forward = v.forward[:len(v.forward)-1]
}

func (v *fakeView) Reload() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.reloads++
}

func (v *fakeView) Destroy() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.destroyed = true
	return v.destroyErr
}

func (v *fakeView) Subscribe(handlers ViewHandlers) Subscription {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.handlers = handlers
	return &fakeSub{view: v}
}

func (v *fakeView) current() ViewHandlers {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.handlers
}

func (v *fakeView) isDestroyed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.destroyed
}

// fireLoad simulates a completed navigation to url
func (v *fakeView) fireLoad(url, title string) {
	h := v.current()
	if h.OnNavigated != nil {
		h.OnNavigated(url, false)
	}
	if h.OnTitle != nil && title != "" {
		h.OnTitle(title)
	}
	if h.OnLoadFinished != nil {
		h.OnLoadFinished(url)
	}
}

func (v *fakeView) fireInPage(url string) {
	if h := v.current(); h.OnNavigated != nil {
		h.OnNavigated(url, true)
	}
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Emit(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}

func (l *eventLog) ofType(t EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Event
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (l *eventLog) last(t EventType) (Event, bool) {
	events := l.ofType(t)
	if len(events) == 0 {
		return Event{}, false
	}
	return events[len(events)-1], true
}

func (l *eventLog) proxyStatuses(profileID string) []ProxyStatusChange {
	var out []ProxyStatusChange
	for _, e := range l.ofType(EventProxyStatus) {
		if e.ProfileID == profileID {
			out = append(out, e.Data.(ProxyStatusChange))
		}
	}
	return out
}
