package headless

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/browser"
)

// View is a headless content view. Loads run in their own goroutine and
// events are delivered from there, never from inside a method call.
type View struct {
	id        string
	partition *Partition
	engine    *Engine

	mu        sync.Mutex
	history   []string
	index     int
	page      *Page
	handlers  browser.ViewHandlers
	subToken  int
	loadSeq   uint64
	cancel    context.CancelFunc
	destroyed bool
}

func newView(viewID string, partition *Partition, engine *Engine) *View {
	return &View{
		id:        viewID,
		partition: partition,
		engine:    engine,
		index:     -1,
	}
}

// ID returns the view id
func (v *View) ID() string {
	return v.id
}

// LoadURL navigates to target, discarding forward history
func (v *View) LoadURL(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", target, err)
	}
	if u.Scheme == "" {
		return fmt.Errorf("invalid url %q: missing scheme", target)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return ErrDestroyed
	}

	inPage := v.index >= 0 && sameDocument(v.history[v.index], target)
	v.history = append(v.history[:v.index+1], target)
	v.index = len(v.history) - 1

	if inPage {
		handlers := v.handlers
		go func() {
			if handlers.OnNavigated != nil {
				handlers.OnNavigated(target, true)
			}
		}()
		return nil
	}

	v.startLoadLocked(target)
	return nil
}

// URL returns the current history entry
func (v *View) URL() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.index < 0 {
		return ""
	}
	return v.history[v.index]
}

// CanGoBack reports whether there is an earlier history entry
func (v *View) CanGoBack() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.index > 0
}

// CanGoForward reports whether there is a later history entry
func (v *View) CanGoForward() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.index >= 0 && v.index < len(v.history)-1
}

// GoBack loads the previous history entry
func (v *View) GoBack() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed || v.index <= 0 {
		return
	}
	v.index--
	v.startLoadLocked(v.history[v.index])
}

// GoForward loads the next history entry
func (v *View) GoForward() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed || v.index < 0 || v.index >= len(v.history)-1 {
		return
	}
	v.index++
	v.startLoadLocked(v.history[v.index])
}

// Reload loads the current entry again
func (v *View) Reload() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.destroyed || v.index < 0 {
		return
	}
	v.startLoadLocked(v.history[v.index])
}

// Page returns the last completed load, or nil
func (v *View) Page() *Page {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.page == nil {
		return nil
	}
	p := *v.page
	return &p
}

// Destroy cancels any load and drops the subscription
func (v *View) Destroy() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.destroyed {
		return nil
	}
	v.destroyed = true
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.handlers = browser.ViewHandlers{}
	return nil
}

// Subscribe replaces the view's event handlers
func (v *View) Subscribe(handlers browser.ViewHandlers) browser.Subscription {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.subToken++
	v.handlers = handlers
	return &subscription{view: v, token: v.subToken}
}

type subscription struct {
	view  *View
	token int
	once  sync.Once
}

// Close stops event delivery for this subscription
func (s *subscription) Close() {
	s.once.Do(func() {
		s.view.mu.Lock()
		defer s.view.mu.Unlock()
		if s.view.subToken == s.token {
			s.view.handlers = browser.ViewHandlers{}
		}
	})
}

// startLoadLocked supersedes any running load
func (v *View) startLoadLocked(target string) {
	if v.cancel != nil {
		v.cancel()
	}
	v.loadSeq++
	seq := v.loadSeq

	ctx, cancel := context.WithTimeout(context.Background(), v.engine.cfg.LoadTimeout)
	v.cancel = cancel

	go v.load(ctx, cancel, seq, target)
}

func (v *View) load(ctx context.Context, cancel context.CancelFunc, seq uint64, target string) {
	defer cancel()

	start := time.Now()
	var page *Page
	var err error
	if isInternal(target) {
		page, err = internalPage(target)
	} else {
		page, err = v.fetch(ctx, target)
	}
	v.recordLoad(start, err)

	v.mu.Lock()
	if v.destroyed || seq != v.loadSeq {
		v.mu.Unlock()
		return
	}
	handlers := v.handlers
	final := target
	if err == nil {
		v.page = page
		final = page.URL
		if v.index >= 0 {
			v.history[v.index] = final
		}
	}
	v.mu.Unlock()

	if err != nil {
		v.engine.logger.Warn("Page load failed",
			zap.String("view_id", v.id),
			zap.String("partition", v.partition.Name()),
			zap.String("url", target),
			zap.Error(err),
		)
		if handlers.OnNavigated != nil {
			handlers.OnNavigated(target, false)
		}
		return
	}

	if handlers.OnNavigated != nil {
		handlers.OnNavigated(final, false)
	}
	if handlers.OnTitle != nil && page.Title != "" {
		handlers.OnTitle(page.Title)
	}
	if handlers.OnLoadFinished != nil {
		handlers.OnLoadFinished(final)
	}
}

func (v *View) recordLoad(start time.Time, err error) {
	if v.engine.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	v.engine.metrics.RecordServiceCall("headless", "load", status, time.Since(start))
}

func isInternal(target string) bool {
	lower := strings.ToLower(target)
	return strings.HasPrefix(lower, "about:") || strings.HasPrefix(lower, "data:")
}

// sameDocument reports whether b only differs from a by its fragment
func sameDocument(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil || ub.Fragment == "" {
		return false
	}
	ua.Fragment, ub.Fragment = "", ""
	ua.RawFragment, ub.RawFragment = "", ""
	return ua.String() == ub.String()
}
