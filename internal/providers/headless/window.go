package headless

import (
	"sync"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/browser"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/layout"
)

// Window is the headless host surface
type Window struct {
	mu        sync.Mutex
	size      layout.Size
	attached  browser.ContentView
	bounds    layout.Rect
	destroyed bool
	handlers  map[int]func(layout.Size)
	nextID    int
}

// WindowState is a read-only view of the window
type WindowState struct {
	Width     int         `json:"width"`
	Height    int         `json:"height"`
	Attached  string      `json:"attached,omitempty"`
	Bounds    layout.Rect `json:"bounds"`
	Destroyed bool        `json:"destroyed"`
}

// NewWindow creates a window with the given content size
func NewWindow(size layout.Size) *Window {
	return &Window{
		size:     size,
		handlers: make(map[int]func(layout.Size)),
	}
}

// ContentBounds returns the content area size
func (w *Window) ContentBounds() layout.Size {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Attach shows view at bounds, replacing any attached view
func (w *Window) Attach(view browser.ContentView, bounds layout.Rect) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.destroyed {
		return
	}
	w.attached = view
	w.bounds = bounds
}

// Detach removes the attached view
func (w *Window) Detach() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attached = nil
	w.bounds = layout.Rect{}
}

// OnResize registers fn for size changes and returns its unsubscribe func
func (w *Window) OnResize(fn func(layout.Size)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()

	handlerID := w.nextID
	w.nextID++
	w.handlers[handlerID] = fn

	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.handlers, handlerID)
	}
}

// Resize changes the content size and notifies handlers outside the lock
func (w *Window) Resize(size layout.Size) {
	w.mu.Lock()
	if w.destroyed {
		w.mu.Unlock()
		return
	}
	w.size = size
	handlers := make([]func(layout.Size), 0, len(w.handlers))
	for _, fn := range w.handlers {
		handlers = append(handlers, fn)
	}
	w.mu.Unlock()

	for _, fn := range handlers {
		fn(size)
	}
}

// Destroyed reports whether the window has been closed
func (w *Window) Destroyed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.destroyed
}

// Destroy closes the window
func (w *Window) Destroy() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.destroyed = true
	w.attached = nil
}

// State returns a snapshot of the window
func (w *Window) State() WindowState {
	w.mu.Lock()
	defer w.mu.Unlock()

	state := WindowState{
		Width:     w.size.Width,
		Height:    w.size.Height,
		Bounds:    w.bounds,
		Destroyed: w.destroyed,
	}
	if w.attached != nil {
		state.Attached = w.attached.ID()
	}
	return state
}
