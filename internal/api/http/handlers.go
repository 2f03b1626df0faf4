package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/browser"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/layout"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/profile"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/infrastructure/tracing"
)

// Orchestrator is the session API the handlers drive
type Orchestrator interface {
	Launch(ctx context.Context, profileID string) error
	Close(profileID string)
	ListActive() []string
	CurrentID() string
	Snapshot() []browser.SessionInfo
	Session(profileID string) (browser.SessionInfo, bool)
	Navigate(raw string)
	Back()
	Forward()
	Refresh()
	NewTab()
	SwitchTab(tabID string)
	CloseTab(tabID string)
}

// Resizer changes the host window size
type Resizer interface {
	Resize(size layout.Size)
}

// StreamStats reports connected event stream clients
type StreamStats interface {
	Count() int
}

// Handlers contains all HTTP handlers
type Handlers struct {
	orch    Orchestrator
	store   profile.Store
	window  Resizer
	stream  StreamStats
	metrics *HandlerMetrics
	stats   *monitoring.Metrics
	logger  *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(orch Orchestrator, store profile.Store, window Resizer, stream StreamStats, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		orch:    orch,
		store:   store,
		window:  window,
		stream:  stream,
		metrics: NewHandlerMetrics(metrics),
		stats:   metrics,
		logger:  logger,
	}
}

// Register mounts every route on router
func (h *Handlers) Register(router gin.IRouter) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	router.GET("/profiles", h.ListProfiles)
	router.POST("/profiles/:id/launch", h.LaunchProfile)
	router.DELETE("/profiles/:id", h.CloseProfile)

	router.GET("/sessions", h.ListSessions)

	router.POST("/navigate", h.Navigate)
	router.POST("/back", h.Back)
	router.POST("/forward", h.Forward)
	router.POST("/refresh", h.Refresh)

	router.POST("/tabs", h.NewTab)
	router.POST("/tabs/:id/switch", h.SwitchTab)
	router.DELETE("/tabs/:id", h.CloseTab)

	router.POST("/window/resize", h.Resize)
	router.GET("/metrics/json", h.MetricsJSON)
}

// Root handles the liveness check
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "ProfileDeck",
		"version": "0.1.0",
	})
}

// Health reports session and stream statistics
func (h *Handlers) Health(c *gin.Context) {
	active := h.orch.ListActive()
	streams := 0
	if h.stream != nil {
		streams = h.stream.Count()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"sessions":       len(active),
		"foreground":     h.orch.CurrentID(),
		"stream_clients": streams,
	})
}

// ProfileSummary is a profile as listed to the UI. Proxy credentials are
// never sent.
type ProfileSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type,omitempty"`
	Device string `json:"device,omitempty"`
	Proxy  string `json:"proxy,omitempty"`
	Active bool   `json:"active"`
}

// ListProfiles lists the profiles in the store
func (h *Handlers) ListProfiles(c *gin.Context) {
	done := h.metrics.TrackProfileOperation("list")
	records, err := h.store.List(c.Request.Context())
	if err != nil {
		done("error")
		h.logger.Error("Failed to list profiles", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "profile store unavailable"})
		return
	}
	done("success")

	active := make(map[string]bool)
	for _, id := range h.orch.ListActive() {
		active[id] = true
	}

	profiles := make([]ProfileSummary, 0, len(records))
	for _, p := range records {
		summary := ProfileSummary{
			ID:     p.ID,
			Name:   p.Name,
			Type:   p.Type,
			Device: p.Device,
			Active: active[p.ID],
		}
		if p.HasProxy() {
			summary.Proxy = p.Proxy.Addr()
		}
		profiles = append(profiles, summary)
	}

	c.JSON(http.StatusOK, gin.H{"profiles": profiles})
}

// LaunchProfile launches or foregrounds a profile's session
func (h *Handlers) LaunchProfile(c *gin.Context) {
	profileID := c.Param("id")
	tracing.Tag(c.Request.Context(), "profile_id", profileID)

	done := h.metrics.TrackSessionOperation("launch")
	err := h.orch.Launch(c.Request.Context(), profileID)
	switch {
	case err == nil:
		done("success")
	case errors.Is(err, browser.ErrProfileNotFound):
		done("not_found")
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found", "profile_id": profileID})
		return
	case errors.Is(err, browser.ErrClosed):
		done("error")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
		return
	default:
		done("error")
		h.logger.Error("Launch failed", zap.String("profile_id", profileID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	info, _ := h.orch.Session(profileID)
	c.JSON(http.StatusOK, gin.H{"session": info})
}

// CloseProfile tears down a profile's session
func (h *Handlers) CloseProfile(c *gin.Context) {
	profileID := c.Param("id")
	tracing.Tag(c.Request.Context(), "profile_id", profileID)

	done := h.metrics.TrackSessionOperation("close")
	_, existed := h.orch.Session(profileID)
	h.orch.Close(profileID)
	done("success")

	c.JSON(http.StatusOK, gin.H{"profile_id": profileID, "closed": existed})
}

// ListSessions lists running sessions
func (h *Handlers) ListSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"active":     h.orch.ListActive(),
		"foreground": h.orch.CurrentID(),
		"sessions":   h.orch.Snapshot(),
	})
}

// NavigateRequest is the body of POST /navigate
type NavigateRequest struct {
	URL string `json:"url" binding:"required"`
}

// Navigate loads a URL or search query in the foreground tab
func (h *Handlers) Navigate(c *gin.Context) {
	var req NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	done := h.metrics.TrackSessionOperation("navigate")
	h.orch.Navigate(req.URL)
	done("success")
	h.foreground(c)
}

// Back goes back in the foreground tab
func (h *Handlers) Back(c *gin.Context) {
	h.command(c, "back", h.orch.Back)
}

// Forward goes forward in the foreground tab
func (h *Handlers) Forward(c *gin.Context) {
	h.command(c, "forward", h.orch.Forward)
}

// Refresh reloads the foreground tab
func (h *Handlers) Refresh(c *gin.Context) {
	h.command(c, "refresh", h.orch.Refresh)
}

// NewTab opens a blank tab in the foreground session
func (h *Handlers) NewTab(c *gin.Context) {
	h.command(c, "new_tab", h.orch.NewTab)
}

// SwitchTab activates a tab of the foreground session
func (h *Handlers) SwitchTab(c *gin.Context) {
	tabID := c.Param("id")
	h.command(c, "switch_tab", func() { h.orch.SwitchTab(tabID) })
}

// CloseTab closes a tab of the foreground session
func (h *Handlers) CloseTab(c *gin.Context) {
	tabID := c.Param("id")
	h.command(c, "close_tab", func() { h.orch.CloseTab(tabID) })
}

// ResizeRequest is the body of POST /window/resize
type ResizeRequest struct {
	Width  int `json:"width" binding:"min=0"`
	Height int `json:"height" binding:"min=0"`
}

// Resize changes the host window size
func (h *Handlers) Resize(c *gin.Context) {
	var req ResizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width and height must be non-negative integers"})
		return
	}

	h.window.Resize(layout.Size{Width: req.Width, Height: req.Height})
	c.JSON(http.StatusOK, gin.H{
		"window":  layout.Size{Width: req.Width, Height: req.Height},
		"content": layout.ComputeBounds(layout.Size{Width: req.Width, Height: req.Height}),
	})
}

// MetricsJSON returns the in-process metrics snapshot
func (h *Handlers) MetricsJSON(c *gin.Context) {
	if h.stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"snapshot":       h.stats.Snapshot(),
		"avg_request_ms": h.stats.AverageRequestDuration().Milliseconds(),
	})
}

func (h *Handlers) command(c *gin.Context, operation string, fn func()) {
	done := h.metrics.TrackSessionOperation(operation)
	fn()
	done("success")
	h.foreground(c)
}

// foreground answers with the foreground session, which is null when no
// session is running
func (h *Handlers) foreground(c *gin.Context) {
	current := h.orch.CurrentID()
	var session *browser.SessionInfo
	if info, ok := h.orch.Session(current); ok {
		session = &info
	}
	c.JSON(http.StatusOK, gin.H{"foreground": current, "session": session})
}
