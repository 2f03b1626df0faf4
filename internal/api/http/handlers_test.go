package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/browser"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/layout"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/providers/headless"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/providers/profiles"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/providers/proxycheck"
)

type fixture struct {
	router *gin.Engine
	orch   *browser.Orchestrator
	window *headless.Window
}

func setup(t *testing.T, metrics *monitoring.Metrics) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := profiles.NewFileStoreFS(fstest.MapFS{
		"alice.yaml": {Data: []byte("name: Alice\ntype: instagram\n")},
		"bob.yaml":   {Data: []byte("name: Bob\n")},
		"carol.yaml": {Data: []byte("name: Carol\nproxy:\n  host: 10.0.0.9\n  port: 3128\n  username: carol\n  password: hunter2\n")},
	}, nil)
	require.NoError(t, err)

	window := headless.NewWindow(layout.Size{Width: 1280, Height: 800})
	engine := headless.NewEngine(headless.DefaultConfig(), nil)
	orch := browser.NewOrchestrator(browser.Dependencies{
		Store:    store,
		Engine:   engine,
		Window:   window,
		Verifier: proxycheck.New(proxycheck.DefaultConfig(), nil),
	})
	engine.SetCredentialSource(orch)
	t.Cleanup(orch.Shutdown)

	router := gin.New()
	NewHandlers(orch, store, window, nil, metrics, nil).Register(router)
	return &fixture{router: router, orch: orch, window: window}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func sessionOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	session, ok := body["session"].(map[string]any)
	require.True(t, ok, "response has no session: %v", body)
	return session
}

func TestRootAndHealth(t *testing.T) {
	f := setup(t, nil)

	code, body := f.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "online", body["status"])

	code, body = f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(0), body["sessions"])
}

func TestListProfilesHidesCredentials(t *testing.T) {
	f := setup(t, nil)
	require.NoError(t, f.orch.Launch(t.Context(), "alice"))

	req := httptest.NewRequest(http.MethodGet, "/profiles", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")

	var body struct {
		Profiles []ProfileSummary `json:"profiles"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Profiles, 3)
	assert.Equal(t, ProfileSummary{ID: "alice", Name: "Alice", Type: "instagram", Active: true}, body.Profiles[0])
	assert.False(t, body.Profiles[1].Active)
	assert.Equal(t, "10.0.0.9:3128", body.Profiles[2].Proxy)
}

func TestLaunchUnknownProfile(t *testing.T) {
	f := setup(t, nil)

	code, body := f.do(t, http.MethodPost, "/profiles/nobody/launch", nil)

	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "nobody", body["profile_id"])
	assert.Empty(t, f.orch.ListActive())
}

func TestLaunchAndCloseProfile(t *testing.T) {
	f := setup(t, nil)

	code, body := f.do(t, http.MethodPost, "/profiles/alice/launch", nil)
	require.Equal(t, http.StatusOK, code)
	session := sessionOf(t, body)
	assert.Equal(t, "alice", session["profile_id"])
	assert.Equal(t, true, session["foreground"])
	assert.Len(t, session["tabs"], 1)

	code, body = f.do(t, http.MethodPost, "/profiles/bob/launch", nil)
	require.Equal(t, http.StatusOK, code)

	code, body = f.do(t, http.MethodGet, "/sessions", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"alice", "bob"}, body["active"])
	assert.Equal(t, "bob", body["foreground"])

	code, body = f.do(t, http.MethodDelete, "/profiles/bob", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["closed"])
	assert.Equal(t, []string{"alice"}, f.orch.ListActive())

	_, body = f.do(t, http.MethodDelete, "/profiles/bob", nil)
	assert.Equal(t, false, body["closed"])
}

func TestNavigate(t *testing.T) {
	f := setup(t, nil)

	code, _ := f.do(t, http.MethodPost, "/navigate", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body := f.do(t, http.MethodPost, "/navigate", map[string]string{"url": "example.com"})
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, body["session"])

	require.NoError(t, f.orch.Launch(t.Context(), "alice"))
	code, _ = f.do(t, http.MethodPost, "/navigate", map[string]string{"url": "data:text/html,<title>Hello</title>"})
	require.Equal(t, http.StatusOK, code)

	require.Eventually(t, func() bool {
		info, ok := f.orch.Session("alice")
		return ok && info.Tabs[0].Title == "Hello"
	}, 2*time.Second, 10*time.Millisecond)

	code, body = f.do(t, http.MethodPost, "/back", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alice", body["foreground"])
}

func TestTabRoutes(t *testing.T) {
	f := setup(t, nil)
	require.NoError(t, f.orch.Launch(t.Context(), "alice"))

	_, body := f.do(t, http.MethodPost, "/tabs", nil)
	session := sessionOf(t, body)
	assert.Len(t, session["tabs"], 2)
	assert.Equal(t, "tab-2", session["active_tab_id"])

	_, body = f.do(t, http.MethodPost, "/tabs/tab-1/switch", nil)
	assert.Equal(t, "tab-1", sessionOf(t, body)["active_tab_id"])

	_, body = f.do(t, http.MethodDelete, "/tabs/tab-2", nil)
	session = sessionOf(t, body)
	assert.Len(t, session["tabs"], 1)
	assert.Equal(t, "tab-1", session["active_tab_id"])

	_, body = f.do(t, http.MethodDelete, "/tabs/tab-404", nil)
	assert.Len(t, sessionOf(t, body)["tabs"], 1)
}

func TestResizeWindow(t *testing.T) {
	f := setup(t, nil)
	require.NoError(t, f.orch.Launch(t.Context(), "alice"))

	code, _ := f.do(t, http.MethodPost, "/window/resize", map[string]int{"width": -1, "height": 10})
	assert.Equal(t, http.StatusBadRequest, code)

	// A blank tab is never attached, so there are no bounds to re-apply
	code, _ = f.do(t, http.MethodPost, "/window/resize", map[string]int{"width": 900, "height": 600})
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, f.window.State().Attached)
	assert.Equal(t, layout.Rect{}, f.window.State().Bounds)

	code, _ = f.do(t, http.MethodPost, "/navigate", map[string]string{"url": "data:text/html,<title>Sized</title>"})
	require.Equal(t, http.StatusOK, code)
	require.Eventually(t, func() bool {
		return f.window.State().Attached != ""
	}, 2*time.Second, 10*time.Millisecond)

	code, body := f.do(t, http.MethodPost, "/window/resize", map[string]int{"width": 1000, "height": 700})
	require.Equal(t, http.StatusOK, code)

	want := layout.ComputeBounds(layout.Size{Width: 1000, Height: 700})
	state := f.window.State()
	assert.Equal(t, 1000, state.Width)
	assert.Equal(t, want, state.Bounds)
	assert.Equal(t, float64(want.Height), body["content"].(map[string]any)["height"])
}

func TestMetricsJSON(t *testing.T) {
	code, _ := setup(t, nil).do(t, http.MethodGet, "/metrics/json", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	t.Cleanup(metrics.Stop)
	f := setup(t, metrics)
	require.NoError(t, f.orch.Launch(t.Context(), "alice"))
	f.do(t, http.MethodPost, "/tabs", nil)

	code, body := f.do(t, http.MethodGet, "/metrics/json", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "snapshot")
}
