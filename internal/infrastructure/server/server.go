package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/ProfileDeck/backend/internal/api/http"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/api/middleware"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/api/ws"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/browser"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/layout"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/profile"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/providers/headless"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/providers/profiles"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/providers/proxycheck"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router *gin.Engine
	http   *http.Server
	orch   *browser.Orchestrator
	hub    *ws.Hub
	window *headless.Window
	tracer *tracing.Tracer

	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.FromConfig(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing ProfileDeck server",
		zap.String("port", cfg.Server.Port),
		zap.String("profiles_dir", cfg.Profiles.Dir),
		zap.Bool("remote_profiles", cfg.Profiles.RemoteURL != ""),
	)

	// A private registry keeps several servers in one process apart
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	tracer := tracing.New("profiledeck", logger.Component("tracing"))

	store, err := newStore(cfg.Profiles, logger)
	if err != nil {
		tracer.Close()
		metrics.Stop()
		return nil, err
	}

	window := headless.NewWindow(layout.Size{Width: cfg.Window.Width, Height: cfg.Window.Height})
	engine := headless.NewEngine(headless.Config{
		UserAgent:   cfg.Browser.UserAgent,
		LoadTimeout: cfg.Browser.LoadTimeout,
	}, logger.Component("headless")).WithMetrics(metrics)

	verifier := proxycheck.New(proxycheck.Config{
		Attempts:   cfg.ProxyCheck.Attempts,
		Delay:      cfg.ProxyCheck.Delay,
		Timeout:    cfg.ProxyCheck.Timeout,
		Target:     cfg.ProxyCheck.Target,
		ServerName: cfg.ProxyCheck.ServerName,
		Path:       cfg.ProxyCheck.Path,
	}, logger.Component("proxycheck")).WithMetrics(metrics)

	hub := ws.NewHub(logger.Component("stream")).WithMetrics(metrics)

	orch := browser.NewOrchestrator(browser.Dependencies{
		Store:    store,
		Engine:   engine,
		Window:   window,
		Verifier: verifier,
		Emitter:  hub,
		Logger:   logger.Component("orchestrator"),
	}).WithMetrics(metrics).WithSearchURL(cfg.Browser.SearchURL)

	engine.SetCredentialSource(orch)
	hub.WithSnapshot(func() any { return orch.Snapshot() })

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowOrigins...)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		if cfg.RateLimit.GlobalRequestsPerSecond > 0 {
			router.Use(middleware.GlobalRateLimit(middleware.RateLimitConfig{
				RequestsPerSecond: cfg.RateLimit.GlobalRequestsPerSecond,
				Burst:             cfg.RateLimit.GlobalBurst,
			}))
		}
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(orch, store, window, hub, metrics, logger.Component("api"))
	handlers.Register(router)
	router.GET("/stream", hub.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		orch:    orch,
		hub:     hub,
		window:  window,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// newStore picks the REST store when a remote URL is configured and the
// directory store otherwise
func newStore(cfg config.ProfilesConfig, logger *logging.Logger) (profile.Store, error) {
	if cfg.RemoteURL != "" {
		clientCfg := profiles.DefaultClientConfig()
		clientCfg.BaseURL = cfg.RemoteURL
		clientCfg.Token = cfg.Token
		clientCfg.RateLimit = cfg.RateLimit
		logger.Info("Using remote profile store", zap.String("url", cfg.RemoteURL))
		storeLogger := logger.Component("profiles")
		return profiles.NewRemoteStore(profiles.NewClient(clientCfg, storeLogger), storeLogger), nil
	}

	store, err := profiles.NewFileStore(cfg.Dir, logger.Component("profiles"))
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles from %s: %w", cfg.Dir, err)
	}
	return store, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until the server is closed
func (s *Server) Run() error {
	addr := net.JoinHostPort(s.config.Server.Host, s.config.Server.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops accepting requests, closes every session and flushes logs
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	var httpErr error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("HTTP shutdown failed", zap.Error(err))
			httpErr = fmt.Errorf("failed to shut down http server: %w", err)
		}
	}

	s.orch.Shutdown()
	s.hub.Close()
	s.window.Destroy()
	s.tracer.Close()
	s.metrics.Stop()
	s.logger.Info("Server stopped")
	_ = s.logger.Sync()

	return httpErr
}
