package headless

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/browser"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/profile"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/providers/proxycheck"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/shared/id"
)

// ErrDestroyed is returned when using a destroyed partition or view
var ErrDestroyed = errors.New("destroyed")

// CredentialSource resolves proxy credentials for the view that raised a
// challenge
type CredentialSource interface {
	ProxyCredentials(viewID string) (profile.Credentials, bool)
}

// Config controls page loading
type Config struct {
	UserAgent   string
	LoadTimeout time.Duration
	MaxBodySize int64
}

// DefaultConfig returns the standard loading settings
func DefaultConfig() Config {
	return Config{
		UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) ProfileDeck/1.0",
		LoadTimeout: 30 * time.Second,
		MaxBodySize: 10 * 1024 * 1024,
	}
}

// Engine creates partitions and views
type Engine struct {
	cfg     Config
	logger  *zap.Logger
	metrics *monitoring.Metrics

	mu    sync.RWMutex
	creds CredentialSource
}

// NewEngine creates a headless engine
func NewEngine(cfg Config, logger *zap.Logger) *Engine {
	defaults := DefaultConfig()
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = defaults.LoadTimeout
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaults.MaxBodySize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, logger: logger}
}

// WithMetrics adds metrics tracking to page loads
func (e *Engine) WithMetrics(metrics *monitoring.Metrics) *Engine {
	e.metrics = metrics
	return e
}

// SetCredentialSource installs the proxy credential lookup. It is set after
// construction because the source usually depends on the engine.
func (e *Engine) SetCredentialSource(source CredentialSource) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.creds = source
}

func (e *Engine) credentials(viewID string) (profile.Credentials, bool) {
	e.mu.RLock()
	source := e.creds
	e.mu.RUnlock()
	if source == nil || viewID == "" {
		return profile.Credentials{}, false
	}
	return source.ProxyCredentials(viewID)
}

// NewPartition creates an isolated cookie and connection context
func (e *Engine) NewPartition(profileID string) (browser.Partition, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	p := &Partition{
		id:     id.NewPartitionID(),
		name:   "persist:" + profileID,
		engine: e,
		jar:    jar,
	}
	p.transport = &http.Transport{
		Proxy:                 p.proxyURL,
		GetProxyConnectHeader: p.proxyConnectHeader,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
		// Decoding is done by the view so zstd is accepted too
		DisableCompression: true,
	}
	p.client = &http.Client{
		Transport: p.transport,
		Jar:       jar,
		Timeout:   e.cfg.LoadTimeout,
	}

	e.logger.Debug("Partition created",
		zap.String("partition", p.name),
		zap.String("partition_id", p.id.String()),
	)
	return p, nil
}

// NewView creates a content view inside partition
func (e *Engine) NewView(partition browser.Partition) (browser.ContentView, error) {
	p, ok := partition.(*Partition)
	if !ok {
		return nil, fmt.Errorf("partition %q was not created by the headless engine", partition.Name())
	}
	if p.isDestroyed() {
		return nil, fmt.Errorf("partition %s: %w", p.name, ErrDestroyed)
	}
	return newView(id.NewViewID().String(), p, e), nil
}

// Partition holds one profile's cookies and proxy route
type Partition struct {
	id        id.PartitionID
	name      string
	engine    *Engine
	jar       http.CookieJar
	transport *http.Transport
	client    *http.Client

	mu        sync.RWMutex
	proxy     *url.URL
	destroyed bool
}

// Name returns the partition name
func (p *Partition) Name() string {
	return p.name
}

// SetProxy routes every request of the partition through proxy; nil clears it
func (p *Partition) SetProxy(proxy *profile.Proxy) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return ErrDestroyed
	}
	if proxy == nil {
		p.proxy = nil
		return nil
	}
	if proxy.Host == "" || proxy.Port <= 0 {
		return fmt.Errorf("invalid proxy address %q", proxy.Addr())
	}
	p.proxy = &url.URL{Scheme: "http", Host: proxy.Addr()}
	p.transport.CloseIdleConnections()
	return nil
}

// Proxy returns the configured proxy URL or nil
func (p *Partition) Proxy() *url.URL {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.proxy
}

// Cookies returns the cookies the partition would send to u
func (p *Partition) Cookies(u *url.URL) []*http.Cookie {
	return p.jar.Cookies(u)
}

// Destroy drops pooled connections; the partition cannot be used afterwards
func (p *Partition) Destroy() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.destroyed {
		return nil
	}
	p.destroyed = true
	p.transport.CloseIdleConnections()
	return nil
}

func (p *Partition) isDestroyed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.destroyed
}

func (p *Partition) proxyURL(req *http.Request) (*url.URL, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.destroyed {
		return nil, ErrDestroyed
	}
	return p.proxy, nil
}

// proxyConnectHeader answers the proxy's authentication for CONNECT using the
// credentials of the view that issued the request
func (p *Partition) proxyConnectHeader(ctx context.Context, proxyURL *url.URL, target string) (http.Header, error) {
	creds, ok := p.engine.credentials(viewIDFrom(ctx))
	if !ok {
		return nil, nil
	}
	return http.Header{
		"Proxy-Authorization": {proxycheck.BasicAuth(creds.Username, creds.Password)},
	}, nil
}

type viewIDKey struct{}

func withViewID(ctx context.Context, viewID string) context.Context {
	return context.WithValue(ctx, viewIDKey{}, viewID)
}

func viewIDFrom(ctx context.Context) string {
	s, _ := ctx.Value(viewIDKey{}).(string)
	return s
}

var (
	_ browser.Engine      = (*Engine)(nil)
	_ browser.Partition   = (*Partition)(nil)
	_ browser.ContentView = (*View)(nil)
	_ browser.Window      = (*Window)(nil)
)
