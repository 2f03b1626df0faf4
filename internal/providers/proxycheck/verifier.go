package proxycheck

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/ProfileDeck/backend/internal/domain/profile"
	"github.com/GriffinCanCode/ProfileDeck/backend/internal/infrastructure/monitoring"
)

var (
	// ErrProxyUnreachable covers dial failures, timeouts and CONNECT rejections
	ErrProxyUnreachable = errors.New("proxy unreachable")
	// ErrProtocol covers malformed or truncated responses through the tunnel
	ErrProtocol = errors.New("proxy check protocol error")
)

// Status, Report and Result are the domain verification types
type (
	Status = profile.ProxyStatus
	Report = profile.ProxyReport
	Result = profile.ProxyResult
)

const (
	StatusNone      = profile.ProxyStatusNone
	StatusChecking  = profile.ProxyStatusChecking
	StatusConnected = profile.ProxyStatusConnected
	StatusError     = profile.ProxyStatusError
)

// Config controls the attempt protocol and the retry loop
type Config struct {
	Attempts   int
	Delay      time.Duration
	Timeout    time.Duration
	Target     string // host:port passed to CONNECT
	ServerName string // TLS SNI and Host header
	Path       string
	UserAgent  string
	// TLSConfig is cloned for every attempt; ServerName is always overwritten
	TLSConfig *tls.Config
}

// DefaultConfig returns the production verification settings
func DefaultConfig() Config {
	return Config{
		Attempts:   10,
		Delay:      1 * time.Second,
		Timeout:    5 * time.Second,
		Target:     "api.ipify.org:443",
		ServerName: "api.ipify.org",
		Path:       "/?format=json",
		UserAgent:  "ProfileDeck-ProxyCheck/1.0",
	}
}

// AttemptFunc performs a single verification attempt and returns the egress IP
type AttemptFunc func(ctx context.Context, proxy *profile.Proxy) (string, error)

// Verifier confirms the externally visible IP of a proxy
type Verifier struct {
	cfg     Config
	logger  *zap.Logger
	metrics *monitoring.Metrics
	dialer  *net.Dialer
	attempt AttemptFunc
}

// New creates a verifier using the real network attempt
func New(cfg Config, logger *zap.Logger) *Verifier {
	defaults := DefaultConfig()
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaults.Attempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.Target == "" {
		cfg.Target = defaults.Target
	}
	if cfg.ServerName == "" {
		cfg.ServerName = defaults.ServerName
	}
	if cfg.Path == "" {
		cfg.Path = defaults.Path
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	v := &Verifier{
		cfg:    cfg,
		logger: logger,
		dialer: &net.Dialer{KeepAlive: -1},
	}
	v.attempt = v.Attempt
	return v
}

// WithMetrics adds metrics tracking to the verifier
func (v *Verifier) WithMetrics(metrics *monitoring.Metrics) *Verifier {
	v.metrics = metrics
	return v
}

// WithAttempt replaces the network attempt, used by tests to script outcomes
func (v *Verifier) WithAttempt(fn AttemptFunc) *Verifier {
	v.attempt = fn
	return v
}

// Config returns the effective configuration
func (v *Verifier) Config() Config {
	return v.cfg
}

// Run executes up to cfg.Attempts attempts, cfg.Delay apart, reporting
// StatusChecking before each one. It stops at the first success. A cancelled
// ctx ends the run without a final report and returns ctx.Err().
func (v *Verifier) Run(ctx context.Context, proxy *profile.Proxy, report func(Report)) (Result, error) {
	if report == nil {
		report = func(Report) {}
	}

	for i := 1; i <= v.cfg.Attempts; i++ {
		if i > 1 && v.cfg.Delay > 0 {
			timer := time.NewTimer(v.cfg.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Result{Status: StatusNone, Attempts: i - 1}, ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return Result{Status: StatusNone, Attempts: i - 1}, err
		}

		report(Report{Status: StatusChecking, Attempt: i})

		start := time.Now()
		actx, cancel := context.WithTimeout(ctx, v.cfg.Timeout)
		ip, err := v.attempt(actx, proxy)
		cancel()

		if err == nil {
			v.recordAttempt("success", start)
			v.recordCheck(StatusConnected)
			v.logger.Info("Proxy verified",
				zap.String("proxy", proxy.Addr()),
				zap.String("ip", ip),
				zap.Int("attempt", i),
			)
			report(Report{Status: StatusConnected, Attempt: i, IP: ip})
			return Result{Status: StatusConnected, IP: ip, Attempts: i}, nil
		}

		if ctx.Err() != nil {
			return Result{Status: StatusNone, Attempts: i}, ctx.Err()
		}

		v.recordAttempt("failure", start)
		v.logger.Debug("Proxy check attempt failed",
			zap.String("proxy", proxy.Addr()),
			zap.Int("attempt", i),
			zap.Int("max_attempts", v.cfg.Attempts),
			zap.Error(err),
		)
	}

	v.recordCheck(StatusError)
	v.logger.Warn("Proxy verification failed",
		zap.String("proxy", proxy.Addr()),
		zap.Int("attempts", v.cfg.Attempts),
	)
	report(Report{Status: StatusError, Attempt: v.cfg.Attempts})
	return Result{Status: StatusError, Attempts: v.cfg.Attempts}, nil
}

// Attempt tunnels to the IP-echo service through proxy and returns the
// reported address. The socket is closed as soon as ctx is done.
func (v *Verifier) Attempt(ctx context.Context, proxy *profile.Proxy) (string, error) {
	if proxy == nil {
		return "", fmt.Errorf("%w: no proxy configured", ErrProxyUnreachable)
	}

	conn, err := v.dialer.DialContext(ctx, "tcp", proxy.Addr())
	if err != nil {
		return "", fmt.Errorf("%w: dial %s: %w", ErrProxyUnreachable, proxy.Addr(), err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	tunnel, err := v.connect(conn, proxy)
	if err != nil {
		return "", v.wrapTimeout(ctx, err)
	}

	tlsCfg := &tls.Config{}
	if v.cfg.TLSConfig != nil {
		tlsCfg = v.cfg.TLSConfig.Clone()
	}
	tlsCfg.ServerName = v.cfg.ServerName

	tlsConn := tls.Client(tunnel, tlsCfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		return "", v.wrapTimeout(ctx, fmt.Errorf("%w: tls handshake: %w", ErrProxyUnreachable, err))
	}

	request := "GET " + v.cfg.Path + " HTTP/1.1\r\n" +
		"Host: " + v.cfg.ServerName + "\r\n" +
		"User-Agent: " + v.cfg.UserAgent + "\r\n" +
		"Accept: application/json\r\n" +
		"Connection: close\r\n\r\n"
	if _, err := io.WriteString(tlsConn, request); err != nil {
		return "", v.wrapTimeout(ctx, fmt.Errorf("%w: write request: %w", ErrProxyUnreachable, err))
	}

	raw, err := io.ReadAll(tlsConn)
	if len(raw) == 0 {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return "", v.wrapTimeout(ctx, fmt.Errorf("%w: connection closed before response: %w", ErrProtocol, err))
	}

	return ParseIPResponse(raw)
}

// connect issues the CONNECT request and returns the tunnelled stream
func (v *Verifier) connect(conn net.Conn, proxy *profile.Proxy) (net.Conn, error) {
	var b strings.Builder
	b.WriteString("CONNECT " + v.cfg.Target + " HTTP/1.1\r\n")
	b.WriteString("Host: " + v.cfg.Target + "\r\n")
	if creds, ok := proxy.Credentials(); ok {
		b.WriteString("Proxy-Authorization: " + BasicAuth(creds.Username, creds.Password) + "\r\n")
	}
	b.WriteString("\r\n")

	if _, err := io.WriteString(conn, b.String()); err != nil {
		return nil, fmt.Errorf("%w: write CONNECT: %w", ErrProxyUnreachable, err)
	}

	br := bufio.NewReader(conn)
	resp, err := http.ReadResponse(br, &http.Request{Method: http.MethodConnect})
	if err != nil {
		return nil, fmt.Errorf("%w: read CONNECT response: %w", ErrProxyUnreachable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: CONNECT returned %d", ErrProxyUnreachable, resp.StatusCode)
	}

	if br.Buffered() > 0 {
		return &bufferedConn{Conn: conn, r: br}, nil
	}
	return conn, nil
}

func (v *Verifier) wrapTimeout(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w (%w)", err, ctxErr)
	}
	return err
}

func (v *Verifier) recordAttempt(outcome string, start time.Time) {
	if v.metrics != nil {
		v.metrics.RecordProxyAttempt(outcome, time.Since(start))
	}
}

func (v *Verifier) recordCheck(status Status) {
	if v.metrics != nil {
		v.metrics.RecordProxyCheck(string(status))
	}
}

// ParseIPResponse extracts the "ip" field from a raw HTTP response
func ParseIPResponse(raw []byte) (string, error) {
	sep := bytes.Index(raw, []byte("\r\n\r\n"))
	if sep < 0 {
		return "", fmt.Errorf("%w: missing header terminator", ErrProtocol)
	}
	head := raw[:sep]
	body := raw[sep+4:]

	if isChunked(head) {
		decoded, err := io.ReadAll(httputil.NewChunkedReader(bytes.NewReader(body)))
		if err != nil && len(decoded) == 0 {
			return "", fmt.Errorf("%w: chunked body: %w", ErrProtocol, err)
		}
		body = decoded
	}

	var payload struct {
		IP string `json:"ip"`
	}
	if err := sonic.Unmarshal(bytes.TrimSpace(body), &payload); err != nil {
		return "", fmt.Errorf("%w: decode body: %w", ErrProtocol, err)
	}
	if payload.IP == "" {
		return "", fmt.Errorf("%w: response has no ip field", ErrProtocol)
	}
	return payload.IP, nil
}

func isChunked(head []byte) bool {
	for _, line := range strings.Split(string(head), "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "Transfer-Encoding") &&
			strings.Contains(strings.ToLower(value), "chunked") {
			return true
		}
	}
	return false
}

// BasicAuth builds a Proxy-Authorization value
func BasicAuth(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// bufferedConn replays bytes the CONNECT reader consumed past the header
type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}
