// Package studyhub provides a Go client SDK for the StudyHub collaboration
// backend: study groups, scheduled sessions, shared resources, and group
// chat behind an authenticated, caching HTTP client.
//
// The root package defines the domain types and service interfaces.
// Concrete implementations are injected via Option functions, so the SDK
// stays independent of any particular backend; the rest package wires the
// full HTTP stack:
//
//	client, err := rest.Dial(studyhub.Config{
//	    BaseURL:   "https://api.studyhub.example.com",
//	    StatePath: filepath.Join(home, ".studyhub", "session.json"),
//	})
package studyhub

import (
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Client is the main entry point for StudyHub operations.
// Service implementations are injected via Option functions.
type Client struct {
	config    Config
	logger    *slog.Logger
	auth      AuthService
	groups    GroupService
	sessions  SessionService
	resources ResourceService
	chat      ChatService
}

// Config holds connection and behavior configuration.
type Config struct {
	// BaseURL is the address of the StudyHub backend.
	// Example: "https://api.studyhub.example.com"
	BaseURL string

	// StatePath is the file used to persist the session (token pair and
	// profile snapshot) across restarts. Empty keeps state in memory only.
	StatePath string

	// CacheTTL controls how long query results are served without
	// revalidation. Default: 5 minutes.
	CacheTTL time.Duration

	// HTTPTimeout bounds each backend request. Default: 10 seconds.
	HTTPTimeout time.Duration

	// EnableMetrics turns on Prometheus instrumentation for requests,
	// token refreshes, and the query cache.
	EnableMetrics bool
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithAuthService sets the session lifecycle implementation.
func WithAuthService(a AuthService) Option {
	return func(c *Client) { c.auth = a }
}

// WithGroupService sets the study-group implementation.
func WithGroupService(g GroupService) Option {
	return func(c *Client) { c.groups = g }
}

// WithSessionService sets the study-session implementation.
func WithSessionService(s SessionService) Option {
	return func(c *Client) { c.sessions = s }
}

// WithResourceService sets the shared-resource implementation.
func WithResourceService(r ResourceService) Option {
	return func(c *Client) { c.resources = r }
}

// WithChatService sets the group-chat implementation.
func WithChatService(ch ChatService) Option {
	return func(c *Client) { c.chat = ch }
}

// DefaultCacheTTL is the default freshness window for cached query results.
const DefaultCacheTTL = 5 * time.Minute

// DefaultHTTPTimeout is the default per-request deadline.
const DefaultHTTPTimeout = 10 * time.Second

// NewClient creates a new StudyHub client with the given configuration and
// options. At least one service must be injected.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}

	c := &Client{config: cfg, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, o := range opts {
		o(c)
	}

	if c.auth == nil && c.groups == nil && c.sessions == nil &&
		c.resources == nil && c.chat == nil {
		return nil, fmt.Errorf("studyhub: no services configured")
	}
	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config { return c.config }

// Auth returns the session lifecycle service, or nil if not configured.
func (c *Client) Auth() AuthService { return c.auth }

// Groups returns the study-group service, or nil if not configured.
func (c *Client) Groups() GroupService { return c.groups }

// Sessions returns the study-session service, or nil if not configured.
func (c *Client) Sessions() SessionService { return c.sessions }

// Resources returns the shared-resource service, or nil if not configured.
func (c *Client) Resources() ResourceService { return c.resources }

// Chat returns the group-chat service, or nil if not configured.
func (c *Client) Chat() ChatService { return c.chat }

// Close releases all resources held by the client.
// Any injected service that implements io.Closer will be closed.
func (c *Client) Close() error {
	closers := []interface{}{
		c.auth, c.groups, c.sessions, c.resources, c.chat,
	}
	var firstErr error
	for _, svc := range closers {
		if cl, ok := svc.(io.Closer); ok && cl != nil {
			if err := cl.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
