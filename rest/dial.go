package rest

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	studyhub "github.com/studyhub/studyhub-go"
	"github.com/studyhub/studyhub-go/auth"
	"github.com/studyhub/studyhub-go/chat"
	"github.com/studyhub/studyhub-go/groups"
	"github.com/studyhub/studyhub-go/metrics"
	"github.com/studyhub/studyhub-go/querycache"
	"github.com/studyhub/studyhub-go/resources"
	"github.com/studyhub/studyhub-go/sessions"
	"github.com/studyhub/studyhub-go/store"
	"github.com/studyhub/studyhub-go/transport"
)

// dialConfig collects the wiring-level knobs that Dial accepts on top of
// studyhub.Config.
type dialConfig struct {
	logger        *slog.Logger
	httpClient    *http.Client
	store         store.Store
	onAuthExpired func()
}

// DialOption configures Dial.
type DialOption func(*dialConfig)

// WithLogger sets a structured logger for every wired component.
func WithLogger(l *slog.Logger) DialOption {
	return func(d *dialConfig) { d.logger = l }
}

// WithHTTPClient overrides the HTTP client used by the transport.
func WithHTTPClient(c *http.Client) DialOption {
	return func(d *dialConfig) { d.httpClient = c }
}

// WithStore overrides session persistence. Takes precedence over
// Config.StatePath.
func WithStore(s store.Store) DialOption {
	return func(d *dialConfig) { d.store = s }
}

// WithOnAuthExpired registers a hook invoked when a failed token refresh
// tears the session down, typically to route the UI to a login screen.
func WithOnAuthExpired(fn func()) DialOption {
	return func(d *dialConfig) { d.onAuthExpired = fn }
}

// Dial wires the full HTTP stack — persisted session state, authenticated
// transport, query cache, and every service — into a ready studyhub.Client.
func Dial(cfg studyhub.Config, opts ...DialOption) (*studyhub.Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rest: BaseURL is required")
	}

	d := dialConfig{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, o := range opts {
		o(&d)
	}

	st := d.store
	if st == nil {
		if cfg.StatePath != "" {
			fs, err := store.OpenFile(cfg.StatePath)
			if err != nil {
				return nil, fmt.Errorf("rest: opening state file: %w", err)
			}
			st = fs
		} else {
			st = store.NewMemory()
		}
	}

	m := metrics.New(cfg.EnableMetrics)
	state := auth.NewState(st)

	tcOpts := []transport.Option{
		transport.WithLogger(d.logger),
		transport.WithMetrics(m),
	}
	if d.httpClient != nil {
		tcOpts = append(tcOpts, transport.WithHTTPClient(d.httpClient))
	} else if cfg.HTTPTimeout > 0 {
		tcOpts = append(tcOpts, transport.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
	}
	if d.onAuthExpired != nil {
		tcOpts = append(tcOpts, transport.WithOnAuthExpired(d.onAuthExpired))
	}
	tc, err := transport.New(cfg.BaseURL, state, tcOpts...)
	if err != nil {
		return nil, err
	}

	cache := querycache.New(cfg.CacheTTL,
		querycache.WithLogger(d.logger),
		querycache.WithMetrics(m),
	)
	manager := auth.New(state, tc,
		auth.WithLogger(d.logger),
		auth.WithMetrics(m),
	)
	backend := New(tc)

	return studyhub.NewClient(cfg,
		studyhub.WithLogger(d.logger),
		studyhub.WithAuthService(manager),
		studyhub.WithGroupService(groups.New(backend.Groups(), cache)),
		studyhub.WithSessionService(sessions.New(backend.Sessions(), cache)),
		studyhub.WithResourceService(resources.New(backend.Resources(), cache)),
		studyhub.WithChatService(chat.New(backend.Chat(), cache)),
	)
}
