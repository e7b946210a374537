// Package transport performs authenticated HTTP calls to the StudyHub
// backend.
//
// Every request carries the current access credential as a bearer token. On
// a 401 the client exchanges the refresh credential for a new access
// credential and replays the original request exactly once; concurrent 401s
// share a single refresh exchange. A failed exchange tears the session down
// and surfaces studyhub.ErrAuthExpired.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	studyhub "github.com/studyhub/studyhub-go"
	"github.com/studyhub/studyhub-go/metrics"
	"github.com/studyhub/studyhub-go/wire"
)

// TokenSource is the transport's view of session state. The auth package
// owns the only real implementation; the transport never touches the
// underlying store directly.
type TokenSource interface {
	// AccessToken returns the current access credential, or "".
	AccessToken() string

	// RefreshToken returns the current refresh credential, or "".
	RefreshToken() string

	// SetTokens stores a new access credential. An empty refresh keeps the
	// existing one (the backend only rotates it sometimes).
	SetTokens(access, refresh string) error

	// Clear destroys the credential pair and the cached profile.
	Clear() error
}

// DefaultRefreshPath is the endpoint the refresh credential is exchanged at.
const DefaultRefreshPath = "/api/auth/refresh/"

// Client performs HTTP round trips with credential attachment and one-shot
// recovery from credential expiry.
type Client struct {
	baseURL       *url.URL
	httpClient    *http.Client
	tokens        TokenSource
	logger        *slog.Logger
	metrics       *metrics.Metrics
	refreshPath   string
	onAuthExpired func()

	sf singleflight.Group
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Client) { t.httpClient = c }
}

// WithLogger sets a structured logger. Requests are logged at Debug.
func WithLogger(l *slog.Logger) Option {
	return func(t *Client) { t.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Client) { t.metrics = m }
}

// WithRefreshPath overrides the refresh endpoint path.
func WithRefreshPath(path string) Option {
	return func(t *Client) { t.refreshPath = path }
}

// WithOnAuthExpired registers a hook fired after an unrecoverable refresh
// failure, once local state has been cleared. Consumers typically navigate
// to their login view here.
func WithOnAuthExpired(fn func()) Option {
	return func(t *Client) { t.onAuthExpired = fn }
}

// New creates a transport client for the given base URL.
func New(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("transport: baseURL is required")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse baseURL: %w", err)
	}

	c := &Client{
		baseURL:     u,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		tokens:      tokens,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics:     metrics.New(false),
		refreshPath: DefaultRefreshPath,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Form is a multipart request body. FileField defaults to "file".
type Form struct {
	Fields    map[string]string
	File      *studyhub.File
	FileField string
}

// Request describes one logical backend call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any   // JSON-encoded when non-nil
	Form   *Form // multipart form body; takes precedence over Body
	Out    any   // JSON-decode target for the response, may be nil
	NoAuth bool  // skip bearer attachment and 401 recovery (login, refresh)
}

// Do executes the request. A 401 on an authenticated request triggers one
// refresh-and-replay; a second 401 is surfaced, never retried again.
func (c *Client) Do(ctx context.Context, req Request) error {
	status, body, _, err := c.attempt(ctx, req)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && !req.NoAuth {
		if err := c.Refresh(ctx); err != nil {
			return err
		}
		status, body, _, err = c.attempt(ctx, req)
		if err != nil {
			return err
		}
	}

	if status < 200 || status > 299 {
		return translateStatus(status, body)
	}

	if req.Out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, req.Out); err != nil {
			return fmt.Errorf("transport: decode response: %w", err)
		}
	}
	return nil
}

// Download fetches path as an opaque binary payload, with the same
// one-shot 401 recovery as Do. By convention these paths contain a
// /download/ segment and are never JSON-decoded. Returns the payload and
// its content type.
func (c *Client) Download(ctx context.Context, path string) ([]byte, string, error) {
	req := Request{Method: http.MethodGet, Path: path}

	status, body, header, err := c.attempt(ctx, req)
	if err != nil {
		return nil, "", err
	}
	if status == http.StatusUnauthorized {
		if err := c.Refresh(ctx); err != nil {
			return nil, "", err
		}
		status, body, header, err = c.attempt(ctx, req)
		if err != nil {
			return nil, "", err
		}
	}
	if status < 200 || status > 299 {
		return nil, "", translateStatus(status, body)
	}
	return body, header.Get("Content-Type"), nil
}

// attempt performs a single HTTP round trip. The request body is rebuilt on
// every call so a replay after refresh starts from scratch.
func (c *Client) attempt(ctx context.Context, req Request) (int, []byte, http.Header, error) {
	httpReq, err := c.build(ctx, req)
	if err != nil {
		return 0, nil, nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordRequest(req.Method, "error", time.Since(start).Seconds())
		return 0, nil, nil, &studyhub.NetworkError{URL: httpReq.URL.String(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, &studyhub.NetworkError{URL: httpReq.URL.String(), Err: err}
	}

	c.metrics.RecordRequest(req.Method, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	c.logger.DebugContext(ctx, "backend request",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	return resp.StatusCode, body, resp.Header, nil
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	rel, err := url.Parse(req.Path)
	if err != nil {
		return nil, fmt.Errorf("transport: parse path %q: %w", req.Path, err)
	}
	u := c.baseURL.ResolveReference(rel)
	if req.Query != nil {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case req.Form != nil:
		buf, ct, err := encodeForm(req.Form)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("transport: encode request body: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("transport: create request: %w", err)
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	requestID := studyhub.RequestIDFromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set("X-Request-ID", requestID)

	if !req.NoAuth {
		if access := c.tokens.AccessToken(); access != "" {
			httpReq.Header.Set("Authorization", "Bearer "+access)
		}
	}
	return httpReq, nil
}

// Refresh exchanges the stored refresh credential for a new access
// credential. Concurrent callers share one exchange. A failure clears the
// session and fires the auth-expired hook before ErrAuthExpired is
// returned.
func (c *Client) Refresh(ctx context.Context) error {
	_, err, _ := c.sf.Do("refresh", func() (interface{}, error) {
		refresh := c.tokens.RefreshToken()
		if refresh == "" {
			return nil, fmt.Errorf("no refresh credential")
		}

		var out struct {
			Access  string `json:"access"`
			Refresh string `json:"refresh"`
		}
		err := c.Do(ctx, Request{
			Method: http.MethodPost,
			Path:   c.refreshPath,
			Body:   map[string]string{"refresh": refresh},
			Out:    &out,
			NoAuth: true,
		})
		if err != nil {
			return nil, err
		}
		if out.Access == "" {
			return nil, fmt.Errorf("refresh response missing access token")
		}
		if err := c.tokens.SetTokens(out.Access, out.Refresh); err != nil {
			return nil, err
		}
		return nil, nil
	})

	if err != nil {
		c.metrics.RecordRefresh("failure")
		c.logger.DebugContext(ctx, "token refresh failed", "error", err)
		_ = c.tokens.Clear()
		if c.onAuthExpired != nil {
			c.onAuthExpired()
		}
		return fmt.Errorf("transport: %v: %w", err, studyhub.ErrAuthExpired)
	}

	c.metrics.RecordRefresh("success")
	return nil
}

// translateStatus maps a non-2xx response to the SDK error taxonomy.
// Validation failures keep their per-field messages; everything else
// surfaces as *HTTPError.
func translateStatus(status int, body []byte) error {
	var payload wire.ErrorPayload
	_ = json.Unmarshal(body, &payload)

	if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
		if fields := payload.Fields(); fields != nil {
			return &studyhub.ValidationError{Message: payload.Detail(), Fields: fields}
		}
	}
	return &studyhub.HTTPError{StatusCode: status, Detail: payload.Detail()}
}

func encodeForm(form *Form) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for key, value := range form.Fields {
		if err := w.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("transport: encode form field %q: %w", key, err)
		}
	}

	if form.File != nil {
		field := form.FileField
		if field == "" {
			field = "file"
		}
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`,
			field, escapeQuotes(form.File.Name)))
		contentType := form.File.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)

		part, err := w.CreatePart(header)
		if err != nil {
			return nil, "", fmt.Errorf("transport: create file part: %w", err)
		}
		if _, err := part.Write(form.File.Content); err != nil {
			return nil, "", fmt.Errorf("transport: write file part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("transport: finalize form: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
