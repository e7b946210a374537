// Package auth establishes, persists, and tears down the credential pair
// and user profile.
//
// State owns the persisted session; Manager implements the lifecycle
// operations (login, signup, logout, restore) on top of the transport
// client. Session transitions are broadcast through OnChange so
// route-guarding code can react synchronously.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	studyhub "github.com/studyhub/studyhub-go"
	"github.com/studyhub/studyhub-go/metrics"
	"github.com/studyhub/studyhub-go/transport"
	"github.com/studyhub/studyhub-go/wire"
)

// Endpoint paths, relative to the configured base URL.
const (
	loginPath           = "/api/auth/login/"
	registerPath        = "/api/auth/register/"
	logoutPath          = "/api/auth/logout/"
	logoutAllPath       = "/api/auth/logout-all/"
	profilePath         = "/api/auth/profile/"
	passwordResetPath   = "/api/auth/password-reset/"
	passwordConfirmPath = "/api/auth/password-reset/confirm/"
)

// Manager implements studyhub.AuthService against the REST backend.
type Manager struct {
	state   *State
	client  *transport.Client
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu          sync.Mutex
	subscribers []func(*studyhub.User)
}

// compile-time check
var _ studyhub.AuthService = (*Manager)(nil)

// Option configures the Manager.
type Option func(*Manager)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

// New creates a session lifecycle manager.
func New(state *State, client *transport.Client, opts ...Option) *Manager {
	m := &Manager{
		state:   state,
		client:  client,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: metrics.New(false),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// sessionPayload is the backend's login/signup response.
type sessionPayload struct {
	Access  string            `json:"access"`
	Refresh string            `json:"refresh"`
	User    *wire.UserPayload `json:"user"`
}

// Login exchanges an email/password pair for a session. Prior session state
// is left untouched when the backend rejects the pair.
func (m *Manager) Login(ctx context.Context, email, password string) (*studyhub.Session, error) {
	if email == "" || password == "" {
		return nil, studyhub.ErrInvalidCredentials
	}

	var out sessionPayload
	err := m.client.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   loginPath,
		Body:   map[string]string{"email": email, "password": password},
		Out:    &out,
		NoAuth: true,
	})
	if err != nil {
		if isRejection(err) {
			m.metrics.RecordAuthFailure("login", "invalid_credentials")
			return nil, fmt.Errorf("auth: login rejected: %w", studyhub.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("auth: login: %w", err)
	}

	return m.establish(out)
}

// Signup registers a new account and logs it in. Backend validation
// failures surface as *studyhub.ValidationError with per-field messages.
func (m *Manager) Signup(ctx context.Context, reg studyhub.Registration) (*studyhub.Session, error) {
	var out sessionPayload
	err := m.client.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   registerPath,
		Body: map[string]string{
			"email":     reg.Email,
			"password":  reg.Password,
			"full_name": reg.Name,
		},
		Out:    &out,
		NoAuth: true,
	})
	if err != nil {
		var ve *studyhub.ValidationError
		if errors.As(err, &ve) {
			m.metrics.RecordAuthFailure("signup", "validation")
			return nil, ve
		}
		return nil, fmt.Errorf("auth: signup: %w", err)
	}

	return m.establish(out)
}

// establish stores the credential pair and profile and notifies
// subscribers.
func (m *Manager) establish(payload sessionPayload) (*studyhub.Session, error) {
	if payload.Access == "" || payload.User == nil {
		return nil, fmt.Errorf("auth: malformed session response")
	}

	user := payload.User.User()
	creds := studyhub.Credentials{Access: payload.Access, Refresh: payload.Refresh}
	if err := m.state.SetSession(creds, user); err != nil {
		return nil, err
	}

	m.logger.Debug("session established", "user", user.ID)
	m.notify(user)
	return &studyhub.Session{User: user, Credentials: creds}, nil
}

// Logout tears down the session. The backend notification is best-effort:
// local state is cleared no matter what, so the client never believes it is
// still authenticated after logout.
func (m *Manager) Logout(ctx context.Context, allDevices bool) error {
	path := logoutPath
	if allDevices {
		path = logoutAllPath
	}

	if refresh := m.state.RefreshToken(); refresh != "" {
		err := m.client.Do(ctx, transport.Request{
			Method: http.MethodPost,
			Path:   path,
			Body:   map[string]string{"refresh": refresh},
		})
		if err != nil {
			m.logger.Debug("logout notification failed", "error", err)
		}
	}

	err := m.state.Clear()
	m.notify(nil)
	return err
}

// Restore re-establishes a persisted session at application start. A
// persisted profile is trusted optimistically without a network call;
// otherwise a silent refresh is attempted with any persisted refresh
// credential. Ending up logged out is not an error.
func (m *Manager) Restore(ctx context.Context) error {
	if user := m.state.User(); user != nil {
		m.notify(user)
		return nil
	}

	if m.state.RefreshToken() == "" {
		return nil
	}

	// A persisted access token that has not expired yet spares the refresh
	// round trip.
	if tokenExpired(m.state.AccessToken()) {
		if err := m.client.Refresh(ctx); err != nil {
			m.logger.Debug("silent refresh failed", "error", err)
			return nil
		}
	}

	var out wire.UserPayload
	err := m.client.Do(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   profilePath,
		Out:    &out,
	})
	if err != nil {
		m.logger.Debug("session restore failed", "error", err)
		if !errors.Is(err, studyhub.ErrAuthExpired) {
			// Expiry already tore the state down; anything else we clear
			// ourselves so the app starts logged out, not half-restored.
			_ = m.state.Clear()
		}
		return nil
	}

	user := out.User()
	if err := m.state.SetUser(user); err != nil {
		return err
	}
	m.notify(user)
	return nil
}

// CurrentUser returns the authenticated identity, or nil when logged out.
func (m *Manager) CurrentUser() *studyhub.User {
	return m.state.User()
}

// OnChange registers a callback invoked on every session transition with
// the new current user (nil after logout or expiry teardown).
func (m *Manager) OnChange(fn func(*studyhub.User)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// UpdateProfile mutates the profile and refreshes the stored snapshot.
func (m *Manager) UpdateProfile(ctx context.Context, update studyhub.ProfileUpdate) (*studyhub.User, error) {
	body := map[string]string{}
	if update.Name != nil {
		body["full_name"] = *update.Name
	}
	if update.AvatarURL != nil {
		body["avatar_url"] = *update.AvatarURL
	}
	if update.Bio != nil {
		body["bio"] = *update.Bio
	}
	if len(body) == 0 {
		return m.CurrentUser(), nil
	}

	var out wire.UserPayload
	err := m.client.Do(ctx, transport.Request{
		Method: http.MethodPatch,
		Path:   profilePath,
		Body:   body,
		Out:    &out,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: update profile: %w", err)
	}

	user := out.User()
	if err := m.state.SetUser(user); err != nil {
		return nil, err
	}
	m.notify(user)
	return user, nil
}

// RequestPasswordReset asks the backend to email a reset token.
func (m *Manager) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return &studyhub.ValidationError{Fields: map[string][]string{"email": {"email is required"}}}
	}
	err := m.client.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   passwordResetPath,
		Body:   map[string]string{"email": email},
		NoAuth: true,
	})
	if err != nil {
		return fmt.Errorf("auth: request password reset: %w", err)
	}
	return nil
}

// ConfirmPasswordReset exchanges a reset token for a new password.
func (m *Manager) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	err := m.client.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   passwordConfirmPath,
		Body:   map[string]string{"token": token, "password": newPassword},
		NoAuth: true,
	})
	if err != nil {
		return fmt.Errorf("auth: confirm password reset: %w", err)
	}
	return nil
}

func (m *Manager) notify(user *studyhub.User) {
	m.mu.Lock()
	subscribers := make([]func(*studyhub.User), len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.Unlock()

	for _, fn := range subscribers {
		fn(user)
	}
}

// isRejection reports whether err is the backend refusing the credentials
// rather than a transport or server failure.
func isRejection(err error) bool {
	var ve *studyhub.ValidationError
	if errors.As(err, &ve) {
		return true
	}
	var he *studyhub.HTTPError
	if errors.As(err, &he) {
		return he.StatusCode == http.StatusBadRequest || he.StatusCode == http.StatusUnauthorized
	}
	return false
}

// tokenExpired reports whether the JWT's exp claim is in the past. The
// signature is not checked; the backend remains the authority, this only
// avoids sending a token that is certainly dead.
func tokenExpired(token string) bool {
	if token == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return exp.Before(time.Now())
}
