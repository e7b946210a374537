package auth

import (
	"encoding/json"
	"fmt"
	"sync"

	studyhub "github.com/studyhub/studyhub-go"
	"github.com/studyhub/studyhub-go/store"
)

// Storage keys. Nothing outside this file reads or writes them.
const (
	keyAccessToken  = "accessToken"
	keyRefreshToken = "refreshToken"
	keyUser         = "user"
)

// State is the single owner of the credential pair and the cached user
// profile. All session reads and writes go through it; the rest of the SDK
// never touches the underlying store.
type State struct {
	mu      sync.RWMutex
	store   store.Store
	access  string
	refresh string
	user    *studyhub.User
}

// compile-time check
var _ interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(access, refresh string) error
	Clear() error
} = (*State)(nil)

// NewState creates session state backed by st, loading any persisted
// credentials and profile.
func NewState(st store.Store) *State {
	s := &State{store: st}
	s.access, _ = st.Get(keyAccessToken)
	s.refresh, _ = st.Get(keyRefreshToken)
	if raw, ok := st.Get(keyUser); ok {
		var u studyhub.User
		if json.Unmarshal([]byte(raw), &u) == nil {
			s.user = &u
		}
	}
	return s
}

// AccessToken returns the current access credential, or "".
func (s *State) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// RefreshToken returns the current refresh credential, or "".
func (s *State) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// SetTokens stores a new access credential; an empty refresh keeps the
// existing one.
func (s *State) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = access
	if err := s.store.Set(keyAccessToken, access); err != nil {
		return fmt.Errorf("auth: persist access token: %w", err)
	}
	if refresh != "" {
		s.refresh = refresh
		if err := s.store.Set(keyRefreshToken, refresh); err != nil {
			return fmt.Errorf("auth: persist refresh token: %w", err)
		}
	}
	return nil
}

// SetSession stores a full credential pair and profile, as after login.
func (s *State) SetSession(creds studyhub.Credentials, user *studyhub.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access = creds.Access
	s.refresh = creds.Refresh
	s.user = user

	if err := s.store.Set(keyAccessToken, creds.Access); err != nil {
		return fmt.Errorf("auth: persist access token: %w", err)
	}
	if err := s.store.Set(keyRefreshToken, creds.Refresh); err != nil {
		return fmt.Errorf("auth: persist refresh token: %w", err)
	}
	return s.persistUserLocked(user)
}

// SetUser replaces the cached profile snapshot.
func (s *State) SetUser(user *studyhub.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	return s.persistUserLocked(user)
}

// User returns a copy of the cached profile, or nil when logged out.
func (s *State) User() *studyhub.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Clear destroys the credential pair and profile, in memory and on disk.
func (s *State) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.access, s.refresh, s.user = "", "", nil

	var firstErr error
	for _, key := range []string{keyAccessToken, keyRefreshToken, keyUser} {
		if err := s.store.Delete(key); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("auth: clear %s: %w", key, err)
		}
	}
	return firstErr
}

// persistUserLocked writes the profile snapshot. Caller must hold s.mu.
func (s *State) persistUserLocked(user *studyhub.User) error {
	if user == nil {
		if err := s.store.Delete(keyUser); err != nil {
			return fmt.Errorf("auth: clear profile: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("auth: encode profile: %w", err)
	}
	if err := s.store.Set(keyUser, string(data)); err != nil {
		return fmt.Errorf("auth: persist profile: %w", err)
	}
	return nil
}
