// Package sessions provides the SessionService implementation for
// scheduled study sessions.
package sessions

import (
	"context"
	"fmt"

	studyhub "github.com/studyhub/studyhub-go"
	"github.com/studyhub/studyhub-go/querycache"
)

// Cache key kinds owned by this service.
const (
	KindList   = "sessions"
	KindDetail = "session"
)

// Backend defines the contract for pluggable study-session backends.
type Backend interface {
	// List returns study sessions matching the filter.
	List(ctx context.Context, filter studyhub.SessionFilter) ([]studyhub.StudySession, error)

	// Get returns a study session by ID, or nil if it does not exist.
	Get(ctx context.Context, sessionID string) (*studyhub.StudySession, error)

	// Schedule creates a study session.
	Schedule(ctx context.Context, session studyhub.StudySession) (*studyhub.StudySession, error)

	// Update mutates a study session.
	Update(ctx context.Context, session studyhub.StudySession) (*studyhub.StudySession, error)

	// Cancel removes a study session.
	Cancel(ctx context.Context, sessionID string) error

	// Join marks the current user as attending.
	Join(ctx context.Context, sessionID string) error

	// Leave withdraws the current user's attendance.
	Leave(ctx context.Context, sessionID string) error
}

// Service implements studyhub.SessionService with a configurable backend.
type Service struct {
	backend Backend
	cache   *querycache.Cache
}

var _ studyhub.SessionService = (*Service)(nil)

// New creates a SessionService with the given backend and cache.
func New(backend Backend, cache *querycache.Cache) *Service {
	return &Service{backend: backend, cache: cache}
}

// listParam folds a filter into a cache key parameter so that differently
// filtered listings occupy distinct slots.
func listParam(filter studyhub.SessionFilter) string {
	param := filter.GroupID
	if filter.Upcoming {
		param += "|upcoming"
	}
	return param
}

// List returns study sessions matching the filter.
func (s *Service) List(ctx context.Context, filter studyhub.SessionFilter) ([]studyhub.StudySession, error) {
	key := querycache.Key{Kind: KindList, Param: listParam(filter)}
	sessions, _, err := querycache.Typed(ctx, s.cache, key, func(ctx context.Context) ([]studyhub.StudySession, error) {
		return s.backend.List(ctx, filter)
	}, querycache.Options{})
	if err != nil {
		return nil, fmt.Errorf("studyhub/sessions: %w", err)
	}
	return sessions, nil
}

// Get returns a study session by ID, or nil if it does not exist.
func (s *Service) Get(ctx context.Context, sessionID string) (*studyhub.StudySession, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("studyhub/sessions: sessionID cannot be empty")
	}

	key := querycache.Key{Kind: KindDetail, Param: sessionID}
	session, _, err := querycache.Typed(ctx, s.cache, key, func(ctx context.Context) (*studyhub.StudySession, error) {
		return s.backend.Get(ctx, sessionID)
	}, querycache.Options{})
	if err != nil {
		return nil, fmt.Errorf("studyhub/sessions: %w", err)
	}
	return session, nil
}

// Schedule creates a study session in a group.
func (s *Service) Schedule(ctx context.Context, session studyhub.StudySession) (*studyhub.StudySession, error) {
	if session.GroupID == "" {
		return nil, fmt.Errorf("studyhub/sessions: groupID cannot be empty")
	}
	if session.Title == "" {
		return nil, fmt.Errorf("studyhub/sessions: title cannot be empty")
	}

	created, err := s.backend.Schedule(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("studyhub/sessions: %w", err)
	}
	s.cache.InvalidateKind(KindList)
	return created, nil
}

// Update mutates a study session.
func (s *Service) Update(ctx context.Context, session studyhub.StudySession) (*studyhub.StudySession, error) {
	if session.ID == "" {
		return nil, fmt.Errorf("studyhub/sessions: sessionID cannot be empty")
	}

	updated, err := s.backend.Update(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("studyhub/sessions: %w", err)
	}
	s.cache.InvalidateKind(KindList)
	s.cache.Invalidate(querycache.Key{Kind: KindDetail, Param: session.ID})
	return updated, nil
}

// Cancel removes a study session.
func (s *Service) Cancel(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("studyhub/sessions: sessionID cannot be empty")
	}

	if err := s.backend.Cancel(ctx, sessionID); err != nil {
		return fmt.Errorf("studyhub/sessions: %w", err)
	}
	s.cache.InvalidateKind(KindList)
	s.cache.Invalidate(querycache.Key{Kind: KindDetail, Param: sessionID})
	return nil
}

// Join marks the current user as attending.
func (s *Service) Join(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("studyhub/sessions: sessionID cannot be empty")
	}

	if err := s.backend.Join(ctx, sessionID); err != nil {
		return fmt.Errorf("studyhub/sessions: %w", err)
	}
	s.cache.InvalidateKind(KindList)
	s.cache.Invalidate(querycache.Key{Kind: KindDetail, Param: sessionID})
	return nil
}

// Leave withdraws the current user's attendance.
func (s *Service) Leave(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("studyhub/sessions: sessionID cannot be empty")
	}

	if err := s.backend.Leave(ctx, sessionID); err != nil {
		return fmt.Errorf("studyhub/sessions: %w", err)
	}
	s.cache.InvalidateKind(KindList)
	s.cache.Invalidate(querycache.Key{Kind: KindDetail, Param: sessionID})
	return nil
}
