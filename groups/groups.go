// Package groups provides the GroupService implementation.
package groups

import (
	"context"
	"fmt"

	studyhub "github.com/studyhub/studyhub-go"
	"github.com/studyhub/studyhub-go/querycache"
)

// Cache key kinds owned by this service.
const (
	KindList    = "groups"
	KindDetail  = "group"
	KindMembers = "members"
)

// Backend defines the contract for pluggable group backends (REST, fake).
type Backend interface {
	// List returns the groups visible to the current user.
	List(ctx context.Context) ([]studyhub.Group, error)

	// Get returns a group by ID, or nil if it does not exist.
	Get(ctx context.Context, groupID string) (*studyhub.Group, error)

	// Create makes a new group.
	Create(ctx context.Context, group studyhub.Group) (*studyhub.Group, error)

	// Update mutates a group's fields.
	Update(ctx context.Context, group studyhub.Group) (*studyhub.Group, error)

	// Delete removes a group.
	Delete(ctx context.Context, groupID string) error

	// Join adds the current user to a group.
	Join(ctx context.Context, groupID string) error

	// Leave removes the current user from a group.
	Leave(ctx context.Context, groupID string) error

	// Members returns a group's membership.
	Members(ctx context.Context, groupID string) ([]studyhub.Member, error)
}

// Service implements studyhub.GroupService with a configurable backend.
// Reads go through the shared query cache; mutations invalidate the keys
// they make stale.
type Service struct {
	backend Backend
	cache   *querycache.Cache
}

var _ studyhub.GroupService = (*Service)(nil)

// New creates a GroupService with the given backend and cache.
func New(backend Backend, cache *querycache.Cache) *Service {
	return &Service{backend: backend, cache: cache}
}

// List returns the groups visible to the current user.
func (s *Service) List(ctx context.Context) ([]studyhub.Group, error) {
	groups, _, err := querycache.Typed(ctx, s.cache, querycache.Key{Kind: KindList}, s.backend.List, querycache.Options{})
	if err != nil {
		return nil, fmt.Errorf("studyhub/groups: %w", err)
	}
	return groups, nil
}

// Get returns a group by ID, or nil if it does not exist.
func (s *Service) Get(ctx context.Context, groupID string) (*studyhub.Group, error) {
	if groupID == "" {
		return nil, fmt.Errorf("studyhub/groups: groupID cannot be empty")
	}

	key := querycache.Key{Kind: KindDetail, Param: groupID}
	group, _, err := querycache.Typed(ctx, s.cache, key, func(ctx context.Context) (*studyhub.Group, error) {
		return s.backend.Get(ctx, groupID)
	}, querycache.Options{})
	if err != nil {
		return nil, fmt.Errorf("studyhub/groups: %w", err)
	}
	return group, nil
}

// Create makes a new group owned by the current user.
func (s *Service) Create(ctx context.Context, group studyhub.Group) (*studyhub.Group, error) {
	if group.Name == "" {
		return nil, fmt.Errorf("studyhub/groups: name cannot be empty")
	}

	created, err := s.backend.Create(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("studyhub/groups: %w", err)
	}
	s.cache.Invalidate(querycache.Key{Kind: KindList})
	return created, nil
}

// Update mutates a group's fields.
func (s *Service) Update(ctx context.Context, group studyhub.Group) (*studyhub.Group, error) {
	if group.ID == "" {
		return nil, fmt.Errorf("studyhub/groups: groupID cannot be empty")
	}

	updated, err := s.backend.Update(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("studyhub/groups: %w", err)
	}
	s.cache.Invalidate(querycache.Key{Kind: KindList})
	s.cache.Invalidate(querycache.Key{Kind: KindDetail, Param: group.ID})
	return updated, nil
}

// Delete removes a group.
func (s *Service) Delete(ctx context.Context, groupID string) error {
	if groupID == "" {
		return fmt.Errorf("studyhub/groups: groupID cannot be empty")
	}

	if err := s.backend.Delete(ctx, groupID); err != nil {
		return fmt.Errorf("studyhub/groups: %w", err)
	}
	s.cache.Invalidate(querycache.Key{Kind: KindList})
	s.cache.Invalidate(querycache.Key{Kind: KindDetail, Param: groupID})
	s.cache.Invalidate(querycache.Key{Kind: KindMembers, Param: groupID})
	return nil
}

// Join adds the current user to a group.
func (s *Service) Join(ctx context.Context, groupID string) error {
	if groupID == "" {
		return fmt.Errorf("studyhub/groups: groupID cannot be empty")
	}

	if err := s.backend.Join(ctx, groupID); err != nil {
		return fmt.Errorf("studyhub/groups: %w", err)
	}
	s.cache.Invalidate(querycache.Key{Kind: KindList})
	s.cache.Invalidate(querycache.Key{Kind: KindDetail, Param: groupID})
	s.cache.Invalidate(querycache.Key{Kind: KindMembers, Param: groupID})
	return nil
}

// Leave removes the current user from a group.
func (s *Service) Leave(ctx context.Context, groupID string) error {
	if groupID == "" {
		return fmt.Errorf("studyhub/groups: groupID cannot be empty")
	}

	if err := s.backend.Leave(ctx, groupID); err != nil {
		return fmt.Errorf("studyhub/groups: %w", err)
	}
	s.cache.Invalidate(querycache.Key{Kind: KindList})
	s.cache.Invalidate(querycache.Key{Kind: KindDetail, Param: groupID})
	s.cache.Invalidate(querycache.Key{Kind: KindMembers, Param: groupID})
	return nil
}

// Members returns a group's membership.
func (s *Service) Members(ctx context.Context, groupID string) ([]studyhub.Member, error) {
	if groupID == "" {
		return nil, fmt.Errorf("studyhub/groups: groupID cannot be empty")
	}

	key := querycache.Key{Kind: KindMembers, Param: groupID}
	members, _, err := querycache.Typed(ctx, s.cache, key, func(ctx context.Context) ([]studyhub.Member, error) {
		return s.backend.Members(ctx, groupID)
	}, querycache.Options{})
	if err != nil {
		return nil, fmt.Errorf("studyhub/groups: %w", err)
	}
	return members, nil
}
