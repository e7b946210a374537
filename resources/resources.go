// Package resources provides the ResourceService implementation for shared
// files and links.
package resources

import (
	"context"
	"fmt"

	studyhub "github.com/studyhub/studyhub-go"
	"github.com/studyhub/studyhub-go/querycache"
)

// Cache key kinds owned by this service.
const (
	KindList   = "resources"
	KindDetail = "resource"
)

// Backend defines the contract for pluggable resource backends.
type Backend interface {
	// List returns resources, optionally scoped to a group.
	List(ctx context.Context, groupID string) ([]studyhub.Resource, error)

	// Get returns a resource by ID, or nil if it does not exist.
	Get(ctx context.Context, resourceID string) (*studyhub.Resource, error)

	// Upload creates a resource, with an optional file payload.
	Upload(ctx context.Context, resource studyhub.Resource, file *studyhub.File) (*studyhub.Resource, error)

	// Download fetches a resource's raw content and content type.
	Download(ctx context.Context, resourceID string) ([]byte, string, error)

	// Delete removes a resource.
	Delete(ctx context.Context, resourceID string) error
}

// Service implements studyhub.ResourceService with a configurable backend.
// Listings and detail reads are cached; downloads always go to the backend
// since their payloads are large and opaque.
type Service struct {
	backend Backend
	cache   *querycache.Cache
}

var _ studyhub.ResourceService = (*Service)(nil)

// New creates a ResourceService with the given backend and cache.
func New(backend Backend, cache *querycache.Cache) *Service {
	return &Service{backend: backend, cache: cache}
}

// List returns resources, optionally scoped to a group.
func (s *Service) List(ctx context.Context, groupID string) ([]studyhub.Resource, error) {
	key := querycache.Key{Kind: KindList, Param: groupID}
	resources, _, err := querycache.Typed(ctx, s.cache, key, func(ctx context.Context) ([]studyhub.Resource, error) {
		return s.backend.List(ctx, groupID)
	}, querycache.Options{})
	if err != nil {
		return nil, fmt.Errorf("studyhub/resources: %w", err)
	}
	return resources, nil
}

// Get returns a resource by ID, or nil if it does not exist.
func (s *Service) Get(ctx context.Context, resourceID string) (*studyhub.Resource, error) {
	if resourceID == "" {
		return nil, fmt.Errorf("studyhub/resources: resourceID cannot be empty")
	}

	key := querycache.Key{Kind: KindDetail, Param: resourceID}
	resource, _, err := querycache.Typed(ctx, s.cache, key, func(ctx context.Context) (*studyhub.Resource, error) {
		return s.backend.Get(ctx, resourceID)
	}, querycache.Options{})
	if err != nil {
		return nil, fmt.Errorf("studyhub/resources: %w", err)
	}
	return resource, nil
}

// Upload creates a resource. A nil file uploads metadata only (a link);
// otherwise the payload goes up as a multipart form.
func (s *Service) Upload(ctx context.Context, resource studyhub.Resource, file *studyhub.File) (*studyhub.Resource, error) {
	if resource.GroupID == "" {
		return nil, fmt.Errorf("studyhub/resources: groupID cannot be empty")
	}
	if resource.Title == "" {
		return nil, fmt.Errorf("studyhub/resources: title cannot be empty")
	}
	if file != nil && file.Name == "" {
		return nil, fmt.Errorf("studyhub/resources: file name cannot be empty")
	}

	created, err := s.backend.Upload(ctx, resource, file)
	if err != nil {
		return nil, fmt.Errorf("studyhub/resources: %w", err)
	}
	s.cache.Invalidate(querycache.Key{Kind: KindList, Param: resource.GroupID})
	s.cache.Invalidate(querycache.Key{Kind: KindList})
	return created, nil
}

// Download fetches a resource's raw content. The payload is returned
// opaque, never JSON-decoded.
func (s *Service) Download(ctx context.Context, resourceID string) ([]byte, string, error) {
	if resourceID == "" {
		return nil, "", fmt.Errorf("studyhub/resources: resourceID cannot be empty")
	}

	content, contentType, err := s.backend.Download(ctx, resourceID)
	if err != nil {
		return nil, "", fmt.Errorf("studyhub/resources: %w", err)
	}
	return content, contentType, nil
}

// Delete removes a resource. The group is not always known at the call
// site, so every listing of this kind is invalidated.
func (s *Service) Delete(ctx context.Context, resourceID string) error {
	if resourceID == "" {
		return fmt.Errorf("studyhub/resources: resourceID cannot be empty")
	}

	if err := s.backend.Delete(ctx, resourceID); err != nil {
		return fmt.Errorf("studyhub/resources: %w", err)
	}
	s.cache.InvalidateKind(KindList)
	s.cache.Invalidate(querycache.Key{Kind: KindDetail, Param: resourceID})
	return nil
}
