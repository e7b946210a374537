// Package chat provides the ChatService implementation for group-scoped
// messaging.
package chat

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	studyhub "github.com/studyhub/studyhub-go"
	"github.com/studyhub/studyhub-go/querycache"
)

// KindMessages is the cache key kind for message history.
const KindMessages = "messages"

// Backend defines the contract for pluggable chat backends.
type Backend interface {
	// Messages returns a group's chat history, newest last.
	Messages(ctx context.Context, groupID string, opts studyhub.ListOptions) ([]studyhub.Message, error)

	// Send posts a message. The message carries GroupID, ClientID, and
	// Body; the backend fills in the rest.
	Send(ctx context.Context, message studyhub.Message) (*studyhub.Message, error)

	// Delete removes a message.
	Delete(ctx context.Context, messageID string) error
}

// Service implements studyhub.ChatService with a configurable backend.
type Service struct {
	backend Backend
	cache   *querycache.Cache
}

var _ studyhub.ChatService = (*Service)(nil)

// New creates a ChatService with the given backend and cache.
func New(backend Backend, cache *querycache.Cache) *Service {
	return &Service{backend: backend, cache: cache}
}

// historyParam folds the group and page into a cache key parameter.
func historyParam(groupID string, opts studyhub.ListOptions) string {
	if opts.Page <= 1 {
		return groupID
	}
	return groupID + "@" + strconv.Itoa(opts.Page)
}

// Messages returns a group's chat history, newest last.
func (s *Service) Messages(ctx context.Context, groupID string, opts studyhub.ListOptions) ([]studyhub.Message, error) {
	if groupID == "" {
		return nil, fmt.Errorf("studyhub/chat: groupID cannot be empty")
	}

	key := querycache.Key{Kind: KindMessages, Param: historyParam(groupID, opts)}
	messages, _, err := querycache.Typed(ctx, s.cache, key, func(ctx context.Context) ([]studyhub.Message, error) {
		return s.backend.Messages(ctx, groupID, opts)
	}, querycache.Options{})
	if err != nil {
		return nil, fmt.Errorf("studyhub/chat: %w", err)
	}
	return messages, nil
}

// Send posts a message to a group's chat. A client-generated ID is attached
// so a retried send can be recognised by the backend instead of producing a
// duplicate.
func (s *Service) Send(ctx context.Context, groupID, body string) (*studyhub.Message, error) {
	if groupID == "" {
		return nil, fmt.Errorf("studyhub/chat: groupID cannot be empty")
	}
	if body == "" {
		return nil, fmt.Errorf("studyhub/chat: body cannot be empty")
	}

	sent, err := s.backend.Send(ctx, studyhub.Message{
		GroupID:  groupID,
		ClientID: uuid.NewString(),
		Body:     body,
	})
	if err != nil {
		return nil, fmt.Errorf("studyhub/chat: %w", err)
	}
	s.cache.InvalidateKind(KindMessages)
	return sent, nil
}

// Delete removes a message.
func (s *Service) Delete(ctx context.Context, messageID string) error {
	if messageID == "" {
		return fmt.Errorf("studyhub/chat: messageID cannot be empty")
	}

	if err := s.backend.Delete(ctx, messageID); err != nil {
		return fmt.Errorf("studyhub/chat: %w", err)
	}
	s.cache.InvalidateKind(KindMessages)
	return nil
}
