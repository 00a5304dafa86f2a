package services

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"feedlab/domain"
	"feedlab/errors"
	"feedlab/feed"
	"feedlab/moderation"
	"feedlab/search"
	"feedlab/session"
)

type IChatService interface {
	SendMessage(content string) (domain.Message, error)
	DeleteMessage(id uuid.UUID) error
	SubscribeToFeed() (*feed.Subscription, error)
	Unsubscribe(sub *feed.Subscription)
	Search(ctx context.Context, term string) ([]domain.Message, error)
}

// ChatService validates and authorizes user intent before delegating to
// the feed store. All checks fail fast without touching the store.
type ChatService struct {
	session   *session.State
	store     *feed.Store
	moderator *moderation.Moderator // nil disables masking
	index     *search.Index         // nil disables search
}

func NewChatService(sess *session.State, store *feed.Store,
	moderator *moderation.Moderator, index *search.Index) *ChatService {
	return &ChatService{session: sess, store: store, moderator: moderator, index: index}
}

func (s *ChatService) SendMessage(content string) (domain.Message, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return domain.Message{}, errors.ErrEmptyContent
	}
	current := s.session.Current()
	if current == nil {
		return domain.Message{}, errors.ErrNotAuthenticated
	}

	if s.moderator != nil {
		trimmed = s.moderator.Censor(trimmed)
	}

	// Storage failures from the store surface unchanged; retrying is
	// the caller's decision.
	return s.store.Append(current.Email, trimmed)
}

// DeleteMessage removes one of the caller's own messages. Deleting
// another user's message is forbidden regardless of input.
func (s *ChatService) DeleteMessage(id uuid.UUID) error {
	current := s.session.Current()
	if current == nil {
		return errors.ErrNotAuthenticated
	}

	message, ok := s.store.Get(id)
	if !ok {
		return errors.ErrMessageNotFound
	}
	if message.SenderID != current.Email {
		return errors.ErrForbidden
	}
	return s.store.Remove(id)
}

func (s *ChatService) SubscribeToFeed() (*feed.Subscription, error) {
	if s.session.Current() == nil {
		return nil, errors.ErrNotAuthenticated
	}
	return s.store.Subscribe(), nil
}

func (s *ChatService) Unsubscribe(sub *feed.Subscription) {
	s.store.Unsubscribe(sub)
}

// Search runs a full-text query over the index and resolves hits
// through the store, so removed messages never surface.
func (s *ChatService) Search(ctx context.Context, term string) ([]domain.Message, error) {
	if s.session.Current() == nil {
		return nil, errors.ErrNotAuthenticated
	}
	if s.index == nil || strings.TrimSpace(term) == "" {
		return nil, nil
	}

	ids, err := s.index.Query(ctx, term, 20)
	if err != nil {
		return nil, err
	}
	var results []domain.Message
	for _, id := range ids {
		if message, ok := s.store.Get(id); ok {
			results = append(results, message)
		}
	}
	return results, nil
}
