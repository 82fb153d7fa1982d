package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Trungnc273/ebay-be/internal/audit"
	"github.com/Trungnc273/ebay-be/internal/cache"
	"github.com/Trungnc273/ebay-be/internal/domain"
	"github.com/Trungnc273/ebay-be/internal/repository"
	"github.com/Trungnc273/ebay-be/pkg/log"
)

type conversationService struct {
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	users         repository.UserRepository
	cache         cache.MessageCache
	cacheTTL      time.Duration
	sf            singleflight.Group
}

func NewConversationService(
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	msgCache cache.MessageCache,
	cacheTTL time.Duration,
) ConversationService {
	return &conversationService{
		conversations: conversations,
		messages:      messages,
		users:         users,
		cache:         msgCache,
		cacheTTL:      cacheTTL,
	}
}

func (s *conversationService) List(ctx context.Context, userID string, page, limit int) ([]domain.ConversationView, int, error) {
	conversations, total, err := s.conversations.ListForParticipant(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	views, err := s.toViews(ctx, conversations)
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (s *conversationService) Get(ctx context.Context, id string) (*domain.ConversationView, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	views, err := s.toViews(ctx, []domain.Conversation{*conv})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// FindOrCreate looks up the conversation for a participant set, creating it
// when absent. The find-then-create window is racy: two concurrent creators
// with the same participant set can both create. Preserved deliberately;
// see DESIGN.md.
func (s *conversationService) FindOrCreate(ctx context.Context, participants []string) (*domain.ConversationView, bool, error) {
	existing, err := s.conversations.FindByParticipants(ctx, participants)
	if err == nil {
		views, verr := s.toViews(ctx, []domain.Conversation{*existing})
		if verr != nil {
			return nil, false, verr
		}
		return &views[0], false, nil
	}
	if !errors.Is(err, repository.ErrConversationNotFound) {
		return nil, false, err
	}

	created, err := s.conversations.Create(ctx, participants)
	if err != nil {
		return nil, false, err
	}

	audit.Log(ctx, audit.ActionCreateConv, "", created.ID, "conversation created")

	views, err := s.toViews(ctx, []domain.Conversation{*created})
	if err != nil {
		return nil, false, err
	}
	return &views[0], true, nil
}

func (s *conversationService) GetMessages(ctx context.Context, conversationID string, limit int, before *time.Time) ([]domain.Message, error) {
	// The latest page changes on every send; only cursor pages are cached.
	if before == nil || s.cache == nil {
		return s.messages.ListByConversation(ctx, conversationID, limit, before)
	}

	key := s.cache.BuildKey(conversationID, before, limit)

	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return s.fetchPageWithCache(ctx, conversationID, limit, before, key)
	})
	if err != nil {
		return nil, err
	}

	page, ok := result.(*cache.MessagePage)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return page.Messages, nil
}

func (s *conversationService) fetchPageWithCache(ctx context.Context, conversationID string, limit int, before *time.Time, key string) (*cache.MessagePage, error) {
	cached, err := s.cache.Get(ctx, key)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		log.Ctx(ctx).Warn().Err(err).Msg("cache get error")
	}

	messages, err := s.messages.ListByConversation(ctx, conversationID, limit, before)
	if err != nil {
		return nil, err
	}

	page := &cache.MessagePage{Messages: messages}

	// Async set so a slow cache never delays the response.
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.Set(cacheCtx, key, page, s.cacheTTL); err != nil {
			log.L().Warn().Err(err).Msg("cache set error")
		}
	}()

	return page, nil
}

func (s *conversationService) MarkAllRead(ctx context.Context, conversationID, userID string) error {
	if err := s.messages.MarkAllReadInConversation(ctx, conversationID, userID); err != nil {
		return err
	}
	audit.Log(ctx, audit.ActionMarkAllRead, userID, conversationID, "conversation marked read")
	return nil
}

// toViews resolves participant ids to display names across a batch of
// conversations with a single user lookup.
func (s *conversationService) toViews(ctx context.Context, conversations []domain.Conversation) ([]domain.ConversationView, error) {
	idSet := make(map[string]struct{})
	for _, c := range conversations {
		for _, p := range c.Participants {
			idSet[p] = struct{}{}
		}
	}
	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	names, err := s.users.GetUsernames(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ConversationView, len(conversations))
	for i, c := range conversations {
		participants := make([]domain.Participant, len(c.Participants))
		for j, p := range c.Participants {
			participants[j] = domain.Participant{ID: p, Username: names[p]}
		}
		views[i] = domain.ConversationView{
			ID:            c.ID,
			Participants:  participants,
			LastMessageID: c.LastMessageID,
			LastMessageAt: c.LastMessageAt,
			Meta:          c.Meta,
			CreatedAt:     c.CreatedAt,
		}
	}
	return views, nil
}
