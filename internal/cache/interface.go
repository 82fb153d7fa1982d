package cache

import (
	"context"
	"time"

	"github.com/Trungnc273/ebay-be/internal/domain"
)

// MessagePage is one cached page of decrypted conversation history.
type MessagePage struct {
	Messages []domain.Message `json:"messages"`
}

// MessageCache caches history pages keyed by conversation and cursor.
type MessageCache interface {
	Get(ctx context.Context, key string) (*MessagePage, error)
	Set(ctx context.Context, key string, page *MessagePage, ttl time.Duration) error
	BuildKey(conversationID string, before *time.Time, limit int) string
	Close() error
}
