package redis

import (
	"context"
	"errors"
	"time"

	"github.com/yogakitties/yogakitties-bot/internal/domain/conversation"
	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/domain/shared"
)

// ConversationStore keeps dialog states as JSON values. Every Put refreshes
// the TTL, so an abandoned dialog disappears after ttl of inactivity.
type ConversationStore struct {
	cache *Cache
	ttl   time.Duration
}

// NewConversationStore creates a store. A non-positive ttl uses TTLConversation.
func NewConversationStore(cache *Cache, ttl time.Duration) *ConversationStore {
	if ttl <= 0 {
		ttl = TTLConversation
	}
	return &ConversationStore{cache: cache, ttl: ttl}
}

var _ conversation.StateStore = (*ConversationStore)(nil)

func (s *ConversationStore) key(userID roster.UserID) string {
	return s.cache.Key(PrefixConversation, string(userID))
}

// Get implements conversation.StateStore.
func (s *ConversationStore) Get(ctx context.Context, userID roster.UserID) (*conversation.State, error) {
	var st conversation.State
	if err := s.cache.Get(ctx, s.key(userID), &st); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, conversation.ErrNoConversation
		}
		return nil, shared.StorageError("conversation", "Get", err)
	}
	return &st, nil
}

// Put implements conversation.StateStore.
func (s *ConversationStore) Put(ctx context.Context, state *conversation.State) error {
	if err := s.cache.Set(ctx, s.key(state.UserID), state, s.ttl); err != nil {
		return shared.StorageError("conversation", "Put", err)
	}
	return nil
}

// Delete implements conversation.StateStore.
func (s *ConversationStore) Delete(ctx context.Context, userID roster.UserID) error {
	if err := s.cache.Delete(ctx, s.key(userID)); err != nil {
		return shared.StorageError("conversation", "Delete", err)
	}
	return nil
}
