package memory

import (
	"context"
	"sync"
	"time"

	"github.com/yogakitties/yogakitties-bot/internal/domain/conversation"
	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
)

// ConversationStore keeps dialog states in a map keyed by user id.
type ConversationStore struct {
	mu     sync.RWMutex
	states map[roster.UserID]conversation.State
}

// NewConversationStore creates an empty conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{states: make(map[roster.UserID]conversation.State)}
}

var _ conversation.StateStore = (*ConversationStore)(nil)

// Get implements conversation.StateStore.
func (c *ConversationStore) Get(ctx context.Context, userID roster.UserID) (*conversation.State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	st, ok := c.states[userID]
	if !ok {
		return nil, conversation.ErrNoConversation
	}
	return &st, nil
}

// Put implements conversation.StateStore.
func (c *ConversationStore) Put(ctx context.Context, state *conversation.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	c.states[state.UserID] = *state
	c.mu.Unlock()
	return nil
}

// Delete implements conversation.StateStore.
func (c *ConversationStore) Delete(ctx context.Context, userID roster.UserID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.states, userID)
	c.mu.Unlock()
	return nil
}

// Len returns the number of active conversations.
func (c *ConversationStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.states)
}

// Sweep drops dialogs not advanced since before cutoff and returns how many
// were dropped.
func (c *ConversationStore) Sweep(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for id, st := range c.states {
		if st.UpdatedAt.Before(cutoff) {
			delete(c.states, id)
			n++
		}
	}
	return n
}
