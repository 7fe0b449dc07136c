package conversation

import (
	"context"
	"time"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
)

// State - сохранённая позиция пользователя в диалоге.
type State struct {
	UserID    roster.UserID `json:"user_id"`
	Stage     Stage         `json:"stage"`
	StartedAt time.Time     `json:"started_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// StateStore хранит состояния диалогов по id пользователя.
// Реализации: memory (теряется при перезапуске) и redis (с TTL).
type StateStore interface {
	// Get возвращает состояние. Возвращает ErrNoConversation, если диалога нет.
	Get(ctx context.Context, userID roster.UserID) (*State, error)

	// Put сохраняет состояние, перезаписывая предыдущее.
	Put(ctx context.Context, state *State) error

	// Delete удаляет состояние. Отсутствие состояния не ошибка.
	Delete(ctx context.Context, userID roster.UserID) error
}
