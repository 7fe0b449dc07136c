package query

import (
	"context"
	"fmt"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROFILE QUERY
// Профиль пользователя для экрана "Мой профиль".
// ══════════════════════════════════════════════════════════════════════════════

// GetProfileQuery содержит параметры запроса профиля.
type GetProfileQuery struct {
	UserID roster.UserID
}

// ProfileDTO - данные профиля для отображения.
type ProfileDTO struct {
	UserID       roster.UserID `json:"user_id"`
	FirstName    string        `json:"first_name"`
	LastName     string        `json:"last_name"`
	WorkoutCount int           `json:"workout_count"`
}

// FullName возвращает имя и фамилию через пробел.
func (p *ProfileDTO) FullName() string {
	u := roster.User{FirstName: p.FirstName, LastName: p.LastName}
	return u.FullName()
}

// GetProfileHandler обрабатывает запрос профиля.
type GetProfileHandler struct {
	users roster.UserRepository
}

// NewGetProfileHandler создаёт новый обработчик.
func NewGetProfileHandler(users roster.UserRepository) *GetProfileHandler {
	return &GetProfileHandler{users: users}
}

// Handle выполняет запрос. Возвращает roster.ErrUserNotFound для
// незарегистрированного пользователя.
func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (*ProfileDTO, error) {
	if !q.UserID.IsValid() {
		return nil, roster.ErrInvalidUserID
	}

	u, err := h.users.GetUser(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("get_profile: %w", err)
	}

	return &ProfileDTO{
		UserID:       u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		WorkoutCount: u.WorkoutCount,
	}, nil
}
