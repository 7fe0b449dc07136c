// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIST PARTICIPANTS QUERY
// Возвращает список записавшихся на группу в порядке записи.
// ══════════════════════════════════════════════════════════════════════════════

// ListParticipantsQuery содержит параметры запроса списка группы.
type ListParticipantsQuery struct {
	SessionID roster.SessionID
}

// Validate проверяет корректность параметров запроса.
func (q ListParticipantsQuery) Validate() error {
	if !q.SessionID.IsValid() {
		return errors.New("session_id is required")
	}
	return nil
}

// ParticipantsDTO - список группы для отображения.
type ParticipantsDTO struct {
	SessionID   roster.SessionID `json:"session_id"`
	SessionName string           `json:"session_name"`

	// Names - отображаемые имена в порядке записи.
	Names []string `json:"names"`
}

// Count возвращает количество записавшихся.
func (d *ParticipantsDTO) Count() int { return len(d.Names) }

// Empty возвращает true, если никто не записан.
func (d *ParticipantsDTO) Empty() bool { return len(d.Names) == 0 }

// ListParticipantsHandler обрабатывает запрос списка группы.
type ListParticipantsHandler struct {
	sessions roster.SessionRepository
}

// NewListParticipantsHandler создаёт новый обработчик.
func NewListParticipantsHandler(sessions roster.SessionRepository) *ListParticipantsHandler {
	return &ListParticipantsHandler{sessions: sessions}
}

// Handle выполняет запрос.
func (h *ListParticipantsHandler) Handle(ctx context.Context, q ListParticipantsQuery) (*ParticipantsDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	sess, err := h.sessions.GetSession(ctx, q.SessionID)
	if err != nil {
		return nil, fmt.Errorf("list_participants: %w", err)
	}

	return &ParticipantsDTO{
		SessionID:   sess.ID,
		SessionName: sess.Name,
		Names:       sess.Names(),
	}, nil
}
