package query

import (
	"context"
	"fmt"
	"time"

	"github.com/yogakitties/yogakitties-bot/internal/domain/classday"
	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SCHEDULE QUERY
// Ближайшее занятие и группы, на которые можно записаться.
// ══════════════════════════════════════════════════════════════════════════════

// SessionDTO - группа в расписании.
type SessionDTO struct {
	ID    roster.SessionID `json:"id"`
	Name  string           `json:"name"`
	Count int              `json:"count"`

	// Joined - записан ли запрашивающий пользователь.
	Joined bool `json:"joined"`
}

// ScheduleDTO - экран расписания.
type ScheduleDTO struct {
	// ClassDate - дата ближайшего занятия в часовом поясе студии.
	ClassDate time.Time    `json:"class_date"`
	Sessions  []SessionDTO `json:"sessions"`
}

// GetScheduleQuery содержит параметры запроса расписания.
type GetScheduleQuery struct {
	// UserID - опционально, для отметки Joined.
	UserID roster.UserID
}

// GetScheduleHandler обрабатывает запрос расписания.
type GetScheduleHandler struct {
	sessions roster.SessionRepository
	rule     *classday.Rule
	loc      *time.Location
	now      func() time.Time
}

// NewGetScheduleHandler создаёт новый обработчик.
// Пустое правило заменяется правилом по умолчанию, nil-зона - на UTC.
func NewGetScheduleHandler(sessions roster.SessionRepository, rule *classday.Rule, loc *time.Location) *GetScheduleHandler {
	if rule == nil {
		rule = classday.DefaultRule()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &GetScheduleHandler{
		sessions: sessions,
		rule:     rule,
		loc:      loc,
		now:      time.Now,
	}
}

// WithClock подменяет источник времени.
func (h *GetScheduleHandler) WithClock(now func() time.Time) *GetScheduleHandler {
	h.now = now
	return h
}

// Handle выполняет запрос.
func (h *GetScheduleHandler) Handle(ctx context.Context, q GetScheduleQuery) (*ScheduleDTO, error) {
	sessions, err := h.sessions.ListSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_schedule: %w", err)
	}

	dto := &ScheduleDTO{
		ClassDate: h.rule.Next(timeutil.StartOfDay(h.now(), h.loc)),
		Sessions:  make([]SessionDTO, 0, len(sessions)),
	}
	for _, s := range sessions {
		dto.Sessions = append(dto.Sessions, SessionDTO{
			ID:     s.ID,
			Name:   s.Name,
			Count:  len(s.Participants),
			Joined: q.UserID.IsValid() && s.Has(q.UserID),
		})
	}
	return dto, nil
}
