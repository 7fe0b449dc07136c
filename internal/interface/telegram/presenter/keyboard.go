// Package presenter formats data for Telegram display.
// Presenters turn query results into the texts and keyboards the bot sends.
package presenter

import (
	"github.com/yogakitties/yogakitties-bot/internal/application/query"
	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/event"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACTIONS
// Имена действий кнопок. Аргумент (id группы) кодируется через event.Action.
// ══════════════════════════════════════════════════════════════════════════════

const (
	ActionProfile      = "profile"
	ActionSchedule     = "schedule"
	ActionEditProfile  = "edit_profile"
	ActionJoin         = "join"
	ActionParticipants = "participants"
	ActionUnsubscribe  = "unsubscribe"
	ActionBack         = "back"
)

// Подписи кнопок постоянного меню.
const (
	MenuProfile  = "📋 Профиль"
	MenuSchedule = "✏️ Записаться"
)

// MenuAction returns the action bound to a reply-menu label.
func MenuAction(label string) (string, bool) {
	switch label {
	case MenuProfile:
		return ActionProfile, true
	case MenuSchedule:
		return ActionSchedule, true
	}
	return "", false
}

// MenuLabels returns the reply-menu rows.
func MenuLabels() [][]string {
	return [][]string{{MenuProfile, MenuSchedule}}
}

// ══════════════════════════════════════════════════════════════════════════════
// KEYBOARD BUILDER
// ══════════════════════════════════════════════════════════════════════════════

// KeyboardBuilder builds inline keyboards for the handlers.
type KeyboardBuilder struct{}

// NewKeyboardBuilder creates a new KeyboardBuilder.
func NewKeyboardBuilder() *KeyboardBuilder {
	return &KeyboardBuilder{}
}

// button creates an inline button bound to an action.
func button(text, action, arg string) event.Button {
	return event.Button{Text: text, Data: event.Action(action, arg)}
}

// ScheduleKeyboard has a join row and a participants row, one button per session.
func (b *KeyboardBuilder) ScheduleKeyboard(sessions []query.SessionDTO) [][]event.Button {
	join := make([]event.Button, 0, len(sessions))
	participants := make([]event.Button, 0, len(sessions))
	for _, s := range sessions {
		label := s.Name
		if s.Joined {
			label = "✅ " + label
		}
		join = append(join, button(label, ActionJoin, s.ID.String()))
		participants = append(participants, button("Участники "+s.Name, ActionParticipants, s.ID.String()))
	}
	return [][]event.Button{join, participants}
}

// SubscribedKeyboard is shown after a join.
func (b *KeyboardBuilder) SubscribedKeyboard(sessionID roster.SessionID) [][]event.Button {
	return [][]event.Button{{
		button("Отписаться", ActionUnsubscribe, sessionID.String()),
		button("Назад", ActionBack, ""),
	}}
}

// BackKeyboard returns to the schedule.
func (b *KeyboardBuilder) BackKeyboard() [][]event.Button {
	return [][]event.Button{{button("Назад", ActionBack, "")}}
}

// ProfileKeyboard opens the profile edit dialog.
func (b *KeyboardBuilder) ProfileKeyboard() [][]event.Button {
	return [][]event.Button{{button("Редактировать", ActionEditProfile, "")}}
}
