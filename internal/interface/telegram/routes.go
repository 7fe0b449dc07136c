package telegram

import (
	"context"
	"log/slog"

	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/event"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/handler"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/presenter"
)

// Handlers groups the handlers the router needs.
type Handlers struct {
	Start    *handler.StartHandler
	Profile  *handler.ProfileHandler
	Schedule *handler.ScheduleHandler
	Admin    *handler.AdminHandler
}

// NewBotRouter builds the router with every command and button registered.
func NewBotRouter(h Handlers, logger *slog.Logger) *Router {
	r := NewRouter(Fallback, logger)

	r.CommandHandler(handler.CommandStart, h.Start)
	r.Command(handler.CommandResetWorkouts, h.Admin.ResetWorkouts)

	r.Button(presenter.ActionProfile, h.Profile.Show)
	r.Button(presenter.ActionEditProfile, h.Profile.StartEdit)
	r.Button(presenter.ActionSchedule, h.Schedule.Show)
	r.Button(presenter.ActionBack, h.Schedule.Back)
	r.Button(presenter.ActionJoin, h.Schedule.Join)
	r.Button(presenter.ActionUnsubscribe, h.Schedule.Unsubscribe)
	r.Button(presenter.ActionParticipants, h.Schedule.Participants)

	r.Conversation(h.Profile, handler.CommandSkip, handler.CommandCancel)

	return r
}

// Fallback answers anything the bot does not understand and restores the menu.
func Fallback(_ context.Context, _ event.Event) (*event.Response, error) {
	return &event.Response{Text: presenter.TextFallback, ReplyMenu: true}, nil
}
