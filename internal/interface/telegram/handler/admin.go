package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/yogakitties/yogakitties-bot/internal/application/command"
	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/event"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/presenter"
)

// Command names.
const (
	CommandStart         = "start"
	CommandSkip          = "skip"
	CommandCancel        = "cancel"
	CommandResetWorkouts = "reset_workouts"
)

// AdminHandler handles administrative commands.
type AdminHandler struct {
	reset *command.ResetWorkoutsHandler
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(reset *command.ResetWorkoutsHandler) *AdminHandler {
	return &AdminHandler{reset: reset}
}

// ResetWorkouts handles /reset_workouts <user-id>.
func (h *AdminHandler) ResetWorkouts(ctx context.Context, ev event.Event) (*event.Response, error) {
	if !h.reset.IsAdmin(ev.Sender.TelegramUserID) {
		return event.Reply(presenter.TextNotAdmin), nil
	}

	target := strings.TrimSpace(ev.Payload)
	if target == "" {
		return event.Reply(presenter.TextResetUsage), nil
	}

	err := h.reset.Handle(ctx, command.ResetWorkoutsCommand{
		ActorTelegramID: ev.Sender.TelegramUserID,
		TargetUserID:    roster.UserID(target),
	})
	switch {
	case errors.Is(err, roster.ErrUserNotFound):
		return event.Reply(presenter.TextAdminUnknown), nil
	case err != nil:
		return nil, err
	}
	return event.Reply(presenter.WorkoutsReset(target)), nil
}
