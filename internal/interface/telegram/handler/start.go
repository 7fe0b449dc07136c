// Package handler contains Telegram bot handlers.
// Each handler follows the pattern: receive event → call application layer →
// format response with the presenter.
package handler

import (
	"context"

	"github.com/yogakitties/yogakitties-bot/internal/application/command"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/event"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// START HANDLER
// Handles /start: creates the profile on first contact and shows the menu.
// ══════════════════════════════════════════════════════════════════════════════

// StartHandler handles the /start command.
type StartHandler struct {
	register *command.RegisterUserHandler
}

// NewStartHandler creates a new StartHandler.
func NewStartHandler(register *command.RegisterUserHandler) *StartHandler {
	return &StartHandler{register: register}
}

// Handle registers the sender if needed and greets them.
func (h *StartHandler) Handle(ctx context.Context, ev event.Event) (*event.Response, error) {
	res, err := h.register.Handle(ctx, senderCommand(ev))
	if err != nil {
		return nil, err
	}

	name := res.User.FirstName
	if name == "" {
		name = ev.Sender.FirstName
	}

	return &event.Response{
		Text:      presenter.Greeting(name),
		ReplyMenu: true,
	}, nil
}

// senderCommand builds the first-contact registration from the event sender.
func senderCommand(ev event.Event) command.RegisterUserCommand {
	return command.RegisterUserCommand{
		UserID:         ev.UserID,
		FirstName:      ev.Sender.FirstName,
		LastName:       ev.Sender.LastName,
		TelegramUserID: ev.Sender.TelegramUserID,
	}
}
