package handler

import (
	"context"
	"errors"

	"github.com/yogakitties/yogakitties-bot/internal/application/command"
	"github.com/yogakitties/yogakitties-bot/internal/application/query"
	"github.com/yogakitties/yogakitties-bot/internal/domain/conversation"
	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/event"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE HANDLER
// Карточка пользователя и диалог редактирования имени.
// ══════════════════════════════════════════════════════════════════════════════

// ProfileHandler shows the profile and drives the edit dialog.
type ProfileHandler struct {
	profiles  *query.GetProfileHandler
	register  *command.RegisterUserHandler
	edit      *command.EditProfileHandler
	keyboards *presenter.KeyboardBuilder
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(
	profiles *query.GetProfileHandler,
	register *command.RegisterUserHandler,
	edit *command.EditProfileHandler,
	keyboards *presenter.KeyboardBuilder,
) *ProfileHandler {
	return &ProfileHandler{
		profiles:  profiles,
		register:  register,
		edit:      edit,
		keyboards: keyboards,
	}
}

// Show renders the profile card. A user who never sent /start is registered
// from the sender data first.
func (h *ProfileHandler) Show(ctx context.Context, ev event.Event) (*event.Response, error) {
	profile, err := h.profiles.Handle(ctx, query.GetProfileQuery{UserID: ev.UserID})
	if errors.Is(err, roster.ErrUserNotFound) {
		if _, err = h.register.Handle(ctx, senderCommand(ev)); err != nil {
			return nil, err
		}
		profile, err = h.profiles.Handle(ctx, query.GetProfileQuery{UserID: ev.UserID})
	}
	if err != nil {
		return nil, err
	}

	return &event.Response{
		Text:    presenter.Profile(profile),
		Buttons: h.keyboards.ProfileKeyboard(),
	}, nil
}

// StartEdit opens the edit dialog, restarting any dialog in progress.
func (h *ProfileHandler) StartEdit(ctx context.Context, ev event.Event) (*event.Response, error) {
	res, err := h.edit.Start(ctx, ev.UserID)
	if err != nil {
		return nil, err
	}
	return event.Reply(presenter.ConversationReply(res.Reply)), nil
}

// Active reports whether the user is inside the edit dialog.
func (h *ProfileHandler) Active(ctx context.Context, userID roster.UserID) (bool, error) {
	return h.edit.Active(ctx, userID)
}

// Input feeds text, /skip or /cancel to the edit dialog.
func (h *ProfileHandler) Input(ctx context.Context, ev event.Event) (*event.Response, error) {
	res, err := h.edit.Handle(ctx, command.EditProfileCommand{
		UserID: ev.UserID,
		Input:  dialogInput(ev),
	})
	if err != nil {
		return nil, err
	}
	return event.Reply(presenter.ConversationReply(res.Reply)), nil
}

// dialogInput maps an event to a dialog input.
func dialogInput(ev event.Event) conversation.Input {
	if ev.Kind == event.KindCommand {
		switch ev.Name {
		case CommandSkip:
			return conversation.Skip()
		case CommandCancel:
			return conversation.Cancel()
		}
	}
	return conversation.Text(ev.Payload)
}
