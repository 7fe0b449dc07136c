package handler

import (
	"context"
	"errors"

	"github.com/yogakitties/yogakitties-bot/internal/application/command"
	"github.com/yogakitties/yogakitties-bot/internal/application/query"
	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/event"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE HANDLER
// Расписание, запись, отписка и списки участников.
// ══════════════════════════════════════════════════════════════════════════════

// ScheduleHandler handles the schedule screen and its buttons.
type ScheduleHandler struct {
	schedule     *query.GetScheduleHandler
	participants *query.ListParticipantsHandler
	subscribe    *command.SubscribeHandler
	unsubscribe  *command.UnsubscribeHandler
	keyboards    *presenter.KeyboardBuilder
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(
	schedule *query.GetScheduleHandler,
	participants *query.ListParticipantsHandler,
	subscribe *command.SubscribeHandler,
	unsubscribe *command.UnsubscribeHandler,
	keyboards *presenter.KeyboardBuilder,
) *ScheduleHandler {
	return &ScheduleHandler{
		schedule:     schedule,
		participants: participants,
		subscribe:    subscribe,
		unsubscribe:  unsubscribe,
		keyboards:    keyboards,
	}
}

// Show sends the schedule as a new message (reply-menu press).
func (h *ScheduleHandler) Show(ctx context.Context, ev event.Event) (*event.Response, error) {
	return h.render(ctx, ev, false)
}

// Back replaces the current message with the schedule.
func (h *ScheduleHandler) Back(ctx context.Context, ev event.Event) (*event.Response, error) {
	return h.render(ctx, ev, true)
}

func (h *ScheduleHandler) render(ctx context.Context, ev event.Event, edit bool) (*event.Response, error) {
	dto, err := h.schedule.Handle(ctx, query.GetScheduleQuery{UserID: ev.UserID})
	if err != nil {
		return nil, err
	}
	return &event.Response{
		Text:    presenter.Schedule(dto),
		Buttons: h.keyboards.ScheduleKeyboard(dto.Sessions),
		Edit:    edit,
	}, nil
}

// Join subscribes the user to the session named in the payload.
func (h *ScheduleHandler) Join(ctx context.Context, ev event.Event) (*event.Response, error) {
	res, err := h.subscribe.Handle(ctx, command.SubscribeCommand{
		SessionID: roster.SessionID(ev.Payload),
		UserID:    ev.UserID,
		Sender:    senderCommand(ev),
	})
	if err != nil {
		return sessionGone(err)
	}
	return &event.Response{
		Text:    presenter.Subscribed(res),
		Buttons: h.keyboards.SubscribedKeyboard(res.SessionID),
		Edit:    true,
	}, nil
}

// Unsubscribe removes the user from the session named in the payload.
func (h *ScheduleHandler) Unsubscribe(ctx context.Context, ev event.Event) (*event.Response, error) {
	res, err := h.unsubscribe.Handle(ctx, command.UnsubscribeCommand{
		SessionID: roster.SessionID(ev.Payload),
		UserID:    ev.UserID,
	})
	if err != nil {
		return sessionGone(err)
	}
	return &event.Response{
		Text:    presenter.Unsubscribed(res),
		Buttons: h.keyboards.BackKeyboard(),
		Edit:    true,
	}, nil
}

// Participants lists who joined the session named in the payload.
func (h *ScheduleHandler) Participants(ctx context.Context, ev event.Event) (*event.Response, error) {
	dto, err := h.participants.Handle(ctx, query.ListParticipantsQuery{SessionID: roster.SessionID(ev.Payload)})
	if err != nil {
		return sessionGone(err)
	}
	return &event.Response{
		Text:    presenter.Participants(dto),
		Buttons: h.keyboards.BackKeyboard(),
		Edit:    true,
	}, nil
}

// sessionGone turns a stale session button into a hint; other errors pass through.
func sessionGone(err error) (*event.Response, error) {
	if errors.Is(err, roster.ErrSessionNotFound) || errors.Is(err, roster.ErrInvalidSessionID) {
		return &event.Response{Text: presenter.TextSessionNotFound, Edit: true}, nil
	}
	return nil, err
}
