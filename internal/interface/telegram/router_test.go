package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/event"
)

// stubConversation is active for the listed users and echoes its input.
type stubConversation struct {
	active map[roster.UserID]bool
	err    error
}

func (s *stubConversation) Active(_ context.Context, id roster.UserID) (bool, error) {
	return s.active[id], s.err
}

func (s *stubConversation) Input(_ context.Context, ev event.Event) (*event.Response, error) {
	return event.Reply("dialog:" + ev.Route()), nil
}

func reply(text string) HandlerFunc {
	return func(context.Context, event.Event) (*event.Response, error) {
		return event.Reply(text), nil
	}
}

func newTestRouter(conv *stubConversation) *Router {
	r := NewRouter(reply("fallback"), nil)
	r.Command("start", reply("start"))
	r.Command("skip", reply("skip outside dialog"))
	r.Button("join", reply("join"))
	r.Conversation(conv, "skip", "cancel")
	return r
}

func TestRouter_Dispatch(t *testing.T) {
	conv := &stubConversation{active: map[roster.UserID]bool{"in-dialog": true}}
	r := newTestRouter(conv)

	tests := []struct {
		name string
		ev   event.Event
		want string
	}{
		{"command", event.Event{UserID: "u", Kind: event.KindCommand, Name: "start"}, "start"},
		{"button", event.Event{UserID: "u", Kind: event.KindButtonPress, Name: "join"}, "join"},
		{"unknown command", event.Event{UserID: "u", Kind: event.KindCommand, Name: "nope"}, "fallback"},
		{"unknown button", event.Event{UserID: "u", Kind: event.KindButtonPress, Name: "nope"}, "fallback"},
		{"text outside dialog", event.Event{UserID: "u", Kind: event.KindText, Payload: "hi"}, "fallback"},
		{"dialog command outside dialog", event.Event{UserID: "u", Kind: event.KindCommand, Name: "skip"}, "skip outside dialog"},
		{"text in dialog", event.Event{UserID: "in-dialog", Kind: event.KindText, Payload: "Анна"}, "dialog:text"},
		{"dialog command in dialog", event.Event{UserID: "in-dialog", Kind: event.KindCommand, Name: "skip"}, "dialog:command:skip"},
		{"other command in dialog", event.Event{UserID: "in-dialog", Kind: event.KindCommand, Name: "start"}, "start"},
		{"button in dialog", event.Event{UserID: "in-dialog", Kind: event.KindButtonPress, Name: "join"}, "join"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := r.Dispatch(context.Background(), tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.Text)
		})
	}
}

func TestRouter_ConversationError(t *testing.T) {
	errDown := errors.New("state store down")
	r := newTestRouter(&stubConversation{err: errDown})

	_, err := r.Dispatch(context.Background(), event.Event{UserID: "u", Kind: event.KindText, Payload: "hi"})
	assert.ErrorIs(t, err, errDown)

	// Buttons never consult the dialog.
	resp, err := r.Dispatch(context.Background(), event.Event{UserID: "u", Kind: event.KindButtonPress, Name: "join"})
	require.NoError(t, err)
	assert.Equal(t, "join", resp.Text)
}

func TestRouter_Commands(t *testing.T) {
	r := newTestRouter(&stubConversation{})
	assert.Equal(t, []string{"skip", "start"}, r.Commands())
}

func TestNewRouter_NilFallback(t *testing.T) {
	r := NewRouter(nil, nil)
	resp, err := r.Dispatch(context.Background(), event.Event{Kind: event.KindText})
	require.NoError(t, err)
	assert.Nil(t, resp)
}
