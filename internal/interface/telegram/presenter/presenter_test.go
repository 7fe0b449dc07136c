package presenter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogakitties/yogakitties-bot/internal/application/command"
	"github.com/yogakitties/yogakitties-bot/internal/application/query"
	"github.com/yogakitties/yogakitties-bot/internal/domain/conversation"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/event"
)

func TestMenuAction(t *testing.T) {
	for _, row := range MenuLabels() {
		for _, label := range row {
			_, ok := MenuAction(label)
			assert.True(t, ok, label)
		}
	}

	action, ok := MenuAction(MenuSchedule)
	assert.True(t, ok)
	assert.Equal(t, ActionSchedule, action)

	_, ok = MenuAction("Профиль")
	assert.False(t, ok)
}

func TestScheduleKeyboard(t *testing.T) {
	kb := NewKeyboardBuilder().ScheduleKeyboard([]query.SessionDTO{
		{ID: "s1", Name: "Йога 17:30", Joined: true},
		{ID: "s2", Name: "Йога 18:40"},
	})
	require.Len(t, kb, 2)

	assert.Equal(t, "✅ Йога 17:30", kb[0][0].Text)
	assert.Equal(t, "Йога 18:40", kb[0][1].Text)
	assert.Equal(t, "join:s1", kb[0][0].Data)

	assert.Equal(t, "Участники Йога 18:40", kb[1][1].Text)
	name, arg := event.ParseAction(kb[1][1].Data)
	assert.Equal(t, ActionParticipants, name)
	assert.Equal(t, "s2", arg)
}

func TestSubscribedKeyboard(t *testing.T) {
	kb := NewKeyboardBuilder().SubscribedKeyboard("s1")
	require.Len(t, kb, 1)
	assert.Equal(t, "unsubscribe:s1", kb[0][0].Data)
	assert.Equal(t, ActionBack, kb[0][1].Data)
}

func TestSchedule(t *testing.T) {
	text := Schedule(&query.ScheduleDTO{ClassDate: time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)})
	assert.Contains(t, text, "Предстоящее занятие состоится: ")
	assert.Contains(t, text, "Выберите группу")
}

func TestSubscribed(t *testing.T) {
	assert.Equal(t, "Записал вас в группу: Йога 17:30",
		Subscribed(&command.SubscribeResult{Status: command.StatusSubscribed, SessionName: "Йога 17:30"}))
	assert.Equal(t, "Вы уже записаны в группу: Йога 17:30",
		Subscribed(&command.SubscribeResult{Status: command.StatusAlreadySubscribed, SessionName: "Йога 17:30"}))
}

func TestParticipants(t *testing.T) {
	assert.Equal(t, "В группу \"Йога 17:30\" ещё никто не записался 😢",
		Participants(&query.ParticipantsDTO{SessionName: "Йога 17:30"}))

	assert.Equal(t, "Количество участников: 2\n\n- Борис\n- АннаПетрова",
		Participants(&query.ParticipantsDTO{SessionName: "Йога 17:30", Names: []string{"Борис", "АннаПетрова"}}))
}

func TestConversationReply(t *testing.T) {
	replies := []conversation.Reply{
		conversation.ReplyAskFirstName,
		conversation.ReplyFirstNameSaved,
		conversation.ReplyAskLastName,
		conversation.ReplyEmptyName,
		conversation.ReplySaved,
		conversation.ReplyCancelled,
	}
	seen := make(map[string]bool)
	for _, r := range replies {
		text := ConversationReply(r)
		assert.NotEqual(t, TextError, text)
		assert.False(t, seen[text], "duplicate reply text %q", text)
		seen[text] = true
	}
	assert.Equal(t, TextError, ConversationReply(conversation.ReplyFailed))
}

func TestRateLimited(t *testing.T) {
	assert.Contains(t, RateLimited(0), "1 сек")
	assert.Contains(t, RateLimited(12), "12 сек")
}
