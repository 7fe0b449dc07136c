package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogakitties/yogakitties-bot/internal/application/command"
	"github.com/yogakitties/yogakitties-bot/internal/application/query"
	"github.com/yogakitties/yogakitties-bot/internal/domain/roster"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/external/telegram"
	"github.com/yogakitties/yogakitties-bot/internal/infrastructure/persistence/memory"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/event"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/handler"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/middleware"
	"github.com/yogakitties/yogakitties-bot/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKE CLIENT
// ══════════════════════════════════════════════════════════════════════════════

type edit struct {
	chatID, messageID int64
	text              string
	keyboard          *telegram.InlineKeyboardMarkup
}

type fakeClient struct {
	mu      sync.Mutex
	sent    []telegram.SendMessageParams
	edits   []edit
	answers []string
	webhook *telegram.WebhookParams
	deleted bool
	polled  bool
	updates []*telegram.Update
}

func (f *fakeClient) GetMe(context.Context) (*telegram.User, error) {
	return &telegram.User{ID: 1, IsBot: true, Username: "yoga_bot"}, nil
}

func (f *fakeClient) SendMessage(_ context.Context, p telegram.SendMessageParams) (*telegram.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	return &telegram.Message{MessageID: int64(len(f.sent))}, nil
}

func (f *fakeClient) EditMessageText(_ context.Context, chatID, messageID int64, text string, kb *telegram.InlineKeyboardMarkup) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit{chatID, messageID, text, kb})
	return nil
}

func (f *fakeClient) AnswerCallbackQuery(_ context.Context, id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, id+"|"+text)
	return nil
}

func (f *fakeClient) SetWebhook(_ context.Context, p telegram.WebhookParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.webhook = &p
	return nil
}

func (f *fakeClient) DeleteWebhook(context.Context, bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = true
	return nil
}

func (f *fakeClient) StartPolling(ctx context.Context, _ time.Duration, h telegram.UpdateHandler) error {
	f.mu.Lock()
	f.polled = true
	updates := f.updates
	f.mu.Unlock()
	for _, u := range updates {
		h(ctx, u)
	}
	return nil
}

func (f *fakeClient) lastSent(t *testing.T) telegram.SendMessageParams {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

func (f *fakeClient) lastEdit(t *testing.T) edit {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.edits)
	return f.edits[len(f.edits)-1]
}

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURES
// ══════════════════════════════════════════════════════════════════════════════

const (
	chatID  = int64(4242)
	adminID = int64(777)
)

type testEnv struct {
	bot     *Bot
	client  *fakeClient
	store   *memory.Store
	session roster.SessionID
}

func newTestEnv(t *testing.T, configure ...func(*BotConfig)) *testEnv {
	t.Helper()
	store := memory.NewStore()
	sid, err := store.EnsureSession(context.Background(), "Йога 17:30")
	require.NoError(t, err)

	register := command.NewRegisterUserHandler(store, nil)
	keyboards := presenter.NewKeyboardBuilder()
	router := NewBotRouter(Handlers{
		Start: handler.NewStartHandler(register),
		Profile: handler.NewProfileHandler(
			query.NewGetProfileHandler(store),
			register,
			command.NewEditProfileHandler(memory.NewConversationStore(), store, nil),
			keyboards,
		),
		Schedule: handler.NewScheduleHandler(
			query.NewGetScheduleHandler(store, nil, nil),
			query.NewListParticipantsHandler(store),
			command.NewSubscribeHandler(store, nil),
			command.NewUnsubscribeHandler(store, nil),
			keyboards,
		),
		Admin: handler.NewAdminHandler(command.NewResetWorkoutsHandler(store, []int64{adminID}, nil)),
	}, nil)

	return newEnvWithRouter(t, store, sid, router, configure...)
}

func newEnvWithRouter(t *testing.T, store *memory.Store, sid roster.SessionID, router *Router, configure ...func(*BotConfig)) *testEnv {
	t.Helper()
	cfg := DefaultBotConfig()
	for _, fn := range configure {
		fn(&cfg)
	}
	client := &fakeClient{}
	return &testEnv{bot: NewBot(cfg, client, router), client: client, store: store, session: sid}
}

// deliver hands an update to the bot and waits until it is handled.
func (e *testEnv) deliver(t *testing.T, u *telegram.Update) {
	t.Helper()
	ctx := context.Background()
	e.bot.HandleUpdate(ctx, u)

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, e.bot.Wait(waitCtx))
}

func from() *telegram.User {
	return &telegram.User{ID: chatID, FirstName: "Анна", LastName: "Петрова"}
}

func textUpdate(text string) *telegram.Update {
	return &telegram.Update{Message: &telegram.Message{
		MessageID: 10,
		From:      from(),
		Chat:      &telegram.Chat{ID: chatID, Type: "private"},
		Text:      text,
	}}
}

func commandUpdate(text string, length int) *telegram.Update {
	u := textUpdate(text)
	u.Message.Entities = []telegram.MessageEntity{{Type: "bot_command", Length: length}}
	return u
}

func callbackUpdate(data string) *telegram.Update {
	return &telegram.Update{CallbackQuery: &telegram.CallbackQuery{
		ID:   "cb-" + data,
		From: from(),
		Message: &telegram.Message{
			MessageID: 55,
			Chat:      &telegram.Chat{ID: chatID, Type: "private"},
		},
		Data: data,
	}}
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSLATION
// ══════════════════════════════════════════════════════════════════════════════

func TestTranslateUpdate(t *testing.T) {
	tests := []struct {
		name    string
		update  *telegram.Update
		ok      bool
		kind    event.Kind
		evName  string
		payload string
	}{
		{"nil", nil, false, 0, "", ""},
		{"no message", &telegram.Update{UpdateID: 1}, false, 0, "", ""},
		{"command", commandUpdate("/START@yoga_bot", 15), true, event.KindCommand, "start", ""},
		{"command args", commandUpdate("/reset_workouts 42", 15), true, event.KindCommand, "reset_workouts", "42"},
		{"menu label", textUpdate(presenter.MenuSchedule), true, event.KindButtonPress, presenter.ActionSchedule, ""},
		{"free text", textUpdate("привет"), true, event.KindText, "", "привет"},
		{"callback", callbackUpdate("join:s1"), true, event.KindButtonPress, presenter.ActionJoin, "s1"},
		{"empty text", textUpdate(""), false, 0, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := TranslateUpdate(tt.update)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.kind, ev.Kind)
			assert.Equal(t, tt.evName, ev.Name)
			assert.Equal(t, tt.payload, ev.Payload)
			assert.Equal(t, roster.UserID("4242"), ev.UserID)
			assert.Equal(t, chatID, ev.ChatID)
		})
	}
}

func TestTranslateUpdate_CallbackWithoutMessage(t *testing.T) {
	u := callbackUpdate("back")
	u.CallbackQuery.Message = nil

	ev, ok := TranslateUpdate(u)
	require.True(t, ok)
	assert.Equal(t, chatID, ev.ChatID)
	assert.Zero(t, ev.MessageID)
	assert.Equal(t, "cb-back", ev.CallbackID)
}

// ══════════════════════════════════════════════════════════════════════════════
// FLOWS
// ══════════════════════════════════════════════════════════════════════════════

func TestBot_StartRegistersAndShowsMenu(t *testing.T) {
	env := newTestEnv(t)

	env.deliver(t, commandUpdate("/start", 6))

	sent := env.client.lastSent(t)
	assert.Equal(t, chatID, sent.ChatID)
	assert.Contains(t, sent.Text, "Анна")
	menu, ok := sent.ReplyMarkup.(*telegram.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, presenter.MenuProfile, menu.Keyboard[0][0].Text)

	u, err := env.store.GetUser(context.Background(), "4242")
	require.NoError(t, err)
	assert.Equal(t, "Петрова", u.LastName)
}

func TestBot_ScheduleJoinAndParticipants(t *testing.T) {
	env := newTestEnv(t)

	env.deliver(t, textUpdate(presenter.MenuSchedule))
	sent := env.client.lastSent(t)
	kb, ok := sent.ReplyMarkup.(*telegram.InlineKeyboardMarkup)
	require.True(t, ok)
	join := kb.InlineKeyboard[0][0]
	assert.Equal(t, "Йога 17:30", join.Text)

	env.deliver(t, callbackUpdate(join.CallbackData))
	ed := env.client.lastEdit(t)
	assert.Equal(t, int64(55), ed.messageID)
	assert.Equal(t, "Записал вас в группу: Йога 17:30", ed.text)
	assert.Equal(t, event.Action(presenter.ActionUnsubscribe, env.session.String()), ed.keyboard.InlineKeyboard[0][0].CallbackData)

	s, err := env.store.GetSession(context.Background(), env.session)
	require.NoError(t, err)
	assert.True(t, s.Has("4242"))

	env.deliver(t, callbackUpdate(event.Action(presenter.ActionParticipants, env.session.String())))
	assert.Equal(t, "Количество участников: 1\n\n- АннаПетрова", env.client.lastEdit(t).text)

	env.client.mu.Lock()
	assert.Contains(t, env.client.answers, "cb-"+join.CallbackData+"|")
	env.client.mu.Unlock()
}

func TestBot_StaleSessionButton(t *testing.T) {
	env := newTestEnv(t)

	env.deliver(t, callbackUpdate(event.Action(presenter.ActionJoin, "gone")))
	assert.Equal(t, presenter.TextSessionNotFound, env.client.lastEdit(t).text)
}

func TestBot_EditProfileDialog(t *testing.T) {
	env := newTestEnv(t)
	env.deliver(t, commandUpdate("/start", 6))

	env.deliver(t, callbackUpdate(presenter.ActionEditProfile))
	assert.Contains(t, env.client.lastSent(t).Text, "Напишите пожалуйста имя")

	env.deliver(t, textUpdate("де ла мария"))
	assert.Contains(t, env.client.lastSent(t).Text, "Имя успешно изменено")

	env.deliver(t, commandUpdate("/skip", 5))
	assert.Equal(t, "Спасибо! Изменения сохранены.", env.client.lastSent(t).Text)

	u, err := env.store.GetUser(context.Background(), "4242")
	require.NoError(t, err)
	assert.Equal(t, "де ла мария", u.FirstName)
	assert.Equal(t, "Петрова", u.LastName)

	// Dialog is over: free text goes to the fallback.
	env.deliver(t, textUpdate("ещё текст"))
	assert.Equal(t, presenter.TextFallback, env.client.lastSent(t).Text)
}

func TestBot_DialogKeepsMessageOrder(t *testing.T) {
	env := newTestEnv(t)
	env.deliver(t, commandUpdate("/start", 6))
	env.deliver(t, callbackUpdate(presenter.ActionEditProfile))

	// Two quick messages, no waiting in between.
	ctx := context.Background()
	env.bot.HandleUpdate(ctx, textUpdate("Анна"))
	env.bot.HandleUpdate(ctx, textUpdate("Петрова"))
	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, env.bot.Wait(waitCtx))

	u, err := env.store.GetUser(ctx, "4242")
	require.NoError(t, err)
	assert.Equal(t, "Анна", u.FirstName)
	assert.Equal(t, "Петрова", u.LastName)
}

func TestBot_MenuPressDuringDialog(t *testing.T) {
	env := newTestEnv(t)
	env.deliver(t, callbackUpdate(presenter.ActionEditProfile))

	env.deliver(t, textUpdate(presenter.MenuProfile))
	assert.Contains(t, env.client.lastSent(t).Text, "Информация о пользователе")

	env.deliver(t, commandUpdate("/cancel", 7))
	assert.Equal(t, "Может быть продолжим в следующий раз 🙂", env.client.lastSent(t).Text)
}

func TestBot_AdminReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, err := roster.NewUser("99", "Борис", "", 5)
	require.NoError(t, err)
	_, err = env.store.EnsureUser(ctx, u)
	require.NoError(t, err)

	env.deliver(t, commandUpdate("/reset_workouts 99", 15))
	assert.Equal(t, presenter.TextNotAdmin, env.client.lastSent(t).Text)

	admin := commandUpdate("/reset_workouts 99", 15)
	admin.Message.From.ID = adminID
	env.deliver(t, admin)
	assert.Equal(t, presenter.WorkoutsReset("99"), env.client.lastSent(t).Text)

	got, err := env.store.GetUser(ctx, "99")
	require.NoError(t, err)
	assert.Zero(t, got.WorkoutCount)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIDDLEWARE BEHAVIOUR
// ══════════════════════════════════════════════════════════════════════════════

func TestBot_RateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *BotConfig) {
		c.RateLimit = middleware.RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1}
	})

	env.deliver(t, commandUpdate("/start", 6))
	env.deliver(t, commandUpdate("/start", 6))
	assert.Contains(t, env.client.lastSent(t).Text, "Слишком много запросов")

	env.deliver(t, callbackUpdate(presenter.ActionBack))
	env.client.mu.Lock()
	defer env.client.mu.Unlock()
	require.Len(t, env.client.answers, 1)
	assert.Contains(t, env.client.answers[0], "Слишком много запросов")
	assert.Empty(t, env.client.edits)
}

func TestBot_PanicIsRecovered(t *testing.T) {
	router := NewRouter(Fallback, nil)
	router.Command("boom", func(context.Context, event.Event) (*event.Response, error) {
		panic("boom")
	})
	env := newEnvWithRouter(t, memory.NewStore(), "", router)

	env.deliver(t, commandUpdate("/boom", 5))
	assert.Equal(t, presenter.TextError, env.client.lastSent(t).Text)

	m := env.bot.Metrics()
	assert.Equal(t, int64(1), m.TotalPanics)
	assert.Equal(t, int64(1), m.TotalErrors)
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

func TestBot_RunPolling(t *testing.T) {
	env := newTestEnv(t)
	env.client.updates = []*telegram.Update{commandUpdate("/start", 6)}

	require.NoError(t, env.bot.Run(context.Background()))
	require.NoError(t, env.bot.Wait(context.Background()))

	assert.True(t, env.client.deleted)
	assert.True(t, env.client.polled)
	assert.Len(t, env.client.sent, 1)
	assert.False(t, env.bot.IsRunning())
}

func TestBot_RunWebhook(t *testing.T) {
	env := newTestEnv(t, func(c *BotConfig) {
		c.Mode = ModeWebhook
		c.WebhookURL = "https://yoga.example.com/telegram/secret"
		c.WebhookSecret = "s3cret"
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.bot.Run(ctx) }()

	require.Eventually(t, env.bot.IsRunning, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, env.bot.Run(ctx), ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-done)

	require.NotNil(t, env.client.webhook)
	assert.Equal(t, "s3cret", env.client.webhook.SecretToken)
	assert.False(t, env.client.polled)
}
