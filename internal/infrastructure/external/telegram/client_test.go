package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yogakitties/yogakitties-bot/pkg/circuitbreaker"
	"github.com/yogakitties/yogakitties-bot/pkg/retry"
)

// fakeAPI records calls and answers with the configured responder.
type fakeAPI struct {
	t       *testing.T
	calls   atomic.Int32
	mu      sync.Mutex
	bodies  []map[string]any
	methods []string
	respond func(n int, method string) (int, APIResponse)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := int(f.calls.Add(1))
	method := r.URL.Path[strings.LastIndexByte(r.URL.Path, '/')+1:]

	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.bodies = append(f.bodies, body)
	f.methods = append(f.methods, method)
	f.mu.Unlock()

	status, resp := f.respond(n, method)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(f.t, json.NewEncoder(w).Encode(resp))
}

func (f *fakeAPI) lastBody() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bodies[len(f.bodies)-1]
}

func ok(result any) APIResponse {
	raw, _ := json.Marshal(result)
	return APIResponse{OK: true, Result: raw}
}

func apiErr(code int, desc string) APIResponse {
	return APIResponse{OK: false, ErrorCode: code, Description: desc}
}

func newTestClient(t *testing.T, api *fakeAPI, breaker *circuitbreaker.CircuitBreaker) *Client {
	t.Helper()
	api.t = t
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg := DefaultClientConfig("TOKEN")
	cfg.BaseURL = srv.URL
	cfg.Timeout = 5 * time.Second
	cfg.Retrier = retry.New(
		retry.WithMaxAttempts(3),
		retry.WithInitialDelay(time.Millisecond),
		retry.WithMaxDelay(time.Millisecond),
		retry.WithJitter(0),
	)
	cfg.Breaker = breaker
	return NewClient(cfg)
}

func TestClient_SendMessage(t *testing.T) {
	api := &fakeAPI{respond: func(int, string) (int, APIResponse) {
		return http.StatusOK, ok(Message{MessageID: 7, Chat: &Chat{ID: 42}})
	}}
	c := newTestClient(t, api, nil)

	msg, err := c.SendMessage(context.Background(), SendMessageParams{
		ChatID: 42,
		Text:   "Привет",
		ReplyMarkup: &ReplyKeyboardMarkup{
			Keyboard:       [][]KeyboardButton{{{Text: "📋 Профиль"}}},
			ResizeKeyboard: true,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.MessageID)

	assert.Equal(t, []string{"sendMessage"}, api.methods)
	body := api.lastBody()
	assert.Equal(t, "Привет", body["text"])
	assert.EqualValues(t, 42, body["chat_id"])
	markup := body["reply_markup"].(map[string]any)
	assert.Equal(t, true, markup["resize_keyboard"])
}

func TestClient_RetriesServerErrors(t *testing.T) {
	api := &fakeAPI{respond: func(n int, _ string) (int, APIResponse) {
		if n == 1 {
			return http.StatusBadGateway, apiErr(502, "Bad Gateway")
		}
		return http.StatusOK, ok(true)
	}}
	c := newTestClient(t, api, nil)

	require.NoError(t, c.AnswerCallbackQuery(context.Background(), "cb", ""))
	assert.Equal(t, int32(2), api.calls.Load())
}

func TestClient_RetriesRateLimit(t *testing.T) {
	api := &fakeAPI{respond: func(n int, _ string) (int, APIResponse) {
		if n == 1 {
			return http.StatusTooManyRequests, apiErr(429, "Too Many Requests")
		}
		return http.StatusOK, ok(true)
	}}
	c := newTestClient(t, api, nil)

	require.NoError(t, c.DeleteWebhook(context.Background(), false))
	assert.Equal(t, int32(2), api.calls.Load())
}

func TestClient_ClientErrorsAreNotRetried(t *testing.T) {
	api := &fakeAPI{respond: func(int, string) (int, APIResponse) {
		return http.StatusForbidden, apiErr(403, "Forbidden: bot was blocked by the user")
	}}
	c := newTestClient(t, api, nil)

	_, err := c.SendMessage(context.Background(), SendMessageParams{ChatID: 1, Text: "x"})
	require.Error(t, err)
	assert.True(t, IsBlocked(err))
	assert.Equal(t, int32(1), api.calls.Load())
	assert.NotContains(t, err.Error(), "TOKEN")
}

func TestClient_EditNotModifiedIsNotAnError(t *testing.T) {
	api := &fakeAPI{respond: func(int, string) (int, APIResponse) {
		return http.StatusBadRequest, apiErr(400, "Bad Request: message is not modified")
	}}
	c := newTestClient(t, api, nil)

	kb := &InlineKeyboardMarkup{InlineKeyboard: [][]InlineKeyboardButton{{{Text: "Назад", CallbackData: "back"}}}}
	require.NoError(t, c.EditMessageText(context.Background(), 1, 2, "same", kb))

	body := api.lastBody()
	assert.EqualValues(t, 2, body["message_id"])
	assert.NotNil(t, body["reply_markup"])
}

func TestClient_BreakerOpensOnOutage(t *testing.T) {
	api := &fakeAPI{respond: func(int, string) (int, APIResponse) {
		return http.StatusInternalServerError, apiErr(500, "Internal Server Error")
	}}
	breaker := circuitbreaker.New("test",
		circuitbreaker.WithFailureThreshold(2),
		circuitbreaker.WithTimeout(time.Hour),
		circuitbreaker.WithIsFailure(isOutage),
	)
	c := newTestClient(t, api, breaker)

	require.NoError(t, c.Healthy(context.Background()))

	_, err := c.GetMe(context.Background())
	require.Error(t, err)
	assert.True(t, breaker.IsOpen())
	assert.ErrorIs(t, c.Healthy(context.Background()), circuitbreaker.ErrCircuitOpen)

	calls := api.calls.Load()
	_, err = c.GetMe(context.Background())
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, calls, api.calls.Load())
}

func TestClient_StartPollingAdvancesOffset(t *testing.T) {
	api := &fakeAPI{respond: func(n int, _ string) (int, APIResponse) {
		if n == 1 {
			return http.StatusOK, ok([]Update{{UpdateID: 10}, {UpdateID: 11}})
		}
		return http.StatusOK, ok([]Update{})
	}}
	c := newTestClient(t, api, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []int64
	done := make(chan error, 1)
	go func() {
		done <- c.StartPolling(ctx, 0, func(_ context.Context, u *Update) {
			got = append(got, u.UpdateID)
		})
	}()

	require.Eventually(t, func() bool { return api.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{10, 11}, got)
	api.mu.Lock()
	second := api.bodies[1]
	api.mu.Unlock()
	assert.EqualValues(t, 12, second["offset"])
}

func TestExtractCommand(t *testing.T) {
	tests := []struct {
		name    string
		msg     *Message
		command string
		args    string
	}{
		{"nil", nil, "", ""},
		{"plain text", &Message{Text: "hello"}, "", ""},
		{
			"command",
			&Message{Text: "/start", Entities: []MessageEntity{{Type: "bot_command", Length: 6}}},
			"start", "",
		},
		{
			"command with bot name and args",
			&Message{Text: "/reset_workouts@yoga_bot 123", Entities: []MessageEntity{{Type: "bot_command", Length: 24}}},
			"reset_workouts", "123",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.command, ExtractCommand(tt.msg))
			assert.Equal(t, tt.args, ExtractCommandArgs(tt.msg))
		})
	}
}
