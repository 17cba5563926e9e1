package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"leave-bot/internal/mattermost"
	"leave-bot/internal/metrics"
	"leave-bot/internal/model"
	"leave-bot/internal/service"
)

type fakeBot struct {
	activities []model.Activity
	replies    []model.Reply
	err        error
}

func (b *fakeBot) OnTurn(ctx context.Context, a model.Activity, s service.Sender) error {
	b.activities = append(b.activities, a)
	if b.err != nil {
		return b.err
	}
	for _, r := range b.replies {
		if err := s.Send(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

type fakePoster struct {
	posts []*mattermost.Post
}

func (p *fakePoster) CreatePost(_ context.Context, post *mattermost.Post) (*mattermost.Post, error) {
	p.posts = append(p.posts, post)
	return post, nil
}

func newServer(bot *fakeBot, poster *fakePoster, limiter *UserLimiter) http.Handler {
	mux := http.NewServeMux()
	NewLeaveHandler(bot, poster, "hook-token", "en-US", limiter, zap.NewNop()).RegisterRoutes(mux)
	RegisterHealth(mux, nil)
	return LoggingMiddleware(zap.NewNop(), mux)
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_PostsRepliesToChannel(t *testing.T) {
	bot := &fakeBot{replies: []model.Reply{
		{Text: "You have submitted following requests: ", Card: &model.Card{Lines: []string{"11/3/2026 ( wedding )"}}},
	}}
	poster := &fakePoster{}
	srv := newServer(bot, poster, nil)

	rec := postForm(srv, "/api/leave/webhook", url.Values{
		"token":        {"hook-token"},
		"channel_id":   {"ch-1"},
		"user_id":      {"u-1"},
		"text":         {"leavebot show my leave requests"},
		"trigger_word": {"leavebot"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))

	require.Len(t, bot.activities, 1)
	assert.Equal(t, model.Activity{
		Type:           model.ActivityMessage,
		ConversationID: "ch-1",
		UserID:         "u-1",
		Text:           "show my leave requests",
		Locale:         "en-US",
	}, bot.activities[0])

	require.Len(t, poster.posts, 1)
	assert.Equal(t, "ch-1", poster.posts[0].ChannelID)
	assert.Equal(t, "11/3/2026 ( wedding )", poster.posts[0].Props.Attachments[0].Text)
}

func TestWebhook_RejectsBadToken(t *testing.T) {
	bot := &fakeBot{}
	srv := newServer(bot, &fakePoster{}, nil)

	rec := postForm(srv, "/api/leave/webhook", url.Values{"token": {"nope"}, "channel_id": {"c"}, "user_id": {"u"}, "text": {"hi"}})

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, bot.activities)
}

func TestMessages_ReturnsReplies(t *testing.T) {
	bot := &fakeBot{replies: []model.Reply{{Text: "Please provide your employee id."}}}
	srv := newServer(bot, &fakePoster{}, nil)

	rec := postJSON(srv, "/api/messages", `{"user_id":"u-1","text":"I want to apply for leave"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp MessageResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, []model.Reply{{Text: "Please provide your employee id."}}, resp.Replies)

	require.Len(t, bot.activities, 1)
	assert.Equal(t, model.ActivityMessage, bot.activities[0].Type)
	assert.Equal(t, resp.ConversationID, bot.activities[0].ConversationID)
	assert.Equal(t, "en-US", bot.activities[0].Locale)
}

func TestMessages_Validation(t *testing.T) {
	cases := map[string]string{
		"missing user":  `{"text":"hi"}`,
		"missing text":  `{"user_id":"u"}`,
		"bad type":      `{"type":"typing","user_id":"u","text":"hi"}`,
		"bad locale":    `{"user_id":"u","text":"hi","locale":"not a locale"}`,
		"unknown field": `{"user_id":"u","text":"hi","extra":1}`,
		"not json":      `hello`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			bot := &fakeBot{}
			rec := postJSON(newServer(bot, &fakePoster{}, nil), "/api/messages", body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, bot.activities)
		})
	}
}

func TestMessages_ConversationUpdateNeedsNoText(t *testing.T) {
	bot := &fakeBot{}
	rec := postJSON(newServer(bot, &fakePoster{}, nil), "/api/messages", `{"type":"conversationUpdate","conversation_id":"c1","user_id":"u"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, bot.activities, 1)
	assert.Equal(t, model.ActivityConversationUpdate, bot.activities[0].Type)
}

func TestMessages_TurnErrors(t *testing.T) {
	t.Run("recognizer", func(t *testing.T) {
		bot := &fakeBot{err: errors.Join(service.ErrRecognizerUnavailable, errors.New("timeout"))}
		rec := postJSON(newServer(bot, &fakePoster{}, nil), "/api/messages", `{"user_id":"u","text":"hi"}`)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("storage", func(t *testing.T) {
		bot := &fakeBot{err: errors.New("redis down")}
		rec := postJSON(newServer(bot, &fakePoster{}, nil), "/api/messages", `{"user_id":"u","text":"hi"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestRateLimitPerUser(t *testing.T) {
	bot := &fakeBot{}
	srv := newServer(bot, &fakePoster{}, NewUserLimiter(0.001, 2))

	assert.Equal(t, http.StatusOK, postJSON(srv, "/api/messages", `{"user_id":"u1","text":"a"}`).Code)
	assert.Equal(t, http.StatusOK, postJSON(srv, "/api/messages", `{"user_id":"u1","text":"b"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, postJSON(srv, "/api/messages", `{"user_id":"u1","text":"c"}`).Code)
	assert.Equal(t, http.StatusOK, postJSON(srv, "/api/messages", `{"user_id":"u2","text":"a"}`).Code)
}

func TestNewUserLimiter_DisabledAllowsAll(t *testing.T) {
	var l *UserLimiter = NewUserLimiter(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("u"))
	}
}

func TestHealthAndReady(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHealth(mux, map[string]ReadyCheck{
		"mongo": func(context.Context) error { return errors.New("no primary") },
	})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no primary")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoggingMiddleware_LabelsByRoutePattern(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	mux := http.NewServeMux()
	NewLeaveHandler(&fakeBot{}, &fakePoster{}, "", "en-US", nil, zap.NewNop()).RegisterRoutes(mux)
	h := LoggingMiddleware(zap.New(core), mux)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wp-login.php?x=1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = postJSON(h, "/api/messages", `{"user_id":"u-1","text":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "unmatched", entries[0].ContextMap()["route"])
	assert.Equal(t, "/api/messages", entries[1].ContextMap()["route"])

	assert.False(t, metrics.RequestDuration.DeleteLabelValues(http.MethodGet, "/wp-login.php", "404"))
	assert.True(t, metrics.RequestDuration.DeleteLabelValues(http.MethodGet, "unmatched", "404"))
	assert.True(t, metrics.RequestDuration.DeleteLabelValues(http.MethodPost, "/api/messages", "200"))
}
