package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"leave-bot/internal/mattermost"
	"leave-bot/internal/model"
	"leave-bot/internal/service"
)

// TurnHandler runs one conversation turn.
type TurnHandler interface {
	OnTurn(ctx context.Context, activity model.Activity, sender service.Sender) error
}

// Poster posts to a Mattermost channel.
type Poster interface {
	CreatePost(ctx context.Context, post *mattermost.Post) (*mattermost.Post, error)
}

type LeaveHandler struct {
	bot           TurnHandler
	mm            Poster
	webhookToken  string
	defaultLocale string
	limiter       *UserLimiter
	validate      *validator.Validate
	logger        *zap.Logger
}

func NewLeaveHandler(bot TurnHandler, mm Poster, webhookToken, defaultLocale string, limiter *UserLimiter, logger *zap.Logger) *LeaveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveHandler{
		bot:           bot,
		mm:            mm,
		webhookToken:  webhookToken,
		defaultLocale: defaultLocale,
		limiter:       limiter,
		validate:      validator.New(),
		logger:        logger.Named("handler"),
	}
}

func (h *LeaveHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/leave/webhook", h.HandleWebhook)
	mux.HandleFunc("POST /api/messages", h.HandleMessage)
}

// HandleWebhook handles a Mattermost outgoing webhook. Replies are posted to
// the channel the message came from.
func (h *LeaveHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	hook, err := mattermost.ParseOutgoingWebhook(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	if h.webhookToken != "" && subtle.ConstantTimeCompare([]byte(hook.Token), []byte(h.webhookToken)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	if hook.ChannelID == "" || hook.UserID == "" {
		writeError(w, http.StatusBadRequest, "channel_id and user_id are required")
		return
	}
	if !h.limiter.Allow(hook.UserID) {
		writeError(w, http.StatusTooManyRequests, "too many messages")
		return
	}

	activity := model.Activity{
		Type:           model.ActivityMessage,
		ConversationID: hook.ChannelID,
		UserID:         hook.UserID,
		UserName:       hook.UserName,
		Text:           stripTrigger(hook.Text, hook.TriggerWord),
		Locale:         h.defaultLocale,
	}
	sender := &channelSender{mm: h.mm, channelID: hook.ChannelID}
	if err := h.bot.OnTurn(r.Context(), activity, sender); err != nil {
		h.turnFailed(w, r, activity, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{})
}

// MessageRequest is the body of POST /api/messages.
type MessageRequest struct {
	Type           string `json:"type" validate:"omitempty,oneof=message conversationUpdate"`
	ConversationID string `json:"conversation_id" validate:"omitempty,max=128"`
	UserID         string `json:"user_id" validate:"required,max=128"`
	UserName       string `json:"user_name"`
	Text           string `json:"text" validate:"required_unless=Type conversationUpdate,max=2000"`
	Locale         string `json:"locale" validate:"omitempty,bcp47_language_tag"`
}

type MessageResponse struct {
	ConversationID string        `json:"conversation_id"`
	Replies        []model.Reply `json:"replies"`
}

// HandleMessage runs a turn for a plain JSON client and returns the replies in the response.
func (h *LeaveHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}
	if !h.limiter.Allow(req.UserID) {
		writeError(w, http.StatusTooManyRequests, "too many messages")
		return
	}

	if req.Type == "" {
		req.Type = model.ActivityMessage
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.NewString()
	}
	if req.Locale == "" {
		req.Locale = h.defaultLocale
	}

	activity := model.Activity{
		Type:           req.Type,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		UserName:       req.UserName,
		Text:           req.Text,
		Locale:         req.Locale,
	}
	sender := &bufferSender{}
	if err := h.bot.OnTurn(r.Context(), activity, sender); err != nil {
		h.turnFailed(w, r, activity, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{ConversationID: req.ConversationID, Replies: sender.replies})
}

func (h *LeaveHandler) turnFailed(w http.ResponseWriter, r *http.Request, a model.Activity, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, service.ErrRecognizerUnavailable) {
		status = http.StatusBadGateway
	}
	h.logger.Error("turn failed",
		zap.String("correlation_id", CorrelationID(r.Context())),
		zap.String("conversation_id", a.ConversationID),
		zap.String("user_id", a.UserID),
		zap.Error(err),
	)
	writeError(w, status, http.StatusText(status))
}

// stripTrigger removes the trigger word Mattermost includes at the start of the text.
func stripTrigger(text, trigger string) string {
	text = strings.TrimSpace(text)
	if trigger != "" && strings.HasPrefix(text, trigger) {
		text = strings.TrimSpace(strings.TrimPrefix(text, trigger))
	}
	return text
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid request"
	}
	fe := verrs[0]
	return "invalid field " + strings.ToLower(fe.Field()) + ": " + fe.Tag()
}

type channelSender struct {
	mm        Poster
	channelID string
}

func (s *channelSender) Send(ctx context.Context, r model.Reply) error {
	_, err := s.mm.CreatePost(ctx, mattermost.PostFromReply(s.channelID, r))
	return err
}

type bufferSender struct {
	replies []model.Reply
}

func (s *bufferSender) Send(_ context.Context, r model.Reply) error {
	s.replies = append(s.replies, r)
	return nil
}
