package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"leave-bot/internal/dateval"
	"leave-bot/internal/i18n"
	"leave-bot/internal/metrics"
	"leave-bot/internal/model"
)

type Recognizer interface {
	Recognize(ctx context.Context, text string) (model.RecognitionResult, error)
}

// StateStore persists the per-conversation flow and the per-user profile.
type StateStore interface {
	LoadFlow(ctx context.Context, conversationID string) (*model.ConversationFlow, error)
	SaveFlow(ctx context.Context, conversationID string, flow *model.ConversationFlow) error
	LoadProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	SaveProfile(ctx context.Context, userID string, profile *model.UserProfile) error
}

type HolidayLister interface {
	ListHolidays(ctx context.Context, entities model.Entities) model.Reply
}

type DateValidator interface {
	Validate(ctx context.Context, input string) dateval.Result
}

// Sender delivers replies to the channel the turn came from.
type Sender interface {
	Send(ctx context.Context, reply model.Reply) error
}

// Bot runs the leave dialogue one turn at a time.
type Bot struct {
	state      StateStore
	recognizer Recognizer
	leave      *LeaveService
	holidays   HolidayLister
	dates      DateValidator
	turns      *keyLock
	logger     *zap.Logger
}

func NewBot(state StateStore, recognizer Recognizer, leave *LeaveService, holidays HolidayLister, dates DateValidator, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{
		state:      state,
		recognizer: recognizer,
		leave:      leave,
		holidays:   holidays,
		dates:      dates,
		turns:      newKeyLock(),
		logger:     logger.Named("dialog"),
	}
}

// OnTurn handles one inbound activity. State is saved before any reply is sent.
// Turns of the same conversation run one after another.
func (b *Bot) OnTurn(ctx context.Context, activity model.Activity, sender Sender) error {
	ctx = i18n.WithLocale(ctx, activity.Locale)

	switch activity.Type {
	case model.ActivityConversationUpdate:
		return sender.Send(ctx, model.Reply{Text: i18n.T(ctx, "welcome")})
	case model.ActivityMessage:
	default:
		b.logger.Debug("ignoring activity", zap.String("type", activity.Type))
		return nil
	}

	unlock := b.turns.Lock(activity.ConversationID)
	defer unlock()

	flow, err := b.state.LoadFlow(ctx, activity.ConversationID)
	if err != nil {
		return err
	}
	profile, err := b.state.LoadProfile(ctx, activity.UserID)
	if err != nil {
		return err
	}

	log := b.logger.With(
		zap.String("conversation_id", activity.ConversationID),
		zap.String("user_id", activity.UserID),
		zap.String("stage", string(flow.Stage())),
	)

	t := &turn{ctx: ctx, flow: flow, profile: profile, log: log}
	if err := b.step(t, activity.Text); err != nil {
		return err
	}

	if err := b.state.SaveFlow(ctx, activity.ConversationID, flow); err != nil {
		return err
	}
	if err := b.state.SaveProfile(ctx, activity.UserID, profile); err != nil {
		return err
	}

	for _, r := range t.replies {
		if err := sender.Send(ctx, r); err != nil {
			return fmt.Errorf("send reply: %w", err)
		}
	}
	return nil
}

// turn carries the state one message works on and the replies it produces.
type turn struct {
	ctx     context.Context
	flow    *model.ConversationFlow
	profile *model.UserProfile
	replies []model.Reply
	log     *zap.Logger
}

func (t *turn) say(id string, data ...map[string]any) {
	t.replies = append(t.replies, model.Reply{Text: i18n.T(t.ctx, id, data...)})
}

func (t *turn) reply(r model.Reply) {
	t.replies = append(t.replies, r)
}

func (b *Bot) step(t *turn, text string) error {
	if !t.flow.PendingIdentifier {
		result, err := b.recognize(t.ctx, text)
		if err != nil {
			return err
		}
		t.flow.BufferedRecognitions = append(t.flow.BufferedRecognitions[:0], result)
		t.flow.PendingIdentifier = true
		t.say("prompt.employee_id")
		return nil
	}

	switch t.flow.Stage() {
	case model.StageNone:
		return b.route(t, text)
	case model.StageDate, model.StageReason:
		b.collectDate(t, text)
	case model.StageComment:
		t.profile.Reason = text
		t.flow.PendingDetailStage = model.StageConfirm
		t.say("prompt.comment")
	case model.StageConfirm:
		t.profile.Comment = text
		t.flow.PendingDetailStage = model.StageSubmitted
		t.say("prompt.verify")
		t.say("prompt.summary", map[string]any{
			"Date":    dateval.LocalizeStored(t.ctx, t.profile.LeaveDate, b.leave.loc),
			"Reason":  t.profile.Reason,
			"Comment": t.profile.Comment,
		})
		t.say("prompt.confirm")
	case model.StageSubmitted:
		return b.confirm(t, text)
	default:
		t.log.Warn("unknown detail stage, resetting")
		t.flow.PendingDetailStage = model.StageNone
		t.say("err.not_understood")
	}
	return nil
}

func (b *Bot) route(t *turn, text string) error {
	if t.profile.ID == "" {
		t.profile.ID = strings.TrimSpace(text)
	}

	result, ok := t.flow.TakeBuffered()
	if !ok {
		var err error
		if result, err = b.recognize(t.ctx, text); err != nil {
			return err
		}
	}

	route := RouteFor(result)
	metrics.RecordTurn(string(route))
	t.log.Info("routed", zap.String("intent", result.TopIntent), zap.String("route", string(route)))

	switch route {
	case RouteGreeting:
		t.say("intro")
	case RouteListHolidays:
		t.reply(b.holidays.ListHolidays(t.ctx, result.Entities))
	case RouteApplyLeave:
		return b.applyForLeave(t, result.Entities)
	case RouteViewLeave:
		return b.viewLeave(t, result.Entities)
	default:
		if result.TopIntent == model.IntentLeaveRequests {
			t.log.Debug("leave request without action", zap.Error(ErrMissingEntity))
		}
		t.say("err.not_understood")
	}
	return nil
}

func (b *Bot) applyForLeave(t *turn, entities model.Entities) error {
	_, err := b.leave.CheckEligibility(t.ctx, t.profile.ID)
	switch {
	case errors.Is(err, ErrUnknownEmployee):
		t.say("leave.no_record", map[string]any{"ID": t.profile.ID})
		return nil
	case errors.Is(err, ErrLeaveCapExceeded):
		t.say("leave.cap_reached")
		return nil
	case err != nil:
		return err
	}

	if d, ok := entities.DateTime(); ok && d.Text != "" {
		res := b.dates.Validate(t.ctx, d.Text)
		if res.Success {
			t.profile.LeaveDate = res.StartDate
			t.flow.PendingDetailStage = model.StageComment
			t.say("leave.date_noted", map[string]any{"Date": res.Display})
			t.say("prompt.reason")
			return nil
		}
		recordRejection(res.Err)
		t.reply(model.Reply{Text: res.Message})
	}

	b.askForDate(t)
	return nil
}

func (b *Bot) askForDate(t *turn) {
	t.flow.PendingDetailStage = model.StageDate
	t.say("prompt.date")
}

func (b *Bot) collectDate(t *turn, text string) {
	res := b.dates.Validate(t.ctx, text)
	if !res.Success {
		recordRejection(res.Err)
		t.reply(model.Reply{Text: res.Message})
		return
	}
	t.profile.LeaveDate = res.StartDate
	t.flow.PendingDetailStage = model.StageComment
	t.say("prompt.reason")
}

func (b *Bot) confirm(t *turn, text string) error {
	answer := strings.TrimSpace(text)
	switch {
	case strings.EqualFold(answer, "y"):
		_, err := b.leave.Submit(t.ctx, t.profile.ID, model.LeaveRequest{
			Reason:   t.profile.Reason,
			Type:     model.LeaveTypeAnnual,
			Date:     t.profile.LeaveDate,
			Comments: t.profile.Comment,
		})
		switch {
		case errors.Is(err, ErrUnknownEmployee):
			t.say("leave.no_record", map[string]any{"ID": t.profile.ID})
		case errors.Is(err, ErrLeaveCapExceeded):
			t.say("leave.cap_reached")
		case err != nil:
			return err
		default:
			t.say("leave.updated")
		}
	case strings.EqualFold(answer, "n"):
		metrics.RecordSubmission("cancelled")
		t.say("leave.cancelled")
	default:
		t.say("prompt.yes_no")
		return nil
	}

	t.flow.PendingDetailStage = model.StageNone
	t.profile.ClearApplication()
	return nil
}

func (b *Bot) viewLeave(t *turn, entities model.Entities) error {
	reqs, err := b.leave.View(t.ctx, t.profile.ID, entities)
	if errors.Is(err, ErrUnknownEmployee) {
		t.say("leave.no_record", map[string]any{"ID": t.profile.ID})
		return nil
	}
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		t.say("leave.no_upcoming", map[string]any{"ID": t.profile.ID})
		return nil
	}

	lines := make([]string, 0, len(reqs))
	for _, r := range reqs {
		lines = append(lines, i18n.T(t.ctx, "leave.card_line", map[string]any{
			"Date":   dateval.LocalizeStored(t.ctx, r.Date, b.leave.loc),
			"Reason": r.Reason,
		}))
	}
	t.reply(model.Reply{
		Text: i18n.T(t.ctx, "leave.submitted_list"),
		Card: &model.Card{Lines: lines},
	})
	return nil
}

func (b *Bot) recognize(ctx context.Context, text string) (model.RecognitionResult, error) {
	result, err := b.recognizer.Recognize(ctx, text)
	if err != nil {
		name := "unknown"
		if n, ok := b.recognizer.(interface{ Name() string }); ok {
			name = n.Name()
		}
		metrics.RecordRecognizerFailure(name)
		return model.RecognitionResult{}, fmt.Errorf("%w: %v", ErrRecognizerUnavailable, err)
	}
	if result.Text == "" {
		result.Text = text
	}
	return result, nil
}

func recordRejection(err error) {
	switch {
	case errors.Is(err, dateval.ErrWeekendDate):
		metrics.RecordDateRejection("weekend")
	case errors.Is(err, dateval.ErrUnparseableDate):
		metrics.RecordDateRejection("unparseable")
	default:
		metrics.RecordDateRejection("not_upcoming")
	}
}
