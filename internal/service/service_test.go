package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"leave-bot/internal/dateval"
	"leave-bot/internal/model"
	"leave-bot/internal/service"
	"leave-bot/internal/store"
)

// Monday 19 October 2026, 09:00 UTC.
var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeRecognizer struct {
	results map[string]model.RecognitionResult
	err     error
	calls   []string
}

func (f *fakeRecognizer) Recognize(_ context.Context, text string) (model.RecognitionResult, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return model.RecognitionResult{}, f.err
	}
	if r, ok := f.results[text]; ok {
		return r, nil
	}
	return model.RecognitionResult{Text: text, TopIntent: model.IntentNone}, nil
}

func newFakeRecognizer() *fakeRecognizer {
	return &fakeRecognizer{results: map[string]model.RecognitionResult{
		"I want to apply for leave": {
			TopIntent: model.IntentLeaveRequests,
			Entities:  model.Entities{ActionTypes: []string{model.ActionApply}},
		},
		"show my leave requests": {
			TopIntent: model.IntentLeaveRequests,
			Entities:  model.Entities{ActionTypes: []string{model.ActionShow}, RequestTypes: []string{"leave"}},
		},
		"leave please": {
			TopIntent: model.IntentLeaveRequests,
		},
		"upcoming holidays": {
			TopIntent: model.IntentHolidays,
		},
		"hi": {
			TopIntent: model.IntentGreeting,
		},
		"apply for leave on 2026-10-30": {
			TopIntent: model.IntentLeaveRequests,
			Entities: model.Entities{
				ActionTypes: []string{model.ActionApply},
				DateTimes:   []model.DateTimeEntity{{Text: "2026-10-30"}},
			},
		},
		"apply for leave on 2026-10-31": {
			TopIntent: model.IntentLeaveRequests,
			Entities: model.Entities{
				ActionTypes: []string{model.ActionApply},
				DateTimes:   []model.DateTimeEntity{{Text: "2026-10-31"}},
			},
		},
	}}
}

type fakeHolidays struct{}

func (fakeHolidays) ListHolidays(context.Context, model.Entities) model.Reply {
	return model.Reply{Text: "Upcoming holidays:", Card: &model.Card{Lines: []string{"Fri Dec 25, 2026 - Christmas Day"}}}
}

type recordingSender struct {
	replies []model.Reply
	err     error
}

func (s *recordingSender) Send(_ context.Context, r model.Reply) error {
	if s.err != nil {
		return s.err
	}
	s.replies = append(s.replies, r)
	return nil
}

func (s *recordingSender) texts() []string {
	out := make([]string, 0, len(s.replies))
	for _, r := range s.replies {
		out = append(out, r.Text)
	}
	return out
}

type fakePublisher struct {
	mu        sync.Mutex
	events    []model.LeaveSubmitted
	err       error
	onPublish func()
}

func (p *fakePublisher) PublishLeaveSubmitted(_ context.Context, e model.LeaveSubmitted) error {
	p.mu.Lock()
	p.events = append(p.events, e)
	hook := p.onPublish
	p.onPublish = nil
	p.mu.Unlock()

	if hook != nil {
		hook()
	}
	return p.err
}

func (p *fakePublisher) Close() error { return nil }

var errStoreDown = errors.New("store down")

func seedRecords() []model.LeaveRecord {
	return []model.LeaveRecord{
		{EmployeeID: "E123", LeavesTaken: 2, LeaveRequests: []model.LeaveRequest{
			{Reason: "moving", Type: "leave", Date: "9/14/2026"},
			{Reason: "dentist", Type: "leave", Date: "10/5/2026"},
		}},
		{EmployeeID: "E200", LeavesTaken: 3, LeaveRequests: []model.LeaveRequest{
			{Reason: "old trip", Type: "leave", Date: "9/1/2026"},
			{Reason: "wedding", Type: "leave", Date: "11/3/2026"},
			{Reason: "flu", Type: "sick", Date: "12/1/2026"},
		}},
		{EmployeeID: "E026", LeavesTaken: 26},
		{EmployeeID: "E027", LeavesTaken: 27},
	}
}

type harness struct {
	bot        *service.Bot
	records    *store.MemoryLeaveRecords
	state      *store.MemoryState
	recognizer *fakeRecognizer
	publisher  *fakePublisher
	locale     string
}

func newHarness() *harness {
	records := store.NewMemoryLeaveRecords(seedRecords()...)
	state := store.NewMemoryState()
	rec := newFakeRecognizer()
	pub := &fakePublisher{}
	leave := service.NewLeaveService(records, pub, model.DefaultLeaveCap, nil).WithClock(clock, time.UTC)
	dates := dateval.New(dateval.WithClock(clock), dateval.WithLocation(time.UTC))
	return &harness{
		bot:        service.NewBot(state, rec, leave, fakeHolidays{}, dates, nil),
		records:    records,
		state:      state,
		recognizer: rec,
		publisher:  pub,
	}
}

// say sends one message in conversation "conv-1" from user "u-1" and returns the reply texts.
func (h *harness) say(text string) ([]string, error) {
	s := &recordingSender{}
	err := h.bot.OnTurn(context.Background(), model.Activity{
		Type:           model.ActivityMessage,
		ConversationID: "conv-1",
		UserID:         "u-1",
		Text:           text,
		Locale:         h.locale,
	}, s)
	return s.texts(), err
}

func (h *harness) sayReplies(text string) ([]model.Reply, error) {
	s := &recordingSender{}
	err := h.bot.OnTurn(context.Background(), model.Activity{
		Type:           model.ActivityMessage,
		ConversationID: "conv-1",
		UserID:         "u-1",
		Text:           text,
		Locale:         h.locale,
	}, s)
	return s.replies, err
}

func (h *harness) flow() *model.ConversationFlow {
	f, _ := h.state.LoadFlow(context.Background(), "conv-1")
	return f
}

func (h *harness) profile() *model.UserProfile {
	p, _ := h.state.LoadProfile(context.Background(), "u-1")
	return p
}

func (h *harness) record(id string) *model.LeaveRecord {
	r, _ := h.records.FindByEmployeeID(context.Background(), id)
	return r
}
