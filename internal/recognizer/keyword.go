package recognizer

import (
	"context"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"leave-bot/internal/model"
)

// Keyword is a rule-based recognizer for development and tests. It never fails.
type Keyword struct {
	dates *when.Parser
	now   func() time.Time
}

func NewKeyword() *Keyword {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &Keyword{dates: w, now: time.Now}
}

// WithClock fixes the reference time used to resolve relative dates.
func (k *Keyword) WithClock(now func() time.Time) *Keyword {
	k.now = now
	return k
}

func (k *Keyword) Name() string { return "keyword" }

var (
	greetingWords = []string{"hi", "hello", "hey", "good morning", "good afternoon"}
	introPhrases  = []string{"who are you", "what can you do", "help"}
	applyWords    = []string{"apply", "take", "book"}
	showWords     = []string{"show", "view", "list", "see", "my requests"}
)

// Most specific first: "sick leave" is a sick request.
var requestTypes = []string{"sick", "leave"}

func (k *Keyword) Recognize(_ context.Context, text string) (model.RecognitionResult, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	result := model.RecognitionResult{Text: text, TopIntent: model.IntentNone, Score: 1}

	switch {
	case strings.Contains(lower, "holiday"):
		result.TopIntent = model.IntentHolidays
	case containsAny(lower, "leave", "request"):
		result.TopIntent = model.IntentLeaveRequests
		switch {
		case containsWord(lower, applyWords...):
			result.Entities.ActionTypes = []string{model.ActionApply}
		case containsWord(lower, showWords...):
			result.Entities.ActionTypes = []string{model.ActionShow}
		}
		for _, rt := range requestTypes {
			if containsWord(lower, rt, rt+"s") {
				result.Entities.RequestTypes = []string{rt}
				break
			}
		}
	case containsWord(lower, greetingWords...):
		result.TopIntent = model.IntentGreeting
	case containsAny(lower, introPhrases...):
		result.TopIntent = model.IntentIntroduction
	default:
		result.Score = 0
	}

	if result.TopIntent == model.IntentLeaveRequests || result.TopIntent == model.IntentHolidays {
		if r, err := k.dates.Parse(text, k.now()); err == nil && r != nil {
			start := r.Time
			result.Entities.DateTimes = []model.DateTimeEntity{{Text: r.Text, Start: &start}}
		}
	}
	return result, nil
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// containsWord matches whole words or phrases only.
func containsWord(s string, words ...string) bool {
	padded := " " + strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return ' '
	}, s) + " "
	for _, w := range words {
		if strings.Contains(padded, " "+w+" ") {
			return true
		}
	}
	return false
}
