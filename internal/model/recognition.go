package model

import "time"

// Intent labels produced by the recognizer.
const (
	IntentGreeting      = "Greeting"
	IntentIntroduction  = "Introduction"
	IntentHolidays      = "Upcoming Holidays"
	IntentLeaveRequests = "leave_requests"
	IntentNone          = "None"
)

// Action keywords carried by the action_types entity.
const (
	ActionApply = "apply"
	ActionShow  = "show"
)

// RecognitionResult is what the recognizer returns for one utterance.
type RecognitionResult struct {
	Text      string   `json:"text"`
	TopIntent string   `json:"top_intent"`
	Score     float64  `json:"score,omitempty"`
	Entities  Entities `json:"entities"`
}

// Entities holds the entity kinds the bot understands. A nil slice means
// the recognizer did not extract that kind.
type Entities struct {
	ActionTypes  []string         `json:"action_types,omitempty"`
	RequestTypes []string         `json:"request_types,omitempty"`
	DateTimes    []DateTimeEntity `json:"datetime,omitempty"`
}

// Action returns the first action keyword, if any.
func (e Entities) Action() (string, bool) {
	if len(e.ActionTypes) == 0 {
		return "", false
	}
	return e.ActionTypes[0], true
}

// RequestType returns the first request type, if any.
func (e Entities) RequestType() (string, bool) {
	if len(e.RequestTypes) == 0 {
		return "", false
	}
	return e.RequestTypes[0], true
}

// DateTime returns the first date/time entity, if any.
func (e Entities) DateTime() (DateTimeEntity, bool) {
	if len(e.DateTimes) == 0 {
		return DateTimeEntity{}, false
	}
	return e.DateTimes[0], true
}

// DateTimeEntity is a recognized date expression. Start/End are set when the
// recognizer resolved it; End is nil for a single point in time.
type DateTimeEntity struct {
	Text  string     `json:"text"`
	Timex string     `json:"timex,omitempty"`
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Resolved reports whether the entity carries a concrete start.
func (d DateTimeEntity) Resolved() bool {
	return d.Start != nil
}
