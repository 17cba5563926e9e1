package service

import "leave-bot/internal/model"

// Route is what the bot does with a recognized utterance.
type Route string

const (
	RouteGreeting     Route = "greeting"
	RouteListHolidays Route = "list_holidays"
	RouteApplyLeave   Route = "apply_leave"
	RouteViewLeave    Route = "view_leave"
	RouteUnknown      Route = "unknown"
)

// RouteFor maps a recognition result to a route. Intent labels and action
// keywords must match exactly.
func RouteFor(result model.RecognitionResult) Route {
	switch result.TopIntent {
	case model.IntentGreeting, model.IntentIntroduction:
		return RouteGreeting
	case model.IntentHolidays:
		return RouteListHolidays
	case model.IntentLeaveRequests:
		action, ok := result.Entities.Action()
		if !ok {
			return RouteUnknown
		}
		switch action {
		case model.ActionApply:
			return RouteApplyLeave
		case model.ActionShow:
			return RouteViewLeave
		}
	}
	return RouteUnknown
}
