package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"leave-bot/internal/dateval"
	"leave-bot/internal/events"
	"leave-bot/internal/metrics"
	"leave-bot/internal/model"
)

var (
	ErrRecognizerUnavailable = errors.New("intent recognizer unavailable")
	ErrUnknownEmployee       = errors.New("no leave record for employee")
	ErrLeaveCapExceeded      = errors.New("leave cap reached")
	ErrMissingEntity         = errors.New("action entity missing")
)

// LeaveRecordStore is the persistence the leave service needs. AppendRequest
// must push the request and increment leavesTaken as one step.
type LeaveRecordStore interface {
	FindByEmployeeID(ctx context.Context, employeeID string) (*model.LeaveRecord, error)
	AppendRequest(ctx context.Context, employeeID string, req model.LeaveRequest) error
	QueryRequests(ctx context.Context, employeeID string, match func(model.LeaveRequest) bool) ([]model.LeaveRequest, error)
}

type LeaveService struct {
	store    LeaveRecordStore
	events   events.Publisher
	leaveCap int
	locks    *keyLock
	now      func() time.Time
	loc      *time.Location
	logger   *zap.Logger
}

func NewLeaveService(store LeaveRecordStore, pub events.Publisher, leaveCap int, logger *zap.Logger) *LeaveService {
	if pub == nil {
		pub = events.NewNoop()
	}
	if leaveCap <= 0 {
		leaveCap = model.DefaultLeaveCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{
		store:    store,
		events:   pub,
		leaveCap: leaveCap,
		locks:    newKeyLock(),
		now:      time.Now,
		loc:      time.Local,
		logger:   logger.Named("leave"),
	}
}

// WithClock overrides the time source and the zone stored dates are read in.
func (s *LeaveService) WithClock(now func() time.Time, loc *time.Location) *LeaveService {
	s.now = now
	if loc != nil {
		s.loc = loc
	}
	return s
}

// CheckEligibility returns the employee's record if they may apply for another leave.
func (s *LeaveService) CheckEligibility(ctx context.Context, employeeID string) (*model.LeaveRecord, error) {
	rec, err := s.store.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("find leave record: %w", err)
	}
	if rec == nil {
		return nil, ErrUnknownEmployee
	}
	if rec.LeavesTaken >= s.leaveCap {
		return rec, ErrLeaveCapExceeded
	}
	return rec, nil
}

// Submit re-checks eligibility and appends req under the employee's lock,
// then publishes the event once the lock is released. It returns the new
// leavesTaken.
func (s *LeaveService) Submit(ctx context.Context, employeeID string, req model.LeaveRequest) (int, error) {
	event, err := s.commit(ctx, employeeID, req)
	if err != nil {
		return 0, err
	}
	if err := s.events.PublishLeaveSubmitted(ctx, event); err != nil {
		s.logger.Warn("publish leave submitted failed", zap.String("employee_id", employeeID), zap.Error(err))
	}
	return event.LeavesTaken, nil
}

func (s *LeaveService) commit(ctx context.Context, employeeID string, req model.LeaveRequest) (model.LeaveSubmitted, error) {
	unlock := s.locks.Lock(employeeID)
	defer unlock()

	rec, err := s.CheckEligibility(ctx, employeeID)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownEmployee):
			metrics.RecordSubmission("unknown_employee")
		case errors.Is(err, ErrLeaveCapExceeded):
			metrics.RecordSubmission("cap_reached")
		default:
			metrics.RecordSubmission("error")
		}
		return model.LeaveSubmitted{}, err
	}

	if req.Type == "" {
		req.Type = model.LeaveTypeAnnual
	}
	if err := s.store.AppendRequest(ctx, employeeID, req); err != nil {
		metrics.RecordSubmission("error")
		return model.LeaveSubmitted{}, fmt.Errorf("append leave request: %w", err)
	}
	taken := rec.LeavesTaken + 1
	metrics.RecordSubmission("submitted")

	s.logger.Info("leave submitted",
		zap.String("employee_id", employeeID),
		zap.String("date", req.Date),
		zap.Int("leaves_taken", taken),
	)

	return model.LeaveSubmitted{
		EmployeeID:  employeeID,
		Date:        req.Date,
		Reason:      req.Reason,
		Comments:    req.Comments,
		LeavesTaken: taken,
		SubmittedAt: s.now().UTC().Format(time.RFC3339),
	}, nil
}

// View lists the employee's requests of the requested type. With a resolved
// date entity it keeps the requests inside that day or range, otherwise the
// ones dated after now.
func (s *LeaveService) View(ctx context.Context, employeeID string, entities model.Entities) ([]model.LeaveRequest, error) {
	rec, err := s.store.FindByEmployeeID(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("find leave record: %w", err)
	}
	if rec == nil {
		return nil, ErrUnknownEmployee
	}

	reqType, ok := entities.RequestType()
	if !ok {
		reqType = model.LeaveTypeAnnual
	}

	match := s.upcomingFilter(reqType)
	if d, ok := entities.DateTime(); ok && d.Resolved() {
		match = s.rangeFilter(reqType, *d.Start, d.End)
	}

	reqs, err := s.store.QueryRequests(ctx, employeeID, match)
	if err != nil {
		return nil, fmt.Errorf("query leave requests: %w", err)
	}
	return reqs, nil
}

func (s *LeaveService) upcomingFilter(reqType string) func(model.LeaveRequest) bool {
	now := s.now()
	return func(r model.LeaveRequest) bool {
		if r.Type != reqType {
			return false
		}
		d, err := dateval.ParseDate(r.Date, s.loc)
		return err == nil && d.After(now)
	}
}

func (s *LeaveService) rangeFilter(reqType string, start time.Time, end *time.Time) func(model.LeaveRequest) bool {
	from := dayOf(start, s.loc)
	to := from
	if end != nil {
		to = dayOf(*end, s.loc)
	}
	return func(r model.LeaveRequest) bool {
		if r.Type != reqType {
			return false
		}
		d, err := dateval.ParseDate(r.Date, s.loc)
		if err != nil {
			return false
		}
		day := dayOf(d, s.loc)
		return !day.Before(from) && !day.After(to)
	}
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
