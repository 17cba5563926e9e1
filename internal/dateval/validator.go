// Package dateval turns free-text date expressions into an upcoming working day.
package dateval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"golang.org/x/text/language"

	"leave-bot/internal/i18n"
)

var (
	ErrUnparseableDate = errors.New("unparseable date")
	ErrWeekendDate     = errors.New("date falls on a weekend")
	ErrNoUpcomingDate  = errors.New("no upcoming date")
)

// Source resolves text into candidate timestamps, in the order it found them.
type Source interface {
	Resolve(text string, now time.Time) ([]time.Time, error)
}

// Result is the outcome of Validate. StartDate is the stored form of Date,
// Display the user's localized form. On failure Err is one of the package
// errors and Message is the localized text to show the user.
type Result struct {
	Success   bool
	Date      time.Time
	StartDate string
	Display   string
	Err       error
	Message   string
}

// Validator checks that a date expression names a future weekday.
type Validator struct {
	sources []Source
	now     func() time.Time
	loc     *time.Location
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithSources replaces the default recognizers.
func WithSources(sources ...Source) Option {
	return func(v *Validator) { v.sources = sources }
}

// WithLocation sets the zone absolute dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(v *Validator) { v.loc = loc }
}

// New returns a Validator using absolute-date parsing followed by
// natural-language recognition.
func New(opts ...Option) *Validator {
	v := &Validator{now: time.Now, loc: time.Local}
	for _, o := range opts {
		o(v)
	}
	if v.sources == nil {
		v.sources = []Source{NewAbsoluteSource(v.loc), NewNaturalSource()}
	}
	return v
}

// Validate runs every source over input and picks the first decisive
// candidate: a weekend date rejects, a strictly future weekday accepts.
// Past weekdays are skipped. Without a decisive candidate the result is
// ErrUnparseableDate if a source failed, ErrNoUpcomingDate otherwise.
func (v *Validator) Validate(ctx context.Context, input string) Result {
	now := v.now()

	var (
		candidates []time.Time
		parseErr   error
	)
	for _, s := range v.sources {
		found, err := s.Resolve(input, now)
		if err != nil {
			parseErr = err
			continue
		}
		candidates = append(candidates, found...)
	}

	for _, c := range candidates {
		if IsWeekend(c) {
			return v.fail(ctx, ErrWeekendDate)
		}
		if c.After(now) {
			return Result{
				Success:   true,
				Date:      c,
				StartDate: StoreDate(c),
				Display:   FormatDate(ctx, c),
			}
		}
	}
	if parseErr != nil {
		return v.fail(ctx, fmt.Errorf("%w: %v", ErrUnparseableDate, parseErr))
	}
	return v.fail(ctx, ErrNoUpcomingDate)
}

func (v *Validator) fail(ctx context.Context, err error) Result {
	return Result{Err: err, Message: Message(ctx, err)}
}

// Message maps a validation error to the text shown to the user.
func Message(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, ErrWeekendDate):
		return i18n.T(ctx, "date.weekend")
	case errors.Is(err, ErrUnparseableDate):
		return i18n.T(ctx, "date.unparseable")
	default:
		return i18n.T(ctx, "date.not_upcoming")
	}
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

var (
	layoutMatcher = language.NewMatcher([]language.Tag{
		language.AmericanEnglish,
		language.BritishEnglish,
		language.Vietnamese,
	})
	layouts = []string{"1/2/2006", "02/01/2006", "2/1/2006"}
)

// StoredLayout is the layout of LeaveRequest dates, whatever the user's locale.
const StoredLayout = "1/2/2006"

// StoreDate renders t in StoredLayout.
func StoreDate(t time.Time) string {
	return t.Format(StoredLayout)
}

// FormatDate renders t the way the user's locale writes short dates.
// Only for display: stored dates use StoreDate.
func FormatDate(ctx context.Context, t time.Time) string {
	tag := language.Make(i18n.LocaleFromContext(ctx))
	_, idx, _ := layoutMatcher.Match(tag)
	return t.Format(layouts[idx])
}

// ParseDate reads back a stored date. Records that predate StoredLayout
// fall back to dateparse, which reads slashed dates month first.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation(StoredLayout, s, loc); err == nil {
		return t, nil
	}
	return dateparse.ParseIn(s, loc)
}

// LocalizeStored re-renders a stored date in the user's locale. Unreadable
// values are returned unchanged.
func LocalizeStored(ctx context.Context, s string, loc *time.Location) string {
	t, err := ParseDate(s, loc)
	if err != nil {
		return s
	}
	return FormatDate(ctx, t)
}

// AbsoluteSource recognizes explicit dates such as 2026-10-26 or 10/26/2026.
type AbsoluteSource struct {
	loc *time.Location
}

func NewAbsoluteSource(loc *time.Location) *AbsoluteSource {
	return &AbsoluteSource{loc: loc}
}

// Resolve never fails: text that isn't an explicit date yields no candidates.
func (s *AbsoluteSource) Resolve(text string, _ time.Time) ([]time.Time, error) {
	t, err := dateparse.ParseIn(text, s.loc)
	if err != nil {
		return nil, nil
	}
	return []time.Time{t}, nil
}

// NaturalSource recognizes relative English expressions ("next Monday", "tomorrow").
type NaturalSource struct {
	parser *when.Parser
}

func NewNaturalSource() *NaturalSource {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &NaturalSource{parser: w}
}

func (s *NaturalSource) Resolve(text string, now time.Time) ([]time.Time, error) {
	r, err := s.parser.Parse(text, now)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	return []time.Time{r.Time}, nil
}
