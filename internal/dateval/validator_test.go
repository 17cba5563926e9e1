package dateval_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leave-bot/internal/dateval"
	"leave-bot/internal/i18n"
)

// Monday morning.
var testNow = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

type fakeSource struct {
	dates []time.Time
	err   error
}

func (f fakeSource) Resolve(string, time.Time) ([]time.Time, error) {
	return f.dates, f.err
}

func newValidator(opts ...dateval.Option) *dateval.Validator {
	base := []dateval.Option{
		dateval.WithClock(func() time.Time { return testNow }),
		dateval.WithLocation(time.UTC),
	}
	return dateval.New(append(base, opts...)...)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestValidate_RelativeWeekday(t *testing.T) {
	res := newValidator().Validate(context.Background(), "next Monday")

	require.True(t, res.Success, res.Message)
	assert.Equal(t, time.Monday, res.Date.Weekday())
	assert.True(t, res.Date.After(testNow))
	assert.Equal(t, res.Date.Format("1/2/2006"), res.StartDate)
}

func TestValidate_Tomorrow(t *testing.T) {
	res := newValidator().Validate(context.Background(), "tomorrow")

	require.True(t, res.Success, res.Message)
	assert.Equal(t, "10/20/2026", res.StartDate)
}

func TestValidate_ExplicitFutureWeekday(t *testing.T) {
	res := newValidator().Validate(context.Background(), "2026-10-30")

	require.True(t, res.Success, res.Message)
	assert.Equal(t, day(2026, time.October, 30), res.Date)
	assert.Equal(t, "10/30/2026", res.StartDate)
}

func TestValidate_WeekendRejectedRegardlessOfDistance(t *testing.T) {
	for _, input := range []string{"2026-10-31", "2030-06-15", "2033-01-01"} {
		t.Run(input, func(t *testing.T) {
			res := newValidator().Validate(context.Background(), input)

			assert.False(t, res.Success)
			assert.ErrorIs(t, res.Err, dateval.ErrWeekendDate)
			assert.Equal(t, "The date you have mentioned falls on weekend.", res.Message)
		})
	}
}

func TestValidate_PastOrPresentRejected(t *testing.T) {
	v := newValidator(dateval.WithSources(fakeSource{dates: []time.Time{
		day(2026, time.October, 1),
		testNow,
	}}))

	res := v.Validate(context.Background(), "whatever")

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, dateval.ErrNoUpcomingDate)
	assert.Equal(t, "I'm sorry, please enter an upcoming date.", res.Message)
}

func TestValidate_ExplicitPastDate(t *testing.T) {
	res := newValidator().Validate(context.Background(), "2026-10-01")

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, dateval.ErrNoUpcomingDate)
}

func TestValidate_NoDateInText(t *testing.T) {
	res := newValidator().Validate(context.Background(), "vacation")

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, dateval.ErrNoUpcomingDate)
}

func TestValidate_SourceFailure(t *testing.T) {
	v := newValidator(dateval.WithSources(fakeSource{err: errors.New("boom")}))

	res := v.Validate(context.Background(), "next tuesday")

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, dateval.ErrUnparseableDate)
	assert.Equal(t,
		"I'm sorry, I could not interpret that as an appropriate date. Please enter an upcoming date.",
		res.Message)
}

func TestValidate_SourceFailureIgnoredWhenAnotherSourceAccepts(t *testing.T) {
	v := newValidator(dateval.WithSources(
		fakeSource{err: errors.New("boom")},
		fakeSource{dates: []time.Time{day(2026, time.October, 27)}},
	))

	res := v.Validate(context.Background(), "10/27/2026")

	require.True(t, res.Success)
	assert.Equal(t, "10/27/2026", res.StartDate)
}

func TestValidate_FirstDecisiveCandidateWins(t *testing.T) {
	t.Run("past weekday skipped, future weekday accepted before later weekend", func(t *testing.T) {
		v := newValidator(dateval.WithSources(fakeSource{dates: []time.Time{
			day(2026, time.September, 14),
			day(2026, time.October, 27),
			day(2026, time.October, 31),
		}}))

		res := v.Validate(context.Background(), "x")

		require.True(t, res.Success)
		assert.Equal(t, day(2026, time.October, 27), res.Date)
	})

	t.Run("weekend first rejects even if a weekday follows", func(t *testing.T) {
		v := newValidator(dateval.WithSources(fakeSource{dates: []time.Time{
			day(2026, time.October, 31),
			day(2026, time.November, 3),
		}}))

		res := v.Validate(context.Background(), "x")

		assert.ErrorIs(t, res.Err, dateval.ErrWeekendDate)
	})

	t.Run("two future weekdays pick the first", func(t *testing.T) {
		v := newValidator(dateval.WithSources(fakeSource{dates: []time.Time{
			day(2026, time.October, 20),
			day(2026, time.October, 27),
		}}))

		res := v.Validate(context.Background(), "x")

		require.True(t, res.Success)
		assert.Equal(t, day(2026, time.October, 20), res.Date)
	})
}

func TestParseDate_RoundTripsStoreDate(t *testing.T) {
	d := day(2026, time.November, 26)

	got, err := dateval.ParseDate(dateval.StoreDate(d), time.UTC)

	require.NoError(t, err)
	assert.Equal(t, d, got)
}

func TestValidate_StoredDateIgnoresLocale(t *testing.T) {
	for _, locale := range []string{"en-US", "en-GB", "vi"} {
		t.Run(locale, func(t *testing.T) {
			ctx := i18n.WithLocale(context.Background(), locale)

			res := newValidator().Validate(ctx, "2026-11-03")

			require.True(t, res.Success)
			assert.Equal(t, "11/3/2026", res.StartDate)

			got, err := dateval.ParseDate(res.StartDate, time.UTC)
			require.NoError(t, err)
			assert.Equal(t, day(2026, time.November, 3), got)
		})
	}
}

func TestFormatDate_FollowsLocale(t *testing.T) {
	d := day(2026, time.November, 3)

	assert.Equal(t, "11/3/2026", dateval.FormatDate(i18n.WithLocale(context.Background(), "en-US"), d))
	assert.Equal(t, "03/11/2026", dateval.FormatDate(i18n.WithLocale(context.Background(), "en-GB"), d))
	assert.Equal(t, "03/11/2026", dateval.LocalizeStored(i18n.WithLocale(context.Background(), "en-GB"), "11/3/2026", time.UTC))
	assert.Equal(t, "not a date", dateval.LocalizeStored(context.Background(), "not a date", time.UTC))
}
