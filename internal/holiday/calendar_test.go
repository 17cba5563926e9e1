package holiday

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leave-bot/internal/model"
)

const testCalendar = `
holidays:
  - date: 2026-12-25
    name: Christmas Day
  - date: 2026-10-19
    name: Founders Day
  - date: 2027-01-01
    name: New Year's Day
  - date: 2026-10-02
    name: Past Day
`

func fixedNow() time.Time {
	return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
}

func TestUpcoming_AfterToday(t *testing.T) {
	c, err := ParseYAML([]byte(testCalendar), time.UTC)
	require.NoError(t, err)

	got := c.Upcoming(fixedNow(), model.Entities{})

	require.Len(t, got, 2)
	assert.Equal(t, "Christmas Day", got[0].Name)
	assert.Equal(t, "New Year's Day", got[1].Name)
}

func TestUpcoming_WithinRange(t *testing.T) {
	c, err := ParseYAML([]byte(testCalendar), time.UTC)
	require.NoError(t, err)

	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 10, 31, 0, 0, 0, 0, time.UTC)
	got := c.Upcoming(fixedNow(), model.Entities{DateTimes: []model.DateTimeEntity{{Text: "october", Start: &start, End: &end}}})

	require.Len(t, got, 2)
	assert.Equal(t, "Past Day", got[0].Name)
	assert.Equal(t, "Founders Day", got[1].Name)
}

func TestListHolidays(t *testing.T) {
	c, err := ParseYAML([]byte(testCalendar), time.UTC)
	require.NoError(t, err)
	c.WithClock(fixedNow)

	reply := c.ListHolidays(context.Background(), model.Entities{})

	assert.Equal(t, "Upcoming holidays:", reply.Text)
	require.NotNil(t, reply.Card)
	assert.Equal(t, []string{"Fri Dec 25, 2026 - Christmas Day", "Fri Jan 1, 2027 - New Year's Day"}, reply.Card.Lines)
}

func TestListHolidays_None(t *testing.T) {
	c, err := ParseYAML([]byte("holidays: []"), time.UTC)
	require.NoError(t, err)

	reply := c.WithClock(fixedNow).ListHolidays(context.Background(), model.Entities{})

	assert.Equal(t, "No upcoming holidays found.", reply.Text)
	assert.Nil(t, reply.Card)
}

func TestParseYAML_Invalid(t *testing.T) {
	_, err := ParseYAML([]byte("holidays:\n  - date: someday\n    name: X\n"), time.UTC)
	assert.Error(t, err)

	_, err = ParseYAML([]byte("holidays:\n  - date: 2026-12-25\n"), time.UTC)
	assert.Error(t, err)
}

func TestLoad_DefaultCalendar(t *testing.T) {
	c, err := Load("", time.UTC)
	require.NoError(t, err)
	assert.NotEmpty(t, c.Upcoming(fixedNow(), model.Entities{}))
}
