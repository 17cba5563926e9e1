// Package holiday answers "upcoming holidays" questions from a static calendar.
package holiday

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"leave-bot/internal/i18n"
	"leave-bot/internal/model"
)

//go:embed holidays.yaml
var defaultCalendar []byte

const displayLayout = "Mon Jan 2, 2006"

type Holiday struct {
	Date time.Time
	Name string
}

type calendarFile struct {
	Holidays []struct {
		Date string `yaml:"date"`
		Name string `yaml:"name"`
	} `yaml:"holidays"`
}

// Calendar is an immutable, date-ordered list of holidays.
type Calendar struct {
	holidays []Holiday
	now      func() time.Time
}

// ParseYAML reads a calendar document. Dates are YYYY-MM-DD in loc.
func ParseYAML(b []byte, loc *time.Location) (*Calendar, error) {
	var f calendarFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("holiday: parse calendar: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}

	c := &Calendar{now: time.Now}
	for i, h := range f.Holidays {
		d, err := time.ParseInLocation(time.DateOnly, strings.TrimSpace(h.Date), loc)
		if err != nil {
			return nil, fmt.Errorf("holiday: entry %d: %w", i, err)
		}
		if strings.TrimSpace(h.Name) == "" {
			return nil, fmt.Errorf("holiday: entry %d: missing name", i)
		}
		c.holidays = append(c.holidays, Holiday{Date: d, Name: h.Name})
	}
	sort.SliceStable(c.holidays, func(i, j int) bool {
		return c.holidays[i].Date.Before(c.holidays[j].Date)
	})
	return c, nil
}

// Load reads a calendar from path, or the built-in calendar when path is empty.
func Load(path string, loc *time.Location) (*Calendar, error) {
	if path == "" {
		return ParseYAML(defaultCalendar, loc)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("holiday: read %s: %w", path, err)
	}
	return ParseYAML(b, loc)
}

// WithClock overrides time.Now.
func (c *Calendar) WithClock(now func() time.Time) *Calendar {
	c.now = now
	return c
}

// Upcoming returns holidays after today. When entities carry a resolved date,
// it returns the holidays inside that day or range instead.
func (c *Calendar) Upcoming(now time.Time, entities model.Entities) []Holiday {
	if d, ok := entities.DateTime(); ok && d.Resolved() {
		start := truncateDay(*d.Start)
		end := start
		if d.End != nil {
			end = truncateDay(*d.End)
		}
		return c.filter(func(h Holiday) bool {
			day := truncateDay(h.Date)
			return !day.Before(start) && !day.After(end)
		})
	}

	today := truncateDay(now)
	return c.filter(func(h Holiday) bool {
		return truncateDay(h.Date).After(today)
	})
}

// ListHolidays renders the upcoming holidays as a reply.
func (c *Calendar) ListHolidays(ctx context.Context, entities model.Entities) model.Reply {
	found := c.Upcoming(c.now(), entities)
	if len(found) == 0 {
		return model.Reply{Text: i18n.T(ctx, "holiday.none")}
	}

	lines := make([]string, 0, len(found))
	for _, h := range found {
		lines = append(lines, i18n.T(ctx, "holiday.line", map[string]any{
			"Date": h.Date.Format(displayLayout),
			"Name": h.Name,
		}))
	}
	return model.Reply{Text: i18n.T(ctx, "holiday.header"), Card: &model.Card{Lines: lines}}
}

func (c *Calendar) filter(keep func(Holiday) bool) []Holiday {
	var out []Holiday
	for _, h := range c.holidays {
		if keep(h) {
			out = append(out, h)
		}
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
