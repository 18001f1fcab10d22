package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/joshua-takyi/campus-events/internal/models"
)

const (
	DateAll   = "all"
	DateToday = "today"
	DateWeek  = "week"
	DateMonth = "month"
)

// DateRange is an inclusive window on event_date.
type DateRange struct {
	From time.Time
	To   time.Time
}

// DateRangeResolver turns symbolic date tokens into concrete bounds in the
// campus location.
type DateRangeResolver struct {
	loc *time.Location
}

func NewDateRangeResolver(loc *time.Location) *DateRangeResolver {
	if loc == nil {
		loc = time.UTC
	}
	return &DateRangeResolver{loc: loc}
}

func (r *DateRangeResolver) Location() *time.Location {
	return r.loc
}

// StartOfDay returns local midnight of the day containing now.
func (r *DateRangeResolver) StartOfDay(now time.Time) time.Time {
	local := now.In(r.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, r.loc)
}

// Resolve returns nil for "all" (and an empty token). Weeks start on Monday.
func (r *DateRangeResolver) Resolve(token string, now time.Time) (*DateRange, error) {
	day := r.StartOfDay(now)

	switch strings.ToLower(strings.TrimSpace(token)) {
	case "", DateAll:
		return nil, nil
	case DateToday:
		return &DateRange{From: day, To: endBefore(day.AddDate(0, 0, 1))}, nil
	case DateWeek, "this_week":
		offset := (int(day.Weekday()) + 6) % 7
		monday := day.AddDate(0, 0, -offset)
		return &DateRange{From: monday, To: endBefore(monday.AddDate(0, 0, 7))}, nil
	case DateMonth, "this_month":
		first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, r.loc)
		return &DateRange{From: first, To: endBefore(first.AddDate(0, 1, 0))}, nil
	}
	return nil, fmt.Errorf("%w: unknown date range %q", models.ErrInvalidFilter, token)
}

func endBefore(t time.Time) time.Time {
	return t.Add(-time.Millisecond)
}
