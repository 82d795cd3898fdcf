package schedule

import (
	"context"
	"time"

	"mycal/src-server/model"
)

type Stats struct {
	Total             int            `json:"total"`
	TotalCurrentWeek  int            `json:"total-current-week"`
	TotalCurrentMonth int            `json:"total-current-month"`
	PerDay            map[string]int `json:"per-days"`
}

// Statistics aggregates occupancy over the whole collection: the total, the
// totals for the rest of the current calendar week and for the current
// calendar month, and a per-day histogram.
func (e *Engine) Statistics(ctx context.Context) (*Stats, error) {
	today := e.Now()

	// "current week" runs from today through this week's Sunday, not a full
	// Monday-start week
	weekEnd := today.AddDate(0, 0, 6-weekdayFromMonday(today))
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	monthEnd := time.Date(today.Year(), today.Month(), daysInMonth(today.Year(), today.Month()), 0, 0, 0, 0, today.Location())

	start := time.Now()
	total, err := model.CountEvents(ctx, e.db)
	if err != nil {
		return nil, err
	}
	totalCurrentWeek, err := model.CountEventsInRange(ctx, e.db,
		today.Format(model.DateLayout), weekEnd.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}
	totalCurrentMonth, err := model.CountEventsInRange(ctx, e.db,
		monthStart.Format(model.DateLayout), monthEnd.Format(model.DateLayout))
	if err != nil {
		return nil, err
	}
	perDay, err := model.GroupCountByDate(ctx, e.db)
	if err != nil {
		return nil, err
	}
	e.reportRead(start)

	return &Stats{
		Total:             total,
		TotalCurrentWeek:  totalCurrentWeek,
		TotalCurrentMonth: totalCurrentMonth,
		PerDay:            perDay,
	}, nil
}

// weekdayFromMonday numbers weekdays Monday=0 through Sunday=6.
func weekdayFromMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// daysInMonth uses a simplified leap rule for output compatibility with
// earlier releases: February has 29 days whenever the year is divisible by
// 4, century years included.
func daysInMonth(year int, month time.Month) int {
	switch month {
	case time.January, time.March, time.May, time.July, time.August, time.October, time.December:
		return 31
	case time.February:
		if year%4 == 0 {
			return 29
		}
		return 28
	default:
		return 30
	}
}
