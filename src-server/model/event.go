package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

// Storage layouts. Dates and times are kept as fixed-width strings so that
// lexical order equals temporal order, both in SQL and in Go comparisons.
const (
	DateLayout       = "2006-01-02"
	TimeLayout       = "15:04:05"
	LastUpdateLayout = "2006-01-02 15:04:05"
)

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          int64  `bun:"id,pk,autoincrement"`
	Name        string `bun:"name,notnull"`
	Date        string `bun:"date,notnull"`       // 2006-01-02
	StartTime   string `bun:"start_time,notnull"` // 15:04:05
	EndTime     string `bun:"end_time,notnull"`   // 15:04:05
	Street      string `bun:"street,notnull"`
	Suburb      string `bun:"suburb,notnull"`
	State       string `bun:"state,notnull"`
	PostCode    int    `bun:"post_code,notnull"`
	Description string `bun:"description,notnull"`
	LastUpdate  string `bun:"last_update,notnull"`
}

// EventByID fetches one event, nil when the id is unknown.
func EventByID(ctx context.Context, db bun.IDB, id int64) (*Event, error) {
	event := new(Event)
	if err := db.NewSelect().
		Model(event).
		Where("id = ?", id).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("EventByID: %w", err)
	}
	return event, nil
}

// EventsByDate returns all events on one calendar date, id ascending.
func EventsByDate(ctx context.Context, db bun.IDB, date string) ([]Event, error) {
	events := make([]Event, 0)
	if err := db.NewSelect().
		Model(&events).
		Where("date = ?", date).
		Order("id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("EventsByDate: %w", err)
	}
	return events, nil
}

// AllEvents returns the whole collection, id ascending.
func AllEvents(ctx context.Context, db bun.IDB) ([]Event, error) {
	events := make([]Event, 0)
	if err := db.NewSelect().
		Model(&events).
		Order("id ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("AllEvents: %w", err)
	}
	return events, nil
}

func CountEvents(ctx context.Context, db bun.IDB) (int, error) {
	count, err := db.NewSelect().
		Model((*Event)(nil)).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("CountEvents: %w", err)
	}
	return count, nil
}

// CountEventsInRange counts events with date in [dateStart, dateEnd], both
// inclusive.
func CountEventsInRange(ctx context.Context, db bun.IDB, dateStart, dateEnd string) (int, error) {
	count, err := db.NewSelect().
		Model((*Event)(nil)).
		Where("date >= ?", dateStart).
		Where("date <= ?", dateEnd).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("CountEventsInRange: %w", err)
	}
	return count, nil
}

// GroupCountByDate returns the number of events per calendar date.
func GroupCountByDate(ctx context.Context, db bun.IDB) (map[string]int, error) {
	var rows []struct {
		Date  string `bun:"date"`
		Count int    `bun:"count"`
	}
	if err := db.NewSelect().
		Model((*Event)(nil)).
		ColumnExpr("date").
		ColumnExpr("count(id) AS count").
		GroupExpr("date").
		Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("GroupCountByDate: %w", err)
	}
	perDay := make(map[string]int, len(rows))
	for _, row := range rows {
		perDay[row.Date] = row.Count
	}
	return perDay, nil
}

// PreviousEvent returns the chronologically closest event before e, nil when
// e is the earliest.
func PreviousEvent(ctx context.Context, db bun.IDB, e *Event) (*Event, error) {
	previous := new(Event)
	if err := db.NewSelect().
		Model(previous).
		Where("(date < ?) OR (date = ? AND start_time < ?)", e.Date, e.Date, e.StartTime).
		OrderExpr("date DESC, start_time DESC").
		Limit(1).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("PreviousEvent: %w", err)
	}
	return previous, nil
}

// NextEvent returns the chronologically closest event after e, nil when e is
// the latest.
func NextEvent(ctx context.Context, db bun.IDB, e *Event) (*Event, error) {
	next := new(Event)
	if err := db.NewSelect().
		Model(next).
		Where("(date > ?) OR (date = ? AND start_time > ?)", e.Date, e.Date, e.StartTime).
		OrderExpr("date ASC, start_time ASC").
		Limit(1).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("NextEvent: %w", err)
	}
	return next, nil
}
