package schedule

import (
	"context"
	"fmt"

	"mycal/src-server/model"

	"github.com/uptrace/bun"
)

// CheckConflict reports whether the half-open interval [start, end) on date
// intersects any stored event. Pass excludeID when re-checking an update so
// the event doesn't conflict with its own slot; zero excludes nothing. A nil
// return means no conflict.
func (e *Engine) CheckConflict(ctx context.Context, date, start, end string, excludeID int64) error {
	return checkConflict(ctx, e.db, date, start, end, excludeID)
}

func checkConflict(ctx context.Context, db bun.IDB, date, start, end string, excludeID int64) error {
	if start >= end {
		return ErrInvalidInterval
	}
	existing, err := model.EventsByDate(ctx, db, date)
	if err != nil {
		return fmt.Errorf("checkConflict: %w", err)
	}
	for _, event := range existing {
		if excludeID != 0 && event.ID == excludeID {
			continue
		}
		// two half-open intervals overlap iff each starts before the other
		// ends; this also catches full containment either way
		if event.StartTime < end && start < event.EndTime {
			return &ConflictError{EventID: event.ID}
		}
	}
	return nil
}
