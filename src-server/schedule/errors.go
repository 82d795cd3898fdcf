package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the requested event id does not exist.
	ErrNotFound = errors.New("event not found")

	// ErrInvalidInterval means an event's start time is not before its end
	// time.
	ErrInvalidInterval = errors.New("start time must be before end time")

	// ErrPageOutOfRange means the requested page is beyond the last page of
	// a non-empty result set.
	ErrPageOutOfRange = errors.New("page parameter exceeds the total number of pages")
)

// InvalidParameterError reports a request parameter or payload field that
// failed validation.
type InvalidParameterError struct {
	Param  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Param, e.Reason)
}

// ConflictError reports a time overlap with an existing event on the same
// date.
type ConflictError struct {
	EventID int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("event overlaps with existing event %d", e.EventID)
}
