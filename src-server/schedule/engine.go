package schedule

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mycal/src-server/model"
	"mycal/src-server/utils"

	"github.com/uptrace/bun"
)

// Engine is the conflict checker, query engine and statistics aggregator
// over the event store. It is stateless between calls; construct one in main
// and pass it to the routes.
type Engine struct {
	db          *bun.DB
	metricChans *utils.MetricChans

	// Now supplies the reference time for statistics windows and
	// last_update stamps. Swappable in tests.
	Now func() time.Time
}

func NewEngine(db *bun.DB, loc *time.Location, metricChans *utils.MetricChans) *Engine {
	return &Engine{
		db:          db,
		metricChans: metricChans,
		Now: func() time.Time {
			return time.Now().In(loc)
		},
	}
}

// Location is the structured event address, a plain value with no identity
// of its own.
type Location struct {
	Street   string `json:"street"`
	Suburb   string `json:"suburb"`
	State    string `json:"state"`
	PostCode int    `json:"post_code"`
}

type CreateRequest struct {
	Name        string    `json:"name"`
	Date        string    `json:"date"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Location    *Location `json:"location"`
	Description string    `json:"description"`
}

// Create validates the payload, then checks for conflicts and inserts inside
// a single transaction so a concurrent create for the same date can't slip
// an overlapping event between the check and the write.
func (e *Engine) Create(ctx context.Context, req CreateRequest) (*model.Event, error) {
	event := &model.Event{
		Name:        req.Name,
		Date:        req.Date,
		StartTime:   req.From,
		EndTime:     req.To,
		Description: req.Description,
	}
	if req.Location == nil {
		return nil, &InvalidParameterError{Param: "location", Reason: "is required"}
	}
	event.Street = req.Location.Street
	event.Suburb = req.Location.Suburb
	event.State = req.Location.State
	event.PostCode = req.Location.PostCode
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	start := time.Now()
	if err := e.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := checkConflict(ctx, tx, event.Date, event.StartTime, event.EndTime, 0); err != nil {
			return err
		}
		event.LastUpdate = e.Now().Format(model.LastUpdateLayout)
		if _, err := tx.NewInsert().
			Model(event).
			Exec(ctx); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	e.reportWrite(start)

	return event, nil
}

// Update applies a partial update. Field names are mapped explicitly; an
// unrecognized name is rejected up front rather than dispatched blindly.
// When the date or either time changes, the conflict check runs again with
// the event's own id excluded, in the same transaction as the write.
func (e *Engine) Update(ctx context.Context, id int64, fields map[string]any) (*model.Event, error) {
	start := time.Now()
	event := new(model.Event)
	if err := e.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		stored, err := model.EventByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if stored == nil {
			return ErrNotFound
		}
		*event = *stored

		intervalTouched, err := applyFields(event, fields)
		if err != nil {
			return err
		}
		if err := validateEvent(event); err != nil {
			return err
		}
		if intervalTouched {
			if err := checkConflict(ctx, tx, event.Date, event.StartTime, event.EndTime, event.ID); err != nil {
				return err
			}
		}

		event.LastUpdate = e.Now().Format(model.LastUpdateLayout)
		if _, err := tx.NewUpdate().
			Model(event).
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	e.reportWrite(start)

	return event, nil
}

// Delete removes an event for good; there is no tombstone.
func (e *Engine) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	res, err := e.db.NewDelete().
		Model((*model.Event)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	e.reportWrite(start)
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (e *Engine) Get(ctx context.Context, id int64) (*model.Event, error) {
	start := time.Now()
	event, err := model.EventByID(ctx, e.db, id)
	if err != nil {
		return nil, err
	}
	e.reportRead(start)
	if event == nil {
		return nil, ErrNotFound
	}
	return event, nil
}

// Neighbors returns the chronologically adjacent events of event; either may
// be nil at the ends of the calendar.
func (e *Engine) Neighbors(ctx context.Context, event *model.Event) (previous, next *model.Event, err error) {
	previous, err = model.PreviousEvent(ctx, e.db, event)
	if err != nil {
		return nil, nil, err
	}
	next, err = model.NextEvent(ctx, e.db, event)
	if err != nil {
		return nil, nil, err
	}
	return previous, next, nil
}

// applyFields merges a partial payload onto event. It reports whether the
// date or either time-of-day changed, so the caller knows to re-run the
// conflict check.
func applyFields(event *model.Event, fields map[string]any) (bool, error) {
	intervalTouched := false
	for key, value := range fields {
		switch key {
		case "name":
			s, ok := value.(string)
			if !ok {
				return false, &InvalidParameterError{Param: "name", Reason: "must be a string"}
			}
			event.Name = s
		case "date":
			s, ok := value.(string)
			if !ok {
				return false, &InvalidParameterError{Param: "date", Reason: "must be a string"}
			}
			event.Date = s
			intervalTouched = true
		case "from":
			s, ok := value.(string)
			if !ok {
				return false, &InvalidParameterError{Param: "from", Reason: "must be a string"}
			}
			event.StartTime = s
			intervalTouched = true
		case "to":
			s, ok := value.(string)
			if !ok {
				return false, &InvalidParameterError{Param: "to", Reason: "must be a string"}
			}
			event.EndTime = s
			intervalTouched = true
		case "description":
			s, ok := value.(string)
			if !ok {
				return false, &InvalidParameterError{Param: "description", Reason: "must be a string"}
			}
			event.Description = s
		case "location":
			nested, ok := value.(map[string]any)
			if !ok {
				return false, &InvalidParameterError{Param: "location", Reason: "must be an object"}
			}
			if err := applyLocationFields(event, nested); err != nil {
				return false, err
			}
		default:
			return false, &InvalidParameterError{Param: key, Reason: "some parameters do not exist"}
		}
	}
	return intervalTouched, nil
}

func applyLocationFields(event *model.Event, fields map[string]any) error {
	for key, value := range fields {
		switch key {
		case "street", "suburb", "state":
			s, ok := value.(string)
			if !ok {
				return &InvalidParameterError{Param: "location." + key, Reason: "must be a string"}
			}
			switch key {
			case "street":
				event.Street = s
			case "suburb":
				event.Suburb = s
			case "state":
				event.State = s
			}
		case "post_code":
			// JSON numbers decode as float64
			n, ok := value.(float64)
			if !ok || n != float64(int(n)) {
				return &InvalidParameterError{Param: "location.post_code", Reason: "must be an integer"}
			}
			event.PostCode = int(n)
		default:
			return &InvalidParameterError{Param: "location." + key, Reason: "some parameters do not exist"}
		}
	}
	return nil
}

// validateEvent enforces the record invariants: required fields, canonical
// layouts, start before end.
func validateEvent(event *model.Event) error {
	if event.Name == "" {
		return &InvalidParameterError{Param: "name", Reason: "is required"}
	}
	if event.Description == "" {
		return &InvalidParameterError{Param: "description", Reason: "is required"}
	}
	if event.Street == "" {
		return &InvalidParameterError{Param: "location.street", Reason: "is required"}
	}
	if event.Suburb == "" {
		return &InvalidParameterError{Param: "location.suburb", Reason: "is required"}
	}
	if event.State == "" {
		return &InvalidParameterError{Param: "location.state", Reason: "is required"}
	}
	if event.PostCode <= 0 {
		return &InvalidParameterError{Param: "location.post_code", Reason: "is required"}
	}

	date, err := time.Parse(model.DateLayout, event.Date)
	if err != nil {
		return &InvalidParameterError{Param: "date", Reason: "must be formatted as " + model.DateLayout}
	}
	from, err := time.Parse(model.TimeLayout, event.StartTime)
	if err != nil {
		return &InvalidParameterError{Param: "from", Reason: "must be formatted as " + model.TimeLayout}
	}
	to, err := time.Parse(model.TimeLayout, event.EndTime)
	if err != nil {
		return &InvalidParameterError{Param: "to", Reason: "must be formatted as " + model.TimeLayout}
	}

	// re-format so "2024-1-2"-style inputs can never corrupt lexical order
	event.Date = date.Format(model.DateLayout)
	event.StartTime = from.Format(model.TimeLayout)
	event.EndTime = to.Format(model.TimeLayout)

	if event.StartTime >= event.EndTime {
		return ErrInvalidInterval
	}
	return nil
}

func (e *Engine) reportRead(start time.Time) {
	if e.metricChans == nil {
		return
	}
	select {
	case e.metricChans.DatabaseRead <- float64(time.Since(start).Microseconds()):
	default:
	}
}

func (e *Engine) reportWrite(start time.Time) {
	if e.metricChans == nil {
		return
	}
	select {
	case e.metricChans.DatabaseWrite <- float64(time.Since(start).Microseconds()):
	default:
	}
}
