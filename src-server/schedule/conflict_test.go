package schedule_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"mycal/src-server/model"
	"mycal/src-server/schedule"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestEngine(t *testing.T) *schedule.Engine {
	t.Helper()
	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	bundb := bun.NewDB(db, sqlitedialect.New())
	if err := model.CreateSchema(bundb); err != nil {
		t.Fatal(err)
	}
	return schedule.NewEngine(bundb, time.UTC, nil)
}

func mustCreate(t *testing.T, engine *schedule.Engine, name, date, from, to string) *model.Event {
	t.Helper()
	event, err := engine.Create(context.Background(), schedule.CreateRequest{
		Name: name,
		Date: date,
		From: from,
		To:   to,
		Location: &schedule.Location{
			Street:   "1 Abc St",
			Suburb:   "Sydney",
			State:    "NSW",
			PostCode: 2000,
		},
		Description: "test event",
	})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return event
}

func TestCheckConflict(t *testing.T) {
	engine := newTestEngine(t)
	existing := mustCreate(t, engine, "existing", "2024-03-04", "15:00:00", "17:00:00")

	cases := []struct {
		name     string
		date     string
		from, to string
		conflict bool
	}{
		{name: "overlap at the end", date: "2024-03-04", from: "16:00:00", to: "18:00:00", conflict: true},
		{name: "overlap at the start", date: "2024-03-04", from: "14:00:00", to: "16:00:00", conflict: true},
		{name: "contains the existing event", date: "2024-03-04", from: "14:00:00", to: "18:00:00", conflict: true},
		{name: "contained in the existing event", date: "2024-03-04", from: "15:30:00", to: "16:30:00", conflict: true},
		{name: "identical interval", date: "2024-03-04", from: "15:00:00", to: "17:00:00", conflict: true},
		{name: "touching at the end", date: "2024-03-04", from: "17:00:00", to: "18:00:00", conflict: false},
		{name: "touching at the start", date: "2024-03-04", from: "14:00:00", to: "15:00:00", conflict: false},
		{name: "clearly before", date: "2024-03-04", from: "08:00:00", to: "09:00:00", conflict: false},
		{name: "same times on another date", date: "2024-03-05", from: "15:00:00", to: "17:00:00", conflict: false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := engine.CheckConflict(context.Background(), c.date, c.from, c.to, 0)
			var conflict *schedule.ConflictError
			switch {
			case c.conflict && !errors.As(err, &conflict):
				t.Errorf("expected a conflict, got %v", err)
			case c.conflict && conflict.EventID != existing.ID:
				t.Errorf("expected conflict with event %d, got %d", existing.ID, conflict.EventID)
			case !c.conflict && err != nil:
				t.Errorf("expected no conflict, got %v", err)
			}
		})
	}

	t.Run("invalid interval", func(t *testing.T) {
		err := engine.CheckConflict(context.Background(), "2024-03-04", "17:00:00", "15:00:00", 0)
		if !errors.Is(err, schedule.ErrInvalidInterval) {
			t.Errorf("expected ErrInvalidInterval, got %v", err)
		}
	})

	t.Run("exclude own id", func(t *testing.T) {
		err := engine.CheckConflict(context.Background(), "2024-03-04", "15:00:00", "17:00:00", existing.ID)
		if err != nil {
			t.Errorf("expected no conflict against own slot, got %v", err)
		}
	})
}

func TestCreateRejectsConflicts(t *testing.T) {
	engine := newTestEngine(t)
	existing := mustCreate(t, engine, "A", "2024-03-04", "15:00:00", "17:00:00")

	_, err := engine.Create(context.Background(), schedule.CreateRequest{
		Name: "B",
		Date: "2024-03-04",
		From: "16:00:00",
		To:   "18:00:00",
		Location: &schedule.Location{
			Street: "1 Abc St", Suburb: "Sydney", State: "NSW", PostCode: 2000,
		},
		Description: "overlaps A",
	})
	var conflict *schedule.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected a conflict, got %v", err)
	}
	if conflict.EventID != existing.ID {
		t.Errorf("expected conflict with event %d, got %d", existing.ID, conflict.EventID)
	}

	// back-to-back events do not conflict
	if _, err := engine.Create(context.Background(), schedule.CreateRequest{
		Name: "C",
		Date: "2024-03-04",
		From: "17:00:00",
		To:   "18:00:00",
		Location: &schedule.Location{
			Street: "1 Abc St", Suburb: "Sydney", State: "NSW", PostCode: 2000,
		},
		Description: "touches A",
	}); err != nil {
		t.Errorf("expected back-to-back create to succeed, got %v", err)
	}
}
