// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/apperr"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/model"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/repository"
	"github.com/samber/lo"
)

// Scheduler enforces the no-double-booking rule per owner and answers
// day/month range queries. Every value it returns is an EventView.
type Scheduler struct {
	store repository.Store
	log   *slog.Logger
}

// NewScheduler constructs a Scheduler with its dependencies.
func NewScheduler(store repository.Store, log *slog.Logger) *Scheduler {
	return &Scheduler{store: store, log: log}
}

func views(events []model.Event) []model.EventView {
	return lo.Map(events, func(e model.Event, _ int) model.EventView {
		return e.View()
	})
}

func viewOf(e *model.Event) *model.EventView {
	v := e.View()
	return &v
}

func normalize(e model.Event) model.Event {
	e.OwnerID = strings.TrimSpace(e.OwnerID)
	e.Name = strings.TrimSpace(e.Name)
	e.Start, e.End = e.Start.UTC(), e.End.UTC()
	if e.RecurrenceRule != nil && strings.TrimSpace(*e.RecurrenceRule) == "" {
		e.RecurrenceRule = nil
	}
	return e
}

// Create validates the event, then inserts it unless it overlaps another
// live event of the same owner. The check and the insert share one
// owner-locked transaction.
func (s *Scheduler) Create(ctx context.Context, in model.EventInput) (*model.EventView, error) {
	e := normalize(in.Event())
	if err := checkEvent(inputOf(e)); err != nil {
		return nil, err
	}

	var created *model.Event
	err := s.store.WithOwnerLock(ctx, e.OwnerID, func(tx repository.EventStore) error {
		if err := s.ensureFree(ctx, tx, e, 0); err != nil {
			return err
		}
		var err error
		created, err = tx.Insert(ctx, e)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event created", "event_id", created.ID, "owner_id", created.OwnerID)
	return viewOf(created), nil
}

// Edit applies patch to a live event of patch.OwnerID. The event's own
// interval is excluded from the overlap check. An event owned by someone
// else is reported as not found and nothing is written.
func (s *Scheduler) Edit(ctx context.Context, patch model.EventPatch) (*model.EventView, error) {
	if patch.ID <= 0 {
		return nil, apperr.Invalid("id is required")
	}
	ownerID := strings.TrimSpace(patch.OwnerID)
	if ownerID == "" {
		return nil, apperr.Invalid("user_id is required")
	}

	existing, err := s.store.FindByID(ctx, patch.ID)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID != ownerID {
		return nil, apperr.ErrNotFound
	}

	e := normalize(existing.Apply(patch))
	if err := checkEvent(inputOf(e)); err != nil {
		return nil, err
	}

	var updated *model.Event
	err = s.store.WithOwnerLock(ctx, ownerID, func(tx repository.EventStore) error {
		if err := s.ensureFree(ctx, tx, e, e.ID); err != nil {
			return err
		}
		var err error
		updated, err = tx.Update(ctx, e.ID, ownerID, e)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("event updated", "event_id", updated.ID, "owner_id", updated.OwnerID)
	return viewOf(updated), nil
}

func (s *Scheduler) ensureFree(ctx context.Context, tx repository.EventStore, e model.Event, excludeID int64) error {
	conflicts, err := tx.FindOverlapping(ctx, e.OwnerID, e.Start, e.End, excludeID)
	if err != nil {
		return err
	}
	conflicts = lo.Filter(conflicts, func(c model.Event, _ int) bool {
		return c.ID != excludeID && Overlaps(e.Start, e.End, c.Start, c.End)
	})
	if len(conflicts) > 0 {
		s.log.Warn("event overlap detected",
			"owner_id", e.OwnerID,
			"conflicting_ids", lo.Map(conflicts, func(c model.Event, _ int) int64 { return c.ID }))
		return apperr.ErrOverlap
	}
	return nil
}

// Remove soft-deletes an event. Removing it again reports not found.
func (s *Scheduler) Remove(ctx context.Context, id int64) (*model.EventView, error) {
	if id <= 0 {
		return nil, apperr.Invalid("id must be a positive integer")
	}
	deleted, err := s.store.SoftDelete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("event deleted", "event_id", deleted.ID, "owner_id", deleted.OwnerID)
	return viewOf(deleted), nil
}

// Get returns a single live event.
func (s *Scheduler) Get(ctx context.Context, id int64) (*model.EventView, error) {
	if id <= 0 {
		return nil, apperr.Invalid("id must be a positive integer")
	}
	e, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return viewOf(e), nil
}

// ListByOwner returns every live event of an owner.
func (s *Scheduler) ListByOwner(ctx context.Context, ownerID string) ([]model.EventView, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperr.Invalid("user_id is required")
	}
	events, err := s.store.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return views(events), nil
}

// ListByDay returns the owner's events intersecting the UTC calendar day of
// date, ordered by start.
func (s *Scheduler) ListByDay(ctx context.Context, ownerID string, date time.Time) ([]model.EventView, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperr.Invalid("user_id is required")
	}
	if date.IsZero() {
		return nil, apperr.Invalid("date is required")
	}
	start, end := DayWindow(date)
	return s.listInRange(ctx, ownerID, start, end)
}

// ListByMonth returns the owner's events intersecting a 1-indexed UTC month,
// ordered by start.
func (s *Scheduler) ListByMonth(ctx context.Context, ownerID string, year, month int) ([]model.EventView, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, apperr.Invalid("user_id is required")
	}
	start, end, err := MonthWindow(year, month)
	if err != nil {
		return nil, err
	}
	return s.listInRange(ctx, ownerID, start, end)
}

func (s *Scheduler) listInRange(ctx context.Context, ownerID string, start, end time.Time) ([]model.EventView, error) {
	events, err := s.store.FindInRange(ctx, ownerID, start, end)
	if err != nil {
		return nil, err
	}
	s.log.Debug("range query", "owner_id", ownerID, "from", start, "to", end, "count", len(events))
	return views(events), nil
}
