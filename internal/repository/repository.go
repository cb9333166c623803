//go:generate go run go.uber.org/mock/mockgen -source=repository.go -destination=../mocks/mock_repository.go -package=mocks

// Package repository implements persistence for events and users.
// Every event read filters out soft-deleted rows.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/apperr"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/model"
)

// ErrUnknownOwner is wrapped into a PersistenceError when an event refers to
// a user that does not exist.
var ErrUnknownOwner = errors.New("unknown owner")

// ErrDuplicateUser is returned when a username or email is already taken.
var ErrDuplicateUser = fmt.Errorf("%w: username or email already registered", apperr.ErrConflict)

// EventStore is the set of primitive event queries the scheduler relies on.
// All reads exclude soft-deleted rows.
type EventStore interface {
	Insert(ctx context.Context, e model.Event) (*model.Event, error)
	// Update rewrites the mutable fields of the row matching both id and
	// ownerID. A missing, deleted or foreign row yields apperr.ErrNotFound.
	Update(ctx context.Context, id int64, ownerID string, e model.Event) (*model.Event, error)
	SoftDelete(ctx context.Context, id int64) (*model.Event, error)
	FindByID(ctx context.Context, id int64) (*model.Event, error)
	FindByOwner(ctx context.Context, ownerID string) ([]model.Event, error)
	// FindOverlapping returns the owner's events whose closed interval
	// intersects [start, end]. excludeID 0 excludes nothing.
	FindOverlapping(ctx context.Context, ownerID string, start, end time.Time, excludeID int64) ([]model.Event, error)
	// FindInRange returns the owner's events intersecting [start, end],
	// ordered by start ascending.
	FindInRange(ctx context.Context, ownerID string, start, end time.Time) ([]model.Event, error)
}

// Store is an EventStore that can run a unit of work atomically.
type Store interface {
	EventStore
	// WithOwnerLock runs fn inside a single transaction holding an exclusive
	// lock for ownerID. The transaction commits only if fn returns nil. fn
	// must use the EventStore it receives, not the outer Store.
	WithOwnerLock(ctx context.Context, ownerID string, fn func(EventStore) error) error
}

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, u model.User) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

func unknownOwner(op, ownerID string, cause error) error {
	if cause == nil {
		return apperr.Persistence(op, fmt.Errorf("%w: %s", ErrUnknownOwner, ownerID))
	}
	return apperr.Persistence(op, fmt.Errorf("%w: %s: %w", ErrUnknownOwner, ownerID, cause))
}
