package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/apperr"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/database"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/model"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/repository"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc   *Scheduler
	users *repository.SQLiteUserRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.MigrateSQLite(context.Background(), db))

	log := logs.GetLoggerFromLevel(slog.LevelError)
	return fixture{
		svc:   NewScheduler(repository.NewSQLiteStore(db), log),
		users: repository.NewSQLiteUserRepository(db),
	}
}

func (f fixture) user(t *testing.T, name string) string {
	t.Helper()
	u, err := f.users.Create(context.Background(), model.User{
		ID: uuid.NewString(), Username: name, Email: name + "@example.com", Password: "x", CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	return u.ID
}

func (f fixture) create(t *testing.T, owner, start, end string) (*model.EventView, error) {
	t.Helper()
	return f.svc.Create(context.Background(), validInput(owner, utc(start), utc(end)))
}

func ids(events []model.EventView) []int64 {
	out := make([]int64, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestSchedulerSQLite_OverlapRules(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	_, err := f.create(t, alice, "2024-03-15T10:00:00Z", "2024-03-15T11:00:00Z")
	require.NoError(t, err)

	tests := []struct {
		name    string
		owner   string
		start   string
		end     string
		wantErr error
	}{
		{"touching endpoint conflicts", alice, "2024-03-15T11:00:00Z", "2024-03-15T12:00:00Z", apperr.ErrConflict},
		{"contained conflicts", alice, "2024-03-15T10:15:00Z", "2024-03-15T10:45:00Z", apperr.ErrConflict},
		{"identical interval for another owner is free", bob, "2024-03-15T10:00:00Z", "2024-03-15T11:00:00Z", nil},
		{"one minute gap is free", alice, "2024-03-15T11:01:00Z", "2024-03-15T12:00:00Z", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.create(t, tt.owner, tt.start, tt.end)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}

	all, err := f.svc.ListByOwner(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, all, 2, "rejected creates must not persist anything")
}

func TestSchedulerSQLite_EditExcludesSelf(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	e, err := f.create(t, alice, "2024-03-15T10:00:00Z", "2024-03-15T11:00:00Z")
	req.NoError(err)
	other, err := f.create(t, alice, "2024-03-15T13:00:00Z", "2024-03-15T14:00:00Z")
	req.NoError(err)

	start, end := utc("2024-03-15T10:30:00Z"), utc("2024-03-15T11:30:00Z")
	moved, err := f.svc.Edit(ctx, model.EventPatch{ID: e.ID, OwnerID: alice, Start: &start, End: &end})
	req.NoError(err)
	req.Equal(start, moved.Start)

	clash := utc("2024-03-15T13:00:00Z")
	_, err = f.svc.Edit(ctx, model.EventPatch{ID: e.ID, OwnerID: alice, End: &clash})
	req.ErrorIs(err, apperr.ErrConflict)

	name := "hijacked"
	_, err = f.svc.Edit(ctx, model.EventPatch{ID: other.ID, OwnerID: bob, Name: &name})
	req.ErrorIs(err, apperr.ErrNotFound)

	_, err = f.svc.Edit(ctx, model.EventPatch{ID: 9999, OwnerID: alice, Name: &name})
	req.ErrorIs(err, apperr.ErrNotFound)

	got, err := f.svc.Get(ctx, e.ID)
	req.NoError(err)
	req.Equal(start, got.Start, "failed edits leave the stored row untouched")
	req.Equal(end, got.End)
}

func TestSchedulerSQLite_SoftDelete(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")

	e, err := f.create(t, alice, "2024-03-15T10:00:00Z", "2024-03-15T11:00:00Z")
	req.NoError(err)

	_, err = f.svc.Remove(ctx, e.ID)
	req.NoError(err)
	_, err = f.svc.Remove(ctx, e.ID)
	req.ErrorIs(err, apperr.ErrNotFound)

	byOwner, err := f.svc.ListByOwner(ctx, alice)
	req.NoError(err)
	req.Empty(byOwner)

	byDay, err := f.svc.ListByDay(ctx, alice, utc("2024-03-15T00:00:00Z"))
	req.NoError(err)
	req.Empty(byDay)

	byMonth, err := f.svc.ListByMonth(ctx, alice, 2024, 3)
	req.NoError(err)
	req.Empty(byMonth)

	_, err = f.create(t, alice, "2024-03-15T10:00:00Z", "2024-03-15T11:00:00Z")
	req.NoError(err, "a deleted event is not a conflict candidate")

	name := "revived"
	_, err = f.svc.Edit(ctx, model.EventPatch{ID: e.ID, OwnerID: alice, Name: &name})
	req.ErrorIs(err, apperr.ErrNotFound)
}

func TestSchedulerSQLite_ListByDay(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.user(t, "alice")

	intoDay, err := f.create(t, alice, "2024-03-14T23:00:00Z", "2024-03-15T01:00:00Z")
	req.NoError(err)
	midday, err := f.create(t, alice, "2024-03-15T12:00:00Z", "2024-03-15T13:00:00Z")
	req.NoError(err)
	outOfDay, err := f.create(t, alice, "2024-03-15T23:30:00Z", "2024-03-16T00:30:00Z")
	req.NoError(err)
	_, err = f.create(t, alice, "2024-03-16T08:00:00Z", "2024-03-16T09:00:00Z")
	req.NoError(err)
	_, err = f.create(t, alice, "2024-03-14T08:00:00Z", "2024-03-14T09:00:00Z")
	req.NoError(err)

	got, err := f.svc.ListByDay(context.Background(), alice, utc("2024-03-15T00:00:00Z"))

	req.NoError(err)
	req.Equal([]int64{intoDay.ID, midday.ID, outOfDay.ID}, ids(got))
}

func TestSchedulerSQLite_ListByMonth(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.user(t, "alice")

	leapDay, err := f.create(t, alice, "2024-02-29T23:59:59.999Z", "2024-02-29T23:59:59.999Z")
	req.NoError(err)
	first, err := f.create(t, alice, "2024-02-01T00:00:00Z", "2024-02-01T01:00:00Z")
	req.NoError(err)
	_, err = f.create(t, alice, "2024-03-01T00:00:00Z", "2024-03-01T01:00:00Z")
	req.NoError(err)
	_, err = f.create(t, alice, "2024-01-31T22:00:00Z", "2024-01-31T23:59:59.998Z")
	req.NoError(err)

	feb, err := f.svc.ListByMonth(context.Background(), alice, 2024, 2)
	req.NoError(err)
	req.Equal([]int64{first.ID, leapDay.ID}, ids(feb), "ordered by start ascending")

	_, err = f.svc.ListByMonth(context.Background(), alice, 2024, 0)
	req.ErrorIs(err, apperr.ErrValidation)
}

func TestSchedulerSQLite_ConcurrentCreatesNeverDoubleBook(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	alice := f.user(t, "alice")

	const attempts = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Every candidate overlaps every other at 10:30.
			start := utc("2024-03-15T10:00:00Z").Add(time.Duration(i) * time.Minute)
			_, err := f.svc.Create(context.Background(), validInput(alice, start, start.Add(time.Hour)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperr.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	req.Equal(1, succeeded)
	req.Equal(attempts-1, conflicts)

	stored, err := f.svc.ListByOwner(context.Background(), alice)
	req.NoError(err)
	req.Len(stored, 1)
}

func TestSchedulerSQLite_UnknownOwnerIsPersistenceError(t *testing.T) {
	f := newFixture(t)

	_, err := f.create(t, "ghost", "2024-03-15T10:00:00Z", "2024-03-15T11:00:00Z")

	require.ErrorIs(t, err, apperr.ErrPersistence)
	require.ErrorIs(t, err, repository.ErrUnknownOwner)
}
