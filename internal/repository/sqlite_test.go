package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/apperr"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/database"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, database.MigrateSQLite(context.Background(), db))
	return db
}

func seedUser(t *testing.T, db *sql.DB, username string) string {
	t.Helper()
	u, err := NewSQLiteUserRepository(db).Create(context.Background(), model.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		Password:  "hash",
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)
	return u.ID
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 15, hour, minute, 0, 0, time.UTC)
}

func insertEvent(t *testing.T, s *SQLiteStore, owner string, start, end time.Time) *model.Event {
	t.Helper()
	e, err := s.Insert(context.Background(), model.Event{
		OwnerID: owner, Name: "meeting", Start: start, End: end, Color: "#fff",
	})
	require.NoError(t, err)
	return e
}

func TestSQLiteStore_InsertAndFind(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	owner := seedUser(t, db, "alice")
	store := NewSQLiteStore(db)

	rule := "FREQ=DAILY;COUNT=3"
	created, err := store.Insert(ctx, model.Event{
		OwnerID:        owner,
		Name:           "standup",
		Location:       "room 1",
		Start:          at(9, 0).In(time.FixedZone("X", 7200)),
		End:            at(9, 15),
		Color:          "#00ff00",
		RecurrenceRule: &rule,
	})
	req.NoError(err)
	req.NotZero(created.ID)
	req.False(created.Deleted)
	req.True(created.Start.Equal(at(9, 0)))
	req.Equal(time.UTC, created.Start.Location())
	req.Equal(rule, *created.RecurrenceRule)

	got, err := store.FindByID(ctx, created.ID)
	req.NoError(err)
	req.Equal(created, got)

	_, err = store.FindByID(ctx, created.ID+100)
	req.ErrorIs(err, apperr.ErrNotFound)
}

func TestSQLiteStore_InsertUnknownOwner(t *testing.T) {
	req := require.New(t)
	store := NewSQLiteStore(newTestDB(t))

	_, err := store.Insert(context.Background(), model.Event{
		OwnerID: "ghost", Name: "x", Start: at(9, 0), End: at(10, 0), Color: "#000",
	})

	req.ErrorIs(err, apperr.ErrPersistence)
	req.ErrorIs(err, ErrUnknownOwner)
}

func TestSQLiteStore_FindOverlapping(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	store := NewSQLiteStore(db)

	a := insertEvent(t, store, alice, at(10, 0), at(11, 0))
	insertEvent(t, store, bob, at(10, 0), at(11, 0))

	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		excludeID int64
		want      int
	}{
		{"touching end", at(11, 0), at(12, 0), 0, 1},
		{"touching start", at(9, 0), at(10, 0), 0, 1},
		{"contained", at(10, 15), at(10, 45), 0, 1},
		{"containing", at(9, 0), at(12, 0), 0, 1},
		{"after", at(11, 1), at(12, 0), 0, 0},
		{"before", at(8, 0), at(9, 59), 0, 0},
		{"excluded self", at(10, 30), at(11, 30), a.ID, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.FindOverlapping(ctx, alice, tt.start, tt.end, tt.excludeID)
			require.NoError(t, err)
			require.Len(t, got, tt.want)
			for _, e := range got {
				require.Equal(t, alice, e.OwnerID)
			}
		})
	}
}

func TestSQLiteStore_FindInRangeOrdersByStart(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	owner := seedUser(t, db, "alice")
	store := NewSQLiteStore(db)

	late := insertEvent(t, store, owner, at(15, 0), at(16, 0))
	early := insertEvent(t, store, owner, at(8, 0), at(9, 0))
	insertEvent(t, store, owner, at(20, 0), at(21, 0))

	got, err := store.FindInRange(ctx, owner, at(0, 0), at(16, 0))

	req.NoError(err)
	req.Len(got, 2)
	req.Equal(early.ID, got[0].ID)
	req.Equal(late.ID, got[1].ID)
}

func TestSQLiteStore_UpdateScopedToOwner(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	store := NewSQLiteStore(db)
	e := insertEvent(t, store, alice, at(10, 0), at(11, 0))

	changed := *e
	changed.Name = "renamed"
	changed.End = at(12, 0)

	_, err := store.Update(ctx, e.ID, bob, changed)
	req.ErrorIs(err, apperr.ErrNotFound)

	updated, err := store.Update(ctx, e.ID, alice, changed)
	req.NoError(err)
	req.Equal("renamed", updated.Name)
	req.True(updated.End.Equal(at(12, 0)))
}

func TestSQLiteStore_SoftDelete(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	owner := seedUser(t, db, "alice")
	store := NewSQLiteStore(db)
	e := insertEvent(t, store, owner, at(10, 0), at(11, 0))

	deleted, err := store.SoftDelete(ctx, e.ID)
	req.NoError(err)
	req.True(deleted.Deleted)

	_, err = store.SoftDelete(ctx, e.ID)
	req.ErrorIs(err, apperr.ErrNotFound)

	_, err = store.FindByID(ctx, e.ID)
	req.ErrorIs(err, apperr.ErrNotFound)

	_, err = store.Update(ctx, e.ID, owner, *e)
	req.ErrorIs(err, apperr.ErrNotFound)

	all, err := store.FindByOwner(ctx, owner)
	req.NoError(err)
	req.Empty(all)

	overlapping, err := store.FindOverlapping(ctx, owner, at(10, 0), at(11, 0), 0)
	req.NoError(err)
	req.Empty(overlapping)

	var count int
	req.NoError(db.QueryRow(`SELECT COUNT(*) FROM events WHERE id = ?`, e.ID).Scan(&count))
	req.Equal(1, count, "soft delete keeps the row")
}

func TestSQLiteStore_WithOwnerLock(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	owner := seedUser(t, db, "alice")
	store := NewSQLiteStore(db)

	err := store.WithOwnerLock(ctx, owner, func(tx EventStore) error {
		_, err := tx.Insert(ctx, model.Event{OwnerID: owner, Name: "kept", Start: at(9, 0), End: at(10, 0), Color: "#000"})
		return err
	})
	req.NoError(err)

	err = store.WithOwnerLock(ctx, owner, func(tx EventStore) error {
		if _, err := tx.Insert(ctx, model.Event{OwnerID: owner, Name: "rolled back", Start: at(12, 0), End: at(13, 0), Color: "#000"}); err != nil {
			return err
		}
		return apperr.ErrOverlap
	})
	req.ErrorIs(err, apperr.ErrConflict)

	events, err := store.FindByOwner(ctx, owner)
	req.NoError(err)
	req.Len(events, 1)
	req.Equal("kept", events[0].Name)

	err = store.WithOwnerLock(ctx, "ghost", func(EventStore) error { return nil })
	req.ErrorIs(err, ErrUnknownOwner)
	req.ErrorIs(err, apperr.ErrPersistence)
}

func TestSQLiteUserRepository(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewSQLiteUserRepository(db)
	id := seedUser(t, db, "alice")

	byID, err := repo.GetByID(ctx, id)
	req.NoError(err)
	req.Equal("alice", byID.Username)

	byEmail, err := repo.GetByEmail(ctx, "alice@example.com")
	req.NoError(err)
	req.Equal(id, byEmail.ID)

	_, err = repo.Create(ctx, model.User{ID: uuid.NewString(), Username: "alice", Email: "other@example.com", Password: "h", CreatedAt: time.Now()})
	req.ErrorIs(err, ErrDuplicateUser)
	req.ErrorIs(err, apperr.ErrConflict)

	_, err = repo.GetByID(ctx, "missing")
	req.ErrorIs(err, apperr.ErrNotFound)
}
