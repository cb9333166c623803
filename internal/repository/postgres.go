package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/apperr"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

const eventColumns = `id, owner_id, name, location, description, start, "end", color, recurrence_rule, deleted`

// pgQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore handles event persistence on PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   pgQuerier
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, db: pool}
}

func scanPgEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	if err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &e.Location, &e.Description,
		&e.Start, &e.End, &e.Color, &e.RecurrenceRule, &e.Deleted); err != nil {
		return nil, err
	}
	e.Start, e.End = e.Start.UTC(), e.End.UTC()
	return &e, nil
}

func (s *PostgresStore) queryEvents(ctx context.Context, op, sql string, args ...any) ([]model.Event, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanPgEvent(rows)
		if err != nil {
			return nil, apperr.Persistence("scan event", err)
		}
		events = append(events, *e)
	}
	return events, apperr.Persistence(op, rows.Err())
}

// Insert persists a new event and returns it with its generated id.
func (s *PostgresStore) Insert(ctx context.Context, e model.Event) (*model.Event, error) {
	created, err := scanPgEvent(s.db.QueryRow(ctx,
		`INSERT INTO events (owner_id, name, location, description, start, "end", color, recurrence_rule)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+eventColumns,
		e.OwnerID, e.Name, e.Location, e.Description, e.Start.UTC(), e.End.UTC(), e.Color, e.RecurrenceRule,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, unknownOwner("insert event", e.OwnerID, err)
		}
		return nil, apperr.Persistence("insert event", err)
	}
	return created, nil
}

// Update rewrites the mutable fields of a live event owned by ownerID.
func (s *PostgresStore) Update(ctx context.Context, id int64, ownerID string, e model.Event) (*model.Event, error) {
	updated, err := scanPgEvent(s.db.QueryRow(ctx,
		`UPDATE events
		 SET name = $3, location = $4, description = $5, start = $6, "end" = $7, color = $8, recurrence_rule = $9
		 WHERE id = $1 AND owner_id = $2 AND NOT deleted
		 RETURNING `+eventColumns,
		id, ownerID, e.Name, e.Location, e.Description, e.Start.UTC(), e.End.UTC(), e.Color, e.RecurrenceRule,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Persistence("update event", err)
	}
	return updated, nil
}

// SoftDelete marks a live event as deleted and returns the final row.
func (s *PostgresStore) SoftDelete(ctx context.Context, id int64) (*model.Event, error) {
	deleted, err := scanPgEvent(s.db.QueryRow(ctx,
		`UPDATE events SET deleted = true
		 WHERE id = $1 AND NOT deleted
		 RETURNING `+eventColumns,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Persistence("delete event", err)
	}
	return deleted, nil
}

// FindByID returns a single live event or apperr.ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*model.Event, error) {
	e, err := scanPgEvent(s.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND NOT deleted`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Persistence("get event", err)
	}
	return e, nil
}

// FindByOwner returns all live events of an owner in insertion order.
func (s *PostgresStore) FindByOwner(ctx context.Context, ownerID string) ([]model.Event, error) {
	return s.queryEvents(ctx, "list events",
		`SELECT `+eventColumns+` FROM events
		 WHERE owner_id = $1 AND NOT deleted
		 ORDER BY id ASC`,
		ownerID,
	)
}

// FindOverlapping returns live events of the owner intersecting [start, end].
func (s *PostgresStore) FindOverlapping(ctx context.Context, ownerID string, start, end time.Time, excludeID int64) ([]model.Event, error) {
	return s.queryEvents(ctx, "find overlapping events",
		`SELECT `+eventColumns+` FROM events
		 WHERE owner_id = $1 AND NOT deleted
		   AND start <= $3 AND "end" >= $2
		   AND id <> $4
		 ORDER BY start ASC, id ASC`,
		ownerID, start.UTC(), end.UTC(), excludeID,
	)
}

// FindInRange returns live events of the owner intersecting [start, end].
func (s *PostgresStore) FindInRange(ctx context.Context, ownerID string, start, end time.Time) ([]model.Event, error) {
	return s.queryEvents(ctx, "find events in range",
		`SELECT `+eventColumns+` FROM events
		 WHERE owner_id = $1 AND NOT deleted
		   AND start <= $3 AND "end" >= $2
		 ORDER BY start ASC, id ASC`,
		ownerID, start.UTC(), end.UTC(),
	)
}

// WithOwnerLock runs fn in a transaction holding SELECT ... FOR UPDATE on the
// owner's users row. Writers for the same owner queue behind each other;
// different owners never contend.
func (s *PostgresStore) WithOwnerLock(ctx context.Context, ownerID string, fn func(EventStore) error) (err error) {
	if s.pool == nil {
		return fmt.Errorf("owner lock: store is already bound to a transaction")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return apperr.Persistence("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, ownerID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return unknownOwner("lock owner", ownerID, nil)
		}
		return apperr.Persistence("lock owner", err)
	}

	if err = fn(&PostgresStore{db: tx}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return apperr.Persistence("commit transaction", err)
	}
	return nil
}

// PostgresUserRepository handles user persistence on PostgreSQL.
type PostgresUserRepository struct {
	db *pgxpool.Pool
}

// NewPostgresUserRepository constructs a PostgresUserRepository.
func NewPostgresUserRepository(db *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// Create inserts a user whose id and password hash are already set.
func (r *PostgresUserRepository) Create(ctx context.Context, u model.User) (*model.User, error) {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, username, email, password, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Username, u.Email, u.Password, u.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateUser
		}
		return nil, apperr.Persistence("insert user", err)
	}
	return &u, nil
}

// GetByID returns a single user or apperr.ErrNotFound.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, `SELECT id, username, email, password, created_at FROM users WHERE id = $1`, id)
}

// GetByEmail returns a single user or apperr.ErrNotFound.
func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT id, username, email, password, created_at FROM users WHERE email = $1`, email)
}

func (r *PostgresUserRepository) getOne(ctx context.Context, sql string, arg string) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx, sql, arg).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Persistence("get user", err)
	}
	return &u, nil
}
