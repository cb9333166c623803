package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/canopy-calendar/internal/apperr"
	"github.com/Shivanand-hulikatti/canopy-calendar/internal/model"
	"github.com/mattn/go-sqlite3"
)

// sqliteTime is fixed width in UTC so that text comparison orders instants.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTime)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTime, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqlQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlRow interface {
	Scan(dest ...any) error
}

// SQLiteStore handles event persistence on SQLite. The database must be
// opened with _txlock=immediate (see database.OpenSQLite) so that every
// transaction takes the write lock up front.
type SQLiteStore struct {
	sqlDB *sql.DB
	db    sqlQuerier
}

// NewSQLiteStore constructs a SQLiteStore.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{sqlDB: db, db: db}
}

func scanSQLiteEvent(row sqlRow) (*model.Event, error) {
	var (
		e          model.Event
		start, end string
		rule       sql.NullString
	)
	if err := row.Scan(&e.ID, &e.OwnerID, &e.Name, &e.Location, &e.Description,
		&start, &end, &e.Color, &rule, &e.Deleted); err != nil {
		return nil, err
	}
	var err error
	if e.Start, err = parseSQLiteTime(start); err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	if e.End, err = parseSQLiteTime(end); err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}
	if rule.Valid {
		e.RecurrenceRule = &rule.String
	}
	return &e, nil
}

func nullableRule(rule *string) sql.NullString {
	if rule == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *rule, Valid: true}
}

func isSQLiteConstraint(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == code
}

func (s *SQLiteStore) queryEvents(ctx context.Context, op, query string, args ...any) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Persistence(op, err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanSQLiteEvent(rows)
		if err != nil {
			return nil, apperr.Persistence("scan event", err)
		}
		events = append(events, *e)
	}
	return events, apperr.Persistence(op, rows.Err())
}

func (s *SQLiteStore) getOne(ctx context.Context, op, query string, args ...any) (*model.Event, error) {
	e, err := scanSQLiteEvent(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Persistence(op, err)
	}
	return e, nil
}

// Insert persists a new event and returns it with its generated id.
func (s *SQLiteStore) Insert(ctx context.Context, e model.Event) (*model.Event, error) {
	created, err := scanSQLiteEvent(s.db.QueryRowContext(ctx,
		`INSERT INTO events (owner_id, name, location, description, start, "end", color, recurrence_rule)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+eventColumns,
		e.OwnerID, e.Name, e.Location, e.Description,
		formatSQLiteTime(e.Start), formatSQLiteTime(e.End), e.Color, nullableRule(e.RecurrenceRule),
	))
	if err != nil {
		if isSQLiteConstraint(err, sqlite3.ErrConstraintForeignKey) {
			return nil, unknownOwner("insert event", e.OwnerID, err)
		}
		return nil, apperr.Persistence("insert event", err)
	}
	return created, nil
}

// Update rewrites the mutable fields of a live event owned by ownerID.
func (s *SQLiteStore) Update(ctx context.Context, id int64, ownerID string, e model.Event) (*model.Event, error) {
	return s.getOne(ctx, "update event",
		`UPDATE events
		 SET name = ?, location = ?, description = ?, start = ?, "end" = ?, color = ?, recurrence_rule = ?
		 WHERE id = ? AND owner_id = ? AND NOT deleted
		 RETURNING `+eventColumns,
		e.Name, e.Location, e.Description, formatSQLiteTime(e.Start), formatSQLiteTime(e.End),
		e.Color, nullableRule(e.RecurrenceRule), id, ownerID,
	)
}

// SoftDelete marks a live event as deleted and returns the final row.
func (s *SQLiteStore) SoftDelete(ctx context.Context, id int64) (*model.Event, error) {
	return s.getOne(ctx, "delete event",
		`UPDATE events SET deleted = 1 WHERE id = ? AND NOT deleted RETURNING `+eventColumns,
		id,
	)
}

// FindByID returns a single live event or apperr.ErrNotFound.
func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (*model.Event, error) {
	return s.getOne(ctx, "get event",
		`SELECT `+eventColumns+` FROM events WHERE id = ? AND NOT deleted`,
		id,
	)
}

// FindByOwner returns all live events of an owner in insertion order.
func (s *SQLiteStore) FindByOwner(ctx context.Context, ownerID string) ([]model.Event, error) {
	return s.queryEvents(ctx, "list events",
		`SELECT `+eventColumns+` FROM events
		 WHERE owner_id = ? AND NOT deleted
		 ORDER BY id ASC`,
		ownerID,
	)
}

// FindOverlapping returns live events of the owner intersecting [start, end].
func (s *SQLiteStore) FindOverlapping(ctx context.Context, ownerID string, start, end time.Time, excludeID int64) ([]model.Event, error) {
	return s.queryEvents(ctx, "find overlapping events",
		`SELECT `+eventColumns+` FROM events
		 WHERE owner_id = ? AND NOT deleted
		   AND start <= ? AND "end" >= ?
		   AND id <> ?
		 ORDER BY start ASC, id ASC`,
		ownerID, formatSQLiteTime(end), formatSQLiteTime(start), excludeID,
	)
}

// FindInRange returns live events of the owner intersecting [start, end].
func (s *SQLiteStore) FindInRange(ctx context.Context, ownerID string, start, end time.Time) ([]model.Event, error) {
	return s.queryEvents(ctx, "find events in range",
		`SELECT `+eventColumns+` FROM events
		 WHERE owner_id = ? AND NOT deleted
		   AND start <= ? AND "end" >= ?
		 ORDER BY start ASC, id ASC`,
		ownerID, formatSQLiteTime(end), formatSQLiteTime(start),
	)
}

// WithOwnerLock runs fn in a BEGIN IMMEDIATE transaction. SQLite has no row
// locks, so the write lock is database wide; it still guarantees that the
// overlap check and the write commit together.
func (s *SQLiteStore) WithOwnerLock(ctx context.Context, ownerID string, fn func(EventStore) error) (err error) {
	if s.sqlDB == nil {
		return fmt.Errorf("owner lock: store is already bound to a transaction")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Persistence("begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, ownerID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return unknownOwner("lock owner", ownerID, nil)
		}
		return apperr.Persistence("lock owner", err)
	}

	if err = fn(&SQLiteStore{db: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return apperr.Persistence("commit transaction", err)
	}
	return nil
}

// SQLiteUserRepository handles user persistence on SQLite.
type SQLiteUserRepository struct {
	db *sql.DB
}

// NewSQLiteUserRepository constructs a SQLiteUserRepository.
func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

// Create inserts a user whose id and password hash are already set.
func (r *SQLiteUserRepository) Create(ctx context.Context, u model.User) (*model.User, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.Password, formatSQLiteTime(u.CreatedAt),
	)
	if err != nil {
		if isSQLiteConstraint(err, sqlite3.ErrConstraintUnique) || isSQLiteConstraint(err, sqlite3.ErrConstraintPrimaryKey) {
			return nil, ErrDuplicateUser
		}
		return nil, apperr.Persistence("insert user", err)
	}
	return &u, nil
}

// GetByID returns a single user or apperr.ErrNotFound.
func (r *SQLiteUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, `SELECT id, username, email, password, created_at FROM users WHERE id = ?`, id)
}

// GetByEmail returns a single user or apperr.ErrNotFound.
func (r *SQLiteUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, `SELECT id, username, email, password, created_at FROM users WHERE email = ?`, email)
}

func (r *SQLiteUserRepository) getOne(ctx context.Context, query, arg string) (*model.User, error) {
	var (
		u         model.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, apperr.Persistence("get user", err)
	}
	if u.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, apperr.Persistence("get user", err)
	}
	return &u, nil
}
