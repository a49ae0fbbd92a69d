package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/office-booking/internal/model"
)

// BookingTx is the set of statements that run while a space row is locked.
// Every booking creation for the same space passes through LockSpace, so the
// overlap check and the insert that follow it cannot interleave with another
// creation for that space.
type BookingTx interface {
	// LockSpace takes a row lock on the space and reports whether it is
	// active.  Returns ErrSpaceNotFound when the row does not exist.
	LockSpace(ctx context.Context, spaceID string) (active bool, err error)
	// FindOverlapping returns bookings of the space with
	// start_time < end AND end_time > start.
	FindOverlapping(ctx context.Context, spaceID string, start, end time.Time) ([]model.Booking, error)
	Insert(ctx context.Context, b *model.Booking) error
}

// BookingRepo encapsulates the bookings table.
type BookingRepo struct {
	db *sql.DB
}

func NewBookingRepo(db *sql.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

// InTx runs fn in a READ COMMITTED transaction.  The transaction commits
// when fn returns nil and rolls back otherwise.
func (r *BookingRepo) InTx(ctx context.Context, fn func(tx BookingTx) error) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&bookingTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit booking tx: %w", err)
	}
	committed = true
	return nil
}

type bookingTx struct {
	tx *sql.Tx
}

func (t *bookingTx) LockSpace(ctx context.Context, spaceID string) (bool, error) {
	var active bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT is_active FROM spaces WHERE id = ? FOR UPDATE`, spaceID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrSpaceNotFound
	}
	if err != nil {
		return false, fmt.Errorf("lock space: %w", err)
	}
	return active, nil
}

func (t *bookingTx) FindOverlapping(ctx context.Context, spaceID string, start, end time.Time) ([]model.Booking, error) {
	const q = `SELECT id, space_id, user_id, start_time, end_time, created_at
	           FROM bookings
	           WHERE space_id = ? AND start_time < ? AND end_time > ?`
	rows, err := t.tx.QueryContext(ctx, q, spaceID, end.UTC(), start.UTC())
	if err != nil {
		return nil, fmt.Errorf("find overlapping: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func (t *bookingTx) Insert(ctx context.Context, b *model.Booking) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO bookings (id, space_id, user_id, start_time, end_time, created_at) VALUES (?,?,?,?,?,?)`,
		b.ID, b.SpaceID, b.UserID, b.StartTime.UTC(), b.EndTime.UTC(), b.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID fetches a booking or returns ErrBookingNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var b model.Booking
	err := r.db.QueryRowContext(ctx,
		`SELECT id, space_id, user_id, start_time, end_time, created_at FROM bookings WHERE id = ?`, id).
		Scan(&b.ID, &b.SpaceID, &b.UserID, &b.StartTime, &b.EndTime, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBySpace returns every booking of a space ordered by start time.
func (r *BookingRepo) ListBySpace(ctx context.Context, spaceID string) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, space_id, user_id, start_time, end_time, created_at
		 FROM bookings WHERE space_id = ? ORDER BY start_time`, spaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListByUser returns a user's bookings joined with the space name and type.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.UserBooking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.space_id, b.user_id, b.start_time, b.end_time, b.created_at,
		        COALESCE(s.name, ''), COALESCE(s.type, '')
		 FROM bookings b LEFT JOIN spaces s ON s.id = b.space_id
		 WHERE b.user_id = ? ORDER BY b.start_time`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.UserBooking{}
	for rows.Next() {
		var ub model.UserBooking
		if err := rows.Scan(&ub.ID, &ub.SpaceID, &ub.UserID, &ub.StartTime, &ub.EndTime, &ub.CreatedAt,
			&ub.SpaceName, &ub.SpaceType); err != nil {
			return nil, err
		}
		out = append(out, ub)
	}
	return out, rows.Err()
}

// ListAll is the admin view: every booking with space name and owner email,
// newest first.
func (r *BookingRepo) ListAll(ctx context.Context) ([]model.AdminBooking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.space_id, b.user_id, b.start_time, b.end_time, b.created_at,
		        COALESCE(s.name, ''), COALESCE(p.email, '')
		 FROM bookings b
		 LEFT JOIN spaces s ON s.id = b.space_id
		 LEFT JOIN profiles p ON p.id = b.user_id
		 ORDER BY b.start_time DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AdminBooking{}
	for rows.Next() {
		var ab model.AdminBooking
		if err := rows.Scan(&ab.ID, &ab.SpaceID, &ab.UserID, &ab.StartTime, &ab.EndTime, &ab.CreatedAt,
			&ab.SpaceName, &ab.UserEmail); err != nil {
			return nil, err
		}
		out = append(out, ab)
	}
	return out, rows.Err()
}

// OccupiedSpaceIDs returns the distinct ids of spaces holding at least one
// booking that overlaps [start, end).  A non-empty floorID restricts the
// result to spaces on that floor.
func (r *BookingRepo) OccupiedSpaceIDs(ctx context.Context, start, end time.Time, floorID string) ([]string, error) {
	q := `SELECT DISTINCT b.space_id FROM bookings b`
	args := []any{}
	if floorID != "" {
		q += ` JOIN spaces s ON s.id = b.space_id AND s.floor_id = ?`
		args = append(args, floorID)
	}
	q += ` WHERE b.start_time < ? AND b.end_time > ?`
	args = append(args, end.UTC(), start.UTC())

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Delete removes one booking.  Returns ErrBookingNotFound when nothing was
// deleted.
func (r *BookingRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func scanBookings(rows *sql.Rows) ([]model.Booking, error) {
	out := []model.Booking{}
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.SpaceID, &b.UserID, &b.StartTime, &b.EndTime, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
