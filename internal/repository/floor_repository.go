package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/office-booking/internal/model"
)

// FloorRepo encapsulates the floors table and the floor-level cascade.
type FloorRepo struct {
	db *sql.DB
}

func NewFloorRepo(db *sql.DB) *FloorRepo {
	return &FloorRepo{db: db}
}

// CascadeResult reports how many dependent rows a cascade delete removed.
type CascadeResult struct {
	Spaces   int64 `json:"spaces"`
	Bookings int64 `json:"bookings"`
}

func (r *FloorRepo) List(ctx context.Context) ([]model.Floor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, width, height, created_at FROM floors ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Floor{}
	for rows.Next() {
		f, err := scanFloor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (r *FloorRepo) GetByID(ctx context.Context, id string) (*model.Floor, error) {
	f, err := scanFloor(r.db.QueryRowContext(ctx,
		`SELECT id, name, width, height, created_at FROM floors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrFloorNotFound
	}
	return f, err
}

// Create inserts f.  ID and CreatedAt must already be set.
func (r *FloorRepo) Create(ctx context.Context, f *model.Floor) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO floors (id, name, width, height, created_at) VALUES (?,?,?,?,?)`,
		f.ID, f.Name, nullInt(f.Width), nullInt(f.Height), f.CreatedAt.UTC())
	return err
}

// Update renames a floor and, when given, resizes it.
func (r *FloorRepo) Update(ctx context.Context, id, name string, width, height *int) (*model.Floor, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE floors SET name = ?, width = COALESCE(?, width), height = COALESCE(?, height) WHERE id = ?`,
		name, nullInt(width), nullInt(height), id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 affected rows for a no-op update too.
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
	}
	return r.GetByID(ctx, id)
}

// DeleteCascade removes a floor, its spaces and their bookings in one
// transaction, in that dependency order: bookings, spaces, floor.  The floor
// and space rows are locked first so a concurrent booking creation either
// finishes before the cascade or finds its space gone.  Any failure rolls
// the whole cascade back.
func (r *FloorRepo) DeleteCascade(ctx context.Context, id string) (res CascadeResult, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return res, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit floor cascade: %w", cerr)
			res = CascadeResult{}
		}
	}()

	var found string
	if err = tx.QueryRowContext(ctx, `SELECT id FROM floors WHERE id = ? FOR UPDATE`, id).Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrFloorNotFound
		}
		return res, err
	}

	spaceIDs, err := lockSpaceIDs(ctx, tx, `SELECT id FROM spaces WHERE floor_id = ? FOR UPDATE`, id)
	if err != nil {
		return res, fmt.Errorf("collect spaces: %w", err)
	}

	if len(spaceIDs) > 0 {
		args := make([]any, len(spaceIDs))
		for i, s := range spaceIDs {
			args[i] = s
		}
		var out sql.Result
		out, err = tx.ExecContext(ctx,
			`DELETE FROM bookings WHERE space_id IN (`+placeholders(len(spaceIDs))+`)`, args...)
		if err != nil {
			return res, fmt.Errorf("delete bookings: %w", err)
		}
		res.Bookings, _ = out.RowsAffected()

		out, err = tx.ExecContext(ctx, `DELETE FROM spaces WHERE floor_id = ?`, id)
		if err != nil {
			return res, fmt.Errorf("delete spaces: %w", err)
		}
		res.Spaces, _ = out.RowsAffected()
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM floors WHERE id = ?`, id); err != nil {
		return res, fmt.Errorf("delete floor: %w", err)
	}
	return res, nil
}

// Stats computes the dashboard counters of a floor at instant now.
func (r *FloorRepo) Stats(ctx context.Context, id string, now time.Time) (*model.FloorStats, error) {
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	st := &model.FloorStats{FloorID: id}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(is_active), 0), COALESCE(SUM(capacity), 0)
		 FROM spaces WHERE floor_id = ?`, id).
		Scan(&st.TotalSpaces, &st.ActiveSpaces, &st.TotalCapacity); err != nil {
		return nil, err
	}

	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings b JOIN spaces s ON s.id = b.space_id
		 WHERE s.floor_id = ? AND b.start_time < ? AND b.end_time > ?`, id, dayEnd, dayStart).
		Scan(&st.BookingsToday); err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT b.space_id) FROM bookings b JOIN spaces s ON s.id = b.space_id
		 WHERE s.floor_id = ? AND b.start_time <= ? AND b.end_time > ?`, id, now, now).
		Scan(&st.OccupiedNow); err != nil {
		return nil, err
	}
	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFloor(s rowScanner) (*model.Floor, error) {
	var (
		f             model.Floor
		width, height sql.NullInt64
	)
	if err := s.Scan(&f.ID, &f.Name, &width, &height, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.Width = intPtr(width)
	f.Height = intPtr(height)
	return &f, nil
}

func lockSpaceIDs(ctx context.Context, tx *sql.Tx, q string, arg string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
