package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/iliyamo/office-booking/internal/model"
)

// SpaceRepo encapsulates the spaces table.
type SpaceRepo struct {
	db *sql.DB
}

func NewSpaceRepo(db *sql.DB) *SpaceRepo {
	return &SpaceRepo{db: db}
}

const spaceColumns = `s.id, s.floor_id, s.name, s.type, s.capacity, s.coordinates, s.description, s.amenities, s.is_active, s.created_at`

// ListByFloor returns the spaces of one floor ordered by name.
func (r *SpaceRepo) ListByFloor(ctx context.Context, floorID string) ([]model.Space, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+spaceColumns+` FROM spaces s WHERE s.floor_id = ? ORDER BY s.name`, floorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Space{}
	for rows.Next() {
		sp, err := scanSpace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sp)
	}
	return out, rows.Err()
}

// ListAll returns every space joined with its floor name (admin view).
func (r *SpaceRepo) ListAll(ctx context.Context) ([]model.SpaceWithFloor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+spaceColumns+`, COALESCE(f.name, '')
		 FROM spaces s LEFT JOIN floors f ON f.id = s.floor_id
		 ORDER BY f.name, s.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.SpaceWithFloor{}
	for rows.Next() {
		var floorName string
		sp, err := scanSpace(rows, &floorName)
		if err != nil {
			return nil, err
		}
		out = append(out, model.SpaceWithFloor{Space: *sp, FloorName: floorName})
	}
	return out, rows.Err()
}

func (r *SpaceRepo) GetByID(ctx context.Context, id string) (*model.Space, error) {
	sp, err := scanSpace(r.db.QueryRowContext(ctx,
		`SELECT `+spaceColumns+` FROM spaces s WHERE s.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSpaceNotFound
	}
	return sp, err
}

// Save inserts sp, or replaces the stored row when a space with the same id
// exists.  The floor row is share-locked for the duration so a concurrent
// floor cascade cannot leave the space orphaned.
func (r *SpaceRepo) Save(ctx context.Context, sp *model.Space) (err error) {
	coords, amenities, err := encodeSpaceJSON(sp)
	if err != nil {
		return err
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	var floorID string
	if err = tx.QueryRowContext(ctx, `SELECT id FROM floors WHERE id = ? LOCK IN SHARE MODE`, sp.FloorID).Scan(&floorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrFloorNotFound
		}
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO spaces (id, floor_id, name, type, capacity, coordinates, description, amenities, is_active, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE floor_id = VALUES(floor_id), name = VALUES(name), type = VALUES(type),
		   capacity = VALUES(capacity), coordinates = VALUES(coordinates),
		   description = VALUES(description), amenities = VALUES(amenities)`,
		sp.ID, sp.FloorID, sp.Name, sp.Type, sp.Capacity, coords, sp.Description, amenities, sp.IsActive, sp.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save space: %w", err)
	}
	return nil
}

// Update applies a partial update and returns the stored row.
func (r *SpaceRepo) Update(ctx context.Context, id string, p model.SpacePatch) (*model.Space, error) {
	if p.Empty() {
		return r.GetByID(ctx, id)
	}
	var (
		sets []string
		args []any
	)
	if p.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, *p.Type)
	}
	if p.Capacity != nil {
		sets = append(sets, "capacity = ?")
		args = append(args, *p.Capacity)
	}
	if p.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *p.Description)
	}
	if p.Amenities != nil {
		raw, err := json.Marshal(p.Amenities)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "amenities = ?")
		args = append(args, string(raw))
	}
	args = append(args, id)
	if _, err := r.db.ExecContext(ctx,
		`UPDATE spaces SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// SetActive toggles maintenance mode.
func (r *SpaceRepo) SetActive(ctx context.Context, id string, active bool) (*model.Space, error) {
	if _, err := r.db.ExecContext(ctx, `UPDATE spaces SET is_active = ? WHERE id = ?`, active, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// DeleteCascade removes a space and its bookings in one transaction.
func (r *SpaceRepo) DeleteCascade(ctx context.Context, id string) (res CascadeResult, err error) {
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
			err = fmt.Errorf("commit space cascade: %w", cerr)
			res = CascadeResult{}
		}
	}()

	var found string
	if err = tx.QueryRowContext(ctx, `SELECT id FROM spaces WHERE id = ? FOR UPDATE`, id).Scan(&found); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrSpaceNotFound
		}
		return res, err
	}
	out, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE space_id = ?`, id)
	if err != nil {
		return res, fmt.Errorf("delete bookings: %w", err)
	}
	res.Bookings, _ = out.RowsAffected()
	if out, err = tx.ExecContext(ctx, `DELETE FROM spaces WHERE id = ?`, id); err != nil {
		return res, fmt.Errorf("delete space: %w", err)
	}
	res.Spaces, _ = out.RowsAffected()
	return res, nil
}

// scanSpace reads spaceColumns followed by any extra destinations.
func scanSpace(s rowScanner, extra ...any) (*model.Space, error) {
	var (
		sp          model.Space
		coords      []byte
		description sql.NullString
		amenities   []byte
	)
	dest := append([]any{&sp.ID, &sp.FloorID, &sp.Name, &sp.Type, &sp.Capacity, &coords, &description, &amenities, &sp.IsActive, &sp.CreatedAt}, extra...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	sp.Description = description.String
	if len(coords) > 0 {
		sp.Coordinates = json.RawMessage(coords)
	}
	sp.Amenities = []string{}
	if len(amenities) > 0 {
		if err := json.Unmarshal(amenities, &sp.Amenities); err != nil {
			return nil, fmt.Errorf("decode amenities of space %s: %w", sp.ID, err)
		}
	}
	return &sp, nil
}

func encodeSpaceJSON(sp *model.Space) (coords, amenities any, err error) {
	if len(sp.Coordinates) > 0 {
		coords = string(sp.Coordinates)
	}
	list := sp.Amenities
	if list == nil {
		list = []string{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, nil, err
	}
	return coords, string(raw), nil
}
