package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/office-booking/internal/model"
)

// CatalogRepo stores the admin-managed room types and amenities.
type CatalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) ListRoomTypes(ctx context.Context) ([]model.RoomType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, value, label, created_at FROM room_types ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RoomType{}
	for rows.Next() {
		var rt model.RoomType
		if err := rows.Scan(&rt.ID, &rt.Value, &rt.Label, &rt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

// CreateRoomType returns ErrDuplicate when the slug is taken.
func (r *CatalogRepo) CreateRoomType(ctx context.Context, rt *model.RoomType) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO room_types (id, value, label, created_at) VALUES (?,?,?,?)`,
		rt.ID, rt.Value, rt.Label, rt.CreatedAt.UTC())
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (r *CatalogRepo) DeleteRoomType(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM room_types WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRoomTypeNotFound
	}
	return nil
}

func (r *CatalogRepo) ListAmenities(ctx context.Context) ([]model.Amenity, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, value, label, icon, created_at FROM amenities ORDER BY label`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Amenity{}
	for rows.Next() {
		var a model.Amenity
		if err := rows.Scan(&a.ID, &a.Value, &a.Label, &a.Icon, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) CreateAmenity(ctx context.Context, a *model.Amenity) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO amenities (id, value, label, icon, created_at) VALUES (?,?,?,?,?)`,
		a.ID, a.Value, a.Label, a.Icon, a.CreatedAt.UTC())
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

func (r *CatalogRepo) DeleteAmenity(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM amenities WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAmenityNotFound
	}
	return nil
}
