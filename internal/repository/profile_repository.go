package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/office-booking/internal/model"
)

// ProfileRepo mirrors the profiles table, which doubles as the account
// table of the local identity provider.
type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

const profileColumns = `id, email, role, full_name, phone, department, COALESCE(password_hash, ''), created_at, updated_at`

func scanProfile(s rowScanner) (*model.Profile, error) {
	var p model.Profile
	if err := s.Scan(&p.ID, &p.Email, &p.Role, &p.FullName, &p.Phone, &p.Department, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts an account.  Email is normalized; ErrDuplicate is returned
// when it is already registered.
func (r *ProfileRepo) Create(ctx context.Context, p *model.Profile) error {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, email, password_hash, role, full_name, phone, department, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Email, p.PasswordHash, p.Role, p.FullName, p.Phone, p.Department, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	if isDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// EmailExists reports whether an account already uses email.
func (r *ProfileRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM profiles WHERE email = ?`, strings.ToLower(strings.TrimSpace(email))).Scan(&n)
	return n > 0, err
}

func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = ? LIMIT 1`, strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	return p, err
}

// RoleOf returns the stored role, or "user" when the profile row is missing.
func (r *ProfileRepo) RoleOf(ctx context.Context, id string) (string, error) {
	var role string
	err := r.db.QueryRowContext(ctx, `SELECT role FROM profiles WHERE id = ?`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RoleUser, nil
	}
	if err != nil {
		return "", err
	}
	return role, nil
}

// Upsert writes the contact fields of a profile, creating the row if needed.
// An empty role leaves the stored role untouched.
func (r *ProfileRepo) Upsert(ctx context.Context, p *model.Profile) (*model.Profile, error) {
	role := p.Role
	insertRole := role
	if insertRole == "" {
		insertRole = model.RoleUser
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, role, full_name, phone, department) VALUES (?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE full_name = VALUES(full_name), phone = VALUES(phone),
		   department = VALUES(department), role = IF(? = '', role, ?)`,
		p.ID, insertRole, p.FullName, p.Phone, p.Department, role, role)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, p.ID)
}

// List returns all profiles ordered by email (admin user management).
func (r *ProfileRepo) List(ctx context.Context) ([]model.Profile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdateRole changes a user's role.
func (r *ProfileRepo) UpdateRole(ctx context.Context, id, role string) (*model.Profile, error) {
	if _, err := r.db.ExecContext(ctx, `UPDATE profiles SET role = ? WHERE id = ?`, role, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}
