package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"

	"github.com/iliyamo/office-booking/internal/model"
)

// AuditRepo persists audit entries.  Insert is idempotent on the entry id
// so a broker redelivery does not duplicate a row.
type AuditRepo struct {
	db *sql.DB
}

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Insert(ctx context.Context, e model.AuditEntry) error {
	var details any
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return err
		}
		details = string(raw)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO audit_logs (id, actor_id, action, details, created_at) VALUES (?,?,?,?,?)`,
		e.ID, e.ActorID, e.Action, details, e.CreatedAt.UTC())
	return err
}

// Latest returns the most recent entries with the actor's email.
func (r *AuditRepo) Latest(ctx context.Context, limit int) ([]model.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.actor_id, a.action, a.details, a.created_at, COALESCE(p.email, '')
		 FROM audit_logs a LEFT JOIN profiles p ON p.id = a.actor_id
		 ORDER BY a.created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.AuditLog{}
	for rows.Next() {
		var (
			l       model.AuditLog
			details []byte
		)
		if err := rows.Scan(&l.ID, &l.ActorID, &l.Action, &details, &l.CreatedAt, &l.ActorEmail); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			// A malformed details blob should not hide the entry itself.
			_ = json.Unmarshal(details, &l.Details)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// PurgeBefore deletes entries older than cutoff.
func (r *AuditRepo) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
