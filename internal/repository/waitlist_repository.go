package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/greenli8/idea-validator/internal/model"
)

// WaitlistRepo persists marketing waitlist signups.
type WaitlistRepo struct{ DB *sql.DB }

func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{DB: db} }

// Upsert inserts a waitlist entry or, when the email already exists, updates
// its source attribution. Either way the stored row is returned.
func (r *WaitlistRepo) Upsert(ctx context.Context, email, source string) (model.WaitlistEntry, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO waitlist (email, source) VALUES (?,?)
		ON DUPLICATE KEY UPDATE source=VALUES(source)`,
		email, nullable(source))
	if err != nil {
		return model.WaitlistEntry{}, err
	}

	var (
		e   model.WaitlistEntry
		src sql.NullString
	)
	err = r.DB.QueryRowContext(ctx,
		"SELECT id, email, source, created_at, updated_at FROM waitlist WHERE email=? LIMIT 1", email).
		Scan(&e.ID, &e.Email, &src, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return model.WaitlistEntry{}, err
	}
	e.Source = src.String
	return e, nil
}
