// Package accounts keeps platform user accounts in the platform_users table.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/carepulse/carepulse/internal/platform"
)

// Repository implements platform.Users over database/sql with the lib/pq driver.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		panic("accounts: sql db required")
	}
	return &Repository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// CreateUser inserts an account. Duplicate ids or emails map to platform.ErrConflict.
func (r *Repository) CreateUser(ctx context.Context, in platform.NewUser) (*platform.User, error) {
	now := r.now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO platform_users (id, name, email, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		in.ID, in.Name, strings.ToLower(strings.TrimSpace(in.Email)), in.Phone, now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("accounts: user %s: %w", in.Email, platform.ErrConflict)
		}
		return nil, fmt.Errorf("accounts: insert user: %w", err)
	}
	return &platform.User{
		ID:        in.ID,
		Name:      in.Name,
		Email:     strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:     in.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (r *Repository) GetUser(ctx context.Context, userID string) (*platform.User, error) {
	var u platform.User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM platform_users WHERE id = $1`, userID).
		Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("accounts: user %s: %w", userID, platform.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: get user: %w", err)
	}
	return &u, nil
}

func (r *Repository) ListUsersByEmail(ctx context.Context, email string) ([]*platform.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, email, phone, created_at, updated_at
		FROM platform_users WHERE email = $1 ORDER BY created_at`,
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("accounts: list users: %w", err)
	}
	defer rows.Close()

	var out []*platform.User
	for rows.Next() {
		var u platform.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("accounts: scan user: %w", err)
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}

var _ platform.Users = (*Repository)(nil)
