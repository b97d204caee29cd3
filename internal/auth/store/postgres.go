package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"unionhub/internal/auth/models"
	"unionhub/internal/platform/postgres"
	"unionhub/pkg/platform/sentinel"
	"unionhub/pkg/platform/tx"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, a *models.Admin) error {
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO admins (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)`,
		a.ID, a.Username, a.PasswordHash, a.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert admin: %w", err)
	}
	return nil
}

func (s *Postgres) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var (
		a         models.Admin
		lastLogin sql.NullTime
	)
	err := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, last_login_at, last_login_ip, last_login_device
		FROM admins WHERE username = $1`, username,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt, &lastLogin, &a.LastLoginIP, &a.LastLoginDevice)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find admin: %w", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLoginAt = &t
	}
	return &a, nil
}

func (s *Postgres) RecordLogin(ctx context.Context, a *models.Admin) error {
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		UPDATE admins SET last_login_at = $2, last_login_ip = $3, last_login_device = $4
		WHERE username = $1`,
		a.Username, a.LastLoginAt, a.LastLoginIP, a.LastLoginDevice,
	)
	if err != nil {
		return fmt.Errorf("record admin login: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record admin login rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
