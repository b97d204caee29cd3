package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unionhub/internal/auth/models"
	"unionhub/pkg/platform/sentinel"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestPostgresCreateDuplicate(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO admins")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.Create(context.Background(), &models.Admin{ID: uuid.New(), Username: "organiser"})
	assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
}

func TestPostgresFindByUsername(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	adminID := uuid.New()

	t.Run("scans row", func(t *testing.T) {
		s, mock := newMockStore(t)
		rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at", "last_login_at", "last_login_ip", "last_login_device"}).
			AddRow(adminID, "organiser", "hash", created, nil, "", "")
		mock.ExpectQuery(regexp.QuoteMeta("FROM admins WHERE username = $1")).
			WithArgs("organiser").
			WillReturnRows(rows)

		a, err := s.FindByUsername(ctx, "organiser")
		require.NoError(t, err)
		assert.Equal(t, adminID, a.ID)
		assert.Equal(t, "hash", a.PasswordHash)
		assert.Nil(t, a.LastLoginAt)
	})

	t.Run("missing admin", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM admins")).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		_, err := s.FindByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestPostgresRecordLoginNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE admins SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	now := time.Now()
	err := s.RecordLogin(context.Background(), &models.Admin{Username: "ghost", LastLoginAt: &now})
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
