package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unionhub/internal/member/models"
	id "unionhub/pkg/domain"
	"unionhub/pkg/platform/sentinel"
)

func newMockStore(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestPostgresCreate(t *testing.T) {
	ctx := context.Background()
	m, err := models.NewMember("12345", "Aroha", id.SourceCSVStandard, time.Now())
	require.NoError(t, err)

	t.Run("inserts", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO members")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, s.Create(ctx, m))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps unique violation", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO members")).
			WillReturnError(&pgconn.PgError{Code: "23505"})
		assert.ErrorIs(t, s.Create(ctx, m), sentinel.ErrAlreadyUsed)
	})
}

func TestPostgresUpdateNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	m, err := models.NewMember("1", "A", id.SourceManual, time.Now())
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE members SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.Update(context.Background(), m), sentinel.ErrNotFound)
}

func TestPostgresFindByToken(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM members WHERE token = $1")).
			WithArgs("tok").
			WillReturnError(sql.ErrNoRows)
		_, err := s.FindByToken(ctx, "tok")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("scans nullable email", func(t *testing.T) {
		s, mock := newMockStore(t)
		memberID := id.NewMemberID()
		now := time.Now()
		cols := []string{"id", "membership_number", "name", "first_name", "last_name", "primary_email",
			"telephone_mobile", "has_email", "has_mobile", "token", "verification_code", "has_registered",
			"is_attending", "is_special_vote", "has_voted", "data_source", "date_of_birth", "address", "region",
			"branch", "workplace", "employer", "industry", "job_title", "forum", "last_imported_at", "created_at", "updated_at"}
		rows := sqlmock.NewRows(cols).AddRow(
			memberID.String(), "12345", "Aroha", "", "", nil,
			"0215551234", false, true, "tok", "123456", false,
			false, false, false, "INFORMER_SMS_MEMBERS", "", "", "Central Region",
			"", "", "", "", "", "", nil, now, now,
		)
		mock.ExpectQuery(regexp.QuoteMeta("FROM members WHERE token = $1")).WithArgs("tok").WillReturnRows(rows)

		m, err := s.FindByToken(ctx, "tok")
		require.NoError(t, err)
		assert.Equal(t, memberID, m.ID)
		assert.Nil(t, m.PrimaryEmail)
		assert.True(t, m.HasMobile)
		assert.Equal(t, id.SourceInformerSMSMembers, m.DataSource)
		assert.Nil(t, m.LastImportedAt)
	})
}
