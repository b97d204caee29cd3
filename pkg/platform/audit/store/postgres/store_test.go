package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "unionhub/pkg/platform/audit"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestAppend(t *testing.T) {
	s, mock := newMockStore(t)
	e := audit.Event{
		ID:         uuid.New(),
		Category:   audit.CategorySecurity,
		Action:     "admin_login",
		Subject:    "organiser",
		Actor:      "organiser",
		Attributes: map[string]string{"username": "organiser"},
		Timestamp:  time.Now(),
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
		WithArgs(e.ID, "security", "admin_login", "organiser", "organiser", "", `{"username":"organiser"}`, e.Timestamp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Append(context.Background(), e))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListBuildsFilter(t *testing.T) {
	s, mock := newMockStore(t)
	eventID := uuid.New()
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "category", "action", "subject", "actor", "request_id", "attributes", "created_at"}).
		AddRow(eventID.String(), "compliance", "bmm_checked_in", "em-1", "", "req-9", []byte(`{"event_member_id":"em-1"}`), at)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_events WHERE action = $1 AND subject = $2 ORDER BY created_at DESC LIMIT $3")).
		WithArgs("bmm_checked_in", "em-1", 100).
		WillReturnRows(rows)

	events, err := s.List(context.Background(), audit.Filter{Action: "bmm_checked_in", Subject: "em-1"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, eventID, events[0].ID)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, "em-1", events[0].Attributes["event_member_id"])
	assert.Equal(t, at, events[0].Timestamp)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListWithoutFilter(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM audit_events ORDER BY created_at DESC LIMIT $1")).
		WithArgs(5).
		WillReturnRows(sqlmock.NewRows([]string{"id", "category", "action", "subject", "actor", "request_id", "attributes", "created_at"}))

	events, err := s.List(context.Background(), audit.Filter{Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, events)
}
