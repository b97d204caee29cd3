package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"unionhub/internal/notification/models"
	"unionhub/internal/platform/postgres"
	id "unionhub/pkg/domain"
	"unionhub/pkg/platform/sentinel"
	"unionhub/pkg/platform/tx"
)

const (
	templateColumns = `id, code, version, channel, subject, body, is_active, created_at`
	logColumns      = `id, channel, recipient, subject, content, template_code, notification_type,
		event_member_id, success, error_message, admin_username, created_at`
)

// Postgres persists templates and the delivery log.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) CreateTemplate(ctx context.Context, t *models.Template) error {
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO notification_templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Code, t.Version, string(t.Channel), t.Subject, t.Body, t.IsActive, t.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert notification template: %w", err)
	}
	return nil
}

func (s *Postgres) LatestTemplate(ctx context.Context, code string) (*models.Template, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+templateColumns+` FROM notification_templates
		WHERE code = $1 AND is_active
		ORDER BY version DESC
		LIMIT 1`, code)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find notification template: %w", err)
	}
	return t, nil
}

func (s *Postgres) ListLatestTemplates(ctx context.Context) ([]*models.Template, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT DISTINCT ON (code) `+templateColumns+` FROM notification_templates
		WHERE is_active
		ORDER BY code, version DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notification templates: %w", err)
	}
	defer rows.Close()

	var out []*models.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Postgres) AppendLog(ctx context.Context, l *models.Log) error {
	var emID uuid.NullUUID
	if l.EventMemberID != nil {
		emID = uuid.NullUUID{UUID: uuid.UUID(*l.EventMemberID), Valid: true}
	}
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO notification_logs (`+logColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		l.ID, string(l.Channel), l.Recipient, l.Subject, l.Content, l.TemplateCode, l.NotificationType,
		emID, l.Success, l.ErrorMessage, l.AdminUsername, l.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification log: %w", err)
	}
	return nil
}

func (s *Postgres) ListLogs(ctx context.Context, f models.LogFilter) ([]*models.Log, error) {
	var (
		where []string
		args  []any
	)
	if f.EventMemberID != nil {
		args = append(args, uuid.UUID(*f.EventMemberID))
		where = append(where, fmt.Sprintf("event_member_id = $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, fmt.Sprintf("notification_type = $%d", len(args)))
	}
	query := `SELECT ` + logColumns + ` FROM notification_logs`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notification logs: %w", err)
	}
	defer rows.Close()

	var out []*models.Log
	for rows.Next() {
		var (
			l       models.Log
			channel string
			emID    uuid.NullUUID
		)
		if err := rows.Scan(&l.ID, &channel, &l.Recipient, &l.Subject, &l.Content, &l.TemplateCode,
			&l.NotificationType, &emID, &l.Success, &l.ErrorMessage, &l.AdminUsername, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification log: %w", err)
		}
		l.Channel = models.Channel(channel)
		if emID.Valid {
			v := id.EventMemberID(emID.UUID)
			l.EventMemberID = &v
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (*models.Template, error) {
	var (
		t       models.Template
		channel string
	)
	if err := row.Scan(&t.ID, &t.Code, &t.Version, &channel, &t.Subject, &t.Body, &t.IsActive, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Channel = models.Channel(channel)
	return &t, nil
}
