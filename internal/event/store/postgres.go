package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"unionhub/internal/event/models"
	id "unionhub/pkg/domain"
	"unionhub/pkg/platform/sentinel"
	"unionhub/pkg/platform/tx"
)

const (
	templateColumns = `id, name, event_type, landing_title, landing_text, required_steps,
		requires_special_vote, allows_qr_checkin, defaults, created_at, updated_at`
	eventColumns = `id, name, event_type, template_id, is_active, registration_open, event_date,
		overrides, created_at, updated_at`
)

// Postgres persists events and templates.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) CreateTemplateIfAbsent(ctx context.Context, t *models.EventTemplate) (bool, error) {
	defaults, err := json.Marshal(t.Defaults)
	if err != nil {
		return false, fmt.Errorf("marshal template defaults: %w", err)
	}
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO event_templates (`+templateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (name) DO NOTHING`,
		t.ID, t.Name, string(t.EventType), t.LandingTitle, t.LandingText, pq.Array(t.RequiredSteps),
		t.RequiresSpecialVote, t.AllowsQRCheckin, defaults, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert event template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert event template rows: %w", err)
	}
	return n == 1, nil
}

func (s *Postgres) FindTemplateByID(ctx context.Context, templateID uuid.UUID) (*models.EventTemplate, error) {
	return s.findTemplate(ctx, "id = $1", templateID)
}

func (s *Postgres) FindTemplateByName(ctx context.Context, name string) (*models.EventTemplate, error) {
	return s.findTemplate(ctx, "name = $1", name)
}

func (s *Postgres) findTemplate(ctx context.Context, where string, arg any) (*models.EventTemplate, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM event_templates WHERE `+where, arg)
	t, err := scanTemplate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event template: %w", err)
	}
	return t, nil
}

func (s *Postgres) ListTemplates(ctx context.Context) ([]*models.EventTemplate, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+templateColumns+` FROM event_templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list event templates: %w", err)
	}
	defer rows.Close()
	var out []*models.EventTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Postgres) CreateEvent(ctx context.Context, e *models.Event) error {
	overrides, err := json.Marshal(e.Overrides)
	if err != nil {
		return fmt.Errorf("marshal overrides: %w", err)
	}
	_, err = tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		e.ID, e.Name, string(e.Type), e.TemplateID, e.IsActive, e.RegistrationOpen, e.EventDate,
		overrides, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *Postgres) UpdateEvent(ctx context.Context, e *models.Event) error {
	overrides, err := json.Marshal(e.Overrides)
	if err != nil {
		return fmt.Errorf("marshal overrides: %w", err)
	}
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		UPDATE events SET name = $2, is_active = $3, registration_open = $4, event_date = $5,
			overrides = $6, updated_at = $7
		WHERE id = $1`,
		e.ID, e.Name, e.IsActive, e.RegistrationOpen, e.EventDate, overrides, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindEventByID(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return e, nil
}

func (s *Postgres) ListEvents(ctx context.Context) ([]*models.Event, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	var out []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row scanner) (*models.EventTemplate, error) {
	var (
		t         models.EventTemplate
		eventType string
		defaults  []byte
	)
	if err := row.Scan(&t.ID, &t.Name, &eventType, &t.LandingTitle, &t.LandingText,
		pq.Array(&t.RequiredSteps), &t.RequiresSpecialVote, &t.AllowsQRCheckin, &defaults,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.EventType = models.EventType(eventType)
	if err := json.Unmarshal(defaults, &t.Defaults); err != nil {
		return nil, fmt.Errorf("decode template defaults: %w", err)
	}
	return &t, nil
}

func scanEvent(row scanner) (*models.Event, error) {
	var (
		e          models.Event
		eventType  string
		templateID uuid.NullUUID
		eventDate  sql.NullTime
		overrides  []byte
	)
	if err := row.Scan(&e.ID, &e.Name, &eventType, &templateID, &e.IsActive, &e.RegistrationOpen,
		&eventDate, &overrides, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Type = models.EventType(eventType)
	if templateID.Valid {
		e.TemplateID = templateID.UUID
	}
	if eventDate.Valid {
		e.EventDate = &eventDate.Time
	}
	if err := json.Unmarshal(overrides, &e.Overrides); err != nil {
		return nil, fmt.Errorf("decode event overrides: %w", err)
	}
	return &e, nil
}
