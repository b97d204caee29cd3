package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"unionhub/internal/member/models"
	"unionhub/internal/platform/postgres"
	id "unionhub/pkg/domain"
	"unionhub/pkg/platform/sentinel"
	"unionhub/pkg/platform/tx"
)

const memberColumns = `id, membership_number, name, first_name, last_name, primary_email,
	telephone_mobile, has_email, has_mobile, token, verification_code, has_registered,
	is_attending, is_special_vote, has_voted, data_source, date_of_birth, address, region,
	branch, workplace, employer, industry, job_title, forum, last_imported_at, created_at, updated_at`

// Postgres persists members and financial forms.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, m *models.Member) error {
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28)`,
		memberArgs(m)...,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// Update rewrites the mutable columns. Token and verification code are
// immutable and form part of the match, so a changed credential reads as not found.
func (s *Postgres) Update(ctx context.Context, m *models.Member) error {
	args := memberArgs(m)
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		UPDATE members SET
			membership_number = $2, name = $3, first_name = $4, last_name = $5,
			primary_email = $6, telephone_mobile = $7, has_email = $8, has_mobile = $9,
			has_registered = $12, is_attending = $13, is_special_vote = $14, has_voted = $15,
			data_source = $16, date_of_birth = $17, address = $18, region = $19, branch = $20,
			workplace = $21, employer = $22, industry = $23, job_title = $24, forum = $25,
			last_imported_at = $26, updated_at = $28
		WHERE id = $1 AND token = $10 AND verification_code = $11`,
		args...,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update member rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, memberID id.MemberID) (*models.Member, error) {
	return s.findOne(ctx, "id = $1", memberID)
}

func (s *Postgres) FindByMembershipNumber(ctx context.Context, number string) (*models.Member, error) {
	return s.findOne(ctx, "membership_number = $1", strings.TrimSpace(number))
}

func (s *Postgres) FindByToken(ctx context.Context, token string) (*models.Member, error) {
	return s.findOne(ctx, "token = $1", token)
}

func (s *Postgres) findOne(ctx context.Context, where string, arg any) (*models.Member, error) {
	row := tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE `+where, arg)
	m, err := scanMember(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find member: %w", err)
	}
	return m, nil
}

func (s *Postgres) List(ctx context.Context, f models.Filter) ([]*models.Member, error) {
	var (
		conds []string
		args  []any
	)
	if f.Region != "" {
		args = append(args, f.Region)
		conds = append(conds, fmt.Sprintf("region = $%d", len(args)))
	}
	if f.DataSource != "" {
		args = append(args, string(f.DataSource))
		conds = append(conds, fmt.Sprintf("data_source = $%d", len(args)))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+search+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR membership_number LIKE $%d)", len(args), len(args)))
	}
	query := `SELECT ` + memberColumns + ` FROM members`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY membership_number"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []*models.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Postgres) CreateForm(ctx context.Context, form *models.FinancialForm) error {
	before, err := json.Marshal(form.Before)
	if err != nil {
		return fmt.Errorf("marshal before snapshot: %w", err)
	}
	after, err := json.Marshal(form.After)
	if err != nil {
		return fmt.Errorf("marshal after snapshot: %w", err)
	}
	_, err = tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO financial_forms (id, member_id, before_snapshot, after_snapshot, changed_fields,
			source, sync_status, sync_error, created_at, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		form.ID, form.MemberID, before, after, pq.Array(form.ChangedFields),
		string(form.Source), string(form.SyncStatus), form.SyncError, form.CreatedAt, form.SyncedAt,
	)
	if err != nil {
		return fmt.Errorf("insert financial form: %w", err)
	}
	return nil
}

func (s *Postgres) UpdateFormSync(ctx context.Context, formID uuid.UUID, status models.SyncStatus, syncErr string, at time.Time) error {
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		UPDATE financial_forms SET sync_status = $2, sync_error = $3, synced_at = $4 WHERE id = $1`,
		formID, string(status), syncErr, at,
	)
	if err != nil {
		return fmt.Errorf("update financial form sync: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListForms(ctx context.Context, memberID id.MemberID) ([]*models.FinancialForm, error) {
	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx, `
		SELECT id, member_id, before_snapshot, after_snapshot, changed_fields, source,
			sync_status, sync_error, created_at, synced_at
		FROM financial_forms WHERE member_id = $1 ORDER BY created_at DESC`, memberID)
	if err != nil {
		return nil, fmt.Errorf("list financial forms: %w", err)
	}
	defer rows.Close()

	var out []*models.FinancialForm
	for rows.Next() {
		var (
			form          models.FinancialForm
			before, after []byte
			source, sync  string
			syncedAt      sql.NullTime
		)
		if err := rows.Scan(&form.ID, &form.MemberID, &before, &after, pq.Array(&form.ChangedFields),
			&source, &sync, &form.SyncError, &form.CreatedAt, &syncedAt); err != nil {
			return nil, fmt.Errorf("scan financial form: %w", err)
		}
		if err := json.Unmarshal(before, &form.Before); err != nil {
			return nil, fmt.Errorf("decode before snapshot: %w", err)
		}
		if err := json.Unmarshal(after, &form.After); err != nil {
			return nil, fmt.Errorf("decode after snapshot: %w", err)
		}
		form.Source = id.Source(source)
		form.SyncStatus = models.SyncStatus(sync)
		if syncedAt.Valid {
			form.SyncedAt = &syncedAt.Time
		}
		out = append(out, &form)
	}
	return out, rows.Err()
}

func memberArgs(m *models.Member) []any {
	return []any{
		m.ID, m.MembershipNumber, m.Name, m.FirstName, m.LastName, m.PrimaryEmail,
		m.TelephoneMobile, m.HasEmail, m.HasMobile, m.Token, m.VerificationCode, m.HasRegistered,
		m.IsAttending, m.IsSpecialVote, m.HasVoted, string(m.DataSource), m.DateOfBirth, m.Address,
		m.Region, m.Branch, m.Workplace, m.Employer, m.Industry, m.JobTitle, m.Forum,
		m.LastImportedAt, m.CreatedAt, m.UpdatedAt,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (*models.Member, error) {
	var (
		m            models.Member
		email        sql.NullString
		source       string
		lastImported sql.NullTime
	)
	err := row.Scan(
		&m.ID, &m.MembershipNumber, &m.Name, &m.FirstName, &m.LastName, &email,
		&m.TelephoneMobile, &m.HasEmail, &m.HasMobile, &m.Token, &m.VerificationCode, &m.HasRegistered,
		&m.IsAttending, &m.IsSpecialVote, &m.HasVoted, &source, &m.DateOfBirth, &m.Address,
		&m.Region, &m.Branch, &m.Workplace, &m.Employer, &m.Industry, &m.JobTitle, &m.Forum,
		&lastImported, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if email.Valid {
		m.PrimaryEmail = &email.String
	}
	if lastImported.Valid {
		m.LastImportedAt = &lastImported.Time
	}
	m.DataSource = id.Source(source)
	return &m, nil
}
