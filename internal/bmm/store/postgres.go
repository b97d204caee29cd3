package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"unionhub/internal/bmm/models"
	"unionhub/internal/platform/postgres"
	id "unionhub/pkg/domain"
	"unionhub/pkg/platform/sentinel"
	"unionhub/pkg/platform/tx"
)

const columns = `id, event_id, member_id, bmm_stage, region, preferred_venues, preferred_dates,
	preferred_times, attendance_intent, comments, assigned_venue_final, assigned_datetime_final,
	is_attending, ticket_token, ticket_status, ticket_path, checked_in_at, special_vote_eligible,
	special_vote_requested, special_vote_status, special_vote_reason, special_vote_details,
	invitation_sent, invitation_sent_at, confirmation_sent, confirmation_sent_at,
	special_vote_link_sent, special_vote_link_sent_at, ticket_sent, ticket_sent_at,
	created_at, updated_at`

// Postgres persists registrations in event_members.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, em *models.EventMember) error {
	_, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		INSERT INTO event_members (`+columns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
			$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32)`,
		args(em)...,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert event member: %w", err)
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, em *models.EventMember) error {
	res, err := tx.ExecutorFrom(ctx, s.db).ExecContext(ctx, `
		UPDATE event_members SET
			bmm_stage = $4, region = $5, preferred_venues = $6, preferred_dates = $7,
			preferred_times = $8, attendance_intent = $9, comments = $10,
			assigned_venue_final = $11, assigned_datetime_final = $12, is_attending = $13,
			ticket_token = $14, ticket_status = $15, ticket_path = $16, checked_in_at = $17,
			special_vote_eligible = $18, special_vote_requested = $19, special_vote_status = $20,
			special_vote_reason = $21, special_vote_details = $22,
			invitation_sent = $23, invitation_sent_at = $24,
			confirmation_sent = $25, confirmation_sent_at = $26,
			special_vote_link_sent = $27, special_vote_link_sent_at = $28,
			ticket_sent = $29, ticket_sent_at = $30, updated_at = $31
		WHERE id = $1 AND event_id = $2 AND member_id = $3`,
		updateArgs(em)...,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update event member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update event member rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, emID id.EventMemberID) (*models.EventMember, error) {
	return s.findOne(ctx, "id = $1", emID)
}

func (s *Postgres) FindByEventAndMember(ctx context.Context, eventID id.EventID, memberID id.MemberID) (*models.EventMember, error) {
	return s.findOne(ctx, "event_id = $1 AND member_id = $2", eventID, memberID)
}

func (s *Postgres) FindByTicketToken(ctx context.Context, token string) (*models.EventMember, error) {
	return s.findOne(ctx, "ticket_token = $1", token)
}

// findOne locks the row when called inside a transaction so check-then-set
// sequences on send flags are serialised.
func (s *Postgres) findOne(ctx context.Context, where string, queryArgs ...any) (*models.EventMember, error) {
	query := `SELECT ` + columns + ` FROM event_members WHERE ` + where
	if _, inTx := tx.From(ctx); inTx {
		query += " FOR UPDATE"
	}
	em, err := scan(tx.ExecutorFrom(ctx, s.db).QueryRowContext(ctx, query, queryArgs...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find event member: %w", err)
	}
	return em, nil
}

func (s *Postgres) ListByEvent(ctx context.Context, eventID id.EventID, f models.Filter) ([]*models.EventMember, error) {
	conds := []string{"event_id = $1"}
	queryArgs := []any{eventID}
	if f.Region != "" {
		queryArgs = append(queryArgs, f.Region)
		conds = append(conds, fmt.Sprintf("region = $%d", len(queryArgs)))
	}
	if len(f.Stages) > 0 {
		stages := make([]string, len(f.Stages))
		for i, st := range f.Stages {
			stages[i] = string(st)
		}
		queryArgs = append(queryArgs, pq.Array(stages))
		conds = append(conds, fmt.Sprintf("bmm_stage = ANY($%d)", len(queryArgs)))
	}

	rows, err := tx.ExecutorFrom(ctx, s.db).QueryContext(ctx,
		`SELECT `+columns+` FROM event_members WHERE `+strings.Join(conds, " AND ")+` ORDER BY created_at, id`,
		queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("list event members: %w", err)
	}
	defer rows.Close()

	var out []*models.EventMember
	for rows.Next() {
		em, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event member: %w", err)
		}
		out = append(out, em)
	}
	return out, rows.Err()
}

func args(em *models.EventMember) []any {
	return []any{
		em.ID, em.EventID, em.MemberID, string(em.Stage), em.Region,
		pq.Array(nonNil(em.PreferredVenues)), pq.Array(nonNil(em.PreferredDates)), pq.Array(nonNil(em.PreferredTimes)),
		em.AttendanceIntent, em.Comments, em.AssignedVenueFinal, em.AssignedDatetimeFinal,
		em.IsAttending, em.TicketToken, string(em.TicketStatus), em.TicketPath, em.CheckedInAt,
		em.SpecialVoteEligible, em.SpecialVoteRequested, string(em.SpecialVoteStatus),
		em.SpecialVoteReason, em.SpecialVoteDetails,
		em.InvitationSent, em.InvitationSentAt, em.ConfirmationSent, em.ConfirmationSentAt,
		em.SpecialVoteLinkSent, em.SpecialVoteLinkSentAt, em.TicketSent, em.TicketSentAt,
		em.CreatedAt, em.UpdatedAt,
	}
}

// updateArgs drops created_at, which never changes.
func updateArgs(em *models.EventMember) []any {
	all := args(em)
	return append(all[:30:30], all[31])
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(row scanner) (*models.EventMember, error) {
	var (
		em                                                  models.EventMember
		stage, ticketStatus, svStatus                       string
		ticketToken                                         sql.NullString
		assignedAt, checkedIn, invAt, confAt, linkAt, tktAt sql.NullTime
	)
	err := row.Scan(
		&em.ID, &em.EventID, &em.MemberID, &stage, &em.Region,
		pq.Array(&em.PreferredVenues), pq.Array(&em.PreferredDates), pq.Array(&em.PreferredTimes),
		&em.AttendanceIntent, &em.Comments, &em.AssignedVenueFinal, &assignedAt,
		&em.IsAttending, &ticketToken, &ticketStatus, &em.TicketPath, &checkedIn,
		&em.SpecialVoteEligible, &em.SpecialVoteRequested, &svStatus,
		&em.SpecialVoteReason, &em.SpecialVoteDetails,
		&em.InvitationSent, &invAt, &em.ConfirmationSent, &confAt,
		&em.SpecialVoteLinkSent, &linkAt, &em.TicketSent, &tktAt,
		&em.CreatedAt, &em.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	em.Stage = models.Stage(stage)
	em.TicketStatus = models.TicketStatus(ticketStatus)
	em.SpecialVoteStatus = models.SpecialVoteStatus(svStatus)
	if ticketToken.Valid {
		em.TicketToken = &ticketToken.String
	}
	em.AssignedDatetimeFinal = nullTime(assignedAt)
	em.CheckedInAt = nullTime(checkedIn)
	em.InvitationSentAt = nullTime(invAt)
	em.ConfirmationSentAt = nullTime(confAt)
	em.SpecialVoteLinkSentAt = nullTime(linkAt)
	em.TicketSentAt = nullTime(tktAt)
	return &em, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
