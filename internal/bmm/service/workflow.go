package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"unionhub/internal/bmm/models"
	mmodels "unionhub/internal/member/models"
	nmodels "unionhub/internal/notification/models"
	id "unionhub/pkg/domain"
	dErrors "unionhub/pkg/domain-errors"
	"unionhub/pkg/platform/sentinel"
	pstrings "unionhub/pkg/platform/strings"
	"unionhub/pkg/requestcontext"
)

// SubmitPreferences records the member's venue, date and time choices and
// moves the registration straight to VENUE_ASSIGNED. The first preferred venue
// becomes the final venue; with no venue it stays empty for an admin to fill.
// More than one venue is rejected.
func (s *Service) SubmitPreferences(ctx context.Context, token string, eventID id.EventID, req models.PreferencesRequest) (*models.EventMember, error) {
	if countNonBlank(req.PreferredVenues) > 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "at most one preferred venue may be submitted")
	}
	venues := pstrings.DedupeFold(req.PreferredVenues)

	var out *models.EventMember
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		_, em, err := s.loadByToken(ctx, token, eventID)
		if err != nil {
			return err
		}
		if len(venues) == 1 && !s.cfg.IsVenueAllowed(em.Region, venues[0]) {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("venue %q is not available in %s", venues[0], em.Region))
		}
		if err := s.transition(em, models.SubmitPreferencesAutoAssign); err != nil {
			return err
		}
		em.PreferredVenues = venues
		em.PreferredDates = pstrings.DedupeAndTrim(req.PreferredDates)
		em.PreferredTimes = pstrings.DedupeAndTrim(req.PreferredTimes)
		em.AttendanceIntent = strings.TrimSpace(req.AttendanceIntent)
		em.Comments = strings.TrimSpace(req.Comments)
		em.AssignedVenueFinal = ""
		if len(venues) == 1 {
			em.AssignedVenueFinal = venues[0]
		}
		if err := s.save(ctx, em); err != nil {
			return err
		}
		out = em
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "bmm_preferences_submitted",
		"event_member_id", out.ID.String(),
		"stage", string(out.Stage),
	)
	return out, nil
}

func countNonBlank(values []string) int {
	n := 0
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			n++
		}
	}
	return n
}

// AssignVenues gives every PREFERENCE_SUBMITTED registration its first
// preferred venue, region by region in listing order. Capacity is not balanced.
func (s *Service) AssignVenues(ctx context.Context, eventID id.EventID) (*models.BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "bmm.AssignVenues")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", eventID.String()))

	start := time.Now()
	pending, err := s.List(ctx, eventID, models.Filter{Stages: []models.Stage{models.StagePreferenceSubmitted}})
	if err != nil {
		return nil, err
	}

	var regions []string
	byRegion := map[string][]*models.EventMember{}
	for _, em := range pending {
		if _, ok := byRegion[em.Region]; !ok {
			regions = append(regions, em.Region)
		}
		byRegion[em.Region] = append(byRegion[em.Region], em)
	}

	result := &models.BatchResult{Total: len(pending), Errors: []string{}}
	for _, region := range regions {
		for _, em := range byRegion[region] {
			if len(em.PreferredVenues) == 0 {
				result.RecordSkip(fmt.Sprintf("%s: no preferred venue", em.ID))
				continue
			}
			if err := s.assignVenue(ctx, em.ID); err != nil {
				result.RecordFailure(fmt.Sprintf("%s: %v", em.ID, err))
				if s.logger != nil {
					s.logger.WarnContext(ctx, "venue assignment failed",
						"event_member_id", em.ID.String(),
						"error", err,
					)
				}
				continue
			}
			result.Success++
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveCampaign("assign_venues", start, result.Success, result.Failed, result.Skipped)
	}
	s.logAudit(ctx, "bmm_venues_assigned",
		"event_id", eventID.String(),
		"total", result.Total,
		"success", result.Success,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *Service) assignVenue(ctx context.Context, emID id.EventMemberID) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		em, err := s.load(ctx, emID)
		if err != nil {
			return err
		}
		if len(em.PreferredVenues) == 0 {
			return dErrors.New(dErrors.CodeValidation, "no preferred venue")
		}
		if err := s.transition(em, models.AssignVenue); err != nil {
			return err
		}
		em.AssignedVenueFinal = em.PreferredVenues[0]
		return s.save(ctx, em)
	})
}

// AssignDatetime completes the deferred datetime of an assigned venue.
func (s *Service) AssignDatetime(ctx context.Context, emID id.EventMemberID, at time.Time) (*models.EventMember, error) {
	if at.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "datetime is required")
	}
	var out *models.EventMember
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		em, err := s.load(ctx, emID)
		if err != nil {
			return err
		}
		if em.Stage != models.StageVenueAssigned && em.Stage != models.StageAttendanceConfirmed {
			return dErrors.New(dErrors.CodeInvariantViolation, "datetime can only be assigned after a venue, current stage is "+string(em.Stage))
		}
		at := at.UTC()
		em.AssignedDatetimeFinal = &at
		if err := s.save(ctx, em); err != nil {
			return err
		}
		out = em
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "bmm_datetime_assigned", "event_member_id", emID.String())
	return out, nil
}

// ConfirmAttendance is the member's confirmation of the assigned venue.
func (s *Service) ConfirmAttendance(ctx context.Context, token string, eventID id.EventID) (*models.EventMember, error) {
	var out *models.EventMember
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		m, em, err := s.loadByToken(ctx, token, eventID)
		if err != nil {
			return err
		}
		if err := s.transition(em, models.ConfirmAttendance); err != nil {
			return err
		}
		em.IsAttending = true
		if err := s.save(ctx, em); err != nil {
			return err
		}
		if err := s.setMemberFlags(ctx, m, func(m *mmodels.Member) { m.IsAttending = true }); err != nil {
			return err
		}
		out = em
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "bmm_attendance_confirmed", "event_member_id", out.ID.String())
	return out, nil
}

// RecordNonAttendance declines the registration. Declining twice is a no-op.
func (s *Service) RecordNonAttendance(ctx context.Context, emID id.EventMemberID) (*models.EventMember, error) {
	var out *models.EventMember
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		em, err := s.decline(ctx, emID)
		out = em
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "bmm_non_attendance_recorded", "event_member_id", emID.String())
	return out, nil
}

func (s *Service) decline(ctx context.Context, emID id.EventMemberID) (*models.EventMember, error) {
	em, err := s.load(ctx, emID)
	if err != nil {
		return nil, err
	}
	if em.Stage == models.StageAttendanceDeclined {
		return em, nil
	}
	if err := s.transition(em, models.DeclineAttendance); err != nil {
		return nil, err
	}
	em.IsAttending = false
	if err := s.save(ctx, em); err != nil {
		return nil, err
	}
	m, err := s.loadMember(ctx, em.MemberID)
	if err != nil {
		return nil, err
	}
	if err := s.setMemberFlags(ctx, m, func(m *mmodels.Member) { m.IsAttending = false }); err != nil {
		return nil, err
	}
	return em, nil
}

// ProcessNonAttendanceWithSpecialVote declines attendance and, when requested,
// opens a special-vote application for admin review. Members of regions not
// eligible for special votes are rejected before anything changes.
func (s *Service) ProcessNonAttendanceWithSpecialVote(ctx context.Context, emID id.EventMemberID, req models.SpecialVoteRequest) (*models.EventMember, error) {
	var out *models.EventMember
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		em, err := s.load(ctx, emID)
		if err != nil {
			return err
		}
		if !s.cfg.IsSpecialVoteEligible(em.Region) {
			return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("special votes are not available in %s", regionLabel(em.Region)))
		}
		reason := strings.ToUpper(strings.TrimSpace(req.Reason))
		if req.Requested && !s.cfg.IsValidReason(reason) {
			return dErrors.New(dErrors.CodeValidation, "special vote reason must be one of "+strings.Join(s.cfg.SpecialVoteReasons(), ", "))
		}

		em, err = s.decline(ctx, emID)
		if err != nil {
			return err
		}
		if req.Requested {
			em.SpecialVoteRequested = true
			em.SpecialVoteStatus = models.SpecialVotePending
			em.SpecialVoteReason = reason
			em.SpecialVoteDetails = strings.TrimSpace(req.Details)
			if err := s.save(ctx, em); err != nil {
				return err
			}
		}
		out = em
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "bmm_special_vote_processed",
		"event_member_id", emID.String(),
		"requested", req.Requested,
	)
	return out, nil
}

func regionLabel(region string) string {
	if region == "" {
		return "an unknown region"
	}
	return region
}

// ReviewSpecialVote approves or rejects a pending application.
func (s *Service) ReviewSpecialVote(ctx context.Context, emID id.EventMemberID, approve bool) (*models.EventMember, error) {
	var out *models.EventMember
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		em, err := s.load(ctx, emID)
		if err != nil {
			return err
		}
		if em.SpecialVoteStatus != models.SpecialVotePending {
			return dErrors.New(dErrors.CodeInvariantViolation, "special vote is not pending review")
		}
		em.SpecialVoteStatus = models.SpecialVoteRejected
		if approve {
			em.SpecialVoteStatus = models.SpecialVoteApproved
		}
		if err := s.save(ctx, em); err != nil {
			return err
		}
		if approve {
			m, err := s.loadMember(ctx, em.MemberID)
			if err != nil {
				return err
			}
			if err := s.setMemberFlags(ctx, m, func(m *mmodels.Member) { m.IsSpecialVote = true }); err != nil {
				return err
			}
		}
		out = em
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "bmm_special_vote_reviewed",
		"event_member_id", emID.String(),
		"status", string(out.SpecialVoteStatus),
	)
	return out, nil
}

// GenerateAndSendTicket issues a ticket and then tries to deliver it. Delivery
// problems end up in TicketStatus; only issuing errors are returned. A ticket
// whose delivery failed is delivered again under its existing token.
func (s *Service) GenerateAndSendTicket(ctx context.Context, emID id.EventMemberID) (*models.EventMember, error) {
	ctx, span := s.tracer.Start(ctx, "bmm.GenerateAndSendTicket")
	defer span.End()
	span.SetAttributes(attribute.String("event_member_id", emID.String()))

	var (
		em     *models.EventMember
		m      *mmodels.Member
		resend bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		em, err = s.load(ctx, emID)
		if err != nil {
			return err
		}
		m, err = s.loadMember(ctx, em.MemberID)
		if err != nil {
			return err
		}
		if em.NeedsTicketRedelivery() {
			resend = true
			return nil
		}
		if err := s.transition(em, models.IssueTicket); err != nil {
			return err
		}
		token := uuid.NewString()
		em.TicketToken = &token
		em.TicketPath = TicketPath(em.EventID, token)
		em.TicketStatus = models.TicketNone
		return s.save(ctx, em)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("resend", resend))
	if resend {
		s.logAudit(ctx, "bmm_ticket_resent", "event_member_id", em.ID.String())
	} else {
		s.logAudit(ctx, "bmm_ticket_issued", "event_member_id", em.ID.String())
	}

	status, deliveryErr := s.deliverTicket(ctx, em, m)
	if deliveryErr != nil {
		span.RecordError(deliveryErr)
		if s.logger != nil {
			s.logger.WarnContext(ctx, "ticket delivery failed",
				"event_member_id", em.ID.String(),
				"error", deliveryErr,
			)
		}
	}
	if s.metrics != nil {
		s.metrics.IncrementTicket(string(status))
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cur, err := s.load(ctx, em.ID)
		if err != nil {
			return err
		}
		cur.TicketStatus = status
		if status == models.TicketSent {
			now := requestcontext.Now(ctx)
			cur.TicketSent = true
			cur.TicketSentAt = &now
		}
		if err := s.save(ctx, cur); err != nil {
			return err
		}
		em = cur
		return nil
	})
	if err != nil {
		em.TicketStatus = status
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to record ticket status",
				"event_member_id", em.ID.String(),
				"error", err,
			)
		}
	}
	return em, nil
}

func (s *Service) deliverTicket(ctx context.Context, em *models.EventMember, m *mmodels.Member) (models.TicketStatus, error) {
	checkIn := s.link("checkin", em.Ticket())
	ticketURL, err := s.renderer.Render(ctx, Ticket{
		EventID:          em.EventID,
		EventMemberID:    em.ID,
		Token:            em.Ticket(),
		MemberName:       m.Name,
		MembershipNumber: m.MembershipNumber,
		Venue:            em.AssignedVenueFinal,
		CheckInURL:       checkIn,
	})
	if err != nil {
		return models.TicketFailed, err
	}
	if s.notifier == nil {
		return models.TicketFailed, dErrors.New(dErrors.CodeUnavailable, "no notifier configured")
	}

	to := recipient(m)
	if to.Email == "" && to.Mobile == "" {
		return models.TicketFailed, dErrors.New(dErrors.CodeValidation, "member has no email or mobile")
	}
	eventName := ""
	if e, err := s.events.Get(ctx, em.EventID); err == nil {
		eventName = e.Name
	}
	vars := map[string]string{
		"name":             m.Name,
		"membershipNumber": m.MembershipNumber,
		"eventName":        eventName,
		"venue":            em.AssignedVenueFinal,
		"datetime":         formatDatetime(em.AssignedDatetimeFinal),
		"ticketUrl":        ticketURL,
		"checkinUrl":       checkIn,
	}
	emID := em.ID
	err = s.notifier.Notify(ctx, nmodels.Notification{
		EmailTemplate: nmodels.CodeBMMTicket,
		SMSTemplate:   nmodels.CodeBMMTicketSMS,
		To:            to,
		Vars:          vars,
		Type:          nmodels.TypeTicket,
		EventMemberID: &emID,
	})
	if err != nil {
		return models.TicketFailed, err
	}
	return models.TicketSent, nil
}

func formatDatetime(t *time.Time) string {
	if t == nil {
		return "to be confirmed"
	}
	return t.Format("Monday 2 January 2006, 3:04pm")
}

// CheckIn marks the ticket holder as present at the venue.
func (s *Service) CheckIn(ctx context.Context, ticketToken string) (*models.EventMember, error) {
	ticketToken = strings.TrimSpace(ticketToken)
	if ticketToken == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "ticket token is required")
	}
	var out *models.EventMember
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		em, err := s.store.FindByTicketToken(ctx, ticketToken)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "ticket not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ticket")
		}
		tpl, err := s.events.Template(ctx, em.EventID)
		if err != nil {
			return err
		}
		if !tpl.AllowsQRCheckin {
			return dErrors.New(dErrors.CodeForbidden, "this event does not support ticket check-in")
		}
		if err := s.transition(em, models.CheckIn); err != nil {
			return err
		}
		now := requestcontext.Now(ctx)
		em.CheckedInAt = &now
		if err := s.save(ctx, em); err != nil {
			return err
		}
		out = em
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "bmm_checked_in", "event_member_id", out.ID.String())
	return out, nil
}

// OverrideStage is an admin correction outside the transition table. A reason
// is mandatory and recorded in the audit log.
func (s *Service) OverrideStage(ctx context.Context, emID id.EventMemberID, req models.OverrideStageRequest) (*models.EventMember, error) {
	stage, err := models.ParseStage(req.Stage)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a reason is required to override a stage")
	}

	var (
		out  *models.EventMember
		from models.Stage
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		em, err := s.load(ctx, emID)
		if err != nil {
			return err
		}
		from = em.Stage
		em.Stage = stage
		if err := s.save(ctx, em); err != nil {
			return err
		}
		out = em
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(stage))
	}
	s.logAudit(ctx, "bmm_stage_overridden",
		"event_member_id", emID.String(),
		"from", string(from),
		"to", string(stage),
		"reason", reason,
	)
	return out, nil
}

// AdvanceOnProfileUpdate moves an INVITED registration to PROFILE_UPDATED.
// Registrations further along are left alone.
func (s *Service) AdvanceOnProfileUpdate(ctx context.Context, eventID id.EventID, memberID id.MemberID) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context) error {
		em, err := s.store.FindByEventAndMember(ctx, eventID, memberID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "member is not registered for this event")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
		}
		if !models.Allowed(em.Stage, models.UpdateProfile) {
			return nil
		}
		if err := s.transition(em, models.UpdateProfile); err != nil {
			return err
		}
		return s.save(ctx, em)
	})
}

func (s *Service) setMemberFlags(ctx context.Context, m *mmodels.Member, set func(*mmodels.Member)) error {
	set(m)
	m.UpdatedAt = requestcontext.Now(ctx)
	if err := s.members.Update(ctx, m); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save member")
	}
	return nil
}
