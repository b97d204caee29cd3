package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"unionhub/internal/bmm/models"
	emodels "unionhub/internal/event/models"
	mmodels "unionhub/internal/member/models"
	nmodels "unionhub/internal/notification/models"
	id "unionhub/pkg/domain"
	"unionhub/pkg/requestcontext"
)

// campaign describes one bulk notification: who is eligible, what is sent
// and which flag records that it went out.
type campaign struct {
	name          string
	emailTemplate string
	smsTemplate   string
	kind          string
	filter        models.Filter
	eligible      func(*models.EventMember) bool
	sent          func(*models.EventMember) bool
	markSent      func(*models.EventMember, time.Time)
	vars          func(*emodels.Event, *mmodels.Member, *models.EventMember) map[string]string
}

// SendInvitations invites registrations that have not yet chosen preferences.
// A blank region covers every region.
func (s *Service) SendInvitations(ctx context.Context, eventID id.EventID, region string) (*models.BatchResult, error) {
	return s.runCampaign(ctx, eventID, campaign{
		name:          "invitations",
		emailTemplate: nmodels.CodeBMMInvitation,
		kind:          nmodels.TypeInvitation,
		filter: models.Filter{
			Stages: []models.Stage{models.StageInvited, models.StageProfileUpdated},
			Region: s.regionFilter(region),
		},
		sent: func(em *models.EventMember) bool { return em.InvitationSent },
		markSent: func(em *models.EventMember, at time.Time) {
			em.InvitationSent, em.InvitationSentAt = true, &at
		},
		vars: func(e *emodels.Event, m *mmodels.Member, em *models.EventMember) map[string]string {
			v := s.baseVars(e, m, em)
			v["registrationUrl"] = s.link("bmm", e.ID.String(), m.Token)
			return v
		},
	})
}

// SendConfirmations asks members with an assigned venue to confirm attendance.
func (s *Service) SendConfirmations(ctx context.Context, eventID id.EventID, region string) (*models.BatchResult, error) {
	return s.runCampaign(ctx, eventID, campaign{
		name:          "confirmations",
		emailTemplate: nmodels.CodeBMMConfirmation,
		kind:          nmodels.TypeConfirmation,
		filter: models.Filter{
			Stages: []models.Stage{models.StageVenueAssigned, models.StageAttendanceConfirmed},
			Region: s.regionFilter(region),
		},
		sent: func(em *models.EventMember) bool { return em.ConfirmationSent },
		markSent: func(em *models.EventMember, at time.Time) {
			em.ConfirmationSent, em.ConfirmationSentAt = true, &at
		},
		vars: func(e *emodels.Event, m *mmodels.Member, em *models.EventMember) map[string]string {
			v := s.baseVars(e, m, em)
			v["confirmUrl"] = s.link("bmm", e.ID.String(), "confirm", m.Token)
			return v
		},
	})
}

// SendSpecialVoteLinks offers the special-vote application to eligible
// members who declined and have not applied yet.
func (s *Service) SendSpecialVoteLinks(ctx context.Context, eventID id.EventID) (*models.BatchResult, error) {
	return s.runCampaign(ctx, eventID, campaign{
		name:          "special_vote_links",
		emailTemplate: nmodels.CodeBMMSpecialVoteLink,
		kind:          nmodels.TypeSpecialVoteLink,
		filter:        models.Filter{Stages: []models.Stage{models.StageAttendanceDeclined}},
		eligible: func(em *models.EventMember) bool {
			return em.SpecialVoteEligible && !em.SpecialVoteRequested
		},
		sent: func(em *models.EventMember) bool { return em.SpecialVoteLinkSent },
		markSent: func(em *models.EventMember, at time.Time) {
			em.SpecialVoteLinkSent, em.SpecialVoteLinkSentAt = true, &at
		},
		vars: func(e *emodels.Event, m *mmodels.Member, em *models.EventMember) map[string]string {
			v := s.baseVars(e, m, em)
			v["specialVoteUrl"] = s.link("bmm", e.ID.String(), "special-vote", m.Token)
			return v
		},
	})
}

// SendTickets issues and delivers tickets to confirmed attendees who do not
// have one yet, and retries tickets whose delivery failed.
func (s *Service) SendTickets(ctx context.Context, eventID id.EventID, region string) (*models.BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "bmm.SendTickets")
	defer span.End()
	span.SetAttributes(attribute.String("event_id", eventID.String()))

	start := time.Now()
	if _, err := s.events.Get(ctx, eventID); err != nil {
		return nil, err
	}
	candidates, err := s.List(ctx, eventID, models.Filter{
		Stages: []models.Stage{models.StageAttendanceConfirmed, models.StageTicketIssued},
		Region: s.regionFilter(region),
	})
	if err != nil {
		return nil, err
	}

	result := &models.BatchResult{Errors: []string{}}
	for _, em := range candidates {
		if em.TicketSent {
			continue
		}
		if em.Stage == models.StageTicketIssued && !em.NeedsTicketRedelivery() {
			continue
		}
		result.Total++
		issued, err := s.GenerateAndSendTicket(ctx, em.ID)
		switch {
		case err != nil:
			result.RecordFailure(fmt.Sprintf("%s: %v", em.ID, err))
		case issued.TicketStatus != models.TicketSent:
			result.RecordFailure(fmt.Sprintf("%s: ticket issued but not delivered", em.ID))
		default:
			result.Success++
		}
	}
	s.finishCampaign(ctx, "tickets", eventID, start, result)
	return result, nil
}

func (s *Service) runCampaign(ctx context.Context, eventID id.EventID, c campaign) (*models.BatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "bmm.campaign."+c.name)
	defer span.End()
	span.SetAttributes(
		attribute.String("event_id", eventID.String()),
		attribute.String("region", c.filter.Region),
	)

	start := time.Now()
	e, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	listed, err := s.List(ctx, eventID, c.filter)
	if err != nil {
		return nil, err
	}

	result := &models.BatchResult{Errors: []string{}}
	for _, em := range listed {
		if c.sent(em) || (c.eligible != nil && !c.eligible(em)) {
			continue
		}
		result.Total++
		skip, err := s.sendOne(ctx, e, em, c)
		switch {
		case err != nil:
			result.RecordFailure(fmt.Sprintf("%s: %v", em.ID, err))
			if s.logger != nil {
				s.logger.WarnContext(ctx, "campaign send failed",
					"campaign", c.name,
					"event_member_id", em.ID.String(),
					"error", err,
				)
			}
		case skip != "":
			result.RecordSkip(skip)
		default:
			result.Success++
		}
	}
	span.SetAttributes(
		attribute.Int("total", result.Total),
		attribute.Int("success", result.Success),
		attribute.Int("failed", result.Failed),
	)
	s.finishCampaign(ctx, c.name, eventID, start, result)
	return result, nil
}

// sendOne delivers one campaign message and flips the sent flag. It returns a
// non-empty skip message when nothing was attempted.
func (s *Service) sendOne(ctx context.Context, e *emodels.Event, em *models.EventMember, c campaign) (string, error) {
	if s.notifier == nil {
		return "", fmt.Errorf("no notifier configured")
	}
	m, err := s.loadMember(ctx, em.MemberID)
	if err != nil {
		return "", err
	}
	to := recipient(m)
	if to.Email == "" && (c.smsTemplate == "" || to.Mobile == "") {
		return fmt.Sprintf("%s: member %s has no deliverable contact", em.ID, m.MembershipNumber), nil
	}

	key := c.kind + ":" + em.ID.String()
	if s.guard != nil {
		claimed, err := s.guard.Claim(ctx, key)
		if err != nil {
			return "", err
		}
		if !claimed {
			return fmt.Sprintf("%s: send already in progress", em.ID), nil
		}
	}

	emID := em.ID
	err = s.notifier.Notify(ctx, nmodels.Notification{
		EmailTemplate: c.emailTemplate,
		SMSTemplate:   c.smsTemplate,
		To:            to,
		Vars:          c.vars(e, m, em),
		Type:          c.kind,
		EventMemberID: &emID,
	})
	if err != nil {
		s.release(ctx, key)
		return "", err
	}

	return "", s.tx.RunInTx(ctx, func(ctx context.Context) error {
		cur, err := s.load(ctx, em.ID)
		if err != nil {
			return err
		}
		if c.sent(cur) {
			return nil
		}
		c.markSent(cur, requestcontext.Now(ctx))
		return s.save(ctx, cur)
	})
}

func (s *Service) release(ctx context.Context, key string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Release(ctx, key); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to release send slot", "key", key, "error", err)
	}
}

func (s *Service) finishCampaign(ctx context.Context, name string, eventID id.EventID, start time.Time, result *models.BatchResult) {
	if s.metrics != nil {
		s.metrics.ObserveCampaign(name, start, result.Success, result.Failed, result.Skipped)
	}
	s.logAudit(ctx, "bmm_campaign_completed",
		"campaign", name,
		"event_id", eventID.String(),
		"total", result.Total,
		"success", result.Success,
		"failed", result.Failed,
		"skipped", result.Skipped,
	)
}

func (s *Service) regionFilter(region string) string {
	if region == "" {
		return ""
	}
	return s.cfg.CanonicalRegion(region)
}

func (s *Service) baseVars(e *emodels.Event, m *mmodels.Member, em *models.EventMember) map[string]string {
	v := map[string]string{
		"name":             m.Name,
		"firstName":        m.FirstName,
		"membershipNumber": m.MembershipNumber,
		"eventName":        e.Name,
		"region":           em.Region,
		"venue":            em.AssignedVenueFinal,
		"datetime":         formatDatetime(em.AssignedDatetimeFinal),
	}
	if e.EventDate != nil {
		v["eventDate"] = e.EventDate.Format("2 January 2006")
	}
	return v
}
