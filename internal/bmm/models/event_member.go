package models

import (
	"time"

	id "unionhub/pkg/domain"
)

type TicketStatus string

const (
	TicketNone   TicketStatus = "NONE"
	TicketSent   TicketStatus = "SENT"
	TicketFailed TicketStatus = "FAILED"
)

type SpecialVoteStatus string

const (
	SpecialVoteNone     SpecialVoteStatus = "NONE"
	SpecialVotePending  SpecialVoteStatus = "PENDING"
	SpecialVoteApproved SpecialVoteStatus = "APPROVED"
	SpecialVoteRejected SpecialVoteStatus = "REJECTED"
)

// EventMember is one member's registration for one event. Each notification
// has a sent flag and timestamp; automated flows set the flag once and never clear it.
type EventMember struct {
	ID       id.EventMemberID `json:"id"`
	EventID  id.EventID       `json:"event_id"`
	MemberID id.MemberID      `json:"member_id"`
	Stage    Stage            `json:"bmm_stage"`
	Region   string           `json:"region"`

	PreferredVenues  []string `json:"preferred_venues"`
	PreferredDates   []string `json:"preferred_dates"`
	PreferredTimes   []string `json:"preferred_times"`
	AttendanceIntent string   `json:"attendance_intent,omitempty"`
	Comments         string   `json:"comments,omitempty"`

	AssignedVenueFinal    string     `json:"assigned_venue_final,omitempty"`
	AssignedDatetimeFinal *time.Time `json:"assigned_datetime_final,omitempty"`
	IsAttending           bool       `json:"is_attending"`

	TicketToken  *string      `json:"ticket_token,omitempty"`
	TicketStatus TicketStatus `json:"ticket_status"`
	TicketPath   string       `json:"ticket_path,omitempty"`
	CheckedInAt  *time.Time   `json:"checked_in_at,omitempty"`

	SpecialVoteEligible  bool              `json:"special_vote_eligible"`
	SpecialVoteRequested bool              `json:"special_vote_requested"`
	SpecialVoteStatus    SpecialVoteStatus `json:"special_vote_status"`
	SpecialVoteReason    string            `json:"special_vote_reason,omitempty"`
	SpecialVoteDetails   string            `json:"special_vote_details,omitempty"`

	InvitationSent        bool       `json:"bmm_invitation_sent"`
	InvitationSentAt      *time.Time `json:"bmm_invitation_sent_at,omitempty"`
	ConfirmationSent      bool       `json:"bmm_confirmation_sent"`
	ConfirmationSentAt    *time.Time `json:"bmm_confirmation_sent_at,omitempty"`
	SpecialVoteLinkSent   bool       `json:"special_vote_link_sent"`
	SpecialVoteLinkSentAt *time.Time `json:"special_vote_link_sent_at,omitempty"`
	TicketSent            bool       `json:"ticket_sent"`
	TicketSentAt          *time.Time `json:"ticket_sent_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEventMember registers a member at INVITED.
func NewEventMember(eventID id.EventID, memberID id.MemberID, region string, eligible bool, now time.Time) *EventMember {
	return &EventMember{
		ID:                  id.NewEventMemberID(),
		EventID:             eventID,
		MemberID:            memberID,
		Stage:               StageInvited,
		Region:              region,
		TicketStatus:        TicketNone,
		SpecialVoteEligible: eligible,
		SpecialVoteStatus:   SpecialVoteNone,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// Apply moves the registration along t.
func (em *EventMember) Apply(t Transition) error {
	next, err := Next(em.Stage, t)
	if err != nil {
		return err
	}
	em.Stage = next
	return nil
}

// Ticket returns the ticket token or "".
func (em *EventMember) Ticket() string {
	if em.TicketToken == nil {
		return ""
	}
	return *em.TicketToken
}

// NeedsTicketRedelivery reports whether an issued ticket failed to reach the
// member and may be delivered again.
func (em *EventMember) NeedsTicketRedelivery() bool {
	return em.Stage == StageTicketIssued && em.TicketStatus == TicketFailed && em.Ticket() != ""
}

// Clone returns a deep copy.
func (em *EventMember) Clone() *EventMember {
	c := *em
	c.PreferredVenues = append([]string(nil), em.PreferredVenues...)
	c.PreferredDates = append([]string(nil), em.PreferredDates...)
	c.PreferredTimes = append([]string(nil), em.PreferredTimes...)
	c.AssignedDatetimeFinal = cloneTime(em.AssignedDatetimeFinal)
	c.CheckedInAt = cloneTime(em.CheckedInAt)
	c.InvitationSentAt = cloneTime(em.InvitationSentAt)
	c.ConfirmationSentAt = cloneTime(em.ConfirmationSentAt)
	c.SpecialVoteLinkSentAt = cloneTime(em.SpecialVoteLinkSentAt)
	c.TicketSentAt = cloneTime(em.TicketSentAt)
	if em.TicketToken != nil {
		t := *em.TicketToken
		c.TicketToken = &t
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Filter narrows registration listings. Zero values match everything.
type Filter struct {
	Stages []Stage
	Region string
}

// Matches reports whether em satisfies f.
func (f Filter) Matches(em *EventMember) bool {
	if f.Region != "" && em.Region != f.Region {
		return false
	}
	if len(f.Stages) == 0 {
		return true
	}
	for _, s := range f.Stages {
		if em.Stage == s {
			return true
		}
	}
	return false
}

// PreferencesRequest is a member's venue/date/time submission.
type PreferencesRequest struct {
	PreferredVenues  []string `json:"preferred_venues"`
	PreferredDates   []string `json:"preferred_dates"`
	PreferredTimes   []string `json:"preferred_times"`
	AttendanceIntent string   `json:"attendance_intent"`
	Comments         string   `json:"comments"`
}

// SpecialVoteRequest accompanies a non-attendance notice.
type SpecialVoteRequest struct {
	Requested bool   `json:"special_vote_requested"`
	Reason    string `json:"reason"`
	Details   string `json:"details"`
}

// OverrideStageRequest is an admin correction that bypasses the workflow.
type OverrideStageRequest struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// BatchResult summarises a bulk operation. It is always returned, even when
// every item failed.
type BatchResult struct {
	Total   int      `json:"total"`
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors"`
}

// RecordFailure counts a failed item with its message.
func (r *BatchResult) RecordFailure(msg string) {
	r.Failed++
	r.Errors = append(r.Errors, msg)
}

// RecordSkip counts an item that was deliberately not processed.
func (r *BatchResult) RecordSkip(msg string) {
	r.Skipped++
	if msg != "" {
		r.Errors = append(r.Errors, msg)
	}
}
