package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "unionhub/pkg/domain"
)

func TestComputeStatistics(t *testing.T) {
	eventID := id.NewEventID()
	now := time.Now()

	mk := func(region string, stage Stage, venue string) *EventMember {
		em := NewEventMember(eventID, id.NewMemberID(), region, region != "Northern Region", now)
		em.Stage = stage
		em.AssignedVenueFinal = venue
		return em
	}

	confirmed := mk("Central Region", StageAttendanceConfirmed, "Wellington")
	confirmed.IsAttending = true
	confirmed.InvitationSent = true
	declined := mk("Southern Region", StageAttendanceDeclined, "")
	declined.SpecialVoteRequested = true
	declined.SpecialVoteStatus = SpecialVotePending
	assigned := mk("Central Region", StageVenueAssigned, "Wellington")
	invited := mk("Northern Region", StageInvited, "")
	invited.InvitationSent = true
	failedTicket := mk("Northern Region", StageTicketIssued, "Auckland")
	failedTicket.TicketStatus = TicketFailed

	st := ComputeStatistics(eventID, []*EventMember{confirmed, declined, assigned, invited, failedTicket}, 100)

	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 1, st.ByStage[StageAttendanceConfirmed])
	assert.Equal(t, 0, st.ByStage[StageCheckedIn], "every stage is reported")
	assert.Equal(t, 1, st.Attending)
	assert.Equal(t, 1, st.Declined)
	assert.Equal(t, 1, st.SpecialVoteRequested)
	assert.Equal(t, 1, st.SpecialVotePending)
	assert.Equal(t, 3, st.SpecialVoteEligible)
	assert.Equal(t, 2, st.InvitationSent)
	assert.Equal(t, 1, st.TicketFailed)

	assert.Equal(t, 2, st.ByRegion["Central Region"].Total)
	assert.Equal(t, 1, st.ByRegion["Central Region"].Attending)
	assert.Equal(t, 1, st.ByRegion["Northern Region"].ByStage[StageInvited])

	wellington := st.ByVenue["Wellington"]
	assert.Equal(t, 2, wellington.Assigned)
	assert.Equal(t, 100, wellington.Capacity)
	assert.InDelta(t, 0.02, wellington.Utilization, 1e-9)
	assert.NotContains(t, st.ByVenue, "")
}

func TestComputeStatisticsEmpty(t *testing.T) {
	st := ComputeStatistics(id.NewEventID(), nil, 100)
	assert.Zero(t, st.Total)
	assert.Empty(t, st.ByVenue)
	assert.Len(t, st.ByStage, len(Stages))
}
