package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "unionhub/pkg/domain-errors"
)

func TestNext(t *testing.T) {
	allowed := []struct {
		from Stage
		on   Transition
		to   Stage
	}{
		{StageInvited, UpdateProfile, StageProfileUpdated},
		{StageInvited, SubmitPreferencesAutoAssign, StageVenueAssigned},
		{StageProfileUpdated, SubmitPreferencesAutoAssign, StageVenueAssigned},
		{StagePreferenceSubmitted, SubmitPreferencesAutoAssign, StageVenueAssigned},
		{StagePreferenceSubmitted, AssignVenue, StageVenueAssigned},
		{StageVenueAssigned, ConfirmAttendance, StageAttendanceConfirmed},
		{StageVenueAssigned, DeclineAttendance, StageAttendanceDeclined},
		{StageAttendanceConfirmed, DeclineAttendance, StageAttendanceDeclined},
		{StageVenueAssigned, IssueTicket, StageTicketIssued},
		{StageAttendanceConfirmed, IssueTicket, StageTicketIssued},
		{StageTicketIssued, CheckIn, StageCheckedIn},
	}
	for _, tt := range allowed {
		t.Run(string(tt.from)+"/"+string(tt.on), func(t *testing.T) {
			got, err := Next(tt.from, tt.on)
			require.NoError(t, err)
			assert.Equal(t, tt.to, got)
			assert.True(t, Allowed(tt.from, tt.on))
		})
	}
}

func TestNextRejectsUndefinedTransitions(t *testing.T) {
	rejected := []struct {
		from Stage
		on   Transition
	}{
		{StageVenueAssigned, SubmitPreferencesAutoAssign},
		{StageAttendanceConfirmed, SubmitPreferencesAutoAssign},
		{StageProfileUpdated, UpdateProfile},
		{StageInvited, ConfirmAttendance},
		{StageAttendanceDeclined, IssueTicket},
		{StageCheckedIn, DeclineAttendance},
		{StageTicketIssued, DeclineAttendance},
		{StageInvited, CheckIn},
		{StageAttendanceDeclined, ConfirmAttendance},
	}
	for _, tt := range rejected {
		t.Run(string(tt.from)+"/"+string(tt.on), func(t *testing.T) {
			got, err := Next(tt.from, tt.on)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
			assert.Equal(t, tt.from, got)
		})
	}
}

func TestCheckedInIsTerminal(t *testing.T) {
	for _, tr := range []Transition{UpdateProfile, SubmitPreferences, SubmitPreferencesAutoAssign,
		AssignVenue, ConfirmAttendance, DeclineAttendance, IssueTicket, CheckIn} {
		assert.False(t, Allowed(StageCheckedIn, tr), string(tr))
	}
}

func TestParseStage(t *testing.T) {
	st, err := ParseStage("venue_assigned")
	require.NoError(t, err)
	assert.Equal(t, StageVenueAssigned, st)
	_, err = ParseStage("LIMBO")
	assert.Error(t, err)
}
