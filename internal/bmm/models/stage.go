package models

import (
	"strings"

	dErrors "unionhub/pkg/domain-errors"
)

// Stage is a BMM registration's position in the workflow. Only the
// transition table below moves a registration between stages.
type Stage string

const (
	StageInvited             Stage = "INVITED"
	StageProfileUpdated      Stage = "PROFILE_UPDATED"
	StagePreferenceSubmitted Stage = "PREFERENCE_SUBMITTED"
	StageVenueAssigned       Stage = "VENUE_ASSIGNED"
	StageAttendanceConfirmed Stage = "ATTENDANCE_CONFIRMED"
	StageAttendanceDeclined  Stage = "ATTENDANCE_DECLINED"
	StageTicketIssued        Stage = "TICKET_ISSUED"
	StageCheckedIn           Stage = "CHECKED_IN"
)

// Stages lists every stage in workflow order.
var Stages = []Stage{
	StageInvited,
	StageProfileUpdated,
	StagePreferenceSubmitted,
	StageVenueAssigned,
	StageAttendanceConfirmed,
	StageAttendanceDeclined,
	StageTicketIssued,
	StageCheckedIn,
}

func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Stages {
		if st == known {
			return st, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown stage: "+s)
}

// Transition is an event that may move a registration to another stage.
type Transition string

const (
	UpdateProfile               Transition = "UpdateProfile"
	SubmitPreferencesAutoAssign Transition = "SubmitPreferencesAutoAssign"
	AssignVenue                 Transition = "AssignVenue"
	ConfirmAttendance           Transition = "ConfirmAttendance"
	DeclineAttendance           Transition = "DeclineAttendance"
	IssueTicket                 Transition = "IssueTicket"
	CheckIn                     Transition = "CheckIn"
)

type edge struct {
	from Stage
	on   Transition
}

var transitions = map[edge]Stage{
	{StageInvited, UpdateProfile}: StageProfileUpdated,

	{StageInvited, SubmitPreferencesAutoAssign}:             StageVenueAssigned,
	{StageProfileUpdated, SubmitPreferencesAutoAssign}:      StageVenueAssigned,
	{StagePreferenceSubmitted, SubmitPreferencesAutoAssign}: StageVenueAssigned,

	{StagePreferenceSubmitted, AssignVenue}: StageVenueAssigned,

	{StageVenueAssigned, ConfirmAttendance}: StageAttendanceConfirmed,

	{StageInvited, DeclineAttendance}:             StageAttendanceDeclined,
	{StageProfileUpdated, DeclineAttendance}:      StageAttendanceDeclined,
	{StagePreferenceSubmitted, DeclineAttendance}: StageAttendanceDeclined,
	{StageVenueAssigned, DeclineAttendance}:       StageAttendanceDeclined,
	{StageAttendanceConfirmed, DeclineAttendance}: StageAttendanceDeclined,

	{StageVenueAssigned, IssueTicket}:       StageTicketIssued,
	{StageAttendanceConfirmed, IssueTicket}: StageTicketIssued,

	{StageTicketIssued, CheckIn}: StageCheckedIn,
}

// Next returns the stage reached from current on t, or an invariant
// violation when the workflow does not allow it.
func Next(current Stage, t Transition) (Stage, error) {
	if next, ok := transitions[edge{current, t}]; ok {
		return next, nil
	}
	return current, dErrors.New(dErrors.CodeInvariantViolation,
		"transition "+string(t)+" is not allowed from stage "+string(current))
}

// Allowed reports whether t is defined from current.
func Allowed(current Stage, t Transition) bool {
	_, ok := transitions[edge{current, t}]
	return ok
}
