package models

import id "unionhub/pkg/domain"

// RegionStats aggregates one region's registrations.
type RegionStats struct {
	Total     int           `json:"total"`
	Attending int           `json:"attending"`
	ByStage   map[Stage]int `json:"by_stage"`
}

// VenueStats aggregates registrations assigned to one venue.
type VenueStats struct {
	Assigned    int     `json:"assigned"`
	Attending   int     `json:"attending"`
	Capacity    int     `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

// Statistics is a point-in-time aggregation of an event's registrations.
type Statistics struct {
	EventID              id.EventID              `json:"event_id"`
	Total                int                     `json:"total"`
	ByStage              map[Stage]int           `json:"by_stage"`
	Attending            int                     `json:"attending"`
	Declined             int                     `json:"declined"`
	CheckedIn            int                     `json:"checked_in"`
	SpecialVoteEligible  int                     `json:"special_vote_eligible"`
	SpecialVoteRequested int                     `json:"special_vote_requested"`
	SpecialVotePending   int                     `json:"special_vote_pending"`
	SpecialVoteApproved  int                     `json:"special_vote_approved"`
	SpecialVoteRejected  int                     `json:"special_vote_rejected"`
	InvitationSent       int                     `json:"invitation_sent"`
	ConfirmationSent     int                     `json:"confirmation_sent"`
	SpecialVoteLinkSent  int                     `json:"special_vote_link_sent"`
	TicketSent           int                     `json:"ticket_sent"`
	TicketFailed         int                     `json:"ticket_failed"`
	ByRegion             map[string]*RegionStats `json:"by_region"`
	ByVenue              map[string]*VenueStats  `json:"by_venue"`
}

// ComputeStatistics aggregates registrations. Every venue shares the same
// nominal capacity; utilization is assigned/capacity.
func ComputeStatistics(eventID id.EventID, ems []*EventMember, venueCapacity int) *Statistics {
	st := &Statistics{
		EventID:  eventID,
		ByStage:  make(map[Stage]int, len(Stages)),
		ByRegion: map[string]*RegionStats{},
		ByVenue:  map[string]*VenueStats{},
	}
	for _, s := range Stages {
		st.ByStage[s] = 0
	}

	for _, em := range ems {
		st.Total++
		st.ByStage[em.Stage]++
		if em.IsAttending {
			st.Attending++
		}
		if em.Stage == StageAttendanceDeclined {
			st.Declined++
		}
		if em.CheckedInAt != nil || em.Stage == StageCheckedIn {
			st.CheckedIn++
		}
		if em.SpecialVoteEligible {
			st.SpecialVoteEligible++
		}
		if em.SpecialVoteRequested {
			st.SpecialVoteRequested++
		}
		switch em.SpecialVoteStatus {
		case SpecialVotePending:
			st.SpecialVotePending++
		case SpecialVoteApproved:
			st.SpecialVoteApproved++
		case SpecialVoteRejected:
			st.SpecialVoteRejected++
		}
		if em.InvitationSent {
			st.InvitationSent++
		}
		if em.ConfirmationSent {
			st.ConfirmationSent++
		}
		if em.SpecialVoteLinkSent {
			st.SpecialVoteLinkSent++
		}
		if em.TicketSent {
			st.TicketSent++
		}
		if em.TicketStatus == TicketFailed {
			st.TicketFailed++
		}

		region := em.Region
		if region == "" {
			region = "Unknown"
		}
		rs, ok := st.ByRegion[region]
		if !ok {
			rs = &RegionStats{ByStage: map[Stage]int{}}
			st.ByRegion[region] = rs
		}
		rs.Total++
		rs.ByStage[em.Stage]++
		if em.IsAttending {
			rs.Attending++
		}

		if em.AssignedVenueFinal != "" {
			vs, ok := st.ByVenue[em.AssignedVenueFinal]
			if !ok {
				vs = &VenueStats{Capacity: venueCapacity}
				st.ByVenue[em.AssignedVenueFinal] = vs
			}
			vs.Assigned++
			if em.IsAttending {
				vs.Attending++
			}
		}
	}

	for _, vs := range st.ByVenue {
		if vs.Capacity > 0 {
			vs.Utilization = float64(vs.Assigned) / float64(vs.Capacity)
		}
	}
	return st
}
