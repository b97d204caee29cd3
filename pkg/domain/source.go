package domain

import (
	"strings"

	dErrors "unionhub/pkg/domain-errors"
)

// Source tags where a member record's data came from. Sources are totally
// ordered by Rank: a lower rank is a higher-quality feed.
type Source string

const (
	SourceInformerEmailMembers    Source = "INFORMER_EMAIL_MEMBERS"
	SourceInformerSMSMembers      Source = "INFORMER_SMS_MEMBERS"
	SourceInformerAttendees       Source = "INFORMER_ATTENDEES"
	SourceFinancialForm           Source = "FINANCIAL_FORM"
	SourceCSVFinancialDeclaration Source = "CSV_FINANCIAL_DECLARATION"
	SourceCSVStandard             Source = "CSV_STANDARD"
	SourceManual                  Source = "MANUAL"
	SourceUnknown                 Source = "UNKNOWN"
)

var sourceRanks = map[Source]int{
	SourceInformerEmailMembers:    1,
	SourceInformerSMSMembers:      2,
	SourceInformerAttendees:       3,
	SourceFinancialForm:           4,
	SourceCSVFinancialDeclaration: 5,
	SourceCSVStandard:             6,
	SourceManual:                  7,
}

// unknownRank sorts after every named source.
const unknownRank = 8

// ParseSource accepts a case-insensitive source name. Blank maps to SourceUnknown.
func ParseSource(s string) (Source, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || s == string(SourceUnknown) {
		return SourceUnknown, nil
	}
	src := Source(s)
	if _, ok := sourceRanks[src]; !ok {
		return "", dErrors.New(dErrors.CodeValidation, "unknown data source: "+s)
	}
	return src, nil
}

// Rank returns 1 for the highest priority source and larger values after it.
// Unrecognised tags, including stored legacy values, rank lowest.
func (s Source) Rank() int {
	if r, ok := sourceRanks[s]; ok {
		return r
	}
	return unknownRank
}

// IsKnown reports whether s is a named source.
func (s Source) IsKnown() bool {
	_, ok := sourceRanks[s]
	return ok
}

// Outranks reports whether s has strictly higher priority than other.
func (s Source) Outranks(other Source) bool {
	return s.Rank() < other.Rank()
}

// IsSMSFeed reports whether s is an SMS-oriented feed, which never receives
// a synthetic placeholder email.
func (s Source) IsSMSFeed() bool {
	return s == SourceInformerSMSMembers
}

func (s Source) String() string { return string(s) }

// CanOverwrite decides whether data from incoming may replace data that
// existing wrote. Equal rank re-imports apply. Emergency bypasses the order.
func CanOverwrite(existing, incoming Source, emergency bool) bool {
	if emergency || !existing.IsKnown() {
		return true
	}
	return incoming.Rank() <= existing.Rank()
}
