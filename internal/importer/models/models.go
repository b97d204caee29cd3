package models

import (
	"strings"

	mmodels "unionhub/internal/member/models"
	id "unionhub/pkg/domain"
)

// Mode selects how rows for existing membership numbers are treated.
type Mode string

const (
	// ModeCreateOnly fails rows whose membership number already exists in the
	// store or earlier in the same file.
	ModeCreateOnly Mode = "CREATE_ONLY"
	// ModeMerge overlays incoming values onto the existing member.
	ModeMerge Mode = "MERGE"
)

// Dialect identifies a CSV header convention.
type Dialect string

const (
	DialectFinancialDeclaration Dialect = "FINANCIAL_DECLARATION"
	DialectStandard             Dialect = "STANDARD"
	DialectRoster               Dialect = "ROSTER"
)

// DefaultSource is the provenance tag a dialect imports under unless the caller overrides it.
func (d Dialect) DefaultSource() id.Source {
	switch d {
	case DialectFinancialDeclaration:
		return id.SourceCSVFinancialDeclaration
	case DialectStandard:
		return id.SourceCSVStandard
	case DialectRoster:
		return id.SourceInformerAttendees
	}
	return id.SourceUnknown
}

// Mode reports the reconciliation mode for the dialect. Only the standard
// dialect is a first-time load.
func (d Dialect) Mode() Mode {
	if d == DialectStandard {
		return ModeCreateOnly
	}
	return ModeMerge
}

// Record is one normalised input row. Row is 1-based and counts data rows only.
type Record struct {
	Row              int    `json:"row"`
	MembershipNumber string `json:"membership_number"`
	Name             string `json:"name,omitempty"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	Email            string `json:"email,omitempty"`
	Mobile           string `json:"mobile,omitempty"`
	DateOfBirth      string `json:"date_of_birth,omitempty"`
	Address          string `json:"address,omitempty"`
	Region           string `json:"region,omitempty"`
	Branch           string `json:"branch,omitempty"`
	Workplace        string `json:"workplace,omitempty"`
	Employer         string `json:"employer,omitempty"`
	Industry         string `json:"industry,omitempty"`
	JobTitle         string `json:"job_title,omitempty"`
	Forum            string `json:"forum,omitempty"`
}

// FullName prefers the explicit name and falls back to first and last names.
func (r Record) FullName() string {
	if n := strings.TrimSpace(r.Name); n != "" {
		return n
	}
	return strings.TrimSpace(strings.TrimSpace(r.FirstName) + " " + strings.TrimSpace(r.LastName))
}

// Profile projects the record onto the member's editable fields.
func (r Record) Profile() mmodels.Profile {
	return mmodels.Profile{
		mmodels.FieldFirstName:   r.FirstName,
		mmodels.FieldLastName:    r.LastName,
		mmodels.FieldEmail:       r.Email,
		mmodels.FieldMobile:      r.Mobile,
		mmodels.FieldDateOfBirth: r.DateOfBirth,
		mmodels.FieldAddress:     r.Address,
		mmodels.FieldRegion:      r.Region,
		mmodels.FieldBranch:      r.Branch,
		mmodels.FieldWorkplace:   r.Workplace,
		mmodels.FieldEmployer:    r.Employer,
		mmodels.FieldIndustry:    r.Industry,
		mmodels.FieldJobTitle:    r.JobTitle,
	}
}

// Request is one import run.
type Request struct {
	Source    id.Source
	Mode      Mode
	Emergency bool
	// EventID, when set, registers every saved member for that event.
	EventID *id.EventID
	Records []Record
}

// Result summarises a run. Total counts every input row, valid or not.
type Result struct {
	Source  id.Source `json:"source"`
	Total   int       `json:"total"`
	Created int       `json:"created"`
	Updated int       `json:"updated"`
	Failed  int       `json:"failed"`
	Skipped int       `json:"skipped"`
	Errors  []string  `json:"errors"`
}
