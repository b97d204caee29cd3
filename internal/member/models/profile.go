package models

import (
	"sort"
	"strings"

	"unionhub/pkg/email"
)

// Profile is the editable projection of a Member used for snapshots and
// self-service updates. Keys match the JSON field names.
type Profile map[string]string

// Profile fields a member may edit through the financial form.
const (
	FieldFirstName   = "first_name"
	FieldLastName    = "last_name"
	FieldEmail       = "primary_email"
	FieldMobile      = "telephone_mobile"
	FieldDateOfBirth = "date_of_birth"
	FieldAddress     = "address"
	FieldRegion      = "region"
	FieldBranch      = "branch"
	FieldWorkplace   = "workplace"
	FieldEmployer    = "employer"
	FieldIndustry    = "industry"
	FieldJobTitle    = "job_title"
)

// FieldName is the display name. It is derived from the first and last names
// and is reported by Overlay, but members cannot edit it directly.
const FieldName = "name"

// ProfileFields lists the editable fields in a stable order.
var ProfileFields = []string{
	FieldFirstName, FieldLastName, FieldEmail, FieldMobile, FieldDateOfBirth,
	FieldAddress, FieldRegion, FieldBranch, FieldWorkplace, FieldEmployer,
	FieldIndustry, FieldJobTitle,
}

// Snapshot captures the member's editable fields.
func (m *Member) Snapshot() Profile {
	return Profile{
		FieldFirstName:   m.FirstName,
		FieldLastName:    m.LastName,
		FieldEmail:       m.Email(),
		FieldMobile:      m.TelephoneMobile,
		FieldDateOfBirth: m.DateOfBirth,
		FieldAddress:     m.Address,
		FieldRegion:      m.Region,
		FieldBranch:      m.Branch,
		FieldWorkplace:   m.Workplace,
		FieldEmployer:    m.Employer,
		FieldIndustry:    m.Industry,
		FieldJobTitle:    m.JobTitle,
	}
}

// Overlay copies every non-blank value of p onto m and returns the names of
// fields whose value changed. Blank values never clear a populated field.
func (m *Member) Overlay(p Profile) []string {
	var changed []string
	set := func(field string, dst *string) {
		v := strings.TrimSpace(p[field])
		if v == "" || v == *dst {
			return
		}
		*dst = v
		changed = append(changed, field)
	}

	set(FieldFirstName, &m.FirstName)
	set(FieldLastName, &m.LastName)
	set(FieldMobile, &m.TelephoneMobile)
	set(FieldDateOfBirth, &m.DateOfBirth)
	set(FieldAddress, &m.Address)
	set(FieldRegion, &m.Region)
	set(FieldBranch, &m.Branch)
	set(FieldWorkplace, &m.Workplace)
	set(FieldEmployer, &m.Employer)
	set(FieldIndustry, &m.Industry)
	set(FieldJobTitle, &m.JobTitle)

	if v := email.Normalize(p[FieldEmail]); v != "" && v != m.Email() {
		m.PrimaryEmail = &v
		changed = append(changed, FieldEmail)
	}
	if first, last := strings.TrimSpace(m.FirstName), strings.TrimSpace(m.LastName); first != "" || last != "" {
		if full := strings.TrimSpace(first + " " + last); full != m.Name {
			m.Name = full
			changed = append(changed, FieldName)
		}
	}
	m.RefreshContactFlags()
	sort.Strings(changed)
	return changed
}

// Validate checks the values a member may submit.
func (p Profile) Validate() error {
	if e := strings.TrimSpace(p[FieldEmail]); e != "" && !email.IsValid(e) {
		return errInvalidEmail
	}
	return nil
}
