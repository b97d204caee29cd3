// Package parse turns CSV exports into import records. The dialect is
// detected from the header row.
package parse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"unionhub/internal/importer/models"
	dErrors "unionhub/pkg/domain-errors"
)

const rosterLinkPrefix = "link to member"

// columns maps normalised header names to a setter on Record.
type columns map[string]func(*models.Record, string)

var financialDeclarationColumns = columns{
	"membership number": func(r *models.Record, v string) { r.MembershipNumber = v },
	"first name":        func(r *models.Record, v string) { r.FirstName = v },
	"surname":           func(r *models.Record, v string) { r.LastName = v },
	"email":             func(r *models.Record, v string) { r.Email = v },
	"email address":     func(r *models.Record, v string) { r.Email = v },
	"mobile":            func(r *models.Record, v string) { r.Mobile = v },
	"mobile phone":      func(r *models.Record, v string) { r.Mobile = v },
	"date of birth":     func(r *models.Record, v string) { r.DateOfBirth = v },
	"address":           func(r *models.Record, v string) { r.Address = v },
	"region":            func(r *models.Record, v string) { r.Region = v },
	"branch":            func(r *models.Record, v string) { r.Branch = v },
	"workplace":         func(r *models.Record, v string) { r.Workplace = v },
	"employer":          func(r *models.Record, v string) { r.Employer = v },
	"industry":          func(r *models.Record, v string) { r.Industry = v },
	"job title":         func(r *models.Record, v string) { r.JobTitle = v },
	"occupation":        func(r *models.Record, v string) { r.JobTitle = v },
	"forum":             func(r *models.Record, v string) { r.Forum = v },
}

var standardColumns = columns{
	"membership_number": func(r *models.Record, v string) { r.MembershipNumber = v },
	"name":              func(r *models.Record, v string) { r.Name = v },
	"fore1":             func(r *models.Record, v string) { r.FirstName = v },
	"surname":           func(r *models.Record, v string) { r.LastName = v },
	"primaryemail":      func(r *models.Record, v string) { r.Email = v },
	"telephonemobile":   func(r *models.Record, v string) { r.Mobile = v },
	"dob":               func(r *models.Record, v string) { r.DateOfBirth = v },
	"address":           func(r *models.Record, v string) { r.Address = v },
	"regiondesc":        func(r *models.Record, v string) { r.Region = v },
	"region":            func(r *models.Record, v string) { r.Region = v },
	"branch":            func(r *models.Record, v string) { r.Branch = v },
	"workplace":         func(r *models.Record, v string) { r.Workplace = v },
	"employer":          func(r *models.Record, v string) { r.Employer = v },
	"employername":      func(r *models.Record, v string) { r.Employer = v },
	"industry":          func(r *models.Record, v string) { r.Industry = v },
	"jobtitle":          func(r *models.Record, v string) { r.JobTitle = v },
	"forumdesc":         func(r *models.Record, v string) { r.Forum = v },
}

var rosterColumns = columns{
	"member number":               func(r *models.Record, v string) { r.MembershipNumber = v },
	"link to member name":         func(r *models.Record, v string) { r.Name = v },
	"link to member first name":   func(r *models.Record, v string) { r.FirstName = v },
	"link to member last name":    func(r *models.Record, v string) { r.LastName = v },
	"link to member email":        func(r *models.Record, v string) { r.Email = v },
	"link to member primaryemail": func(r *models.Record, v string) { r.Email = v },
	"link to member mobile":       func(r *models.Record, v string) { r.Mobile = v },
	"link to member region":       func(r *models.Record, v string) { r.Region = v },
	"link to member branch":       func(r *models.Record, v string) { r.Branch = v },
	"link to member workplace":    func(r *models.Record, v string) { r.Workplace = v },
	"link to member employer":     func(r *models.Record, v string) { r.Employer = v },
}

// CSV is a parsed file.
type CSV struct {
	Dialect models.Dialect
	Records []models.Record
}

// ReadCSV decodes r, detects its dialect and maps every data row. UTF-8 and
// UTF-16 byte order marks are honoured. Blank lines are dropped; rows that
// are present but empty still produce a record so they count towards the total.
func ReadCSV(r io.Reader) (*CSV, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, dErrors.New(dErrors.CodeValidation, "csv file is empty")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "failed to read csv header")
	}
	for i := range header {
		header[i] = normaliseHeader(header[i])
	}

	dialect, cols, err := Detect(header)
	if err != nil {
		return nil, err
	}

	out := &CSV{Dialect: dialect}
	for row := 1; ; row++ {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeValidation, fmt.Sprintf("failed to read csv row %d", row))
		}
		rec := models.Record{Row: row}
		for i, v := range fields {
			if i >= len(header) {
				break
			}
			if set, ok := cols[header[i]]; ok {
				if v = strings.TrimSpace(v); v != "" {
					set(&rec, v)
				}
			}
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

// Detect picks the dialect from a normalised header row.
func Detect(header []string) (models.Dialect, columns, error) {
	has := make(map[string]bool, len(header))
	roster := false
	for _, h := range header {
		has[h] = true
		if strings.HasPrefix(h, rosterLinkPrefix) {
			roster = true
		}
	}
	switch {
	case has["membership number"] && has["first name"] && has["surname"]:
		return models.DialectFinancialDeclaration, financialDeclarationColumns, nil
	case has["name"] && has["primaryemail"] && has["membership_number"]:
		return models.DialectStandard, standardColumns, nil
	case has["member number"] && roster:
		return models.DialectRoster, rosterColumns, nil
	}
	return "", nil, dErrors.New(dErrors.CodeValidation, "unrecognised csv header; expected a financial declaration, standard or roster export")
}

func normaliseHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}
