package informer

import (
	"encoding/json"
	"fmt"
	"strings"

	"unionhub/internal/importer/models"
)

// aliases lists, per record field, the keys used by the different dataset
// naming conventions. Keys are compared after normaliseKey.
var aliases = []struct {
	keys []string
	set  func(*models.Record, string)
}{
	{[]string{"membershipnumber", "membernumber", "membershipno", "memberno", "linktomembermembernumber"}, func(r *models.Record, v string) { r.MembershipNumber = v }},
	{[]string{"name", "fullname", "membername", "linktomembername"}, func(r *models.Record, v string) { r.Name = v }},
	{[]string{"firstname", "fore1", "forename", "givenname"}, func(r *models.Record, v string) { r.FirstName = v }},
	{[]string{"lastname", "surname", "familyname"}, func(r *models.Record, v string) { r.LastName = v }},
	{[]string{"primaryemail", "email", "emailaddress", "linktomemberprimaryemail"}, func(r *models.Record, v string) { r.Email = v }},
	{[]string{"telephonemobile", "mobile", "mobilephone", "mobilenumber", "linktomembermobile"}, func(r *models.Record, v string) { r.Mobile = v }},
	{[]string{"dob", "dateofbirth", "birthdate"}, func(r *models.Record, v string) { r.DateOfBirth = v }},
	{[]string{"address", "postaladdress", "homeaddress"}, func(r *models.Record, v string) { r.Address = v }},
	{[]string{"regiondesc", "region", "regionname"}, func(r *models.Record, v string) { r.Region = v }},
	{[]string{"branch", "branchdesc", "branchname"}, func(r *models.Record, v string) { r.Branch = v }},
	{[]string{"workplace", "worksite", "workplacename"}, func(r *models.Record, v string) { r.Workplace = v }},
	{[]string{"employer", "employername"}, func(r *models.Record, v string) { r.Employer = v }},
	{[]string{"industry", "industrydesc"}, func(r *models.Record, v string) { r.Industry = v }},
	{[]string{"jobtitle", "occupation", "position"}, func(r *models.Record, v string) { r.JobTitle = v }},
	{[]string{"forumdesc", "forum"}, func(r *models.Record, v string) { r.Forum = v }},
}

// ToRecords maps dataset rows onto records. Row numbers are 1-based.
func ToRecords(rows []map[string]any) []models.Record {
	out := make([]models.Record, 0, len(rows))
	for i, row := range rows {
		normalised := make(map[string]string, len(row))
		for k, v := range row {
			if s := flatten(v); s != "" {
				normalised[normaliseKey(k)] = s
			}
		}
		rec := models.Record{Row: i + 1}
		for _, a := range aliases {
			for _, k := range a.keys {
				if v, ok := normalised[k]; ok {
					a.set(&rec, v)
					break
				}
			}
		}
		out = append(out, rec)
	}
	return out
}

// flatten reduces a JSON value to its first scalar. Objects contribute their
// value or name entry; arrays contribute their first non-empty element.
func flatten(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return fmt.Sprint(t)
	case float64:
		return fmt.Sprint(t)
	case map[string]any:
		for _, k := range []string{"value", "name", "displayValue"} {
			if s := flatten(t[k]); s != "" {
				return s
			}
		}
		return ""
	case []any:
		for _, e := range t {
			if s := flatten(e); s != "" {
				return s
			}
		}
		return ""
	}
	return ""
}

func normaliseKey(k string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return -1
	}, k)
}
