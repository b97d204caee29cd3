package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "unionhub/pkg/domain"
	dErrors "unionhub/pkg/domain-errors"
)

func TestNewMember(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	m, err := NewMember(" 12345 ", " Aroha Smith ", id.SourceCSVStandard, now)
	require.NoError(t, err)
	assert.Equal(t, "12345", m.MembershipNumber)
	assert.Equal(t, "Aroha Smith", m.Name)
	assert.Len(t, m.VerificationCode, 6)
	assert.NotEmpty(t, m.Token)
	assert.Equal(t, now, m.CreatedAt)

	_, err = NewMember("", "x", id.SourceManual, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	_, err = NewMember("1", " ", id.SourceManual, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestOverlay(t *testing.T) {
	existing := "old@example.org"
	m := &Member{Name: "A B", FirstName: "A", LastName: "B", PrimaryEmail: &existing, Region: "Northern Region"}

	changed := m.Overlay(Profile{
		FieldFirstName: "Aroha",
		FieldRegion:    "",
		FieldEmail:     " New@Example.org ",
		FieldMobile:    "021 555 1234",
	})

	assert.ElementsMatch(t, []string{FieldFirstName, FieldEmail, FieldMobile, FieldName}, changed)
	assert.Equal(t, "Northern Region", m.Region, "blank input never clears a field")
	assert.Equal(t, "new@example.org", m.Email())
	assert.Equal(t, "Aroha B", m.Name)
	assert.True(t, m.HasEmail)
	assert.True(t, m.HasMobile)
}

func TestOverlayReportsDerivedNameChange(t *testing.T) {
	m := &Member{Name: "Jane Smith", FirstName: "Jane", LastName: "Smith"}

	assert.Empty(t, m.Overlay(Profile{FieldFirstName: "Jane", FieldLastName: "Smith"}))

	m.Name = "J. Smith"
	changed := m.Overlay(Profile{FieldFirstName: "Jane"})
	assert.Equal(t, []string{FieldName}, changed)
	assert.Equal(t, "Jane Smith", m.Name)
}

func TestContactFlags(t *testing.T) {
	placeholder := "0215551234@noemail.invalid"
	m := &Member{}
	m.SetContact(&placeholder, "")
	assert.False(t, m.HasEmail, "placeholder is not a real email")
	assert.False(t, m.HasMobile)
	assert.Empty(t, m.DeliverableEmail())

	m.SetContact(nil, "+64 21 555")
	assert.False(t, m.HasEmail)
	assert.True(t, m.HasMobile)
}

func TestProfileValidate(t *testing.T) {
	assert.NoError(t, Profile{FieldEmail: ""}.Validate())
	assert.NoError(t, Profile{FieldEmail: "a@b.co"}.Validate())
	assert.Error(t, Profile{FieldEmail: "nope"}.Validate())
}
