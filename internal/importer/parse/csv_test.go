package parse

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unionhub/internal/importer/models"
	dErrors "unionhub/pkg/domain-errors"
)

func TestReadCSVFinancialDeclaration(t *testing.T) {
	in := "\ufeffMembership Number,First Name,Surname,Email,Mobile,Region\n" +
		"12345,Aroha, Ngata ,aroha@example.com,021 123 4567,Central Region\n"

	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, models.DialectFinancialDeclaration, got.Dialect)
	require.Len(t, got.Records, 1)
	rec := got.Records[0]
	assert.Equal(t, 1, rec.Row)
	assert.Equal(t, "12345", rec.MembershipNumber)
	assert.Equal(t, "Aroha Ngata", rec.FullName())
	assert.Equal(t, "021 123 4567", rec.Mobile)
	assert.Equal(t, "Central Region", rec.Region)
}

func TestReadCSVStandardKeepsRowsMissingNumber(t *testing.T) {
	in := "name,primaryEmail,membership_number,telephoneMobile\n" +
		"Mere Smith,mere@example.com,A1,\n" +
		"No Number,nn@example.com,,\n"

	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, models.DialectStandard, got.Dialect)
	assert.Equal(t, models.ModeCreateOnly, got.Dialect.Mode())
	require.Len(t, got.Records, 2)
	assert.Equal(t, "", got.Records[1].MembershipNumber)
	assert.Equal(t, 2, got.Records[1].Row)
}

func TestReadCSVRoster(t *testing.T) {
	in := "Member Number,Link to Member Name,Link to Member Mobile\n" +
		"777,Tama Walker,0270000000\n"

	got, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, models.DialectRoster, got.Dialect)
	assert.Equal(t, models.ModeMerge, got.Dialect.Mode())
	assert.Equal(t, "Tama Walker", got.Records[0].Name)
	assert.Equal(t, "0270000000", got.Records[0].Mobile)
}

func TestReadCSVRejectsUnknownHeader(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("foo,bar\n1,2\n"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = ReadCSV(strings.NewReader(""))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = ReadCSV(strings.NewReader("Member Number,Region\n1,x\n"))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
