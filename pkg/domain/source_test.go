package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "unionhub/pkg/domain-errors"
)

func TestSourceOrdering(t *testing.T) {
	ordered := []Source{
		SourceInformerEmailMembers,
		SourceInformerSMSMembers,
		SourceInformerAttendees,
		SourceFinancialForm,
		SourceCSVFinancialDeclaration,
		SourceCSVStandard,
		SourceManual,
		SourceUnknown,
	}
	for i := 0; i < len(ordered)-1; i++ {
		assert.True(t, ordered[i].Outranks(ordered[i+1]), "%s should outrank %s", ordered[i], ordered[i+1])
		assert.False(t, ordered[i+1].Outranks(ordered[i]))
	}
	assert.Equal(t, 1, SourceInformerEmailMembers.Rank())
	assert.Equal(t, 7, SourceManual.Rank())
	assert.Greater(t, Source("LEGACY_FEED").Rank(), SourceManual.Rank())
}

func TestCanOverwrite(t *testing.T) {
	tests := []struct {
		name      string
		existing  Source
		incoming  Source
		emergency bool
		want      bool
	}{
		{"higher priority replaces lower", SourceCSVStandard, SourceInformerEmailMembers, false, true},
		{"same source re-import applies", SourceCSVStandard, SourceCSVStandard, false, true},
		{"lower priority is rejected", SourceInformerEmailMembers, SourceCSVStandard, false, false},
		{"emergency bypasses order", SourceInformerEmailMembers, SourceManual, true, true},
		{"unknown existing accepts anything", SourceUnknown, SourceManual, false, true},
		{"blank existing accepts anything", Source(""), SourceManual, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanOverwrite(tt.existing, tt.incoming, tt.emergency))
		})
	}
}

func TestParseSource(t *testing.T) {
	src, err := ParseSource(" csv_standard ")
	require.NoError(t, err)
	assert.Equal(t, SourceCSVStandard, src)

	src, err = ParseSource("")
	require.NoError(t, err)
	assert.Equal(t, SourceUnknown, src)

	_, err = ParseSource("carrier-pigeon")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
