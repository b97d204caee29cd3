package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "unionhub/pkg/domain-errors"
)

func TestParseIDs(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseMemberID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseEventID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseEventMemberID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID with surrounding space", func(t *testing.T) {
		u := uuid.New()
		id, err := ParseMemberID("  " + u.String() + " ")
		require.NoError(t, err)
		assert.Equal(t, MemberID(u), id)
	})
}

func TestIDJSON(t *testing.T) {
	id := NewEventID()
	b, err := json.Marshal(map[string]EventID{"id": id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+id.String()+`"}`, string(b))

	var out struct {
		ID EventID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, id, out.ID)
	assert.False(t, out.ID.IsNil())
}

func TestIDScan(t *testing.T) {
	u := uuid.New()
	var id MemberID
	require.NoError(t, id.Scan(u.String()))
	assert.Equal(t, u.String(), id.String())

	v, err := id.Value()
	require.NoError(t, err)
	assert.Equal(t, u.String(), v)
}
