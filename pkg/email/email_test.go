package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValid(t *testing.T) {
	for _, ok := range []string{"a@b.nz", " first.last+tag@union.org.nz ", "x@y.co"} {
		assert.True(t, IsValid(ok), ok)
	}
	for _, bad := range []string{"", "nobody", "a@b", "a b@c.nz", "@c.nz"} {
		assert.False(t, IsValid(bad), bad)
	}
}

func TestPlaceholder(t *testing.T) {
	assert.Equal(t, "64211234567@noemail.invalid", Placeholder("+64 21 123 4567", "A123"))
	assert.Equal(t, "a123@noemail.invalid", Placeholder("", "A-123"))
	assert.Equal(t, "member@noemail.invalid", Placeholder("", ""))
	assert.True(t, IsPlaceholder("A123@NOEMAIL.INVALID"))
	assert.False(t, IsPlaceholder("a123@union.nz"))
}
