package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := errors.New("db down")
	wrapped := Wrap(base, CodeInternal, "failed to load member")

	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.False(t, HasCode(wrapped, CodeNotFound))
	assert.ErrorIs(t, wrapped, base)

	t.Run("finds inner code through fmt wrapping", func(t *testing.T) {
		inner := New(CodeValidation, "bad venue")
		outer := fmt.Errorf("submit preferences: %w", inner)
		assert.True(t, HasCode(outer, CodeValidation))
		assert.Equal(t, CodeValidation, CodeOf(outer))
	})

	t.Run("nested coded errors", func(t *testing.T) {
		inner := New(CodeInvariantViolation, "illegal transition")
		outer := Wrap(inner, CodeValidation, "cannot decline")
		assert.True(t, HasCode(outer, CodeInvariantViolation))
		assert.True(t, HasCode(outer, CodeValidation))
	})

	t.Run("uncoded errors map to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(base))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "nothing"))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(CodeValidation))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(CodeNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(CodeConflict))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(CodeInvariantViolation))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Code("mystery")))
}
