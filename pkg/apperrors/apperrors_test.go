package apperrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeQuotaExceeded, CodeOf(New(CodeQuotaExceeded, "limit reached")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}

func TestIs(t *testing.T) {
	err := New(CodeAlreadyTaken, "offer already taken")
	assert.True(t, Is(err, CodeAlreadyTaken))
	assert.False(t, Is(err, CodeNotFound))
	assert.False(t, Is(errors.New("plain"), CodeAlreadyTaken))
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeInternal, "db write failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "db write failed")
	assert.Contains(t, err.Error(), "connection refused")

	// Messages without a cause stand alone.
	assert.Equal(t, "not found", New(CodeNotFound, "not found").Error())
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(Validation("bad input")))
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("missing")))
	assert.Equal(t, CodeWrongState, CodeOf(WrongState("not pending")))
	assert.Equal(t, CodeInternal, CodeOf(Internal("boom", nil)))
}
