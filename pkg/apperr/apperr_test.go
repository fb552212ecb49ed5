package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Validation, KindOf(Validationf("start_date %q is not RFC3339", "x")))
	assert.Equal(t, NotFound, KindOf(NotFoundf("room %s", "r1")))
	assert.Equal(t, Conflict, KindOf(New(Conflict, "reference already in use")))
	assert.Equal(t, Processing, KindOf(errors.New("plain")))
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := NotFoundf("booking b1")
	wrapped := fmt.Errorf("handle payment.success: %w", inner)
	assert.Equal(t, NotFound, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, NotFound))
	assert.False(t, IsKind(nil, NotFound))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("duplicate key value")
	err := Wrap(Conflict, "reference collision persisted", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "reference collision persisted")
	assert.Contains(t, err.Error(), "duplicate key value")
}
