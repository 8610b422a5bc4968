package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindMatching(t *testing.T) {
	err := fmt.Errorf("get service: %w", NotFound("service"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "service not found", MessageOf(err))
}

func TestForeignErrorsAreInternal(t *testing.T) {
	err := errors.New("connection reset")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "internal error", MessageOf(err))
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Internal("failed to save incident", cause)

	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, ErrInternal))
	assert.Equal(t, "failed to save incident", MessageOf(err))
}
