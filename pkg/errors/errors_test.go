package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesPredefined(t *testing.T) {
	err := Clone(ErrForbidden, "cannot accept your own request")
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.False(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, "cannot accept your own request", err.Error())

	wrapped := fmt.Errorf("accept: %w", err)
	assert.True(t, errors.Is(wrapped, ErrForbidden))
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(errors.New("boom"))
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Nil(t, FromError(nil))

	typed := FromError(ErrNotFound)
	assert.Equal(t, http.StatusNotFound, typed.Status)
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("redis down")
	err := Internal(cause, "failed to load substitutions")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load substitutions: redis down", err.Error())
}
