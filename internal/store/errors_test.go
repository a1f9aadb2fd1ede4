package store

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("update progress: %w", ErrEntryNotFound)

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, ErrEntryNotFound))
	assert.False(t, errors.Is(err, ErrAlreadyExists))
	assert.Equal(t, http.StatusNotFound, ErrEntryNotFound.HTTPCode())
}

func TestError_WithCause(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := ErrInvalidInput.WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "invalid input: disk I/O error", err.Error())
}
