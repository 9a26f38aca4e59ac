package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err    *AppError
		status int
	}{
		{NotFound("booking"), http.StatusNotFound},
		{Validation("bad input"), http.StatusBadRequest},
		{InvalidOperation("nope"), http.StatusBadRequest},
		{Unauthorized("no"), http.StatusForbidden},
		{InvalidTransition("COMPLETED", "cancel"), http.StatusConflict},
		{SchedulingConflict("busy"), http.StatusConflict},
		{Conflict("duplicate"), http.StatusConflict},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.StatusCode(), tc.err.Message)
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(NotFound("booking")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	wrapped := fmt.Errorf("context: %w", SchedulingConflict("busy"))
	assert.Equal(t, CodeSchedulingConflict, CodeOf(wrapped))
}

func TestIsMatchesByCode(t *testing.T) {
	err := NotFound("booking")
	assert.True(t, errors.Is(err, NotFound("provider")))
	assert.False(t, errors.Is(err, Validation("x")))
}

func TestUnwrap(t *testing.T) {
	inner := errors.New("db down")
	err := Internal(inner)
	assert.True(t, errors.Is(err, inner))
	assert.Contains(t, err.Error(), "db down")
}

func TestInvalidTransitionMessage(t *testing.T) {
	err := InvalidTransition("PENDING", "complete")
	assert.Equal(t, "cannot complete a booking in status PENDING", err.Message)
}
