package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, NotFound("appointment", nil).StatusCode())
	assert.Equal(t, http.StatusBadRequest, Validationf("appointment already %s", "cancelled").StatusCode())
	assert.Equal(t, http.StatusUnauthorized, Unauthorized(nil).StatusCode())
	assert.Equal(t, http.StatusForbidden, Forbidden("nope").StatusCode())
	assert.Equal(t, http.StatusConflict, Conflict("stale", nil).StatusCode())
	assert.Equal(t, http.StatusInternalServerError, Internal(nil).StatusCode())
}

func TestErrorChain(t *testing.T) {
	cause := stderrors.New("sql: no rows in result set")
	err := fmt.Errorf("get appointment: %w", NotFound("appointment", cause))

	assert.True(t, IsNotFound(err))
	assert.Equal(t, ErrNotFound, CodeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "appointment not found: sql: no rows in result set", NotFound("appointment", cause).Error())

	assert.False(t, IsNotFound(stderrors.New("boom")))
	assert.Equal(t, ErrInternal, CodeOf(stderrors.New("boom")))
	assert.False(t, IsNotFound(nil))
}
