package httputil

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(t *testing.T, h gin.HandlerFunc) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	r := gin.New()
	r.GET("/x", h)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestRespondWithError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"not found", errors.NotFound("appointment", nil), http.StatusNotFound, "appointment not found"},
		{"validation", errors.Validationf("appointment already cancelled"), http.StatusBadRequest, "appointment already cancelled"},
		{"forbidden", errors.Forbidden("role cannot set status"), http.StatusForbidden, "role cannot set status"},
		{"conflict", errors.Conflict("appointment was modified concurrently", nil), http.StatusConflict, "appointment was modified concurrently"},
		{"plain", stderrors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := perform(t, func(c *gin.Context) { RespondWithError(c, tt.err) })

			assert.Equal(t, tt.status, w.Code)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.status, resp.Error.Code)
			assert.Equal(t, tt.message, resp.Error.Message)
		})
	}
}

func TestRespondWithPagination(t *testing.T) {
	w, resp := perform(t, func(c *gin.Context) {
		RespondWithPagination(c, []string{"a", "b"}, 2, 20, 41)
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	pagination := data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(3), pagination["total_pages"])
	assert.Equal(t, float64(41), pagination["total"])
}
