package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthEngine(jwt auth.JWTService, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers := append([]gin.HandlerFunc{NewAuthMiddleware(jwt).Authenticate()}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		actor, _ := ActorFromContext(c)
		c.JSON(http.StatusOK, actor)
	})
	r.GET("/me", handlers...)
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	jwt := auth.NewJWTService("secret", "clinic-api", time.Hour)
	patient := model.Actor{ID: uuid.New(), Type: model.ActorTypePatient}
	token, err := jwt.GenerateAccessToken(patient)
	require.NoError(t, err)

	r := newAuthEngine(jwt)

	t.Run("valid token", func(t *testing.T) {
		w := get(r, "/me", token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), patient.ID.String())
	})

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "").Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "not-a-jwt").Code)
	})

	t.Run("wrong scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Basic "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestRequireActorTypeAndRoles(t *testing.T) {
	jwt := auth.NewJWTService("secret", "clinic-api", time.Hour)
	patientToken, err := jwt.GenerateAccessToken(model.Actor{ID: uuid.New(), Type: model.ActorTypePatient})
	require.NoError(t, err)
	nurseToken, err := jwt.GenerateAccessToken(model.Actor{ID: uuid.New(), Type: model.ActorTypeProvider, Role: model.ProviderRoleNurse})
	require.NoError(t, err)
	adminToken, err := jwt.GenerateAccessToken(model.Actor{ID: uuid.New(), Type: model.ActorTypeProvider, Role: model.ProviderRoleAdmin})
	require.NoError(t, err)

	providers := newAuthEngine(jwt, RequireActorType(model.ActorTypeProvider))
	assert.Equal(t, http.StatusForbidden, get(providers, "/me", patientToken).Code)
	assert.Equal(t, http.StatusOK, get(providers, "/me", nurseToken).Code)

	admins := newAuthEngine(jwt, RequireRoles(model.ProviderRoleAdmin, model.ProviderRoleReceptionist))
	assert.Equal(t, http.StatusForbidden, get(admins, "/me", nurseToken).Code)
	assert.Equal(t, http.StatusForbidden, get(admins, "/me", patientToken).Code)
	assert.Equal(t, http.StatusOK, get(admins, "/me", adminToken).Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RPS: 0.001, Burst: 2})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, get(r, "/x", "").Code)
	assert.Equal(t, http.StatusOK, get(r, "/x", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/x", "").Code)
}

func TestRateLimiterForgetsIdleClients(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute})
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.limiterFor("10.0.0.1")
	require.Len(t, rl.clients, 1)

	now = now.Add(2 * time.Minute)
	rl.limiterFor("10.0.0.2")
	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "10.0.0.2")
}

func TestRateLimiterSweepsOncePerIdleTTL(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute})
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start
	rl.now = func() time.Time { return now }

	rl.limiterFor("10.0.0.1")
	assert.Equal(t, start, rl.lastSweep)

	for i := 0; i < 5; i++ {
		now = now.Add(10 * time.Second)
		rl.limiterFor("10.0.0.2")
	}
	assert.Equal(t, start, rl.lastSweep)
	assert.Len(t, rl.clients, 2)

	now = start.Add(3 * time.Minute)
	rl.limiterFor("10.0.0.3")
	assert.Equal(t, now, rl.lastSweep)
	assert.Len(t, rl.clients, 1)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestID)) })

	w := get(r, "/x", "")
	assert.NotEmpty(t, w.Header().Get(HeaderXRequestID))
	assert.Equal(t, w.Header().Get(HeaderXRequestID), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderXRequestID, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery(logger.Nop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := get(r, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString(`{"a":"way too long"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString(`{}`)))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(DefaultSecurityConfig()))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := get(r, "/x", "")
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "includeSubDomains")
}

func TestValidators(t *testing.T) {
	require.NoError(t, RegisterValidators())

	type body struct {
		Purposes []model.AppointmentPurpose `json:"purposes" binding:"required,min=1,dive,purpose"`
		Time     string                     `json:"time" binding:"required,clock"`
	}

	r := gin.New()
	r.POST("/x", func(c *gin.Context) {
		var b body
		if err := c.ShouldBindJSON(&b); err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"purposes":["DENTAL_CARE"],"time":"09:30"}`, http.StatusNoContent},
		{"unknown purpose", `{"purposes":["ASTROLOGY"],"time":"09:30"}`, http.StatusBadRequest},
		{"empty purposes", `{"purposes":[],"time":"09:30"}`, http.StatusBadRequest},
		{"bad clock", `{"purposes":["DENTAL_CARE"],"time":"25:00"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", bytes.NewBufferString(tt.body)))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
