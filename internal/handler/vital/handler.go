package vital

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/vital"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service *vital.Service
}

func NewHandler(service *vital.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	vitals := rg.Group("/vitals")
	{
		vitals.GET("/appointment/:id", h.GetByAppointment)
		vitals.GET("/:id", h.GetVital)
		vitals.POST("", h.RecordVitals)
	}
}

// RecordVitals creates the appointment's vitals or overwrites the existing ones.
func (h *Handler) RecordVitals(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	var req model.VitalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	v, created, err := h.service.Record(c.Request.Context(), actor, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if created {
		httputil.RespondWithMessage(c, http.StatusCreated, "vitals recorded successfully", v)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "vitals updated successfully", v)
}

func (h *Handler) GetByAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id", "appointment ID")
	if !ok {
		return
	}

	v, err := h.service.GetByAppointment(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, v)
}

func (h *Handler) GetVital(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id", "vital ID")
	if !ok {
		return
	}

	v, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, v)
}
