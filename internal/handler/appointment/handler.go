package appointment

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/appointment"
	apperrors "github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

// RegisterPatientRoutes mounts the appointment routes available to patients.
func (h *Handler) RegisterPatientRoutes(rg *gin.RouterGroup) {
	appointments := rg.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("", h.CreatePatientAppointment)
		appointments.PATCH("/:id", h.UpdatePatientAppointment)
		appointments.PATCH("/:id/reschedule", h.RescheduleAppointment)
		appointments.PATCH("/:id/cancel", h.CancelAppointment)
	}
}

// RegisterProviderRoutes mounts the appointment routes available to clinic staff.
func (h *Handler) RegisterProviderRoutes(rg *gin.RouterGroup) {
	privileged := middleware.RequireRoles(model.ProviderRoleAdmin, model.ProviderRoleReceptionist)

	appointments := rg.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("", privileged, h.CreateProviderAppointment)
		appointments.PATCH("/:id", privileged, h.UpdateProviderAppointment)
		appointments.PATCH("/:id/status", h.UpdateStatus)
		appointments.PATCH("/:id/cancel", h.CancelAppointment)
		appointments.PATCH("/:id/followup", privileged, h.CreateFollowUp)
		appointments.PATCH("/:id/assign", privileged, h.AssignProvider)
		appointments.DELETE("/:id", privileged, h.DeleteAppointment)
	}
}

type listQuery struct {
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
	Status     string `form:"status"`
	ProviderID string `form:"provider_id"`
	From       string `form:"from"`
	To         string `form:"to"`
	Search     string `form:"search"`
}

func (q listQuery) filter() (model.AppointmentFilter, error) {
	f := model.AppointmentFilter{
		Pagination: model.Pagination{Page: q.Page, Limit: q.Limit},
		Status:     model.AppointmentStatus(q.Status),
		Search:     q.Search,
	}
	if q.ProviderID != "" {
		id, err := uuid.Parse(q.ProviderID)
		if err != nil {
			return f, apperrors.BadRequest("invalid provider_id", err)
		}
		f.ProviderID = &id
	}
	for _, b := range []struct {
		raw string
		dst **time.Time
	}{{q.From, &f.From}, {q.To, &f.To}} {
		if b.raw == "" {
			continue
		}
		t, err := parseDate(b.raw)
		if err != nil {
			return f, apperrors.BadRequest("invalid date "+b.raw, err)
		}
		*b.dst = &t
	}
	return f, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

func (h *Handler) ListAppointments(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}
	filter, err := q.filter()
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	items, total, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	page := filter.Pagination.Normalize()
	httputil.RespondWithPagination(c, items, page.Page, page.Limit, total)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id", "appointment ID")
	if !ok {
		return
	}

	appt, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, appt)
}

func (h *Handler) CreatePatientAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	var req model.AppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	appt, err := h.service.CreateForPatient(c.Request.Context(), actor, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusCreated, "appointment created successfully", appt)
}

func (h *Handler) CreateProviderAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	var req model.ProviderAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	appt, err := h.service.CreateForProvider(c.Request.Context(), actor, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusCreated, "appointment created successfully", appt)
}

func (h *Handler) UpdatePatientAppointment(c *gin.Context) {
	h.update(c, h.service.UpdateByPatient)
}

func (h *Handler) UpdateProviderAppointment(c *gin.Context) {
	h.update(c, h.service.UpdateByProvider)
}

type updateFunc func(ctx context.Context, actor model.Actor, id uuid.UUID, req model.AppointmentRequest) (*model.Appointment, error)

func (h *Handler) update(c *gin.Context, fn updateFunc) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id", "appointment ID")
	if !ok {
		return
	}
	var req model.AppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	appt, err := fn(c.Request.Context(), actor, id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "appointment updated successfully", appt)
}

func (h *Handler) RescheduleAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id", "appointment ID")
	if !ok {
		return
	}
	var req model.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	appt, err := h.service.Reschedule(c.Request.Context(), actor, id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "appointment rescheduled successfully", appt)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id", "appointment ID")
	if !ok {
		return
	}

	appt, err := h.service.Cancel(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "appointment cancelled successfully", appt)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id", "appointment ID")
	if !ok {
		return
	}
	var req model.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	appt, err := h.service.UpdateStatus(c.Request.Context(), actor, id, req.Status)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "appointment status updated successfully", appt)
}

func (h *Handler) AssignProvider(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id", "appointment ID")
	if !ok {
		return
	}
	var req model.AssignProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	appt, err := h.service.AssignProvider(c.Request.Context(), actor, id, req.ProviderID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "provider assigned successfully", appt)
}

func (h *Handler) CreateFollowUp(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id", "appointment ID")
	if !ok {
		return
	}
	var req model.AppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	appt, err := h.service.CreateFollowUp(c.Request.Context(), actor, id, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusCreated, "follow-up appointment created successfully", appt)
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id", "appointment ID")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor, id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "appointment deleted successfully", nil)
}
