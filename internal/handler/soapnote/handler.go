package soapnote

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-api/internal/handler"
	"github.com/jwalitptl/clinic-api/internal/middleware"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/service/soapnote"
	"github.com/jwalitptl/clinic-api/pkg/httputil"
)

type Handler struct {
	service *soapnote.Service
}

func NewHandler(service *soapnote.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	notes := rg.Group("/soap-notes")
	notes.Use(middleware.RequireActorType(model.ActorTypeProvider))
	{
		notes.GET("/appointment/:id",
			middleware.RequireRoles(model.ProviderRoleAdmin, model.ProviderRoleReceptionist),
			h.ListByAppointment)
		notes.GET("/:id", h.GetSoapNote)
		notes.POST("", h.RecordSoapNote)
	}
}

func (h *Handler) RecordSoapNote(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	var req model.SoapNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	note, created, err := h.service.Record(c.Request.Context(), actor, req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	if created {
		httputil.RespondWithMessage(c, http.StatusCreated, "soap note recorded successfully", note)
		return
	}
	httputil.RespondWithMessage(c, http.StatusOK, "soap note updated successfully", note)
}

func (h *Handler) ListByAppointment(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id", "appointment ID")
	if !ok {
		return
	}

	notes, err := h.service.ListByAppointment(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, notes)
}

func (h *Handler) GetSoapNote(c *gin.Context) {
	actor, ok := handler.Actor(c)
	if !ok {
		return
	}
	id, ok := handler.UUIDParam(c, "id", "soap note ID")
	if !ok {
		return
	}

	note, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, note)
}
