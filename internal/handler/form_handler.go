package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/sool-market/service-reservation/internal/application"
	"github.com/sool-market/service-reservation/internal/platform/apperr"
	"github.com/sool-market/service-reservation/internal/platform/auth"
	"github.com/sool-market/service-reservation/internal/platform/middleware"
	"github.com/sool-market/service-reservation/internal/platform/response"
)

// FormUseCases is the new-booking form as the handler uses it.
type FormUseCases interface {
	StartSession(ctx context.Context, caller auth.Identity, sessionID string) (*application.FormView, error)
	EndSession(ctx context.Context, caller auth.Identity, sessionID string) error
	View(ctx context.Context, caller auth.Identity, sessionID string) (*application.FormView, error)
	SelectExperience(ctx context.Context, caller auth.Identity, sessionID string, req application.SelectExperienceRequest) (*application.FormView, error)
	ChangeMonth(ctx context.Context, caller auth.Identity, sessionID string, req application.ChangeMonthRequest) (*application.FormView, error)
	SelectDate(ctx context.Context, caller auth.Identity, sessionID string, req application.SelectDateRequest) (*application.FormView, error)
	SelectTime(ctx context.Context, caller auth.Identity, sessionID string, req application.SelectTimeRequest) (*application.FormView, error)
	SetHeadCount(ctx context.Context, caller auth.Identity, sessionID string, req application.SetHeadCountRequest) (*application.FormView, error)
	SetContact(ctx context.Context, caller auth.Identity, sessionID string, req application.SetContactRequest) (*application.FormView, error)
	Discard(ctx context.Context, caller auth.Identity, sessionID string) (*application.FormView, error)
	Submit(ctx context.Context, caller auth.Identity, sessionID string) (*application.SubmitResult, error)
}

// FormHandler handles HTTP requests for the new-booking form.
type FormHandler struct {
	service FormUseCases
}

// NewFormHandler creates a new FormHandler.
func NewFormHandler(service FormUseCases) *FormHandler {
	return &FormHandler{service: service}
}

// RegisterRoutes registers all form routes on the given router group.
func (h *FormHandler) RegisterRoutes(r *gin.RouterGroup, verifier *auth.JWTVerifier) {
	form := r.Group("/api/v1/reservation-form")
	form.Use(middleware.AuthMiddleware(verifier), middleware.SessionMiddleware())
	{
		form.POST("/session", h.StartSession)
		form.DELETE("/session", h.EndSession)
		form.GET("", h.View)
		form.DELETE("", h.Discard)
		form.PUT("/experience", h.SelectExperience)
		form.PUT("/month", h.ChangeMonth)
		form.PUT("/date", h.SelectDate)
		form.PUT("/time", h.SelectTime)
		form.PUT("/count", h.SetHeadCount)
		form.PUT("/contact", h.SetContact)
		form.POST("/submit", h.Submit)
	}
}

// StartSession handles POST /api/v1/reservation-form/session.
func (h *FormHandler) StartSession(c *gin.Context) {
	caller, sessionID, ok := requestScope(c)
	if !ok {
		return
	}
	view, err := h.service.StartSession(c.Request.Context(), caller, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// EndSession handles DELETE /api/v1/reservation-form/session.
func (h *FormHandler) EndSession(c *gin.Context) {
	caller, sessionID, ok := requestScope(c)
	if !ok {
		return
	}
	if err := h.service.EndSession(c.Request.Context(), caller, sessionID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// View handles GET /api/v1/reservation-form.
func (h *FormHandler) View(c *gin.Context) {
	caller, sessionID, ok := requestScope(c)
	if !ok {
		return
	}
	view, err := h.service.View(c.Request.Context(), caller, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// Discard handles DELETE /api/v1/reservation-form.
func (h *FormHandler) Discard(c *gin.Context) {
	caller, sessionID, ok := requestScope(c)
	if !ok {
		return
	}
	view, err := h.service.Discard(c.Request.Context(), caller, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// SelectExperience handles PUT /api/v1/reservation-form/experience.
func (h *FormHandler) SelectExperience(c *gin.Context) {
	caller, sessionID, ok := requestScope(c)
	if !ok {
		return
	}
	var req application.SelectExperienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.respond(c)(h.service.SelectExperience(c.Request.Context(), caller, sessionID, req))
}

// ChangeMonth handles PUT /api/v1/reservation-form/month.
func (h *FormHandler) ChangeMonth(c *gin.Context) {
	caller, sessionID, ok := requestScope(c)
	if !ok {
		return
	}
	var req application.ChangeMonthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.respond(c)(h.service.ChangeMonth(c.Request.Context(), caller, sessionID, req))
}

// SelectDate handles PUT /api/v1/reservation-form/date.
func (h *FormHandler) SelectDate(c *gin.Context) {
	caller, sessionID, ok := requestScope(c)
	if !ok {
		return
	}
	var req application.SelectDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.respond(c)(h.service.SelectDate(c.Request.Context(), caller, sessionID, req))
}

// SelectTime handles PUT /api/v1/reservation-form/time.
func (h *FormHandler) SelectTime(c *gin.Context) {
	caller, sessionID, ok := requestScope(c)
	if !ok {
		return
	}
	var req application.SelectTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.respond(c)(h.service.SelectTime(c.Request.Context(), caller, sessionID, req))
}

// SetHeadCount handles PUT /api/v1/reservation-form/count.
func (h *FormHandler) SetHeadCount(c *gin.Context) {
	caller, sessionID, ok := requestScope(c)
	if !ok {
		return
	}
	var req application.SetHeadCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.respond(c)(h.service.SetHeadCount(c.Request.Context(), caller, sessionID, req))
}

// SetContact handles PUT /api/v1/reservation-form/contact.
func (h *FormHandler) SetContact(c *gin.Context) {
	caller, sessionID, ok := requestScope(c)
	if !ok {
		return
	}
	var req application.SetContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	h.respond(c)(h.service.SetContact(c.Request.Context(), caller, sessionID, req))
}

// Submit handles POST /api/v1/reservation-form/submit.
func (h *FormHandler) Submit(c *gin.Context) {
	caller, sessionID, ok := requestScope(c)
	if !ok {
		return
	}
	result, err := h.service.Submit(c.Request.Context(), caller, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

func (h *FormHandler) respond(c *gin.Context) func(*application.FormView, error) {
	return func(view *application.FormView, err error) {
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, view)
	}
}

// requestScope returns the caller and booking session of an authenticated request.
func requestScope(c *gin.Context) (auth.Identity, string, bool) {
	caller, ok := middleware.GetIdentity(c)
	if !ok {
		response.Error(c, apperr.NewUnauthorizedError("unauthorized"))
		return auth.Identity{}, "", false
	}
	sessionID, ok := middleware.GetSessionID(c)
	if !ok {
		response.BadRequest(c, "missing "+middleware.SessionHeader+" header")
		return auth.Identity{}, "", false
	}
	return caller, sessionID, true
}
