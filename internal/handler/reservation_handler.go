package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sool-market/service-reservation/internal/application"
	"github.com/sool-market/service-reservation/internal/platform/auth"
	"github.com/sool-market/service-reservation/internal/platform/middleware"
	"github.com/sool-market/service-reservation/internal/platform/response"
)

// HistoryUseCases is the reservation history as the handler uses it.
type HistoryUseCases interface {
	List(ctx context.Context, caller auth.Identity, offset int) (*application.ReservationPage, error)
	Get(ctx context.Context, caller auth.Identity, reservationID int64) (*application.ReservationDTO, error)
	Cancel(ctx context.Context, caller auth.Identity, reservationID int64) (*application.ReservationDTO, error)
	Delete(ctx context.Context, caller auth.Identity, reservationID int64) error
}

// EditUseCases is the change-reservation flow as the handler uses it.
type EditUseCases interface {
	View(ctx context.Context, caller auth.Identity, sessionID string, reservationID int64, date string) (*application.EditView, error)
	Submit(ctx context.Context, caller auth.Identity, sessionID string, reservationID int64, req application.ChangeReservationRequest) (*application.ReservationDTO, error)
}

// ReservationHandler handles HTTP requests for existing reservations.
type ReservationHandler struct {
	history HistoryUseCases
	edit    EditUseCases
}

// NewReservationHandler creates a new ReservationHandler.
func NewReservationHandler(history HistoryUseCases, edit EditUseCases) *ReservationHandler {
	return &ReservationHandler{history: history, edit: edit}
}

// RegisterRoutes registers all reservation routes on the given router group.
func (h *ReservationHandler) RegisterRoutes(r *gin.RouterGroup, verifier *auth.JWTVerifier) {
	reservations := r.Group("/api/v1/reservations")
	reservations.Use(middleware.AuthMiddleware(verifier), middleware.SessionMiddleware())
	{
		reservations.GET("", h.List)
		reservations.GET("/:id", h.Get)
		reservations.GET("/:id/edit", h.EditView)
		reservations.PUT("/:id", h.Change)
		reservations.POST("/:id/cancel", h.Cancel)
		reservations.DELETE("/:id", h.Delete)
	}
}

// List handles GET /api/v1/reservations?offset=.
func (h *ReservationHandler) List(c *gin.Context) {
	caller, _, ok := requestScope(c)
	if !ok {
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		response.BadRequest(c, "invalid offset")
		return
	}

	page, err := h.history.List(c.Request.Context(), caller, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paged(c, page.Items, response.PageMeta{
		Offset:  page.Offset,
		Count:   len(page.Items),
		HasNext: page.HasNext,
		Cached:  page.Cached,
	})
}

// Get handles GET /api/v1/reservations/:id.
func (h *ReservationHandler) Get(c *gin.Context) {
	caller, _, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := reservationID(c)
	if !ok {
		return
	}
	result, err := h.history.Get(c.Request.Context(), caller, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// EditView handles GET /api/v1/reservations/:id/edit?date=.
func (h *ReservationHandler) EditView(c *gin.Context) {
	caller, sessionID, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := reservationID(c)
	if !ok {
		return
	}
	view, err := h.edit.View(c.Request.Context(), caller, sessionID, id, c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// Change handles PUT /api/v1/reservations/:id.
func (h *ReservationHandler) Change(c *gin.Context) {
	caller, sessionID, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := reservationID(c)
	if !ok {
		return
	}
	var req application.ChangeReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.edit.Submit(c.Request.Context(), caller, sessionID, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Cancel handles POST /api/v1/reservations/:id/cancel.
func (h *ReservationHandler) Cancel(c *gin.Context) {
	caller, _, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := reservationID(c)
	if !ok {
		return
	}
	result, err := h.history.Cancel(c.Request.Context(), caller, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// Delete handles DELETE /api/v1/reservations/:id.
func (h *ReservationHandler) Delete(c *gin.Context) {
	caller, _, ok := requestScope(c)
	if !ok {
		return
	}
	id, ok := reservationID(c)
	if !ok {
		return
	}
	if err := h.history.Delete(c.Request.Context(), caller, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func reservationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid reservation ID")
		return 0, false
	}
	return id, true
}
