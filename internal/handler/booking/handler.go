package booking

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/quickserve-api/internal/middleware"
	"github.com/jwalitptl/quickserve-api/internal/model"
	"github.com/jwalitptl/quickserve-api/internal/service/booking"
	apperrors "github.com/jwalitptl/quickserve-api/pkg/errors"
	"github.com/jwalitptl/quickserve-api/pkg/httputil"
)

type Handler struct {
	service *booking.Service
}

func NewHandler(service *booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateBooking(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("missing authentication"))
		return
	}

	var req model.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, created)
}

func (h *Handler) GetBooking(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	b, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, b)
}

func (h *Handler) RespondBooking(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req model.RespondBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	b, err := h.service.Respond(c.Request.Context(), actor, id, req.Accept)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, b)
}

func (h *Handler) StartBooking(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	b, err := h.service.StartService(c.Request.Context(), actor, id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, b)
}

func (h *Handler) CompleteBooking(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req model.CompleteBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	b, err := h.service.CompleteService(c.Request.Context(), actor, id, req.FinalAmount)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, b)
}

func (h *Handler) CancelBooking(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req model.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	b, err := h.service.Cancel(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, b)
}

func (h *Handler) ReviewBooking(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req model.ReviewBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	b, err := h.service.AttachReview(c.Request.Context(), actor, id, req.Rating, req.Review)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, b)
}

// ListMyBookings returns the acting customer's bookings, oldest first.
func (h *Handler) ListMyBookings(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("missing authentication"))
		return
	}

	p := bindPagination(c)
	bookings, total, err := h.service.ListByCustomer(c.Request.Context(), actor, actor.ID, p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, bookings, p.Page, p.PageSize, total)
}

func (h *Handler) ListProviderBookings(c *gin.Context) {
	actor, providerID, ok := h.actorAndParamID(c, "id")
	if !ok {
		return
	}

	p := bindPagination(c)
	bookings, total, err := h.service.ListByProvider(c.Request.Context(), actor, providerID, p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, bookings, p.Page, p.PageSize, total)
}

func (h *Handler) ListPendingBookings(c *gin.Context) {
	actor, providerID, ok := h.actorAndParamID(c, "id")
	if !ok {
		return
	}

	bookings, err := h.service.ListPendingForProvider(c.Request.Context(), actor, providerID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bookings)
}

func (h *Handler) ListUpcomingBookings(c *gin.Context) {
	actor, providerID, ok := h.actorAndParamID(c, "id")
	if !ok {
		return
	}

	bookings, err := h.service.ListUpcomingForProvider(c.Request.Context(), actor, providerID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, bookings)
}

func (h *Handler) actorAndID(c *gin.Context) (model.Actor, uuid.UUID, bool) {
	return h.actorAndParamID(c, "id")
}

func (h *Handler) actorAndParamID(c *gin.Context, param string) (model.Actor, uuid.UUID, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("missing authentication"))
		return model.Actor{}, uuid.Nil, false
	}

	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid id"))
		return model.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

func bindPagination(c *gin.Context) model.Pagination {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		p = model.Pagination{}
	}
	p.Normalize()
	return p
}
