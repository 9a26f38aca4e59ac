package payment

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/quickserve-api/internal/middleware"
	"github.com/jwalitptl/quickserve-api/internal/model"
	"github.com/jwalitptl/quickserve-api/internal/service/payment"
	apperrors "github.com/jwalitptl/quickserve-api/pkg/errors"
	"github.com/jwalitptl/quickserve-api/pkg/httputil"
)

type Handler struct {
	service *payment.Service
}

func NewHandler(service *payment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) InitiatePayment(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("missing authentication"))
		return
	}

	var req model.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	created, err := h.service.Initiate(c.Request.Context(), actor, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, created)
}

type gatewayCallbackRequest struct {
	Status        string `json:"status" binding:"required,oneof=success failure"`
	TransactionID string `json:"transaction_id"`
	FailureReason string `json:"failure_reason"`
}

// GatewayCallback is the webhook the payment gateway calls with the charge
// outcome.
func (h *Handler) GatewayCallback(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid id"))
		return
	}

	var req gatewayCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	var updated *model.Payment
	if req.Status == "success" {
		updated, err = h.service.Complete(c.Request.Context(), id, req.TransactionID)
	} else {
		updated, err = h.service.Fail(c.Request.Context(), id, req.FailureReason)
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, updated)
}

type refundRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *Handler) RefundPayment(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("missing authentication"))
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid id"))
		return
	}

	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindingError(c, err)
		return
	}

	refunded, err := h.service.Refund(c.Request.Context(), actor, id, req.Amount)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, refunded)
}

func (h *Handler) GetBookingPayment(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		httputil.RespondWithError(c, apperrors.Unauthorized("missing authentication"))
		return
	}

	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid id"))
		return
	}

	p, err := h.service.GetByBooking(c.Request.Context(), actor, bookingID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}
