package payments

import (
	"net/http"

	"cineticket/internal/orders"
	"cineticket/internal/payments/momo"
	"cineticket/internal/shared/apperr"
	"cineticket/internal/shared/utils/response"
	"cineticket/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Callback sources, recorded in logs
const (
	SourceRedirect = "redirect"
	SourceIPN      = "ipn"
)

type Controller struct {
	service      *Service
	orderService *orders.Service
}

func NewController(service *Service, orderService *orders.Service) *Controller {
	return &Controller{service: service, orderService: orderService}
}

// CreatePayment handles POST /api/v1/orders/:id/payments
func (c *Controller) CreatePayment(ctx *gin.Context) {
	orderID, ok := parseOrderID(ctx)
	if !ok {
		return
	}

	var req CreatePaymentRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
			return
		}
	}

	if _, err := c.orderService.GetOrderFor(ctx.Request.Context(), orderID, orders.RequesterFrom(ctx)); err != nil {
		response.RespondError(ctx, err)
		return
	}

	txn, err := c.service.CreatePaymentAttempt(ctx.Request.Context(), orderID, req.Amount)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Payment created", newPaymentAttemptResponse(txn), nil)
}

// GetOrderPayments handles GET /api/v1/orders/:id/payments
func (c *Controller) GetOrderPayments(ctx *gin.Context) {
	orderID, ok := parseOrderID(ctx)
	if !ok {
		return
	}

	if _, err := c.orderService.GetOrderFor(ctx.Request.Context(), orderID, orders.RequesterFrom(ctx)); err != nil {
		response.RespondError(ctx, err)
		return
	}

	txns, err := c.service.GetPaymentsForOrder(ctx.Request.Context(), orderID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Payments retrieved successfully", txns, nil)
}

// MomoReturn handles GET /api/v1/payments/momo/return, the browser redirect
// after checkout. It reconciles immediately so the customer sees the result
// even when the IPN is late.
func (c *Controller) MomoReturn(ctx *gin.Context) {
	cb := momo.CallbackFromQuery(ctx.Request.URL.Query())

	result, err := c.service.ReconcileCallback(ctx.Request.Context(), cb, SourceRedirect)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, outcomeMessage(result.Outcome), result, nil)
}

// MomoIPN handles POST /api/v1/payments/momo/ipn. The provider only needs a
// 204; anything else makes it retry, which is wasted on bad payloads.
func (c *Controller) MomoIPN(ctx *gin.Context) {
	var cb momo.Callback
	if err := ctx.ShouldBindJSON(&cb); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid callback body", nil, err.Error())
		return
	}

	_, err := c.service.ReconcileCallback(ctx.Request.Context(), &cb, SourceIPN)
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.KindInvalidSignature, apperr.KindValidation:
			response.RespondError(ctx, err)
			return
		}
		logger.GetDefault().ErrorWithContext(ctx.Request.Context(), "ipn reconciliation failed", err, map[string]interface{}{
			"request_id": cb.RequestID,
			"order_ref":  cb.OrderID,
		})
	}

	ctx.Status(http.StatusNoContent)
}

// SyncPayment handles POST /api/v1/admin/payments/:requestId/sync
func (c *Controller) SyncPayment(ctx *gin.Context) {
	requestID := ctx.Param("requestId")
	if requestID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Request ID is required", nil, nil)
		return
	}

	result, err := c.service.SyncPaymentStatus(ctx.Request.Context(), requestID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, outcomeMessage(result.Outcome), result, nil)
}

// ConfirmCashPayment handles POST /api/v1/staff/orders/:id/cash-payment
func (c *Controller) ConfirmCashPayment(ctx *gin.Context) {
	orderID, ok := parseOrderID(ctx)
	if !ok {
		return
	}

	txn, err := c.service.ConfirmCashPayment(ctx.Request.Context(), orderID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Cash payment recorded, order confirmed", txn, nil)
}

func outcomeMessage(outcome Outcome) string {
	switch outcome {
	case OutcomeConfirmed:
		return "Payment successful, order confirmed"
	case OutcomeFailed:
		return "Payment failed"
	case OutcomeRejected:
		return "Payment could not be applied to the order"
	case OutcomePending:
		return "Payment is still processing"
	case OutcomeAlreadyProcessed:
		return "Payment already processed"
	default:
		return "Payment not recognized"
	}
}

func parseOrderID(ctx *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid order ID", nil, nil)
		return uuid.Nil, false
	}
	return orderID, true
}
