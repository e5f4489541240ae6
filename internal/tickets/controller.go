package tickets

import (
	"net/http"

	"cineticket/internal/orders"
	"cineticket/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service *Service
	orders  *orders.Service
}

func NewController(service *Service, orderService *orders.Service) *Controller {
	return &Controller{service: service, orders: orderService}
}

// GetOrderTickets handles GET /api/v1/orders/:id/tickets
func (c *Controller) GetOrderTickets(ctx *gin.Context) {
	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid order ID", nil, nil)
		return
	}

	if _, err := c.orders.GetOrderFor(ctx.Request.Context(), orderID, orders.RequesterFrom(ctx)); err != nil {
		response.RespondError(ctx, err)
		return
	}

	tickets, err := c.service.GetTicketsForOrder(ctx.Request.Context(), orderID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Tickets retrieved successfully", tickets, nil)
}

// VerifyTicket handles POST /api/v1/staff/tickets/verify
func (c *Controller) VerifyTicket(ctx *gin.Context) {
	var req VerifyTicketRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Send qr_data or ticket_code", nil, err.Error())
		return
	}

	var (
		result *VerificationResult
		err    error
	)
	if req.QRData != "" {
		result, err = c.service.VerifyAndUse(ctx.Request.Context(), req.QRData)
	} else {
		result, err = c.service.VerifyByCode(ctx.Request.Context(), req.TicketCode)
	}
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	code := verificationStatusCode(result)
	status := "success"
	if code != http.StatusOK {
		status = "error"
	}
	response.RespondJSON(ctx, status, code, result.Message, result, nil)
}

// GenerateMissingTickets handles POST /api/v1/admin/tickets/generate-missing
func (c *Controller) GenerateMissingTickets(ctx *gin.Context) {
	count, err := c.service.GenerateMissingTickets(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Missing tickets generated", gin.H{"generated": count}, nil)
}

func verificationStatusCode(result *VerificationResult) int {
	switch result.Result {
	case VerificationValid:
		return http.StatusOK
	case VerificationAlreadyUsed:
		return http.StatusConflict
	case VerificationExpired:
		return http.StatusUnprocessableEntity
	default:
		if result.Reason == ReasonNotRecognized {
			return http.StatusNotFound
		}
		return http.StatusUnprocessableEntity
	}
}
