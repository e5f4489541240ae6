package orders

import (
	"net/http"
	"strconv"

	"cineticket/internal/shared/middleware"
	"cineticket/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Controller struct {
	service *Service
}

func NewController(service *Service) *Controller {
	return &Controller{service: service}
}

// CreateOrder handles POST /api/v1/orders
func (c *Controller) CreateOrder(ctx *gin.Context) {
	var req CreateOrderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	requester := RequesterFrom(ctx)
	if len(req.Tickets) > 0 && requester.HolderID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Sign in or send "+middleware.HolderHeader, nil, nil)
		return
	}
	if req.CustomerEmail == "" {
		req.CustomerEmail = middleware.CurrentEmail(ctx)
	}

	order, err := c.service.CreateOrder(ctx.Request.Context(), req.ToInput(requester.UserID, requester.HolderID))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Order created, awaiting payment", order, nil)
}

// GetOrder handles GET /api/v1/orders/:id
func (c *Controller) GetOrder(ctx *gin.Context) {
	orderID, ok := parseOrderID(ctx)
	if !ok {
		return
	}

	order, err := c.service.GetOrderFor(ctx.Request.Context(), orderID, RequesterFrom(ctx))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Order retrieved successfully", order, nil)
}

// CancelOrder handles POST /api/v1/orders/:id/cancel
func (c *Controller) CancelOrder(ctx *gin.Context) {
	orderID, ok := parseOrderID(ctx)
	if !ok {
		return
	}

	if err := c.service.CancelOrderForUser(ctx.Request.Context(), orderID, RequesterFrom(ctx)); err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Order cancelled", gin.H{"order_id": orderID}, nil)
}

// GetUserOrders handles GET /api/v1/users/me/orders
func (c *Controller) GetUserOrders(ctx *gin.Context) {
	userID, ok := middleware.CurrentUserID(ctx)
	if !ok {
		response.RespondJSON(ctx, "error", http.StatusUnauthorized, "User not authenticated", nil, nil)
		return
	}

	var query ListOrdersQuery
	if err := ctx.ShouldBindQuery(&query); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}
	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = 20
	}

	orders, total, err := c.service.ListUserOrders(ctx.Request.Context(), userID, query.Page, query.Limit)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Orders retrieved successfully",
		newListOrdersResponse(orders, total, query.Page, query.Limit), nil)
}

// GetSeatMap handles GET /api/v1/showtimes/:id/seats
func (c *Controller) GetSeatMap(ctx *gin.Context) {
	showtimeID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid showtime ID", nil, nil)
		return
	}

	seatMap, err := c.service.GetSeatAvailability(ctx.Request.Context(), showtimeID, middleware.HolderID(ctx))
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seat map retrieved successfully", seatMap, nil)
}

// GetExpiredOrders handles GET /api/v1/admin/orders/expired
func (c *Controller) GetExpiredOrders(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "0"))

	orders, err := c.service.GetExpiredOrders(ctx.Request.Context(), limit)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Expired orders retrieved", orders, nil)
}

// ExpireOrders handles POST /api/v1/admin/orders/expire
func (c *Controller) ExpireOrders(ctx *gin.Context) {
	count, err := c.service.ExpireOrders(ctx.Request.Context())
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Expired orders cancelled", gin.H{"cancelled": count}, nil)
}

// AdminCancelOrder handles POST /api/v1/admin/orders/:id/cancel
func (c *Controller) AdminCancelOrder(ctx *gin.Context) {
	orderID, ok := parseOrderID(ctx)
	if !ok {
		return
	}

	if err := c.service.CancelOrder(ctx.Request.Context(), orderID); err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Order cancelled", gin.H{"order_id": orderID}, nil)
}

// RequesterFrom builds the order requester from the auth context
func RequesterFrom(ctx *gin.Context) Requester {
	requester := Requester{HolderID: middleware.HolderID(ctx)}
	if userID, ok := middleware.CurrentUserID(ctx); ok {
		requester.UserID = &userID
	}
	switch middleware.CurrentRole(ctx) {
	case middleware.RoleStaff, middleware.RoleAdmin:
		requester.Privileged = true
	}
	return requester
}

func parseOrderID(ctx *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid order ID", nil, nil)
		return uuid.Nil, false
	}
	return orderID, true
}
