package holds

import (
	"net/http"

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

// HoldSeats handles POST /api/v1/showtimes/:id/holds
func (c *Controller) HoldSeats(ctx *gin.Context) {
	showtimeID, req, holderID, ok := c.bind(ctx)
	if !ok {
		return
	}

	hold, err := c.service.HoldSeats(ctx.Request.Context(), showtimeID, req.SeatIDs, holderID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusCreated, "Seats held successfully", hold, nil)
}

// ReleaseSeats handles DELETE /api/v1/showtimes/:id/holds
func (c *Controller) ReleaseSeats(ctx *gin.Context) {
	showtimeID, req, holderID, ok := c.bind(ctx)
	if !ok {
		return
	}

	released, err := c.service.ReleaseSeats(ctx.Request.Context(), showtimeID, req.SeatIDs, holderID)
	if err != nil {
		response.RespondError(ctx, err)
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Seats released", gin.H{"released": released}, nil)
}

func (c *Controller) bind(ctx *gin.Context) (uuid.UUID, HoldSeatsRequest, string, bool) {
	var req HoldSeatsRequest

	showtimeID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid showtime ID", nil, nil)
		return uuid.Nil, req, "", false
	}

	holderID := middleware.HolderID(ctx)
	if holderID == "" {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Sign in or send "+middleware.HolderHeader, nil, nil)
		return uuid.Nil, req, "", false
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return uuid.Nil, req, "", false
	}

	return showtimeID, req, holderID, true
}
