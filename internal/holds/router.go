package holds

import (
	"cineticket/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupHoldRoutes configures seat hold routes. Anonymous kiosk sessions hold
// seats with the X-Holder-ID header.
func SetupHoldRoutes(rg *gin.RouterGroup, controller *Controller, jwtSecret string) {
	showtimes := rg.Group("/showtimes")
	showtimes.Use(middleware.OptionalAuth(jwtSecret))
	{
		showtimes.POST("/:id/holds", controller.HoldSeats)      // POST /api/v1/showtimes/:id/holds
		showtimes.DELETE("/:id/holds", controller.ReleaseSeats) // DELETE /api/v1/showtimes/:id/holds
	}
}
