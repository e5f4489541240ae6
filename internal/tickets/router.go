package tickets

import (
	"cineticket/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupTicketRoutes configures ticket routes
func SetupTicketRoutes(rg *gin.RouterGroup, controller *Controller, jwtSecret string) {
	orders := rg.Group("/orders")
	orders.Use(middleware.OptionalAuth(jwtSecret))
	{
		orders.GET("/:id/tickets", controller.GetOrderTickets) // GET /api/v1/orders/:id/tickets
	}

	// Gate check-in
	staff := rg.Group("/staff/tickets")
	staff.Use(middleware.JWTAuth(jwtSecret), middleware.RequireStaff())
	{
		staff.POST("/verify", controller.VerifyTicket) // POST /api/v1/staff/tickets/verify
	}

	admin := rg.Group("/admin/tickets")
	admin.Use(middleware.JWTAuth(jwtSecret), middleware.RequireAdmin())
	{
		admin.POST("/generate-missing", controller.GenerateMissingTickets) // POST /api/v1/admin/tickets/generate-missing
	}
}
