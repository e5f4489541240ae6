package orders

import (
	"cineticket/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupOrderRoutes configures order routes. Checkout works signed in or with
// an anonymous X-Holder-ID session.
func SetupOrderRoutes(rg *gin.RouterGroup, controller *Controller, jwtSecret string) {
	orders := rg.Group("/orders")
	orders.Use(middleware.OptionalAuth(jwtSecret))
	{
		orders.POST("", controller.CreateOrder)            // POST /api/v1/orders
		orders.GET("/:id", controller.GetOrder)            // GET /api/v1/orders/:id
		orders.POST("/:id/cancel", controller.CancelOrder) // POST /api/v1/orders/:id/cancel
	}

	showtimes := rg.Group("/showtimes")
	showtimes.Use(middleware.OptionalAuth(jwtSecret))
	{
		showtimes.GET("/:id/seats", controller.GetSeatMap) // GET /api/v1/showtimes/:id/seats
	}

	users := rg.Group("/users/me")
	users.Use(middleware.JWTAuth(jwtSecret))
	{
		users.GET("/orders", controller.GetUserOrders) // GET /api/v1/users/me/orders
	}

	admin := rg.Group("/admin/orders")
	admin.Use(middleware.JWTAuth(jwtSecret), middleware.RequireAdmin())
	{
		admin.GET("/expired", controller.GetExpiredOrders)     // GET /api/v1/admin/orders/expired
		admin.POST("/expire", controller.ExpireOrders)         // POST /api/v1/admin/orders/expire
		admin.POST("/:id/cancel", controller.AdminCancelOrder) // POST /api/v1/admin/orders/:id/cancel
	}
}
