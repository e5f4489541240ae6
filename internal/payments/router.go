package payments

import (
	"cineticket/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupPaymentRoutes configures payment routes
func SetupPaymentRoutes(rg *gin.RouterGroup, controller *Controller, jwtSecret string) {
	orders := rg.Group("/orders")
	orders.Use(middleware.OptionalAuth(jwtSecret))
	{
		orders.POST("/:id/payments", controller.CreatePayment)   // POST /api/v1/orders/:id/payments
		orders.GET("/:id/payments", controller.GetOrderPayments) // GET /api/v1/orders/:id/payments
	}

	// Provider callbacks, authenticated by signature
	momo := rg.Group("/payments/momo")
	{
		momo.GET("/return", controller.MomoReturn) // GET /api/v1/payments/momo/return
		momo.POST("/ipn", controller.MomoIPN)      // POST /api/v1/payments/momo/ipn
	}

	staff := rg.Group("/staff/orders")
	staff.Use(middleware.JWTAuth(jwtSecret), middleware.RequireStaff())
	{
		staff.POST("/:id/cash-payment", controller.ConfirmCashPayment) // POST /api/v1/staff/orders/:id/cash-payment
	}

	admin := rg.Group("/admin/payments")
	admin.Use(middleware.JWTAuth(jwtSecret), middleware.RequireAdmin())
	{
		admin.POST("/:requestId/sync", controller.SyncPayment) // POST /api/v1/admin/payments/:requestId/sync
	}
}
