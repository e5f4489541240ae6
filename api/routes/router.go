// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"cineticket/internal/catalog"
	"cineticket/internal/holds"
	"cineticket/internal/jobs"
	"cineticket/internal/notifications"
	"cineticket/internal/orders"
	"cineticket/internal/payments"
	"cineticket/internal/payments/momo"
	"cineticket/internal/shared/config"
	"cineticket/internal/shared/database"
	"cineticket/internal/tickets"
	"cineticket/pkg/cache"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config *config.Config
	db     *database.DB

	holdManager    *holds.Manager
	holdService    *holds.Service
	orderService   *orders.Service
	paymentService *payments.Service
	ticketService  *tickets.Service
}

// NewRouter wires the services shared by the HTTP handlers and the
// background jobs.
func NewRouter(cfg *config.Config, db *database.DB, notifier notifications.Notifier) *Router {
	pg := db.GetPostgreSQL()
	tx := database.NewTransactor(pg)
	catalogRepo := catalog.NewRepository(pg)

	holdManager := holds.NewManager(db.GetRedisClient(), cfg.Redis.SeatHoldTTL)
	holdService := holds.NewService(holdManager, catalogRepo)

	orderService := orders.NewService(
		orders.NewRepository(pg),
		catalogRepo,
		holdManager,
		tx,
		cache.NewService(db.GetRedisClient()),
		notifier,
		orders.Config{
			TicketWindow:   cfg.Booking.TicketOrderWindow,
			ProductWindow:  cfg.Booking.ProductOrderWindow,
			SeatMapTTL:     cfg.Redis.SeatMapTTL,
			SweepBatchSize: cfg.Booking.SweepBatchSize,
		},
	)

	ticketService := tickets.NewService(
		tickets.NewRepository(pg),
		orderService,
		catalogRepo,
		notifier,
		tickets.Config{
			GracePeriod:    cfg.Booking.TicketGracePeriod,
			SweepBatchSize: cfg.Booking.SweepBatchSize,
		},
	)

	gateway := momo.NewClient(momo.Config{
		Endpoint:    cfg.Momo.Endpoint,
		PartnerCode: cfg.Momo.PartnerCode,
		AccessKey:   cfg.Momo.AccessKey,
		SecretKey:   cfg.Momo.SecretKey,
		RedirectURL: cfg.Momo.RedirectURL,
		IpnURL:      cfg.Momo.IpnURL,
		RequestType: cfg.Momo.RequestType,
		Lang:        cfg.Momo.Lang,
		Timeout:     cfg.Momo.Timeout,
	})
	paymentService := payments.NewService(
		payments.NewRepository(pg),
		gateway,
		orderService,
		ticketService,
		tx,
		notifier,
	)

	return &Router{
		config:         cfg,
		db:             db,
		holdManager:    holdManager,
		holdService:    holdService,
		orderService:   orderService,
		paymentService: paymentService,
		ticketService:  ticketService,
	}
}

// HoldManager exposes the Redis hold store, e.g. to preload its scripts
func (r *Router) HoldManager() *holds.Manager {
	return r.holdManager
}

// NewJobProcessor builds the sweeps over the router's services
func (r *Router) NewJobProcessor() *jobs.Processor {
	return jobs.NewProcessor(r.orderService, r.ticketService, jobs.Config{
		OrderSweepInterval:  r.config.Booking.OrderSweepInterval,
		TicketSweepInterval: r.config.Booking.TicketSweepInterval,
	})
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// Health check and basic info endpoints
	r.setupHealthRoutes(engine)

	secret := r.config.JWT.Secret
	api := engine.Group(r.config.GetAPIBasePath())
	{
		holds.SetupHoldRoutes(api, holds.NewController(r.holdService), secret)
		orders.SetupOrderRoutes(api, orders.NewController(r.orderService), secret)
		payments.SetupPaymentRoutes(api, payments.NewController(r.paymentService, r.orderService), secret)
		tickets.SetupTicketRoutes(api, tickets.NewController(r.ticketService, r.orderService), secret)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "cineticket-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "cineticket-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}
