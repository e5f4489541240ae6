package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cineticket/pkg/logger"
)

// OrderSweeper cancels pending orders whose payment window has passed
type OrderSweeper interface {
	ExpireOrders(ctx context.Context) (int, error)
}

// TicketSweeper issues tickets that were missed after payment
type TicketSweeper interface {
	GenerateMissingTickets(ctx context.Context) (int, error)
}

// Config contains the sweep intervals
type Config struct {
	OrderSweepInterval  time.Duration
	TicketSweepInterval time.Duration
}

// DefaultConfig returns default job configuration
func DefaultConfig() Config {
	return Config{
		OrderSweepInterval:  1 * time.Minute,
		TicketSweepInterval: 5 * time.Minute,
	}
}

// Processor runs the periodic sweeps. Each tick is independent; a failed
// tick is logged and the next one runs as usual.
type Processor struct {
	orders  OrderSweeper
	tickets TicketSweeper
	config  Config
	log     *logger.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewProcessor creates a new job processor
func NewProcessor(orders OrderSweeper, tickets TicketSweeper, config Config) *Processor {
	defaults := DefaultConfig()
	if config.OrderSweepInterval <= 0 {
		config.OrderSweepInterval = defaults.OrderSweepInterval
	}
	if config.TicketSweepInterval <= 0 {
		config.TicketSweepInterval = defaults.TicketSweepInterval
	}

	return &Processor{
		orders:  orders,
		tickets: tickets,
		config:  config,
		log:     logger.GetDefault(),
		done:    make(chan struct{}),
	}
}

// Start starts all background jobs
func (p *Processor) Start(ctx context.Context) {
	p.log.Info("Starting background jobs",
		slog.Duration("order_sweep_interval", p.config.OrderSweepInterval),
		slog.Duration("ticket_sweep_interval", p.config.TicketSweepInterval),
	)

	p.run(ctx, "expire_orders", p.config.OrderSweepInterval, p.expireOrders)
	p.run(ctx, "generate_missing_tickets", p.config.TicketSweepInterval, p.generateMissingTickets)
}

// Stop stops all background jobs and waits for a running tick to finish
func (p *Processor) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
	p.log.Info("Background jobs stopped")
}

func (p *Processor) run(ctx context.Context, name string, interval time.Duration, tick func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				tick(ctx)
			case <-p.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	p.log.Debug("job scheduled", slog.String("job", name))
}

func (p *Processor) expireOrders(ctx context.Context) {
	expired, err := p.orders.ExpireOrders(ctx)
	if err != nil {
		p.log.ErrorWithContext(ctx, "order expiry sweep failed", err, nil)
		return
	}
	if expired > 0 {
		p.log.InfoWithContext(ctx, "expired pending orders", map[string]interface{}{"count": expired})
	}
}

func (p *Processor) generateMissingTickets(ctx context.Context) {
	issued, err := p.tickets.GenerateMissingTickets(ctx)
	if err != nil {
		p.log.ErrorWithContext(ctx, "missing ticket sweep failed", err, nil)
		return
	}
	if issued > 0 {
		p.log.InfoWithContext(ctx, "issued missing tickets", map[string]interface{}{"count": issued})
	}
}

// Status returns the schedule of the background jobs
func (p *Processor) Status() map[string]interface{} {
	status := "running"
	select {
	case <-p.done:
		status = "stopped"
	default:
	}
	return map[string]interface{}{
		"order_sweep_interval":  p.config.OrderSweepInterval.String(),
		"ticket_sweep_interval": p.config.TicketSweepInterval.String(),
		"status":                status,
	}
}
