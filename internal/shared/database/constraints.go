package database

import (
	"fmt"

	"gorm.io/gorm"
)

// constraintStatements back the booking invariants with store-level uniqueness
var constraintStatements = []string{
	// one ticket per paid seat, unique redemption codes
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_e_tickets_order_ticket ON e_tickets (order_ticket_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_e_tickets_ticket_code ON e_tickets (ticket_code)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_e_tickets_qr_data ON e_tickets (qr_data)`,

	// one transaction per provider request id
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_payment_transactions_request_id ON payment_transactions (request_id)`,

	// availability checks by (showtime, seat)
	`CREATE INDEX IF NOT EXISTS idx_order_tickets_showtime_seat ON order_tickets (showtime_id, seat_id)`,

	// expiry sweep
	`CREATE INDEX IF NOT EXISTS idx_orders_pending_expire ON orders (expire_at) WHERE status = 'PENDING'`,
}

// MigrateConstraints adds critical database constraints for concurrency control
func MigrateConstraints(db *gorm.DB) error {
	for _, stmt := range constraintStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply constraint %q: %w", stmt, err)
		}
	}
	return nil
}
