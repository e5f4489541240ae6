package orders

import (
	"context"
	"errors"
	"time"

	"cineticket/internal/shared/apperr"
	"cineticket/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// GetByIDForUpdate row-locks the order; only meaningful inside a transaction
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrderTicket(ctx context.Context, id uuid.UUID) (*OrderTicket, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, int64, error)

	// FindTakenSeats returns the seats of showtimeID already protected by a
	// confirmed order or a pending order whose window is still open.
	FindTakenSeats(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID, now time.Time, excludeOrderID uuid.UUID) ([]uuid.UUID, error)
	ListBookedSeats(ctx context.Context, showtimeID uuid.UUID, now time.Time) ([]uuid.UUID, error)

	// Transition moves the order from one status to another and reports
	// whether this call won the update.
	Transition(ctx context.Context, id uuid.UUID, from, to Status, at time.Time, reason string) (bool, error)
	CancelIfExpired(ctx context.Context, id uuid.UUID, now time.Time, reason string) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]Order, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, order *Order) error {
	return database.Conn(ctx, r.db).Create(order).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	err := database.Conn(ctx, r.db).
		Preload("Tickets", func(db *gorm.DB) *gorm.DB { return db.Order("seat_code ASC") }).
		Preload("Products").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, id)
	}
	return &order, nil
}

func (r *repository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error) {
	conn := database.Conn(ctx, r.db)

	var order Order
	err := conn.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, id)
	}

	// Line items never change after creation, no lock needed
	if err := conn.Where("order_id = ?", id).Order("seat_code ASC").Find(&order.Tickets).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetOrderTicket(ctx context.Context, id uuid.UUID) (*OrderTicket, error) {
	var ticket OrderTicket
	err := database.Conn(ctx, r.db).Preload("Order").First(&ticket, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order ticket not found").With("order_ticket_id", id.String())
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Order, int64, error) {
	conn := database.Conn(ctx, r.db)

	var total int64
	if err := conn.Model(&Order{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []Order
	err := conn.Where("user_id = ?", userID).
		Preload("Tickets").
		Preload("Products").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	return orders, total, err
}

func (r *repository) FindTakenSeats(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID, now time.Time, excludeOrderID uuid.UUID) ([]uuid.UUID, error) {
	if len(seatIDs) == 0 {
		return nil, nil
	}
	var taken []uuid.UUID
	err := r.liveTickets(ctx, showtimeID, now).
		Where("order_tickets.seat_id IN ?", seatIDs).
		Where("orders.id <> ?", excludeOrderID).
		Pluck("order_tickets.seat_id", &taken).Error
	return taken, err
}

func (r *repository) ListBookedSeats(ctx context.Context, showtimeID uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	var booked []uuid.UUID
	err := r.liveTickets(ctx, showtimeID, now).Pluck("order_tickets.seat_id", &booked).Error
	return booked, err
}

// liveTickets selects the tickets of showtimeID whose order still owns the seat
func (r *repository) liveTickets(ctx context.Context, showtimeID uuid.UUID, now time.Time) *gorm.DB {
	return database.Conn(ctx, r.db).
		Model(&OrderTicket{}).
		Joins("JOIN orders ON orders.id = order_tickets.order_id").
		Where("order_tickets.showtime_id = ?", showtimeID).
		Where("(orders.status = ? OR (orders.status = ? AND orders.expire_at > ?))", StatusConfirmed, StatusPending, now)
}

func (r *repository) Transition(ctx context.Context, id uuid.UUID, from, to Status, at time.Time, reason string) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case StatusConfirmed:
		updates["expire_at"] = nil
		updates["confirmed_at"] = at
	case StatusCancelled:
		updates["cancelled_at"] = at
		updates["cancel_reason"] = reason
	}

	result := database.Conn(ctx, r.db).
		Model(&Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) CancelIfExpired(ctx context.Context, id uuid.UUID, now time.Time, reason string) (bool, error) {
	result := database.Conn(ctx, r.db).
		Model(&Order{}).
		Where("id = ? AND status = ? AND expire_at <= ?", id, StatusPending, now).
		Updates(map[string]interface{}{
			"status":        StatusCancelled,
			"cancelled_at":  now,
			"cancel_reason": reason,
			"updated_at":    now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]Order, error) {
	var orders []Order
	err := database.Conn(ctx, r.db).
		Where("status = ? AND expire_at <= ?", StatusPending, now).
		Preload("Tickets").
		Order("expire_at ASC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}

func notFoundOr(err error, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("order not found").With("order_id", id.String())
	}
	return err
}
