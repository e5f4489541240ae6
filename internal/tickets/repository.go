package tickets

import (
	"context"
	"errors"
	"time"

	"cineticket/internal/orders"
	"cineticket/internal/shared/apperr"
	"cineticket/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrDuplicateTicket is returned when an insert hits one of the ticket unique
// indexes (order ticket, code or QR data).
var ErrDuplicateTicket = errors.New("duplicate ticket")

type Repository interface {
	Create(ctx context.Context, ticket *ETicket) error
	GetByOrderTicketID(ctx context.Context, orderTicketID uuid.UUID) (*ETicket, error)
	GetByQRData(ctx context.Context, qrData string) (*ETicket, error)
	GetByCode(ctx context.Context, code string) (*ETicket, error)
	// MarkUsed flips is_used only if it is still false and reports whether
	// this call did it.
	MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]ETicket, error)
	CountByOrder(ctx context.Context, orderID uuid.UUID) (total int64, used int64, err error)
	ListConfirmedWithoutTicket(ctx context.Context, limit int) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, ticket *ETicket) error {
	err := database.Conn(ctx, r.db).Create(ticket).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateTicket
	}
	return err
}

func (r *repository) GetByOrderTicketID(ctx context.Context, orderTicketID uuid.UUID) (*ETicket, error) {
	return r.first(ctx, "order_ticket_id = ?", orderTicketID)
}

func (r *repository) GetByQRData(ctx context.Context, qrData string) (*ETicket, error) {
	return r.first(ctx, "qr_data = ?", qrData)
}

func (r *repository) GetByCode(ctx context.Context, code string) (*ETicket, error) {
	return r.first(ctx, "ticket_code = ?", code)
}

func (r *repository) first(ctx context.Context, query string, arg interface{}) (*ETicket, error) {
	var ticket ETicket
	if err := database.Conn(ctx, r.db).First(&ticket, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("ticket not found")
		}
		return nil, err
	}
	return &ticket, nil
}

func (r *repository) MarkUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error) {
	result := database.Conn(ctx, r.db).
		Model(&ETicket{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]interface{}{
			"is_used":    true,
			"used_at":    usedAt,
			"updated_at": usedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]ETicket, error) {
	var tickets []ETicket
	err := database.Conn(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("issued_at ASC").
		Find(&tickets).Error
	return tickets, err
}

func (r *repository) CountByOrder(ctx context.Context, orderID uuid.UUID) (int64, int64, error) {
	var counts struct {
		Total int64
		Used  int64
	}
	err := database.Conn(ctx, r.db).
		Model(&ETicket{}).
		Select("COUNT(*) AS total, COUNT(*) FILTER (WHERE is_used) AS used").
		Where("order_id = ?", orderID).
		Scan(&counts).Error
	return counts.Total, counts.Used, err
}

func (r *repository) ListConfirmedWithoutTicket(ctx context.Context, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := database.Conn(ctx, r.db).
		Table("order_tickets").
		Joins("JOIN orders ON orders.id = order_tickets.order_id").
		Joins("LEFT JOIN e_tickets ON e_tickets.order_ticket_id = order_tickets.id").
		Where("orders.status = ? AND e_tickets.id IS NULL", orders.StatusConfirmed).
		Order("order_tickets.created_at ASC").
		Limit(limit).
		Pluck("order_tickets.id", &ids).Error
	return ids, err
}
