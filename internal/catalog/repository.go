package catalog

import (
	"context"
	"errors"
	"fmt"

	"cineticket/internal/shared/apperr"
	"cineticket/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the read-only catalog surface used by booking and check-in.
// Catalog CRUD is owned by another service.
type Repository interface {
	GetShowtime(ctx context.Context, id uuid.UUID) (*Showtime, error)
	// LockShowtime loads the showtime with a row lock; only meaningful inside
	// a transaction.
	LockShowtime(ctx context.Context, id uuid.UUID) (*Showtime, error)
	GetShowtimeDetails(ctx context.Context, id uuid.UUID) (*Showtime, error)
	GetSeat(ctx context.Context, id uuid.UUID) (*Seat, error)
	GetSeats(ctx context.Context, ids []uuid.UUID) ([]Seat, error)
	ListSeatsByScreen(ctx context.Context, screenID uuid.UUID) ([]Seat, error)
	GetSeatType(ctx context.Context, code string) (*SeatType, error)
	ListSeatTypes(ctx context.Context) ([]SeatType, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetShowtime(ctx context.Context, id uuid.UUID) (*Showtime, error) {
	var showtime Showtime
	if err := database.Conn(ctx, r.db).First(&showtime, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "showtime", id)
	}
	return &showtime, nil
}

func (r *repository) LockShowtime(ctx context.Context, id uuid.UUID) (*Showtime, error) {
	var showtime Showtime
	err := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&showtime, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "showtime", id)
	}
	return &showtime, nil
}

func (r *repository) GetShowtimeDetails(ctx context.Context, id uuid.UUID) (*Showtime, error) {
	var showtime Showtime
	err := database.Conn(ctx, r.db).
		Preload("Movie").
		Preload("Screen.Cinema").
		First(&showtime, "id = ?", id).Error
	if err != nil {
		return nil, notFoundOr(err, "showtime", id)
	}
	return &showtime, nil
}

func (r *repository) GetSeat(ctx context.Context, id uuid.UUID) (*Seat, error) {
	var seat Seat
	if err := database.Conn(ctx, r.db).First(&seat, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "seat", id)
	}
	return &seat, nil
}

func (r *repository) GetSeats(ctx context.Context, ids []uuid.UUID) ([]Seat, error) {
	var seats []Seat
	if len(ids) == 0 {
		return seats, nil
	}
	if err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&seats).Error; err != nil {
		return nil, fmt.Errorf("failed to load seats: %w", err)
	}
	return seats, nil
}

func (r *repository) ListSeatsByScreen(ctx context.Context, screenID uuid.UUID) ([]Seat, error) {
	var seats []Seat
	err := database.Conn(ctx, r.db).
		Where("screen_id = ?", screenID).
		Order(`"row" ASC, number ASC`).
		Find(&seats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list seats for screen %s: %w", screenID, err)
	}
	return seats, nil
}

func (r *repository) GetSeatType(ctx context.Context, code string) (*SeatType, error) {
	var seatType SeatType
	if err := database.Conn(ctx, r.db).First(&seatType, "code = ?", code).Error; err != nil {
		return nil, notFoundOr(err, "seat type", code)
	}
	return &seatType, nil
}

func (r *repository) ListSeatTypes(ctx context.Context) ([]SeatType, error) {
	var seatTypes []SeatType
	if err := database.Conn(ctx, r.db).Find(&seatTypes).Error; err != nil {
		return nil, fmt.Errorf("failed to list seat types: %w", err)
	}
	return seatTypes, nil
}

func (r *repository) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	var product Product
	if err := database.Conn(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "product", id)
	}
	return &product, nil
}

func notFoundOr(err error, entity string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s not found", entity).With(entityKey(entity), fmt.Sprint(id))
	}
	return fmt.Errorf("failed to load %s %v: %w", entity, id, err)
}

func entityKey(entity string) string {
	switch entity {
	case "seat type":
		return "seat_type_code"
	default:
		return entity + "_id"
	}
}
