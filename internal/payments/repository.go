package payments

import (
	"context"
	"errors"

	"cineticket/internal/shared/apperr"
	"cineticket/internal/shared/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	Create(ctx context.Context, txn *PaymentTransaction) error
	Update(ctx context.Context, txn *PaymentTransaction) error
	GetByRequestID(ctx context.Context, requestID string) (*PaymentTransaction, error)
	// GetByRequestIDForUpdate row-locks the transaction; this lock is the
	// idempotency gate for concurrent callbacks.
	GetByRequestIDForUpdate(ctx context.Context, requestID string) (*PaymentTransaction, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]PaymentTransaction, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, txn *PaymentTransaction) error {
	err := database.Conn(ctx, r.db).Create(txn).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Conflict("payment request already recorded").With("request_id", txn.RequestID)
	}
	return err
}

func (r *repository) Update(ctx context.Context, txn *PaymentTransaction) error {
	return database.Conn(ctx, r.db).Save(txn).Error
}

func (r *repository) GetByRequestID(ctx context.Context, requestID string) (*PaymentTransaction, error) {
	var txn PaymentTransaction
	if err := database.Conn(ctx, r.db).First(&txn, "request_id = ?", requestID).Error; err != nil {
		return nil, notFoundOr(err, requestID)
	}
	return &txn, nil
}

func (r *repository) GetByRequestIDForUpdate(ctx context.Context, requestID string) (*PaymentTransaction, error) {
	var txn PaymentTransaction
	err := database.Conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&txn, "request_id = ?", requestID).Error
	if err != nil {
		return nil, notFoundOr(err, requestID)
	}
	return &txn, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]PaymentTransaction, error) {
	var txns []PaymentTransaction
	err := database.Conn(ctx, r.db).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&txns).Error
	return txns, err
}

func notFoundOr(err error, requestID string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("payment transaction not found").With("request_id", requestID)
	}
	return err
}
