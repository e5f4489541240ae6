package payments

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// PaymentTransaction is one payment attempt against an order. An order may
// have several attempts; at most one ends COMPLETED.
type PaymentTransaction struct {
	ID              uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID         uuid.UUID         `gorm:"type:uuid;index;not null" json:"order_id"`
	Provider        Provider          `gorm:"type:varchar(20);not null" json:"provider"`
	RequestID       string            `gorm:"type:varchar(64);not null" json:"request_id"`
	OrderRef        string            `gorm:"type:varchar(100);not null" json:"order_ref"`
	ProviderTransID *string           `gorm:"type:varchar(64)" json:"provider_trans_id,omitempty"`
	Amount          int64             `gorm:"not null" json:"amount"`
	Status          TransactionStatus `gorm:"type:varchar(20);not null;index;check:status IN ('PENDING', 'COMPLETED', 'FAILED')" json:"status"`
	ResultCode      *int64            `json:"result_code,omitempty"`
	PayURL          string            `gorm:"type:text" json:"pay_url,omitempty"`
	RawResponse     string            `gorm:"type:text" json:"-"`
	FailureReason   string            `gorm:"type:varchar(255)" json:"failure_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
}

// TableName sets the table name for PaymentTransaction
func (PaymentTransaction) TableName() string {
	return "payment_transactions"
}

// Models lists the payment tables for migration
func Models() []interface{} {
	return []interface{}{&PaymentTransaction{}}
}

func (t *PaymentTransaction) markCompleted(transID string, code int64, raw string, now time.Time) {
	t.Status = TransactionCompleted
	if transID != "" {
		t.ProviderTransID = &transID
	}
	t.ResultCode = &code
	if raw != "" {
		t.RawResponse = raw
	}
	t.FailureReason = ""
	t.ProcessedAt = &now
	t.UpdatedAt = now
}

func (t *PaymentTransaction) markFailed(reason string, code int64, raw string, now time.Time) {
	t.Status = TransactionFailed
	t.ResultCode = &code
	if raw != "" {
		t.RawResponse = raw
	}
	t.FailureReason = truncateRunes(reason, maxFailureReason)
	t.ProcessedAt = &now
	t.UpdatedAt = now
}

const maxFailureReason = 255

// truncateRunes cuts s to at most n characters without splitting a UTF-8
// sequence; provider messages are often Vietnamese.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
