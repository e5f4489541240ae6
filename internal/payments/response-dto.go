package payments

import (
	"time"

	"github.com/google/uuid"
)

// PaymentAttemptResponse is returned when a payment attempt is created
type PaymentAttemptResponse struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	OrderID       uuid.UUID `json:"order_id"`
	RequestID     string    `json:"request_id"`
	OrderRef      string    `json:"order_ref"`
	Amount        int64     `json:"amount"`
	PayURL        string    `json:"pay_url"`
	CreatedAt     time.Time `json:"created_at"`
}

func newPaymentAttemptResponse(txn *PaymentTransaction) PaymentAttemptResponse {
	return PaymentAttemptResponse{
		TransactionID: txn.ID,
		OrderID:       txn.OrderID,
		RequestID:     txn.RequestID,
		OrderRef:      txn.OrderRef,
		Amount:        txn.Amount,
		PayURL:        txn.PayURL,
		CreatedAt:     txn.CreatedAt,
	}
}
