package orders

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo encodes PENDING -> CONFIRMED | CANCELLED. A confirmed order
// is refunded out of band, never cancelled.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusConfirmed || next == StatusCancelled
	case StatusConfirmed, StatusCancelled:
		return false
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodMomo PaymentMethod = "MOMO"
	PaymentMethodCash PaymentMethod = "CASH"
)

// IsValid checks if the payment method is supported
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodMomo, PaymentMethodCash:
		return true
	}
	return false
}
