package payments

// CreatePaymentRequest starts a provider payment. Amount defaults to the
// order total and must equal it when given.
type CreatePaymentRequest struct {
	Amount int64 `json:"amount" binding:"omitempty,gt=0"`
}
