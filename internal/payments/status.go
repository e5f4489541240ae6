package payments

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionFailed    TransactionStatus = "FAILED"
)

// IsTerminal reports statuses the reconciler never changes again
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionCompleted || s == TransactionFailed
}

type Provider string

const (
	ProviderMomo Provider = "MOMO"
	ProviderCash Provider = "CASH"
)

// Outcome is what a reconciliation did with a provider result
type Outcome string

const (
	OutcomeConfirmed        Outcome = "CONFIRMED"
	OutcomeFailed           Outcome = "FAILED"
	OutcomeRejected         Outcome = "REJECTED"
	OutcomePending          Outcome = "PENDING"
	OutcomeAlreadyProcessed Outcome = "ALREADY_PROCESSED"
	OutcomeUnknown          Outcome = "UNKNOWN"
)
