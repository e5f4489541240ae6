package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cineticket/internal/notifications"
	"cineticket/internal/orders"
	"cineticket/internal/payments/momo"
	"cineticket/internal/shared/apperr"
	"cineticket/internal/shared/database"
	"cineticket/internal/tickets"
	"cineticket/pkg/logger"

	"github.com/google/uuid"
)

// Gateway is the payment provider
type Gateway interface {
	CreatePayment(ctx context.Context, input momo.PaymentInput) (*momo.CreatePaymentResponse, error)
	QueryStatus(ctx context.Context, orderRef, requestID string) (*momo.QueryStatusResponse, error)
	VerifyCallback(cb *momo.Callback) bool
}

// OrderService is the part of the order lifecycle payments drive
type OrderService interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*orders.Order, error)
	LockOrder(ctx context.Context, orderID uuid.UUID) (*orders.Order, error)
	ConfirmOrder(ctx context.Context, orderID uuid.UUID) error
}

// reasonAlreadyPaid marks a captured payment for an order another
// transaction already settled; it needs a refund.
const reasonAlreadyPaid = "order already paid"

// TicketIssuer issues e-tickets once an order is paid
type TicketIssuer interface {
	GenerateForOrder(ctx context.Context, orderID uuid.UUID) ([]tickets.ETicket, error)
}

type Service struct {
	repo     Repository
	gateway  Gateway
	orders   OrderService
	tickets  TicketIssuer
	tx       database.Transactor
	notifier notifications.Notifier
	log      *logger.Logger
	now      func() time.Time
}

func NewService(
	repo Repository,
	gateway Gateway,
	orderService OrderService,
	ticketIssuer TicketIssuer,
	tx database.Transactor,
	notifier notifications.Notifier,
) *Service {
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}
	return &Service{
		repo:     repo,
		gateway:  gateway,
		orders:   orderService,
		tickets:  ticketIssuer,
		tx:       tx,
		notifier: notifier,
		log:      logger.GetDefault(),
		now:      time.Now,
	}
}

// ReconcileResult reports what a provider result did
type ReconcileResult struct {
	Outcome    Outcome   `json:"outcome"`
	OrderID    uuid.UUID `json:"order_id"`
	RequestID  string    `json:"request_id"`
	ResultCode int64     `json:"result_code"`
	Message    string    `json:"message,omitempty"`
}

// providerResult is a payment result from a callback or a status query
type providerResult struct {
	RequestID  string
	OrderID    uuid.UUID
	TransID    string
	ResultCode int64
	Message    string
	Amount     int64
	Raw        string
}

// CreatePaymentAttempt registers a payment with the provider. An amount of 0
// means the order total. Provider failures are recorded as FAILED attempts.
func (s *Service) CreatePaymentAttempt(ctx context.Context, orderID uuid.UUID, amount int64) (*PaymentTransaction, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if order.Status != orders.StatusPending {
		return nil, apperr.InvalidState("order is not awaiting payment").
			With("order_id", orderID.String()).
			With("status", string(order.Status))
	}
	if order.IsExpired(now) {
		return nil, apperr.InvalidState("order payment window has expired").
			With("order_id", orderID.String()).
			With("expire_at", order.ExpireAt)
	}
	if order.PaymentMethod != orders.PaymentMethodMomo {
		return nil, apperr.Validation("order is paid with %s", order.PaymentMethod)
	}
	if amount == 0 {
		amount = order.TotalAmount
	}
	if amount != order.TotalAmount {
		return nil, apperr.Validation("amount does not match order total").
			With("amount", amount).
			With("total_amount", order.TotalAmount)
	}
	if amount <= 0 {
		return nil, apperr.Validation("order has nothing to pay")
	}

	txn := &PaymentTransaction{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Provider:  ProviderMomo,
		RequestID: uuid.NewString(),
		OrderRef:  momo.OrderRef(order.ID.String(), now.UnixMilli()),
		Amount:    amount,
		Status:    TransactionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	resp, err := s.gateway.CreatePayment(ctx, momo.PaymentInput{
		RequestID: txn.RequestID,
		OrderRef:  txn.OrderRef,
		Amount:    amount,
		OrderInfo: fmt.Sprintf("CineTicket order %s", order.ID),
	})
	if err != nil {
		txn.markFailed(err.Error(), -1, "", now)
		if saveErr := s.repo.Create(ctx, txn); saveErr != nil {
			s.log.ErrorWithContext(ctx, "failed to record failed payment attempt", saveErr, map[string]interface{}{
				"request_id": txn.RequestID,
			})
		}
		return nil, apperr.ProviderError("payment provider unavailable", err).With("request_id", txn.RequestID)
	}

	txn.RawResponse = resp.Raw
	if resp.ResultCode != momo.ResultSuccess {
		txn.markFailed(resp.Message, resp.ResultCode, resp.Raw, now)
		if err := s.repo.Create(ctx, txn); err != nil {
			return nil, err
		}
		return nil, apperr.ProviderError(resp.Message, nil).
			With("request_id", txn.RequestID).
			With("result_code", resp.ResultCode)
	}

	txn.PayURL = resp.PayURL
	if err := s.repo.Create(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// VerifyProviderSignature checks a callback signature
func (s *Service) VerifyProviderSignature(cb *momo.Callback) bool {
	return s.gateway.VerifyCallback(cb)
}

// ReconcileCallback applies a signed provider callback exactly once. Both the
// browser redirect and the IPN land here; whichever arrives first wins and
// the other sees ALREADY_PROCESSED.
func (s *Service) ReconcileCallback(ctx context.Context, cb *momo.Callback, source string) (*ReconcileResult, error) {
	if !s.gateway.VerifyCallback(cb) {
		s.log.LogSignatureRejected(ctx, cb.RequestID, cb.OrderID, source)
		return nil, apperr.InvalidSignature("invalid callback signature").With("request_id", cb.RequestID)
	}
	if err := cb.Validate(); err != nil {
		return nil, apperr.Validation("malformed callback: %v", err)
	}

	ref, err := momo.ParseOrderRef(cb.OrderID)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}
	orderID, err := uuid.Parse(ref)
	if err != nil {
		return nil, apperr.Validation("order ref does not contain an order id").With("order_ref", cb.OrderID)
	}

	return s.apply(ctx, providerResult{
		RequestID:  cb.RequestID,
		OrderID:    orderID,
		TransID:    cb.TransID.String(),
		ResultCode: cb.Code(),
		Message:    cb.Message,
		Amount:     cb.AmountValue(),
		Raw:        rawCallback(cb),
	})
}

// SyncPaymentStatus asks the provider for the result of a payment whose
// callback never arrived and applies it like a callback.
func (s *Service) SyncPaymentStatus(ctx context.Context, requestID string) (*ReconcileResult, error) {
	txn, err := s.repo.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if txn.Status.IsTerminal() {
		return &ReconcileResult{Outcome: OutcomeAlreadyProcessed, OrderID: txn.OrderID, RequestID: requestID}, nil
	}
	if txn.Provider != ProviderMomo {
		return nil, apperr.Validation("%s payments cannot be synced", txn.Provider)
	}

	resp, err := s.gateway.QueryStatus(ctx, txn.OrderRef, txn.RequestID)
	if err != nil {
		return nil, apperr.ProviderError("payment status query failed", err).With("request_id", requestID)
	}

	var transID string
	if resp.TransID != 0 {
		transID = strconv.FormatInt(resp.TransID, 10)
	}
	return s.apply(ctx, providerResult{
		RequestID:  txn.RequestID,
		OrderID:    txn.OrderID,
		TransID:    transID,
		ResultCode: resp.ResultCode,
		Message:    resp.Message,
		Amount:     resp.Amount,
		Raw:        resp.Raw,
	})
}

// apply is the idempotency gate. The transaction row lock serialises
// duplicate deliveries; only the first to see a PENDING row changes state.
func (s *Service) apply(ctx context.Context, r providerResult) (*ReconcileResult, error) {
	result := &ReconcileResult{
		RequestID:  r.RequestID,
		OrderID:    r.OrderID,
		ResultCode: r.ResultCode,
		Message:    r.Message,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		txn, err := s.repo.GetByRequestIDForUpdate(ctx, r.RequestID)
		if apperr.IsKind(err, apperr.KindNotFound) {
			s.log.WarnContext(ctx, "payment result for unknown request id",
				slog.String("request_id", r.RequestID),
				slog.String("order_id", r.OrderID.String()),
			)
			result.Outcome = OutcomeUnknown
			return nil
		}
		if err != nil {
			return err
		}

		if txn.OrderID != r.OrderID {
			s.log.WarnContext(ctx, "payment result order does not match transaction",
				slog.String("request_id", r.RequestID),
				slog.String("order_id", r.OrderID.String()),
				slog.String("transaction_order_id", txn.OrderID.String()),
			)
			result.Outcome = OutcomeUnknown
			return nil
		}
		if txn.Status.IsTerminal() {
			result.Outcome = OutcomeAlreadyProcessed
			return nil
		}
		if momo.IsPending(r.ResultCode) {
			result.Outcome = OutcomePending
			return nil
		}

		now := s.now()
		switch {
		case !momo.IsSuccess(r.ResultCode):
			txn.markFailed(r.Message, r.ResultCode, r.Raw, now)
			result.Outcome = OutcomeFailed

		case r.Amount != 0 && r.Amount != txn.Amount:
			txn.markFailed("amount mismatch", r.ResultCode, r.Raw, now)
			result.Outcome = OutcomeRejected

		default:
			outcome, err := s.settle(ctx, txn, r, now)
			if err != nil {
				return err
			}
			result.Outcome = outcome
		}
		return s.repo.Update(ctx, txn)
	})
	if err != nil {
		return nil, err
	}

	s.log.LogPaymentReconciled(ctx, r.RequestID, r.OrderID.String(), string(result.Outcome), r.ResultCode)
	s.afterReconcile(ctx, result)
	return result, nil
}

// settle confirms the order of a successful payment. Lock order: payment
// row, then order row, then the order's showtimes inside ConfirmOrder. Only
// the first successful transaction of an order completes; later ones are
// rejected so they can be refunded.
func (s *Service) settle(ctx context.Context, txn *PaymentTransaction, r providerResult, now time.Time) (Outcome, error) {
	order, err := s.orders.LockOrder(ctx, txn.OrderID)
	if err != nil {
		return "", err
	}
	if order.Status == orders.StatusConfirmed {
		s.log.WarnContext(ctx, "payment captured for an order that is already paid, refund required",
			slog.String("request_id", r.RequestID),
			slog.String("order_id", txn.OrderID.String()),
			slog.String("trans_id", r.TransID),
		)
		txn.markFailed(reasonAlreadyPaid, r.ResultCode, r.Raw, now)
		return OutcomeRejected, nil
	}

	err = s.orders.ConfirmOrder(ctx, txn.OrderID)
	switch {
	case apperr.IsKind(err, apperr.KindInvalidState):
		// paid too late: order cancelled or its seat re-sold
		txn.markFailed("order not pending", r.ResultCode, r.Raw, now)
		return OutcomeRejected, nil
	case err != nil:
		return "", err
	}
	txn.markCompleted(r.TransID, r.ResultCode, r.Raw, now)
	return OutcomeConfirmed, nil
}

// afterReconcile runs the best-effort side effects of a committed result
func (s *Service) afterReconcile(ctx context.Context, result *ReconcileResult) {
	switch result.Outcome {
	case OutcomeConfirmed:
		s.afterConfirmed(ctx, result.OrderID, result.RequestID)
	case OutcomeFailed, OutcomeRejected:
		event := notifications.OrderEvent{OrderID: result.OrderID, RequestID: result.RequestID, Reason: result.Message}
		if order, err := s.orders.GetOrder(ctx, result.OrderID); err == nil {
			event = orderEvent(order, result.RequestID)
			event.Reason = result.Message
		}
		if err := s.notifier.NotifyPaymentFailed(ctx, event); err != nil {
			s.log.WarnContext(ctx, "payment failed notification not sent", slog.Any("error", err))
		}
	}
}

func (s *Service) afterConfirmed(ctx context.Context, orderID uuid.UUID, requestID string) {
	var codes []string
	issued, err := s.tickets.GenerateForOrder(ctx, orderID)
	if err != nil {
		// the missing-ticket sweep retries
		s.log.ErrorWithContext(ctx, "ticket issuance failed after payment", err, map[string]interface{}{
			"order_id": orderID.String(),
		})
	}
	for _, t := range issued {
		codes = append(codes, t.TicketCode)
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		s.log.WarnContext(ctx, "order lookup for confirmation notice failed", slog.Any("error", err))
		return
	}
	event := orderEvent(order, requestID)
	event.TicketCodes = codes
	if err := s.notifier.NotifyOrderConfirmed(ctx, event); err != nil {
		s.log.WarnContext(ctx, "order confirmed notification not sent", slog.Any("error", err))
	}
}

// ConfirmCashPayment records a counter payment and confirms the order
func (s *Service) ConfirmCashPayment(ctx context.Context, orderID uuid.UUID) (*PaymentTransaction, error) {
	var (
		txn      *PaymentTransaction
		rejected error
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if order.PaymentMethod != orders.PaymentMethodCash {
			return apperr.Validation("order is paid with %s", order.PaymentMethod)
		}
		if order.Status == orders.StatusConfirmed {
			return apperr.Conflict(reasonAlreadyPaid).With("order_id", orderID.String())
		}
		if err := s.orders.ConfirmOrder(ctx, orderID); err != nil {
			if apperr.IsKind(err, apperr.KindInvalidState) {
				// keep whatever the order lifecycle decided, e.g. a re-sold cancellation
				rejected = err
				return nil
			}
			return err
		}

		now := s.now()
		txn = &PaymentTransaction{
			ID:        uuid.New(),
			OrderID:   orderID,
			Provider:  ProviderCash,
			RequestID: "CASH-" + orderID.String(),
			OrderRef:  orderID.String(),
			Amount:    order.TotalAmount,
			CreatedAt: now,
		}
		txn.markCompleted("", 0, "", now)
		return s.repo.Create(ctx, txn)
	})
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		return nil, rejected
	}

	s.log.LogPaymentReconciled(ctx, txn.RequestID, orderID.String(), string(OutcomeConfirmed), 0)
	s.afterConfirmed(ctx, orderID, txn.RequestID)
	return txn, nil
}

// GetPaymentsForOrder lists the payment attempts of an order, newest first
func (s *Service) GetPaymentsForOrder(ctx context.Context, orderID uuid.UUID) ([]PaymentTransaction, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

func orderEvent(order *orders.Order, requestID string) notifications.OrderEvent {
	return notifications.OrderEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		TotalAmount:   order.TotalAmount,
		RequestID:     requestID,
	}
}

func rawCallback(cb *momo.Callback) string {
	data, err := json.Marshal(cb)
	if err != nil {
		return ""
	}
	return string(data)
}
