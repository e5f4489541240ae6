package payments

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"cineticket/internal/orders"
	"cineticket/internal/payments/momo"
	"cineticket/internal/shared/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentFixture struct {
	service  *Service
	repo     *fakePaymentRepo
	gateway  *fakeGateway
	orders   *fakeOrderService
	issuer   *fakeIssuer
	notifier *recordingNotifier
	order    *orders.Order
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	expireAt := fixtureNow.Add(15 * time.Minute)
	order := &orders.Order{
		ID:            uuid.New(),
		CustomerName:  "Nguyen Van A",
		CustomerEmail: "a@example.com",
		TotalAmount:   180000,
		Status:        orders.StatusPending,
		PaymentMethod: orders.PaymentMethodMomo,
		ExpireAt:      &expireAt,
	}

	f := &paymentFixture{
		repo: newFakePaymentRepo(),
		gateway: &fakeGateway{Client: momo.NewClient(momo.Config{
			PartnerCode: "MOMOBKUN20180529",
			AccessKey:   "klm05TvNBzhg7h7j",
			SecretKey:   "at67qH6mk8w5Y1nAyMoYKMWACiEi2bsa",
		})},
		orders:   newFakeOrderService(),
		issuer:   &fakeIssuer{},
		notifier: &recordingNotifier{},
		order:    order,
	}
	f.orders.orders[order.ID] = order
	f.service = NewService(f.repo, f.gateway, f.orders, f.issuer, &fakeTx{}, f.notifier)
	f.service.now = func() time.Time { return fixtureNow }
	return f
}

// attempt creates a pending payment attempt for the fixture order
func (f *paymentFixture) attempt(t *testing.T) *PaymentTransaction {
	t.Helper()
	txn, err := f.service.CreatePaymentAttempt(context.Background(), f.order.ID, 0)
	require.NoError(t, err)
	return txn
}

// callback builds a callback for txn signed with the partner secret
func (f *paymentFixture) callback(txn *PaymentTransaction, resultCode, amount int64) *momo.Callback {
	cb := &momo.Callback{
		PartnerCode:  "MOMOBKUN20180529",
		OrderID:      txn.OrderRef,
		RequestID:    txn.RequestID,
		Amount:       json.Number(strconv.FormatInt(amount, 10)),
		OrderInfo:    "CineTicket order " + txn.OrderID.String(),
		OrderType:    "momo_wallet",
		TransID:      json.Number("4088878653"),
		ResultCode:   json.Number(strconv.FormatInt(resultCode, 10)),
		Message:      "Successful.",
		PayType:      "qr",
		ResponseTime: json.Number("1778436100000"),
	}
	cb.Signature = f.gateway.Sign(cb.RawSignature("klm05TvNBzhg7h7j"))
	return cb
}

func TestCreatePaymentAttempt(t *testing.T) {
	f := newPaymentFixture(t)

	txn := f.attempt(t)

	assert.Equal(t, TransactionPending, txn.Status)
	assert.Equal(t, ProviderMomo, txn.Provider)
	assert.Equal(t, int64(180000), txn.Amount)
	assert.True(t, strings.HasPrefix(txn.OrderRef, f.order.ID.String()+"_"))
	assert.Contains(t, txn.PayURL, txn.RequestID)

	require.Len(t, f.gateway.created, 1)
	assert.Equal(t, txn.OrderRef, f.gateway.created[0].OrderRef)
	assert.Equal(t, int64(180000), f.gateway.created[0].Amount)

	stored := f.repo.only(t)
	assert.Equal(t, txn.RequestID, stored.RequestID)
}

func TestCreatePaymentAttemptRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(o *orders.Order)
		amount int64
		kind   apperr.Kind
	}{
		{"amount mismatch", func(o *orders.Order) {}, 100000, apperr.KindValidation},
		{"cash order", func(o *orders.Order) { o.PaymentMethod = orders.PaymentMethodCash }, 0, apperr.KindValidation},
		{"confirmed order", func(o *orders.Order) { o.Status = orders.StatusConfirmed }, 0, apperr.KindInvalidState},
		{"expired window", func(o *orders.Order) {
			past := fixtureNow.Add(-time.Minute)
			o.ExpireAt = &past
		}, 0, apperr.KindInvalidState},
		{"nothing to pay", func(o *orders.Order) { o.TotalAmount = 0 }, 0, apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPaymentFixture(t)
			tt.mutate(f.order)

			_, err := f.service.CreatePaymentAttempt(context.Background(), f.order.ID, tt.amount)

			assert.True(t, apperr.IsKind(err, tt.kind), "got %v", err)
			assert.Empty(t, f.gateway.created)
			assert.Empty(t, f.repo.txns)
		})
	}
}

func TestCreatePaymentAttemptProviderUnavailable(t *testing.T) {
	f := newPaymentFixture(t)
	f.gateway.createErr = errProviderDown

	_, err := f.service.CreatePaymentAttempt(context.Background(), f.order.ID, 0)

	assert.True(t, apperr.IsKind(err, apperr.KindProviderError))
	stored := f.repo.only(t)
	assert.Equal(t, TransactionFailed, stored.Status)
	assert.Contains(t, stored.FailureReason, "connection refused")
	assert.Equal(t, orders.StatusPending, f.orders.status(f.order.ID))
}

func TestCreatePaymentAttemptProviderDeclines(t *testing.T) {
	f := newPaymentFixture(t)
	f.gateway.createRes = &momo.CreatePaymentResponse{ResultCode: 22, Message: "Amount out of range"}

	_, err := f.service.CreatePaymentAttempt(context.Background(), f.order.ID, 0)

	require.True(t, apperr.IsKind(err, apperr.KindProviderError))
	appErr, _ := apperr.As(err)
	assert.Equal(t, int64(22), appErr.Details["result_code"])
	stored := f.repo.only(t)
	assert.Equal(t, TransactionFailed, stored.Status)
	require.NotNil(t, stored.ResultCode)
	assert.Equal(t, int64(22), *stored.ResultCode)
}

func TestReconcileSuccess(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.attempt(t)

	result, err := f.service.ReconcileCallback(context.Background(), f.callback(txn, 0, 180000), SourceIPN)

	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.Equal(t, f.order.ID, result.OrderID)
	assert.Equal(t, orders.StatusConfirmed, f.orders.status(f.order.ID))

	stored := f.repo.only(t)
	assert.Equal(t, TransactionCompleted, stored.Status)
	require.NotNil(t, stored.ProviderTransID)
	assert.Equal(t, "4088878653", *stored.ProviderTransID)
	assert.Contains(t, stored.RawResponse, `"requestId":"`+txn.RequestID+`"`)

	assert.Equal(t, []uuid.UUID{f.order.ID}, f.issuer.calls)
	require.Len(t, f.notifier.confirmed, 1)
	assert.Equal(t, []string{"K7Q2M9XA", "P3D8W1ZB"}, f.notifier.confirmed[0].TicketCodes)
	assert.Equal(t, "a@example.com", f.notifier.confirmed[0].CustomerEmail)
}

func TestReconcileAuthorizedCountsAsPaid(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.attempt(t)

	result, err := f.service.ReconcileCallback(context.Background(), f.callback(txn, momo.ResultAuthorized, 180000), SourceRedirect)

	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, result.Outcome)
}

func TestReconcileDuplicateDelivery(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.attempt(t)
	cb := f.callback(txn, 0, 180000)

	first, err := f.service.ReconcileCallback(context.Background(), cb, SourceRedirect)
	require.NoError(t, err)
	second, err := f.service.ReconcileCallback(context.Background(), cb, SourceIPN)
	require.NoError(t, err)

	assert.Equal(t, OutcomeConfirmed, first.Outcome)
	assert.Equal(t, OutcomeAlreadyProcessed, second.Outcome)
	assert.Equal(t, 1, f.orders.confirms)
	assert.Len(t, f.issuer.calls, 1)
	assert.Len(t, f.notifier.confirmed, 1)
}

func TestReconcileConcurrentRedirectAndIPN(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.attempt(t)
	cb := f.callback(txn, 0, 180000)

	const deliveries = 6
	outcomes := make([]Outcome, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			source := SourceIPN
			if i%2 == 0 {
				source = SourceRedirect
			}
			if result, err := f.service.ReconcileCallback(context.Background(), cb, source); err == nil {
				outcomes[i] = result.Outcome
			}
		}(i)
	}
	wg.Wait()

	confirmed := 0
	for _, o := range outcomes {
		if o == OutcomeConfirmed {
			confirmed++
		} else {
			assert.Equal(t, OutcomeAlreadyProcessed, o)
		}
	}
	assert.Equal(t, 1, confirmed)
	assert.Equal(t, 1, f.orders.confirms)
}

func TestReconcileRejectsBadSignature(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.attempt(t)
	cb := f.callback(txn, 0, 180000)
	cb.Amount = json.Number("1000")

	_, err := f.service.ReconcileCallback(context.Background(), cb, SourceIPN)

	assert.True(t, apperr.IsKind(err, apperr.KindInvalidSignature))
	assert.Equal(t, TransactionPending, f.repo.only(t).Status)
	assert.Equal(t, orders.StatusPending, f.orders.status(f.order.ID))
}

func TestReconcileMalformedOrderRef(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.attempt(t)
	txn.OrderRef = "not-an-order_1778436000000"

	_, err := f.service.ReconcileCallback(context.Background(), f.callback(txn, 0, 180000), SourceIPN)

	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestReconcileUnknownRequest(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.attempt(t)
	txn.RequestID = uuid.NewString()

	result, err := f.service.ReconcileCallback(context.Background(), f.callback(txn, 0, 180000), SourceIPN)

	require.NoError(t, err)
	assert.Equal(t, OutcomeUnknown, result.Outcome)
	assert.Equal(t, orders.StatusPending, f.orders.status(f.order.ID))
}

func TestReconcileFailureCode(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.attempt(t)
	cb := f.callback(txn, 1006, 180000)

	result, err := f.service.ReconcileCallback(context.Background(), cb, SourceIPN)

	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	stored := f.repo.only(t)
	assert.Equal(t, TransactionFailed, stored.Status)
	assert.Equal(t, orders.StatusPending, f.orders.status(f.order.ID), "the customer may retry")
	require.Len(t, f.notifier.failed, 1)
	assert.Equal(t, f.order.ID, f.notifier.failed[0].OrderID)
	assert.Empty(t, f.issuer.calls)
}

func TestReconcilePendingCodeChangesNothing(t *testing.T) {
	for _, code := range []int64{momo.ResultInitiated, momo.ResultProcessing, momo.ResultProviderHandling} {
		t.Run(strconv.FormatInt(code, 10), func(t *testing.T) {
			f := newPaymentFixture(t)
			txn := f.attempt(t)

			result, err := f.service.ReconcileCallback(context.Background(), f.callback(txn, code, 180000), SourceIPN)

			require.NoError(t, err)
			assert.Equal(t, OutcomePending, result.Outcome)
			assert.Equal(t, TransactionPending, f.repo.only(t).Status)
			assert.Equal(t, orders.StatusPending, f.orders.status(f.order.ID))

			// a later success still applies
			result, err = f.service.ReconcileCallback(context.Background(), f.callback(txn, 0, 180000), SourceIPN)
			require.NoError(t, err)
			assert.Equal(t, OutcomeConfirmed, result.Outcome)
		})
	}
}

func TestReconcileAmountMismatch(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.attempt(t)

	result, err := f.service.ReconcileCallback(context.Background(), f.callback(txn, 0, 1000), SourceIPN)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, result.Outcome)
	stored := f.repo.only(t)
	assert.Equal(t, TransactionFailed, stored.Status)
	assert.Equal(t, "amount mismatch", stored.FailureReason)
	assert.Equal(t, orders.StatusPending, f.orders.status(f.order.ID))
}

func TestReconcileLatePaymentAfterResale(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.attempt(t)
	f.orders.resold[f.order.ID] = true

	result, err := f.service.ReconcileCallback(context.Background(), f.callback(txn, 0, 180000), SourceIPN)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, result.Outcome)
	stored := f.repo.only(t)
	assert.Equal(t, TransactionFailed, stored.Status)
	assert.Equal(t, "order not pending", stored.FailureReason)
	assert.Equal(t, orders.StatusCancelled, f.orders.status(f.order.ID))
	assert.Empty(t, f.issuer.calls)
	assert.Len(t, f.notifier.failed, 1)
}

func TestReconcileConfirmsEvenWhenIssuanceFails(t *testing.T) {
	f := newPaymentFixture(t)
	f.issuer.err = errProviderDown
	txn := f.attempt(t)

	result, err := f.service.ReconcileCallback(context.Background(), f.callback(txn, 0, 180000), SourceIPN)

	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.Equal(t, TransactionCompleted, f.repo.only(t).Status)
	require.Len(t, f.notifier.confirmed, 1)
	assert.Empty(t, f.notifier.confirmed[0].TicketCodes)
}

func TestSyncPaymentStatus(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.attempt(t)
	f.gateway.queryRes = &momo.QueryStatusResponse{
		OrderID:    txn.OrderRef,
		RequestID:  txn.RequestID,
		Amount:     180000,
		TransID:    4088878653,
		ResultCode: 0,
		Message:    "Successful.",
		Raw:        `{"resultCode":0}`,
	}

	result, err := f.service.SyncPaymentStatus(context.Background(), txn.RequestID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.Equal(t, orders.StatusConfirmed, f.orders.status(f.order.ID))

	result, err = f.service.SyncPaymentStatus(context.Background(), txn.RequestID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyProcessed, result.Outcome)
}

func TestSyncPaymentStatusErrors(t *testing.T) {
	f := newPaymentFixture(t)
	txn := f.attempt(t)
	f.gateway.queryErr = errProviderDown

	_, err := f.service.SyncPaymentStatus(context.Background(), txn.RequestID)
	assert.True(t, apperr.IsKind(err, apperr.KindProviderError))
	assert.Equal(t, TransactionPending, f.repo.only(t).Status)

	_, err = f.service.SyncPaymentStatus(context.Background(), "missing")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestConfirmCashPayment(t *testing.T) {
	f := newPaymentFixture(t)
	f.order.PaymentMethod = orders.PaymentMethodCash

	txn, err := f.service.ConfirmCashPayment(context.Background(), f.order.ID)

	require.NoError(t, err)
	assert.Equal(t, ProviderCash, txn.Provider)
	assert.Equal(t, TransactionCompleted, txn.Status)
	assert.Equal(t, "CASH-"+f.order.ID.String(), txn.RequestID)
	assert.Equal(t, int64(180000), txn.Amount)
	assert.Equal(t, orders.StatusConfirmed, f.orders.status(f.order.ID))
	assert.Len(t, f.issuer.calls, 1)
	assert.Len(t, f.notifier.confirmed, 1)

	_, err = f.service.ConfirmCashPayment(context.Background(), f.order.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Len(t, f.issuer.calls, 1)
}

func TestConfirmCashPaymentRejects(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.service.ConfirmCashPayment(context.Background(), f.order.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation), "momo orders are not paid at the counter")

	f.order.PaymentMethod = orders.PaymentMethodCash
	f.orders.resold[f.order.ID] = true
	_, err = f.service.ConfirmCashPayment(context.Background(), f.order.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	assert.Empty(t, f.repo.txns)
	assert.Equal(t, orders.StatusCancelled, f.orders.status(f.order.ID))
}
