package payments

import (
	"context"
	"errors"
	"sync"
	"time"

	"cineticket/internal/notifications"
	"cineticket/internal/orders"
	"cineticket/internal/payments/momo"
	"cineticket/internal/shared/apperr"
	"cineticket/internal/shared/database"
	"cineticket/internal/tickets"

	"github.com/google/uuid"
)

type fakeGateway struct {
	*momo.Client
	mu        sync.Mutex
	created   []momo.PaymentInput
	createRes *momo.CreatePaymentResponse
	createErr error
	queryRes  *momo.QueryStatusResponse
	queryErr  error
}

func (g *fakeGateway) CreatePayment(_ context.Context, input momo.PaymentInput) (*momo.CreatePaymentResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, input)
	if g.createErr != nil {
		return nil, g.createErr
	}
	if g.createRes != nil {
		return g.createRes, nil
	}
	return &momo.CreatePaymentResponse{
		OrderID:    input.OrderRef,
		RequestID:  input.RequestID,
		Amount:     input.Amount,
		ResultCode: momo.ResultSuccess,
		Message:    "Successful.",
		PayURL:     "https://test-payment.momo.vn/v2/gateway/pay?t=" + input.RequestID,
		Raw:        `{"resultCode":0}`,
	}, nil
}

func (g *fakeGateway) QueryStatus(_ context.Context, _, _ string) (*momo.QueryStatusResponse, error) {
	if g.queryErr != nil {
		return nil, g.queryErr
	}
	return g.queryRes, nil
}

type fakeOrderService struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*orders.Order
	resold    map[uuid.UUID]bool
	confirms  int
	confirmFn func(orderID uuid.UUID) error
}

func newFakeOrderService() *fakeOrderService {
	return &fakeOrderService{orders: make(map[uuid.UUID]*orders.Order), resold: make(map[uuid.UUID]bool)}
}

func (f *fakeOrderService) GetOrder(_ context.Context, id uuid.UUID) (*orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderService) LockOrder(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	return f.GetOrder(ctx, id)
}

func (f *fakeOrderService) ConfirmOrder(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmFn != nil {
		return f.confirmFn(id)
	}
	o, ok := f.orders[id]
	if !ok {
		return apperr.NotFound("order not found")
	}
	switch o.Status {
	case orders.StatusConfirmed:
		return nil
	case orders.StatusCancelled:
		return apperr.InvalidState("order is cancelled")
	}
	if f.resold[id] {
		o.Status = orders.StatusCancelled
		return apperr.InvalidState("order expired and seat A5 was re-sold")
	}
	f.confirms++
	o.Status = orders.StatusConfirmed
	return nil
}

func (f *fakeOrderService) status(id uuid.UUID) orders.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.orders[id].Status
}

type fakeIssuer struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (f *fakeIssuer) GenerateForOrder(_ context.Context, orderID uuid.UUID) ([]tickets.ETicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, orderID)
	if f.err != nil {
		return nil, f.err
	}
	return []tickets.ETicket{{OrderID: orderID, TicketCode: "K7Q2M9XA"}, {OrderID: orderID, TicketCode: "P3D8W1ZB"}}, nil
}

type fakePaymentRepo struct {
	mu   sync.Mutex
	txns map[string]*PaymentTransaction
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{txns: make(map[string]*PaymentTransaction)}
}

func (r *fakePaymentRepo) Create(_ context.Context, txn *PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.txns[txn.RequestID]; ok {
		return apperr.Conflict("payment request already recorded").With("request_id", txn.RequestID)
	}
	cp := *txn
	r.txns[txn.RequestID] = &cp
	return nil
}

func (r *fakePaymentRepo) Update(_ context.Context, txn *PaymentTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *txn
	r.txns[txn.RequestID] = &cp
	return nil
}

func (r *fakePaymentRepo) GetByRequestID(_ context.Context, requestID string) (*PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn, ok := r.txns[requestID]
	if !ok {
		return nil, apperr.NotFound("payment transaction not found")
	}
	cp := *txn
	return &cp, nil
}

func (r *fakePaymentRepo) GetByRequestIDForUpdate(ctx context.Context, requestID string) (*PaymentTransaction, error) {
	return r.GetByRequestID(ctx, requestID)
}

func (r *fakePaymentRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]PaymentTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PaymentTransaction
	for _, txn := range r.txns {
		if txn.OrderID == orderID {
			out = append(out, *txn)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) only(t interface{ Fatalf(string, ...interface{}) }) *PaymentTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.txns) != 1 {
		t.Fatalf("expected one transaction, got %d", len(r.txns))
	}
	for _, txn := range r.txns {
		cp := *txn
		return &cp
	}
	return nil
}

type txCtxKey struct{}

// fakeTx serialises units of work, standing in for the row locks
type fakeTx struct {
	mu sync.Mutex
}

func (f *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txCtxKey{}) != nil {
		return fn(ctx)
	}
	f.mu.Lock()
	ctx, runHooks := database.WithCommitHooks(ctx)
	err := fn(context.WithValue(ctx, txCtxKey{}, true))
	f.mu.Unlock()
	if err != nil {
		return err
	}
	runHooks()
	return nil
}

type recordingNotifier struct {
	notifications.NoopNotifier
	mu        sync.Mutex
	confirmed []notifications.OrderEvent
	failed    []notifications.OrderEvent
}

func (n *recordingNotifier) NotifyOrderConfirmed(_ context.Context, event notifications.OrderEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, event)
	return nil
}

func (n *recordingNotifier) NotifyPaymentFailed(_ context.Context, event notifications.OrderEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failed = append(n.failed, event)
	return nil
}

var errProviderDown = errors.New("dial tcp: connection refused")

var fixtureNow = time.Date(2026, 5, 10, 18, 0, 0, 0, time.UTC)
