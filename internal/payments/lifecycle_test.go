package payments

import (
	"context"
	"sync"
	"testing"
	"time"

	"cineticket/internal/catalog"
	"cineticket/internal/orders"
	"cineticket/internal/payments/momo"
	"cineticket/internal/shared/apperr"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderStore is an in-memory orders.Repository
type orderStore struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*orders.Order
}

func cloneOrder(o *orders.Order) *orders.Order {
	c := *o
	c.Tickets = append([]orders.OrderTicket(nil), o.Tickets...)
	c.Products = append([]orders.OrderProduct(nil), o.Products...)
	return &c
}

func (s *orderStore) Create(_ context.Context, order *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s *orderStore) GetByID(_ context.Context, id uuid.UUID) (*orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	return cloneOrder(o), nil
}

func (s *orderStore) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	return s.GetByID(ctx, id)
}

func (s *orderStore) GetOrderTicket(_ context.Context, id uuid.UUID) (*orders.OrderTicket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		for _, t := range o.Tickets {
			if t.ID == id {
				t.Order = cloneOrder(o)
				return &t, nil
			}
		}
	}
	return nil, apperr.NotFound("order ticket not found")
}

func (s *orderStore) ListByUser(context.Context, uuid.UUID, int, int) ([]orders.Order, int64, error) {
	return nil, 0, nil
}

func (s *orderStore) FindTakenSeats(_ context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID, now time.Time, excludeOrderID uuid.UUID) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(seatIDs))
	for _, id := range seatIDs {
		wanted[id] = true
	}
	var taken []uuid.UUID
	for _, o := range s.orders {
		if o.ID == excludeOrderID || !o.HoldsSeats(now) {
			continue
		}
		for _, t := range o.Tickets {
			if t.ShowtimeID == showtimeID && wanted[t.SeatID] {
				taken = append(taken, t.SeatID)
			}
		}
	}
	return taken, nil
}

func (s *orderStore) ListBookedSeats(context.Context, uuid.UUID, time.Time) ([]uuid.UUID, error) {
	return nil, nil
}

func (s *orderStore) Transition(_ context.Context, id uuid.UUID, from, to orders.Status, at time.Time, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	switch to {
	case orders.StatusConfirmed:
		o.ExpireAt = nil
		o.ConfirmedAt = &at
	case orders.StatusCancelled:
		o.CancelledAt = &at
		o.CancelReason = reason
	}
	return true, nil
}

func (s *orderStore) CancelIfExpired(_ context.Context, id uuid.UUID, now time.Time, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || !o.IsExpired(now) {
		return false, nil
	}
	o.Status = orders.StatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	return true, nil
}

func (s *orderStore) ListExpired(_ context.Context, now time.Time, limit int) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for _, o := range s.orders {
		if o.IsExpired(now) && len(out) < limit {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

func (s *orderStore) status(id uuid.UUID) orders.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[id].Status
}

type screenCatalog struct {
	catalog.Repository
	showtime *catalog.Showtime
	seat     *catalog.Seat
}

func (c *screenCatalog) GetShowtime(_ context.Context, id uuid.UUID) (*catalog.Showtime, error) {
	if id != c.showtime.ID {
		return nil, apperr.NotFound("showtime not found")
	}
	return c.showtime, nil
}

func (c *screenCatalog) LockShowtime(ctx context.Context, id uuid.UUID) (*catalog.Showtime, error) {
	return c.GetShowtime(ctx, id)
}

func (c *screenCatalog) GetSeat(_ context.Context, id uuid.UUID) (*catalog.Seat, error) {
	if id != c.seat.ID {
		return nil, apperr.NotFound("seat not found")
	}
	return c.seat, nil
}

type noHolds struct{}

func (noHolds) GetHeld(context.Context, uuid.UUID, []uuid.UUID) (map[uuid.UUID]string, error) {
	return map[uuid.UUID]string{}, nil
}

func (noHolds) ReleaseOwned(context.Context, uuid.UUID, []uuid.UUID, string) (int, error) {
	return 0, nil
}

type lifecycleFixture struct {
	*paymentFixture
	store    *orderStore
	orderSvc *orders.Service
	showtime *catalog.Showtime
	seat     *catalog.Seat
	now      time.Time
}

// newLifecycleFixture runs payments against the real order lifecycle
func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	base := newPaymentFixture(t)
	f := &lifecycleFixture{
		paymentFixture: base,
		store:          &orderStore{orders: make(map[uuid.UUID]*orders.Order)},
		now:            fixtureNow,
	}

	screenID := uuid.New()
	f.showtime = &catalog.Showtime{ID: uuid.New(), ScreenID: screenID, StartTime: fixtureNow.Add(3 * time.Hour), BasePrice: 90000, IsActive: true}
	f.seat = &catalog.Seat{ID: uuid.New(), ScreenID: screenID, Row: "A", Number: 5, Code: "A5", IsActive: true}

	tx := &fakeTx{}
	clock := func() time.Time { return f.now }
	f.orderSvc = orders.NewService(f.store, &screenCatalog{showtime: f.showtime, seat: f.seat}, noHolds{}, tx, nil, nil, orders.Config{
		TicketWindow:   15 * time.Minute,
		ProductWindow:  30 * time.Minute,
		SweepBatchSize: 10,
		Now:            clock,
	})
	f.service = NewService(f.repo, f.gateway, f.orderSvc, f.issuer, tx, f.notifier)
	f.service.now = clock
	return f
}

func (f *lifecycleFixture) book(t *testing.T, holder string) *orders.Order {
	t.Helper()
	order, err := f.orderSvc.CreateOrder(context.Background(), orders.CreateOrderInput{
		HolderID:      holder,
		Tickets:       []orders.TicketItem{{ShowtimeID: f.showtime.ID, SeatID: f.seat.ID}},
		PaymentMethod: orders.PaymentMethodMomo,
	})
	require.NoError(t, err)
	return order
}

func (f *lifecycleFixture) pay(t *testing.T, order *orders.Order) *PaymentTransaction {
	t.Helper()
	txn, err := f.service.CreatePaymentAttempt(context.Background(), order.ID, 0)
	require.NoError(t, err)
	return txn
}

func TestLifecyclePaidOrderIssuesTicketsAndBlocksSeat(t *testing.T) {
	f := newLifecycleFixture(t)
	order := f.book(t, "holder-1")
	txn := f.pay(t, order)

	result, err := f.service.ReconcileCallback(context.Background(), f.callback(txn, momo.ResultSuccess, order.TotalAmount), SourceIPN)

	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, result.Outcome)
	assert.Equal(t, orders.StatusConfirmed, f.store.status(order.ID))
	assert.Equal(t, []uuid.UUID{order.ID}, f.issuer.calls)
	require.Len(t, f.notifier.confirmed, 1)

	_, err = f.orderSvc.CreateOrder(context.Background(), orders.CreateOrderInput{
		HolderID:      "holder-2",
		Tickets:       []orders.TicketItem{{ShowtimeID: f.showtime.ID, SeatID: f.seat.ID}},
		PaymentMethod: orders.PaymentMethodMomo,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Contains(t, err.Error(), "A5")
}

func TestLifecycleSuccessAfterExpirySweepIsRejected(t *testing.T) {
	f := newLifecycleFixture(t)
	order := f.book(t, "holder-1")
	txn := f.pay(t, order)

	f.now = f.now.Add(16 * time.Minute)
	swept, err := f.orderSvc.ExpireOrders(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, swept)

	// the seat is sold again while the first buyer's payment is still in flight
	next := f.book(t, "holder-2")

	result, err := f.service.ReconcileCallback(context.Background(), f.callback(txn, momo.ResultSuccess, order.TotalAmount), SourceIPN)

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, result.Outcome)
	stored := f.repo.only(t)
	assert.Equal(t, TransactionFailed, stored.Status)
	assert.Equal(t, "order not pending", stored.FailureReason)
	assert.Equal(t, orders.StatusCancelled, f.store.status(order.ID))
	assert.Equal(t, orders.StatusPending, f.store.status(next.ID))
	assert.Empty(t, f.issuer.calls)
	assert.Len(t, f.notifier.failed, 1)
}

func TestLifecycleSecondSuccessfulAttemptIsRejected(t *testing.T) {
	f := newLifecycleFixture(t)
	order := f.book(t, "holder-1")
	first := f.pay(t, order)
	second := f.pay(t, order)

	r1, err := f.service.ReconcileCallback(context.Background(), f.callback(first, momo.ResultSuccess, order.TotalAmount), SourceIPN)
	require.NoError(t, err)
	r2, err := f.service.ReconcileCallback(context.Background(), f.callback(second, momo.ResultSuccess, order.TotalAmount), SourceIPN)
	require.NoError(t, err)

	assert.Equal(t, OutcomeConfirmed, r1.Outcome)
	assert.Equal(t, OutcomeRejected, r2.Outcome)

	firstTxn, err := f.repo.GetByRequestID(context.Background(), first.RequestID)
	require.NoError(t, err)
	secondTxn, err := f.repo.GetByRequestID(context.Background(), second.RequestID)
	require.NoError(t, err)
	assert.Equal(t, TransactionCompleted, firstTxn.Status)
	assert.Equal(t, TransactionFailed, secondTxn.Status)
	assert.Equal(t, reasonAlreadyPaid, secondTxn.FailureReason)

	assert.Len(t, f.issuer.calls, 1, "tickets issued once")
	assert.Len(t, f.notifier.confirmed, 1, "confirmation announced once")
	assert.Equal(t, orders.StatusConfirmed, f.store.status(order.ID))
}
