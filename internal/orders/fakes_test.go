package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"cineticket/internal/catalog"
	"cineticket/internal/notifications"
	"cineticket/internal/shared/apperr"
	"cineticket/internal/shared/database"

	"github.com/google/uuid"
)

type fakeCatalog struct {
	catalog.Repository
	showtimes map[uuid.UUID]*catalog.Showtime
	seats     map[uuid.UUID]*catalog.Seat
	seatTypes map[string]*catalog.SeatType
	products  map[uuid.UUID]*catalog.Product

	mu     sync.Mutex
	locked []uuid.UUID
	onLock func(id uuid.UUID)
}

func (f *fakeCatalog) GetShowtime(_ context.Context, id uuid.UUID) (*catalog.Showtime, error) {
	if st, ok := f.showtimes[id]; ok {
		return st, nil
	}
	return nil, apperr.NotFound("showtime not found")
}

func (f *fakeCatalog) LockShowtime(ctx context.Context, id uuid.UUID) (*catalog.Showtime, error) {
	f.mu.Lock()
	f.locked = append(f.locked, id)
	onLock := f.onLock
	f.mu.Unlock()
	if onLock != nil {
		onLock(id)
	}
	return f.GetShowtime(ctx, id)
}

func (f *fakeCatalog) lockCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.locked)
}

func (f *fakeCatalog) GetSeat(_ context.Context, id uuid.UUID) (*catalog.Seat, error) {
	if seat, ok := f.seats[id]; ok {
		return seat, nil
	}
	return nil, apperr.NotFound("seat not found")
}

func (f *fakeCatalog) ListSeatsByScreen(_ context.Context, screenID uuid.UUID) ([]catalog.Seat, error) {
	var out []catalog.Seat
	for _, seat := range f.seats {
		if seat.ScreenID == screenID {
			out = append(out, *seat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (f *fakeCatalog) GetSeatType(_ context.Context, code string) (*catalog.SeatType, error) {
	if st, ok := f.seatTypes[code]; ok {
		return st, nil
	}
	return nil, apperr.NotFound("seat type not found")
}

func (f *fakeCatalog) ListSeatTypes(_ context.Context) ([]catalog.SeatType, error) {
	var out []catalog.SeatType
	for _, st := range f.seatTypes {
		out = append(out, *st)
	}
	return out, nil
}

func (f *fakeCatalog) GetProduct(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, apperr.NotFound("product not found")
}

type fakeRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*Order
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: make(map[uuid.UUID]*Order)}
}

func cloneOrder(o *Order) *Order {
	c := *o
	c.Tickets = append([]OrderTicket(nil), o.Tickets...)
	c.Products = append([]OrderProduct(nil), o.Products...)
	return &c
}

func (r *fakeRepo) Create(_ context.Context, order *Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, apperr.NotFound("order not found")
	}
	return cloneOrder(o), nil
}

func (r *fakeRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeRepo) GetOrderTicket(_ context.Context, id uuid.UUID) (*OrderTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		for _, t := range o.Tickets {
			if t.ID == id {
				t.Order = cloneOrder(o)
				return &t, nil
			}
		}
	}
	return nil, apperr.NotFound("order ticket not found")
}

func (r *fakeRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]Order, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		if o.UserID != nil && *o.UserID == userID {
			out = append(out, *cloneOrder(o))
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (r *fakeRepo) FindTakenSeats(_ context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID, now time.Time, excludeOrderID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(seatIDs))
	for _, id := range seatIDs {
		wanted[id] = true
	}
	var taken []uuid.UUID
	for _, o := range r.orders {
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

func (r *fakeRepo) ListBookedSeats(ctx context.Context, showtimeID uuid.UUID, now time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	var all []uuid.UUID
	for _, o := range r.orders {
		for _, t := range o.Tickets {
			if t.ShowtimeID == showtimeID {
				all = append(all, t.SeatID)
			}
		}
	}
	r.mu.Unlock()
	return r.FindTakenSeats(ctx, showtimeID, all, now, uuid.Nil)
}

func (r *fakeRepo) Transition(_ context.Context, id uuid.UUID, from, to Status, at time.Time, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	switch to {
	case StatusConfirmed:
		o.ExpireAt = nil
		o.ConfirmedAt = &at
	case StatusCancelled:
		o.CancelledAt = &at
		o.CancelReason = reason
	}
	return true, nil
}

func (r *fakeRepo) CancelIfExpired(_ context.Context, id uuid.UUID, now time.Time, reason string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || !o.IsExpired(now) {
		return false, nil
	}
	o.Status = StatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	return true, nil
}

func (r *fakeRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Order
	for _, o := range r.orders {
		if o.IsExpired(now) && len(out) < limit {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

func (r *fakeRepo) status(id uuid.UUID) Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id].Status
}

// fakeTx serialises units of work the way the showtime row lock does
type fakeTx struct {
	mu sync.Mutex
}

type fakeTxKey struct{}

func (t *fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	ctx, runHooks := database.WithCommitHooks(ctx)
	err := fn(context.WithValue(ctx, fakeTxKey{}, true))
	t.mu.Unlock()
	if err != nil {
		return err
	}
	runHooks()
	return nil
}

type recordingNotifier struct {
	notifications.NoopNotifier
	mu        sync.Mutex
	cancelled []notifications.OrderEvent
}

func (n *recordingNotifier) NotifyOrderCancelled(_ context.Context, event notifications.OrderEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, event)
	return nil
}

func (n *recordingNotifier) cancelledCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.cancelled)
}

type fakeHolds struct {
	mu       sync.Mutex
	holders  map[uuid.UUID]string
	released []uuid.UUID
	err      error
}

func (h *fakeHolds) GetHeld(_ context.Context, _ uuid.UUID, seatIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	out := make(map[uuid.UUID]string)
	for _, id := range seatIDs {
		if holder, ok := h.holders[id]; ok {
			out[id] = holder
		}
	}
	return out, nil
}

func (h *fakeHolds) ReleaseOwned(_ context.Context, _ uuid.UUID, seatIDs []uuid.UUID, holderID string) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, id := range seatIDs {
		if h.holders[id] == holderID {
			delete(h.holders, id)
			h.released = append(h.released, id)
			n++
		}
	}
	return n, nil
}
