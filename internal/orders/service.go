package orders

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"cineticket/internal/catalog"
	"cineticket/internal/notifications"
	"cineticket/internal/shared/apperr"
	"cineticket/internal/shared/constants"
	"cineticket/internal/shared/database"
	"cineticket/pkg/cache"
	"cineticket/pkg/logger"

	"github.com/google/uuid"
)

// SeatHolds is the advisory hold layer consulted before the authoritative
// database check.
type SeatHolds interface {
	GetHeld(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID) (map[uuid.UUID]string, error)
	ReleaseOwned(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID, holderID string) (int, error)
}

type Config struct {
	TicketWindow   time.Duration
	ProductWindow  time.Duration
	SeatMapTTL     time.Duration
	SweepBatchSize int
	// Now overrides the clock; nil means time.Now
	Now func() time.Time
}

type Service struct {
	repo     Repository
	catalog  catalog.Repository
	holds    SeatHolds
	tx       database.Transactor
	cache    cache.Service
	notifier notifications.Notifier
	config   Config
	log      *logger.Logger
	now      func() time.Time
}

func NewService(
	repo Repository,
	catalogRepo catalog.Repository,
	holds SeatHolds,
	tx database.Transactor,
	cacheService cache.Service,
	notifier notifications.Notifier,
	config Config,
) *Service {
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}
	if config.SeatMapTTL <= 0 {
		config.SeatMapTTL = constants.TTL_BOOKED_SEATS
	}
	if config.SweepBatchSize <= 0 {
		config.SweepBatchSize = 100
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:     repo,
		catalog:  catalogRepo,
		holds:    holds,
		tx:       tx,
		cache:    cacheService,
		notifier: notifier,
		config:   config,
		log:      logger.GetDefault(),
		now:      now,
	}
}

type TicketItem struct {
	ShowtimeID uuid.UUID
	SeatID     uuid.UUID
}

type ProductItem struct {
	ProductID uuid.UUID
	Quantity  int
}

type CreateOrderInput struct {
	UserID         *uuid.UUID
	HolderID       string
	Tickets        []TicketItem
	Products       []ProductItem
	PaymentMethod  PaymentMethod
	DiscountAmount int64
	CustomerName   string
	CustomerPhone  string
	CustomerEmail  string
}

func (in *CreateOrderInput) validate() error {
	if len(in.Tickets) == 0 && len(in.Products) == 0 {
		return apperr.Validation("order must contain at least one ticket or product")
	}
	if !in.PaymentMethod.IsValid() {
		return apperr.Validation("unsupported payment method").With("payment_method", string(in.PaymentMethod))
	}
	if in.DiscountAmount < 0 {
		return apperr.Validation("discount amount cannot be negative")
	}
	if len(in.Tickets) > 0 && in.HolderID == "" {
		return apperr.Validation("holder id is required for ticket orders")
	}

	seen := make(map[TicketItem]struct{}, len(in.Tickets))
	for _, item := range in.Tickets {
		if _, dup := seen[item]; dup {
			return apperr.Validation("seat requested twice").With("seat_id", item.SeatID.String())
		}
		seen[item] = struct{}{}
	}
	for _, item := range in.Products {
		if item.Quantity < 1 {
			return apperr.Validation("product quantity must be at least 1").With("product_id", item.ProductID.String())
		}
	}
	return nil
}

// Requester is the caller of an order endpoint. Anonymous kiosk orders are
// matched by holder id, account orders by user id.
type Requester struct {
	UserID     *uuid.UUID
	HolderID   string
	Privileged bool
}

func (r Requester) canAccess(order *Order) bool {
	if r.Privileged {
		return true
	}
	if order.UserID != nil {
		return r.UserID != nil && *r.UserID == *order.UserID
	}
	return r.HolderID != "" && r.HolderID == order.HolderID
}

// CreateOrder persists a pending order. The availability re-check and the
// insert share one transaction behind the showtime row locks, so two
// creators racing for a seat cannot both commit.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := s.checkHolds(ctx, input); err != nil {
		return nil, err
	}

	now := s.now()
	order := &Order{
		ID:             uuid.New(),
		UserID:         input.UserID,
		HolderID:       input.HolderID,
		CustomerName:   input.CustomerName,
		CustomerPhone:  input.CustomerPhone,
		CustomerEmail:  input.CustomerEmail,
		DiscountAmount: input.DiscountAmount,
		Status:         StatusPending,
		PaymentMethod:  input.PaymentMethod,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		tickets, err := s.buildTickets(ctx, order.ID, input.Tickets, now)
		if err != nil {
			return err
		}
		products, err := s.buildProducts(ctx, order.ID, input.Products, now)
		if err != nil {
			return err
		}

		order.Tickets = tickets
		order.Products = products
		order.applyTotals()

		window := s.config.ProductWindow
		if len(tickets) > 0 {
			window = s.config.TicketWindow
		}
		expireAt := now.Add(window)
		order.ExpireAt = &expireAt

		return s.repo.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	s.releaseHolds(ctx, order)
	s.invalidateSeatMaps(ctx, order)
	s.log.LogOrderCreated(ctx, order.ID.String(), order.HolderID, order.TotalAmount, len(order.Tickets))

	return order, nil
}

// checkHolds rejects seats held by someone else. Redis failures are logged
// and skipped; the database check still runs.
func (s *Service) checkHolds(ctx context.Context, input CreateOrderInput) error {
	showtimeIDs, grouped := groupSeats(input.Tickets)
	for _, showtimeID := range showtimeIDs {
		seatIDs := grouped[showtimeID]
		held, err := s.holds.GetHeld(ctx, showtimeID, seatIDs)
		if err != nil {
			s.log.WarnContext(ctx, "hold lookup failed, relying on database check",
				slog.String("showtime_id", showtimeID.String()),
				slog.Any("error", err),
			)
			continue
		}
		for _, seatID := range seatIDs {
			holder, ok := held[seatID]
			if !ok || holder == input.HolderID {
				continue
			}
			code := seatID.String()
			if seat, err := s.catalog.GetSeat(ctx, seatID); err == nil {
				code = seat.Code
			}
			return apperr.Conflict("seat %s is held by another customer", code).
				With("seat_id", seatID.String()).
				With("seat_code", code)
		}
	}
	return nil
}

func (s *Service) buildTickets(ctx context.Context, orderID uuid.UUID, items []TicketItem, now time.Time) ([]OrderTicket, error) {
	if len(items) == 0 {
		return nil, nil
	}

	showtimeIDs, grouped := groupSeats(items)
	showtimes := make(map[uuid.UUID]*catalog.Showtime, len(showtimeIDs))
	for _, showtimeID := range showtimeIDs {
		showtime, err := s.catalog.LockShowtime(ctx, showtimeID)
		if err != nil {
			return nil, err
		}
		if !showtime.IsActive {
			return nil, apperr.InvalidState("showtime is not open for booking").With("showtime_id", showtimeID.String())
		}
		if showtime.HasStarted(now) {
			return nil, apperr.InvalidState("showtime has already started").With("start_time", showtime.StartTime)
		}
		showtimes[showtimeID] = showtime
	}

	seatTypes := make(map[string]*catalog.SeatType)
	tickets := make([]OrderTicket, 0, len(items))
	for _, item := range items {
		showtime := showtimes[item.ShowtimeID]
		seat, err := s.catalog.GetSeat(ctx, item.SeatID)
		if err != nil {
			return nil, err
		}
		if seat.ScreenID != showtime.ScreenID {
			return nil, apperr.Validation("seat %s is not in this showtime's screen", seat.Code).With("seat_code", seat.Code)
		}
		if !seat.IsActive {
			return nil, apperr.InvalidState("seat %s is not available for sale", seat.Code).With("seat_code", seat.Code)
		}

		var seatType *catalog.SeatType
		if seat.SeatTypeCode != nil {
			seatType = seatTypes[*seat.SeatTypeCode]
			if seatType == nil {
				if seatType, err = s.catalog.GetSeatType(ctx, *seat.SeatTypeCode); err != nil {
					return nil, err
				}
				seatTypes[*seat.SeatTypeCode] = seatType
			}
		}
		price, rate := catalog.SeatPrice(showtime.BasePrice, seatType)

		tickets = append(tickets, OrderTicket{
			ID:            uuid.New(),
			OrderID:       orderID,
			ShowtimeID:    showtime.ID,
			SeatID:        seat.ID,
			SeatCode:      seat.Code,
			SeatTypeCode:  seat.SeatTypeCode,
			BasePrice:     showtime.BasePrice,
			SurchargeRate: rate,
			Price:         price,
			CreatedAt:     now,
		})
	}

	for _, showtimeID := range showtimeIDs {
		taken, err := s.repo.FindTakenSeats(ctx, showtimeID, grouped[showtimeID], now, uuid.Nil)
		if err != nil {
			return nil, err
		}
		if len(taken) > 0 {
			return nil, seatTakenError(tickets, showtimeID, taken)
		}
	}
	return tickets, nil
}

func (s *Service) buildProducts(ctx context.Context, orderID uuid.UUID, items []ProductItem, now time.Time) ([]OrderProduct, error) {
	products := make([]OrderProduct, 0, len(items))
	for _, item := range items {
		product, err := s.catalog.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.IsActive {
			return nil, apperr.InvalidState("product %s is not available", product.Name).With("product_id", product.ID.String())
		}
		products = append(products, OrderProduct{
			ID:          uuid.New(),
			OrderID:     orderID,
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    item.Quantity,
			Price:       product.Price * int64(item.Quantity),
			CreatedAt:   now,
		})
	}
	return products, nil
}

// seatTakenError names the first taken seat in request order
func seatTakenError(tickets []OrderTicket, showtimeID uuid.UUID, taken []uuid.UUID) error {
	takenSet := make(map[uuid.UUID]struct{}, len(taken))
	for _, id := range taken {
		takenSet[id] = struct{}{}
	}

	var codes []string
	for _, t := range tickets {
		if t.ShowtimeID != showtimeID {
			continue
		}
		if _, ok := takenSet[t.SeatID]; ok {
			codes = append(codes, t.SeatCode)
		}
	}
	if len(codes) == 0 {
		codes = []string{taken[0].String()}
	}

	return apperr.Conflict("seat %s is already booked", codes[0]).
		With("seat_code", codes[0]).
		With("seat_codes", codes).
		With("showtime_id", showtimeID.String())
}

// ConfirmOrder marks a pending order paid. Confirming twice is a no-op. A late
// confirmation goes through unless one of the seats was re-sold meanwhile, in
// which case the order is cancelled and the caller gets InvalidState.
//
// The showtime rows are locked before the expiry check, so a creator deciding
// that this order has lapsed and this confirmation are serialised.
func (s *Service) ConfirmOrder(ctx context.Context, orderID uuid.UUID) error {
	var resold error

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status == StatusConfirmed {
			return nil
		}
		if !order.Status.CanTransitionTo(StatusConfirmed) {
			return apperr.InvalidState("order is %s", strings.ToLower(order.Status.String())).
				With("order_id", orderID.String()).
				With("cancelled_at", order.CancelledAt)
		}

		showtimeIDs, grouped := order.seatsByShowtime()
		for _, showtimeID := range showtimeIDs {
			if _, err := s.catalog.LockShowtime(ctx, showtimeID); err != nil {
				return err
			}
		}

		now := s.now()
		if order.IsExpired(now) {
			code, err := s.findResoldSeat(ctx, order, showtimeIDs, grouped, now)
			if err != nil {
				return err
			}
			if code != "" {
				const reason = "seat re-sold after expiry"
				if _, err := s.repo.Transition(ctx, order.ID, StatusPending, StatusCancelled, now, reason); err != nil {
					return err
				}
				order.Status = StatusCancelled
				order.CancelledAt = &now
				order.CancelReason = reason
				resold = apperr.InvalidState("order expired and seat %s was re-sold", code).
					With("order_id", orderID.String()).
					With("seat_code", code).
					With("expire_at", order.ExpireAt)
				database.AfterCommit(ctx, func() { s.afterCancel(ctx, order, reason) })
				return nil
			}
		}

		ok, err := s.repo.Transition(ctx, order.ID, StatusPending, StatusConfirmed, now, "")
		if err != nil {
			return err
		}
		if !ok {
			return apperr.InvalidState("order is no longer pending").With("order_id", orderID.String())
		}
		order.Status = StatusConfirmed
		order.ExpireAt = nil
		order.ConfirmedAt = &now
		database.AfterCommit(ctx, func() {
			s.invalidateSeatMaps(ctx, order)
			s.log.LogOrderConfirmed(ctx, order.ID.String())
		})
		return nil
	})
	if err != nil {
		return err
	}
	return resold
}

// LockOrder loads an order under a row lock. It must run inside a unit of
// work; callers use it to decide on an order before changing related rows.
func (s *Service) LockOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return s.repo.GetByIDForUpdate(ctx, orderID)
}

// findResoldSeat returns the code of a seat of order now owned by another
// live order, or "" when every seat is still free. The showtimes are already
// locked by the caller.
func (s *Service) findResoldSeat(ctx context.Context, order *Order, showtimeIDs []uuid.UUID, grouped map[uuid.UUID][]uuid.UUID, now time.Time) (string, error) {
	for _, showtimeID := range showtimeIDs {
		taken, err := s.repo.FindTakenSeats(ctx, showtimeID, grouped[showtimeID], now, order.ID)
		if err != nil {
			return "", err
		}
		if len(taken) > 0 {
			return order.seatCode(taken[0]), nil
		}
	}
	return "", nil
}

// CancelOrder cancels a pending order. Confirmed orders go through refunds.
func (s *Service) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	return s.cancel(ctx, orderID, nil, "cancelled by staff")
}

// CancelOrderForUser cancels an order the requester owns
func (s *Service) CancelOrderForUser(ctx context.Context, orderID uuid.UUID, requester Requester) error {
	return s.cancel(ctx, orderID, &requester, "cancelled by customer")
}

func (s *Service) cancel(ctx context.Context, orderID uuid.UUID, requester *Requester, reason string) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err := s.repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if requester != nil && !requester.canAccess(order) {
			return apperr.Forbidden("order belongs to another customer")
		}
		if order.Status == StatusCancelled {
			return nil
		}
		if !order.Status.CanTransitionTo(StatusCancelled) {
			return apperr.InvalidState("confirmed orders cannot be cancelled, request a refund").
				With("order_id", orderID.String()).
				With("confirmed_at", order.ConfirmedAt)
		}

		now := s.now()
		cancelled, err := s.repo.Transition(ctx, order.ID, StatusPending, StatusCancelled, now, reason)
		if err != nil {
			return err
		}
		if cancelled {
			order.Status = StatusCancelled
			order.CancelledAt = &now
			order.CancelReason = reason
			database.AfterCommit(ctx, func() { s.afterCancel(ctx, order, reason) })
		}
		return nil
	})
}

func (s *Service) afterCancel(ctx context.Context, order *Order, reason string) {
	s.releaseHolds(ctx, order)
	s.invalidateSeatMaps(ctx, order)
	s.log.LogOrderCancelled(ctx, order.ID.String(), reason)

	if err := s.notifier.NotifyOrderCancelled(ctx, orderEvent(order, reason)); err != nil {
		s.log.WarnContext(ctx, "order cancelled notification failed", slog.String("order_id", order.ID.String()), slog.Any("error", err))
	}
}

// GetOrder loads an order with its line items
func (s *Service) GetOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

// GetOrderFor loads an order the requester is allowed to see
func (s *Service) GetOrderFor(ctx context.Context, orderID uuid.UUID, requester Requester) (*Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !requester.canAccess(order) {
		return nil, apperr.Forbidden("order belongs to another customer")
	}
	return order, nil
}

// GetOrderTicket loads a ticket line with its order
func (s *Service) GetOrderTicket(ctx context.Context, orderTicketID uuid.UUID) (*OrderTicket, error) {
	return s.repo.GetOrderTicket(ctx, orderTicketID)
}

func (s *Service) ListUserOrders(ctx context.Context, userID uuid.UUID, page, limit int) ([]Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByUser(ctx, userID, limit, (page-1)*limit)
}

// GetExpiredOrders lists pending orders whose window has closed
func (s *Service) GetExpiredOrders(ctx context.Context, limit int) ([]Order, error) {
	if limit < 1 {
		limit = s.config.SweepBatchSize
	}
	return s.repo.ListExpired(ctx, s.now(), limit)
}

// ExpireOrders cancels one batch of expired orders. Each order is cancelled
// by a conditional update, so a payment confirming it concurrently wins or
// loses cleanly.
func (s *Service) ExpireOrders(ctx context.Context) (int, error) {
	now := s.now()
	expired, err := s.repo.ListExpired(ctx, now, s.config.SweepBatchSize)
	if err != nil {
		return 0, err
	}

	const reason = "payment window expired"
	count := 0
	for i := range expired {
		order := &expired[i]
		if order.HoldsSeats(now) || !order.Status.CanTransitionTo(StatusCancelled) {
			continue
		}
		ok, err := s.repo.CancelIfExpired(ctx, order.ID, now, reason)
		if err != nil {
			s.log.ErrorWithContext(ctx, "failed to expire order", err, map[string]interface{}{
				"order_id": order.ID.String(),
			})
			continue
		}
		if !ok {
			continue
		}
		order.Status = StatusCancelled
		order.CancelledAt = &now
		count++
		s.afterCancel(ctx, order, reason)
	}
	return count, nil
}

func (s *Service) releaseHolds(ctx context.Context, order *Order) {
	if order.HolderID == "" {
		return
	}
	showtimeIDs, grouped := order.seatsByShowtime()
	for _, showtimeID := range showtimeIDs {
		if _, err := s.holds.ReleaseOwned(ctx, showtimeID, grouped[showtimeID], order.HolderID); err != nil {
			s.log.WarnContext(ctx, "failed to release holds",
				slog.String("order_id", order.ID.String()),
				slog.String("showtime_id", showtimeID.String()),
				slog.Any("error", err),
			)
		}
	}
}

func (s *Service) invalidateSeatMaps(ctx context.Context, order *Order) {
	if s.cache == nil {
		return
	}
	showtimeIDs, _ := order.seatsByShowtime()
	if len(showtimeIDs) == 0 {
		return
	}
	keys := make([]string, len(showtimeIDs))
	for i, id := range showtimeIDs {
		keys[i] = constants.BuildBookedSeatsKey(id.String())
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.WarnContext(ctx, "failed to invalidate seat map cache", slog.Any("error", err))
	}
}

func orderEvent(order *Order, reason string) notifications.OrderEvent {
	return notifications.OrderEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		TotalAmount:   order.TotalAmount,
		Reason:        reason,
	}
}
