package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cineticket/internal/catalog"
	"cineticket/internal/notifications"
	"cineticket/internal/orders"
	"cineticket/internal/shared/apperr"
	"cineticket/pkg/logger"

	"github.com/google/uuid"
)

// OrderLookup is the read side of orders that issuance and check-in need
type OrderLookup interface {
	GetOrder(ctx context.Context, orderID uuid.UUID) (*orders.Order, error)
	GetOrderTicket(ctx context.Context, orderTicketID uuid.UUID) (*orders.OrderTicket, error)
}

type Config struct {
	// GracePeriod is how long after the showtime start a ticket still admits
	GracePeriod    time.Duration
	SweepBatchSize int
}

type Service struct {
	repo     Repository
	orders   OrderLookup
	catalog  catalog.Repository
	notifier notifications.Notifier
	config   Config
	log      *logger.Logger
	now      func() time.Time
	newCode  func() (string, error)
}

func NewService(repo Repository, orderLookup OrderLookup, catalogRepo catalog.Repository, notifier notifications.Notifier, config Config) *Service {
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}
	if config.SweepBatchSize <= 0 {
		config.SweepBatchSize = 100
	}
	return &Service{
		repo:     repo,
		orders:   orderLookup,
		catalog:  catalogRepo,
		notifier: notifier,
		config:   config,
		log:      logger.GetDefault(),
		now:      time.Now,
		newCode:  generateTicketCode,
	}
}

// GenerateTicket issues the e-ticket of one paid seat. Calling it again
// returns the ticket already issued.
func (s *Service) GenerateTicket(ctx context.Context, orderTicketID uuid.UUID) (*ETicket, error) {
	line, err := s.orders.GetOrderTicket(ctx, orderTicketID)
	if err != nil {
		return nil, err
	}
	if line.Order == nil || line.Order.Status != orders.StatusConfirmed {
		return nil, apperr.InvalidState("order is not confirmed").With("order_ticket_id", orderTicketID.String())
	}

	ticket, _, err := s.ensureTicket(ctx, line.OrderID, line.ID)
	return ticket, err
}

// GenerateForOrder issues tickets for every seat of a confirmed order
func (s *Service) GenerateForOrder(ctx context.Context, orderID uuid.UUID) ([]ETicket, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != orders.StatusConfirmed {
		return nil, apperr.InvalidState("order is not confirmed").With("order_id", orderID.String())
	}

	issued := make([]ETicket, 0, len(order.Tickets))
	var created []string
	for _, line := range order.Tickets {
		ticket, isNew, err := s.ensureTicket(ctx, order.ID, line.ID)
		if err != nil {
			return issued, err
		}
		issued = append(issued, *ticket)
		if isNew {
			created = append(created, ticket.TicketCode)
		}
	}

	if len(created) > 0 {
		event := notifications.OrderEvent{
			OrderID:       order.ID,
			UserID:        order.UserID,
			CustomerName:  order.CustomerName,
			CustomerEmail: order.CustomerEmail,
			TotalAmount:   order.TotalAmount,
			TicketCodes:   created,
		}
		if err := s.notifier.NotifyTicketsIssued(ctx, event); err != nil {
			s.log.WarnContext(ctx, "tickets issued notification not sent", slog.Any("error", err))
		}
	}
	return issued, nil
}

// ensureTicket returns the ticket of an order line, creating it when missing.
// The unique index on order_ticket_id settles concurrent issuers.
func (s *Service) ensureTicket(ctx context.Context, orderID, orderTicketID uuid.UUID) (*ETicket, bool, error) {
	existing, err := s.repo.GetByOrderTicketID(ctx, orderTicketID)
	if err == nil {
		return existing, false, nil
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, false, err
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, false, fmt.Errorf("generate ticket code: %w", err)
		}

		now := s.now()
		ticket := &ETicket{
			ID:            uuid.New(),
			OrderTicketID: orderTicketID,
			OrderID:       orderID,
			TicketCode:    code,
			QRData:        BuildQRData(code, orderTicketID, now),
			IssuedAt:      now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		err = s.repo.Create(ctx, ticket)
		if err == nil {
			return ticket, true, nil
		}
		if !errors.Is(err, ErrDuplicateTicket) {
			return nil, false, err
		}

		// either another issuer won this line or the code collided
		if existing, err := s.repo.GetByOrderTicketID(ctx, orderTicketID); err == nil {
			return existing, false, nil
		}
	}

	return nil, false, fmt.Errorf("no unique ticket code after %d attempts", maxCodeAttempts)
}

// VerifyAndUse redeems a scanned QR payload. Payloads that are not ticket
// QR codes are rejected without a lookup.
func (s *Service) VerifyAndUse(ctx context.Context, qrData string) (*VerificationResult, error) {
	qrData = strings.TrimSpace(qrData)
	code, orderTicketID, err := ParseQRData(qrData)
	if err != nil {
		s.log.LogTicketVerified(ctx, "", string(VerificationInvalid))
		return notRecognized(), nil
	}

	ticket, err := s.repo.GetByQRData(ctx, qrData)
	if err == nil && (ticket.TicketCode != code || ticket.OrderTicketID != orderTicketID) {
		err = apperr.NotFound("ticket not found")
	}
	return s.redeem(ctx, ticket, err)
}

// VerifyByCode redeems a ticket by its printed code, for manual gate entry
func (s *Service) VerifyByCode(ctx context.Context, code string) (*VerificationResult, error) {
	code, ok := normalizeCode(code)
	if !ok {
		return notRecognized(), nil
	}
	ticket, err := s.repo.GetByCode(ctx, code)
	return s.redeem(ctx, ticket, err)
}

func (s *Service) redeem(ctx context.Context, ticket *ETicket, lookupErr error) (*VerificationResult, error) {
	if apperr.IsKind(lookupErr, apperr.KindNotFound) {
		s.log.LogTicketVerified(ctx, "", string(VerificationInvalid))
		return notRecognized(), nil
	}
	if lookupErr != nil {
		return nil, lookupErr
	}
	if ticket.IsUsed {
		return s.alreadyUsed(ctx, ticket), nil
	}

	line, err := s.orders.GetOrderTicket(ctx, ticket.OrderTicketID)
	if err != nil {
		return nil, err
	}
	if line.Order == nil || line.Order.Status != orders.StatusConfirmed {
		s.log.LogTicketVerified(ctx, ticket.TicketCode, string(VerificationInvalid))
		return &VerificationResult{
			Result:     VerificationInvalid,
			Reason:     ReasonOrderNotConfirmed,
			Message:    "order not confirmed",
			TicketCode: ticket.TicketCode,
		}, nil
	}

	showtime, err := s.catalog.GetShowtimeDetails(ctx, line.ShowtimeID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	deadline := showtime.StartTime.Add(s.config.GracePeriod)
	if now.After(deadline) {
		s.log.LogTicketVerified(ctx, ticket.TicketCode, string(VerificationExpired))
		return &VerificationResult{
			Result:     VerificationExpired,
			Message:    "ticket expired",
			TicketCode: ticket.TicketCode,
			Deadline:   &deadline,
		}, nil
	}

	marked, err := s.repo.MarkUsed(ctx, ticket.ID, now)
	if err != nil {
		return nil, err
	}
	if !marked {
		// another gate redeemed it between our read and the update
		current, err := s.repo.GetByOrderTicketID(ctx, ticket.OrderTicketID)
		if err != nil {
			return nil, err
		}
		return s.alreadyUsed(ctx, current), nil
	}

	total, used, err := s.repo.CountByOrder(ctx, ticket.OrderID)
	if err != nil {
		s.log.WarnContext(ctx, "ticket count for check-in summary failed", slog.Any("error", err))
	}

	s.log.LogTicketVerified(ctx, ticket.TicketCode, string(VerificationValid))
	return &VerificationResult{
		Result:     VerificationValid,
		Message:    "ticket accepted",
		TicketCode: ticket.TicketCode,
		UsedAt:     &now,
		Summary:    newCheckInSummary(showtime, line, total, used),
	}, nil
}

func (s *Service) alreadyUsed(ctx context.Context, ticket *ETicket) *VerificationResult {
	s.log.LogTicketVerified(ctx, ticket.TicketCode, string(VerificationAlreadyUsed))
	return &VerificationResult{
		Result:     VerificationAlreadyUsed,
		Message:    "ticket already used",
		TicketCode: ticket.TicketCode,
		UsedAt:     ticket.UsedAt,
	}
}

func notRecognized() *VerificationResult {
	return &VerificationResult{
		Result:  VerificationInvalid,
		Reason:  ReasonNotRecognized,
		Message: "ticket not recognized",
	}
}

func newCheckInSummary(showtime *catalog.Showtime, line *orders.OrderTicket, total, used int64) *CheckInSummary {
	summary := &CheckInSummary{
		ShowtimeStart:  showtime.StartTime,
		SeatCode:       line.SeatCode,
		SeatTypeCode:   line.SeatTypeCode,
		TicketsInOrder: total,
		UsedInOrder:    used,
	}
	if showtime.Movie != nil {
		summary.MovieTitle = showtime.Movie.Title
	}
	if showtime.Screen != nil {
		summary.ScreenName = showtime.Screen.Name
		if showtime.Screen.Cinema != nil {
			summary.CinemaName = showtime.Screen.Cinema.Name
		}
	}
	if line.Order != nil {
		summary.CustomerName = line.Order.CustomerName
		summary.CustomerEmail = line.Order.CustomerEmail
	}
	return summary
}

// GetTicketsForOrder lists the issued tickets of an order
func (s *Service) GetTicketsForOrder(ctx context.Context, orderID uuid.UUID) ([]ETicket, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

// GenerateMissingTickets repairs confirmed seats without a ticket, for
// example when issuance failed right after payment. Safe to repeat.
func (s *Service) GenerateMissingTickets(ctx context.Context) (int, error) {
	ids, err := s.repo.ListConfirmedWithoutTicket(ctx, s.config.SweepBatchSize)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		if _, err := s.GenerateTicket(ctx, id); err != nil {
			s.log.ErrorWithContext(ctx, "failed to generate missing ticket", err, map[string]interface{}{
				"order_ticket_id": id.String(),
			})
			continue
		}
		count++
	}
	return count, nil
}
