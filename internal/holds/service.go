package holds

import (
	"context"
	"time"

	"cineticket/internal/catalog"
	"cineticket/internal/shared/apperr"

	"github.com/google/uuid"
)

// Service validates hold requests against the catalog before touching Redis
type Service struct {
	manager *Manager
	catalog catalog.Repository
	now     func() time.Time
}

func NewService(manager *Manager, catalogRepo catalog.Repository) *Service {
	return &Service{
		manager: manager,
		catalog: catalogRepo,
		now:     time.Now,
	}
}

// HoldSeats places an all-or-nothing hold. A conflict names the seat.
func (s *Service) HoldSeats(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID, holderID string) (*HoldResponse, error) {
	seatIDs = dedupe(seatIDs)
	seats, err := s.loadSeats(ctx, showtimeID, seatIDs)
	if err != nil {
		return nil, err
	}

	result, err := s.manager.HoldDetailed(ctx, showtimeID, seatIDs, holderID)
	if err != nil {
		return nil, err
	}
	if !result.Granted {
		code := seats[result.ConflictSeatID].Code
		return nil, apperr.Conflict("seat %s is held by another customer", code).
			With("seat_id", result.ConflictSeatID.String()).
			With("seat_code", code)
	}

	return newHoldResponse(showtimeID, seatIDs, seats, holderID, result.ExpiresAt), nil
}

// ReleaseSeats drops the caller's own holds; other holders are untouched
func (s *Service) ReleaseSeats(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID, holderID string) (int, error) {
	if holderID == "" {
		return 0, apperr.Validation("holder id is required")
	}
	return s.manager.ReleaseOwned(ctx, showtimeID, dedupe(seatIDs), holderID)
}

func (s *Service) loadSeats(ctx context.Context, showtimeID uuid.UUID, seatIDs []uuid.UUID) (map[uuid.UUID]catalog.Seat, error) {
	showtime, err := s.catalog.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	if !showtime.IsActive {
		return nil, apperr.InvalidState("showtime is not open for booking").With("showtime_id", showtimeID.String())
	}
	if showtime.HasStarted(s.now()) {
		return nil, apperr.InvalidState("showtime has already started").With("start_time", showtime.StartTime)
	}

	seats, err := s.catalog.GetSeats(ctx, seatIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]catalog.Seat, len(seats))
	for _, seat := range seats {
		byID[seat.ID] = seat
	}
	for _, id := range seatIDs {
		seat, ok := byID[id]
		if !ok {
			return nil, apperr.NotFound("seat not found").With("seat_id", id.String())
		}
		if seat.ScreenID != showtime.ScreenID {
			return nil, apperr.Validation("seat %s is not in this showtime's screen", seat.Code).With("seat_code", seat.Code)
		}
		if !seat.IsActive {
			return nil, apperr.InvalidState("seat %s is not available for sale", seat.Code).With("seat_code", seat.Code)
		}
	}
	return byID, nil
}
