package orders

import (
	"context"
	"log/slog"

	"cineticket/internal/catalog"
	"cineticket/internal/shared/constants"

	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatHeld      SeatStatus = "HELD"
	SeatBooked    SeatStatus = "BOOKED"
	SeatBlocked   SeatStatus = "BLOCKED"
)

// GetSeatAvailability builds the seat map of a showtime. Booked seats come
// from the database (cached briefly), holds are read live from Redis.
func (s *Service) GetSeatAvailability(ctx context.Context, showtimeID uuid.UUID, holderID string) (*SeatMapResponse, error) {
	showtime, err := s.catalog.GetShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	seats, err := s.catalog.ListSeatsByScreen(ctx, showtime.ScreenID)
	if err != nil {
		return nil, err
	}
	seatTypes, err := s.catalog.ListSeatTypes(ctx)
	if err != nil {
		return nil, err
	}
	typesByCode := make(map[string]*catalog.SeatType, len(seatTypes))
	for i := range seatTypes {
		typesByCode[seatTypes[i].Code] = &seatTypes[i]
	}

	booked, err := s.bookedSeats(ctx, showtimeID)
	if err != nil {
		return nil, err
	}
	bookedSet := make(map[uuid.UUID]struct{}, len(booked))
	for _, id := range booked {
		bookedSet[id] = struct{}{}
	}

	seatIDs := make([]uuid.UUID, len(seats))
	for i, seat := range seats {
		seatIDs[i] = seat.ID
	}
	held, err := s.holds.GetHeld(ctx, showtimeID, seatIDs)
	if err != nil {
		s.log.WarnContext(ctx, "hold lookup failed, seat map shows no holds",
			slog.String("showtime_id", showtimeID.String()),
			slog.Any("error", err),
		)
		held = nil
	}

	resp := &SeatMapResponse{
		ShowtimeID: showtime.ID,
		StartTime:  showtime.StartTime,
		BasePrice:  showtime.BasePrice,
		Seats:      make([]SeatMapEntry, 0, len(seats)),
	}
	for _, seat := range seats {
		var seatType *catalog.SeatType
		if seat.SeatTypeCode != nil {
			seatType = typesByCode[*seat.SeatTypeCode]
		}
		price, _ := catalog.SeatPrice(showtime.BasePrice, seatType)

		entry := SeatMapEntry{
			SeatID:       seat.ID,
			Row:          seat.Row,
			Number:       seat.Number,
			Code:         seat.Code,
			SeatTypeCode: seat.SeatTypeCode,
			Price:        price,
			Status:       SeatAvailable,
		}

		holder, isHeld := held[seat.ID]
		switch {
		case !seat.IsActive:
			entry.Status = SeatBlocked
		case isBooked(bookedSet, seat.ID):
			entry.Status = SeatBooked
		case isHeld:
			entry.Status = SeatHeld
			entry.HeldByYou = holderID != "" && holder == holderID
		}

		resp.Seats = append(resp.Seats, entry)
	}
	resp.countStatuses()
	return resp, nil
}

func isBooked(set map[uuid.UUID]struct{}, id uuid.UUID) bool {
	_, ok := set[id]
	return ok
}

func (s *Service) bookedSeats(ctx context.Context, showtimeID uuid.UUID) ([]uuid.UUID, error) {
	fetch := func() (interface{}, error) {
		return s.repo.ListBookedSeats(ctx, showtimeID, s.now())
	}
	if s.cache == nil {
		ids, err := fetch()
		if err != nil {
			return nil, err
		}
		return ids.([]uuid.UUID), nil
	}

	var booked []uuid.UUID
	key := constants.BuildBookedSeatsKey(showtimeID.String())
	if err := s.cache.GetOrSet(ctx, key, s.config.SeatMapTTL, fetch, &booked); err != nil {
		return nil, err
	}
	return booked, nil
}
