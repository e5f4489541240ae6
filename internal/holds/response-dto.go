package holds

import (
	"time"

	"cineticket/internal/catalog"

	"github.com/google/uuid"
)

type HeldSeat struct {
	SeatID uuid.UUID `json:"seat_id"`
	Code   string    `json:"code"`
}

type HoldResponse struct {
	ShowtimeID uuid.UUID  `json:"showtime_id"`
	HolderID   string     `json:"holder_id"`
	Seats      []HeldSeat `json:"seats"`
	ExpiresAt  time.Time  `json:"expires_at"`
}

func newHoldResponse(showtimeID uuid.UUID, seatIDs []uuid.UUID, seats map[uuid.UUID]catalog.Seat, holderID string, expiresAt time.Time) *HoldResponse {
	held := make([]HeldSeat, 0, len(seatIDs))
	for _, id := range seatIDs {
		held = append(held, HeldSeat{SeatID: id, Code: seats[id].Code})
	}
	return &HoldResponse{
		ShowtimeID: showtimeID,
		HolderID:   holderID,
		Seats:      held,
		ExpiresAt:  expiresAt,
	}
}
