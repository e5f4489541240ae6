package orders

import (
	"time"

	"github.com/google/uuid"
)

type SeatMapEntry struct {
	SeatID       uuid.UUID  `json:"seat_id"`
	Row          string     `json:"row"`
	Number       int        `json:"number"`
	Code         string     `json:"code"`
	SeatTypeCode *string    `json:"seat_type_code,omitempty"`
	Price        int64      `json:"price"`
	Status       SeatStatus `json:"status"`
	HeldByYou    bool       `json:"held_by_you,omitempty"`
}

type SeatMapResponse struct {
	ShowtimeID uuid.UUID      `json:"showtime_id"`
	StartTime  time.Time      `json:"start_time"`
	BasePrice  int64          `json:"base_price"`
	Available  int            `json:"available"`
	Held       int            `json:"held"`
	Booked     int            `json:"booked"`
	Seats      []SeatMapEntry `json:"seats"`
}

func (r *SeatMapResponse) countStatuses() {
	for _, seat := range r.Seats {
		switch seat.Status {
		case SeatAvailable:
			r.Available++
		case SeatHeld:
			r.Held++
		case SeatBooked:
			r.Booked++
		}
	}
}

type ListOrdersResponse struct {
	Orders     []Order `json:"orders"`
	Total      int64   `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}

func newListOrdersResponse(orders []Order, total int64, page, limit int) *ListOrdersResponse {
	if orders == nil {
		orders = []Order{}
	}
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return &ListOrdersResponse{
		Orders:     orders,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}
}
