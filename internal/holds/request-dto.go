package holds

import "github.com/google/uuid"

// HoldSeatsRequest is the body of POST and DELETE /showtimes/:id/holds
type HoldSeatsRequest struct {
	SeatIDs []uuid.UUID `json:"seat_ids" binding:"required,min=1,max=10"`
}
