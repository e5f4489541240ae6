package tickets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const qrPrefix = "CINETICKET"

// ETicket is the redeemable credential of one paid seat. It is never deleted;
// IsUsed flips to true at most once.
type ETicket struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OrderTicketID uuid.UUID  `gorm:"type:uuid;not null" json:"order_ticket_id"`
	OrderID       uuid.UUID  `gorm:"type:uuid;index;not null" json:"order_id"`
	TicketCode    string     `gorm:"type:varchar(8);not null" json:"ticket_code"`
	QRData        string     `gorm:"type:varchar(255);not null" json:"qr_data"`
	IsUsed        bool       `gorm:"not null;default:false" json:"is_used"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
	IssuedAt      time.Time  `gorm:"not null" json:"issued_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName sets the table name for ETicket
func (ETicket) TableName() string {
	return "e_tickets"
}

// Models lists the ticket tables for migration
func Models() []interface{} {
	return []interface{}{&ETicket{}}
}

// BuildQRData encodes the payload printed in the QR code
func BuildQRData(code string, orderTicketID uuid.UUID, issuedAt time.Time) string {
	return fmt.Sprintf("%s|%s|%s|%d", qrPrefix, code, orderTicketID, issuedAt.Unix())
}

// ParseQRData splits a QR payload into its ticket code and order ticket id
func ParseQRData(data string) (string, uuid.UUID, error) {
	parts := strings.Split(data, "|")
	if len(parts) != 4 || parts[0] != qrPrefix {
		return "", uuid.Nil, fmt.Errorf("not a ticket QR code")
	}
	orderTicketID, err := uuid.Parse(parts[2])
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("bad order ticket id in QR code: %w", err)
	}
	if _, err := strconv.ParseInt(parts[3], 10, 64); err != nil {
		return "", uuid.Nil, fmt.Errorf("bad issue time in QR code: %w", err)
	}
	return parts[1], orderTicketID, nil
}

type VerificationStatus string

const (
	VerificationValid       VerificationStatus = "VALID"
	VerificationInvalid     VerificationStatus = "INVALID"
	VerificationAlreadyUsed VerificationStatus = "ALREADY_USED"
	VerificationExpired     VerificationStatus = "EXPIRED"
)

// Reasons refining an INVALID result
const (
	ReasonNotRecognized     = "NOT_RECOGNIZED"
	ReasonOrderNotConfirmed = "ORDER_NOT_CONFIRMED"
)

type VerificationResult struct {
	Result     VerificationStatus `json:"result"`
	Reason     string             `json:"reason,omitempty"`
	Message    string             `json:"message"`
	TicketCode string             `json:"ticket_code,omitempty"`
	UsedAt     *time.Time         `json:"used_at,omitempty"`
	Deadline   *time.Time         `json:"deadline,omitempty"`
	Summary    *CheckInSummary    `json:"summary,omitempty"`
}

// CheckInSummary is what the gate staff sees for an admitted ticket
type CheckInSummary struct {
	MovieTitle     string    `json:"movie_title"`
	CinemaName     string    `json:"cinema_name"`
	ScreenName     string    `json:"screen_name"`
	ShowtimeStart  time.Time `json:"showtime_start"`
	SeatCode       string    `json:"seat_code"`
	SeatTypeCode   *string   `json:"seat_type_code,omitempty"`
	CustomerName   string    `json:"customer_name,omitempty"`
	CustomerEmail  string    `json:"customer_email,omitempty"`
	TicketsInOrder int64     `json:"tickets_in_order"`
	UsedInOrder    int64     `json:"used_in_order"`
}
