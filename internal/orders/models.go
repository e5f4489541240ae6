package orders

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Order groups the ticket and product line items paid for together.
// Line items are frozen at creation; only the status columns mutate.
type Order struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         *uuid.UUID    `gorm:"type:uuid;index" json:"user_id,omitempty"`
	HolderID       string        `gorm:"type:varchar(64);not null" json:"-"`
	CustomerName   string        `gorm:"type:varchar(255)" json:"customer_name,omitempty"`
	CustomerPhone  string        `gorm:"type:varchar(32)" json:"customer_phone,omitempty"`
	CustomerEmail  string        `gorm:"type:varchar(255)" json:"customer_email,omitempty"`
	SubtotalAmount int64         `gorm:"not null" json:"subtotal_amount"`
	DiscountAmount int64         `gorm:"not null;default:0" json:"discount_amount"`
	TotalAmount    int64         `gorm:"not null" json:"total_amount"`
	Status         Status        `gorm:"type:varchar(20);not null;index;check:status IN ('PENDING', 'CONFIRMED', 'CANCELLED')" json:"status"`
	PaymentMethod  PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	ExpireAt       *time.Time    `json:"expire_at,omitempty"`
	ConfirmedAt    *time.Time    `json:"confirmed_at,omitempty"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty"`
	CancelReason   string        `gorm:"type:varchar(255)" json:"cancel_reason,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	// Relationships
	Tickets  []OrderTicket  `json:"tickets,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE;"`
	Products []OrderProduct `json:"products,omitempty" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE;"`
}

// OrderTicket is one (showtime, seat) at the price captured at booking time
type OrderTicket struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID       uuid.UUID `gorm:"type:uuid;index;not null" json:"order_id"`
	ShowtimeID    uuid.UUID `gorm:"type:uuid;not null" json:"showtime_id"`
	SeatID        uuid.UUID `gorm:"type:uuid;not null" json:"seat_id"`
	SeatCode      string    `gorm:"type:varchar(10);not null" json:"seat_code"`
	SeatTypeCode  *string   `gorm:"type:varchar(20)" json:"seat_type_code,omitempty"`
	BasePrice     int64     `gorm:"not null" json:"base_price"`
	SurchargeRate float64   `gorm:"not null;default:1" json:"surcharge_rate"`
	Price         int64     `gorm:"not null" json:"price"`
	CreatedAt     time.Time `json:"created_at"`

	// Relationships
	Order *Order `json:"-" gorm:"foreignKey:OrderID"`
}

// OrderProduct is a concession line item
type OrderProduct struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID     uuid.UUID `gorm:"type:uuid;index;not null" json:"order_id"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null" json:"product_id"`
	ProductName string    `gorm:"type:varchar(255);not null" json:"product_name"`
	UnitPrice   int64     `gorm:"not null" json:"unit_price"`
	Quantity    int       `gorm:"not null;check:quantity > 0" json:"quantity"`
	Price       int64     `gorm:"not null" json:"price"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName sets the table name for Order
func (Order) TableName() string {
	return "orders"
}

// TableName sets the table name for OrderTicket
func (OrderTicket) TableName() string {
	return "order_tickets"
}

// TableName sets the table name for OrderProduct
func (OrderProduct) TableName() string {
	return "order_products"
}

// Models lists the order tables for migration
func Models() []interface{} {
	return []interface{}{&Order{}, &OrderTicket{}, &OrderProduct{}}
}

// IsExpired reports a pending order whose payment window has closed.
// Expired orders no longer protect their seats even before the sweep runs.
func (o *Order) IsExpired(now time.Time) bool {
	return o.Status == StatusPending && o.ExpireAt != nil && !now.Before(*o.ExpireAt)
}

// HoldsSeats reports whether the order still blocks its seats for others
func (o *Order) HoldsSeats(now time.Time) bool {
	switch o.Status {
	case StatusConfirmed:
		return true
	case StatusPending:
		return !o.IsExpired(now)
	default:
		return false
	}
}

// applyTotals recomputes subtotal and total from the line items. The discount
// never pushes the total below zero.
func (o *Order) applyTotals() {
	var subtotal int64
	for _, t := range o.Tickets {
		subtotal += t.Price
	}
	for _, p := range o.Products {
		subtotal += p.Price
	}
	o.SubtotalAmount = subtotal
	o.TotalAmount = subtotal - o.DiscountAmount
	if o.TotalAmount < 0 {
		o.TotalAmount = 0
	}
}

// seatsByShowtime groups the order's seats, with showtimes in a stable order
func (o *Order) seatsByShowtime() ([]uuid.UUID, map[uuid.UUID][]uuid.UUID) {
	items := make([]TicketItem, len(o.Tickets))
	for i, t := range o.Tickets {
		items[i] = TicketItem{ShowtimeID: t.ShowtimeID, SeatID: t.SeatID}
	}
	return groupSeats(items)
}

func (o *Order) seatCode(seatID uuid.UUID) string {
	for _, t := range o.Tickets {
		if t.SeatID == seatID {
			return t.SeatCode
		}
	}
	return seatID.String()
}

func groupSeats(items []TicketItem) ([]uuid.UUID, map[uuid.UUID][]uuid.UUID) {
	grouped := make(map[uuid.UUID][]uuid.UUID)
	var showtimeIDs []uuid.UUID
	for _, item := range items {
		if _, ok := grouped[item.ShowtimeID]; !ok {
			showtimeIDs = append(showtimeIDs, item.ShowtimeID)
		}
		grouped[item.ShowtimeID] = append(grouped[item.ShowtimeID], item.SeatID)
	}
	// lock showtimes in a global order so concurrent creators cannot deadlock
	sort.Slice(showtimeIDs, func(i, j int) bool {
		return showtimeIDs[i].String() < showtimeIDs[j].String()
	})
	return showtimeIDs, grouped
}
