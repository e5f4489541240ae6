package orders

import "github.com/google/uuid"

type TicketItemRequest struct {
	ShowtimeID uuid.UUID `json:"showtime_id" binding:"required"`
	SeatID     uuid.UUID `json:"seat_id" binding:"required"`
}

type ProductItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=20"`
}

type CreateOrderRequest struct {
	Tickets        []TicketItemRequest  `json:"tickets" binding:"omitempty,max=10,dive"`
	Products       []ProductItemRequest `json:"products" binding:"omitempty,max=20,dive"`
	PaymentMethod  PaymentMethod        `json:"payment_method" binding:"required,oneof=MOMO CASH"`
	DiscountAmount int64                `json:"discount_amount" binding:"gte=0"`
	CustomerName   string               `json:"customer_name" binding:"omitempty,max=255"`
	CustomerPhone  string               `json:"customer_phone" binding:"omitempty,max=32"`
	CustomerEmail  string               `json:"customer_email" binding:"omitempty,email"`
}

// ToInput converts the request into service input
func (r *CreateOrderRequest) ToInput(userID *uuid.UUID, holderID string) CreateOrderInput {
	input := CreateOrderInput{
		UserID:         userID,
		HolderID:       holderID,
		PaymentMethod:  r.PaymentMethod,
		DiscountAmount: r.DiscountAmount,
		CustomerName:   r.CustomerName,
		CustomerPhone:  r.CustomerPhone,
		CustomerEmail:  r.CustomerEmail,
	}
	for _, t := range r.Tickets {
		input.Tickets = append(input.Tickets, TicketItem{ShowtimeID: t.ShowtimeID, SeatID: t.SeatID})
	}
	for _, p := range r.Products {
		input.Products = append(input.Products, ProductItem{ProductID: p.ProductID, Quantity: p.Quantity})
	}
	return input
}

type ListOrdersQuery struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}
