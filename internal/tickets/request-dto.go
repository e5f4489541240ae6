package tickets

type VerifyTicketRequest struct {
	QRData     string `json:"qr_data" binding:"required_without=TicketCode,max=255"`
	TicketCode string `json:"ticket_code" binding:"required_without=QRData,max=16"`
}
