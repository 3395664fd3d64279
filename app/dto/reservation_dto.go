package dto

// ClaimedPairDTO represents one (number, page) pair in a reservation
type ClaimedPairDTO struct {
	Number     int `json:"number" validate:"min=0"`
	PageNumber int `json:"page_number" validate:"min=0"`
}

// BuyerContactDTO represents the buyer's contact channels. At least one
// channel must be filled in; the flow enforces that on top of validation.
type BuyerContactDTO struct {
	XHandle          string `json:"x_handle,omitempty" validate:"omitempty,max=64"`
	InstagramHandle  string `json:"instagram_handle,omitempty" validate:"omitempty,max=64"`
	Whatsapp         string `json:"whatsapp,omitempty" validate:"omitempty,max=32"`
	PreferredContact string `json:"preferred_contact,omitempty" validate:"omitempty,oneof=x instagram whatsapp"`
}

// ReserveRequest represents a batch claim of numbers in one raffle
type ReserveRequest struct {
	RaffleID  uint             `json:"-"`
	ReceiptID *string          `json:"receipt_id,omitempty" validate:"omitempty,len=13"`
	Numbers   []ClaimedPairDTO `json:"numbers" validate:"required,min=1,max=100,dive"`
	Contact   BuyerContactDTO  `json:"contact" validate:"required"`
}

// ReserveResponse represents a successful reservation
type ReserveResponse struct {
	ReceiptID   string  `json:"receipt_id"`
	RaffleID    uint    `json:"raffle_id"`
	TotalAmount float64 `json:"total_amount"`
	ExpiresAt   string  `json:"expires_at"`
}
