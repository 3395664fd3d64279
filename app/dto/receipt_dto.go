package dto

import (
	"time"
)

// StatusChangeDTO represents one entry of a receipt's status history
type StatusChangeDTO struct {
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
	ChangedBy *string   `json:"changed_by,omitempty"`
	Note      *string   `json:"note,omitempty"`
}

// ReceiptPaymentDTO carries the PIX payment instructions shown to the buyer
type ReceiptPaymentDTO struct {
	PixName   string  `json:"pix_name"`
	PixKey    string  `json:"pix_key"`
	PixQRCode *string `json:"pix_qr_code,omitempty"`
}

// ReceiptResponse represents a receipt in API responses
type ReceiptResponse struct {
	ReceiptID   string             `json:"receipt_id"`
	RaffleID    uint               `json:"raffle_id"`
	RaffleTitle string             `json:"raffle_title,omitempty"`
	Status      string             `json:"status"`
	Numbers     []ClaimedPairDTO   `json:"numbers"`
	Contact     BuyerContactDTO    `json:"contact"`
	TotalAmount float64            `json:"total_amount"`
	Payment     *ReceiptPaymentDTO `json:"payment,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	ExpiresAt   time.Time          `json:"expires_at"`
	PaidAt      *time.Time         `json:"paid_at,omitempty"`
	History     []StatusChangeDTO  `json:"status_history"`
}

// UpdateReceiptStatusRequest represents the admin request to move a receipt
// to a new status
type UpdateReceiptStatusRequest struct {
	ReceiptID string  `json:"-"`
	Status    string  `json:"status" validate:"required,oneof=waiting_payment receipt_uploaded paid expired"`
	Note      *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

// UpdateReceiptStatusResponse represents the outcome of a status change
type UpdateReceiptStatusResponse struct {
	ReceiptID       string `json:"receipt_id"`
	Status          string `json:"status"`
	ReleasedNumbers int64  `json:"released_numbers,omitempty"`
}

// UploadProofResponse represents the outcome of a proof upload
type UploadProofResponse struct {
	ReceiptID string `json:"receipt_id"`
	Status    string `json:"status"`
}

// ReceiptListResponse represents the admin receipt listing of a raffle
type ReceiptListResponse struct {
	Receipts []ReceiptResponse `json:"receipts"`
}
