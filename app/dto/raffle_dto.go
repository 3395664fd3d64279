package dto

import (
	"time"
)

// CreateRaffleRequest represents the request to create a new raffle
type CreateRaffleRequest struct {
	Title             string    `json:"title" validate:"required,min=3,max=255"`
	Description       string    `json:"description" validate:"required"`
	EndDate           time.Time `json:"end_date" validate:"required"`
	TotalNumbers      int       `json:"total_numbers" validate:"required,min=100"`
	Price             float64   `json:"price" validate:"required,gt=0"`
	ExpirationMinutes *int      `json:"expiration_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
	PixName           string    `json:"pix_name" validate:"required,max=255"`
	PixKey            string    `json:"pix_key" validate:"required,max=255"`
	PixQRCode         *string   `json:"pix_qr_code,omitempty"`
}

// UpdateRaffleRequest represents the request to update an existing raffle
type UpdateRaffleRequest struct {
	RaffleID          uint       `json:"-"`
	Title             *string    `json:"title,omitempty" validate:"omitempty,min=3,max=255"`
	Description       *string    `json:"description,omitempty"`
	Status            *string    `json:"status,omitempty" validate:"omitempty,oneof=open waiting closed"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	Price             *float64   `json:"price,omitempty" validate:"omitempty,gt=0"`
	ExpirationMinutes *int       `json:"expiration_minutes,omitempty" validate:"omitempty,min=1,max=1440"`
	WinningReceiptID  *string    `json:"winning_receipt_id,omitempty"`
	PixName           *string    `json:"pix_name,omitempty" validate:"omitempty,max=255"`
	PixKey            *string    `json:"pix_key,omitempty" validate:"omitempty,max=255"`
	PixQRCode         *string    `json:"pix_qr_code,omitempty"`
}

// RaffleResponse represents a raffle in API responses
type RaffleResponse struct {
	ID                uint      `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Status            string    `json:"status"`
	EndDate           time.Time `json:"end_date"`
	TotalNumbers      int       `json:"total_numbers"`
	TotalPages        int       `json:"total_pages"`
	Price             float64   `json:"price"`
	ExpirationMinutes int       `json:"expiration_minutes"`
	WinningReceiptID  *string   `json:"winning_receipt_id,omitempty"`
	PixName           string    `json:"pix_name"`
	PixKey            string    `json:"pix_key"`
	PixQRCode         *string   `json:"pix_qr_code,omitempty"`
	TakenCount        int64     `json:"taken_count"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// RaffleListResponse represents the public raffle listing
type RaffleListResponse struct {
	Raffles []RaffleResponse `json:"raffles"`
}

// AvailableNumbersRequest represents the query for one page of a raffle grid
type AvailableNumbersRequest struct {
	RaffleID uint `json:"-"`
	Page     int  `json:"-" validate:"min=0"`
}

// AvailableNumbersResponse represents one page of the number grid: the page
// range split into numbers still free and numbers already taken
type AvailableNumbersResponse struct {
	RaffleID         uint  `json:"raffle_id"`
	Page             int   `json:"page"`
	TotalPages       int   `json:"total_pages"`
	StartNumber      int   `json:"start_number"`
	EndNumber        int   `json:"end_number"`
	AvailableNumbers []int `json:"available_numbers"`
	TakenNumbers     []int `json:"taken_numbers"`
}

// WinnerContactDTO is the redacted buyer contact shown on the public winner
// endpoint. Handles are partially masked.
type WinnerContactDTO struct {
	XHandle          string `json:"x_handle,omitempty"`
	InstagramHandle  string `json:"instagram_handle,omitempty"`
	Whatsapp         string `json:"whatsapp,omitempty"`
	PreferredContact string `json:"preferred_contact,omitempty"`
}

// WinnerResponse represents the public winner announcement of a closed raffle
type WinnerResponse struct {
	RaffleID    uint             `json:"raffle_id"`
	RaffleTitle string           `json:"raffle_title"`
	ReceiptID   string           `json:"receipt_id"`
	Numbers     []ClaimedPairDTO `json:"numbers"`
	Contact     WinnerContactDTO `json:"contact"`
	PaidAt      *time.Time       `json:"paid_at,omitempty"`
}

// SelectionDTO represents one claimed number in admin listings
type SelectionDTO struct {
	Number           int       `json:"number"`
	PageNumber       int       `json:"page_number"`
	ReceiptID        string    `json:"receipt_id"`
	XHandle          string    `json:"x_handle,omitempty"`
	InstagramHandle  string    `json:"instagram_handle,omitempty"`
	Whatsapp         string    `json:"whatsapp,omitempty"`
	PreferredContact string    `json:"preferred_contact,omitempty"`
	SelectedAt       time.Time `json:"selected_at"`
}

// SelectionListResponse represents the admin view of all claimed numbers in a raffle
type SelectionListResponse struct {
	RaffleID   uint           `json:"raffle_id"`
	Total      int            `json:"total"`
	Selections []SelectionDTO `json:"selections"`
}

// SelectionLookupResponse reports whether a single (page, number) slot is claimed
type SelectionLookupResponse struct {
	RaffleID   uint          `json:"raffle_id"`
	PageNumber int           `json:"page_number"`
	Number     int           `json:"number"`
	Claimed    bool          `json:"claimed"`
	Selection  *SelectionDTO `json:"selection,omitempty"`
}

// ExportRequest represents the admin export query
type ExportRequest struct {
	RaffleID uint   `json:"-"`
	Format   string `json:"-" query:"format" validate:"omitempty,oneof=csv xlsx"`
}

// SelectionExportRow is one row of a raffle export file
type SelectionExportRow struct {
	Number           int    `json:"number" csv:"number"`
	PageNumber       int    `json:"page_number" csv:"page_number"`
	ReceiptID        string `json:"receipt_id" csv:"receipt_id"`
	Status           string `json:"status" csv:"status"`
	XHandle          string `json:"x_handle" csv:"x_handle"`
	InstagramHandle  string `json:"instagram_handle" csv:"instagram_handle"`
	Whatsapp         string `json:"whatsapp" csv:"whatsapp"`
	PreferredContact string `json:"preferred_contact" csv:"preferred_contact"`
	SelectedAt       string `json:"selected_at" csv:"selected_at"`
}
