// Package models contains domain entities and business models for the raffle platform
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/subaruffles/backend/utils"
	"gorm.io/gorm"
)

// RaffleStatus represents the lifecycle status of a raffle
type RaffleStatus string

const (
	RaffleStatusOpen    RaffleStatus = "open"
	RaffleStatusWaiting RaffleStatus = "waiting"
	RaffleStatusClosed  RaffleStatus = "closed"
)

// String returns the string representation of the status
func (s RaffleStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s RaffleStatus) Valid() bool {
	switch s {
	case RaffleStatusOpen, RaffleStatusWaiting, RaffleStatusClosed:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for RaffleStatus
func (s *RaffleStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = RaffleStatus(v)
	case []byte:
		*s = RaffleStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into RaffleStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for RaffleStatus
func (s RaffleStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid RaffleStatus: %s", s)
	}
	return string(s), nil
}

// Raffle represents a numbered raffle in the database
type Raffle struct {
	ID                uint         `gorm:"primaryKey" json:"id"`
	Title             string       `gorm:"size:255;not null" json:"title"`
	Description       string       `gorm:"type:text;not null" json:"description"`
	Status            RaffleStatus `gorm:"type:varchar(16);not null;default:'open';index:idx_raffles_status" json:"status"`
	EndDate           time.Time    `gorm:"not null;index:idx_raffles_end_date" json:"end_date"`
	TotalNumbers      int          `gorm:"not null" json:"total_numbers"`
	Price             float64      `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	ExpirationMinutes int          `gorm:"not null;default:30" json:"expiration_minutes"`
	WinningReceiptID  *string      `gorm:"size:64" json:"winning_receipt_id,omitempty"`

	// PIX payment info shown to buyers on the receipt page
	PixName   string  `gorm:"size:255" json:"pix_name"`
	PixKey    string  `gorm:"size:255" json:"pix_key"`
	PixQRCode *string `gorm:"type:text" json:"pix_qr_code,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_raffles_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Raffle) TableName() string { return "raffles" }

// BeforeCreate normalizes defaults before inserting a new raffle
func (r *Raffle) BeforeCreate(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = RaffleStatusOpen
	}
	if r.ExpirationMinutes <= 0 {
		r.ExpirationMinutes = utils.DefaultExpirationMinutes
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.UTCNow()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = utils.UTCNow()
	}
	return nil
}

// TotalPages returns how many 100-number pages the raffle spans
func (r *Raffle) TotalPages() int {
	return (r.TotalNumbers + utils.NumbersPerPage - 1) / utils.NumbersPerPage
}

// PageBounds returns the inclusive number range covered by the given page.
// The last page is truncated to the raffle's total.
func (r *Raffle) PageBounds(page int) (start, end int, err error) {
	if page < 1 || page > r.TotalPages() {
		return 0, 0, fmt.Errorf("page %d out of range [1, %d]", page, r.TotalPages())
	}
	start = (page-1)*utils.NumbersPerPage + 1
	end = page * utils.NumbersPerPage
	if end > r.TotalNumbers {
		end = r.TotalNumbers
	}
	return start, end, nil
}

// ContainsNumber reports whether the number lies within the raffle's range
func (r *Raffle) ContainsNumber(number int) bool {
	return number >= 1 && number <= r.TotalNumbers
}

// HasEnded reports whether the sale cutoff has passed
func (r *Raffle) HasEnded(now time.Time) bool {
	return !now.Before(r.EndDate)
}

// IsSellable reports whether numbers can currently be reserved. Both the
// status and the end date are checked; callers must evaluate this at claim
// time, not just at page load.
func (r *Raffle) IsSellable(now time.Time) bool {
	return r.Status == RaffleStatusOpen && !r.HasEnded(now)
}

// RaffleFilter represents filter criteria for raffle queries
type RaffleFilter struct {
	ID            *uint         `json:"id,omitempty"`
	Status        *RaffleStatus `json:"status,omitempty"`
	EndsAfter     *time.Time    `json:"ends_after,omitempty"`
	EndsBefore    *time.Time    `json:"ends_before,omitempty"`
	CreatedAfter  *time.Time    `json:"created_after,omitempty"`
	CreatedBefore *time.Time    `json:"created_before,omitempty"`
}
