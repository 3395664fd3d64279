package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/subaruffles/backend/utils"
	"gorm.io/gorm"
)

// Contact channel constants for BuyerContact.PreferredContact
const (
	ContactChannelX         = "x"
	ContactChannelInstagram = "instagram"
	ContactChannelWhatsapp  = "whatsapp"
)

// BuyerContact is the contact snapshot stored with each claim and receipt.
// At least one handle must be present for a reservation to be accepted.
type BuyerContact struct {
	XHandle          string `json:"x_handle,omitempty"`
	InstagramHandle  string `json:"instagram_handle,omitempty"`
	Whatsapp         string `json:"whatsapp,omitempty"`
	PreferredContact string `json:"preferred_contact,omitempty"`
}

// HasAnyChannel reports whether at least one contact channel is filled in
func (c BuyerContact) HasAnyChannel() bool {
	return c.XHandle != "" || c.InstagramHandle != "" || c.Whatsapp != ""
}

// Value implements the driver.Valuer interface for BuyerContact
func (c BuyerContact) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan implements the sql.Scanner interface for BuyerContact
func (c *BuyerContact) Scan(value any) error {
	if value == nil {
		*c = BuyerContact{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into BuyerContact", value)
	}

	return json.Unmarshal(bytes, c)
}

// Selection represents a single claimed (raffle, number, page) tuple.
// Table: selections
// The unique index on (raffle_id, page_number, number) is the storage-level
// guarantee that a number is claimed by at most one buyer.
type Selection struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	RaffleID   uint         `gorm:"not null;uniqueIndex:uk_selections_raffle_page_number;index:idx_selections_raffle_page" json:"raffle_id"`
	ReceiptID  string       `gorm:"size:64;not null;index:idx_selections_receipt_id" json:"receipt_id"`
	PageNumber int          `gorm:"not null;uniqueIndex:uk_selections_raffle_page_number;index:idx_selections_raffle_page" json:"page_number"`
	Number     int          `gorm:"not null;uniqueIndex:uk_selections_raffle_page_number" json:"number"`
	Buyer      BuyerContact `gorm:"type:jsonb;not null" json:"buyer"`
	SelectedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"selected_at"`

	// Relations
	Raffle *Raffle `gorm:"foreignKey:RaffleID;references:ID;constraint:OnDelete:CASCADE" json:"raffle,omitempty"`
}

func (Selection) TableName() string { return "selections" }

// BeforeCreate normalizes the claim timestamp
func (s *Selection) BeforeCreate(tx *gorm.DB) error {
	if s.SelectedAt.IsZero() {
		s.SelectedAt = utils.UTCNow()
	}
	return nil
}

// SelectionFilter represents filter criteria for selection queries
type SelectionFilter struct {
	ID         *uint   `json:"id,omitempty"`
	RaffleID   *uint   `json:"raffle_id,omitempty"`
	ReceiptID  *string `json:"receipt_id,omitempty"`
	PageNumber *int    `json:"page_number,omitempty"`
	Number     *int    `json:"number,omitempty"`
}
