package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/subaruffles/backend/utils"
	"gorm.io/gorm"
)

// ReceiptStatus represents the payment lifecycle status of a receipt.
//
// The canonical model has four states; the legacy "created" state used by
// earlier revisions is folded into waiting_payment.
type ReceiptStatus string

const (
	ReceiptStatusWaitingPayment  ReceiptStatus = "waiting_payment"
	ReceiptStatusReceiptUploaded ReceiptStatus = "receipt_uploaded"
	ReceiptStatusPaid            ReceiptStatus = "paid"
	ReceiptStatusExpired         ReceiptStatus = "expired"
)

// ActorSystem is the changedBy value recorded for system-driven transitions
const ActorSystem = "system"

// String returns the string representation of the status
func (s ReceiptStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s ReceiptStatus) Valid() bool {
	switch s {
	case ReceiptStatusWaitingPayment, ReceiptStatusReceiptUploaded,
		ReceiptStatusPaid, ReceiptStatusExpired:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status ends the receipt's lifecycle
func (s ReceiptStatus) Terminal() bool {
	return s == ReceiptStatusPaid || s == ReceiptStatusExpired
}

// Scan implements the sql.Scanner interface for ReceiptStatus
func (s *ReceiptStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = ReceiptStatus(v)
	case []byte:
		*s = ReceiptStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into ReceiptStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for ReceiptStatus
func (s ReceiptStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid ReceiptStatus: %s", s)
	}
	return string(s), nil
}

// ClaimedNumber is one (number, page) pair bound to a receipt
type ClaimedNumber struct {
	Number     int `json:"number"`
	PageNumber int `json:"page_number"`
}

// ClaimedNumbers is the ordered, immutable list of numbers on a receipt
type ClaimedNumbers []ClaimedNumber

// Value implements the driver.Valuer interface for ClaimedNumbers
func (n ClaimedNumbers) Value() (driver.Value, error) {
	if n == nil {
		n = ClaimedNumbers{}
	}
	return json.Marshal(n)
}

// Scan implements the sql.Scanner interface for ClaimedNumbers
func (n *ClaimedNumbers) Scan(value any) error {
	if value == nil {
		*n = ClaimedNumbers{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into ClaimedNumbers", value)
	}

	return json.Unmarshal(bytes, n)
}

// StatusChange is one append-only entry in a receipt's status history
type StatusChange struct {
	Status    ReceiptStatus `json:"status"`
	ChangedAt time.Time     `json:"changed_at"`
	ChangedBy *string       `json:"changed_by,omitempty"`
	Note      *string       `json:"note,omitempty"`
}

// StatusHistory is the ordered history log embedded in a receipt
type StatusHistory []StatusChange

// Value implements the driver.Valuer interface for StatusHistory
func (h StatusHistory) Value() (driver.Value, error) {
	if h == nil {
		h = StatusHistory{}
	}
	return json.Marshal(h)
}

// Scan implements the sql.Scanner interface for StatusHistory
func (h *StatusHistory) Scan(value any) error {
	if value == nil {
		*h = StatusHistory{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into StatusHistory", value)
	}

	return json.Unmarshal(bytes, h)
}

// Receipt represents the buyer-facing record of a batch claim and its
// payment status.
// Table: receipts
// Indices: receipt_id (unique), raffle_id, (status, expires_at)
// Numbers and History are stored as JSONB; Numbers never changes after
// creation and History is append-only.
type Receipt struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ReceiptID   string         `gorm:"size:64;not null;uniqueIndex:uk_receipts_receipt_id" json:"receipt_id"`
	RaffleID    uint           `gorm:"not null;index:idx_receipts_raffle_id" json:"raffle_id"`
	Status      ReceiptStatus  `gorm:"type:varchar(32);not null;default:'waiting_payment';index:idx_receipts_status_expires_at,priority:1" json:"status"`
	Numbers     ClaimedNumbers `gorm:"type:jsonb;not null" json:"numbers"`
	Buyer       BuyerContact   `gorm:"type:jsonb;not null" json:"buyer"`
	TotalAmount float64        `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	ExpiresAt   time.Time      `gorm:"not null;index:idx_receipts_status_expires_at,priority:2" json:"expires_at"`
	PaidAt      *time.Time     `json:"paid_at,omitempty"`
	History     StatusHistory  `gorm:"type:jsonb;not null;column:status_history" json:"status_history"`

	// Relations
	Raffle *Raffle `gorm:"foreignKey:RaffleID;references:ID" json:"raffle,omitempty"`
}

func (Receipt) TableName() string { return "receipts" }

// BeforeCreate seeds the status and history so every receipt carries at
// least one history entry from the moment it exists
func (r *Receipt) BeforeCreate(tx *gorm.DB) error {
	if r.Status == "" {
		r.Status = ReceiptStatusWaitingPayment
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.UTCNow()
	}
	if len(r.History) == 0 {
		r.History = StatusHistory{{Status: r.Status, ChangedAt: r.CreatedAt}}
	}
	return nil
}

// InvalidTransitionError reports a status change that the lifecycle rules
// forbid for system-driven callers
type InvalidTransitionError struct {
	From ReceiptStatus
	To   ReceiptStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid receipt transition from %q to %q", e.From, e.To)
}

// systemTransitions lists the transitions allowed when enforce is set.
// Admin-driven changes bypass this table but still append history.
var systemTransitions = map[ReceiptStatus][]ReceiptStatus{
	ReceiptStatusWaitingPayment:  {ReceiptStatusReceiptUploaded, ReceiptStatusPaid, ReceiptStatusExpired},
	ReceiptStatusReceiptUploaded: {ReceiptStatusPaid, ReceiptStatusExpired},
	ReceiptStatusPaid:            {},
	ReceiptStatusExpired:         {},
}

// CanTransition reports whether from→to is a legal system-driven transition
func CanTransition(from, to ReceiptStatus) bool {
	for _, allowed := range systemTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// NextReceipt applies a status transition to a receipt value and returns the
// transitioned copy. The input is never mutated: callers load the current
// receipt, transition it here, then persist the result, so a failed save
// leaves no partially-updated state behind.
//
// When enforce is true only the system transition table is accepted; admin
// callers pass enforce=false and may move the receipt anywhere, with the
// change still recorded in the history. PaidAt is set on the first entry
// into paid and never reset afterwards.
func NextReceipt(current Receipt, to ReceiptStatus, changedBy, note *string, at time.Time, enforce bool) (Receipt, error) {
	if !to.Valid() {
		return Receipt{}, fmt.Errorf("invalid receipt status: %q", to)
	}
	if enforce && !CanTransition(current.Status, to) {
		return Receipt{}, &InvalidTransitionError{From: current.Status, To: to}
	}

	next := current

	// History is append-only; copy so the caller's slice stays untouched
	history := make(StatusHistory, len(current.History), len(current.History)+1)
	copy(history, current.History)
	next.History = append(history, StatusChange{
		Status:    to,
		ChangedAt: at,
		ChangedBy: changedBy,
		Note:      note,
	})

	next.Status = to
	if to == ReceiptStatusPaid && current.PaidAt == nil {
		paidAt := at
		next.PaidAt = &paidAt
	}

	return next, nil
}

// IsOverdue reports whether the receipt is past its payment deadline and
// still in a non-terminal state
func (r *Receipt) IsOverdue(now time.Time) bool {
	return !r.Status.Terminal() && !now.Before(r.ExpiresAt)
}

// ReceiptFilter represents filter criteria for receipt queries
type ReceiptFilter struct {
	ID            *uint          `json:"id,omitempty"`
	ReceiptID     *string        `json:"receipt_id,omitempty"`
	RaffleID      *uint          `json:"raffle_id,omitempty"`
	Status        *ReceiptStatus `json:"status,omitempty"`
	ExpiresBefore *time.Time     `json:"expires_before,omitempty"`
	CreatedAfter  *time.Time     `json:"created_after,omitempty"`
	CreatedBefore *time.Time     `json:"created_before,omitempty"`
}
