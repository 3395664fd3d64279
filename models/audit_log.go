package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	AdminID      *uint           `gorm:"index:idx_audit_admin_id" json:"admin_id,omitempty"`
	Admin        *Admin          `gorm:"foreignKey:AdminID;references:ID" json:"admin,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Resource     string          `gorm:"size:64;not null;index:idx_audit_resource" json:"resource"`
	ResourceID   *string         `gorm:"size:64" json:"resource_id,omitempty"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"size:64;index:idx_audit_ip_address" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionLoginSuccess    = "login_success"
	AuditActionLoginFailed     = "login_failed"
	AuditActionAdminCreated    = "admin_created"
	AuditActionRaffleCreated   = "raffle_created"
	AuditActionRaffleUpdated   = "raffle_updated"
	AuditActionRaffleClosed    = "raffle_status_changed"
	AuditActionRaffleDeleted   = "raffle_deleted"
	AuditActionReservationMade = "reservation_made"
	AuditActionProofUploaded   = "proof_uploaded"
	AuditActionStatusChanged   = "receipt_status_changed"
	AuditActionReceiptExpired  = "receipt_expired"
	AuditActionExport          = "export"
)

// Audit resource constants
const (
	AuditResourceAdmin     = "admin"
	AuditResourceRaffle    = "raffle"
	AuditResourceReceipt   = "receipt"
	AuditResourceSelection = "selection"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	AdminID       *uint
	Action        *string
	Resource      *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
