package dto

import (
	"encoding/json"
	"time"
)

// AdminLoginRequest represents the admin login request
type AdminLoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// AdminInitRequest represents the one-time bootstrap of the first admin
// account. Rejected once any admin exists.
type AdminInitRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// AdminDTO represents an admin account in API responses
type AdminDTO struct {
	ID          uint       `json:"id"`
	UUID        string     `json:"uuid"`
	Username    string     `json:"username"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   string     `json:"created_at"`
}

// AdminSessionDTO represents issued admin tokens
type AdminSessionDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// AdminLoginResponse represents a successful admin login
type AdminLoginResponse struct {
	Admin   AdminDTO        `json:"admin"`
	Session AdminSessionDTO `json:"session"`
}

// AuditLogFilterRequest represents the admin audit log query
type AuditLogFilterRequest struct {
	Action   *string `json:"-" query:"action"`
	Resource *string `json:"-" query:"resource"`
	Success  *bool   `json:"-" query:"success"`
	Page     int     `json:"-" query:"page" validate:"omitempty,min=1"`
	PageSize int     `json:"-" query:"page_size" validate:"omitempty,min=1,max=100"`
}

// AuditLogDTO represents one audit log entry in API responses
type AuditLogDTO struct {
	ID           uint            `json:"id"`
	AdminID      *uint           `json:"admin_id,omitempty"`
	Action       string          `json:"action"`
	Resource     string          `json:"resource"`
	ResourceID   *string         `json:"resource_id,omitempty"`
	Description  *string         `json:"description,omitempty"`
	IPAddress    *string         `json:"ip_address,omitempty"`
	RequestID    *string         `json:"request_id,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	Success      bool            `json:"success"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// AuditLogListResponse represents a page of audit log entries
type AuditLogListResponse struct {
	Logs       []AuditLogDTO      `json:"logs"`
	Pagination PaginationResponse `json:"pagination"`
}
