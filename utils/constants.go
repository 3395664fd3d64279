package utils

import (
	"time"
)

// Request context keys
const (
	RequestIDKey  = "X-Request-ID"
	UserAgentKey  = "user_agent"
	IPAddressKey  = "ip_address"
	EndpointKey   = "endpoint"
	TimeoutKey    = "timeout"
	CancelFuncKey = "cancel_func"
)

// CORS constants
const (
	// CORSMaxAge is how long (in seconds) browsers may cache CORS
	// preflight responses; matches the CORS_MAX_AGE config default
	CORSMaxAge = 86400
)

// Raffle layout constants
const (
	// NumbersPerPage is the number of ticket numbers shown per page
	NumbersPerPage = 100

	// MinTotalNumbers is the smallest raffle size that can be created
	MinTotalNumbers = 100

	// DefaultExpirationMinutes is the payment deadline applied when a raffle
	// does not configure one explicitly
	DefaultExpirationMinutes = 30
)

// Receipt identifier constants
const (
	// ReceiptIDLength is the number of characters in a generated receipt ID
	// (13 chars * 5 bits ~= 65 bits of entropy)
	ReceiptIDLength = 13

	// ReceiptIDMaxAttempts caps the collision-retry loop before falling back
	// to a UUID
	ReceiptIDMaxAttempts = 3
)

// Upload constants
const (
	// MaxProofFileSize caps payment proof uploads (10 MB)
	MaxProofFileSize = 10 << 20
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for admin access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// Background job constants
const (
	// ExpiredReceiptRetention is how long expired receipts are kept before
	// the cleanup job purges them
	ExpiredReceiptRetention = 7 * 24 * time.Hour

	// AuditLogRetention is how long audit logs are kept
	AuditLogRetention = 90 * 24 * time.Hour
)
