// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/subaruffles/backend/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// RaffleRepository defines operations for raffles
type RaffleRepository interface {
	Repository[models.Raffle, models.RaffleFilter]
	ListAll(ctx context.Context) ([]*models.Raffle, error)
	Update(ctx context.Context, raffle *models.Raffle) error
	Delete(ctx context.Context, id uint) (bool, error)
}

// SelectionRepository defines operations for the number ledger
type SelectionRepository interface {
	Repository[models.Selection, models.SelectionFilter]
	ListByRaffle(ctx context.Context, raffleID uint) ([]*models.Selection, error)
	ListByRafflePage(ctx context.Context, raffleID uint, page int) ([]*models.Selection, error)
	ListByReceipt(ctx context.Context, receiptID string) ([]*models.Selection, error)
	ByRafflePageNumber(ctx context.Context, raffleID uint, page, number int) (*models.Selection, error)
	IsClaimed(ctx context.Context, raffleID uint, number, page int) (bool, error)
	// ClaimBatch inserts all entries in one statement; a uniqueness violation
	// surfaces as gorm.ErrDuplicatedKey and nothing is written.
	ClaimBatch(ctx context.Context, entries []*models.Selection) error
	// FirstClaimed returns the first already-claimed entry among the given
	// pairs, used to name the exact conflict after a failed ClaimBatch.
	FirstClaimed(ctx context.Context, raffleID uint, claims []models.ClaimedNumber) (*models.Selection, error)
	ReleaseByReceipt(ctx context.Context, receiptID string) (int64, error)
	DeleteByRaffle(ctx context.Context, raffleID uint) (int64, error)
	DeleteOrphaned(ctx context.Context) (int64, error)
	CountByRaffle(ctx context.Context, raffleID uint) (int64, error)
}

// ReceiptRepository defines operations for receipts
type ReceiptRepository interface {
	Repository[models.Receipt, models.ReceiptFilter]
	ByReceiptID(ctx context.Context, receiptID string) (*models.Receipt, error)
	ReceiptIDExists(ctx context.Context, receiptID string) (bool, error)
	ListByRaffle(ctx context.Context, raffleID uint) ([]*models.Receipt, error)
	// ListOverdue returns receipts in a non-terminal state whose payment
	// deadline has passed.
	ListOverdue(ctx context.Context, now time.Time) ([]*models.Receipt, error)
	// SaveTransition persists the outcome of a status transition: status,
	// paid_at, and the appended history.
	SaveTransition(ctx context.Context, receipt *models.Receipt) error
	// ListExpiredBefore returns receipt IDs of expired receipts whose
	// deadline passed before the cutoff, for the cleanup job.
	ListExpiredBefore(ctx context.Context, cutoff time.Time) ([]string, error)
	DeleteByReceiptIDs(ctx context.Context, receiptIDs []string) (int64, error)
}

// AdminRepository defines operations for admin accounts
type AdminRepository interface {
	Repository[models.Admin, models.AdminFilter]
	ByUsername(ctx context.Context, username string) (*models.Admin, error)
	Any(ctx context.Context) (bool, error)
	UpdateLastLogin(ctx context.Context, adminID uint, at time.Time) error
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
