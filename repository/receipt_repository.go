package repository

import (
	"context"
	"time"

	"github.com/subaruffles/backend/models"
	"gorm.io/gorm"
)

// ReceiptRepositoryImpl implements ReceiptRepository interface
type ReceiptRepositoryImpl struct {
	*BaseRepository[models.Receipt, models.ReceiptFilter]
}

// NewReceiptRepository creates a new receipt repository
func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &ReceiptRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Receipt, models.ReceiptFilter](db),
	}
}

// ByReceiptID retrieves a receipt by its public identifier
func (r *ReceiptRepositoryImpl) ByReceiptID(ctx context.Context, receiptID string) (*models.Receipt, error) {
	rows, err := r.ByFilter(ctx, models.ReceiptFilter{ReceiptID: &receiptID}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// ReceiptIDExists reports whether the public identifier is already in use
func (r *ReceiptRepositoryImpl) ReceiptIDExists(ctx context.Context, receiptID string) (bool, error) {
	return r.Exists(ctx, models.ReceiptFilter{ReceiptID: &receiptID})
}

// ListByRaffle returns all receipts of a raffle, newest first
func (r *ReceiptRepositoryImpl) ListByRaffle(ctx context.Context, raffleID uint) ([]*models.Receipt, error) {
	return r.ByFilter(ctx, models.ReceiptFilter{RaffleID: &raffleID}, "created_at DESC", 0, 0)
}

// ListOverdue returns non-terminal receipts whose payment deadline has
// passed, served by the composite index on (status, expires_at)
func (r *ReceiptRepositoryImpl) ListOverdue(ctx context.Context, now time.Time) ([]*models.Receipt, error) {
	db := r.getDB(ctx)
	var rows []*models.Receipt
	err := db.Where("status IN ? AND expires_at <= ?",
		[]models.ReceiptStatus{models.ReceiptStatusWaitingPayment, models.ReceiptStatusReceiptUploaded}, now).
		Order("expires_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveTransition persists the fields a status transition changes
func (r *ReceiptRepositoryImpl) SaveTransition(ctx context.Context, receipt *models.Receipt) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	err = db.Model(&models.Receipt{}).
		Where("id = ?", receipt.ID).
		Updates(map[string]any{
			"status":         receipt.Status,
			"paid_at":        receipt.PaidAt,
			"status_history": receipt.History,
		}).Error
	return err
}

// ListExpiredBefore returns receipt IDs of expired receipts whose deadline
// passed before the cutoff
func (r *ReceiptRepositoryImpl) ListExpiredBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	db := r.getDB(ctx)
	var ids []string
	err := db.Model(&models.Receipt{}).
		Where("status = ? AND expires_at < ?", models.ReceiptStatusExpired, cutoff).
		Pluck("receipt_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteByReceiptIDs removes the given receipts and returns how many rows
// were deleted
func (r *ReceiptRepositoryImpl) DeleteByReceiptIDs(ctx context.Context, receiptIDs []string) (int64, error) {
	if len(receiptIDs) == 0 {
		return 0, nil
	}
	db := r.getDB(ctx)
	res := db.Where("receipt_id IN ?", receiptIDs).Delete(&models.Receipt{})
	return res.RowsAffected, res.Error
}

// applyFilter applies filter criteria to a GORM query
func (r *ReceiptRepositoryImpl) applyFilter(query *gorm.DB, filter models.ReceiptFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.ReceiptID != nil {
		query = query.Where("receipt_id = ?", *filter.ReceiptID)
	}
	if filter.RaffleID != nil {
		query = query.Where("raffle_id = ?", *filter.RaffleID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ExpiresBefore != nil {
		query = query.Where("expires_at < ?", *filter.ExpiresBefore)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves receipts based on filter criteria
func (r *ReceiptRepositoryImpl) ByFilter(ctx context.Context, filter models.ReceiptFilter, orderBy string, limit, offset int) ([]*models.Receipt, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Receipt{})

	query = r.applyFilter(query, filter)

	if orderBy == "" {
		orderBy = "id DESC"
	}
	query = query.Order(orderBy)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []*models.Receipt
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of receipts matching filter
func (r *ReceiptRepositoryImpl) Count(ctx context.Context, filter models.ReceiptFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Receipt{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any receipt matches the filter
func (r *ReceiptRepositoryImpl) Exists(ctx context.Context, filter models.ReceiptFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
