package repository

import (
	"context"
	"errors"

	"github.com/subaruffles/backend/models"
	"gorm.io/gorm"
)

// SelectionRepositoryImpl implements SelectionRepository interface
type SelectionRepositoryImpl struct {
	*BaseRepository[models.Selection, models.SelectionFilter]
}

// NewSelectionRepository creates a new selection repository
func NewSelectionRepository(db *gorm.DB) SelectionRepository {
	return &SelectionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Selection, models.SelectionFilter](db),
	}
}

// ListByRaffle returns every claim for a raffle ordered by page then number
func (r *SelectionRepositoryImpl) ListByRaffle(ctx context.Context, raffleID uint) ([]*models.Selection, error) {
	return r.ByFilter(ctx, models.SelectionFilter{RaffleID: &raffleID}, "page_number ASC, number ASC", 0, 0)
}

// ListByRafflePage returns the claims on one page of a raffle
func (r *SelectionRepositoryImpl) ListByRafflePage(ctx context.Context, raffleID uint, page int) ([]*models.Selection, error) {
	return r.ByFilter(ctx, models.SelectionFilter{RaffleID: &raffleID, PageNumber: &page}, "number ASC", 0, 0)
}

// ListByReceipt returns all claims owned by a receipt, ordered by number
func (r *SelectionRepositoryImpl) ListByReceipt(ctx context.Context, receiptID string) ([]*models.Selection, error) {
	return r.ByFilter(ctx, models.SelectionFilter{ReceiptID: &receiptID}, "number ASC", 0, 0)
}

// ByRafflePageNumber returns the claim for one exact (page, number) pair
func (r *SelectionRepositoryImpl) ByRafflePageNumber(ctx context.Context, raffleID uint, page, number int) (*models.Selection, error) {
	rows, err := r.ByFilter(ctx, models.SelectionFilter{RaffleID: &raffleID, PageNumber: &page, Number: &number}, "", 1, 0)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// IsClaimed reports whether the (number, page) pair is already taken
func (r *SelectionRepositoryImpl) IsClaimed(ctx context.Context, raffleID uint, number, page int) (bool, error) {
	return r.Exists(ctx, models.SelectionFilter{RaffleID: &raffleID, PageNumber: &page, Number: &number})
}

// ClaimBatch inserts all ledger entries with a single INSERT so the unique
// index on (raffle_id, page_number, number) decides every race. Any conflict
// fails the whole statement; with the surrounding transaction rolled back
// there are no partial writes.
func (r *SelectionRepositoryImpl) ClaimBatch(ctx context.Context, entries []*models.Selection) error {
	if len(entries) == 0 {
		return nil
	}

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

	err = db.Create(&entries).Error
	return err
}

// FirstClaimed returns the first entry among the given pairs that already
// exists in the ledger, lowest number first
func (r *SelectionRepositoryImpl) FirstClaimed(ctx context.Context, raffleID uint, claims []models.ClaimedNumber) (*models.Selection, error) {
	if len(claims) == 0 {
		return nil, nil
	}
	db := r.getDB(ctx)

	pairs := make([][]any, 0, len(claims))
	for _, c := range claims {
		pairs = append(pairs, []any{c.PageNumber, c.Number})
	}

	var row models.Selection
	err := db.Where("raffle_id = ? AND (page_number, number) IN ?", raffleID, pairs).
		Order("number ASC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ReleaseByReceipt deletes all ledger entries owned by a receipt. The delete
// is idempotent: releasing a receipt with no entries is a no-op.
func (r *SelectionRepositoryImpl) ReleaseByReceipt(ctx context.Context, receiptID string) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("receipt_id = ?", receiptID).Delete(&models.Selection{})
	return res.RowsAffected, res.Error
}

// DeleteByRaffle removes every claim of a raffle (raffle deletion cascade)
func (r *SelectionRepositoryImpl) DeleteByRaffle(ctx context.Context, raffleID uint) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("raffle_id = ?", raffleID).Delete(&models.Selection{})
	return res.RowsAffected, res.Error
}

// DeleteOrphaned removes claims whose owning receipt no longer exists
func (r *SelectionRepositoryImpl) DeleteOrphaned(ctx context.Context) (int64, error) {
	db := r.getDB(ctx)
	res := db.Where("receipt_id NOT IN (?)", db.Session(&gorm.Session{NewDB: true}).Model(&models.Receipt{}).Select("receipt_id")).
		Delete(&models.Selection{})
	return res.RowsAffected, res.Error
}

// CountByRaffle returns the number of taken numbers in a raffle
func (r *SelectionRepositoryImpl) CountByRaffle(ctx context.Context, raffleID uint) (int64, error) {
	return r.Count(ctx, models.SelectionFilter{RaffleID: &raffleID})
}

// applyFilter applies filter criteria to a GORM query
func (r *SelectionRepositoryImpl) applyFilter(query *gorm.DB, filter models.SelectionFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.RaffleID != nil {
		query = query.Where("raffle_id = ?", *filter.RaffleID)
	}
	if filter.ReceiptID != nil {
		query = query.Where("receipt_id = ?", *filter.ReceiptID)
	}
	if filter.PageNumber != nil {
		query = query.Where("page_number = ?", *filter.PageNumber)
	}
	if filter.Number != nil {
		query = query.Where("number = ?", *filter.Number)
	}
	return query
}

// ByFilter retrieves selections based on filter criteria
func (r *SelectionRepositoryImpl) ByFilter(ctx context.Context, filter models.SelectionFilter, orderBy string, limit, offset int) ([]*models.Selection, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Selection{})

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

	var rows []*models.Selection
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of selections matching filter
func (r *SelectionRepositoryImpl) Count(ctx context.Context, filter models.SelectionFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Selection{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any selection matches the filter
func (r *SelectionRepositoryImpl) Exists(ctx context.Context, filter models.SelectionFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
