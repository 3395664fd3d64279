package repository

import (
	"context"
	"errors"

	"github.com/subaruffles/backend/models"
	"github.com/subaruffles/backend/utils"
	"gorm.io/gorm"
)

// RaffleRepositoryImpl implements RaffleRepository interface
type RaffleRepositoryImpl struct {
	*BaseRepository[models.Raffle, models.RaffleFilter]
}

// NewRaffleRepository creates a new raffle repository
func NewRaffleRepository(db *gorm.DB) RaffleRepository {
	return &RaffleRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Raffle, models.RaffleFilter](db),
	}
}

// ByID retrieves a raffle by its ID
func (r *RaffleRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Raffle, error) {
	db := r.getDB(ctx)
	var row models.Raffle
	if err := db.Last(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListAll returns all raffles, newest first
func (r *RaffleRepositoryImpl) ListAll(ctx context.Context) ([]*models.Raffle, error) {
	return r.ByFilter(ctx, models.RaffleFilter{}, "created_at DESC", 0, 0)
}

// Update persists modified raffle fields
func (r *RaffleRepositoryImpl) Update(ctx context.Context, raffle *models.Raffle) error {
	db := r.getDB(ctx)
	raffle.UpdatedAt = utils.UTCNow()
	return db.Save(raffle).Error
}

// Delete removes a raffle; returns false when no row existed
func (r *RaffleRepositoryImpl) Delete(ctx context.Context, id uint) (bool, error) {
	db := r.getDB(ctx)
	res := db.Delete(&models.Raffle{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// applyFilter applies filter criteria to a GORM query
func (r *RaffleRepositoryImpl) applyFilter(query *gorm.DB, filter models.RaffleFilter) *gorm.DB {
	if filter.ID != nil {
		query = query.Where("id = ?", *filter.ID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.EndsAfter != nil {
		query = query.Where("end_date > ?", *filter.EndsAfter)
	}
	if filter.EndsBefore != nil {
		query = query.Where("end_date < ?", *filter.EndsBefore)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

// ByFilter retrieves raffles based on filter criteria
func (r *RaffleRepositoryImpl) ByFilter(ctx context.Context, filter models.RaffleFilter, orderBy string, limit, offset int) ([]*models.Raffle, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Raffle{})

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

	var rows []*models.Raffle
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns number of raffles matching filter
func (r *RaffleRepositoryImpl) Count(ctx context.Context, filter models.RaffleFilter) (int64, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.Raffle{})
	query = r.applyFilter(query, filter)
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any raffle matches the filter
func (r *RaffleRepositoryImpl) Exists(ctx context.Context, filter models.RaffleFilter) (bool, error) {
	c, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return c > 0, nil
}
