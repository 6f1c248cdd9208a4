package postgres

import (
	"context"
	"errors"

	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"gorm.io/gorm"
)

const outageBatchSize = 100

type OutageStorage struct {
	db *gorm.DB
}

func NewOutageStorage(db *gorm.DB) *OutageStorage {
	return &OutageStorage{
		db: db,
	}
}

// Replace deletes every stored outage and inserts outages in a single transaction.
// On any error the transaction is rolled back and the previous generation stays intact.
// The returned slice carries the ids assigned to the new generation.
func (s *OutageStorage) Replace(ctx context.Context, outages []entity.Outage) ([]entity.Outage, error) {
	stored := make([]entity.Outage, len(outages))
	copy(stored, outages)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&entity.Outage{}).Error
		if err != nil {
			return err
		}
		if len(stored) == 0 {
			return nil
		}
		return tx.CreateInBatches(&stored, outageBatchSize).Error
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// GetAll is a function that gets all outages of the current generation.
func (s *OutageStorage) GetAll(ctx context.Context) ([]entity.Outage, error) {
	var outages []entity.Outage
	err := s.db.WithContext(ctx).Order("outage_date, outage_time, area").Find(&outages).Error
	return outages, err
}

// GetLocated returns only outages that have both coordinates.
func (s *OutageStorage) GetLocated(ctx context.Context) ([]entity.Outage, error) {
	var outages []entity.Outage
	err := s.db.WithContext(ctx).
		Where("latitude IS NOT NULL AND longitude IS NOT NULL").
		Order("outage_date, outage_time, area").
		Find(&outages).Error
	return outages, err
}

// Get returns the outage with id, or nil when it does not exist.
func (s *OutageStorage) Get(ctx context.Context, id uint) (*entity.Outage, error) {
	var outage entity.Outage
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&outage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &outage, nil
}

// Count is a function that gets the count of stored outages.
func (s *OutageStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&entity.Outage{}).Count(&count).Error
	return count, err
}
