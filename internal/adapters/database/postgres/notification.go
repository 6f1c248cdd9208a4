package postgres

import (
	"context"

	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NotificationStorage struct {
	db *gorm.DB
}

func NewNotificationStorage(db *gorm.DB) *NotificationStorage {
	return &NotificationStorage{
		db: db,
	}
}

// NotifiedKeys returns the subset of keys the subscriber has already been alerted about.
func (s *NotificationStorage) NotifiedKeys(ctx context.Context, subscriberID uint, keys []string) (map[string]struct{}, error) {
	notified := make(map[string]struct{})
	if len(keys) == 0 {
		return notified, nil
	}

	var found []string
	err := s.db.WithContext(ctx).
		Model(&entity.NotificationRecord{}).
		Where("subscriber_id = ? AND outage_key IN ?", subscriberID, keys).
		Pluck("outage_key", &found).Error
	if err != nil {
		return nil, err
	}

	for _, key := range found {
		notified[key] = struct{}{}
	}
	return notified, nil
}

// CreateMany records notifications in one transaction. Pairs that already exist are
// left untouched, so the call is safe to repeat. Returns the number of new records.
func (s *NotificationStorage) CreateMany(ctx context.Context, records []entity.NotificationRecord) (int64, error) {
	if len(records) == 0 {
		return 0, nil
	}

	var created int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit("Subscriber").Create(&records)
		created = result.RowsAffected
		return result.Error
	})
	return created, err
}

// CountBySubscriber is a function that counts the ledger entries of a subscriber.
func (s *NotificationStorage) CountBySubscriber(ctx context.Context, subscriberID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&entity.NotificationRecord{}).Where("subscriber_id = ?", subscriberID).Count(&count).Error
	return count, err
}
