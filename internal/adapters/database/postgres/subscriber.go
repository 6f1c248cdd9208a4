package postgres

import (
	"context"
	"errors"

	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"gorm.io/gorm"
)

type SubscriberStorage struct {
	db *gorm.DB
}

func NewSubscriberStorage(db *gorm.DB) *SubscriberStorage {
	return &SubscriberStorage{
		db: db,
	}
}

// Create is a function that creates a new subscriber in the database.
func (s *SubscriberStorage) Create(ctx context.Context, subscriber *entity.Subscriber) (*entity.Subscriber, error) {
	err := s.db.WithContext(ctx).Create(subscriber).Error
	return subscriber, err
}

// Get returns the subscriber with id, or nil when it does not exist.
func (s *SubscriberStorage) Get(ctx context.Context, id uint) (*entity.Subscriber, error) {
	return s.first(ctx, "id = ?", id)
}

// GetByEmail returns the subscriber registered with email, or nil when there is none.
func (s *SubscriberStorage) GetByEmail(ctx context.Context, email string) (*entity.Subscriber, error) {
	return s.first(ctx, "email = ?", email)
}

func (s *SubscriberStorage) first(ctx context.Context, query string, args ...interface{}) (*entity.Subscriber, error) {
	var subscriber entity.Subscriber
	err := s.db.WithContext(ctx).Where(query, args...).First(&subscriber).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &subscriber, nil
}

// Update is a function that updates a subscriber in the database.
func (s *SubscriberStorage) Update(ctx context.Context, subscriber *entity.Subscriber) (*entity.Subscriber, error) {
	err := s.db.WithContext(ctx).Save(subscriber).Error
	return subscriber, err
}

// Delete removes a subscriber; its notification records go with it.
func (s *SubscriberStorage) Delete(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Delete(&entity.Subscriber{}, id).Error
}

// GetNotifiable returns subscribed users that have both coordinates set.
func (s *SubscriberStorage) GetNotifiable(ctx context.Context) ([]entity.Subscriber, error) {
	var subscribers []entity.Subscriber
	err := s.db.WithContext(ctx).
		Where("is_subscribed = ? AND latitude IS NOT NULL AND longitude IS NOT NULL", true).
		Order("id").
		Find(&subscribers).Error
	return subscribers, err
}

// Count is a function that gets the count of subscribers.
func (s *SubscriberStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&entity.Subscriber{}).Count(&count).Error
	return count, err
}
