package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Badsnus/outage-alerts/internal/domain/common/errorz"
	"github.com/Badsnus/outage-alerts/internal/domain/dto"
	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/validator"
	playground "github.com/go-playground/validator/v10"
)

type SubscriberStorage interface {
	Create(ctx context.Context, subscriber *entity.Subscriber) (*entity.Subscriber, error)
	GetByEmail(ctx context.Context, email string) (*entity.Subscriber, error)
	Update(ctx context.Context, subscriber *entity.Subscriber) (*entity.Subscriber, error)
}

type SubscriberService struct {
	storage  SubscriberStorage
	validate *playground.Validate
}

func NewSubscriberService(storage SubscriberStorage) *SubscriberService {
	return &SubscriberService{
		storage:  storage,
		validate: validator.New(),
	}
}

// Register stores a new subscribed user. Emails are compared case-insensitively.
func (s *SubscriberService) Register(ctx context.Context, in dto.SubscriberCreate) (*dto.Subscriber, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", errorz.ErrInvalidInput, err)
	}

	existing, err := s.storage.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errorz.ErrSubscriberExists
	}

	subscriber := &entity.Subscriber{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		IsSubscribed: true,
	}
	subscriber.SetPoint(geo.Point{Lat: in.Latitude, Lon: in.Longitude})

	created, err := s.storage.Create(ctx, subscriber)
	if err != nil {
		return nil, err
	}
	result := dto.NewSubscriberFromEntity(*created)
	return &result, nil
}

// SetSubscribed toggles alert delivery. It returns nil when no user has the email.
func (s *SubscriberService) SetSubscribed(ctx context.Context, email string, subscribed bool) (*dto.Subscriber, error) {
	subscriber, err := s.storage.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || subscriber == nil {
		return nil, err
	}

	subscriber.IsSubscribed = subscribed
	updated, err := s.storage.Update(ctx, subscriber)
	if err != nil {
		return nil, err
	}
	result := dto.NewSubscriberFromEntity(*updated)
	return &result, nil
}
