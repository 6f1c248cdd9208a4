package dto

import "github.com/Badsnus/outage-alerts/internal/domain/entity"

type SubscriberCreate struct {
	Name      string  `json:"name" validate:"max=120"`
	Email     string  `json:"email" validate:"required,email"`
	Phone     string  `json:"phone" validate:"max=32"`
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

type Subscriber struct {
	ID           uint     `json:"id"`
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email"`
	IsSubscribed bool     `json:"is_subscribed"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
}

func NewSubscriberFromEntity(subscriber entity.Subscriber) Subscriber {
	return Subscriber{
		ID:           subscriber.ID,
		Name:         subscriber.Name,
		Email:        subscriber.Email,
		IsSubscribed: subscriber.IsSubscribed,
		Latitude:     subscriber.Latitude,
		Longitude:    subscriber.Longitude,
	}
}
