package entity

import (
	"time"

	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
)

// Subscriber is a registered user that may receive outage alerts.
type Subscriber struct {
	ID           uint `gorm:"primaryKey"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Name         string
	Email        string `gorm:"not null;uniqueIndex"`
	Phone        string
	IsSubscribed bool `gorm:"not null;default:false"`
	Latitude     *float64
	Longitude    *float64
}

// Point returns the saved location, or false until the user sets one.
func (s *Subscriber) Point() (geo.Point, bool) {
	if s.Latitude == nil || s.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *s.Latitude, Lon: *s.Longitude}, true
}

// SetPoint stores p as the saved location.
func (s *Subscriber) SetPoint(p geo.Point) {
	lat, lon := p.Lat, p.Lon
	s.Latitude = &lat
	s.Longitude = &lon
}

// Notifiable reports whether the subscriber takes part in a notification pass.
func (s *Subscriber) Notifiable() bool {
	_, ok := s.Point()
	return s.IsSubscribed && ok
}
