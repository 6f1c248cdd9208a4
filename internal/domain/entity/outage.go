package entity

import (
	"strings"
	"time"

	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
)

// Outage is one scheduled interruption scraped from the source page.
//
// The table is replaced as a whole on every successful scrape, so ID is only
// stable within a single generation.
type Outage struct {
	ID         uint      `gorm:"primaryKey"`
	CreatedAt  time.Time
	Area       string    `gorm:"not null"`
	SubAreas   string
	Status     string
	OutageDate time.Time `gorm:"type:date;not null"`
	OutageTime string    `gorm:"size:8;not null"`
	Latitude   *float64
	Longitude  *float64
}

// Point returns the outage coordinates, or false when geocoding failed.
func (o *Outage) Point() (geo.Point, bool) {
	if o.Latitude == nil || o.Longitude == nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: *o.Latitude, Lon: *o.Longitude}, true
}

// SetPoint stores p as the outage coordinates.
func (o *Outage) SetPoint(p geo.Point) {
	lat, lon := p.Lat, p.Lon
	o.Latitude = &lat
	o.Longitude = &lon
}

// SubAreaList splits SubAreas on commas, dropping blanks.
func (o *Outage) SubAreaList() []string {
	if strings.TrimSpace(o.SubAreas) == "" {
		return []string{}
	}
	parts := strings.Split(o.SubAreas, ",")
	areas := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			areas = append(areas, part)
		}
	}
	return areas
}

// Date formats OutageDate as YYYY-MM-DD.
func (o *Outage) Date() string {
	return o.OutageDate.Format("2006-01-02")
}
