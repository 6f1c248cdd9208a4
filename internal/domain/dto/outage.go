package dto

import (
	"math"

	"github.com/Badsnus/outage-alerts/internal/domain/entity"
)

type Outage struct {
	ID        uint     `json:"id"`
	Area      string   `json:"area"`
	SubAreas  []string `json:"sub_areas"`
	Status    string   `json:"status,omitempty"`
	Date      string   `json:"date"`
	Time      string   `json:"time"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func NewOutageFromEntity(outage entity.Outage) Outage {
	return Outage{
		ID:        outage.ID,
		Area:      outage.Area,
		SubAreas:  outage.SubAreaList(),
		Status:    outage.Status,
		Date:      outage.Date(),
		Time:      outage.OutageTime,
		Latitude:  outage.Latitude,
		Longitude: outage.Longitude,
	}
}

// NearbyOutage is an outage returned by a proximity query
type NearbyOutage struct {
	Area       string   `json:"area"`
	SubAreas   []string `json:"sub_areas"`
	Date       string   `json:"date"`
	Time       string   `json:"time"`
	DistanceKm float64  `json:"distance_km"`
}

func NewNearbyOutageFromEntity(outage entity.Outage, distanceKm float64) NearbyOutage {
	return NearbyOutage{
		Area:       outage.Area,
		SubAreas:   outage.SubAreaList(),
		Date:       outage.Date(),
		Time:       outage.OutageTime,
		DistanceKm: math.Round(distanceKm*100) / 100,
	}
}
