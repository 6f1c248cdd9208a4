package dto

import (
	"math"

	"github.com/Badsnus/outage-alerts/internal/domain/entity"
)

// Alert is one outage entry of a subscriber's digest email
type Alert struct {
	OutageID   uint
	OutageKey  string
	Area       string
	SubAreas   []string
	DistanceKm float64
	Date       string
	Time       string
}

func NewAlertFromEntity(outage entity.Outage, key string, distanceKm float64) Alert {
	return Alert{
		OutageID:   outage.ID,
		OutageKey:  key,
		Area:       outage.Area,
		SubAreas:   outage.SubAreaList(),
		DistanceKm: math.Round(distanceKm*100) / 100,
		Date:       outage.Date(),
		Time:       outage.OutageTime,
	}
}
