package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/Badsnus/outage-alerts/internal/domain/common/errorz"
	"github.com/Badsnus/outage-alerts/internal/domain/dto"
	"github.com/Badsnus/outage-alerts/internal/domain/entity"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
)

type OutageStorage interface {
	GetAll(ctx context.Context) ([]entity.Outage, error)
	GetLocated(ctx context.Context) ([]entity.Outage, error)
}

type RunStorage interface {
	LastRun(ctx context.Context) (*entity.PipelineRun, error)
}

type OutageService struct {
	outageStorage OutageStorage
	runStorage    RunStorage
	thresholdKm   float64
}

func NewOutageService(outageStorage OutageStorage, runStorage RunStorage, thresholdKm float64) *OutageService {
	if thresholdKm <= 0 {
		thresholdKm = DefaultThresholdKm
	}
	return &OutageService{
		outageStorage: outageStorage,
		runStorage:    runStorage,
		thresholdKm:   thresholdKm,
	}
}

func (s *OutageService) ThresholdKm() float64 {
	return s.thresholdKm
}

// List returns every stored outage, located or not.
func (s *OutageService) List(ctx context.Context) ([]dto.Outage, error) {
	outages, err := s.outageStorage.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]dto.Outage, 0, len(outages))
	for _, outage := range outages {
		result = append(result, dto.NewOutageFromEntity(outage))
	}
	return result, nil
}

// CheckNearby returns the stored outages within the alert threshold of p,
// nearest first.
func (s *OutageService) CheckNearby(ctx context.Context, p geo.Point) ([]dto.NearbyOutage, error) {
	if err := validatePoint(p); err != nil {
		return nil, err
	}

	outages, err := s.outageStorage.GetLocated(ctx)
	if err != nil {
		return nil, err
	}

	nearby := make([]dto.NearbyOutage, 0)
	for _, outage := range outages {
		location, ok := outage.Point()
		if !ok {
			continue
		}
		if distance, near := geo.Within(p, location, s.thresholdKm); near {
			nearby = append(nearby, dto.NewNearbyOutageFromEntity(outage, distance))
		}
	}
	sort.SliceStable(nearby, func(i, j int) bool {
		return nearby[i].DistanceKm < nearby[j].DistanceKm
	})
	return nearby, nil
}

// LatestRun returns nil when the pipeline never ran.
func (s *OutageService) LatestRun(ctx context.Context) (*dto.RunReport, error) {
	run, err := s.runStorage.LastRun(ctx)
	if err != nil || run == nil {
		return nil, err
	}
	report := dto.NewRunReportFromEntity(*run)
	return &report, nil
}

func validatePoint(p geo.Point) error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("%w: not a number", errorz.ErrInvalidPoint)
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: (%g, %g) out of range", errorz.ErrInvalidPoint, p.Lat, p.Lon)
	}
	return nil
}
