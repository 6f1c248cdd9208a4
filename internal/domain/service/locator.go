package service

import (
	"context"
	"errors"

	"github.com/Badsnus/outage-alerts/internal/adapters/metrics"
	"github.com/Badsnus/outage-alerts/internal/domain/common/errorz"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
	"github.com/Badsnus/outage-alerts/pkg/logger/types"
)

type geocoder interface {
	Search(ctx context.Context, area string) (geo.Point, error)
}

// Locator turns district names into coordinates. Lookup failures never
// propagate: the caller just gets no point.
type Locator struct {
	geocoder geocoder
	logger   *types.Logger
	metrics  *metrics.Metrics
}

func NewLocator(logger *types.Logger, metrics *metrics.Metrics, geocoder geocoder) *Locator {
	return &Locator{
		geocoder: geocoder,
		logger:   logger,
		metrics:  metrics,
	}
}

func (l *Locator) Locate(ctx context.Context, area string) (geo.Point, bool) {
	p, err := l.geocoder.Search(ctx, area)
	switch {
	case err == nil:
		l.observe("success")
		l.logger.Debugf("geocoded %q: (%f, %f)", area, p.Lat, p.Lon)
		return p, true
	case errors.Is(err, errorz.ErrNoGeocodeMatch):
		l.observe("empty")
		l.logger.Warnf("no coordinates for %q, storing without location", area)
	default:
		l.observe("error")
		l.logger.Warnf("geocoding %q failed, storing without location: %v", area, err)
	}
	return geo.Point{}, false
}

func (l *Locator) observe(outcome string) {
	if l.metrics != nil {
		l.metrics.GeocodeRequests.WithLabelValues(outcome).Inc()
	}
}
