package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Badsnus/outage-alerts/internal/adapters/metrics"
	"github.com/Badsnus/outage-alerts/internal/domain/common/errorz"
	"github.com/Badsnus/outage-alerts/internal/domain/service"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
	"github.com/Badsnus/outage-alerts/pkg/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type stubGeocoder map[string]error

func (s stubGeocoder) Search(_ context.Context, area string) (geo.Point, error) {
	if err, ok := s[area]; ok {
		return geo.Point{}, err
	}
	return geo.Point{Lat: 0.4, Lon: 32.4}, nil
}

func TestLocator_Locate(t *testing.T) {
	m := metrics.NewMetricsForTesting()
	locator := service.NewLocator(logger.Nop(), m, stubGeocoder{
		"Atlantis": fmt.Errorf("%w: %q", errorz.ErrNoGeocodeMatch, "Atlantis, Uganda"),
		"Jinja":    errors.New("context deadline exceeded"),
	})
	ctx := context.Background()

	p, ok := locator.Locate(ctx, "Wakiso")
	assert.True(t, ok)
	assert.Equal(t, geo.Point{Lat: 0.4, Lon: 32.4}, p)

	_, ok = locator.Locate(ctx, "Atlantis")
	assert.False(t, ok)

	_, ok = locator.Locate(ctx, "Jinja")
	assert.False(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GeocodeRequests.WithLabelValues("error")))
}
