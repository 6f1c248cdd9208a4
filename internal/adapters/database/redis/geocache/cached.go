package geocache

import (
	"context"

	"github.com/Badsnus/outage-alerts/internal/adapters/metrics"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
	"github.com/Badsnus/outage-alerts/pkg/logger"
	"github.com/Badsnus/outage-alerts/pkg/logger/types"
)

type geocoder interface {
	Search(ctx context.Context, area string) (geo.Point, error)
}

// Cached serves lookups from Storage and falls through to the wrapped
// geocoder. Only successful lookups are stored.
type Cached struct {
	inner   geocoder
	storage *Storage
	logger  *types.Logger
	metrics *metrics.Metrics
}

func NewCached(inner geocoder, storage *Storage, log *types.Logger, m *metrics.Metrics) *Cached {
	if log == nil {
		log = logger.Nop()
	}
	return &Cached{
		inner:   inner,
		storage: storage,
		logger:  log,
		metrics: m,
	}
}

func (c *Cached) Search(ctx context.Context, area string) (geo.Point, error) {
	p, ok, err := c.storage.Get(ctx, area)
	if err != nil {
		// a broken cache must not stop geocoding
		c.logger.Warnf("geocache get %q: %v", area, err)
	}
	if ok {
		c.observe("hit")
		return p, nil
	}
	c.observe("miss")

	p, err = c.inner.Search(ctx, area)
	if err != nil {
		return geo.Point{}, err
	}

	if err = c.storage.Set(ctx, area, p); err != nil {
		c.logger.Warnf("geocache set %q: %v", area, err)
	}
	return p, nil
}

func (c *Cached) observe(result string) {
	if c.metrics != nil {
		c.metrics.GeocodeCache.WithLabelValues(result).Inc()
	}
}
