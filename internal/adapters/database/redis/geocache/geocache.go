package geocache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "geocode:"

type Storage struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewStorage(client *redis.Client, ttl time.Duration) *Storage {
	return &Storage{
		redis: client,
		ttl:   ttl,
	}
}

type point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Get returns the cached coordinates of area, if any.
func (s *Storage) Get(ctx context.Context, area string) (geo.Point, bool, error) {
	data, err := s.redis.Get(ctx, key(area)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return geo.Point{}, false, nil
		}
		return geo.Point{}, false, err
	}

	var p point
	if err = json.Unmarshal(data, &p); err != nil {
		return geo.Point{}, false, fmt.Errorf("decode cached point for %q: %w", area, err)
	}
	return geo.Point{Lat: p.Lat, Lon: p.Lon}, true, nil
}

func (s *Storage) Set(ctx context.Context, area string, p geo.Point) error {
	data, err := json.Marshal(point{Lat: p.Lat, Lon: p.Lon})
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key(area), data, s.ttl).Err()
}

func (s *Storage) Clear(ctx context.Context, area string) error {
	return s.redis.Del(ctx, key(area)).Err()
}

func key(area string) string {
	return keyPrefix + strings.ToLower(strings.TrimSpace(area))
}

func (s *Storage) Close() error {
	return s.redis.Close()
}
