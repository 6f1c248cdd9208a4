package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/Badsnus/outage-alerts/internal/adapters/database/redis/geocache"
	"github.com/redis/go-redis/v9"
)

const PipelineLockKey = "outages:pipeline:lock"

type Client struct {
	// Locks holds coordination keys such as the pipeline lock.
	Locks    *redis.Client
	Geocache *geocache.Storage
}

type Options struct {
	Host     string
	Port     string
	Password string
	// DB is used for locks; the geocode cache lives in DB+1.
	DB          int
	GeocacheTTL time.Duration
}

func New(ctx context.Context, opts Options) (*Client, error) {
	lockStorage := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := lockStorage.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping lock storage: %w", err)
	}

	geocodeStorage := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", opts.Host, opts.Port),
		Password: opts.Password,
		DB:       opts.DB + 1,
	})
	if err := geocodeStorage.Ping(ctx).Err(); err != nil {
		_ = lockStorage.Close()
		return nil, fmt.Errorf("failed to ping geocode storage: %w", err)
	}

	return &Client{
		Locks:    lockStorage,
		Geocache: geocache.NewStorage(geocodeStorage, opts.GeocacheTTL),
	}, nil
}

func (c *Client) Close() error {
	err := c.Locks.Close()
	if cerr := c.Geocache.Close(); err == nil {
		err = cerr
	}
	return err
}
