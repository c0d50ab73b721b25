// Package cache holds the redis client, its readiness probe and a
// read-through cache for access lookups.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options addresses a redis server.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// New creates a redis client and pings it.
func New(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := Ping(ctx, client); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// Ping checks that the server answers within 5 seconds.
func Ping(ctx context.Context, client redis.UniversalClient) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: ping: %w", err)
	}
	return nil
}

// Probe reports redis readiness for health endpoints.
type Probe struct {
	client redis.UniversalClient
}

// NewProbe creates a probe on client.
func NewProbe(client redis.UniversalClient) *Probe {
	return &Probe{client: client}
}

// Name identifies the probe in health output.
func (p *Probe) Name() string { return "redis" }

// Check pings the server.
func (p *Probe) Check(ctx context.Context) error {
	return Ping(ctx, p.client)
}
