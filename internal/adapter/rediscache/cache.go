// Package rediscache mirrors the latest pipeline state into Redis so
// external dashboards and sibling services can read it without touching the
// process.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/coastal-threat-service/internal/domain"
	"github.com/couchcryptid/coastal-threat-service/internal/stats"
)

const (
	statsKey     = "coastal:stats:latest"
	alertKey     = "coastal:alerts:latest"
	alertChannel = "coastal:alerts"

	// Stale stats are worse than no stats.
	statsTTL = 2 * time.Minute
)

// Cache publishes the latest stats snapshot and alert to Redis.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// Open connects using a redis:// URL and verifies the connection.
func Open(ctx context.Context, url string, logger *slog.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Cache{client: client, logger: logger}, nil
}

// Close releases the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

// PublishStats stores the snapshot under a TTL'd key.
func (c *Cache) PublishStats(ctx context.Context, snap stats.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}
	if err := c.client.Set(ctx, statsKey, data, statsTTL).Err(); err != nil {
		return fmt.Errorf("set stats: %w", err)
	}
	return nil
}

// PublishAlert stores the alert as the latest and notifies subscribers on the
// alert channel.
func (c *Cache) PublishAlert(ctx context.Context, alert domain.Alert) error {
	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.Set(ctx, alertKey, data, 0)
	pipe.Publish(ctx, alertChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}

	c.logger.Debug("alert published to redis", "alert_id", alert.ID)
	return nil
}
