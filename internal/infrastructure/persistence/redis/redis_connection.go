// Package redis provides the Redis connection and the prediction fingerprint
// cache built on top of it.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/floodguard/serving/internal/config"
	"github.com/floodguard/serving/pkg/logger"
)

// Connection manages the Redis client lifecycle.
type Connection struct {
	client redis.UniversalClient
	logger logger.Logger
}

// NewConnection builds a universal client from config and verifies
// connectivity with a ping.
func NewConnection(cfg *config.RedisConfig, log logger.Logger) (*Connection, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        cfg.Addresses,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	log.Info(ctx, "redis connection established",
		logger.Any("addresses", cfg.Addresses),
		logger.Int("pool_size", cfg.PoolSize),
	)

	return &Connection{client: client, logger: log}, nil
}

// NewConnectionFromClient wraps an existing client. Used in tests with
// miniredis.
func NewConnectionFromClient(client redis.UniversalClient, log logger.Logger) *Connection {
	return &Connection{client: client, logger: log}
}

// Client returns the underlying client.
func (c *Connection) Client() redis.UniversalClient { return c.client }

// Ping checks server connectivity.
func (c *Connection) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// HealthCheck reports connectivity, round-trip latency, and pool stats.
func (c *Connection) HealthCheck(ctx context.Context) map[string]interface{} {
	health := make(map[string]interface{})

	start := time.Now()
	err := c.client.Ping(ctx).Err()
	health["connected"] = err == nil
	health["latency_ms"] = time.Since(start).Milliseconds()
	if err != nil {
		health["error"] = err.Error()
		return health
	}

	stats := c.client.PoolStats()
	health["total_conns"] = stats.TotalConns
	health["idle_conns"] = stats.IdleConns
	health["pool_timeouts"] = stats.Timeouts

	return health
}

// Close releases the connection pool.
func (c *Connection) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Error(context.Background(), "failed to close redis connection", err)
		return err
	}
	return nil
}
