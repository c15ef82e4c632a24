package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skillforge/skillforge-backend/internal/platform/envutil"
	"github.com/skillforge/skillforge-backend/internal/platform/logger"
)

// Addr returns the configured Redis address, empty when Redis is disabled.
func Addr() string {
	return envutil.String("REDIS_ADDR", "")
}

// NewClient connects to Redis from REDIS_* env vars. Returns nil with no
// error when REDIS_ADDR is unset; callers treat a nil client as cache-off.
func NewClient(ctx context.Context, log *logger.Logger) (*redis.Client, error) {
	addr := Addr()
	if addr == "" {
		if log != nil {
			log.Warn("REDIS_ADDR not set; catalog cache disabled")
		}
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: envutil.String("REDIS_PASSWORD", ""),
		DB:       envutil.Int("REDIS_DB", 0),
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed (addr=%s): %w", addr, err)
	}
	if log != nil {
		log.Info("Connected to Redis", "addr", addr)
	}
	return client, nil
}
