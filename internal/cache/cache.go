// Package cache memoizes calculation results. Results are pure functions of
// their request, so any tier may drop entries at any time without changing
// what callers compute.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opioid-rotation-mcp-server/internal/domain"
)

// Cache stores serialized results by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Stats() Stats
	Close() error
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits         int64  `json:"hits"`
	Misses       int64  `json:"misses"`
	Entries      int    `json:"entries"`
	RemoteHits   int64  `json:"remote_hits,omitempty"`
	RemoteErrors int64  `json:"remote_errors,omitempty"`
	BreakerState string `json:"breaker_state,omitempty"`
}

// Key derives a stable cache key from an operation name and its request.
// The request is serialized as JSON, so field order is fixed by the struct.
func Key(op string, req interface{}) (string, error) {
	payload, err := json.Marshal(struct {
		Op  string      `json:"op"`
		Req interface{} `json:"req"`
	}{Op: op, Req: req})
	if err != nil {
		return "", fmt.Errorf("encoding cache key for %s: %w", op, err)
	}
	sum := sha256.Sum256(payload)
	return op + ":" + hex.EncodeToString(sum[:]), nil
}

// New builds the configured cache. It returns nil when caching is disabled.
// An unreachable Redis tier is logged and the memory tier is used alone.
func New(cfg domain.CacheConfig, logger *logrus.Logger) Cache {
	if !cfg.Enabled {
		logger.Info("Result cache disabled")
		return nil
	}

	memory := NewMemoryCache(cfg.Size, cfg.TTL)
	if cfg.RedisURL == "" {
		logger.WithFields(logrus.Fields{
			"size": cfg.Size,
			"ttl":  cfg.TTL.String(),
		}).Info("Using in-memory result cache")
		return memory
	}

	remote, err := NewRedisCache(cfg)
	if err != nil {
		logger.WithError(err).Warn("Redis cache unavailable, using in-memory cache only")
		return memory
	}

	logger.WithFields(logrus.Fields{
		"size": cfg.Size,
		"ttl":  cfg.TTL.String(),
	}).Info("Using tiered result cache (memory + redis)")
	return NewTieredCache(memory, remote, cfg, logger)
}
