package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/opioid-rotation-mcp-server/internal/domain"
)

// TieredCache reads through memory first, then a remote tier guarded by a
// circuit breaker. Remote hits are copied into memory.
type TieredCache struct {
	memory       *MemoryCache
	remote       Cache
	breaker      *gobreaker.CircuitBreaker
	logger       *logrus.Logger
	remoteHits   atomic.Int64
	remoteErrors atomic.Int64
}

// NewTieredCache combines a memory tier with a remote tier.
func NewTieredCache(memory *MemoryCache, remote Cache, cfg domain.CacheConfig, logger *logrus.Logger) *TieredCache {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	timeout := cfg.BreakerTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	t := &TieredCache{memory: memory, remote: remote, logger: logger}
	t.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "result-cache",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Cache circuit breaker state changed")
		},
	})
	return t
}

// Get checks memory, then the remote tier. An open breaker is a miss.
func (t *TieredCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, _ := t.memory.Get(ctx, key); ok {
		return v, true, nil
	}

	type result struct {
		value []byte
		found bool
	}
	out, err := t.breaker.Execute(func() (interface{}, error) {
		v, ok, err := t.remote.Get(ctx, key)
		return result{value: v, found: ok}, err
	})
	if err != nil {
		return nil, false, t.remoteError(err)
	}

	r := out.(result)
	if !r.found {
		return nil, false, nil
	}
	t.remoteHits.Add(1)
	_ = t.memory.Set(ctx, key, r.value)
	return r.value, true, nil
}

// Set writes memory, then the remote tier.
func (t *TieredCache) Set(ctx context.Context, key string, value []byte) error {
	_ = t.memory.Set(ctx, key, value)
	_, err := t.breaker.Execute(func() (interface{}, error) {
		return nil, t.remote.Set(ctx, key, value)
	})
	if err != nil {
		return t.remoteError(err)
	}
	return nil
}

func (t *TieredCache) remoteError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil
	}
	t.remoteErrors.Add(1)
	return err
}

// Stats merges both tiers.
func (t *TieredCache) Stats() Stats {
	s := t.memory.Stats()
	s.RemoteHits = t.remoteHits.Load()
	s.RemoteErrors = t.remoteErrors.Load()
	s.BreakerState = t.breaker.State().String()
	return s
}

// Close closes the remote tier.
func (t *TieredCache) Close() error {
	return t.remote.Close()
}
