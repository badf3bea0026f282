package health

import (
	"context"
	"time"

	"github.com/opioid-rotation-mcp-server/internal/cache"
	"github.com/opioid-rotation-mcp-server/pkg/opioid"
)

// Pinger is satisfied by the feedback stores and the database pool wrapper.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck reports unhealthy when Ping fails and warning when it is slow.
type PingCheck struct {
	name       string
	target     Pinger
	maxLatency time.Duration
}

func NewPingCheck(name string, target Pinger, maxLatency time.Duration) *PingCheck {
	if maxLatency <= 0 {
		maxLatency = time.Second
	}
	return &PingCheck{name: name, target: target, maxLatency: maxLatency}
}

func (c *PingCheck) Name() string { return c.name }

func (c *PingCheck) Check(ctx context.Context) ComponentHealth {
	start := time.Now()
	if err := c.target.Ping(ctx); err != nil {
		return ComponentHealth{Status: StateUnhealthy, Message: "ping failed", Error: err.Error()}
	}
	latency := time.Since(start)
	meta := map[string]interface{}{"latency_ms": latency.Milliseconds()}
	if latency > c.maxLatency {
		return ComponentHealth{Status: StateWarning, Message: "slow response", Metadata: meta}
	}
	return ComponentHealth{Status: StateHealthy, Message: "reachable", Metadata: meta}
}

// CacheCheck reports the result cache counters. An open breaker means the
// shared tier is bypassed, which degrades but does not break calculations.
type CacheCheck struct {
	cache cache.Cache
}

func NewCacheCheck(c cache.Cache) *CacheCheck {
	return &CacheCheck{cache: c}
}

func (c *CacheCheck) Name() string { return "cache" }

func (c *CacheCheck) Check(_ context.Context) ComponentHealth {
	if c.cache == nil {
		return ComponentHealth{Status: StateHealthy, Message: "memoization disabled"}
	}
	stats := c.cache.Stats()
	meta := map[string]interface{}{
		"hits":          stats.Hits,
		"misses":        stats.Misses,
		"entries":       stats.Entries,
		"remote_hits":   stats.RemoteHits,
		"remote_errors": stats.RemoteErrors,
	}
	if stats.BreakerState != "" {
		meta["breaker_state"] = stats.BreakerState
	}
	if stats.BreakerState == "open" {
		return ComponentHealth{Status: StateWarning, Message: "shared cache bypassed", Metadata: meta}
	}
	return ComponentHealth{Status: StateHealthy, Message: "ok", Metadata: meta}
}

// TablesCheck converts a known regimen and compares it with the expected
// range, catching a corrupted or mis-edited reference table.
type TablesCheck struct{}

func (TablesCheck) Name() string { return "reference_tables" }

func (TablesCheck) Check(_ context.Context) ComponentHealth {
	res := opioid.RotateToTarget(90, opioid.Hydromorphone, opioid.Oral, opioid.RotationOptions{CrossTolerancePct: 25})
	want := opioid.DoseRange{Low: 15.2, High: 18.6}
	if !res.OK() || res.Range == nil || *res.Range != want {
		return ComponentHealth{Status: StateUnhealthy, Message: "reference conversion mismatch"}
	}
	return ComponentHealth{
		Status:   StateHealthy,
		Message:  "ok",
		Metadata: map[string]interface{}{"drugs": len(opioid.Drugs())},
	}
}
