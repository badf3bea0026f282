package cache

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opioid-rotation-mcp-server/internal/domain"
)

// fakeRemote is a scriptable remote tier.
type fakeRemote struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
	gets int
	sets int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{data: map[string][]byte{}}
}

func (f *fakeRemote) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.err != nil {
		return nil, false, f.err
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeRemote) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	if f.err != nil {
		return f.err
	}
	f.data[key] = value
	return nil
}

func (f *fakeRemote) Stats() Stats { return Stats{} }
func (f *fakeRemote) Close() error { return nil }

func TestKey(t *testing.T) {
	type req struct {
		Drug string  `json:"drug"`
		Dose float64 `json:"dose"`
	}

	a, err := Key("rotate", req{Drug: "morphine", Dose: 15})
	require.NoError(t, err)
	b, err := Key("rotate", req{Drug: "morphine", Dose: 15})
	require.NoError(t, err)
	c, err := Key("rotate", req{Drug: "morphine", Dose: 30})
	require.NoError(t, err)
	d, err := Key("prn", req{Drug: "morphine", Dose: 15})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.True(t, strings.HasPrefix(a, "rotate:"))
	assert.Len(t, strings.TrimPrefix(a, "rotate:"), 64)

	_, err = Key("bad", map[string]interface{}{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Minute)

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", []byte("1")))
	require.NoError(t, c.Set(ctx, "b", []byte("2")))
	v, ok, _ := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	// "b" is now least recently used
	require.NoError(t, c.Set(ctx, "c", []byte("3")))
	_, ok, _ = c.Get(ctx, "b")
	assert.False(t, ok)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 2, stats.Entries)

	c.Purge()
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestMemoryCache_TTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, 20*time.Millisecond)

	require.NoError(t, c.Set(ctx, "k", []byte("v")))
	time.Sleep(60 * time.Millisecond)

	_, ok, _ := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestTieredCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	remote := newFakeRemote()
	remote.data["k"] = []byte("shared")
	tiered := NewTieredCache(NewMemoryCache(10, time.Minute), remote, domain.CacheConfig{}, logger)

	v, ok, err := tiered.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("shared"), v)

	// Second read is served from memory
	_, ok, _ = tiered.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, 1, remote.gets)

	require.NoError(t, tiered.Set(ctx, "n", []byte("new")))
	assert.Equal(t, []byte("new"), remote.data["n"])

	stats := tiered.Stats()
	assert.Equal(t, int64(1), stats.RemoteHits)
	assert.Equal(t, "closed", stats.BreakerState)
}

func TestTieredCache_BreakerOpensOnRemoteFailures(t *testing.T) {
	ctx := context.Background()
	logger, hook := test.NewNullLogger()
	remote := newFakeRemote()
	remote.err = errors.New("connection refused")
	tiered := NewTieredCache(NewMemoryCache(10, time.Minute), remote,
		domain.CacheConfig{BreakerFailures: 2, BreakerTimeout: time.Minute}, logger)

	_, _, err := tiered.Get(ctx, "a")
	assert.Error(t, err)
	_, _, err = tiered.Get(ctx, "b")
	assert.Error(t, err)

	// Breaker is open: the remote tier is skipped and reported as a miss
	_, ok, err := tiered.Get(ctx, "c")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, remote.gets)

	require.NoError(t, tiered.Set(ctx, "d", []byte("v")))
	v, ok, _ := tiered.Get(ctx, "d")
	assert.True(t, ok, "memory tier keeps working while the breaker is open")
	assert.Equal(t, []byte("v"), v)

	stats := tiered.Stats()
	assert.Equal(t, "open", stats.BreakerState)
	assert.Equal(t, int64(2), stats.RemoteErrors)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "Cache circuit breaker state changed", hook.LastEntry().Message)
}

func TestNew(t *testing.T) {
	logger, _ := test.NewNullLogger()

	assert.Nil(t, New(domain.CacheConfig{Enabled: false}, logger))

	c := New(domain.CacheConfig{Enabled: true, Size: 10, TTL: time.Minute}, logger)
	_, isMemory := c.(*MemoryCache)
	assert.True(t, isMemory)

	// Unreachable Redis falls back to memory
	c = New(domain.CacheConfig{Enabled: true, Size: 10, TTL: time.Minute, RedisURL: "redis://127.0.0.1:1/0"}, logger)
	_, isMemory = c.(*MemoryCache)
	assert.True(t, isMemory)
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping Redis tests")
	}

	ctx := context.Background()
	c, err := NewRedisCache(domain.CacheConfig{RedisURL: url, TTL: time.Minute})
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Ping(ctx))

	_, ok, err := c.Get(ctx, "missing-key")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "test-key", []byte(`{"ome":90}`)))
	v, ok, err := c.Get(ctx, "test-key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`{"ome":90}`), v)
}
