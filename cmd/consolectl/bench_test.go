package main

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/consoleauth"
	"github.com/MrEthical07/consoleauth/internal/mockapi"
	"github.com/MrEthical07/consoleauth/jwt"
	"github.com/MrEthical07/consoleauth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(1), percentile(samples, 0))
	assert.Equal(t, time.Duration(5), percentile(samples, 50))
	assert.Equal(t, time.Duration(10), percentile(samples, 95))
	assert.Equal(t, time.Duration(9), percentile(samples, 90))
	assert.Equal(t, time.Duration(10), percentile(samples, 100))
	assert.Zero(t, percentile(nil, 50))
}

func TestComputeStats(t *testing.T) {
	s := computeStats(time.Second, []time.Duration{3 * time.Millisecond, time.Millisecond, 2 * time.Millisecond}, 1)
	assert.Equal(t, 3, s.ops)
	assert.EqualValues(t, 1, s.failures)
	assert.Equal(t, 2*time.Millisecond, s.p50)
	assert.Equal(t, 3*time.Millisecond, s.p99)
	assert.InDelta(t, 3.0, s.opsPerS, 0.001)

	single := computeStats(time.Second, []time.Duration{7 * time.Millisecond}, 0)
	assert.Equal(t, 7*time.Millisecond, single.p50)
	assert.Equal(t, 7*time.Millisecond, single.p99)

	empty := computeStats(time.Second, nil, 2)
	assert.Zero(t, empty.ops)
	assert.EqualValues(t, 2, empty.failures)
}

func TestServerRoot(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8080", serverRoot("http://127.0.0.1:8080/api"))
	assert.Equal(t, "https://console.example.com", serverRoot("https://console.example.com/a/b"))
}

func TestBenchRecoversInjectedUnauthorized(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	dir, err := mockapi.OpenDirectory(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = dir.Close() })

	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "consolectl-test",
	})
	require.NoError(t, err)

	cfg := mockapi.DefaultConfig()
	cfg.Password = password.Config{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 16}
	ctx := context.Background()
	srv, err := mockapi.New(ctx, cfg, mockapi.Deps{Directory: dir, Redis: rdb, Tokens: tokens})
	require.NoError(t, err)
	acc := mockapi.DefaultSeedAccounts()
	require.NoError(t, srv.Seed(ctx, acc))

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	c, err := consoleauth.New().WithBaseURL(ts.URL + "/api").Build()
	require.NoError(t, err)
	t.Cleanup(c.Close)
	require.NoError(t, c.Login(ctx, acc.AdminAccount, acc.AdminPassword))

	require.NoError(t, applyFaults(ctx, serverRoot(ts.URL+"/api"), 1))

	stats := runRequests(ctx, c, "/getInfo", 40, 8)
	assert.Equal(t, 40, stats.ops)
	assert.Zero(t, stats.failures)
	assert.EqualValues(t, 1, srv.Faults().RefreshCalls())

	snap := c.MetricsSnapshot()
	assert.EqualValues(t, 1, snap.Counters[consoleauth.MetricRefreshSuccess])
	assert.EqualValues(t, 1, snap.Counters[consoleauth.MetricUnauthorized])
	assert.EqualValues(t, 1, snap.Counters[consoleauth.MetricReplay])
}
