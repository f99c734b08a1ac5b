package carbon_test

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/gpucarbon/internal/carbon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T, client *carbon.Client, clock *fakeClock) *carbon.Provider {
	t.Helper()
	return carbon.NewProvider(client, carbon.DefaultCacheDuration,
		carbon.WithClock(clock.Now),
		carbon.WithRand(rand.New(rand.NewSource(1))),
	)
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func TestFetchCachesWithinWindow(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"carbonIntensity": 300}`))
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	client := carbon.NewClient("key", time.Second, carbon.WithAPIURL(srv.URL))
	provider := newTestProvider(t, client, clock)

	first := provider.Fetch(context.Background(), "DE")
	clock.Advance(time.Minute)
	second := provider.Fetch(context.Background(), "DE")

	assert.Equal(t, first, second, "cached reading must be returned unchanged")
	assert.Equal(t, int64(1), calls.Load())
	assert.False(t, first.IsMocked)
	assert.False(t, provider.IsMocked())
}

func TestFetchExpiresAfterWindow(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"carbonIntensity": 300}`))
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	client := carbon.NewClient("key", time.Second, carbon.WithAPIURL(srv.URL))
	provider := newTestProvider(t, client, clock)

	provider.Fetch(context.Background(), "DE")
	clock.Advance(carbon.DefaultCacheDuration + time.Second)
	provider.Fetch(context.Background(), "DE")

	assert.Equal(t, int64(2), calls.Load())
}

func TestFetchZoneChangeBypassesCache(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"carbonIntensity": 300}`))
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	client := carbon.NewClient("key", time.Second, carbon.WithAPIURL(srv.URL))
	provider := newTestProvider(t, client, clock)

	provider.Fetch(context.Background(), "DE")
	provider.Fetch(context.Background(), "FR")

	assert.Equal(t, int64(2), calls.Load())
}

func TestClearCacheForcesRefetch(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"carbonIntensity": 300}`))
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	client := carbon.NewClient("key", time.Second, carbon.WithAPIURL(srv.URL))
	provider := newTestProvider(t, client, clock)

	provider.Fetch(context.Background(), "DE")
	provider.ClearCache()
	provider.Fetch(context.Background(), "DE")

	assert.Equal(t, int64(2), calls.Load())
}

func TestFetchWithoutCredentialIsMocked(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	provider := newTestProvider(t, nil, clock)

	reading := provider.Fetch(context.Background(), "DE")

	assert.True(t, reading.IsMocked)
	assert.Equal(t, "Mocked (DE)", reading.Region)
	assert.True(t, provider.IsMocked())
}

func TestFetchFallsBackToMockOnAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	client := carbon.NewClient("key", time.Second, carbon.WithAPIURL(srv.URL))
	provider := newTestProvider(t, client, clock)

	reading := provider.Fetch(context.Background(), "FR")

	assert.True(t, reading.IsMocked)
	assert.Equal(t, "Mocked (FR)", reading.Region)
}

func TestFetchFallsBackToMockOnMissingField(t *testing.T) {
	// A 200 body without the intensity field must not surface as a real
	// zero-gram reading.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"zone": "DE", "datetime": "2026-08-28T00:00:00Z"}`))
	}))
	defer srv.Close()

	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	client := carbon.NewClient("key", time.Second, carbon.WithAPIURL(srv.URL))
	provider := newTestProvider(t, client, clock)

	reading := provider.Fetch(context.Background(), "DE")

	assert.True(t, reading.IsMocked)
	assert.Equal(t, "Mocked (DE)", reading.Region)
	assert.GreaterOrEqual(t, reading.ValueGPerKWh, 50.0)
}

func TestMockBounds(t *testing.T) {
	// FR has the lowest baseline (60), so the floor can bind there.
	zones := map[string]float64{"US": 450, "FR": 60, "CN": 700, "XX-UNKNOWN": carbon.DefaultMockIntensity}

	for zone, base := range zones {
		clock := &fakeClock{now: time.Unix(1700000000, 0)}
		provider := newTestProvider(t, nil, clock)

		for i := 0; i < 50; i++ {
			clock.Advance(17 * time.Second)
			provider.ClearCache()
			reading := provider.Fetch(context.Background(), zone)

			assert.GreaterOrEqual(t, reading.ValueGPerKWh, 50.0, "zone %s", zone)
			assert.GreaterOrEqual(t, reading.ValueGPerKWh, base-50.0, "zone %s", zone)
			assert.LessOrEqual(t, reading.ValueGPerKWh, base+50.0, "zone %s", zone)
		}
	}
}

func TestMapRegionCode(t *testing.T) {
	assert.Equal(t, "DE", carbon.MapRegionCode("DE"))
	assert.Equal(t, carbon.DefaultZone, carbon.MapRegionCode("auto"))
	assert.Equal(t, carbon.DefaultZone, carbon.MapRegionCode("nope"))
	assert.Equal(t, carbon.DefaultZone, carbon.MapRegionCode(""))
}

func TestProviderIsMockedBeforeFirstFetch(t *testing.T) {
	provider := carbon.NewProvider(nil, carbon.DefaultCacheDuration)
	require.True(t, provider.IsMocked())
}
