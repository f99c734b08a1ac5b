package carbon

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"codeberg.org/mutker/gpucarbon/internal/logger"
)

const (
	// DefaultCacheDuration bounds how long a fetched reading is reused.
	DefaultCacheDuration = 5 * time.Minute

	// mockFloor is the smallest intensity a mocked reading can report.
	mockFloor = 50.0

	mockVariationRange = 50.0
	secondsPerHour     = 3600
)

// Provider serves carbon intensity readings with a time-boxed per-zone
// cache. A nil client (no credential configured) or any client failure
// degrades silently to mocked regional values.
type Provider struct {
	mu            sync.Mutex
	client        *Client
	cacheDuration time.Duration
	now           func() time.Time
	rng           *rand.Rand
	cached        *Reading
	cachedZone    string
}

// ProviderOption customizes a Provider.
type ProviderOption func(*Provider)

// WithClock injects the clock used for cache aging and mock drift.
func WithClock(now func() time.Time) ProviderOption {
	return func(p *Provider) {
		p.now = now
	}
}

// WithRand injects the random source used for mock perturbation.
func WithRand(rng *rand.Rand) ProviderOption {
	return func(p *Provider) {
		p.rng = rng
	}
}

// NewProvider creates a Provider. client may be nil when no API credential
// is configured; every fetch is then served from the regional mock table.
func NewProvider(client *Client, cacheDuration time.Duration, opts ...ProviderOption) *Provider {
	p := &Provider{
		client:        client,
		cacheDuration: cacheDuration,
		now:           time.Now,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Fetch returns the intensity reading for a zone, serving from cache while
// fresh. The external lookup runs outside the provider lock; only the cache
// swap is serialized.
func (p *Provider) Fetch(ctx context.Context, zone string) Reading {
	p.mu.Lock()
	if r := p.freshCached(zone); r != nil {
		reading := *r
		p.mu.Unlock()
		return reading
	}
	p.mu.Unlock()

	reading := p.lookup(ctx, zone)

	p.mu.Lock()
	p.cached = &reading
	p.cachedZone = zone
	p.mu.Unlock()

	return reading
}

// freshCached returns the cached reading when it belongs to the requested
// zone and has not expired. Caller must hold the lock.
func (p *Provider) freshCached(zone string) *Reading {
	if p.cached == nil || p.cachedZone != zone {
		return nil
	}
	if p.now().Sub(p.cached.FetchedAt) >= p.cacheDuration {
		return nil
	}

	return p.cached
}

func (p *Provider) lookup(ctx context.Context, zone string) Reading {
	if p.client != nil {
		value, err := p.client.FetchIntensity(ctx, zone)
		if err == nil {
			logger.Debug().
				Str("zone", zone).
				Float64("intensity", value).
				Msg("Fetched carbon intensity")

			return Reading{
				ValueGPerKWh: value,
				Region:       zone,
				IsMocked:     false,
				FetchedAt:    p.now(),
			}
		}

		logger.Warn().Err(err).Str("zone", zone).Msg("Carbon API unavailable, using mocked intensity")
	}

	return p.mock(zone)
}

// mock synthesizes a plausible reading from the regional baseline. The
// perturbation scales with the position inside the current hour so mocked
// values drift smoothly instead of jumping.
func (p *Provider) mock(zone string) Reading {
	now := p.now()
	base := mockBaseline(zone)

	timeFactor := float64(now.Unix()%secondsPerHour) / secondsPerHour

	p.mu.Lock()
	variation := (p.rng.Float64()*2 - 1) * mockVariationRange * timeFactor
	p.mu.Unlock()

	return Reading{
		ValueGPerKWh: math.Max(mockFloor, base+variation),
		Region:       "Mocked (" + zone + ")",
		IsMocked:     true,
		FetchedAt:    now,
	}
}

// ClearCache drops the cached reading so the next fetch hits the upstream
// source (or the mock) regardless of age.
func (p *Provider) ClearCache() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cached = nil
	p.cachedZone = ""
}

// IsMocked reports whether the most recent reading was mocked. A provider
// that has not fetched yet reports true.
func (p *Provider) IsMocked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached == nil {
		return true
	}

	return p.cached.IsMocked
}
