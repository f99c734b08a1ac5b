package carbon

import (
	"context"
	"time"
)

// Reading is one grid carbon-intensity value for a zone. Cached readings
// are returned unchanged until they expire, so two fetches inside the
// cache window compare equal.
type Reading struct {
	ValueGPerKWh float64
	Region       string
	IsMocked     bool
	FetchedAt    time.Time
}

// Source supplies carbon intensity readings for a grid zone. Fetch never
// fails: any upstream problem, including a missing credential, produces a
// mocked reading labeled as such.
type Source interface {
	Fetch(ctx context.Context, zone string) Reading
	ClearCache()
	IsMocked() bool
}
