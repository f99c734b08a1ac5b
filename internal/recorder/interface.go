package recorder

import (
	"context"
	"time"
)

// Recorder persists raw telemetry rows. It is an optional sink: the
// dashboard never reads from it, so a disabled recorder is a no-op.
type Recorder interface {
	Record(ctx context.Context, row *Row) error
	Close() error
}

// Row is one persisted telemetry sample.
type Row struct {
	Timestamp          time.Time
	PowerWatts         float64
	TemperatureCelsius float64
	UtilizationPercent float64
	MemoryUsedMB       float64
	IntensityGPerKWh   float64
	EmissionsTotalG    float64
	JobRunning         bool
}
