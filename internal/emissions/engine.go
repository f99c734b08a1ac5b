package emissions

import (
	"sync"
	"time"

	"codeberg.org/mutker/gpucarbon/internal/carbon"
	"codeberg.org/mutker/gpucarbon/internal/logger"
	"github.com/google/uuid"
)

const (
	wattsPerKilowatt = 1000
	secondsPerHour   = 3600
	whPerKWh         = 1000
)

// Result is the derived output of one engine invocation.
type Result struct {
	IntensityGPerKWh float64
	IsMocked         bool
	Region           string
	GramsPerSecond   float64
	GramsTotal       float64
	Suggestion       Suggestion
}

// Summary describes a finished (or running) session.
type Summary struct {
	SessionID    string
	RuntimeHours float64
	EnergyWh     float64
}

// Engine integrates power draw into energy across irregular sampling
// intervals and derives emissions from a carbon intensity reading. One
// mutex guards all session state; every method is safe for concurrent use.
type Engine struct {
	mu        sync.Mutex
	now       func() time.Time
	threshold float64

	running    bool
	sessionID  string
	startedAt  time.Time
	energyWh   float64
	lastSample time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock injects the clock used for energy integration.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine with the given suggestion threshold in
// gCO2/kWh.
func NewEngine(threshold float64, opts ...Option) *Engine {
	e := &Engine{
		now:       time.Now,
		threshold: threshold,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.lastSample = e.now()

	return e
}

// Start begins a new session and returns its identifier. Accumulated
// energy resets to zero; calling Start while running restarts accumulation.
func (e *Engine) Start() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.running = true
	e.sessionID = uuid.NewString()
	e.startedAt = now
	e.energyWh = 0
	e.lastSample = now

	logger.Info().Str("session_id", e.sessionID).Msg("Job session started")

	return e.sessionID
}

// Stop ends the session and returns its final summary. Accumulated energy
// and the time anchor persist until the next Start.
func (e *Engine) Stop() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()

	summary := Summary{
		SessionID: e.sessionID,
		EnergyWh:  e.energyWh,
	}
	if e.running {
		summary.RuntimeHours = e.now().Sub(e.startedAt).Hours()
	}

	e.running = false

	logger.Info().
		Str("session_id", summary.SessionID).
		Float64("runtime_hours", summary.RuntimeHours).
		Float64("energy_wh", summary.EnergyWh).
		Msg("Job session stopped")

	return summary
}

// Running reports whether a session is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// RuntimeHours returns the elapsed runtime of the active session, or zero
// when no session is running.
func (e *Engine) RuntimeHours() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runtimeHoursLocked()
}

func (e *Engine) runtimeHoursLocked() float64 {
	if !e.running {
		return 0
	}

	return e.now().Sub(e.startedAt).Hours()
}

// Calculate integrates energy since the previous sample and derives
// instantaneous and cumulative emissions from the given reading.
//
// The cumulative figure applies the current intensity to the integrated
// energy rather than integrating intensity over time; intensity is assumed
// roughly constant across a session.
func (e *Engine) Calculate(powerWatts float64, reading carbon.Reading) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()

	// The time anchor advances even while idle so a stale delta is never
	// applied after a gap.
	elapsedHours := now.Sub(e.lastSample).Hours()
	if e.running {
		e.energyWh += powerWatts * elapsedHours
	}
	e.lastSample = now

	gramsPerSecond := powerWatts / wattsPerKilowatt * reading.ValueGPerKWh / secondsPerHour

	var gramsTotal float64
	if e.runtimeHoursLocked() > 0 {
		gramsTotal = e.energyWh / whPerKWh * reading.ValueGPerKWh
	}

	return Result{
		IntensityGPerKWh: reading.ValueGPerKWh,
		IsMocked:         reading.IsMocked,
		Region:           reading.Region,
		GramsPerSecond:   gramsPerSecond,
		GramsTotal:       gramsTotal,
		Suggestion:       Suggest(reading.ValueGPerKWh, e.threshold),
	}
}
