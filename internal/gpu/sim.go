package gpu

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

const (
	simBasePower   = 15.0  // Idle power in watts
	simMaxPower    = 250.0 // Max power under load
	simBaseTemp    = 35.0  // Idle temperature
	simMaxTemp     = 85.0  // Max temperature under load
	simMemoryTotal = 8 << 30
	simDeviceName  = "Simulated GPU"

	rampDuration = 3 * time.Second

	minPowerWatts = 5.0
	minTempC      = 25.0
)

// Simulator generates synthetic telemetry as a function of elapsed
// wall-clock time plus bounded jitter. Clock and random source are
// injectable so tests can pin the output.
type Simulator struct {
	mu     sync.Mutex
	now    func() time.Time
	rng    *rand.Rand
	start  time.Time
	active bool
}

// NewSimulator creates a simulator using the system clock and a
// time-seeded random source.
func NewSimulator() *Simulator {
	return NewSimulatorWith(time.Now, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewSimulatorWith creates a simulator with an explicit clock and random
// source.
func NewSimulatorWith(now func() time.Time, rng *rand.Rand) *Simulator {
	return &Simulator{
		now:   now,
		rng:   rng,
		start: now(),
	}
}

func (s *Simulator) Sample() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	elapsed := now.Sub(s.start).Seconds()

	var power, temp, utilization, memoryUsed float64
	if s.active {
		ramp := math.Min(1.0, elapsed/rampDuration.Seconds())
		loadFactor := ramp * (0.7 + s.uniform(0, 0.3))

		power = simBasePower + (simMaxPower-simBasePower)*loadFactor
		temp = simBaseTemp + (simMaxTemp-simBaseTemp)*loadFactor*0.8
		utilization = loadFactor * 100
		memoryUsed = simMemoryTotal * (0.3 + loadFactor*0.6)
	} else {
		// Slow sinusoid gives the idle power a breathing pattern.
		idleWave := math.Sin(elapsed*0.5)*0.1 + 1.0

		power = simBasePower*idleWave + s.uniform(-2, 2)
		temp = simBaseTemp + s.uniform(-1, 3)
		utilization = s.uniform(0, 8)
		memoryUsed = simMemoryTotal*0.15 + s.uniform(0, 200<<20)
	}

	return Snapshot{
		PowerWatts:         math.Max(minPowerWatts, power),
		TemperatureCelsius: math.Max(minTempC, temp),
		MemoryUsedBytes:    uint64(memoryUsed),
		MemoryTotalBytes:   simMemoryTotal,
		UtilizationPercent: clampFloat(utilization, 0, 100),
		DeviceName:         simDeviceName,
		IsSimulated:        true,
	}
}

func (s *Simulator) SetLoad(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active = active
	if active {
		s.start = s.now()
	}
}

func (s *Simulator) IsSimulated() bool {
	return true
}

func (s *Simulator) Shutdown() error {
	return nil
}

func (s *Simulator) uniform(low, high float64) float64 {
	return low + s.rng.Float64()*(high-low)
}

func clampFloat(value, minValue, maxValue float64) float64 {
	if value < minValue {
		return minValue
	}
	if value > maxValue {
		return maxValue
	}

	return value
}
