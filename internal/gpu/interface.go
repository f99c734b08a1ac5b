package gpu

// Snapshot is one point-in-time reading of the accelerator. Values are
// produced fresh on every Sample call and never mutated afterwards.
type Snapshot struct {
	PowerWatts         float64
	TemperatureCelsius float64
	MemoryUsedBytes    uint64
	MemoryTotalBytes   uint64
	UtilizationPercent float64
	DeviceName         string
	IsSimulated        bool
}

// Monitor produces telemetry snapshots. Sample never fails: a monitor that
// loses its hardware permanently degrades to simulated readings instead of
// returning errors.
type Monitor interface {
	// Sample returns the current telemetry snapshot.
	Sample() Snapshot

	// SetLoad switches the simulated workload regime. It has no effect on
	// hardware readings but keeps the simulator in step with the job state
	// so a later fallback produces plausible values.
	SetLoad(active bool)

	// IsSimulated reports whether readings currently come from simulation.
	IsSimulated() bool

	// Shutdown releases any hardware handle held by the monitor.
	Shutdown() error
}

// MemoryPercent returns used memory as a share of total, guarding the
// zero-total case.
func (s Snapshot) MemoryPercent() float64 {
	if s.MemoryTotalBytes == 0 {
		return 0
	}

	return float64(s.MemoryUsedBytes) / float64(s.MemoryTotalBytes) * 100
}
