package gpu

import (
	"sync"

	"codeberg.org/mutker/gpucarbon/internal/errors"
	"codeberg.org/mutker/gpucarbon/internal/logger"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

const (
	milliWattsToWatts = 1000

	// unknownDeviceName labels hardware readings when only the name query
	// fails; the simulated label is reserved for simulated readings.
	unknownDeviceName = "Unknown GPU"
)

// nvmlMonitor reads telemetry from device 0 via NVML. The first failed
// read flips the monitor into simulated mode for the remainder of the
// process; hardware is never re-probed.
type nvmlMonitor struct {
	mu       sync.Mutex
	device   nvml.Device
	name     string
	sim      *Simulator
	degraded bool
}

// NewMonitor attempts to initialize NVML and returns a hardware-backed
// monitor. When no device is available it returns a pure simulator.
func NewMonitor() Monitor {
	errFactory := errors.New()

	if ret := nvml.Init(); !IsNVMLSuccess(ret) {
		logger.ErrorWithCode(errFactory.Wrap(ErrInitFailed, newNVMLError(ret))).
			Msg("No GPU detected, running in simulation mode")
		return NewSimulator()
	}

	device, ret := nvml.DeviceGetHandleByIndex(0)
	if !IsNVMLSuccess(ret) {
		logger.ErrorWithCode(errFactory.Wrap(ErrDeviceNotFound, newNVMLError(ret))).
			Msg("No GPU detected, running in simulation mode")
		if ret := nvml.Shutdown(); !IsNVMLSuccess(ret) {
			logger.Warn().Msgf("NVML shutdown failed: %v", nvml.ErrorString(ret))
		}
		return NewSimulator()
	}

	name := unknownDeviceName
	if n, ret := device.GetName(); IsNVMLSuccess(ret) {
		name = n
		logger.Info().Msgf("Detected GPU: %v", n)
	} else {
		logger.Warn().Msgf("Failed to get GPU name: %v", nvml.ErrorString(ret))
	}

	return &nvmlMonitor{
		device: device,
		name:   name,
		sim:    NewSimulator(),
	}
}

func (m *nvmlMonitor) Sample() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.degraded {
		return m.sim.Sample()
	}

	snapshot, err := m.read()
	if err != nil {
		// One-way transition: hardware telemetry is treated as gone
		// for the rest of the process.
		m.degraded = true
		logger.ErrorWithCode(errors.New().Wrap(ErrDeviceInfoFailed, err)).
			Msg("GPU telemetry read failed, falling back to simulation")
		return m.sim.Sample()
	}

	return snapshot
}

func (m *nvmlMonitor) read() (Snapshot, error) {
	errFactory := errors.New()

	powerMilliWatts, ret := m.device.GetPowerUsage()
	if !IsNVMLSuccess(ret) {
		return Snapshot{}, errFactory.Wrap(ErrPowerReadFailed, newNVMLError(ret))
	}

	temp, ret := m.device.GetTemperature(nvml.TEMPERATURE_GPU)
	if !IsNVMLSuccess(ret) {
		return Snapshot{}, errFactory.Wrap(ErrTemperatureReadFailed, newNVMLError(ret))
	}

	memory, ret := m.device.GetMemoryInfo()
	if !IsNVMLSuccess(ret) {
		return Snapshot{}, errFactory.Wrap(ErrMemoryReadFailed, newNVMLError(ret))
	}

	utilization, ret := m.device.GetUtilizationRates()
	if !IsNVMLSuccess(ret) {
		return Snapshot{}, errFactory.Wrap(ErrUtilizationReadFailed, newNVMLError(ret))
	}

	return Snapshot{
		PowerWatts:         float64(powerMilliWatts) / milliWattsToWatts,
		TemperatureCelsius: float64(temp),
		MemoryUsedBytes:    memory.Used,
		MemoryTotalBytes:   memory.Total,
		UtilizationPercent: float64(utilization.Gpu),
		DeviceName:         m.name,
		IsSimulated:        false,
	}, nil
}

func (m *nvmlMonitor) SetLoad(active bool) {
	m.sim.SetLoad(active)
}

func (m *nvmlMonitor) IsSimulated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.degraded
}

func (m *nvmlMonitor) Shutdown() error {
	if ret := nvml.Shutdown(); !IsNVMLSuccess(ret) {
		return errors.New().Wrap(ErrShutdownFailed, newNVMLError(ret))
	}

	return nil
}
