package history

// Record is one combined metrics response as appended to the ring. The
// JSON shape is the wire format of the /metrics endpoint.
type Record struct {
	Timestamp float64       `json:"timestamp"` // Unix seconds
	GPU       GPUMetrics    `json:"gpu"`
	Carbon    CarbonMetrics `json:"carbon"`
	Job       JobMetrics    `json:"job"`
}

type GPUMetrics struct {
	Name               string  `json:"name"`
	PowerWatts         float64 `json:"power_watts"`
	TemperatureCelsius float64 `json:"temperature_celsius"`
	UtilizationPercent float64 `json:"utilization_percent"`
	MemoryUsedMB       float64 `json:"memory_used_mb"`
	MemoryTotalMB      float64 `json:"memory_total_mb"`
	MemoryPercent      float64 `json:"memory_percent"`
	IsSimulated        bool    `json:"is_simulated"`
}

type CarbonMetrics struct {
	IntensityGPerKWh  float64 `json:"intensity_g_per_kwh"`
	IsMocked          bool    `json:"is_mocked"`
	Region            string  `json:"region"`
	GramsPerSecond    float64 `json:"emissions_g_per_second"`
	GramsPerMinute    float64 `json:"emissions_g_per_minute"`
	GramsTotal        float64 `json:"emissions_total_g"`
	Suggestion        string  `json:"suggestion"`
	SuggestionMessage string  `json:"suggestion_message"`
}

type JobMetrics struct {
	Running        bool    `json:"running"`
	RuntimeSeconds float64 `json:"runtime_seconds"`
}
