package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"codeberg.org/mutker/gpucarbon/internal/carbon"
	"codeberg.org/mutker/gpucarbon/internal/history"
	"codeberg.org/mutker/gpucarbon/internal/logger"
	"codeberg.org/mutker/gpucarbon/internal/recorder"
)

const (
	defaultHistoryLimit = 100
	bytesPerMB          = 1 << 20
	secondsPerMinute    = 60
)

// handleMetrics samples the accelerator, resolves the carbon intensity and
// derives emissions, returning the combined record and appending it to
// history.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	zone := r.URL.Query().Get("region")
	if zone == "" {
		zone = s.currentZone()
	}

	snapshot := s.monitor.Sample()
	reading := s.source.Fetch(r.Context(), zone)
	result := s.engine.Calculate(snapshot.PowerWatts, reading)

	record := history.Record{
		Timestamp: float64(s.now().UnixNano()) / 1e9,
		GPU: history.GPUMetrics{
			Name:               snapshot.DeviceName,
			PowerWatts:         roundTo(snapshot.PowerWatts, 2),
			TemperatureCelsius: roundTo(snapshot.TemperatureCelsius, 1),
			UtilizationPercent: roundTo(snapshot.UtilizationPercent, 1),
			MemoryUsedMB:       roundTo(float64(snapshot.MemoryUsedBytes)/bytesPerMB, 0),
			MemoryTotalMB:      roundTo(float64(snapshot.MemoryTotalBytes)/bytesPerMB, 0),
			MemoryPercent:      roundTo(snapshot.MemoryPercent(), 1),
			IsSimulated:        snapshot.IsSimulated,
		},
		Carbon: history.CarbonMetrics{
			IntensityGPerKWh:  roundTo(result.IntensityGPerKWh, 1),
			IsMocked:          result.IsMocked,
			Region:            result.Region,
			GramsPerSecond:    roundTo(result.GramsPerSecond, 6),
			GramsPerMinute:    roundTo(result.GramsPerSecond*secondsPerMinute, 4),
			GramsTotal:        roundTo(result.GramsTotal, 4),
			Suggestion:        string(result.Suggestion),
			SuggestionMessage: result.Suggestion.Message(),
		},
		Job: history.JobMetrics{
			Running:        s.engine.Running(),
			RuntimeSeconds: roundTo(s.engine.RuntimeHours()*3600, 1),
		},
	}

	s.ring.Append(record)

	if err := s.recorder.Record(r.Context(), &recorder.Row{
		Timestamp:          s.now(),
		PowerWatts:         snapshot.PowerWatts,
		TemperatureCelsius: snapshot.TemperatureCelsius,
		UtilizationPercent: snapshot.UtilizationPercent,
		MemoryUsedMB:       record.GPU.MemoryUsedMB,
		IntensityGPerKWh:   result.IntensityGPerKWh,
		EmissionsTotalG:    result.GramsTotal,
		JobRunning:         record.Job.Running,
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to record telemetry row")
	}

	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleJobStart(w http.ResponseWriter, _ *http.Request) {
	s.monitor.SetLoad(true)
	sessionID := s.engine.Start()

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "started",
		"session_id": sessionID,
		"message":    "Heavy job simulation started",
	})
}

func (s *Server) handleJobStop(w http.ResponseWriter, _ *http.Request) {
	s.monitor.SetLoad(false)
	summary := s.engine.Stop()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "stopped",
		"message": "Job simulation stopped",
		"summary": map[string]interface{}{
			"session_id":      summary.SessionID,
			"runtime_hours":   roundTo(summary.RuntimeHours, 4),
			"total_energy_wh": roundTo(summary.EnergyWh, 4),
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	gpuMode := "real"
	if s.monitor.IsSimulated() {
		gpuMode = "simulated"
	}

	carbonAPI := "connected"
	if s.source.IsMocked() {
		carbonAPI = "mocked"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "healthy",
		"gpu_mode":   gpuMode,
		"carbon_api": carbonAPI,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	startTime := parseFloatParam(r, "start_time")
	endTime := parseFloatParam(r, "end_time")

	records := s.ring.Filter(limit, startTime, endTime)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(records),
		"data":  records,
	})
}

func (s *Server) handleHistoryStats(w http.ResponseWriter, _ *http.Request) {
	stats, err := s.ring.Stats()
	if err != nil {
		writeError(w, http.StatusNotFound, "No historical data available")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	filename := fmt.Sprintf("gpucarbon-export-%d.csv", s.now().Unix())

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)

	if err := s.ring.WriteCSV(w); err != nil {
		logger.Error().Err(err).Msg("Failed to write CSV export")
	}
}

// handleRegion maps a short region code to a provider zone, makes it the
// default for subsequent requests and clears the intensity cache. Unknown
// codes fall back to the default zone and still succeed.
func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	zone := carbon.MapRegionCode(code)

	s.setZone(zone)
	s.source.ClearCache()

	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "success",
		"region_code": code,
		"zone":        zone,
		"message":     "Region updated to " + code,
	})
}

func roundTo(v float64, digits int) float64 {
	p := math.Pow10(digits)

	return math.Round(v*p) / p
}

func parseFloatParam(r *http.Request, name string) float64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0
	}

	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}

	return parsed
}
