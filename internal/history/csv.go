package history

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"codeberg.org/mutker/gpucarbon/internal/errors"
)

// csvHeader is the fixed export column order.
var csvHeader = []string{
	"Timestamp",
	"GPU Name",
	"Power (W)",
	"Temperature (C)",
	"Utilization (%)",
	"Memory Used (MB)",
	"Carbon Intensity (gCO2/kWh)",
	"Total Emissions (g)",
	"Region",
	"Job Running",
}

// WriteCSV serializes the full history in insertion order.
func (r *Ring) WriteCSV(w io.Writer) error {
	errFactory := errors.New()

	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	for _, record := range r.snapshot() {
		row := []string{
			unixToRFC3339(record.Timestamp),
			record.GPU.Name,
			formatFloat(record.GPU.PowerWatts),
			formatFloat(record.GPU.TemperatureCelsius),
			formatFloat(record.GPU.UtilizationPercent),
			formatFloat(record.GPU.MemoryUsedMB),
			formatFloat(record.Carbon.IntensityGPerKWh),
			formatFloat(record.Carbon.GramsTotal),
			record.Carbon.Region,
			strconv.FormatBool(record.Job.Running),
		}
		if err := writer.Write(row); err != nil {
			return errFactory.Wrap(ErrWriteFailed, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return errFactory.Wrap(ErrWriteFailed, err)
	}

	return nil
}

func unixToRFC3339(ts float64) string {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * float64(time.Second))

	return time.Unix(sec, nsec).UTC().Format(time.RFC3339)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
