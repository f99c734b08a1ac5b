package history

import (
	"codeberg.org/mutker/gpucarbon/internal/errors"
)

// Stats aggregates the stored history.
type Stats struct {
	TotalRecords int            `json:"total_records"`
	TimeRange    TimeRange      `json:"time_range"`
	Power        MinMaxAvg      `json:"power"`
	Emissions    EmissionsStats `json:"emissions"`
	Utilization  MinMaxAvg      `json:"utilization"`
}

type TimeRange struct {
	Start           float64 `json:"start"`
	End             float64 `json:"end"`
	DurationSeconds float64 `json:"duration_seconds"`
}

type MinMaxAvg struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

type EmissionsStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Current float64 `json:"current"`
}

// Stats computes aggregates across all stored records. An empty ring is a
// client-visible no-data condition.
func (r *Ring) Stats() (Stats, error) {
	records := r.snapshot()
	if len(records) == 0 {
		return Stats{}, errors.New().New(ErrNoData)
	}

	first := records[0]
	power := newAggregate(first.GPU.PowerWatts)
	utilization := newAggregate(first.GPU.UtilizationPercent)
	emissions := EmissionsStats{
		Min: first.Carbon.GramsTotal,
		Max: first.Carbon.GramsTotal,
	}

	for _, record := range records[1:] {
		power.add(record.GPU.PowerWatts)
		utilization.add(record.GPU.UtilizationPercent)
		if record.Carbon.GramsTotal < emissions.Min {
			emissions.Min = record.Carbon.GramsTotal
		}
		if record.Carbon.GramsTotal > emissions.Max {
			emissions.Max = record.Carbon.GramsTotal
		}
	}
	emissions.Current = records[len(records)-1].Carbon.GramsTotal

	last := records[len(records)-1]

	return Stats{
		TotalRecords: len(records),
		TimeRange: TimeRange{
			Start:           first.Timestamp,
			End:             last.Timestamp,
			DurationSeconds: last.Timestamp - first.Timestamp,
		},
		Power:       power.result(len(records)),
		Emissions:   emissions,
		Utilization: utilization.result(len(records)),
	}, nil
}

type aggregate struct {
	min, max, sum float64
}

func newAggregate(v float64) aggregate {
	return aggregate{min: v, max: v, sum: v}
}

func (a *aggregate) add(v float64) {
	if v < a.min {
		a.min = v
	}
	if v > a.max {
		a.max = v
	}
	a.sum += v
}

func (a aggregate) result(count int) MinMaxAvg {
	return MinMaxAvg{
		Min: a.min,
		Max: a.max,
		Avg: a.sum / float64(count),
	}
}
