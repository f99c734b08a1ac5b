package history

import (
	"sync"
)

// DefaultCapacity bounds the in-memory history when no size is configured.
const DefaultCapacity = 1000

// Ring is a bounded, ordered sequence of metric records. When full, the
// oldest record is evicted first. All methods are safe for concurrent use.
type Ring struct {
	mu       sync.RWMutex
	records  []Record
	capacity int
}

// NewRing creates a ring holding at most capacity records.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Ring{
		records:  make([]Record, 0, capacity),
		capacity: capacity,
	}
}

// Append adds a record, evicting the oldest when at capacity.
func (r *Ring) Append(record Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.records) >= r.capacity {
		r.records = r.records[1:]
	}
	r.records = append(r.records, record)
}

// Len returns the number of stored records.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Filter returns records inside the [startTime, endTime] bounds (Unix
// seconds, zero means unbounded), truncated to the most recent limit
// entries in chronological order.
func (r *Ring) Filter(limit int, startTime, endTime float64) []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	filtered := make([]Record, 0, len(r.records))
	for _, record := range r.records {
		if startTime > 0 && record.Timestamp < startTime {
			continue
		}
		if endTime > 0 && record.Timestamp > endTime {
			continue
		}
		filtered = append(filtered, record)
	}

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}

	return filtered
}

// snapshot returns a copy of all records for aggregate consumers.
func (r *Ring) snapshot() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]Record, len(r.records))
	copy(records, r.records)

	return records
}
