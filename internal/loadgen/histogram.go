package loadgen

import (
	"errors"
	"math"
	"sync/atomic"
	"time"
)

// DefaultLatencyBounds are the bucket upper bounds, in milliseconds.
var DefaultLatencyBounds = []float64{1, 2, 5, 10, 20, 50, 75, 100, 200, 400, 800, 1200, 2000, 5000, 10000}

var errInvalidBounds = errors.New("loadgen: histogram bounds must be non-empty and strictly ascending")

// LatencyHistogram counts observations into fixed buckets. Record is lock-free.
//
// Quantile answers are approximate: they report the upper bound of the bucket holding the
// requested rank, so resolution is limited to the bucket layout.
type LatencyHistogram struct {
	bounds []float64
	counts []atomic.Int64
}

func NewLatencyHistogram(bounds []float64) (*LatencyHistogram, error) {
	if len(bounds) == 0 {
		return nil, errInvalidBounds
	}
	for i := 1; i < len(bounds); i++ {
		if !(bounds[i] > bounds[i-1]) {
			return nil, errInvalidBounds
		}
	}
	return &LatencyHistogram{
		bounds: append([]float64(nil), bounds...),
		counts: make([]atomic.Int64, len(bounds)),
	}, nil
}

// Record places value in the first bucket whose bound is at least value. Values above the
// last bound land in the last bucket.
func (h *LatencyHistogram) Record(value float64) {
	index := len(h.bounds) - 1
	for i, bound := range h.bounds {
		if value <= bound {
			index = i
			break
		}
	}
	h.counts[index].Add(1)
}

// RecordDuration records d in milliseconds.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d) / float64(time.Millisecond))
}

// Total returns the number of recorded observations.
func (h *LatencyHistogram) Total() int64 {
	var total int64
	for i := range h.counts {
		total += h.counts[i].Load()
	}
	return total
}

// Quantile returns the bound of the bucket containing rank ceil(total*q). An empty histogram
// reports 0.
func (h *LatencyHistogram) Quantile(q float64) float64 {
	counts := make([]int64, len(h.counts))
	var total int64
	for i := range h.counts {
		counts[i] = h.counts[i].Load()
		total += counts[i]
	}
	if total == 0 {
		return 0
	}

	q = math.Min(math.Max(q, 0), 1)
	need := int64(math.Ceil(float64(total) * q))
	var cumulative int64
	for i, count := range counts {
		cumulative += count
		if cumulative >= need {
			return h.bounds[i]
		}
	}
	return h.bounds[len(h.bounds)-1]
}

func (h *LatencyHistogram) Bounds() []float64 {
	return append([]float64(nil), h.bounds...)
}
