package loadgen

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLatencyHistogramQuantiles(t *testing.T) {
	histogram, err := NewLatencyHistogram(DefaultLatencyBounds)
	require.NoError(t, err)

	for i := 0; i < 90; i++ {
		histogram.Record(3)
	}
	for i := 0; i < 9; i++ {
		histogram.Record(150)
	}
	histogram.Record(20000)

	require.Equal(t, int64(100), histogram.Total())
	require.Equal(t, 5.0, histogram.Quantile(0.5))
	require.Equal(t, 200.0, histogram.Quantile(0.95))
	require.Equal(t, 200.0, histogram.Quantile(0.99))
	require.Equal(t, 10000.0, histogram.Quantile(1))
}

func TestLatencyHistogramMixedSamples(t *testing.T) {
	histogram, err := NewLatencyHistogram(DefaultLatencyBounds)
	require.NoError(t, err)

	for _, value := range []float64{1, 1, 50, 5000} {
		histogram.Record(value)
	}

	require.Equal(t, 1.0, histogram.Quantile(0.5))
	require.Equal(t, 5000.0, histogram.Quantile(1.0))
}

func TestLatencyHistogramBoundaryValuesStayInBucket(t *testing.T) {
	histogram, err := NewLatencyHistogram([]float64{1, 2, 5})
	require.NoError(t, err)

	histogram.Record(2)
	require.Equal(t, 2.0, histogram.Quantile(1))

	histogram.Record(0.2)
	require.Equal(t, 1.0, histogram.Quantile(0.5))
}

func TestLatencyHistogramEmptyReportsZero(t *testing.T) {
	histogram, err := NewLatencyHistogram(DefaultLatencyBounds)
	require.NoError(t, err)
	require.Zero(t, histogram.Quantile(0.5))
	require.Zero(t, histogram.Quantile(0.99))
}

func TestLatencyHistogramRecordDuration(t *testing.T) {
	histogram, err := NewLatencyHistogram(DefaultLatencyBounds)
	require.NoError(t, err)

	histogram.RecordDuration(60 * time.Millisecond)
	require.Equal(t, 75.0, histogram.Quantile(0.5))
}

func TestLatencyHistogramRejectsInvalidBounds(t *testing.T) {
	_, err := NewLatencyHistogram(nil)
	require.ErrorIs(t, err, errInvalidBounds)
	_, err = NewLatencyHistogram([]float64{1, 1, 2})
	require.ErrorIs(t, err, errInvalidBounds)
}

func TestLatencyHistogramConcurrentRecords(t *testing.T) {
	histogram, err := NewLatencyHistogram(DefaultLatencyBounds)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for worker := 0; worker < 16; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				histogram.Record(float64(worker))
				_ = histogram.Quantile(0.99)
			}
		}(worker)
	}
	wg.Wait()

	require.Equal(t, int64(16000), histogram.Total())
	require.Equal(t, 20.0, histogram.Quantile(1))
}
