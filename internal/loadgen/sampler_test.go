package loadgen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZipfWeightsNormalizeAndDecrease(t *testing.T) {
	weights, err := ZipfWeights(5, 1.2)
	require.NoError(t, err)
	require.Len(t, weights, 5)

	sum := 0.0
	for i, weight := range weights {
		sum += weight
		if i > 0 {
			require.Less(t, weight, weights[i-1])
		}
	}
	require.InDelta(t, 1.0, sum, 1e-9)
}

func TestZipfWeightsFollowInverseRankPower(t *testing.T) {
	weights, err := ZipfWeights(3, 1.0)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{6.0 / 11, 3.0 / 11, 2.0 / 11}, weights, 1e-12)

	weights, err = ZipfWeights(2, 2.0)
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{4.0 / 5, 1.0 / 5}, weights, 1e-12)
}

func TestZipfSamplerOrdersRoomsByRank(t *testing.T) {
	const draws = 100000
	sampler, err := NewZipfSampler([]string{"room-1", "room-2", "room-3"}, 1.0, nil)
	require.NoError(t, err)

	counts := map[string]int{}
	for i := 0; i < draws; i++ {
		counts[sampler.Pick()]++
	}

	require.Greater(t, counts["room-1"], counts["room-2"])
	require.Greater(t, counts["room-2"], counts["room-3"])
	require.InDelta(t, 6.0/11, float64(counts["room-1"])/draws, 0.01)
	require.InDelta(t, 3.0/11, float64(counts["room-2"])/draws, 0.01)
	require.InDelta(t, 2.0/11, float64(counts["room-3"])/draws, 0.01)
}

func TestZipfWeightsZeroSkewIsUniform(t *testing.T) {
	weights, err := ZipfWeights(4, 0)
	require.NoError(t, err)
	for _, weight := range weights {
		require.InDelta(t, 0.25, weight, 1e-12)
	}
}

func TestZipfWeightsRejectInvalidInput(t *testing.T) {
	_, err := ZipfWeights(0, 1)
	require.ErrorIs(t, err, errNoItems)
	_, err = ZipfWeights(3, -1)
	require.ErrorIs(t, err, errInvalidSkew)
}

func TestWeightedSamplerPicksByCumulativeWeight(t *testing.T) {
	draws := []float64{0, 0.5, 0.5000001, 0.79, 0.81, 0.9999}
	next := 0
	draw := func() float64 {
		value := draws[next]
		next++
		return value
	}

	sampler, err := NewWeightedSampler([]string{"a", "b", "c"}, []float64{0.5, 0.3, 0.2}, draw)
	require.NoError(t, err)

	picks := make([]string, 0, len(draws))
	for range draws {
		picks = append(picks, sampler.Pick())
	}
	require.Equal(t, []string{"a", "a", "b", "b", "c", "c"}, picks)
}

func TestWeightedSamplerFallsBackToLastItem(t *testing.T) {
	sampler, err := NewWeightedSampler([]string{"a", "b"}, []float64{0.4, 0.4}, func() float64 { return 0.95 })
	require.NoError(t, err)
	require.Equal(t, "b", sampler.Pick())
}

func TestWeightedSamplerRejectsMismatchedInput(t *testing.T) {
	_, err := NewWeightedSampler(nil, nil, nil)
	require.ErrorIs(t, err, errNoItems)
	_, err = NewWeightedSampler([]string{"a"}, []float64{0.5, 0.5}, nil)
	require.ErrorIs(t, err, errWeightMismatch)
}

func TestZipfSamplerFavoursHeadRoom(t *testing.T) {
	sampler, err := NewZipfSampler([]string{"hot", "warm", "cold"}, 1.2, nil)
	require.NoError(t, err)

	counts := map[string]int{}
	for i := 0; i < 20000; i++ {
		counts[sampler.Pick()]++
	}

	weights := sampler.Weights()
	require.Equal(t, []string{"hot", "warm", "cold"}, sampler.Items())
	require.Greater(t, counts["hot"], counts["warm"])
	require.Greater(t, counts["warm"], counts["cold"])
	require.InDelta(t, weights[0], float64(counts["hot"])/20000, 0.03)
}
