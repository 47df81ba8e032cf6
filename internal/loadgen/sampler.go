package loadgen

import (
	"errors"
	"math"
	"math/rand/v2"
)

var (
	errNoItems        = errors.New("loadgen: sampler needs at least one item")
	errWeightMismatch = errors.New("loadgen: sampler needs one weight per item")
	errInvalidSkew    = errors.New("loadgen: skew must be a finite non-negative number")
)

// ZipfWeights returns n weights proportional to 1/(i+1)^skew, normalized to sum to 1.
func ZipfWeights(n int, skew float64) ([]float64, error) {
	if n < 1 {
		return nil, errNoItems
	}
	if skew < 0 || math.IsNaN(skew) || math.IsInf(skew, 0) {
		return nil, errInvalidSkew
	}
	weights := make([]float64, n)
	sum := 0.0
	for i := range weights {
		weights[i] = 1 / math.Pow(float64(i+1), skew)
		sum += weights[i]
	}
	for i := range weights {
		weights[i] /= sum
	}
	return weights, nil
}

// WeightedSampler picks items according to a fixed weight table. Safe for concurrent use as
// long as draw is.
type WeightedSampler struct {
	items      []string
	weights    []float64
	cumulative []float64
	draw       func() float64
}

// NewWeightedSampler builds a sampler over items. draw returns values in [0, 1) and defaults
// to math/rand/v2.
func NewWeightedSampler(items []string, weights []float64, draw func() float64) (*WeightedSampler, error) {
	if len(items) == 0 {
		return nil, errNoItems
	}
	if len(weights) != len(items) {
		return nil, errWeightMismatch
	}
	if draw == nil {
		draw = rand.Float64
	}

	cumulative := make([]float64, len(weights))
	acc := 0.0
	for i, weight := range weights {
		acc += weight
		cumulative[i] = acc
	}

	return &WeightedSampler{
		items:      append([]string(nil), items...),
		weights:    append([]float64(nil), weights...),
		cumulative: cumulative,
		draw:       draw,
	}, nil
}

// NewZipfSampler builds a sampler whose head items are favoured with the given skew.
func NewZipfSampler(items []string, skew float64, draw func() float64) (*WeightedSampler, error) {
	weights, err := ZipfWeights(len(items), skew)
	if err != nil {
		return nil, err
	}
	return NewWeightedSampler(items, weights, draw)
}

// Pick returns the first item whose cumulative weight reaches the draw. Rounding shortfall
// falls through to the last item.
func (s *WeightedSampler) Pick() string {
	r := s.draw()
	for i, bound := range s.cumulative {
		if bound >= r {
			return s.items[i]
		}
	}
	return s.items[len(s.items)-1]
}

func (s *WeightedSampler) Weights() []float64 {
	return append([]float64(nil), s.weights...)
}

func (s *WeightedSampler) Items() []string {
	return append([]string(nil), s.items...)
}
