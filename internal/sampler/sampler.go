// Package sampler draws measurement shots from a simulated register.
package sampler

import (
	"cmp"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"sort"

	"qtermpi/internal/quantum"
)

// DefaultShots is the shot count used when none is configured.
const DefaultShots = 10000

// Sampler turns a final state into measurement counts over the measured
// qubits. It stands in for a remote backend's execute-and-count call.
type Sampler interface {
	Sample(state *quantum.StateVector, measured []int, shots int) (Histogram, error)
}

// ShotSampler draws independent shots from the measured marginal. It is not
// safe for concurrent use; give each goroutine its own.
type ShotSampler struct {
	rng *rand.Rand
}

// NewShotSampler returns a ShotSampler with a PCG source seeded from seed.
func NewShotSampler(seed uint64) *ShotSampler {
	return NewShotSamplerFrom(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewShotSamplerFrom wraps an existing generator.
func NewShotSamplerFrom(rng *rand.Rand) *ShotSampler {
	return &ShotSampler{rng: rng}
}

func (s *ShotSampler) Sample(state *quantum.StateVector, measured []int, shots int) (Histogram, error) {
	marginal, err := marginalFor(state, measured, shots)
	if err != nil {
		return nil, err
	}

	cumulative := make([]float64, len(marginal))
	total := 0.0
	last := 0
	for i, p := range marginal {
		total += p
		cumulative[i] = total
		if p > 0 {
			last = i
		}
	}

	counts := make([]int, len(marginal))
	for range shots {
		r := s.rng.Float64() * total
		idx := sort.Search(len(cumulative), func(i int) bool { return cumulative[i] > r })
		if idx >= len(cumulative) {
			idx = last
		}
		counts[idx]++
	}
	return toHistogram(counts, len(measured)), nil
}

// ExactSampler is a noise-free oracle: it splits the shots in proportion to
// the exact probabilities using the largest remainder method, so counts
// still sum to shots and the most likely pattern gets the most shots.
type ExactSampler struct{}

func (ExactSampler) Sample(state *quantum.StateVector, measured []int, shots int) (Histogram, error) {
	marginal, err := marginalFor(state, measured, shots)
	if err != nil {
		return nil, err
	}

	total := 0.0
	for _, p := range marginal {
		total += p
	}

	type share struct {
		index     int
		remainder float64
	}
	counts := make([]int, len(marginal))
	shares := make([]share, len(marginal))
	assigned := 0
	for i, p := range marginal {
		exact := p / total * float64(shots)
		whole := math.Floor(exact)
		counts[i] = int(whole)
		assigned += counts[i]
		shares[i] = share{index: i, remainder: exact - whole}
	}

	slices.SortStableFunc(shares, func(a, b share) int {
		return cmp.Compare(b.remainder, a.remainder)
	})
	for i := 0; assigned < shots; i++ {
		counts[shares[i%len(shares)].index]++
		assigned++
	}
	return toHistogram(counts, len(measured)), nil
}

func marginalFor(state *quantum.StateVector, measured []int, shots int) ([]float64, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("%w: shot count must be positive, got %d", quantum.ErrInvalidConfiguration, shots)
	}
	if len(measured) == 0 {
		return nil, fmt.Errorf("%w: no measured qubits", quantum.ErrInvalidConfiguration)
	}
	return state.MarginalProbabilities(measured)
}

func toHistogram(counts []int, width int) Histogram {
	h := make(Histogram)
	for pattern, n := range counts {
		if n > 0 {
			h[Bitstring(pattern, width)] = n
		}
	}
	return h
}
