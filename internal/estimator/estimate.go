package estimator

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"qtermpi/internal/quantum"
	"qtermpi/internal/sampler"
)

// ErrDegenerateEstimate is returned when the most frequent outcome is the
// all-zero bitstring: theta reads as 0 and 1/(2*theta) is undefined.
var ErrDegenerateEstimate = errors.New("degenerate estimate: measured phase is zero")

// Estimate is the pi estimate for one counting-qubit count.
type Estimate struct {
	Qubits int `json:"qubits" yaml:"qubits"`
	// Value is 1/(2*Theta), or NaN when Degenerate.
	Value       float64 `json:"value" yaml:"value"`
	Bitstring   string  `json:"bitstring" yaml:"bitstring"`
	K           uint64  `json:"k" yaml:"k"`
	Theta       float64 `json:"theta" yaml:"theta"`
	Probability float64 `json:"probability" yaml:"probability"`
	Degenerate  bool    `json:"degenerate" yaml:"degenerate"`
	Shots       int     `json:"shots" yaml:"shots"`

	Counts sampler.Histogram `json:"-" yaml:"-"`
}

// AbsError is |Value - pi|, or +Inf for a degenerate estimate.
func (e Estimate) AbsError() float64 {
	if e.Degenerate || math.IsNaN(e.Value) {
		return math.Inf(1)
	}
	return math.Abs(e.Value - math.Pi)
}

// MarshalJSON writes a degenerate value as null; encoding/json rejects NaN.
// The histogram follows as outcomes in ascending integer order.
func (e Estimate) MarshalJSON() ([]byte, error) {
	var value *float64
	if !e.Degenerate && !math.IsNaN(e.Value) {
		v := e.Value
		value = &v
	}
	return json.Marshal(struct {
		Qubits      int               `json:"qubits"`
		Value       *float64          `json:"value"`
		Bitstring   string            `json:"bitstring"`
		K           uint64            `json:"k"`
		Theta       float64           `json:"theta"`
		Probability float64           `json:"probability"`
		Degenerate  bool              `json:"degenerate"`
		Shots       int               `json:"shots"`
		Outcomes    []sampler.Outcome `json:"outcomes"`
	}{e.Qubits, value, e.Bitstring, e.K, e.Theta, e.Probability, e.Degenerate, e.Shots, e.Counts.Sorted()})
}

// MarshalYAML adds the sorted outcomes; yaml writes a degenerate value as .nan.
func (e Estimate) MarshalYAML() (any, error) {
	return struct {
		Qubits      int               `yaml:"qubits"`
		Value       float64           `yaml:"value"`
		Bitstring   string            `yaml:"bitstring"`
		K           uint64            `yaml:"k"`
		Theta       float64           `yaml:"theta"`
		Probability float64           `yaml:"probability"`
		Degenerate  bool              `yaml:"degenerate"`
		Shots       int               `yaml:"shots"`
		Outcomes    []sampler.Outcome `yaml:"outcomes"`
	}{e.Qubits, e.Value, e.Bitstring, e.K, e.Theta, e.Probability, e.Degenerate, e.Shots, e.Counts.Sorted()}, nil
}

// FromHistogram turns the counts for numQubits counting qubits into an
// estimate: the mode's integer value k gives theta = k/2^n and pi ~ 1/(2*theta).
// A zero mode yields a Degenerate estimate and an error wrapping
// ErrDegenerateEstimate.
func FromHistogram(numQubits int, h sampler.Histogram) (Estimate, error) {
	bitstring, count, ok := h.Mode()
	if !ok {
		return Estimate{Qubits: numQubits}, fmt.Errorf("%w: empty histogram", quantum.ErrInvalidConfiguration)
	}
	if len(bitstring) != numQubits {
		return Estimate{Qubits: numQubits}, fmt.Errorf("%w: bitstring %q does not have %d bits", quantum.ErrInvalidConfiguration, bitstring, numQubits)
	}
	k, err := sampler.ParseBitstring(bitstring)
	if err != nil {
		return Estimate{Qubits: numQubits}, fmt.Errorf("mode %q: %w", bitstring, err)
	}

	total := h.Total()
	est := Estimate{
		Qubits:      numQubits,
		Bitstring:   bitstring,
		K:           k,
		Theta:       float64(k) / math.Exp2(float64(numQubits)),
		Probability: float64(count) / float64(total),
		Shots:       total,
		Counts:      h,
	}
	if k == 0 {
		est.Degenerate = true
		est.Value = math.NaN()
		return est, fmt.Errorf("%d qubits: %w", numQubits, ErrDegenerateEstimate)
	}
	est.Value = 1 / (2 * est.Theta)
	return est, nil
}
