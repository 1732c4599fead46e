// Package quantum is a state-vector simulator for H, X, SWAP and controlled-phase.
package quantum

import (
	"fmt"
	"math"
	"math/cmplx"
)

type Complex = complex128

// MaxQubits bounds the register size; 2^24 amplitudes is 256 MiB.
const MaxQubits = 24

// normTolerance is how far the squared norm may drift before Apply rescales.
const normTolerance = 1e-12

// StateVector holds the 2^n amplitudes of an n-qubit register. Bit q of a
// basis index is the value of qubit q.
type StateVector struct {
	Amplitudes []Complex
	NumQubits  int
}

// NewStateVector returns |0...0> over numQubits qubits.
func NewStateVector(numQubits int) (*StateVector, error) {
	if numQubits < 1 || numQubits > MaxQubits {
		return nil, fmt.Errorf("%w: register of %d qubits (want 1..%d)", ErrInvalidConfiguration, numQubits, MaxQubits)
	}
	amps := make([]Complex, 1<<numQubits)
	amps[0] = 1
	return &StateVector{Amplitudes: amps, NumQubits: numQubits}, nil
}

func (s *StateVector) Clone() *StateVector {
	amps := make([]Complex, len(s.Amplitudes))
	copy(amps, s.Amplitudes)
	return &StateVector{Amplitudes: amps, NumQubits: s.NumQubits}
}

// Apply applies g in place.
func (s *StateVector) Apply(g Gate) error {
	if err := s.checkOperands(g); err != nil {
		return err
	}

	switch g.Kind {
	case KindH:
		s.applyH(g.Target)
	case KindX:
		s.applyX(g.Target)
	case KindSwap:
		s.applySWAP(g.Control, g.Target)
	case KindCU1:
		s.applyCU1(g.Control, g.Target, g.Theta)
	default:
		return fmt.Errorf("unknown gate kind %q", g.Kind)
	}

	s.renormalize()
	return nil
}

func (s *StateVector) checkOperands(g Gate) error {
	for _, q := range g.Qubits() {
		if q < 0 || q >= s.NumQubits {
			return fmt.Errorf("%w: %s on a %d-qubit register", ErrInvalidQubitIndex, g, s.NumQubits)
		}
	}
	if g.Control >= 0 && g.Control == g.Target {
		return fmt.Errorf("%w: %s uses q%d twice", ErrInvalidQubitIndex, g, g.Target)
	}
	return nil
}

func (s *StateVector) applyH(q int) {
	hFactor := complex(1.0/math.Sqrt2, 0)
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit == 0 {
			j := i | bit
			a, b := s.Amplitudes[i], s.Amplitudes[j]
			s.Amplitudes[i] = hFactor * (a + b)
			s.Amplitudes[j] = hFactor * (a - b)
		}
	}
}

func (s *StateVector) applyX(q int) {
	bit := 1 << q
	for i := range s.Amplitudes {
		if i&bit == 0 {
			j := i | bit
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applySWAP(q1, q2 int) {
	bit1 := 1 << q1
	bit2 := 1 << q2
	for i := range s.Amplitudes {
		if i&bit1 != 0 && i&bit2 == 0 {
			j := (i &^ bit1) | bit2
			s.Amplitudes[i], s.Amplitudes[j] = s.Amplitudes[j], s.Amplitudes[i]
		}
	}
}

func (s *StateVector) applyCU1(control, target int, theta float64) {
	mask := 1<<control | 1<<target
	phase := cmplx.Exp(complex(0, theta))
	for i := range s.Amplitudes {
		if i&mask == mask {
			s.Amplitudes[i] *= phase
		}
	}
}

// renormalize rescales the vector when rounding has pushed the squared norm
// away from 1.
func (s *StateVector) renormalize() {
	norm := s.Norm()
	if math.Abs(norm-1) <= normTolerance || norm == 0 {
		return
	}
	scale := complex(1/math.Sqrt(norm), 0)
	for i := range s.Amplitudes {
		s.Amplitudes[i] *= scale
	}
}

// Norm returns the total probability mass (sum of squared magnitudes).
func (s *StateVector) Norm() float64 {
	total := 0.0
	for _, amp := range s.Amplitudes {
		total += real(amp * cmplx.Conj(amp))
	}
	return total
}

// Probabilities returns |amp|^2 for every basis state.
func (s *StateVector) Probabilities() []float64 {
	probs := make([]float64, len(s.Amplitudes))
	for i, amp := range s.Amplitudes {
		probs[i] = real(amp * cmplx.Conj(amp))
	}
	return probs
}

// MarginalProbabilities sums the distribution over the unlisted qubits. The
// result is indexed by pattern, where bit i of the pattern is the value of
// qubits[i].
func (s *StateVector) MarginalProbabilities(qubits []int) ([]float64, error) {
	for _, q := range qubits {
		if q < 0 || q >= s.NumQubits {
			return nil, fmt.Errorf("%w: measured qubit %d on a %d-qubit register", ErrInvalidQubitIndex, q, s.NumQubits)
		}
	}

	marginal := make([]float64, 1<<len(qubits))
	for i, prob := range s.Probabilities() {
		if prob == 0 {
			continue
		}
		pattern := 0
		for bit, q := range qubits {
			if i&(1<<q) != 0 {
				pattern |= 1 << bit
			}
		}
		marginal[pattern] += prob
	}
	return marginal, nil
}
