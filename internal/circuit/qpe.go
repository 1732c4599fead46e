package circuit

import (
	"fmt"
	"math"

	"qtermpi/internal/quantum"
)

// UnitPhase is the eigenphase, in radians, of the operator whose phase the
// circuit estimates. Reading it back as theta = UnitPhase/(2*pi) turns the
// estimate into an estimate of pi.
const UnitPhase = 1.0

// BuildQPE returns the phase estimation circuit with numCounting counting
// qubits (indices 0..numCounting-1) and one eigenstate qubit at index
// numCounting. Only the counting qubits are measured.
func BuildQPE(numCounting int) (*Circuit, error) {
	if numCounting < 1 {
		return nil, fmt.Errorf("%w: need at least 1 counting qubit, got %d", quantum.ErrInvalidConfiguration, numCounting)
	}
	if numCounting+1 > quantum.MaxQubits {
		return nil, fmt.Errorf("%w: %d counting qubits exceeds the %d-qubit register limit", quantum.ErrInvalidConfiguration, numCounting, quantum.MaxQubits)
	}

	c := New(numCounting + 1)
	prepareEigenphase(c, numCounting)
	inverseQFT(c, numCounting)
	for q := range numCounting {
		c.Measure(q)
	}
	return c, nil
}

// prepareEigenphase puts the counting register in uniform superposition,
// flips the eigenstate qubit to |1> and kicks back the phase: counting qubit
// c ends up with 2^c applications of CU1(UnitPhase).
func prepareEigenphase(c *Circuit, n int) {
	for q := range n {
		c.Add(quantum.Hadamard(q))
	}
	c.Add(quantum.PauliX(n))

	for x := n - 1; x >= 0; x-- {
		control := n - 1 - x
		reps := 1 << (n - 1 - x)
		for range reps {
			c.Add(quantum.ControlledPhase(UnitPhase, control, n))
		}
	}
}

// inverseQFT appends QFT† over qubits 0..n-1. The swaps come first, then
// the phase ladder and Hadamard per qubit in ascending order; changing that
// order changes which phase bit each qubit ends up holding.
func inverseQFT(c *Circuit, n int) {
	for q := range n / 2 {
		c.Add(quantum.Swap(q, n-q-1))
	}
	for j := range n {
		for m := range j {
			theta := -math.Pi / float64(int(1)<<(j-m))
			c.Add(quantum.ControlledPhase(theta, m, j))
		}
		c.Add(quantum.Hadamard(j))
	}
}
