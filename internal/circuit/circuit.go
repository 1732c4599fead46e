// Package circuit builds the phase estimation circuit and reads and writes OpenQASM 2.0.
package circuit

import (
	"context"
	"fmt"
	"slices"

	"qtermpi/internal/quantum"
)

// cancelCheckInterval is how many gates Run applies between context checks.
const cancelCheckInterval = 1024

// Circuit is an ordered gate list over NumQubits qubits plus the qubits
// whose values are read out at the end.
type Circuit struct {
	NumQubits int
	Gates     []quantum.Gate
	Measured  []int
}

// New returns an empty circuit over numQubits qubits.
func New(numQubits int) *Circuit {
	return &Circuit{NumQubits: numQubits}
}

// Add appends gates in order.
func (c *Circuit) Add(gates ...quantum.Gate) {
	c.Gates = append(c.Gates, gates...)
}

// Measure declares qubits as measured. Repeats are ignored.
func (c *Circuit) Measure(qubits ...int) {
	for _, q := range qubits {
		if !slices.Contains(c.Measured, q) {
			c.Measured = append(c.Measured, q)
		}
	}
}

// Run applies every gate to s in order.
func (c *Circuit) Run(ctx context.Context, s *quantum.StateVector) error {
	if s.NumQubits != c.NumQubits {
		return fmt.Errorf("%w: circuit has %d qubits, state has %d", quantum.ErrInvalidConfiguration, c.NumQubits, s.NumQubits)
	}
	for i, g := range c.Gates {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := s.Apply(g); err != nil {
			return fmt.Errorf("gate %d: %w", i, err)
		}
	}
	return nil
}

// Simulate runs the circuit against a fresh |0...0> state.
func (c *Circuit) Simulate(ctx context.Context) (*quantum.StateVector, error) {
	state, err := quantum.NewStateVector(c.NumQubits)
	if err != nil {
		return nil, err
	}
	if err := c.Run(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Depth returns the number of layers when gates on disjoint qubits are
// packed into the same layer.
func (c *Circuit) Depth() int {
	lastLayer := make(map[int]int)
	depth := 0
	for _, g := range c.Gates {
		layer := 0
		for _, q := range g.Qubits() {
			layer = max(layer, lastLayer[q])
		}
		layer++
		for _, q := range g.Qubits() {
			lastLayer[q] = layer
		}
		depth = max(depth, layer)
	}
	return depth
}

// Counts tallies gates by kind.
func (c *Circuit) Counts() map[quantum.GateKind]int {
	counts := make(map[quantum.GateKind]int)
	for _, g := range c.Gates {
		counts[g.Kind]++
	}
	return counts
}

// GatesOnQubit returns the gates that touch the given qubit, in order.
func (c *Circuit) GatesOnQubit(qubit int) []quantum.Gate {
	var gates []quantum.Gate
	for _, g := range c.Gates {
		if g.References(qubit) {
			gates = append(gates, g)
		}
	}
	return gates
}
