package circuit

import (
	"math"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qtermpi/internal/quantum"
)

// To regenerate golden files, run:
//
//	go test ./internal/circuit -update
func TestQPEToQASMGolden(t *testing.T) {
	c, err := BuildQPE(3)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "qpe_3", []byte(c.ToQASM()))
}

func TestQASMRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 5, 7} {
		c, err := BuildQPE(n)
		require.NoError(t, err)

		parsed, err := ParseQASM(c.ToQASM())
		require.NoError(t, err, "n=%d", n)

		assert.Equal(t, c.NumQubits, parsed.NumQubits)
		assert.Equal(t, c.Measured, parsed.Measured)
		require.Len(t, parsed.Gates, len(c.Gates))
		for i := range c.Gates {
			want, got := c.Gates[i], parsed.Gates[i]
			assert.Equal(t, want.Kind, got.Kind, "n=%d gate %d", n, i)
			assert.Equal(t, want.Qubits(), got.Qubits(), "n=%d gate %d", n, i)
			assert.InDelta(t, want.Theta, got.Theta, 1e-12, "n=%d gate %d", n, i)
		}
	}
}

func TestParseQASMPiAngles(t *testing.T) {
	qasm := `OPENQASM 2.0;
include "qelib1.inc";

qreg q[3];
creg c[2];

h q[0];
cu1(-pi/16) q[0], q[2];
cp(3*pi/4) q[1], q[2];
swap q[0], q[1];
measure q[1] -> c[0];`

	c, err := ParseQASM(qasm)
	require.NoError(t, err)
	require.Len(t, c.Gates, 4)

	assert.Equal(t, quantum.Hadamard(0), c.Gates[0])
	assert.InDelta(t, -math.Pi/16, c.Gates[1].Theta, 1e-12)
	assert.Equal(t, []int{0, 2}, c.Gates[1].Qubits())
	assert.InDelta(t, 3*math.Pi/4, c.Gates[2].Theta, 1e-12)
	assert.Equal(t, quantum.Swap(0, 1), c.Gates[3])
	assert.Equal(t, []int{1}, c.Measured)
}

func TestParseQASMErrors(t *testing.T) {
	tests := []struct {
		name string
		qasm string
		is   error
	}{
		{
			name: "unsupported gate",
			qasm: "qreg q[2];\nry(pi/2) q[0];",
		},
		{
			name: "unsupported two-qubit gate",
			qasm: "qreg q[2];\ncx q[0], q[1];",
		},
		{
			name: "missing qreg",
			qasm: "h q[0];",
			is:   quantum.ErrInvalidConfiguration,
		},
		{
			name: "qubit past register",
			qasm: "qreg q[2];\nh q[2];",
			is:   quantum.ErrInvalidQubitIndex,
		},
		{
			name: "measurement past register",
			qasm: "qreg q[2];\nh q[0];\nmeasure q[7] -> c[0];",
			is:   quantum.ErrInvalidQubitIndex,
		},
		{
			name: "bad angle",
			qasm: "qreg q[2];\ncu1(tau) q[0], q[1];",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseQASM(tt.qasm)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}
