package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitstring(t *testing.T) {
	assert.Equal(t, "0011", Bitstring(3, 4))
	assert.Equal(t, "0", Bitstring(0, 1))
	assert.Equal(t, "10100011", Bitstring(163, 8))

	v, err := ParseBitstring("0010100011")
	require.NoError(t, err)
	assert.Equal(t, uint64(163), v)

	_, err = ParseBitstring("")
	assert.Error(t, err)
	_, err = ParseBitstring("012")
	assert.Error(t, err)
}

func TestHistogramMode(t *testing.T) {
	tests := []struct {
		name  string
		h     Histogram
		want  string
		count int
	}{
		{"single winner", Histogram{"000": 10, "011": 60, "101": 30}, "011", 60},
		{"tie goes to smallest value", Histogram{"110": 40, "010": 40, "100": 40, "001": 5}, "010", 40},
		{"all-zero can win", Histogram{"00": 7, "01": 3}, "00", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Map iteration order varies; repeat to catch order dependence.
			for range 20 {
				bs, n, ok := tt.h.Mode()
				require.True(t, ok)
				assert.Equal(t, tt.want, bs)
				assert.Equal(t, tt.count, n)
			}
		})
	}

	_, _, ok := Histogram{}.Mode()
	assert.False(t, ok)
}

func TestHistogramSortedAndTotal(t *testing.T) {
	h := Histogram{"11": 1, "00": 4, "10": 2, "01": 3}
	assert.Equal(t, 10, h.Total())
	assert.Equal(t, []Outcome{
		{"00", 4},
		{"01", 3},
		{"10", 2},
		{"11", 1},
	}, h.Sorted())
}
