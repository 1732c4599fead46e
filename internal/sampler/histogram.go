package sampler

import (
	"fmt"
	"slices"
	"strconv"
)

// Histogram maps a measured bitstring to how many shots produced it.
//
// The leftmost character of a bitstring is the last measured qubit, so for
// measured qubits 0..n-1 the string reads as the binary integer of the
// counting register.
type Histogram map[string]int

// Outcome is one histogram entry.
type Outcome struct {
	Bitstring string `json:"bitstring" yaml:"bitstring"`
	Count     int    `json:"count" yaml:"count"`
}

// Bitstring renders pattern as a width-character bitstring, where bit i of
// pattern becomes character width-1-i.
func Bitstring(pattern, width int) string {
	return fmt.Sprintf("%0*b", width, pattern)
}

// ParseBitstring reads a bitstring back as an unsigned integer.
func ParseBitstring(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty bitstring")
	}
	return strconv.ParseUint(s, 2, 64)
}

// Total returns the sum of all counts.
func (h Histogram) Total() int {
	total := 0
	for _, n := range h {
		total += n
	}
	return total
}

// Mode returns the bitstring with the highest count. Ties go to the
// bitstring with the smallest integer value. ok is false for an empty
// histogram.
func (h Histogram) Mode() (bitstring string, count int, ok bool) {
	var bestValue uint64
	for bs, n := range h {
		value, err := ParseBitstring(bs)
		if err != nil {
			continue
		}
		if !ok || n > count || (n == count && value < bestValue) {
			bitstring, count, bestValue, ok = bs, n, value, true
		}
	}
	return bitstring, count, ok
}

// Sorted returns the outcomes in ascending integer order.
func (h Histogram) Sorted() []Outcome {
	outcomes := make([]Outcome, 0, len(h))
	for bs, n := range h {
		outcomes = append(outcomes, Outcome{Bitstring: bs, Count: n})
	}
	slices.SortFunc(outcomes, func(a, b Outcome) int {
		av, _ := ParseBitstring(a.Bitstring)
		bv, _ := ParseBitstring(b.Bitstring)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	})
	return outcomes
}
