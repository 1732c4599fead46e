package estimator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"qtermpi/internal/quantum"
	"qtermpi/internal/sampler"
)

func TestEstimatePiExactGolden(t *testing.T) {
	tests := []struct {
		qubits    int
		bitstring string
		k         uint64
		value     float64
	}{
		{2, "01", 1, 2},
		{4, "0011", 3, 8.0 / 3.0},
		{10, "0010100011", 163, 1024.0 / 326.0},
	}

	eng := New(WithExactSampler())
	for _, tt := range tests {
		t.Run(tt.bitstring, func(t *testing.T) {
			est, err := eng.EstimatePi(context.Background(), tt.qubits, sampler.DefaultShots)
			require.NoError(t, err)

			assert.Equal(t, tt.qubits, est.Qubits)
			assert.Equal(t, tt.bitstring, est.Bitstring)
			assert.Equal(t, tt.k, est.K)
			assert.InDelta(t, float64(tt.k)/math.Exp2(float64(tt.qubits)), est.Theta, 1e-15)
			assert.InDelta(t, tt.value, est.Value, 1e-12)
			assert.False(t, est.Degenerate)
			assert.Equal(t, sampler.DefaultShots, est.Shots)
			assert.Equal(t, sampler.DefaultShots, est.Counts.Total())
		})
	}
}

func TestEstimatePiSaturatesNearPi(t *testing.T) {
	est, err := New(WithExactSampler()).EstimatePi(context.Background(), 4, 1000)
	require.NoError(t, err)
	assert.InDelta(t, math.Pi, est.Value, 0.5)
}

func TestEstimatePiDegenerate(t *testing.T) {
	engines := map[string]*Engine{
		"exact": New(WithExactSampler()),
		"shots": New(WithSeed(11)),
	}

	for name, eng := range engines {
		t.Run(name, func(t *testing.T) {
			est, err := eng.EstimatePi(context.Background(), 1, sampler.DefaultShots)
			require.ErrorIs(t, err, ErrDegenerateEstimate)

			assert.True(t, est.Degenerate)
			assert.True(t, math.IsNaN(est.Value))
			assert.Equal(t, "0", est.Bitstring)
			assert.Zero(t, est.K)
			assert.True(t, math.IsInf(est.AbsError(), 1))
		})
	}
}

func TestEstimatePiInvalidConfiguration(t *testing.T) {
	eng := New(WithSeed(1))
	tests := []struct {
		name   string
		qubits int
		shots  int
	}{
		{"zero qubits", 0, 100},
		{"negative qubits", -3, 100},
		{"too many qubits", quantum.MaxQubits, 100},
		{"zero shots", 3, 0},
		{"negative shots", 3, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.EstimatePi(context.Background(), tt.qubits, tt.shots)
			assert.ErrorIs(t, err, quantum.ErrInvalidConfiguration)
		})
	}
}

func TestEstimatePiCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().EstimatePi(ctx, 3, 100)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEstimatePiConverges(t *testing.T) {
	meanError := func(qubits int) float64 {
		total := 0.0
		seeds := []uint64{1, 2, 3, 4, 5}
		for _, seed := range seeds {
			est, err := New(WithSeed(seed)).EstimatePi(context.Background(), qubits, sampler.DefaultShots)
			require.NoError(t, err)
			total += est.AbsError()
		}
		return total / float64(len(seeds))
	}

	small, large := meanError(2), meanError(10)
	assert.Less(t, large, small)
	assert.Less(t, large, 0.01)
}

func TestEstimatePiSeedIsReproducible(t *testing.T) {
	a, err := New(WithSeed(99)).EstimatePi(context.Background(), 6, 2000)
	require.NoError(t, err)
	b, err := New(WithSeed(99)).EstimatePi(context.Background(), 6, 2000)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEstimatePiLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)

	_, err := New(WithLogger(logger), WithExactSampler()).EstimatePi(context.Background(), 3, 100)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "built circuit")
	assert.Contains(t, buf.String(), "estimated pi")
}

func TestSweepOrder(t *testing.T) {
	eng := New(WithSeed(3))

	var got []int
	for est, err := range eng.Sweep(context.Background(), []int{3, 5, 7}, sampler.DefaultShots) {
		require.NoError(t, err)
		got = append(got, est.Qubits)
	}
	assert.Equal(t, []int{3, 5, 7}, got)
}

func TestSweepContinuesPastDegenerate(t *testing.T) {
	eng := New(WithExactSampler())

	var qubits []int
	var errs []error
	for est, err := range eng.Sweep(context.Background(), []int{1, 2, 4}, 1000) {
		qubits = append(qubits, est.Qubits)
		errs = append(errs, err)
	}

	assert.Equal(t, []int{1, 2, 4}, qubits)
	assert.ErrorIs(t, errs[0], ErrDegenerateEstimate)
	assert.NoError(t, errs[1])
	assert.NoError(t, errs[2])
}

func TestSweepRejectsInvalidInputBeforeSimulating(t *testing.T) {
	tests := []struct {
		name   string
		qubits []int
		shots  int
	}{
		{"zero qubits last", []int{6, 7, 0}, 1000},
		{"too many qubits", []int{2, quantum.MaxQubits}, 1000},
		{"zero shots", []int{2, 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			simulated := 0
			eng := New(WithExactSampler(), WithObserver(func(Estimate, error) { simulated++ }))

			var errs []error
			for _, err := range eng.Sweep(context.Background(), tt.qubits, tt.shots) {
				errs = append(errs, err)
			}

			require.Len(t, errs, 1)
			assert.ErrorIs(t, errs[0], quantum.ErrInvalidConfiguration)
			assert.Zero(t, simulated)
		})
	}
}

var errSampling = errors.New("sampling failed")

// failAt fails to sample any circuit measuring n qubits.
type failAt int

func (f failAt) Sample(state *quantum.StateVector, measured []int, shots int) (sampler.Histogram, error) {
	if len(measured) == int(f) {
		return nil, errSampling
	}
	return sampler.ExactSampler{}.Sample(state, measured, shots)
}

func TestSweepStopsOnError(t *testing.T) {
	eng := New(WithSamplerFactory(func(uint64) sampler.Sampler { return failAt(3) }))

	var qubits []int
	var last error
	for est, err := range eng.Sweep(context.Background(), []int{2, 3, 4}, 1000) {
		qubits = append(qubits, est.Qubits)
		last = err
	}

	assert.Equal(t, []int{2, 3}, qubits)
	assert.ErrorIs(t, last, errSampling)
}

func TestSweepEarlyBreakAndRestart(t *testing.T) {
	eng := New(WithSeed(8))
	seq := eng.Sweep(context.Background(), []int{2, 3, 4, 5}, 500)

	var first []Estimate
	for est, err := range seq {
		require.NoError(t, err)
		first = append(first, est)
		if len(first) == 2 {
			break
		}
	}
	require.Len(t, first, 2)

	var again []Estimate
	for est, err := range seq {
		require.NoError(t, err)
		again = append(again, est)
	}
	require.Len(t, again, 4)
	assert.Equal(t, first, again[:2])
}

func TestSweepEmpty(t *testing.T) {
	n := 0
	for range New().Sweep(context.Background(), nil, 100) {
		n++
	}
	assert.Zero(t, n)
}

func TestSweepParallelMatchesSweep(t *testing.T) {
	qubits := []int{1, 2, 3, 4, 5, 6, 7, 8}

	var sequential []Estimate
	for est, err := range New(WithSeed(21)).Sweep(context.Background(), qubits, 2000) {
		if err != nil {
			require.ErrorIs(t, err, ErrDegenerateEstimate)
		}
		sequential = append(sequential, est)
	}

	parallel, err := New(WithSeed(21), WithWorkers(4)).SweepParallel(context.Background(), qubits, 2000)
	require.NoError(t, err)
	require.Len(t, parallel, len(qubits))

	for i := range qubits {
		assert.Equal(t, qubits[i], parallel[i].Qubits)
		assert.Equal(t, sequential[i].Bitstring, parallel[i].Bitstring)
		assert.Equal(t, sequential[i].Degenerate, parallel[i].Degenerate)
	}
	assert.True(t, parallel[0].Degenerate)
}

func TestSweepParallelRejectsInvalidQubits(t *testing.T) {
	called := false
	eng := New(WithObserver(func(Estimate, error) { called = true }))

	got, err := eng.SweepParallel(context.Background(), []int{3, 0}, 100)
	assert.ErrorIs(t, err, quantum.ErrInvalidConfiguration)
	assert.Nil(t, got)
	assert.False(t, called)
}

func TestSweepParallelRejectsZeroShots(t *testing.T) {
	_, err := New(WithWorkers(2)).SweepParallel(context.Background(), []int{2, 3}, 0)
	assert.ErrorIs(t, err, quantum.ErrInvalidConfiguration)
}

func TestSweepParallelStopsOnError(t *testing.T) {
	eng := New(WithWorkers(2), WithSamplerFactory(func(uint64) sampler.Sampler { return failAt(3) }))
	got, err := eng.SweepParallel(context.Background(), []int{2, 3, 4}, 100)
	assert.ErrorIs(t, err, errSampling)
	assert.Nil(t, got)
}

func TestObserverSeesEveryEstimate(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]bool)
	eng := New(WithSeed(4), WithWorkers(3), WithObserver(func(est Estimate, _ error) {
		mu.Lock()
		defer mu.Unlock()
		seen[est.Qubits] = true
	}))

	_, err := eng.SweepParallel(context.Background(), []int{2, 3, 4, 5, 6}, 500)
	require.NoError(t, err)
	assert.Len(t, seen, 5)
}

func TestEstimateJSON(t *testing.T) {
	ok := Estimate{
		Qubits: 4, Value: 8.0 / 3.0, Bitstring: "0011", K: 3, Theta: 0.1875, Probability: 0.4, Shots: 10,
		Counts: sampler.Histogram{"0100": 2, "0011": 4, "0010": 4},
	}
	data, err := json.Marshal(ok)
	require.NoError(t, err)
	assert.JSONEq(t, `{"qubits":4,"value":2.6666666666666665,"bitstring":"0011","k":3,"theta":0.1875,"probability":0.4,"degenerate":false,"shots":10,
		"outcomes":[{"bitstring":"0010","count":4},{"bitstring":"0011","count":4},{"bitstring":"0100","count":2}]}`, string(data))

	degenerate := Estimate{Qubits: 1, Value: math.NaN(), Bitstring: "0", Degenerate: true, Probability: 0.77, Shots: 10}
	data, err = json.Marshal(degenerate)
	require.NoError(t, err)
	assert.JSONEq(t, `{"qubits":1,"value":null,"bitstring":"0","k":0,"theta":0,"probability":0.77,"degenerate":true,"shots":10,"outcomes":[]}`, string(data))
}

func TestEstimateYAML(t *testing.T) {
	est := Estimate{Qubits: 1, Value: math.NaN(), Bitstring: "0", Degenerate: true, Shots: 4, Counts: sampler.Histogram{"1": 1, "0": 3}}
	data, err := yaml.Marshal(est)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "value: .nan")
	assert.Contains(t, out, "outcomes:")
	assert.NotContains(t, out, "counts")

	var back struct {
		Outcomes []sampler.Outcome `yaml:"outcomes"`
	}
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, []sampler.Outcome{{Bitstring: "0", Count: 3}, {Bitstring: "1", Count: 1}}, back.Outcomes)
}

func TestFromHistogram(t *testing.T) {
	est, err := FromHistogram(3, sampler.Histogram{"001": 10, "010": 70, "011": 20})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), est.K)
	assert.InDelta(t, 0.25, est.Theta, 1e-15)
	assert.InDelta(t, 2.0, est.Value, 1e-15)
	assert.InDelta(t, 0.7, est.Probability, 1e-15)

	_, err = FromHistogram(3, sampler.Histogram{})
	assert.ErrorIs(t, err, quantum.ErrInvalidConfiguration)

	_, err = FromHistogram(3, sampler.Histogram{"01": 5})
	assert.ErrorIs(t, err, quantum.ErrInvalidConfiguration)

	est, err = FromHistogram(2, sampler.Histogram{"00": 5, "10": 5})
	assert.ErrorIs(t, err, ErrDegenerateEstimate)
	assert.True(t, est.Degenerate)
}
