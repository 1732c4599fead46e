// Package estimator turns QPE measurement statistics into estimates of pi.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"qtermpi/internal/circuit"
	"qtermpi/internal/quantum"
	"qtermpi/internal/sampler"
)

// SamplerFactory returns the sampler for one estimate. seed is already
// specific to that estimate.
type SamplerFactory func(seed uint64) sampler.Sampler

// Observer is called after every estimate a sweep produces. SweepParallel
// calls it from several goroutines.
type Observer func(Estimate, error)

// Engine runs the QPE pipeline: build, simulate, sample, read out.
type Engine struct {
	logger     *log.Logger
	newSampler SamplerFactory
	seed       uint64
	workers    int
	observer   Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithSamplerFactory replaces the default shot sampler.
func WithSamplerFactory(f SamplerFactory) Option {
	return func(e *Engine) {
		if f != nil {
			e.newSampler = f
		}
	}
}

// WithExactSampler makes every estimate use the noise-free oracle.
func WithExactSampler() Option {
	return WithSamplerFactory(func(uint64) sampler.Sampler { return sampler.ExactSampler{} })
}

// WithSeed fixes the base seed. The estimate for n qubits uses seed+n, so
// results do not depend on sweep order or worker count.
func WithSeed(seed uint64) Option {
	return func(e *Engine) { e.seed = seed }
}

// WithWorkers bounds SweepParallel's concurrency. Values below 1 mean
// GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithObserver registers a callback for sweep progress.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New returns an Engine. Without WithSeed the base seed is random.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: log.New(io.Discard),
		newSampler: func(seed uint64) sampler.Sampler {
			return sampler.NewShotSampler(seed)
		},
		seed: rand.Uint64(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.GOMAXPROCS(0)
	}
	return e
}

// Seed returns the base seed in use.
func (e *Engine) Seed() uint64 {
	return e.seed
}

// EstimatePi estimates pi with numQubits counting qubits and shots
// measurements. A degenerate outcome returns the Degenerate estimate
// together with an error wrapping ErrDegenerateEstimate.
func (e *Engine) EstimatePi(ctx context.Context, numQubits, shots int) (Estimate, error) {
	ctx, span := startEstimateSpan(ctx, numQubits, shots)
	defer span.End()

	start := time.Now()
	est, err := e.estimate(ctx, numQubits, shots)
	elapsed := time.Since(start)

	setEstimateSpanResult(span, est, err)
	recordEstimateMetrics(ctx, elapsed, est, err)

	switch {
	case err == nil:
		e.logger.Info("estimated pi", "qubits", numQubits, "bitstring", est.Bitstring, "estimate", est.Value, "elapsed", elapsed)
	case errors.Is(err, ErrDegenerateEstimate):
		e.logger.Warn("degenerate estimate", "qubits", numQubits, "probability", est.Probability)
	default:
		e.logger.Error("estimate failed", "qubits", numQubits, "err", err)
	}
	return est, err
}

func (e *Engine) estimate(ctx context.Context, numQubits, shots int) (Estimate, error) {
	if err := validateShots(shots); err != nil {
		return Estimate{Qubits: numQubits}, err
	}

	c, err := circuit.BuildQPE(numQubits)
	if err != nil {
		return Estimate{Qubits: numQubits}, err
	}
	e.logger.Debug("built circuit", "qubits", c.NumQubits, "gates", len(c.Gates), "depth", c.Depth())

	state, err := c.Simulate(ctx)
	if err != nil {
		return Estimate{Qubits: numQubits}, fmt.Errorf("simulate %d qubits: %w", numQubits, err)
	}

	counts, err := e.newSampler(e.seed+uint64(numQubits)).Sample(state, c.Measured, shots)
	if err != nil {
		return Estimate{Qubits: numQubits}, fmt.Errorf("sample %d qubits: %w", numQubits, err)
	}
	e.logger.Debug("sampled", "qubits", numQubits, "outcomes", len(counts))

	return FromHistogram(numQubits, counts)
}

// Sweep lazily estimates pi for each qubit count in order. Invalid qubit
// counts or shots are yielded as a single error before anything is
// simulated. A degenerate iteration yields its estimate with
// ErrDegenerateEstimate and the sweep goes on; any other error is yielded
// once and ends the sweep. The returned sequence can be ranged over more
// than once.
func (e *Engine) Sweep(ctx context.Context, qubits []int, shots int) iter.Seq2[Estimate, error] {
	return func(yield func(Estimate, error) bool) {
		if err := validateSweep(qubits, shots); err != nil {
			yield(Estimate{}, err)
			return
		}
		for _, n := range qubits {
			if err := ctx.Err(); err != nil {
				yield(Estimate{Qubits: n}, err)
				return
			}
			est, err := e.EstimatePi(ctx, n, shots)
			e.notify(est, err)
			if !yield(est, err) {
				return
			}
			if err != nil && !errors.Is(err, ErrDegenerateEstimate) {
				return
			}
		}
	}
}

// SweepParallel estimates every qubit count concurrently, at most the
// configured number of workers at a time, and returns the estimates in
// input order. Degenerate estimates are kept; any other error cancels the
// remaining work.
func (e *Engine) SweepParallel(ctx context.Context, qubits []int, shots int) ([]Estimate, error) {
	if err := validateSweep(qubits, shots); err != nil {
		return nil, err
	}

	results := make([]Estimate, len(qubits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, n := range qubits {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			est, err := e.EstimatePi(gctx, n, shots)
			e.notify(est, err)
			if err != nil && !errors.Is(err, ErrDegenerateEstimate) {
				return err
			}
			results[i] = est
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Engine) notify(est Estimate, err error) {
	if e.observer != nil {
		e.observer(est, err)
	}
}

func validateShots(shots int) error {
	if shots <= 0 {
		return fmt.Errorf("%w: shot count must be positive, got %d", quantum.ErrInvalidConfiguration, shots)
	}
	return nil
}

func validateSweep(qubits []int, shots int) error {
	if err := validateShots(shots); err != nil {
		return err
	}
	return ValidateQubits(qubits)
}

// ValidateQubits checks that every qubit count can be built.
func ValidateQubits(qubits []int) error {
	for _, n := range qubits {
		if n < 1 || n+1 > quantum.MaxQubits {
			return fmt.Errorf("%w: qubit count %d outside [1, %d]", quantum.ErrInvalidConfiguration, n, quantum.MaxQubits-1)
		}
	}
	return nil
}
