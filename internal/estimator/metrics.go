package estimator

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("qtermpi.estimator")
	meter  = otel.Meter("qtermpi.estimator")
)

var (
	estimateLatency  metric.Float64Histogram
	estimateTotal    metric.Int64Counter
	degenerateTotal  metric.Int64Counter
	estimateAbsError metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		estimateLatency, err = meter.Float64Histogram(
			"qpe_estimate_duration_seconds",
			metric.WithDescription("Time to build, simulate and sample one QPE circuit"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		estimateTotal, err = meter.Int64Counter(
			"qpe_estimates_total",
			metric.WithDescription("Total number of pi estimates attempted"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		degenerateTotal, err = meter.Int64Counter(
			"qpe_degenerate_estimates_total",
			metric.WithDescription("Estimates whose most frequent outcome was all zeros"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		estimateAbsError, err = meter.Float64Histogram(
			"qpe_estimate_abs_error",
			metric.WithDescription("Absolute difference between the estimate and pi"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startEstimateSpan(ctx context.Context, numQubits, shots int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "Engine.EstimatePi",
		trace.WithAttributes(
			attribute.Int("qpe.qubits", numQubits),
			attribute.Int("qpe.shots", shots),
		),
	)
}

func setEstimateSpanResult(span trace.Span, est Estimate, err error) {
	span.SetAttributes(
		attribute.String("qpe.bitstring", est.Bitstring),
		attribute.Bool("qpe.degenerate", est.Degenerate),
	)
	if !est.Degenerate && est.Value != 0 {
		span.SetAttributes(attribute.Float64("qpe.estimate", est.Value))
	}
	switch {
	case err == nil, errors.Is(err, ErrDegenerateEstimate):
		span.SetStatus(codes.Ok, "")
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func recordEstimateMetrics(ctx context.Context, duration time.Duration, est Estimate, err error) {
	if initMetrics() != nil {
		return
	}

	success := err == nil || errors.Is(err, ErrDegenerateEstimate)
	attrs := metric.WithAttributes(
		attribute.Int("qubits", est.Qubits),
		attribute.Bool("success", success),
	)

	estimateLatency.Record(ctx, duration.Seconds(), attrs)
	estimateTotal.Add(ctx, 1, attrs)
	if est.Degenerate {
		degenerateTotal.Add(ctx, 1, metric.WithAttributes(attribute.Int("qubits", est.Qubits)))
		return
	}
	if err == nil {
		estimateAbsError.Record(ctx, est.AbsError(), metric.WithAttributes(attribute.Int("qubits", est.Qubits)))
	}
}
