package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records run and behavior outcomes. A nil *Metrics is a no-op.
type Metrics struct {
	runs               metric.Int64Counter
	runDuration        metric.Float64Histogram
	behaviorExecutions metric.Int64Counter
	behaviorFailures   metric.Int64Counter
	behaviorDuration   metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runs, err := meter.Int64Counter("workflowd.runs",
		metric.WithDescription("Number of workflow runs"),
	)
	if err != nil {
		return nil, err
	}

	runDur, err := meter.Float64Histogram("workflowd.run.duration",
		metric.WithDescription("Duration of a workflow run in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	execs, err := meter.Int64Counter("workflowd.behavior.executions",
		metric.WithDescription("Number of behavior invocations, skips included"),
	)
	if err != nil {
		return nil, err
	}

	fails, err := meter.Int64Counter("workflowd.behavior.failures",
		metric.WithDescription("Number of behavior invocations that ended in an error entry"),
	)
	if err != nil {
		return nil, err
	}

	behDur, err := meter.Float64Histogram("workflowd.behavior.duration",
		metric.WithDescription("Duration of a behavior invocation in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		runs:               runs,
		runDuration:        runDur,
		behaviorExecutions: execs,
		behaviorFailures:   fails,
		behaviorDuration:   behDur,
	}, nil
}

// RecordRun counts one finished run.
func (m *Metrics) RecordRun(ctx context.Context, trigger string, dryRun, success bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.Bool("dry_run", dryRun),
		attribute.Bool("success", success),
	)
	m.runs.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordBehavior counts one report entry. code is empty for successes.
func (m *Metrics) RecordBehavior(ctx context.Context, behaviorType string, skipped bool, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("behavior_type", behaviorType),
		attribute.Bool("skipped", skipped),
	)
	m.behaviorExecutions.Add(ctx, 1, attrs)
	m.behaviorDuration.Record(ctx, elapsed.Seconds(), attrs)
	if code != "" {
		m.behaviorFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("behavior_type", behaviorType),
			attribute.String("code", code),
		))
	}
}
