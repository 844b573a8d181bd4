// Package engine runs tenant workflows: it sequences enabled behaviors,
// gates each one, invokes it behind a failure boundary and folds the results
// into one execution context and run report.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/voundbrand/vc83-com-sub014/internal/behaviors"
	"github.com/voundbrand/vc83-com-sub014/internal/expressions"
	"github.com/voundbrand/vc83-com-sub014/internal/logging"
	"github.com/voundbrand/vc83-com-sub014/internal/telemetry"
	"github.com/voundbrand/vc83-com-sub014/internal/validation"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// Defaults applied when neither the workflow nor the Config sets a value.
const (
	DefaultRunTimeout        = 2 * time.Minute
	DefaultBehaviorTimeout   = 30 * time.Second
	DefaultMaxConcurrentRuns = 32
)

// Config holds the engine's dependencies. Registry is required.
type Config struct {
	Registry  *behaviors.Registry
	Validator *validation.WorkflowValidator // nil = built over Registry
	Logger    *slog.Logger
	Tracer    trace.Tracer // nil = global otel tracer
	Metrics   *telemetry.Metrics

	RunTimeout        time.Duration
	BehaviorTimeout   time.Duration
	MaxConcurrentRuns int
}

// Request describes one workflow run.
type Request struct {
	RunID      string // generated when empty
	TenantID   string
	WorkflowID string
	Definition *schema.WorkflowDefinition
	Input      map[string]any
	DryRun     bool
}

// Engine executes workflow runs. It is safe for concurrent use; each run
// owns its ExecutionContext.
type Engine struct {
	registry  *behaviors.Registry
	validator *validation.WorkflowValidator
	gate      *Gate
	jq        *expressions.GoJQEngine
	limiter   *RunLimiter
	logger    *slog.Logger
	tracer    trace.Tracer
	metrics   *telemetry.Metrics

	runTimeout      time.Duration
	behaviorTimeout time.Duration
}

// New creates an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "engine requires a behavior registry")
	}
	if cfg.Validator == nil {
		v, err := validation.NewWorkflowValidator(cfg.Registry)
		if err != nil {
			return nil, err
		}
		cfg.Validator = v
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(telemetry.InstrumentationName)
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.BehaviorTimeout <= 0 {
		cfg.BehaviorTimeout = DefaultBehaviorTimeout
	}
	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = DefaultMaxConcurrentRuns
	}

	cel, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}

	return &Engine{
		registry:        cfg.Registry,
		validator:       cfg.Validator,
		gate:            NewGate(cel),
		jq:              expressions.NewGoJQEngine(),
		limiter:         NewRunLimiter(cfg.MaxConcurrentRuns),
		logger:          cfg.Logger,
		tracer:          cfg.Tracer,
		metrics:         cfg.Metrics,
		runTimeout:      cfg.RunTimeout,
		behaviorTimeout: cfg.BehaviorTimeout,
	}, nil
}

// Registry returns the behavior registry the engine runs against.
func (e *Engine) Registry() *behaviors.Registry {
	return e.registry
}

// Validate runs definition validation followed by producer preflight.
// Preflight only runs on structurally valid definitions.
func (e *Engine) Validate(def *schema.WorkflowDefinition) *schema.ValidationResult {
	result := e.validator.Validate(def)
	if result.Valid() {
		result.Merge(Preflight(def, e.registry))
	}
	return result
}

// ValidateInput checks trigger input against the workflow's input_schema.
func (e *Engine) ValidateInput(def *schema.WorkflowDefinition, input map[string]any) error {
	return e.validator.ValidateInput(input, def.InputSchema)
}

// Close stops admitting runs and waits for running ones.
func (e *Engine) Close() {
	e.limiter.Close()
}

type runState struct {
	id       string
	tenantID string
	def      *schema.WorkflowDefinition
	dryRun   bool
	key      string
	ctx      *ExecutionContext
	vars     map[string]any
}

// Run executes the workflow strictly sequentially and returns its report.
//
// Behavior failures, panics and timeouts become error entries and never stop
// the run. An error is returned only when the run cannot start.
//
// The engine does not deduplicate runs: triggering the same input twice
// creates records twice, except where a behavior checks for an existing
// record itself.
func (e *Engine) Run(ctx context.Context, req Request) (*schema.RunReport, error) {
	if req.Definition == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "workflow definition is nil")
	}

	release, err := e.limiter.Acquire(ctx)
	if err != nil {
		if errors.Is(err, ErrLimiterClosed) {
			return nil, schema.NewError(schema.ErrCodeExecution, "engine is shutting down").WithCause(err)
		}
		return nil, schema.NewError(schema.ErrCodeTimeout, "run was not admitted before the deadline").WithCause(err)
	}
	defer release()

	def := req.Definition
	run := &runState{
		id:       req.RunID,
		tenantID: req.TenantID,
		def:      def,
		dryRun:   req.DryRun,
		key:      IdempotencyKey(def.Trigger, req.Input),
		ctx:      NewExecutionContext(req.Input),
	}
	if run.id == "" {
		run.id = uuid.NewString()
	}
	run.vars = map[string]any{
		"run_id":      run.id,
		"tenant_id":   run.tenantID,
		"workflow_id": req.WorkflowID,
		"trigger":     def.Trigger,
	}

	runCtx, cancel := context.WithTimeout(ctx, parseDuration(def.Timeout, e.runTimeout))
	defer cancel()
	runCtx = logging.WithIDs(runCtx, run.id, run.tenantID)
	runCtx, span := e.tracer.Start(runCtx, "workflow.run", trace.WithAttributes(
		attribute.String("workflowd.run_id", run.id),
		attribute.String("workflowd.tenant_id", run.tenantID),
		attribute.String("workflowd.trigger", def.Trigger),
		attribute.Bool("workflowd.dry_run", run.dryRun),
	))
	defer span.End()

	log := logging.LogWith(runCtx, e.logger)
	log.Info("workflow run started", "trigger", def.Trigger, "workflow_id", req.WorkflowID, "dry_run", run.dryRun)

	report := &schema.RunReport{
		RunID:      run.id,
		TenantID:   run.tenantID,
		WorkflowID: req.WorkflowID,
		Trigger:    def.Trigger,
		DryRun:     run.dryRun,
		StartedAt:  time.Now().UTC(),
	}

	steps := Sequence(def.Behaviors)
	report.Results = make([]schema.ReportEntry, 0, len(steps))
	for _, step := range steps {
		if runCtx.Err() != nil {
			report.TimedOut = true
			report.Results = append(report.Results, notStartedEntry(step, run.ctx.Snapshot()))
			e.metrics.RecordBehavior(ctx, step.Config.Type, false, schema.ErrCodeTimeout, 0)
			continue
		}
		report.Results = append(report.Results, e.invoke(runCtx, run, step))
	}
	if runCtx.Err() != nil {
		report.TimedOut = true
	}

	report.CompletedAt = time.Now().UTC()
	report.Success = allSucceeded(report.Results)
	report.FinalOutput = run.ctx.Snapshot()

	elapsed := report.CompletedAt.Sub(report.StartedAt)
	e.metrics.RecordRun(ctx, def.Trigger, run.dryRun, report.Success, elapsed)
	if !report.Success {
		span.SetStatus(codes.Error, fmt.Sprintf("%d behavior(s) failed", len(report.Failed())))
	}
	log.Info("workflow run finished",
		"success", report.Success, "timed_out", report.TimedOut,
		"behaviors", len(report.Results), "duration_ms", elapsed.Milliseconds())

	return report, nil
}

// invoke runs one behavior and folds its result into the run.
func (e *Engine) invoke(ctx context.Context, run *runState, step Step) schema.ReportEntry {
	start := time.Now()
	input := run.ctx.Snapshot()

	ctx = logging.WithBehaviorID(ctx, step.ID)
	ctx, span := e.tracer.Start(ctx, "behavior."+step.Config.Type, trace.WithAttributes(
		attribute.String("workflowd.behavior_id", step.ID),
		attribute.String("workflowd.behavior_type", step.Config.Type),
	))
	defer span.End()

	res := e.execute(ctx, run, step, input)
	switch {
	case res.Success && res.Skipped():
		// Skip markers merge like any other success data; outputs only
		// project real results.
		run.ctx.Merge(res.Data)
	case res.Success:
		projected, err := e.project(ctx, step, res.Data)
		if err != nil {
			res = schema.FromError(err)
		} else {
			run.ctx.Merge(res.Data)
			run.ctx.Merge(projected)
		}
	}

	entry := entryFrom(step, input, res, time.Since(start))
	span.SetAttributes(attribute.Bool("workflowd.skipped", entry.Skipped))
	if entry.Status == schema.EntryStatusError {
		span.SetStatus(codes.Error, entry.Error)
	}
	e.metrics.RecordBehavior(ctx, step.Config.Type, entry.Skipped, entry.ErrorCode, time.Since(start))

	logging.LogWith(ctx, e.logger).Debug("behavior finished",
		"behavior_type", step.Config.Type, "status", entry.Status, "skipped", entry.Skipped,
		"error_code", entry.ErrorCode, "duration_ms", entry.DurationMs)
	return entry
}

// execute resolves, gates, checks and calls a behavior. It never returns nil.
func (e *Engine) execute(ctx context.Context, run *runState, step Step, input map[string]any) *schema.BehaviorResult {
	b, err := e.registry.Get(step.Config.Type)
	if err != nil {
		return schema.FromError(err)
	}
	contract := b.Contract()

	// Gates see the authored config, never the dry-run flag.
	authored := step.Config.Config
	if authored == nil {
		authored = map[string]any{}
	}
	vars := map[string]any{
		expressions.VarContext: input,
		expressions.VarConfig:  authored,
		expressions.VarRun:     run.vars,
	}
	ok, reason, err := e.gate.Allow(ctx, []string{contract.Condition, step.Config.Condition}, vars)
	if err != nil {
		return schema.FromError(err)
	}
	if !ok {
		return schema.Skip(reason)
	}

	if problems := contract.MissingReads(input); len(problems) > 0 {
		return schema.Fail(schema.ErrCodeValidation, strings.Join(problems, "; "), nil)
	}

	inv := behaviors.Invocation{
		RunID:          run.id,
		TenantID:       run.tenantID,
		Trigger:        run.def.Trigger,
		Config:         invocationConfig(step.Config.Config, run.dryRun),
		Context:        input,
		IdempotencyKey: run.key,
		Logger:         logging.LogWith(ctx, e.logger).With("behavior_type", step.Config.Type),
	}
	timeout := parseDuration(step.Config.Timeout, parseDuration(run.def.BehaviorTimeout, e.behaviorTimeout))

	res, err := e.call(ctx, b, inv, timeout)
	switch {
	case err != nil:
		return schema.FromError(err)
	case res == nil:
		return schema.Fail(schema.ErrCodeExecution, "behavior returned no result", nil)
	}

	if res.Success && !res.Skipped() && len(contract.Writes) > 0 {
		if err := e.validator.Schemas().ValidateInput(res.Data, contract.WriteSchema()); err != nil {
			return schema.Fail(schema.ErrCodeContractViolation,
				"result data violates the behavior contract: "+strings.Join(validation.Violations(err), "; "),
				res.Data)
		}
	}
	return res
}

type outcome struct {
	res *schema.BehaviorResult
	err error
}

// call invokes Execute on its own goroutine so a panic or a missed deadline
// stays inside this behavior. A result arriving after the deadline is dropped.
func (e *Engine) call(ctx context.Context, b behaviors.Behavior, inv behaviors.Invocation, timeout time.Duration) (*schema.BehaviorResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: schema.NewErrorf(schema.ErrCodePanic, "behavior panicked: %v", r)}
			}
		}()
		res, err := b.Execute(callCtx, inv)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && errors.Is(o.err, context.DeadlineExceeded) {
			return nil, timeoutError(ctx, timeout)
		}
		return o.res, o.err
	case <-callCtx.Done():
		return nil, timeoutError(ctx, timeout)
	}
}

func timeoutError(runCtx context.Context, timeout time.Duration) error {
	if runCtx.Err() != nil {
		return schema.NewError(schema.ErrCodeTimeout, "run deadline exceeded while behavior was running")
	}
	return schema.NewErrorf(schema.ErrCodeTimeout, "behavior exceeded its %s deadline", timeout)
}

// project evaluates the configured jq outputs over the result data.
func (e *Engine) project(ctx context.Context, step Step, data map[string]any) (map[string]any, error) {
	if len(step.Config.Outputs) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(step.Config.Outputs))
	for k := range step.Config.Outputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]any, len(keys))
	for _, k := range keys {
		v, err := e.jq.Evaluate(ctx, step.Config.Outputs[k], data)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
