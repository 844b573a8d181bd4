// Package trigger turns inbound business events into workflow runs. It owns
// the production trigger and the dry-run test entry point.
package trigger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/voundbrand/vc83-com-sub014/internal/engine"
	"github.com/voundbrand/vc83-com-sub014/internal/features"
	"github.com/voundbrand/vc83-com-sub014/internal/logging"
	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// Context keys mapped into the trigger response.
const (
	KeyTransactionID = "transactionId"
	KeyTicketID      = "ticketId"
	KeyInvoiceID     = "invoiceId"
)

// Store is the slice of the store the trigger service needs.
type Store interface {
	GetWorkflow(ctx context.Context, tenantID, id string) (*store.Workflow, error)
	GetWorkflowByTrigger(ctx context.Context, tenantID, trigger string) (*store.Workflow, error)
	SaveRun(ctx context.Context, run *store.Run) error
}

// Request is a production trigger call.
type Request struct {
	Trigger    string         `json:"trigger"`
	InputData  map[string]any `json:"inputData"`
	WebhookURL string         `json:"webhookUrl,omitempty"`
}

// Response is the production trigger envelope.
type Response struct {
	Success       bool   `json:"success"`
	RunID         string `json:"runId"`
	TransactionID string `json:"transactionId,omitempty"`
	TicketID      string `json:"ticketId,omitempty"`
	InvoiceID     string `json:"invoiceId,omitempty"`
	Message       string `json:"message"`
}

// TestRequest is a dry-run call against a stored workflow.
type TestRequest struct {
	WorkflowID string         `json:"workflowId"`
	TestData   map[string]any `json:"testData"`
}

// TestResponse carries the full run report of a dry run.
type TestResponse struct {
	Success     bool                     `json:"success"`
	RunID       string                   `json:"runId"`
	TimedOut    bool                     `json:"timedOut,omitempty"`
	Results     []schema.ReportEntry     `json:"results"`
	FinalOutput map[string]any           `json:"finalOutput"`
	Warnings    []schema.ValidationIssue `json:"warnings,omitempty"`
}

// Config holds the service dependencies. Engine and Store are required.
type Config struct {
	Engine   *engine.Engine
	Store    Store
	Features *features.Checker
	Notifier *Notifier
	Logger   *slog.Logger
}

// Service resolves workflows for a tenant and runs them.
type Service struct {
	engine   *engine.Engine
	store    Store
	features *features.Checker
	notifier *Notifier
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	if cfg.Features == nil {
		cfg.Features = features.NewChecker(nil)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = NewNotifier(nil, 0)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Service{
		engine:   cfg.Engine,
		store:    cfg.Store,
		features: cfg.Features,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
	}
}

// Trigger runs the tenant's workflow bound to req.Trigger in production mode,
// persists the run report and maps well-known context keys into the response.
//
// Trigger is not idempotent. Calling it twice with the same input creates
// domain records twice unless a behavior checks for existing records itself
// (find_or_create_contact does, and create_transaction reuses a transaction
// created under the same input). Callers that retry must deduplicate.
func (s *Service) Trigger(ctx context.Context, tenant *store.Tenant, req Request) (*Response, error) {
	resp, _, err := s.trigger(ctx, tenant, req, false)
	return resp, err
}

// trigger is the production path. forceDryRun runs it simulated, which skips
// persistence and the webhook; it exists so both entry points can be compared.
func (s *Service) trigger(ctx context.Context, tenant *store.Tenant, req Request, forceDryRun bool) (*Response, *schema.RunReport, error) {
	if tenant == nil {
		return nil, nil, schema.NewError(schema.ErrCodeUnauthorized, "no tenant")
	}
	req.Trigger = strings.TrimSpace(req.Trigger)
	if req.Trigger == "" {
		return nil, nil, schema.NewError(schema.ErrCodeValidation, "trigger is required")
	}
	if req.WebhookURL != "" {
		if err := ValidateURL(req.WebhookURL); err != nil {
			return nil, nil, err
		}
		if err := s.features.CheckFeatureAccess(ctx, tenant, features.WorkflowWebhooks); err != nil {
			return nil, nil, err
		}
	}

	wf, err := s.store.GetWorkflowByTrigger(ctx, tenant.ID, req.Trigger)
	if err != nil {
		if schema.IsNotFound(err) {
			return nil, nil, schema.NewErrorf(schema.ErrCodeNotFound, "no enabled workflow for trigger %q", req.Trigger).WithCause(err)
		}
		return nil, nil, err
	}

	report, _, err := s.runWorkflow(ctx, tenant, wf, req.InputData, forceDryRun)
	if err != nil {
		return nil, nil, err
	}
	resp := envelope(report)

	if !forceDryRun {
		s.persist(ctx, wf, report)
		if req.WebhookURL != "" {
			if err := s.notifier.Notify(context.WithoutCancel(ctx), req.WebhookURL, resp); err != nil {
				logging.LogWith(logging.WithIDs(ctx, report.RunID, tenant.ID), s.logger).
					Warn("webhook delivery failed", "url", req.WebhookURL, "error", err)
			}
		}
	}
	return resp, report, nil
}

// Test dry-runs a stored workflow against testData. Nothing is persisted.
// Test mode is a plan feature.
func (s *Service) Test(ctx context.Context, tenant *store.Tenant, req TestRequest) (*TestResponse, error) {
	if tenant == nil {
		return nil, schema.NewError(schema.ErrCodeUnauthorized, "no tenant")
	}
	if err := s.features.CheckFeatureAccess(ctx, tenant, features.WorkflowTestMode); err != nil {
		return nil, err
	}
	if req.WorkflowID == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "workflowId is required")
	}

	wf, err := s.store.GetWorkflow(ctx, tenant.ID, req.WorkflowID)
	if err != nil {
		return nil, err
	}

	report, validation, err := s.runWorkflow(ctx, tenant, wf, req.TestData, true)
	if err != nil {
		return nil, err
	}
	return &TestResponse{
		Success:     report.Success,
		RunID:       report.RunID,
		TimedOut:    report.TimedOut,
		Results:     report.Results,
		FinalOutput: report.FinalOutput,
		Warnings:    validation.Warnings,
	}, nil
}

// runWorkflow checks the structural preconditions and runs the workflow.
// An invalid definition or input is a hard failure; nothing runs.
func (s *Service) runWorkflow(ctx context.Context, tenant *store.Tenant, wf *store.Workflow, input map[string]any, dryRun bool) (*schema.RunReport, *schema.ValidationResult, error) {
	def := &wf.Definition
	validation := s.engine.Validate(def)
	if err := validation.ToError(); err != nil {
		return nil, validation, err
	}
	if input == nil {
		input = map[string]any{}
	}
	if err := s.engine.ValidateInput(def, input); err != nil {
		return nil, validation, err
	}

	report, err := s.engine.Run(ctx, engine.Request{
		RunID:      uuid.NewString(),
		TenantID:   tenant.ID,
		WorkflowID: wf.ID,
		Definition: def,
		Input:      input,
		DryRun:     dryRun,
	})
	if err != nil {
		return nil, validation, err
	}
	return report, validation, nil
}

// persist saves a production run report. A failed save is logged; the run
// already happened and its effects stand.
func (s *Service) persist(ctx context.Context, wf *store.Workflow, report *schema.RunReport) {
	raw, err := json.Marshal(report)
	if err == nil {
		err = s.store.SaveRun(context.WithoutCancel(ctx), &store.Run{
			ID:          report.RunID,
			TenantID:    report.TenantID,
			WorkflowID:  wf.ID,
			Trigger:     report.Trigger,
			Success:     report.Success,
			TimedOut:    report.TimedOut,
			Report:      raw,
			StartedAt:   report.StartedAt,
			CompletedAt: report.CompletedAt,
		})
	}
	if err != nil {
		logging.LogWith(logging.WithIDs(ctx, report.RunID, report.TenantID), s.logger).
			Error("failed to persist run report", "error", err)
	}
}

func envelope(report *schema.RunReport) *Response {
	resp := &Response{
		Success:       report.Success,
		RunID:         report.RunID,
		TransactionID: stringKey(report.FinalOutput, KeyTransactionID),
		TicketID:      stringKey(report.FinalOutput, KeyTicketID),
		InvoiceID:     stringKey(report.FinalOutput, KeyInvoiceID),
	}
	failed := report.Failed()
	switch {
	case len(failed) == 0:
		resp.Message = "Workflow completed"
	case len(failed) == 1:
		resp.Message = fmt.Sprintf("Behavior %s failed: %s", failed[0].BehaviorID, failed[0].Error)
	default:
		resp.Message = fmt.Sprintf("%d behaviors failed; first %s: %s", len(failed), failed[0].BehaviorID, failed[0].Error)
	}
	if report.TimedOut {
		resp.Message += " (run deadline exceeded)"
	}
	return resp
}

func stringKey(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
