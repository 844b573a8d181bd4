package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/voundbrand/vc83-com-sub014/internal/trigger"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// handleTrigger runs a workflow in production mode.
func (s *WorkflowServer) handleTrigger(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("trigger")
	if err != nil {
		return mcp.NewToolResultError("trigger is required"), nil
	}
	tenant, err := s.tenantFor(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, runErr := s.trigger.Trigger(ctx, tenant, trigger.Request{
		Trigger:    name,
		InputData:  mcp.ParseStringMap(req, "input_data", nil),
		WebhookURL: req.GetString("webhook_url", ""),
	})
	if runErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("trigger failed: %v", runErr)), nil
	}
	return marshalResult(resp)
}

// handleTest dry-runs a stored workflow.
func (s *WorkflowServer) handleTest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID, err := req.RequireString("workflow_id")
	if err != nil {
		return mcp.NewToolResultError("workflow_id is required"), nil
	}
	tenant, err := s.tenantFor(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp, runErr := s.trigger.Test(ctx, tenant, trigger.TestRequest{
		WorkflowID: workflowID,
		TestData:   mcp.ParseStringMap(req, "test_data", nil),
	})
	if runErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("test failed: %v", runErr)), nil
	}
	return marshalResult(resp)
}

type workflowSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Trigger   string `json:"trigger"`
	Enabled   bool   `json:"enabled"`
	Behaviors int    `json:"behaviors"`
}

// handleList lists the tenant's workflows.
func (s *WorkflowServer) handleList(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenant, err := s.tenantFor(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	workflows, err := s.store.ListWorkflows(ctx, tenant.ID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
	}

	out := make([]workflowSummary, 0, len(workflows))
	for _, wf := range workflows {
		out = append(out, workflowSummary{
			ID:        wf.ID,
			Name:      wf.Name,
			Trigger:   wf.Definition.Trigger,
			Enabled:   wf.Enabled,
			Behaviors: len(wf.Definition.Behaviors),
		})
	}
	return marshalResult(map[string]any{"workflows": out})
}

// handleValidate validates a stored workflow or an inline definition.
func (s *WorkflowServer) handleValidate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowID := req.GetString("workflow_id", "")
	inline := mcp.ParseStringMap(req, "definition", nil)

	var def *schema.WorkflowDefinition
	switch {
	case inline != nil:
		parsed, err := decodeDefinition(inline)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		def = parsed
	case workflowID != "":
		tenant, err := s.tenantFor(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		wf, err := s.store.GetWorkflow(ctx, tenant.ID, workflowID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("workflow lookup failed: %v", err)), nil
		}
		def = &wf.Definition
	default:
		return mcp.NewToolResultError("one of workflow_id or definition is required"), nil
	}

	result := s.engine.Validate(def)
	return marshalResult(map[string]any{
		"valid":    result.Valid(),
		"errors":   result.Errors,
		"warnings": result.Warnings,
	})
}

func decodeDefinition(raw map[string]any) (*schema.WorkflowDefinition, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}
	var def schema.WorkflowDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("invalid definition: %w", err)
	}
	return &def, nil
}

func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
