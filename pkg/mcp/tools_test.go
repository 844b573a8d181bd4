package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voundbrand/vc83-com-sub014/internal/behaviors"
	"github.com/voundbrand/vc83-com-sub014/internal/engine"
	"github.com/voundbrand/vc83-com-sub014/internal/identity"
	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/internal/trigger"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

type testEnv struct {
	store  *store.LibSQLStore
	server *WorkflowServer
	tenant *store.Tenant
}

func newTestEnv(t *testing.T, plan string) *testEnv {
	t.Helper()
	ctx := context.Background()

	s, err := store.NewLibSQLStore("file:" + filepath.Join(t.TempDir(), "mcp.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))
	t.Cleanup(func() { _ = s.Close() })

	reg := behaviors.NewRegistry()
	require.NoError(t, behaviors.RegisterBuiltins(reg, behaviors.NewEnv(s, s)))
	eng, err := engine.New(engine.Config{Registry: reg})
	require.NoError(t, err)
	t.Cleanup(eng.Close)

	tenant, err := identity.EnsureTenant(ctx, s, "t1", "Acme", plan)
	require.NoError(t, err)
	require.NoError(t, s.CreateEvent(ctx, &store.Event{ID: "ev-1", TenantID: tenant.ID, Name: "Summit", MaxCapacity: 5}))
	require.NoError(t, s.UpsertWorkflow(ctx, &store.Workflow{
		ID:       "wf-1",
		TenantID: tenant.ID,
		Name:     "Tickets",
		Enabled:  true,
		Definition: schema.WorkflowDefinition{
			Trigger: "event_registration",
			Behaviors: []schema.BehaviorConfig{
				{ID: "capacity", Type: behaviors.TypeCheckEventCapacity, Enabled: true, Priority: 2},
				{ID: "ticket", Type: behaviors.TypeCreateTicket, Enabled: true, Priority: 1},
			},
		},
	}))

	srv := NewWorkflowServer(ServerDeps{
		Trigger: trigger.NewService(trigger.Config{Engine: eng, Store: s}),
		Engine:  eng,
		Store:   s,
		Tenant:  tenant,
	})
	return &testEnv{store: s, server: srv, tenant: tenant}
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func extractJSON(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text := mcp.GetTextFromContent(result.Content[0])
	require.NoError(t, json.Unmarshal([]byte(text), target), text)
}

var ticketInput = map[string]any{"eventId": "ev-1", "productId": "p-1"}

func TestTriggerTool(t *testing.T) {
	env := newTestEnv(t, store.PlanFree)

	result, err := env.server.handleTrigger(context.Background(), buildRequest("workflow.trigger", map[string]any{
		"trigger":    "event_registration",
		"input_data": ticketInput,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, mcp.GetTextFromContent(result.Content[0]))

	var resp trigger.Response
	extractJSON(t, result, &resp)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.TicketID)

	_, err = env.store.GetRun(context.Background(), env.tenant.ID, resp.RunID)
	assert.NoError(t, err)
}

func TestTriggerTool_Errors(t *testing.T) {
	env := newTestEnv(t, store.PlanFree)

	result, err := env.server.handleTrigger(context.Background(), buildRequest("workflow.trigger", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = env.server.handleTrigger(context.Background(), buildRequest("workflow.trigger", map[string]any{
		"trigger": "unbound",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, mcp.GetTextFromContent(result.Content[0]), schema.ErrCodeNotFound)
}

func TestTestTool(t *testing.T) {
	env := newTestEnv(t, store.PlanPro)

	result, err := env.server.handleTest(context.Background(), buildRequest("workflow.test", map[string]any{
		"workflow_id": "wf-1",
		"test_data":   ticketInput,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var resp trigger.TestResponse
	extractJSON(t, result, &resp)
	assert.True(t, resp.Success)
	require.Len(t, resp.Results, 2)
	assert.True(t, behaviors.IsDryRunID(resp.FinalOutput["ticketId"].(string)))

	runs, err := env.store.ListRuns(context.Background(), store.RunFilter{TenantID: env.tenant.ID})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestTestTool_FeatureDenied(t *testing.T) {
	env := newTestEnv(t, store.PlanFree)

	result, err := env.server.handleTest(context.Background(), buildRequest("workflow.test", map[string]any{
		"workflow_id": "wf-1",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, mcp.GetTextFromContent(result.Content[0]), schema.ErrCodeFeatureDenied)
}

func TestListTool(t *testing.T) {
	env := newTestEnv(t, store.PlanFree)

	result, err := env.server.handleList(context.Background(), buildRequest("workflow.list", nil))
	require.NoError(t, err)

	var out struct {
		Workflows []workflowSummary `json:"workflows"`
	}
	extractJSON(t, result, &out)
	require.Len(t, out.Workflows, 1)
	assert.Equal(t, "event_registration", out.Workflows[0].Trigger)
	assert.Equal(t, 2, out.Workflows[0].Behaviors)
}

func TestValidateTool(t *testing.T) {
	env := newTestEnv(t, store.PlanFree)
	ctx := context.Background()

	result, err := env.server.handleValidate(ctx, buildRequest("workflow.validate", map[string]any{"workflow_id": "wf-1"}))
	require.NoError(t, err)
	var out struct {
		Valid    bool                     `json:"valid"`
		Errors   []schema.ValidationIssue `json:"errors"`
		Warnings []schema.ValidationIssue `json:"warnings"`
	}
	extractJSON(t, result, &out)
	assert.True(t, out.Valid)

	result, err = env.server.handleValidate(ctx, buildRequest("workflow.validate", map[string]any{
		"definition": map[string]any{
			"trigger":   "x",
			"behaviors": []any{map[string]any{"type": "no_such_behavior", "enabled": true}},
		},
	}))
	require.NoError(t, err)
	out.Valid, out.Errors = true, nil
	extractJSON(t, result, &out)
	assert.False(t, out.Valid)
	var codes []string
	for _, e := range out.Errors {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, schema.ErrCodeBehaviorUnavailable)

	result, err = env.server.handleValidate(ctx, buildRequest("workflow.validate", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestTenantFromContext(t *testing.T) {
	env := newTestEnv(t, store.PlanFree)
	other := &store.Tenant{ID: "t2", Name: "Other", Plan: store.PlanFree}

	got, err := env.server.tenantFor(identity.WithTenant(context.Background(), other))
	require.NoError(t, err)
	assert.Equal(t, "t2", got.ID)

	got, err = env.server.tenantFor(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "t1", got.ID)

	_, err = NewWorkflowServer(ServerDeps{}).tenantFor(context.Background())
	assert.Equal(t, schema.ErrCodeUnauthorized, schema.CodeOf(err, ""))
}
