package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/voundbrand/vc83-com-sub014/internal/engine"
	"github.com/voundbrand/vc83-com-sub014/internal/identity"
	"github.com/voundbrand/vc83-com-sub014/internal/logging"
	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/internal/trigger"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// WorkflowStore is the slice of the store the tools read.
type WorkflowStore interface {
	GetWorkflow(ctx context.Context, tenantID, id string) (*store.Workflow, error)
	ListWorkflows(ctx context.Context, tenantID string) ([]*store.Workflow, error)
}

// ServerDeps holds the dependencies for creating a WorkflowServer.
type ServerDeps struct {
	Trigger *trigger.Service
	Engine  *engine.Engine
	Store   WorkflowStore
	Logger  *slog.Logger

	// Tenant is used when the request context carries none, as on stdio
	// where one process serves one tenant.
	Tenant *store.Tenant
}

// WorkflowServer exposes workflow triggering and testing as MCP tools.
type WorkflowServer struct {
	trigger   *trigger.Service
	engine    *engine.Engine
	store     WorkflowStore
	tenant    *store.Tenant
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewWorkflowServer creates a WorkflowServer with all 4 tools registered.
func NewWorkflowServer(deps ServerDeps) *WorkflowServer {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	s := &WorkflowServer{
		trigger: deps.Trigger,
		engine:  deps.Engine,
		store:   deps.Store,
		tenant:  deps.Tenant,
		logger:  logger,
	}

	mcpSrv := server.NewMCPServer(
		"workflowd",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("workflowd runs tenant workflows of business behaviors. Use workflow.list to see the configured workflows, workflow.validate to check one, workflow.test to dry-run it without side effects, and workflow.trigger to run it for real."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv
	return s
}

// ServeStdio starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *WorkflowServer) ServeStdio(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// SSEHandler serves the SSE transport under basePath. The caller authenticates
// requests and attaches the tenant with identity.WithTenant.
func (s *WorkflowServer) SSEHandler(basePath string) http.Handler {
	return server.NewSSEServer(s.mcpServer, server.WithStaticBasePath(basePath))
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *WorkflowServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *WorkflowServer) tenantFor(ctx context.Context) (*store.Tenant, error) {
	if t := identity.TenantFrom(ctx); t != nil {
		return t, nil
	}
	if s.tenant != nil {
		return s.tenant, nil
	}
	return nil, schema.NewError(schema.ErrCodeUnauthorized, "no tenant bound to this session")
}

// tools returns the 4 registered MCP tools as ServerTool entries.
func (s *WorkflowServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: triggerTool(), Handler: s.handleTrigger},
		{Tool: testTool(), Handler: s.handleTest},
		{Tool: listTool(), Handler: s.handleList},
		{Tool: validateTool(), Handler: s.handleValidate},
	}
}

// --- Tool definitions ---

func triggerTool() mcp.Tool {
	return mcp.NewTool("workflow.trigger",
		mcp.WithDescription("Run the workflow bound to a trigger in production mode"),
		mcp.WithString("trigger", mcp.Required(), mcp.Description("Trigger name, e.g. event_registration")),
		mcp.WithObject("input_data", mcp.Description("Trigger payload seeded into the execution context")),
		mcp.WithString("webhook_url", mcp.Description("URL that receives the response envelope after the run")),
	)
}

func testTool() mcp.Tool {
	return mcp.NewTool("workflow.test",
		mcp.WithDescription("Dry-run a workflow against test data without side effects"),
		mcp.WithString("workflow_id", mcp.Required(), mcp.Description("ID of the workflow to test")),
		mcp.WithObject("test_data", mcp.Description("Payload seeded into the execution context")),
	)
}

func listTool() mcp.Tool {
	return mcp.NewTool("workflow.list",
		mcp.WithDescription("List the tenant's workflows"),
	)
}

func validateTool() mcp.Tool {
	return mcp.NewTool("workflow.validate",
		mcp.WithDescription("Validate a stored workflow or an inline definition"),
		mcp.WithString("workflow_id", mcp.Description("ID of a stored workflow")),
		mcp.WithObject("definition", mcp.Description("Inline workflow definition")),
	)
}
