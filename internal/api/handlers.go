package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/internal/trigger"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

func bindError(err error) error {
	return schema.NewErrorf(schema.ErrCodeValidation, "invalid request body: %s", err.Error()).WithCause(err)
}

// POST /api/v1/workflows/trigger
func (s *Server) handleTrigger(c echo.Context) error {
	var req trigger.Request
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	resp, err := s.deps.Trigger.Trigger(c.Request().Context(), tenantFrom(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// POST /api/v1/workflows/test
func (s *Server) handleTest(c echo.Context) error {
	var req trigger.TestRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	resp, err := s.deps.Trigger.Test(c.Request().Context(), tenantFrom(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// GET /api/v1/workflows
func (s *Server) handleListWorkflows(c echo.Context) error {
	workflows, err := s.deps.Store.ListWorkflows(c.Request().Context(), tenantFrom(c).ID)
	if err != nil {
		return err
	}
	if workflows == nil {
		workflows = []*store.Workflow{}
	}
	return c.JSON(http.StatusOK, workflows)
}

type putWorkflowRequest struct {
	ID         string                    `json:"id"`
	Name       string                    `json:"name"`
	Definition schema.WorkflowDefinition `json:"definition"`
	Enabled    *bool                     `json:"enabled"`
}

type putWorkflowResponse struct {
	*store.Workflow
	Warnings []schema.ValidationIssue `json:"warnings,omitempty"`
}

// PUT /api/v1/workflows
//
// Creates or replaces a workflow. The definition must validate, including
// preflight; warnings are returned alongside the saved workflow.
func (s *Server) handlePutWorkflow(c echo.Context) error {
	ctx := c.Request().Context()
	tenant := tenantFrom(c)

	var req putWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return schema.NewError(schema.ErrCodeValidation, "name is required")
	}

	result := s.deps.Engine.Validate(&req.Definition)
	if !result.Valid() {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"error":      errorPayload{Code: schema.ErrCodeValidation, Message: "workflow definition is invalid"},
			"validation": result,
		})
	}

	wf := &store.Workflow{
		ID:         req.ID,
		TenantID:   tenant.ID,
		Name:       req.Name,
		Definition: req.Definition,
		Enabled:    req.Enabled == nil || *req.Enabled,
	}
	if wf.ID == "" {
		wf.ID = uuid.NewString()
	} else if existing, err := s.deps.Store.GetWorkflow(ctx, tenant.ID, wf.ID); err == nil {
		wf.CreatedAt = existing.CreatedAt
	} else if !schema.IsNotFound(err) {
		return err
	}

	if err := s.deps.Store.UpsertWorkflow(ctx, wf); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, putWorkflowResponse{Workflow: wf, Warnings: result.Warnings})
}

// GET /api/v1/workflows/:id
func (s *Server) handleGetWorkflow(c echo.Context) error {
	wf, err := s.deps.Store.GetWorkflow(c.Request().Context(), tenantFrom(c).ID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, wf)
}

// POST /api/v1/workflows/:id/validate
func (s *Server) handleValidateWorkflow(c echo.Context) error {
	wf, err := s.deps.Store.GetWorkflow(c.Request().Context(), tenantFrom(c).ID, c.Param("id"))
	if err != nil {
		return err
	}
	result := s.deps.Engine.Validate(&wf.Definition)
	return c.JSON(http.StatusOK, map[string]any{
		"valid":    result.Valid(),
		"errors":   nonNil(result.Errors),
		"warnings": nonNil(result.Warnings),
	})
}

// runSummary is a Run without its report body.
type runSummary struct {
	ID          string    `json:"id"`
	WorkflowID  string    `json:"workflow_id"`
	Trigger     string    `json:"trigger"`
	Success     bool      `json:"success"`
	TimedOut    bool      `json:"timed_out,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// GET /api/v1/runs?workflow_id=&limit=
func (s *Server) handleListRuns(c echo.Context) error {
	limit := defaultRunLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return schema.NewErrorf(schema.ErrCodeValidation, "limit must be a positive integer, got %q", raw)
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := s.deps.Store.ListRuns(c.Request().Context(), store.RunFilter{
		TenantID:   tenantFrom(c).ID,
		WorkflowID: c.QueryParam("workflow_id"),
		Limit:      limit,
	})
	if err != nil {
		return err
	}

	out := make([]runSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, runSummary{
			ID:          r.ID,
			WorkflowID:  r.WorkflowID,
			Trigger:     r.Trigger,
			Success:     r.Success,
			TimedOut:    r.TimedOut,
			StartedAt:   r.StartedAt,
			CompletedAt: r.CompletedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// GET /api/v1/runs/:id returns the stored run report verbatim.
func (s *Server) handleGetRun(c echo.Context) error {
	run, err := s.deps.Store.GetRun(c.Request().Context(), tenantFrom(c).ID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSONBlob(http.StatusOK, run.Report)
}

func nonNil(issues []schema.ValidationIssue) []schema.ValidationIssue {
	if issues == nil {
		return []schema.ValidationIssue{}
	}
	return issues
}
