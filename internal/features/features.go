// Package features gates plan-tier features per tenant.
package features

import (
	"context"

	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// Feature names.
const (
	WorkflowTestMode = "workflow_test_mode"
	WorkflowWebhooks = "workflow_webhooks"
)

var planRank = map[string]int{
	store.PlanFree:       0,
	store.PlanPro:        1,
	store.PlanEnterprise: 2,
}

// DefaultRequirements maps each feature to the lowest plan that includes it.
var DefaultRequirements = map[string]string{
	WorkflowTestMode: store.PlanPro,
	WorkflowWebhooks: store.PlanPro,
}

// Checker answers feature-access questions from a tenant's plan.
type Checker struct {
	requirements map[string]string
}

// NewChecker creates a Checker. A nil map uses DefaultRequirements.
func NewChecker(requirements map[string]string) *Checker {
	if requirements == nil {
		requirements = DefaultRequirements
	}
	return &Checker{requirements: requirements}
}

// Allowed reports whether plan includes feature. Features without a
// requirement are available to every plan.
func (c *Checker) Allowed(plan, feature string) bool {
	required, ok := c.requirements[feature]
	if !ok {
		return true
	}
	have, known := planRank[plan]
	if !known {
		return false
	}
	return have >= planRank[required]
}

// CheckFeatureAccess returns FEATURE_DENIED when the tenant's plan does not
// include feature.
func (c *Checker) CheckFeatureAccess(_ context.Context, tenant *store.Tenant, feature string) error {
	if tenant == nil {
		return schema.NewError(schema.ErrCodeUnauthorized, "no tenant")
	}
	if c.Allowed(tenant.Plan, feature) {
		return nil
	}
	return schema.NewErrorf(schema.ErrCodeFeatureDenied,
		"feature %q requires the %s plan", feature, c.requirements[feature]).
		WithDetails(map[string]any{"feature": feature, "plan": tenant.Plan, "required_plan": c.requirements[feature]})
}
