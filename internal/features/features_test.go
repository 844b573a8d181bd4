package features

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

func TestChecker_Allowed(t *testing.T) {
	c := NewChecker(nil)

	tests := []struct {
		plan    string
		feature string
		want    bool
	}{
		{store.PlanFree, WorkflowTestMode, false},
		{store.PlanPro, WorkflowTestMode, true},
		{store.PlanEnterprise, WorkflowTestMode, true},
		{store.PlanFree, WorkflowWebhooks, false},
		{store.PlanFree, "unlisted", true},
		{"legacy", WorkflowTestMode, false},
	}
	for _, tt := range tests {
		t.Run(tt.plan+"/"+tt.feature, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Allowed(tt.plan, tt.feature))
		})
	}
}

func TestChecker_CheckFeatureAccess(t *testing.T) {
	c := NewChecker(nil)
	ctx := context.Background()

	assert.NoError(t, c.CheckFeatureAccess(ctx, &store.Tenant{ID: "t1", Plan: store.PlanPro}, WorkflowTestMode))

	err := c.CheckFeatureAccess(ctx, &store.Tenant{ID: "t1", Plan: store.PlanFree}, WorkflowTestMode)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeFeatureDenied, schema.CodeOf(err, ""))
	assert.Contains(t, err.Error(), "pro")

	err = c.CheckFeatureAccess(ctx, nil, WorkflowTestMode)
	assert.Equal(t, schema.ErrCodeUnauthorized, schema.CodeOf(err, ""))
}

func TestChecker_CustomRequirements(t *testing.T) {
	c := NewChecker(map[string]string{WorkflowTestMode: store.PlanEnterprise})
	assert.False(t, c.Allowed(store.PlanPro, WorkflowTestMode))
	assert.True(t, c.Allowed(store.PlanEnterprise, WorkflowTestMode))
}
