package identity

import (
	"context"

	"github.com/voundbrand/vc83-com-sub014/internal/store"
)

type tenantKey struct{}

// WithTenant returns ctx carrying the authenticated tenant.
func WithTenant(ctx context.Context, t *store.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// TenantFrom returns the tenant stored by WithTenant, or nil.
func TenantFrom(ctx context.Context) *store.Tenant {
	t, _ := ctx.Value(tenantKey{}).(*store.Tenant)
	return t
}
