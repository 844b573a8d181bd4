package api

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/voundbrand/vc83-com-sub014/internal/identity"
	"github.com/voundbrand/vc83-com-sub014/internal/logging"
	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

const (
	headerAPIKey = "X-API-Key"
	tenantKey    = "tenant"
)

// requireAPIKey resolves the caller's tenant from a bearer token or the
// X-API-Key header. Requests without a valid key never reach a handler.
func (s *Server) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.Request().Header.Get(headerAPIKey)
		if raw == "" {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
				raw = token
			}
		}

		tenant, err := identity.Resolve(c.Request().Context(), s.deps.Store, raw)
		if err != nil {
			if schema.IsNotFound(err) {
				return schema.NewError(schema.ErrCodeUnauthorized, "api key tenant no longer exists")
			}
			return err
		}

		c.Set(tenantKey, tenant)
		req := c.Request()
		ctx := identity.WithTenant(logging.WithTenantID(req.Context(), tenant.ID), tenant)
		c.SetRequest(req.WithContext(ctx))
		return next(c)
	}
}

func tenantFrom(c echo.Context) *store.Tenant {
	if t, ok := c.Get(tenantKey).(*store.Tenant); ok {
		return t
	}
	return identity.TenantFrom(c.Request().Context())
}
