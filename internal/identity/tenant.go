// Package identity resolves API keys to tenants and bootstraps tenants.
package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// KeyPrefix marks workflowd API keys.
const KeyPrefix = "wfk_"

// Store is the slice of the store identity needs.
type Store interface {
	CreateTenant(ctx context.Context, t *store.Tenant) error
	GetTenant(ctx context.Context, id string) (*store.Tenant, error)
	CreateAPIKey(ctx context.Context, key *store.APIKey) error
	GetAPIKeyByHash(ctx context.Context, hash string) (*store.APIKey, error)
}

var validPlans = map[string]bool{
	store.PlanFree:       true,
	store.PlanPro:        true,
	store.PlanEnterprise: true,
}

// ValidatePlan checks that plan is a known tier.
func ValidatePlan(plan string) error {
	if !validPlans[plan] {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"invalid plan %q: must be one of free, pro, enterprise", plan)
	}
	return nil
}

// ValidateTenant checks required fields on a Tenant.
func ValidateTenant(t *store.Tenant) error {
	if t.ID == "" {
		return schema.NewError(schema.ErrCodeValidation, "tenant id is required")
	}
	if t.Name == "" {
		return schema.NewError(schema.ErrCodeValidation, "tenant name is required")
	}
	return ValidatePlan(t.Plan)
}

// EnsureTenant returns the tenant with id, creating it when absent.
func EnsureTenant(ctx context.Context, s Store, id, name, plan string) (*store.Tenant, error) {
	existing, err := s.GetTenant(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !schema.IsNotFound(err) {
		return nil, err
	}

	if plan == "" {
		plan = store.PlanFree
	}
	t := &store.Tenant{ID: id, Name: name, Plan: plan}
	if err := ValidateTenant(t); err != nil {
		return nil, err
	}
	if err := s.CreateTenant(ctx, t); err != nil {
		return nil, err
	}
	return s.GetTenant(ctx, id)
}

// HashKey returns the stored form of a raw API key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IssueAPIKey creates a new key for tenantID. The raw key is returned once
// and never stored.
func IssueAPIKey(ctx context.Context, s Store, tenantID, label string) (string, *store.APIKey, error) {
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return "", nil, err
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, schema.NewError(schema.ErrCodeExecution, "generate api key").WithCause(err)
	}
	raw := KeyPrefix + hex.EncodeToString(buf)

	key := &store.APIKey{
		ID:       uuid.NewString(),
		TenantID: tenantID,
		Hash:     HashKey(raw),
		Label:    label,
	}
	if err := s.CreateAPIKey(ctx, key); err != nil {
		return "", nil, err
	}
	return raw, key, nil
}

// Resolve maps a raw API key to its tenant. Unknown keys are UNAUTHORIZED.
func Resolve(ctx context.Context, s Store, raw string) (*store.Tenant, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, schema.NewError(schema.ErrCodeUnauthorized, "missing api key")
	}
	key, err := s.GetAPIKeyByHash(ctx, HashKey(raw))
	if err != nil {
		if schema.IsNotFound(err) {
			return nil, schema.NewError(schema.ErrCodeUnauthorized, "invalid api key")
		}
		return nil, err
	}
	return s.GetTenant(ctx, key.TenantID)
}
