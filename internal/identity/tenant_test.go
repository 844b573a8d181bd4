package identity

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// mockStore keeps tenants and keys in memory.
type mockStore struct {
	tenants map[string]*store.Tenant
	keys    map[string]*store.APIKey
}

func newMockStore() *mockStore {
	return &mockStore{tenants: map[string]*store.Tenant{}, keys: map[string]*store.APIKey{}}
}

func (m *mockStore) CreateTenant(_ context.Context, t *store.Tenant) error {
	if _, exists := m.tenants[t.ID]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "tenant %q already exists", t.ID)
	}
	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *mockStore) GetTenant(_ context.Context, id string) (*store.Tenant, error) {
	t, ok := m.tenants[id]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound, "tenant %q not found", id)
	}
	cp := *t
	return &cp, nil
}

func (m *mockStore) CreateAPIKey(_ context.Context, k *store.APIKey) error {
	m.keys[k.Hash] = k
	return nil
}

func (m *mockStore) GetAPIKeyByHash(_ context.Context, hash string) (*store.APIKey, error) {
	k, ok := m.keys[hash]
	if !ok {
		return nil, schema.NewError(schema.ErrCodeNotFound, "api key not found")
	}
	return k, nil
}

func TestValidateTenant(t *testing.T) {
	assert.NoError(t, ValidateTenant(&store.Tenant{ID: "t1", Name: "Acme", Plan: store.PlanPro}))
	assert.Error(t, ValidateTenant(&store.Tenant{Name: "Acme", Plan: store.PlanPro}))
	assert.Error(t, ValidateTenant(&store.Tenant{ID: "t1", Plan: store.PlanPro}))

	err := ValidateTenant(&store.Tenant{ID: "t1", Name: "Acme", Plan: "gold"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid plan")
}

func TestEnsureTenant(t *testing.T) {
	ms := newMockStore()
	ctx := context.Background()

	created, err := EnsureTenant(ctx, ms, "t1", "Acme", "")
	require.NoError(t, err)
	assert.Equal(t, store.PlanFree, created.Plan)

	again, err := EnsureTenant(ctx, ms, "t1", "Renamed", store.PlanPro)
	require.NoError(t, err)
	assert.Equal(t, "Acme", again.Name, "existing tenant must be returned unchanged")

	_, err = EnsureTenant(ctx, ms, "t2", "Beta", "gold")
	assert.Equal(t, schema.ErrCodeValidation, schema.CodeOf(err, ""))
}

func TestIssueAndResolve(t *testing.T) {
	ms := newMockStore()
	ctx := context.Background()
	_, err := EnsureTenant(ctx, ms, "t1", "Acme", store.PlanPro)
	require.NoError(t, err)

	raw, key, err := IssueAPIKey(ctx, ms, "t1", "ci")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, KeyPrefix))
	assert.Equal(t, HashKey(raw), key.Hash)
	assert.NotContains(t, key.Hash, raw)

	tenant, err := Resolve(ctx, ms, " "+raw+" ")
	require.NoError(t, err)
	assert.Equal(t, "t1", tenant.ID)

	_, err = Resolve(ctx, ms, "wfk_bogus")
	assert.Equal(t, schema.ErrCodeUnauthorized, schema.CodeOf(err, ""))
	_, err = Resolve(ctx, ms, "")
	assert.Equal(t, schema.ErrCodeUnauthorized, schema.CodeOf(err, ""))
}

func TestIssueAPIKey_UnknownTenant(t *testing.T) {
	_, _, err := IssueAPIKey(context.Background(), newMockStore(), "nope", "")
	assert.True(t, schema.IsNotFound(err))
}
