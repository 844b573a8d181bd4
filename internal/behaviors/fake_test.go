package behaviors

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// memStore is an in-memory Reader and Writer that counts writes.
type memStore struct {
	mu           sync.Mutex
	events       map[string]*store.Event
	contacts     map[string]*store.Contact
	orgs         map[string]*store.Organization
	transactions map[string]*store.Transaction
	tickets      map[string]*store.Ticket
	invoices     map[string]*store.Invoice
	outbox       []*store.OutboundEmail
	sequences    map[string]int64
	writes       int
}

func newMemStore() *memStore {
	return &memStore{
		events:       map[string]*store.Event{},
		contacts:     map[string]*store.Contact{},
		orgs:         map[string]*store.Organization{},
		transactions: map[string]*store.Transaction{},
		tickets:      map[string]*store.Ticket{},
		invoices:     map[string]*store.Invoice{},
		sequences:    map[string]int64{},
	}
}

func notFound(kind, id string) error {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", kind, id)
}

func (m *memStore) GetEvent(_ context.Context, tenantID, id string) (*store.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || ev.TenantID != tenantID {
		return nil, notFound("event", id)
	}
	cp := *ev
	return &cp, nil
}

func (m *memStore) GetTransaction(_ context.Context, tenantID, id string) (*store.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.transactions[id]
	if !ok || tx.TenantID != tenantID {
		return nil, notFound("transaction", id)
	}
	return tx, nil
}

func (m *memStore) FindContactByEmail(_ context.Context, tenantID, email string) (*store.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contacts {
		if c.TenantID == tenantID && strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return nil, notFound("contact", email)
}

func (m *memStore) FindOrganizationByName(_ context.Context, tenantID, name string) (*store.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.TenantID == tenantID && strings.EqualFold(o.Name, name) {
			return o, nil
		}
	}
	return nil, notFound("organization", name)
}

func (m *memStore) FindTransactionByIdempotencyKey(_ context.Context, tenantID, key string) (*store.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.transactions {
		if tx.TenantID == tenantID && tx.IdempotencyKey == key {
			return tx, nil
		}
	}
	return nil, notFound("transaction", key)
}

func (m *memStore) CreateContact(_ context.Context, c *store.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.contacts[c.ID] = c
	return nil
}

func (m *memStore) CreateTransaction(_ context.Context, t *store.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.transactions[t.ID] = t
	return nil
}

// CreateTicket mirrors the libsql store: unknown events are NOT_FOUND, full
// ones CONFLICT, and a refused ticket consumes no number.
func (m *memStore) CreateTicket(_ context.Context, t *store.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[t.EventID]
	if !ok || ev.TenantID != t.TenantID {
		return notFound("event", t.EventID)
	}
	if ev.Registrations >= ev.MaxCapacity {
		return schema.NewError(schema.ErrCodeConflict, "Event is at full capacity")
	}
	ev.Registrations++
	if t.Number == "" {
		t.Number = fmt.Sprintf("TKT-%06d", m.next(t.TenantID, "ticket"))
	}
	m.writes++
	m.tickets[t.ID] = t
	return nil
}

func (m *memStore) CreateInvoice(_ context.Context, inv *store.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv.Number == "" {
		year := inv.CreatedAt.Year()
		inv.Number = fmt.Sprintf("INV-%d-%06d", year, m.next(inv.TenantID, fmt.Sprintf("invoice-%d", year)))
	}
	m.writes++
	m.invoices[inv.ID] = inv
	return nil
}

func (m *memStore) EnqueueEmail(_ context.Context, e *store.OutboundEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.outbox = append(m.outbox, e)
	return nil
}

func (m *memStore) next(tenantID, name string) int64 {
	key := tenantID + "/" + name
	m.sequences[key]++
	return m.sequences[key]
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestEnv(ms *memStore) *Env {
	env := NewEnv(ms, ms)
	env.Now = func() time.Time { return fixedNow }
	return env
}

func invocation(data map[string]any, config map[string]any) Invocation {
	if config == nil {
		config = map[string]any{}
	}
	return Invocation{
		RunID:    "run-1",
		TenantID: "t1",
		Trigger:  "event_registration",
		Config:   config,
		Context:  data,
	}
}

func dryRun(inv Invocation) Invocation {
	cfg := make(map[string]any, len(inv.Config)+1)
	for k, v := range inv.Config {
		cfg[k] = v
	}
	cfg[schema.ConfigKeyDryRun] = true
	inv.Config = cfg
	return inv
}
