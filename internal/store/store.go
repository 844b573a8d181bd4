package store

import (
	"context"
	"time"
)

// Store defines the persistence layer contract. Every method is tenant-scoped
// except tenant and API-key bootstrap.
// All implementations must be safe for concurrent use.
type Store interface {
	// Tenants
	CreateTenant(ctx context.Context, t *Tenant) error
	GetTenant(ctx context.Context, id string) (*Tenant, error)

	// API keys
	CreateAPIKey(ctx context.Context, key *APIKey) error
	GetAPIKeyByHash(ctx context.Context, hash string) (*APIKey, error)

	// Workflows
	UpsertWorkflow(ctx context.Context, wf *Workflow) error
	GetWorkflow(ctx context.Context, tenantID, id string) (*Workflow, error)
	GetWorkflowByTrigger(ctx context.Context, tenantID, trigger string) (*Workflow, error)
	ListWorkflows(ctx context.Context, tenantID string) ([]*Workflow, error)

	// Run reports
	SaveRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, tenantID, id string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error)
	DeleteRunsBefore(ctx context.Context, before time.Time) (int64, error)

	// Bookable events
	CreateEvent(ctx context.Context, ev *Event) error
	GetEvent(ctx context.Context, tenantID, id string) (*Event, error)

	// CRM
	CreateContact(ctx context.Context, c *Contact) error
	FindContactByEmail(ctx context.Context, tenantID, email string) (*Contact, error)
	CreateOrganization(ctx context.Context, o *Organization) error
	FindOrganizationByName(ctx context.Context, tenantID, name string) (*Organization, error)

	// Transactions
	CreateTransaction(ctx context.Context, tx *Transaction) error
	GetTransaction(ctx context.Context, tenantID, id string) (*Transaction, error)
	FindTransactionByIdempotencyKey(ctx context.Context, tenantID, key string) (*Transaction, error)

	// Tickets: creating one also counts a registration against its event.
	CreateTicket(ctx context.Context, t *Ticket) error
	GetTicket(ctx context.Context, tenantID, id string) (*Ticket, error)

	// Invoices
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, tenantID, id string) (*Invoice, error)

	// Email outbox
	EnqueueEmail(ctx context.Context, m *OutboundEmail) error
	ListOutbox(ctx context.Context, tenantID string) ([]*OutboundEmail, error)

	// Sequences
	NextSequence(ctx context.Context, tenantID, name string) (int64, error)

	// Maintenance
	Migrate(ctx context.Context) error

	// Lifecycle
	Close() error
}
