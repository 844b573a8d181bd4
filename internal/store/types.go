package store

import (
	"encoding/json"
	"time"

	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// Plan tiers a tenant can be on.
const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Tenant is an isolated organization whose data and workflows are scoped separately.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}

// APIKey maps the sha256 of a bearer key to a tenant. The raw key is never stored.
type APIKey struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Hash      string    `json:"-"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Workflow is a tenant-owned workflow configuration. The engine reads it; tenant
// admins write it.
type Workflow struct {
	ID         string                    `json:"id"`
	TenantID   string                    `json:"tenant_id"`
	Name       string                    `json:"name"`
	Definition schema.WorkflowDefinition `json:"definition"`
	Enabled    bool                      `json:"enabled"`
	CreatedAt  time.Time                 `json:"created_at"`
	UpdatedAt  time.Time                 `json:"updated_at"`
}

// Run is a persisted production run report.
type Run struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	WorkflowID  string          `json:"workflow_id"`
	Trigger     string          `json:"trigger"`
	Success     bool            `json:"success"`
	TimedOut    bool            `json:"timed_out,omitempty"`
	Report      json.RawMessage `json:"report"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at"`
}

// RunFilter controls ListRuns.
type RunFilter struct {
	TenantID   string
	WorkflowID string
	Limit      int
}

// Event is a bookable event with a registration capacity.
type Event struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	Name          string     `json:"name"`
	MaxCapacity   int        `json:"max_capacity"`
	Registrations int        `json:"registrations"`
	StartsAt      *time.Time `json:"starts_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Contact is a CRM person record.
type Contact struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Organization is a CRM company record that can be billed by invoice.
type Organization struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Name         string    `json:"name"`
	BillingEmail string    `json:"billing_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Transaction records the commercial side of a registration.
type Transaction struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	EventID        string    `json:"event_id"`
	ContactID      string    `json:"contact_id,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	BillingMethod  string    `json:"billing_method"`
	PaymentStatus  string    `json:"payment_status"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Ticket admits one attendee to an event.
type Ticket struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	Number        string    `json:"number"`
	EventID       string    `json:"event_id"`
	ProductID     string    `json:"product_id"`
	ContactID     string    `json:"contact_id,omitempty"`
	TransactionID string    `json:"transaction_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Invoice bills an organization for a transaction.
type Invoice struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	Number         string    `json:"number"`
	OrganizationID string    `json:"organization_id"`
	TransactionID  string    `json:"transaction_id"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency"`
	DueAt          time.Time `json:"due_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// OutboundEmail is a queued message; delivery happens outside the engine.
type OutboundEmail struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
