package behaviors

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/voundbrand/vc83-com-sub014/internal/expressions"
	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// DryRunMarker prefixes every simulated id and appears in simulated numbers.
const DryRunMarker = "dryrun"

// Reader is the read side of the tenant store. Reads are real in both modes so
// a dry run takes the same decisions production would.
type Reader interface {
	GetEvent(ctx context.Context, tenantID, id string) (*store.Event, error)
	GetTransaction(ctx context.Context, tenantID, id string) (*store.Transaction, error)
	FindContactByEmail(ctx context.Context, tenantID, email string) (*store.Contact, error)
	FindOrganizationByName(ctx context.Context, tenantID, name string) (*store.Organization, error)
	FindTransactionByIdempotencyKey(ctx context.Context, tenantID, key string) (*store.Transaction, error)
}

// Writer is the write side of the tenant store. Only live Effects hold one.
// CreateTicket and CreateInvoice assign Number in the same transaction as the
// insert.
type Writer interface {
	CreateContact(ctx context.Context, c *store.Contact) error
	CreateTransaction(ctx context.Context, t *store.Transaction) error
	CreateTicket(ctx context.Context, t *store.Ticket) error
	CreateInvoice(ctx context.Context, inv *store.Invoice) error
	EnqueueEmail(ctx context.Context, m *store.OutboundEmail) error
}

// Effects performs every write and outbound call a behavior makes. Each method
// assigns the record's ID (and Number, where it has one) before returning.
type Effects interface {
	CreateContact(ctx context.Context, c *store.Contact) error
	CreateTransaction(ctx context.Context, t *store.Transaction) error
	CreateTicket(ctx context.Context, t *store.Ticket) error
	CreateInvoice(ctx context.Context, inv *store.Invoice) error
	SendEmail(ctx context.Context, m *store.OutboundEmail) error
}

// Env carries what behaviors share: the store reader, both effect strategies,
// the pricing expression engine and a clock.
type Env struct {
	Reader Reader
	Expr   *expressions.ExprEngine
	Now    func() time.Time

	live      Effects
	simulated Effects
}

// NewEnv wires live effects to w and simulated effects to nothing.
func NewEnv(r Reader, w Writer) *Env {
	e := &Env{
		Reader: r,
		Expr:   expressions.NewExprEngine(),
		Now:    func() time.Time { return time.Now().UTC() },
	}
	e.live = &liveEffects{w: w, now: e.clock}
	e.simulated = &simulatedEffects{now: e.clock}
	return e
}

func (e *Env) clock() time.Time { return e.Now() }

// Effects picks the strategy for one invocation. Behaviors call it once, at
// the top of Execute.
func (e *Env) Effects(inv Invocation) Effects {
	if inv.DryRun() {
		return e.simulated
	}
	return e.live
}

// IsDryRunID reports whether an id or number was synthesized by a dry run.
func IsDryRunID(id string) bool {
	return strings.HasPrefix(id, DryRunMarker+"_") || strings.Contains(id, "-"+strings.ToUpper(DryRunMarker)+"-")
}

// --- live ---

type liveEffects struct {
	w   Writer
	now func() time.Time
}

func (l *liveEffects) CreateContact(ctx context.Context, c *store.Contact) error {
	c.ID = uuid.NewString()
	return l.w.CreateContact(ctx, c)
}

func (l *liveEffects) CreateTransaction(ctx context.Context, t *store.Transaction) error {
	if err := rejectDryRunRefs(t.EventID, t.ContactID, t.OrganizationID); err != nil {
		return err
	}
	t.ID = uuid.NewString()
	return l.w.CreateTransaction(ctx, t)
}

func (l *liveEffects) CreateTicket(ctx context.Context, t *store.Ticket) error {
	if err := rejectDryRunRefs(t.EventID, t.ContactID, t.TransactionID); err != nil {
		return err
	}
	t.ID = uuid.NewString()
	return l.w.CreateTicket(ctx, t)
}

func (l *liveEffects) CreateInvoice(ctx context.Context, inv *store.Invoice) error {
	if err := rejectDryRunRefs(inv.OrganizationID, inv.TransactionID); err != nil {
		return err
	}
	inv.ID = uuid.NewString()
	inv.CreatedAt = l.now()
	return l.w.CreateInvoice(ctx, inv)
}

func (l *liveEffects) SendEmail(ctx context.Context, m *store.OutboundEmail) error {
	m.ID = uuid.NewString()
	return l.w.EnqueueEmail(ctx, m)
}

// rejectDryRunRefs keeps simulated ids out of persisted records.
func rejectDryRunRefs(ids ...string) error {
	for _, id := range ids {
		if id != "" && IsDryRunID(id) {
			return schema.NewErrorf(schema.ErrCodeValidation, "refusing to persist a reference to dry-run id %q", id)
		}
	}
	return nil
}

// --- simulated ---

type simulatedEffects struct {
	now func() time.Time
	seq atomic.Int64
}

// id embeds the marker and a timestamp; the counter separates ids minted
// within one clock tick.
func (s *simulatedEffects) id(kind string) string {
	n := s.seq.Add(1)
	return fmt.Sprintf("%s_%s_%d_%d", DryRunMarker, kind, s.now().UnixNano(), n)
}

func (s *simulatedEffects) CreateContact(_ context.Context, c *store.Contact) error {
	c.ID = s.id("contact")
	return nil
}

func (s *simulatedEffects) CreateTransaction(_ context.Context, t *store.Transaction) error {
	t.ID = s.id("transaction")
	return nil
}

func (s *simulatedEffects) CreateTicket(_ context.Context, t *store.Ticket) error {
	t.ID = s.id("ticket")
	t.Number = fmt.Sprintf("TKT-DRYRUN-%d", s.now().Unix())
	return nil
}

func (s *simulatedEffects) CreateInvoice(_ context.Context, inv *store.Invoice) error {
	inv.ID = s.id("invoice")
	inv.Number = fmt.Sprintf("INV-DRYRUN-%d", s.now().Unix())
	return nil
}

func (s *simulatedEffects) SendEmail(_ context.Context, m *store.OutboundEmail) error {
	m.ID = s.id("email")
	return nil
}
