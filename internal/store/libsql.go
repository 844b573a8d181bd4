package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// LibSQLStore implements Store on libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path.
// The path should be a file URI, e.g. "file:/var/lib/workflowd/workflowd.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	// A single writer connection serializes sequences and capacity updates.
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// --- Tenants ---

func (s *LibSQLStore) CreateTenant(ctx context.Context, t *Tenant) error {
	if t.Plan == "" {
		t.Plan = PlanFree
	}
	t.CreatedAt = timeOrNow(t.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, plan, created_at) VALUES (?, ?, ?, ?)`,
		t.ID, t.Name, t.Plan, t.CreatedAt,
	)
	return conflictOr(err, "tenant", t.ID)
}

func (s *LibSQLStore) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	t := &Tenant{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, plan, created_at FROM tenants WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.Plan, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("tenant", id)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// --- API keys ---

func (s *LibSQLStore) CreateAPIKey(ctx context.Context, key *APIKey) error {
	key.CreatedAt = timeOrNow(key.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, tenant_id, key_hash, label, created_at) VALUES (?, ?, ?, ?, ?)`,
		key.ID, key.TenantID, key.Hash, nullStr(key.Label), key.CreatedAt,
	)
	return conflictOr(err, "api key", key.ID)
}

func (s *LibSQLStore) GetAPIKeyByHash(ctx context.Context, hash string) (*APIKey, error) {
	k := &APIKey{}
	var label sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, key_hash, label, created_at FROM api_keys WHERE key_hash = ?`, hash,
	).Scan(&k.ID, &k.TenantID, &k.Hash, &label, &k.CreatedAt)
	if err == sql.ErrNoRows {
		// Never echo the hash back.
		return nil, schema.NewError(schema.ErrCodeNotFound, "api key not found")
	}
	if err != nil {
		return nil, err
	}
	k.Label = label.String
	return k, nil
}

// --- Workflows ---

func (s *LibSQLStore) UpsertWorkflow(ctx context.Context, wf *Workflow) error {
	def, err := json.Marshal(wf.Definition)
	if err != nil {
		return fmt.Errorf("marshal definition: %w", err)
	}
	now := time.Now().UTC()
	wf.CreatedAt = timeOrNow(wf.CreatedAt)
	wf.UpdatedAt = now
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO workflows (id, tenant_id, name, trigger_name, definition, enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, trigger_name=excluded.trigger_name,
		   definition=excluded.definition, enabled=excluded.enabled, updated_at=excluded.updated_at
		 WHERE workflows.tenant_id = excluded.tenant_id`,
		wf.ID, wf.TenantID, wf.Name, wf.Definition.Trigger, string(def), wf.Enabled, wf.CreatedAt, wf.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return schema.NewErrorf(schema.ErrCodeConflict, "trigger %q already bound to another workflow", wf.Definition.Trigger).WithCause(err)
	}
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return schema.NewErrorf(schema.ErrCodeConflict, "workflow id %q is taken", wf.ID)
	}
	return nil
}

const workflowColumns = `id, tenant_id, name, definition, enabled, created_at, updated_at`

func (s *LibSQLStore) GetWorkflow(ctx context.Context, tenantID, id string) (*Workflow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE tenant_id = ? AND id = ?`, tenantID, id,
	)
	wf, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("workflow", id)
	}
	return wf, err
}

// GetWorkflowByTrigger resolves the enabled workflow bound to a trigger.
// Disabled workflows are reported as not found.
func (s *LibSQLStore) GetWorkflowByTrigger(ctx context.Context, tenantID, trigger string) (*Workflow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE tenant_id = ? AND trigger_name = ? AND enabled = 1`,
		tenantID, trigger,
	)
	wf, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("workflow for trigger", trigger)
	}
	return wf, err
}

func (s *LibSQLStore) ListWorkflows(ctx context.Context, tenantID string) ([]*Workflow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE tenant_id = ? ORDER BY name, id`, tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(sc scanner) (*Workflow, error) {
	wf := &Workflow{}
	var def string
	if err := sc.Scan(&wf.ID, &wf.TenantID, &wf.Name, &def, &wf.Enabled, &wf.CreatedAt, &wf.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(def), &wf.Definition); err != nil {
		return nil, fmt.Errorf("unmarshal workflow definition: %w", err)
	}
	return wf, nil
}

// --- Runs ---

func (s *LibSQLStore) SaveRun(ctx context.Context, run *Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workflow_runs (id, tenant_id, workflow_id, trigger_name, success, timed_out, report, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.TenantID, run.WorkflowID, run.Trigger, run.Success, run.TimedOut,
		rawOrEmptyObject(run.Report), timeOrNow(run.StartedAt), timeOrNow(run.CompletedAt),
	)
	return conflictOr(err, "run", run.ID)
}

const runColumns = `id, tenant_id, workflow_id, trigger_name, success, timed_out, report, started_at, completed_at`

func (s *LibSQLStore) GetRun(ctx context.Context, tenantID, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM workflow_runs WHERE tenant_id = ? AND id = ?`, tenantID, id,
	)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("run", id)
	}
	return r, err
}

func (s *LibSQLStore) ListRuns(ctx context.Context, filter RunFilter) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM workflow_runs`
	var where []string
	var args []any
	if filter.TenantID != "" {
		where = append(where, "tenant_id = ?")
		args = append(args, filter.TenantID)
	}
	if filter.WorkflowID != "" {
		where = append(where, "workflow_id = ?")
		args = append(args, filter.WorkflowID)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRunsBefore prunes run reports that started before the cutoff, across
// all tenants.
func (s *LibSQLStore) DeleteRunsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workflow_runs WHERE started_at < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanRun(sc scanner) (*Run, error) {
	r := &Run{}
	var report string
	if err := sc.Scan(&r.ID, &r.TenantID, &r.WorkflowID, &r.Trigger, &r.Success, &r.TimedOut, &report, &r.StartedAt, &r.CompletedAt); err != nil {
		return nil, err
	}
	r.Report = json.RawMessage(report)
	return r, nil
}

// --- Events ---

func (s *LibSQLStore) CreateEvent(ctx context.Context, ev *Event) error {
	ev.CreatedAt = timeOrNow(ev.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, tenant_id, name, max_capacity, registrations, starts_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.TenantID, ev.Name, ev.MaxCapacity, ev.Registrations, nullTime(ev.StartsAt), ev.CreatedAt,
	)
	return conflictOr(err, "event", ev.ID)
}

func (s *LibSQLStore) GetEvent(ctx context.Context, tenantID, id string) (*Event, error) {
	ev := &Event{}
	var startsAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, max_capacity, registrations, starts_at, created_at
		 FROM events WHERE tenant_id = ? AND id = ?`, tenantID, id,
	).Scan(&ev.ID, &ev.TenantID, &ev.Name, &ev.MaxCapacity, &ev.Registrations, &startsAt, &ev.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("event", id)
	}
	if err != nil {
		return nil, err
	}
	if startsAt.Valid {
		ev.StartsAt = &startsAt.Time
	}
	return ev, nil
}

// --- CRM ---

func (s *LibSQLStore) CreateContact(ctx context.Context, c *Contact) error {
	c.Email = normalizeEmail(c.Email)
	c.CreatedAt = timeOrNow(c.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, tenant_id, email, first_name, last_name, phone, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TenantID, c.Email, nullStr(c.FirstName), nullStr(c.LastName), nullStr(c.Phone), c.CreatedAt,
	)
	return conflictOr(err, "contact", c.Email)
}

func (s *LibSQLStore) FindContactByEmail(ctx context.Context, tenantID, email string) (*Contact, error) {
	c := &Contact{}
	var first, last, phone sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, email, first_name, last_name, phone, created_at
		 FROM contacts WHERE tenant_id = ? AND email = ?`, tenantID, normalizeEmail(email),
	).Scan(&c.ID, &c.TenantID, &c.Email, &first, &last, &phone, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("contact", email)
	}
	if err != nil {
		return nil, err
	}
	c.FirstName, c.LastName, c.Phone = first.String, last.String, phone.String
	return c, nil
}

func (s *LibSQLStore) CreateOrganization(ctx context.Context, o *Organization) error {
	o.CreatedAt = timeOrNow(o.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO organizations (id, tenant_id, name, billing_email, created_at) VALUES (?, ?, ?, ?, ?)`,
		o.ID, o.TenantID, o.Name, nullStr(o.BillingEmail), o.CreatedAt,
	)
	return conflictOr(err, "organization", o.ID)
}

// FindOrganizationByName matches case-insensitively and returns the oldest match.
func (s *LibSQLStore) FindOrganizationByName(ctx context.Context, tenantID, name string) (*Organization, error) {
	o := &Organization{}
	var billing sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, billing_email, created_at FROM organizations
		 WHERE tenant_id = ? AND lower(name) = lower(?) ORDER BY created_at LIMIT 1`,
		tenantID, strings.TrimSpace(name),
	).Scan(&o.ID, &o.TenantID, &o.Name, &billing, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("organization", name)
	}
	if err != nil {
		return nil, err
	}
	o.BillingEmail = billing.String
	return o, nil
}

// --- Transactions ---

func (s *LibSQLStore) CreateTransaction(ctx context.Context, t *Transaction) error {
	t.CreatedAt = timeOrNow(t.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, tenant_id, event_id, contact_id, organization_id, amount, currency,
		   billing_method, payment_status, idempotency_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TenantID, t.EventID, nullStr(t.ContactID), nullStr(t.OrganizationID), t.Amount, t.Currency,
		t.BillingMethod, t.PaymentStatus, nullStr(t.IdempotencyKey), t.CreatedAt,
	)
	return conflictOr(err, "transaction", t.ID)
}

const transactionColumns = `id, tenant_id, event_id, contact_id, organization_id, amount, currency,
	billing_method, payment_status, idempotency_key, created_at`

func (s *LibSQLStore) GetTransaction(ctx context.Context, tenantID, id string) (*Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE tenant_id = ? AND id = ?`, tenantID, id,
	)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("transaction", id)
	}
	return t, err
}

func (s *LibSQLStore) FindTransactionByIdempotencyKey(ctx context.Context, tenantID, key string) (*Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE tenant_id = ? AND idempotency_key = ?
		 ORDER BY created_at LIMIT 1`, tenantID, key,
	)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("transaction with idempotency key", key)
	}
	return t, err
}

func scanTransaction(sc scanner) (*Transaction, error) {
	t := &Transaction{}
	var contact, org, idem sql.NullString
	if err := sc.Scan(&t.ID, &t.TenantID, &t.EventID, &contact, &org, &t.Amount, &t.Currency,
		&t.BillingMethod, &t.PaymentStatus, &idem, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.ContactID, t.OrganizationID, t.IdempotencyKey = contact.String, org.String, idem.String
	return t, nil
}

// --- Tickets ---

// CreateTicket inserts the ticket and counts the registration in one
// transaction, numbering it from the tenant's "ticket" counter when Number is
// empty. A full event yields CONFLICT and nothing is written.
func (s *LibSQLStore) CreateTicket(ctx context.Context, t *Ticket) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ticket tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE events SET registrations = registrations + 1
		 WHERE tenant_id = ? AND id = ? AND registrations < max_capacity`,
		t.TenantID, t.EventID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM events WHERE tenant_id = ? AND id = ?`, t.TenantID, t.EventID,
		).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return storeNotFound("event", t.EventID)
		}
		return schema.NewError(schema.ErrCodeConflict, "Event is at full capacity").
			WithDetails(map[string]any{"eventId": t.EventID, "availableSlots": 0})
	}

	if t.Number == "" {
		n, err := nextSequenceTx(ctx, tx, t.TenantID, "ticket")
		if err != nil {
			return err
		}
		t.Number = fmt.Sprintf("TKT-%06d", n)
	}
	t.CreatedAt = timeOrNow(t.CreatedAt)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO tickets (id, tenant_id, number, event_id, product_id, contact_id, transaction_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.TenantID, t.Number, t.EventID, t.ProductID, nullStr(t.ContactID), nullStr(t.TransactionID), t.CreatedAt,
	); err != nil {
		return conflictOr(err, "ticket", t.ID)
	}
	return tx.Commit()
}

func (s *LibSQLStore) GetTicket(ctx context.Context, tenantID, id string) (*Ticket, error) {
	t := &Ticket{}
	var contact, txID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, number, event_id, product_id, contact_id, transaction_id, created_at
		 FROM tickets WHERE tenant_id = ? AND id = ?`, tenantID, id,
	).Scan(&t.ID, &t.TenantID, &t.Number, &t.EventID, &t.ProductID, &contact, &txID, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("ticket", id)
	}
	if err != nil {
		return nil, err
	}
	t.ContactID, t.TransactionID = contact.String, txID.String
	return t, nil
}

// --- Invoices ---

// CreateInvoice numbers the invoice from its creation year's counter when
// Number is empty. Number and row commit together.
func (s *LibSQLStore) CreateInvoice(ctx context.Context, inv *Invoice) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin invoice tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inv.CreatedAt = timeOrNow(inv.CreatedAt)
	if inv.Number == "" {
		year := inv.CreatedAt.Year()
		n, err := nextSequenceTx(ctx, tx, inv.TenantID, fmt.Sprintf("invoice-%d", year))
		if err != nil {
			return err
		}
		inv.Number = fmt.Sprintf("INV-%d-%06d", year, n)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO invoices (id, tenant_id, number, organization_id, transaction_id, amount, currency, due_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.TenantID, inv.Number, inv.OrganizationID, inv.TransactionID, inv.Amount, inv.Currency,
		inv.DueAt, inv.CreatedAt,
	); err != nil {
		return conflictOr(err, "invoice", inv.ID)
	}
	return tx.Commit()
}

func (s *LibSQLStore) GetInvoice(ctx context.Context, tenantID, id string) (*Invoice, error) {
	inv := &Invoice{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, number, organization_id, transaction_id, amount, currency, due_at, created_at
		 FROM invoices WHERE tenant_id = ? AND id = ?`, tenantID, id,
	).Scan(&inv.ID, &inv.TenantID, &inv.Number, &inv.OrganizationID, &inv.TransactionID, &inv.Amount,
		&inv.Currency, &inv.DueAt, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("invoice", id)
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// --- Email outbox ---

func (s *LibSQLStore) EnqueueEmail(ctx context.Context, m *OutboundEmail) error {
	m.CreatedAt = timeOrNow(m.CreatedAt)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO email_outbox (id, tenant_id, recipient, subject, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.TenantID, m.To, m.Subject, m.Body, m.CreatedAt,
	)
	return conflictOr(err, "email", m.ID)
}

func (s *LibSQLStore) ListOutbox(ctx context.Context, tenantID string) ([]*OutboundEmail, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, recipient, subject, body, created_at FROM email_outbox
		 WHERE tenant_id = ? ORDER BY created_at, id`, tenantID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*OutboundEmail
	for rows.Next() {
		m := &OutboundEmail{}
		if err := rows.Scan(&m.ID, &m.TenantID, &m.To, &m.Subject, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// --- Sequences ---

// NextSequence atomically increments and returns the named per-tenant counter.
// The first call for a name returns 1.
func (s *LibSQLStore) NextSequence(ctx context.Context, tenantID, name string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin sequence tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	v, err := nextSequenceTx(ctx, tx, tenantID, name)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return v, nil
}

// nextSequenceTx bumps the counter inside tx, so a rolled back insert gives
// its number back.
func nextSequenceTx(ctx context.Context, tx *sql.Tx, tenantID, name string) (int64, error) {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sequences (tenant_id, name, value) VALUES (?, ?, 1)
		 ON CONFLICT(tenant_id, name) DO UPDATE SET value = value + 1`,
		tenantID, name,
	); err != nil {
		return 0, err
	}
	var v int64
	if err := tx.QueryRowContext(ctx,
		`SELECT value FROM sequences WHERE tenant_id = ? AND name = ?`, tenantID, name,
	).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// --- Helpers ---

func storeNotFound(resource, id string) *schema.WorkflowError {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

func isUniqueViolation(err error) bool {
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "UNIQUE") || strings.Contains(msg, "PRIMARY KEY")
}

// conflictOr maps unique-constraint failures to CONFLICT and passes other errors through.
func conflictOr(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return schema.NewErrorf(schema.ErrCodeConflict, "%s %q already exists", resource, id).WithCause(err)
	}
	return err
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func rawOrEmptyObject(r json.RawMessage) string {
	if len(r) == 0 {
		return "{}"
	}
	return string(r)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
