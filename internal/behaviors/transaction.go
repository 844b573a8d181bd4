package behaviors

import (
	"context"
	"math"

	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// TypeCreateTransaction records the commercial side of a registration.
const TypeCreateTransaction = "create_transaction"

// Payment statuses written by create_transaction.
const (
	PaymentPending        = "pending"
	PaymentInvoicePending = "invoice_pending"
)

type createTransaction struct {
	env *Env
}

// NewCreateTransaction returns the transaction behavior.
//
// Config:
//   - amountExpression: expr rule over the context (e.g. "basePrice * (attendees ?? 1)")
//   - amount: fixed amount when no expression is given; falls back to context.amount
//   - currency: ISO code (default "EUR")
//   - reuseByIdempotencyKey: reuse a transaction created by an earlier call with
//     the same idempotency key (default true)
func NewCreateTransaction(env *Env) Behavior {
	return &createTransaction{env: env}
}

func (b *createTransaction) Type() string { return TypeCreateTransaction }

func (b *createTransaction) Description() string {
	return "Creates the registration transaction, priced by a configurable rule"
}

func (b *createTransaction) Contract() schema.Contract {
	return schema.Contract{
		Reads: []schema.Slot{
			{Key: "eventId", Type: schema.SlotString, Required: true},
			{Key: "contactId", Type: schema.SlotString},
			{Key: "billingMethod", Type: schema.SlotString},
			{Key: "crmOrganizationId", Type: schema.SlotString},
			{Key: "amount", Type: schema.SlotNumber},
		},
		Writes: []schema.Slot{
			{Key: "transactionId", Type: schema.SlotString, Required: true},
			{Key: "amount", Type: schema.SlotNumber, Required: true},
			{Key: "currency", Type: schema.SlotString, Required: true},
			{Key: "paymentStatus", Type: schema.SlotString, Required: true},
			{Key: "transactionReused", Type: schema.SlotBoolean, Required: true},
		},
	}
}

func (b *createTransaction) Execute(ctx context.Context, inv Invocation) (*schema.BehaviorResult, error) {
	fx := b.env.Effects(inv)

	if inv.IdempotencyKey != "" && boolParam(inv.Config, "reuseByIdempotencyKey", true) {
		existing, err := b.env.Reader.FindTransactionByIdempotencyKey(ctx, inv.TenantID, inv.IdempotencyKey)
		switch {
		case err == nil:
			inv.Log().Info("transaction reused", "transaction_id", existing.ID)
			return schema.Succeed("Existing transaction reused", transactionData(existing, true)), nil
		case !schema.IsNotFound(err):
			return nil, err
		}
	}

	amount, res := b.amount(ctx, inv)
	if res != nil {
		return res, nil
	}

	billing := stringParam(inv.Context, "billingMethod", BillingCustomerPayment)
	status := PaymentPending
	if billing == BillingEmployerInvoice {
		status = PaymentInvoicePending
	}

	tx := &store.Transaction{
		TenantID:       inv.TenantID,
		EventID:        stringParam(inv.Context, "eventId", ""),
		ContactID:      stringParam(inv.Context, "contactId", ""),
		OrganizationID: stringParam(inv.Context, "crmOrganizationId", ""),
		Amount:         amount,
		Currency:       stringParam(inv.Config, "currency", "EUR"),
		BillingMethod:  billing,
		PaymentStatus:  status,
		IdempotencyKey: inv.IdempotencyKey,
	}
	if err := fx.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}

	return schema.Succeed("Transaction created", transactionData(tx, false)), nil
}

// amount resolves the price. A non-nil result reports a configuration problem.
func (b *createTransaction) amount(ctx context.Context, inv Invocation) (float64, *schema.BehaviorResult) {
	if rule := stringParam(inv.Config, "amountExpression", ""); rule != "" {
		v, err := b.env.Expr.EvaluateNumber(ctx, rule, inv.Context)
		if err != nil {
			return 0, schema.FromError(err)
		}
		return roundCents(v), validAmount(v)
	}
	if v, ok := floatParam(inv.Config, "amount", 0); ok {
		return roundCents(v), validAmount(v)
	}
	if v, ok := floatParam(inv.Context, "amount", 0); ok {
		return roundCents(v), validAmount(v)
	}
	return 0, schema.Fail(schema.ErrCodeValidation, "no amount configured: set amountExpression or amount", nil)
}

func validAmount(v float64) *schema.BehaviorResult {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return schema.Fail(schema.ErrCodeValidation, "amount must be a non-negative number", map[string]any{"amount": v})
	}
	return nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func transactionData(tx *store.Transaction, reused bool) map[string]any {
	return map[string]any{
		"transactionId":     tx.ID,
		"amount":            tx.Amount,
		"currency":          tx.Currency,
		"paymentStatus":     tx.PaymentStatus,
		"transactionReused": reused,
	}
}
