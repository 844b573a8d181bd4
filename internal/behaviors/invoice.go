package behaviors

import (
	"context"
	"time"

	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// TypeGenerateInvoice bills the employer organization.
const TypeGenerateInvoice = "generate_invoice"

type generateInvoice struct {
	env *Env
}

// NewGenerateInvoice returns the invoice behavior. It only runs for employer
// billing; other billing methods skip it.
//
// Config:
//   - dueDays: payment term in days (default 30)
func NewGenerateInvoice(env *Env) Behavior {
	return &generateInvoice{env: env}
}

func (b *generateInvoice) Type() string { return TypeGenerateInvoice }

func (b *generateInvoice) Description() string {
	return "Generates an invoice to the employer organization for employer-billed registrations"
}

func (b *generateInvoice) Contract() schema.Contract {
	return schema.Contract{
		Condition: `has(context.billingMethod) && context.billingMethod == "employer_invoice"`,
		Reads: []schema.Slot{
			{Key: "crmOrganizationId", Type: schema.SlotString, Required: true},
			{Key: "transactionId", Type: schema.SlotString, Required: true},
			{Key: "amount", Type: schema.SlotNumber},
			{Key: "currency", Type: schema.SlotString},
		},
		Writes: []schema.Slot{
			{Key: "invoiceId", Type: schema.SlotString, Required: true},
			{Key: "invoiceNumber", Type: schema.SlotString, Required: true},
			{Key: "dueDate", Type: schema.SlotString, Required: true},
		},
	}
}

func (b *generateInvoice) Execute(ctx context.Context, inv Invocation) (*schema.BehaviorResult, error) {
	fx := b.env.Effects(inv)

	txID := stringParam(inv.Context, "transactionId", "")
	amount, ok := floatParam(inv.Context, "amount", 0)
	currency := stringParam(inv.Context, "currency", "")
	if !ok {
		tx, err := b.env.Reader.GetTransaction(ctx, inv.TenantID, txID)
		if err != nil {
			if schema.IsNotFound(err) {
				return schema.Fail(schema.ErrCodeNotFound, "Transaction "+txID+" not found", nil), nil
			}
			return nil, err
		}
		amount, currency = tx.Amount, tx.Currency
	}
	if currency == "" {
		currency = "EUR"
	}

	dueDays := intParam(inv.Config, "dueDays", 30)
	due := b.env.Now().AddDate(0, 0, dueDays).Truncate(24 * time.Hour)

	invoice := &store.Invoice{
		TenantID:       inv.TenantID,
		OrganizationID: stringParam(inv.Context, "crmOrganizationId", ""),
		TransactionID:  txID,
		Amount:         amount,
		Currency:       currency,
		DueAt:          due,
	}
	if err := fx.CreateInvoice(ctx, invoice); err != nil {
		return nil, err
	}
	inv.Log().Info("invoice generated", "invoice_id", invoice.ID, "invoice_number", invoice.Number)

	return schema.Succeed("Invoice generated", map[string]any{
		"invoiceId":     invoice.ID,
		"invoiceNumber": invoice.Number,
		"dueDate":       due.Format("2006-01-02"),
	}), nil
}
