package behaviors

import (
	"context"
	"strings"

	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// TypeDetectEmployerBilling decides who pays for a registration.
const TypeDetectEmployerBilling = "detect_employer_billing"

// Billing methods written to the context.
const (
	BillingEmployerInvoice = "employer_invoice"
	BillingCustomerPayment = "customer_payment"
)

type detectEmployerBilling struct {
	env *Env
}

// NewDetectEmployerBilling returns the billing detector.
//
// Config:
//   - billingField: form field holding the payment choice (default "billing_method")
//   - employerField: form field holding the employer name (default "employer_name")
//   - employerValues: choices meaning the employer pays (default employer, employer_invoice, invoice)
func NewDetectEmployerBilling(env *Env) Behavior {
	return &detectEmployerBilling{env: env}
}

func (b *detectEmployerBilling) Type() string { return TypeDetectEmployerBilling }

func (b *detectEmployerBilling) Description() string {
	return "Detects employer-paid registrations and resolves the employer's CRM organization"
}

func (b *detectEmployerBilling) Contract() schema.Contract {
	return schema.Contract{
		Reads: []schema.Slot{
			{Key: "formResponses", Type: schema.SlotObject},
			{Key: "customerData", Type: schema.SlotObject},
		},
		Writes: []schema.Slot{
			{Key: "billingMethod", Type: schema.SlotString, Required: true},
			{Key: "employerName", Type: schema.SlotString},
			{Key: "crmOrganizationId", Type: schema.SlotString},
		},
	}
}

func (b *detectEmployerBilling) Execute(ctx context.Context, inv Invocation) (*schema.BehaviorResult, error) {
	form := mapParam(inv.Context, "formResponses")
	customer := mapParam(inv.Context, "customerData")

	choice, _ := lookupFold(form, stringParam(inv.Config, "billingField", "billing_method"))
	choiceStr, _ := choice.(string)
	if !b.isEmployerChoice(inv.Config, choiceStr) {
		return schema.Succeed("Customer pays directly", map[string]any{
			"billingMethod": BillingCustomerPayment,
		}), nil
	}

	employer := ""
	if v, ok := lookupFold(form, stringParam(inv.Config, "employerField", "employer_name")); ok {
		employer, _ = v.(string)
	}
	if employer == "" {
		employer = stringParam(customer, "company", "")
	}
	employer = strings.TrimSpace(employer)
	if employer == "" {
		return schema.Fail(schema.ErrCodeValidation, "Employer billing selected but no employer name given", nil), nil
	}

	data := map[string]any{
		"billingMethod": BillingEmployerInvoice,
		"employerName":  employer,
	}
	org, err := b.env.Reader.FindOrganizationByName(ctx, inv.TenantID, employer)
	switch {
	case err == nil:
		data["crmOrganizationId"] = org.ID
	case schema.IsNotFound(err):
		inv.Log().Info("employer has no CRM organization", "employer", employer)
	default:
		return nil, err
	}

	return schema.Succeed("Employer billing detected", data), nil
}

func (b *detectEmployerBilling) isEmployerChoice(config map[string]any, choice string) bool {
	if choice == "" {
		return false
	}
	values := []string{"employer", BillingEmployerInvoice, "invoice"}
	if raw, ok := config["employerValues"].([]any); ok {
		values = values[:0]
		for _, v := range raw {
			if s, ok := v.(string); ok {
				values = append(values, s)
			}
		}
	}
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(choice), v) {
			return true
		}
	}
	return false
}
