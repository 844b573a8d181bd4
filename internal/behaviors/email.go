package behaviors

import (
	"context"
	"strings"

	"github.com/voundbrand/vc83-com-sub014/internal/expressions"
	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// TypeSendConfirmationEmail queues the registration confirmation.
const TypeSendConfirmationEmail = "send_confirmation_email"

const defaultEmailSubject = "Your registration is confirmed"

type sendConfirmationEmail struct {
	env *Env
}

// NewSendConfirmationEmail returns the confirmation mailer. Subject and body
// are ${{ }} templates over context and config.
//
// Config:
//   - subject, body: templates (the default body mentions whichever ticket and
//     invoice numbers the context holds)
func NewSendConfirmationEmail(env *Env) Behavior {
	return &sendConfirmationEmail{env: env}
}

func (b *sendConfirmationEmail) Type() string { return TypeSendConfirmationEmail }

func (b *sendConfirmationEmail) Description() string {
	return "Queues a confirmation email to customerData.email"
}

func (b *sendConfirmationEmail) Contract() schema.Contract {
	return schema.Contract{
		Reads: []schema.Slot{
			{Key: "customerData", Type: schema.SlotObject, Required: true},
			{Key: "ticketNumber", Type: schema.SlotString},
			{Key: "invoiceNumber", Type: schema.SlotString},
		},
		Writes: []schema.Slot{
			{Key: "emailSent", Type: schema.SlotBoolean, Required: true},
			{Key: "emailId", Type: schema.SlotString, Required: true},
		},
	}
}

func (b *sendConfirmationEmail) Execute(ctx context.Context, inv Invocation) (*schema.BehaviorResult, error) {
	fx := b.env.Effects(inv)

	to := strings.TrimSpace(stringParam(mapParam(inv.Context, "customerData"), "email", ""))
	if to == "" {
		return schema.Fail(schema.ErrCodeValidation, "customerData.email is missing", nil), nil
	}

	vars := map[string]any{"context": inv.Context, "config": inv.Config}
	subject, err := expressions.Render(stringParam(inv.Config, "subject", defaultEmailSubject), vars)
	if err != nil {
		return schema.FromError(err), nil
	}
	body, err := expressions.Render(stringParam(inv.Config, "body", defaultBody(inv.Context)), vars)
	if err != nil {
		return schema.FromError(err), nil
	}

	msg := &store.OutboundEmail{
		TenantID: inv.TenantID,
		To:       to,
		Subject:  subject,
		Body:     body,
	}
	if err := fx.SendEmail(ctx, msg); err != nil {
		return nil, schema.NewError(schema.ErrCodeExternal, "email could not be queued").WithCause(err)
	}

	return schema.Succeed("Confirmation email queued", map[string]any{
		"emailSent": true,
		"emailId":   msg.ID,
	}), nil
}

func defaultBody(c map[string]any) string {
	var b strings.Builder
	b.WriteString("Thank you for registering.")
	if _, ok := c["ticketNumber"]; ok {
		b.WriteString("\nYour ticket number is ${{context.ticketNumber}}.")
	}
	if _, ok := c["invoiceNumber"]; ok {
		b.WriteString("\nInvoice ${{context.invoiceNumber}} has been sent to your employer.")
	}
	return b.String()
}
