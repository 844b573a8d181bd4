package behaviors

import (
	"context"
	"strings"

	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// TypeFindOrCreateContact resolves the registrant to a CRM contact.
const TypeFindOrCreateContact = "find_or_create_contact"

type findOrCreateContact struct {
	env *Env
}

// NewFindOrCreateContact returns the contact resolver. It is the one built-in
// that checks for an existing record before writing, so re-triggering with the
// same email reuses the contact.
func NewFindOrCreateContact(env *Env) Behavior {
	return &findOrCreateContact{env: env}
}

func (b *findOrCreateContact) Type() string { return TypeFindOrCreateContact }

func (b *findOrCreateContact) Description() string {
	return "Finds the CRM contact for customerData.email or creates one"
}

func (b *findOrCreateContact) Contract() schema.Contract {
	return schema.Contract{
		Reads: []schema.Slot{
			{Key: "customerData", Type: schema.SlotObject, Required: true},
		},
		Writes: []schema.Slot{
			{Key: "contactId", Type: schema.SlotString, Required: true},
			{Key: "contactCreated", Type: schema.SlotBoolean, Required: true},
		},
	}
}

func (b *findOrCreateContact) Execute(ctx context.Context, inv Invocation) (*schema.BehaviorResult, error) {
	fx := b.env.Effects(inv)

	customer := mapParam(inv.Context, "customerData")
	email := strings.TrimSpace(stringParam(customer, "email", ""))
	if email == "" || !strings.Contains(email, "@") {
		return schema.Fail(schema.ErrCodeValidation, "customerData.email is missing or invalid", nil), nil
	}

	existing, err := b.env.Reader.FindContactByEmail(ctx, inv.TenantID, email)
	if err == nil {
		return schema.Succeed("Existing contact found", map[string]any{
			"contactId":      existing.ID,
			"contactCreated": false,
		}), nil
	}
	if !schema.IsNotFound(err) {
		return nil, err
	}

	c := &store.Contact{
		TenantID:  inv.TenantID,
		Email:     email,
		FirstName: stringParam(customer, "firstName", ""),
		LastName:  stringParam(customer, "lastName", ""),
		Phone:     stringParam(customer, "phone", ""),
	}
	if err := fx.CreateContact(ctx, c); err != nil {
		return nil, err
	}
	inv.Log().Info("contact created", "contact_id", c.ID)

	return schema.Succeed("Contact created", map[string]any{
		"contactId":      c.ID,
		"contactCreated": true,
	}), nil
}
