package behaviors

import (
	"context"
	"fmt"

	"github.com/voundbrand/vc83-com-sub014/internal/store"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// TypeCreateTicket issues the attendee's ticket.
const TypeCreateTicket = "create_ticket"

type createTicket struct {
	env *Env
}

// NewCreateTicket returns the ticket behavior. It refuses to run unless an
// upstream capacity check put capacityAvailable=true in the context, and then
// checks the stored event itself: the capacity check may have trusted figures
// from the trigger payload. Both modes take that decision from the same read.
func NewCreateTicket(env *Env) Behavior {
	return &createTicket{env: env}
}

func (b *createTicket) Type() string { return TypeCreateTicket }

func (b *createTicket) Description() string {
	return "Creates a numbered ticket once capacity has been confirmed"
}

func (b *createTicket) Contract() schema.Contract {
	return schema.Contract{
		Reads: []schema.Slot{
			{Key: "productId", Type: schema.SlotString, Required: true},
			{Key: "eventId", Type: schema.SlotString, Required: true},
			{Key: "capacityAvailable", Type: schema.SlotBoolean, Required: true},
			{Key: "contactId", Type: schema.SlotString},
			{Key: "transactionId", Type: schema.SlotString},
		},
		Writes: []schema.Slot{
			{Key: "ticketId", Type: schema.SlotString, Required: true},
			{Key: "ticketNumber", Type: schema.SlotString, Required: true},
		},
	}
}

func (b *createTicket) Execute(ctx context.Context, inv Invocation) (*schema.BehaviorResult, error) {
	fx := b.env.Effects(inv)

	if !boolParam(inv.Context, "capacityAvailable", false) {
		return schema.Fail(schema.ErrCodeConflict, "Capacity not confirmed; ticket not created", nil), nil
	}

	eventID := stringParam(inv.Context, "eventId", "")
	ev, err := b.env.Reader.GetEvent(ctx, inv.TenantID, eventID)
	switch {
	case schema.IsNotFound(err):
		return schema.Fail(schema.ErrCodeNotFound, fmt.Sprintf("Event %s not found", eventID), nil), nil
	case err != nil:
		return nil, err
	case ev.Registrations >= ev.MaxCapacity:
		return schema.Fail(schema.ErrCodeConflict, "Event is at full capacity", map[string]any{
			"availableSlots": 0,
		}), nil
	}

	t := &store.Ticket{
		TenantID:      inv.TenantID,
		EventID:       eventID,
		ProductID:     stringParam(inv.Context, "productId", ""),
		ContactID:     stringParam(inv.Context, "contactId", ""),
		TransactionID: stringParam(inv.Context, "transactionId", ""),
	}
	if err := fx.CreateTicket(ctx, t); err != nil {
		return nil, err
	}
	inv.Log().Info("ticket created", "ticket_id", t.ID, "ticket_number", t.Number)

	return schema.Succeed("Ticket created", map[string]any{
		"ticketId":     t.ID,
		"ticketNumber": t.Number,
	}), nil
}
