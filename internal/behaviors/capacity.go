package behaviors

import (
	"context"
	"fmt"

	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// TypeCheckEventCapacity is the capacity gate for event registrations.
const TypeCheckEventCapacity = "check_event_capacity"

type checkEventCapacity struct {
	env *Env
}

// NewCheckEventCapacity returns the capacity check. It uses maxCapacity and
// currentRegistrations from the context when both are present and reads the
// event otherwise.
func NewCheckEventCapacity(env *Env) Behavior {
	return &checkEventCapacity{env: env}
}

func (b *checkEventCapacity) Type() string { return TypeCheckEventCapacity }

func (b *checkEventCapacity) Description() string {
	return "Checks that the event has room for the requested number of attendees"
}

func (b *checkEventCapacity) Contract() schema.Contract {
	return schema.Contract{
		Reads: []schema.Slot{
			{Key: "eventId", Type: schema.SlotString, Required: true},
			{Key: "maxCapacity", Type: schema.SlotInteger},
			{Key: "currentRegistrations", Type: schema.SlotInteger},
			{Key: "attendees", Type: schema.SlotInteger},
		},
		Writes: []schema.Slot{
			{Key: "capacityAvailable", Type: schema.SlotBoolean, Required: true},
			{Key: "availableSlots", Type: schema.SlotInteger, Required: true},
			{Key: "maxCapacity", Type: schema.SlotInteger, Required: true},
			{Key: "currentRegistrations", Type: schema.SlotInteger, Required: true},
		},
	}
}

func (b *checkEventCapacity) Execute(ctx context.Context, inv Invocation) (*schema.BehaviorResult, error) {
	eventID := stringParam(inv.Context, "eventId", "")

	maxCap, haveMax := inv.Context["maxCapacity"]
	current, haveCur := inv.Context["currentRegistrations"]
	capacity, registrations := intParam(inv.Context, "maxCapacity", 0), intParam(inv.Context, "currentRegistrations", 0)
	if !haveMax || !haveCur || maxCap == nil || current == nil {
		ev, err := b.env.Reader.GetEvent(ctx, inv.TenantID, eventID)
		if err != nil {
			if schema.IsNotFound(err) {
				return schema.Fail(schema.ErrCodeNotFound, fmt.Sprintf("Event %s not found", eventID), nil), nil
			}
			return nil, err
		}
		capacity, registrations = ev.MaxCapacity, ev.Registrations
	}

	requested := intParam(inv.Context, "attendees", intParam(inv.Config, "requestedSlots", 1))
	if requested < 1 {
		requested = 1
	}

	available := capacity - registrations
	if available < 0 {
		available = 0
	}

	inv.Log().Debug("capacity checked",
		"event_id", eventID, "max_capacity", capacity, "registrations", registrations, "requested", requested)

	switch {
	case available == 0:
		return schema.Fail(schema.ErrCodeConflict, "Event is at full capacity", map[string]any{
			"availableSlots": 0,
		}), nil
	case available < requested:
		return schema.Fail(schema.ErrCodeConflict,
			fmt.Sprintf("Only %d slots left, %d requested", available, requested), map[string]any{
				"availableSlots": available,
			}), nil
	}

	return schema.Succeed("Capacity available", map[string]any{
		"capacityAvailable":    true,
		"availableSlots":       available,
		"maxCapacity":          capacity,
		"currentRegistrations": registrations,
	}), nil
}
