// Package behaviors holds the behavior catalog: independently authored
// business-rule units the engine composes into tenant workflows.
package behaviors

import (
	"context"
	"log/slog"

	"github.com/voundbrand/vc83-com-sub014/internal/logging"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// Behavior is one unit of business logic, registered under a stable type.
//
// Execute must not perform a write or outbound call except through the
// Effects returned by Env.Effects, so a dry-run invocation cannot reach the
// store. A returned error is converted into a failed result by the engine;
// expected outcomes (not found, capacity exhausted) should be returned as
// schema.Fail results instead.
type Behavior interface {
	Type() string
	Description() string
	Contract() schema.Contract
	Execute(ctx context.Context, inv Invocation) (*schema.BehaviorResult, error)
}

// Invocation is everything a behavior receives for one call.
type Invocation struct {
	RunID    string
	TenantID string
	Trigger  string

	// Config is the behavior's configuration, carrying dryRun when simulated.
	Config map[string]any

	// Context is a snapshot of the execution context; mutating it has no
	// effect on the run.
	Context map[string]any

	// IdempotencyKey is derived from the trigger and its input. It is stable
	// across retries of the same trigger call.
	IdempotencyKey string

	Logger *slog.Logger
}

// DryRun reports whether this invocation must simulate its effects.
func (inv Invocation) DryRun() bool {
	return schema.DryRun(inv.Config)
}

// Log returns the invocation logger, never nil.
func (inv Invocation) Log() *slog.Logger {
	if inv.Logger == nil {
		return logging.Discard()
	}
	return inv.Logger
}

// Info summarizes a registered behavior for listing.
type Info struct {
	Type        string          `json:"type"`
	Description string          `json:"description,omitempty"`
	Contract    schema.Contract `json:"contract"`
}
