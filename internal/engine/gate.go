package engine

import (
	"context"
	"strings"

	"github.com/voundbrand/vc83-com-sub014/internal/expressions"
)

// Gate evaluates conditional predicates before a behavior runs.
type Gate struct {
	cel *expressions.CELEngine
}

// NewGate creates a gate backed by CEL.
func NewGate(cel *expressions.CELEngine) *Gate {
	return &Gate{cel: cel}
}

// Allow evaluates every non-empty condition in order against vars. It stops
// at the first condition that is false and returns the skip reason naming it.
func (g *Gate) Allow(ctx context.Context, conditions []string, vars map[string]any) (bool, string, error) {
	for _, cond := range conditions {
		cond = strings.TrimSpace(cond)
		if cond == "" {
			continue
		}
		ok, err := g.cel.EvaluateBool(ctx, cond, vars)
		if err != nil {
			return false, "", err
		}
		if !ok {
			return false, "condition not met: " + cond, nil
		}
	}
	return true, "", nil
}
