package engine

import (
	"sort"

	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// Step is one enabled behavior in execution order.
type Step struct {
	// Index is the declaration index in the workflow definition.
	Index  int
	ID     string
	Config schema.BehaviorConfig
}

// Sequence filters out disabled behaviors and orders the rest by priority
// descending. Equal priorities keep declaration order.
func Sequence(configs []schema.BehaviorConfig) []Step {
	steps := make([]Step, 0, len(configs))
	for i, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		steps = append(steps, Step{Index: i, ID: cfg.EffectiveID(i), Config: cfg})
	}
	sort.SliceStable(steps, func(a, b int) bool {
		return steps[a].Config.Priority > steps[b].Config.Priority
	})
	return steps
}
