package schema

import (
	"encoding/json"
	"fmt"
)

// ConfigKeyDryRun is the key the dry-run shim sets inside every behavior config.
const ConfigKeyDryRun = "dryRun"

// WorkflowDefinition is a tenant-authored pipeline of behaviors bound to a trigger.
type WorkflowDefinition struct {
	Trigger         string           `json:"trigger"`
	Inputs          []string         `json:"inputs,omitempty"`       // context keys the trigger seeds
	InputSchema     json.RawMessage  `json:"input_schema,omitempty"` // JSON Schema for inputData
	Behaviors       []BehaviorConfig `json:"behaviors"`
	Timeout         string           `json:"timeout,omitempty"`          // per-run deadline
	BehaviorTimeout string           `json:"behavior_timeout,omitempty"` // default per-behavior deadline
}

// BehaviorConfig configures one behavior inside a workflow.
// Priority is descending: higher runs first.
type BehaviorConfig struct {
	ID        string            `json:"id,omitempty"`
	Type      string            `json:"type"`
	Enabled   bool              `json:"enabled"`
	Priority  int               `json:"priority"`
	Config    map[string]any    `json:"config,omitempty"`
	Outputs   map[string]string `json:"outputs,omitempty"`   // context key -> jq expression over result data
	Condition string            `json:"condition,omitempty"` // CEL, ANDed with the behavior's own condition
	Timeout   string            `json:"timeout,omitempty"`
}

// EffectiveID returns the configured ID, or a positional one derived from the
// declaration index when the author left it blank.
func (b BehaviorConfig) EffectiveID(index int) string {
	if b.ID != "" {
		return b.ID
	}
	return fmt.Sprintf("%s_%d", b.Type, index)
}

// DryRun reports whether a behavior config carries the dry-run flag.
func DryRun(config map[string]any) bool {
	v, _ := config[ConfigKeyDryRun].(bool)
	return v
}
