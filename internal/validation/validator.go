package validation

import "github.com/voundbrand/vc83-com-sub014/pkg/schema"

// Validator checks workflow definitions before they are saved or run, and
// data against JSON Schemas (trigger input, behavior write contracts).
type Validator interface {
	ValidateDefinition(def *schema.WorkflowDefinition) error
	ValidateInput(input map[string]any, inputSchema []byte) error
}

// BehaviorLookup resolves behavior types to their contracts.
type BehaviorLookup interface {
	Contract(behaviorType string) (schema.Contract, bool)
}
