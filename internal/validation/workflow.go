package validation

import (
	"github.com/voundbrand/vc83-com-sub014/internal/expressions"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// WorkflowValidator runs the definition pipeline:
// 1. Structural (JSON Schema)
// 2. Semantic (behavior types, ids, expressions, deadlines)
// Producer analysis over contracts is layered on top by engine.Preflight.
type WorkflowValidator struct {
	jsonSchema *JSONSchemaValidator
	behaviors  BehaviorLookup
	cel        *expressions.CELEngine
	jq         *expressions.GoJQEngine
}

// NewWorkflowValidator creates a WorkflowValidator.
// lookup may be nil to skip behavior existence checks.
func NewWorkflowValidator(lookup BehaviorLookup) (*WorkflowValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	cel, err := expressions.NewCELEngine()
	if err != nil {
		return nil, err
	}
	return &WorkflowValidator{
		jsonSchema: jsv,
		behaviors:  lookup,
		cel:        cel,
		jq:         expressions.NewGoJQEngine(),
	}, nil
}

// Validate runs the pipeline and returns an aggregated result.
// Structural errors short-circuit the semantic stage.
func (wv *WorkflowValidator) Validate(def *schema.WorkflowDefinition) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if def == nil {
		result.AddError("/", schema.ErrCodeValidation, "workflow definition is nil")
		return result
	}

	if err := wv.jsonSchema.ValidateDefinition(def); err != nil {
		for _, v := range Violations(err) {
			result.AddError("/", schema.ErrCodeValidation, v)
		}
		return result
	}

	result.Merge(wv.validateSemantic(def))
	return result
}

// ValidateDefinition satisfies the Validator interface.
func (wv *WorkflowValidator) ValidateDefinition(def *schema.WorkflowDefinition) error {
	return wv.Validate(def).ToError()
}

// ValidateInput delegates to the underlying JSONSchemaValidator.
func (wv *WorkflowValidator) ValidateInput(input map[string]any, inputSchema []byte) error {
	return wv.jsonSchema.ValidateInput(input, inputSchema)
}

// Schemas exposes the shared schema cache for contract checks.
func (wv *WorkflowValidator) Schemas() *JSONSchemaValidator {
	return wv.jsonSchema
}

var (
	_ Validator = (*WorkflowValidator)(nil)
	_ Validator = (*JSONSchemaValidator)(nil)
)
