package validation

import (
	"fmt"
	"time"

	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// validateSemantic checks what the structural schema cannot express: behavior
// types registered, unique ids, compilable conditions and output projections,
// sane deadlines and the reserved dry-run key.
func (wv *WorkflowValidator) validateSemantic(def *schema.WorkflowDefinition) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	runTimeout := wv.checkDuration("timeout", def.Timeout, result)
	defaultBehaviorTimeout := wv.checkDuration("behavior_timeout", def.BehaviorTimeout, result)
	if runTimeout > 0 && defaultBehaviorTimeout > runTimeout {
		result.AddWarning("behavior_timeout", schema.ErrCodeValidation,
			fmt.Sprintf("behavior timeout (%s) exceeds run timeout (%s); the run deadline fires first", def.BehaviorTimeout, def.Timeout))
	}

	if len(def.InputSchema) > 0 {
		if _, err := wv.jsonSchema.Compile(def.InputSchema); err != nil {
			result.AddError("input_schema", schema.ErrCodeValidation, schema.MessageOf(err))
		}
	}

	seen := make(map[string]int, len(def.Behaviors))
	enabled := 0
	for i := range def.Behaviors {
		b := &def.Behaviors[i]
		path := fmt.Sprintf("behaviors[%d]", i)
		id := b.EffectiveID(i)

		if prev, dup := seen[id]; dup {
			result.AddError(path+".id", schema.ErrCodeValidation,
				fmt.Sprintf("duplicate behavior id %q (also behaviors[%d])", id, prev))
		} else {
			seen[id] = i
		}
		if b.Enabled {
			enabled++
		}

		if wv.behaviors != nil {
			contract, ok := wv.behaviors.Contract(b.Type)
			if !ok {
				result.AddError(path+".type", schema.ErrCodeBehaviorUnavailable,
					fmt.Sprintf("behavior type %q not registered", b.Type))
			} else if contract.Condition != "" {
				if err := wv.cel.Compile(contract.Condition); err != nil {
					result.AddError(path+".type", schema.ErrCodeValidation,
						fmt.Sprintf("built-in condition of %q does not compile: %s", b.Type, schema.MessageOf(err)))
				}
			}
		}

		if b.Condition != "" {
			if err := wv.cel.Compile(b.Condition); err != nil {
				result.AddError(path+".condition", schema.ErrCodeValidation, schema.MessageOf(err))
			}
		}

		for key, program := range b.Outputs {
			if err := wv.jq.Compile(program); err != nil {
				result.AddError(fmt.Sprintf("%s.outputs.%s", path, key), schema.ErrCodeValidation, schema.MessageOf(err))
			}
		}

		if _, reserved := b.Config[schema.ConfigKeyDryRun]; reserved {
			result.AddError(path+".config."+schema.ConfigKeyDryRun, schema.ErrCodeValidation,
				"dryRun is set by the engine and cannot be configured")
		}

		behaviorTimeout := wv.checkDuration(path+".timeout", b.Timeout, result)
		if runTimeout > 0 && behaviorTimeout > runTimeout {
			result.AddWarning(path+".timeout", schema.ErrCodeValidation,
				fmt.Sprintf("behavior timeout (%s) exceeds run timeout (%s)", b.Timeout, def.Timeout))
		}
	}

	if enabled == 0 {
		result.AddWarning("behaviors", schema.ErrCodeValidation, "no behavior is enabled; runs will do nothing")
	}

	return result
}

// checkDuration parses an optional duration, recording an error for
// non-positive values. It returns 0 when unset or invalid.
func (wv *WorkflowValidator) checkDuration(path, value string, result *schema.ValidationResult) time.Duration {
	if value == "" {
		return 0
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		result.AddError(path, schema.ErrCodeValidation, fmt.Sprintf("invalid duration %q", value))
		return 0
	}
	if d <= 0 {
		result.AddError(path, schema.ErrCodeValidation, fmt.Sprintf("duration %q must be positive", value))
		return 0
	}
	return d
}

