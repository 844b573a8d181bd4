package engine

import (
	"fmt"

	"github.com/voundbrand/vc83-com-sub014/internal/validation"
	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// ErrCodeMissingProducer marks a required read no earlier behavior writes.
const ErrCodeMissingProducer = "MISSING_PRODUCER"

// Preflight walks the sequenced behaviors and reports every required read
// that neither the declared trigger inputs nor an earlier behavior produce.
//
// A workflow that declares its inputs gets errors for missing producers; one
// that doesn't gets warnings, since the trigger may seed any key. Writes of
// conditional behaviors count as produced even though a skip would omit them.
func Preflight(def *schema.WorkflowDefinition, lookup validation.BehaviorLookup) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if def == nil || lookup == nil {
		return result
	}

	produced := make(map[string]string, len(def.Inputs))
	for _, k := range def.Inputs {
		produced[k] = "trigger input"
	}
	strict := len(def.Inputs) > 0

	for _, step := range Sequence(def.Behaviors) {
		contract, ok := lookup.Contract(step.Config.Type)
		if !ok {
			continue
		}
		path := fmt.Sprintf("behaviors[%d]", step.Index)

		for _, slot := range contract.RequiredReads() {
			if _, ok := produced[slot.Key]; ok {
				continue
			}
			msg := fmt.Sprintf("behavior %q requires context key %q but no earlier behavior or trigger input produces it",
				step.ID, slot.Key)
			if strict {
				result.AddError(path, ErrCodeMissingProducer, msg)
			} else {
				result.AddWarning(path, ErrCodeMissingProducer, msg)
			}
		}

		for _, slot := range contract.Writes {
			if _, ok := produced[slot.Key]; !ok {
				produced[slot.Key] = step.ID
			}
		}
		for key := range step.Config.Outputs {
			if _, ok := produced[key]; !ok {
				produced[key] = step.ID
			}
		}
	}
	return result
}
