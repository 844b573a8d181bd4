package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// IdempotencyKey derives a stable key from a trigger name and its input.
// encoding/json sorts map keys, so equal inputs hash equally.
func IdempotencyKey(trigger string, input map[string]any) string {
	h := sha256.New()
	h.Write([]byte(trigger))
	h.Write([]byte{'\n'})
	if b, err := json.Marshal(input); err == nil {
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// entryFrom records a behavior result as a report entry.
func entryFrom(step Step, input map[string]any, res *schema.BehaviorResult, elapsed time.Duration) schema.ReportEntry {
	entry := schema.ReportEntry{
		BehaviorID:   step.ID,
		BehaviorType: step.Config.Type,
		DurationMs:   elapsed.Milliseconds(),
		Input:        input,
		Output:       res.Data,
		Message:      res.Message,
	}
	if res.Success {
		entry.Status = schema.EntryStatusSuccess
		entry.Skipped = res.Skipped()
		return entry
	}
	entry.Status = schema.EntryStatusError
	entry.Error = res.Error
	entry.ErrorCode = res.Code
	if entry.ErrorCode == "" {
		entry.ErrorCode = schema.ErrCodeExecution
	}
	return entry
}

// notStartedEntry records a behavior the run deadline prevented from starting.
func notStartedEntry(step Step, input map[string]any) schema.ReportEntry {
	return schema.ReportEntry{
		BehaviorID:   step.ID,
		BehaviorType: step.Config.Type,
		Status:       schema.EntryStatusError,
		Input:        input,
		Error:        "run deadline exceeded before behavior started",
		ErrorCode:    schema.ErrCodeTimeout,
	}
}

// allSucceeded reports whether every entry has success status.
func allSucceeded(entries []schema.ReportEntry) bool {
	for _, e := range entries {
		if e.Status != schema.EntryStatusSuccess {
			return false
		}
	}
	return true
}
