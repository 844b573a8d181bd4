package schema

import (
	"sort"
	"time"
)

// Well-known result data keys.
const (
	DataKeySkipped = "skipped"
	DataKeyReason  = "reason"
)

// BehaviorResult is the only channel through which a behavior reports back.
// Data of a successful result is merged into the execution context.
type BehaviorResult struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Succeed builds a successful result.
func Succeed(message string, data map[string]any) *BehaviorResult {
	return &BehaviorResult{Success: true, Message: message, Data: data}
}

// Fail builds an unsuccessful result. Data may carry diagnostic values
// (e.g. remaining capacity) but is never merged into the context.
func Fail(code, message string, data map[string]any) *BehaviorResult {
	return &BehaviorResult{Success: false, Error: message, Code: code, Data: data}
}

// Skip builds the result of a failed conditional gate. Skips are successes.
func Skip(reason string) *BehaviorResult {
	return &BehaviorResult{
		Success: true,
		Message: "skipped",
		Data: map[string]any{
			DataKeySkipped: true,
			DataKeyReason:  reason,
		},
	}
}

// FromError converts an error escaping a behavior into a failed result.
func FromError(err error) *BehaviorResult {
	return Fail(CodeOf(err, ErrCodeExecution), MessageOf(err), nil)
}

// Skipped reports whether the result stems from a failed gate.
func (r *BehaviorResult) Skipped() bool {
	if r == nil || r.Data == nil {
		return false
	}
	v, _ := r.Data[DataKeySkipped].(bool)
	return v
}

// EntryStatus is the status of a Run Report entry.
type EntryStatus string

const (
	EntryStatusSuccess EntryStatus = "success"
	EntryStatusError   EntryStatus = "error"
)

// ReportEntry records the outcome of one executed behavior.
type ReportEntry struct {
	BehaviorID   string         `json:"behaviorId"`
	BehaviorType string         `json:"behaviorType"`
	Status       EntryStatus    `json:"status"`
	Skipped      bool           `json:"skipped,omitempty"`
	DurationMs   int64          `json:"durationMs"`
	Input        map[string]any `json:"input"`
	Output       map[string]any `json:"output,omitempty"`
	Message      string         `json:"message,omitempty"`
	Error        string         `json:"error,omitempty"`
	ErrorCode    string         `json:"errorCode,omitempty"`
}

// RunReport is the immutable outcome of one workflow run.
type RunReport struct {
	RunID       string         `json:"runId"`
	TenantID    string         `json:"tenantId"`
	WorkflowID  string         `json:"workflowId,omitempty"`
	Trigger     string         `json:"trigger,omitempty"`
	DryRun      bool           `json:"dryRun"`
	Success     bool           `json:"success"`
	TimedOut    bool           `json:"timedOut,omitempty"`
	Results     []ReportEntry  `json:"results"`
	FinalOutput map[string]any `json:"finalOutput"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt time.Time      `json:"completedAt"`
}

// Failed returns the entries with error status, in execution order.
func (r *RunReport) Failed() []ReportEntry {
	var out []ReportEntry
	for _, e := range r.Results {
		if e.Status == EntryStatusError {
			out = append(out, e)
		}
	}
	return out
}

// OutputKeys returns the sorted key set of FinalOutput.
func (r *RunReport) OutputKeys() []string {
	keys := make([]string, 0, len(r.FinalOutput))
	for k := range r.FinalOutput {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
