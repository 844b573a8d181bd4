package schema

import (
	"fmt"
	"strings"
)

// ValidationSeverity says whether an issue blocks saving and running a
// workflow or is only reported.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue is a single definition problem located by a path such as
// "behaviors[2].condition".
type ValidationIssue struct {
	Path     string             `json:"path"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

func (i ValidationIssue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationResult collects issues from structural validation and preflight.
// Warnings never make a workflow invalid.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) AddError(path, code, message string) {
	r.Errors = append(r.Errors, ValidationIssue{Path: path, Code: code, Message: message, Severity: SeverityError})
}

func (r *ValidationResult) AddWarning(path, code, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{Path: path, Code: code, Message: message, Severity: SeverityWarning})
}

// Merge appends other's issues after r's own, keeping their order.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// HasCode reports whether any error or warning carries code.
func (r *ValidationResult) HasCode(code string) bool {
	for _, set := range [][]ValidationIssue{r.Errors, r.Warnings} {
		for _, issue := range set {
			if issue.Code == code {
				return true
			}
		}
	}
	return false
}

// WarningMessages renders the warnings as "path: message" lines.
func (r *ValidationResult) WarningMessages() []string {
	out := make([]string, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		out = append(out, w.String())
	}
	return out
}

// ToError returns nil for a valid result and a VALIDATION_ERROR otherwise.
// The message names the first error, or all of them when there are a few.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	var msg string
	switch n := len(r.Errors); {
	case n == 1:
		msg = r.Errors[0].String()
	case n <= 3:
		parts := make([]string, n)
		for i, e := range r.Errors {
			parts[i] = e.String()
		}
		msg = "workflow invalid: " + strings.Join(parts, "; ")
	default:
		msg = fmt.Sprintf("workflow invalid with %d errors; first %s", n, r.Errors[0].String())
	}

	return NewError(ErrCodeValidation, msg).
		WithDetails(map[string]any{
			"errors":   r.Errors,
			"warnings": r.Warnings,
		})
}
