package validate

import (
	"fmt"
	"strings"
)

// Invariant rule names, reported in the order the checks run.
const (
	RuleClipCount     = "clip_count"
	RuleIndexSequence = "index_sequence"
	RuleTiming        = "timing"
	RuleDuration      = "duration"
	RuleModeFields    = "mode_fields"
)

// MalformedOutputError means the raw model output could not be parsed as
// JSON at all.
type MalformedOutputError struct {
	Offset int64
	Reason string
}

func (e *MalformedOutputError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("model did not return valid JSON at byte %d: %s", e.Offset, e.Reason)
	}
	return fmt.Sprintf("model did not return valid JSON: %s", e.Reason)
}

// FieldViolation is one schema mismatch, addressed by instance path.
type FieldViolation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// SchemaViolationError means the document parsed but does not match the plan
// schema. Violations are sorted by field path.
type SchemaViolationError struct {
	Violations []FieldViolation
}

func (e *SchemaViolationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Path, v.Message))
	}
	return "plan schema validation failed:\n - " + strings.Join(parts, "\n - ")
}

// InvariantViolationError means the plan is structurally sound but breaks a
// semantic rule. ClipIndex is 1-based; 0 marks a plan-level violation.
type InvariantViolationError struct {
	Rule      string
	ClipIndex int
	Message   string
}

func (e *InvariantViolationError) Error() string {
	if e.ClipIndex > 0 {
		return fmt.Sprintf("plan invariant %s violated at clip %d: %s", e.Rule, e.ClipIndex, e.Message)
	}
	return fmt.Sprintf("plan invariant %s violated: %s", e.Rule, e.Message)
}
