package verify

import (
	"fmt"
	"strings"
)

// SemanticError is a structured rejection of the program under
// verification. It always names the violated rule and, where one exists,
// a remediation hint — mirroring runtime/planner.PlanError's
// Message/Context/Suggestion/Example shape, adapted to the rule-tagged
// vocabulary of spec.md §7.
type SemanticError struct {
	Rule    string // e.g. "capability-conflict", "phase-violation", "unsafe-placement"
	Message string
	Hint    string // remediation, e.g. "end the lifetime, or switch to SharedRead"
}

func (e *SemanticError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}
	return b.String()
}

func semErr(rule, hint, format string, args ...interface{}) *SemanticError {
	return &SemanticError{
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
		Hint:    hint,
	}
}

var errEmptyScopeStack = &SemanticError{
	Rule:    "scope-stack",
	Message: "cannot exit: no scope is currently open",
}
