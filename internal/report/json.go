package report

import (
	"encoding/json"
	"fmt"

	"github.com/chiru-lang/chiru/internal/verify"
)

// EncodeJSON serializes r using the frozen field names from spec.md §6
// (verdict, summary.{ownership,lifetimes,capabilities,destruction},
// unsafe_assumptions, values). The struct tags on verify.Report are the
// single source of truth for the wire shape; this function only adds the
// self-check that the rendered bytes actually conform to it.
func EncodeJSON(r *verify.Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("chiru: JSON encoding failed: %w", err)
	}
	if err := ValidateSchema(data); err != nil {
		return nil, fmt.Errorf("chiru: rendered report does not conform to its own schema: %w", err)
	}
	return data, nil
}
