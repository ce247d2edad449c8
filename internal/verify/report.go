package verify

import "sort"

// Verdict is the overall result of verification (spec.md §4.5, GLOSSARY).
type Verdict string

const (
	VerdictSafe                  Verdict = "SAFE"
	VerdictSafeIfAssumptionsHold Verdict = "SAFE_IF_ASSUMPTIONS_HOLD"
	VerdictUnsafe                Verdict = "UNSAFE"
)

// DimensionVerdict is always VERIFIED in v0: every rule violation aborts
// interpretation before a report is ever built, so none of the four
// dimensions can reach the report in a failed state. The field exists so a
// future best-effort mode (collecting multiple errors per run) can flip
// individual dimensions without a schema change (spec.md §9).
const DimensionVerified = "VERIFIED"

// Summary mirrors spec.md §6's frozen field set exactly:
// summary.{ownership,lifetimes,capabilities,destruction}.
type Summary struct {
	Ownership    string `json:"ownership"`
	Lifetimes    string `json:"lifetimes"`
	Capabilities string `json:"capabilities"`
	Destruction  string `json:"destruction"`
}

// PhaseReport is one entry in the Phases listing, with a marker for
// whichever phase is current.
type PhaseReport struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Order   int    `json:"order"`
	Current bool   `json:"current"`
}

// AssumptionReport is one entry in the Unsafe Assumptions listing.
type AssumptionReport struct {
	ID             int    `json:"id"`
	Description    string `json:"description"`
	Scope          int    `json:"scope"`
	Phase          int    `json:"phase"`
	AffectedValues []int  `json:"affected_values"`
}

// ValueReport is one entry in the Values listing.
type ValueReport struct {
	ID     int    `json:"id"`
	Region int    `json:"region"`
	Origin string `json:"origin"`
	Alive  bool   `json:"alive"`
}

// Report is the full serializable verdict structure: the frozen fields
// from spec.md §6 (verdict, summary, unsafe_assumptions, values) plus the
// phases listing and a content digest over the canonicalized report
// (internal/report computes it, see its cbor.go; the CLI stores it in Digest).
type Report struct {
	Verdict           Verdict            `json:"verdict"`
	Summary           Summary            `json:"summary"`
	Phases            []PhaseReport      `json:"phases"`
	UnsafeAssumptions []AssumptionReport `json:"unsafe_assumptions"`
	Values            []ValueReport      `json:"values"`
	Digest            string             `json:"digest,omitempty"`
}

// BuildReport folds the final interpreter state into a Report. Pure:
// never modifies it, never fails — every violation aborted interpretation
// already, so by the time BuildReport runs the program is known-accepted
// (spec.md §4.5).
func BuildReport(it *Interpreter) *Report {
	r := &Report{
		Summary: Summary{
			Ownership:    DimensionVerified,
			Lifetimes:    DimensionVerified,
			Capabilities: DimensionVerified,
			Destruction:  DimensionVerified,
		},
		Phases:            []PhaseReport{},
		UnsafeAssumptions: []AssumptionReport{},
		Values:            []ValueReport{},
	}

	for _, p := range it.phases.phases {
		r.Phases = append(r.Phases, PhaseReport{
			ID:      p.ID,
			Name:    p.Name,
			Order:   p.Order,
			Current: it.phases.current != nil && it.phases.current.ID == p.ID,
		})
	}
	sort.Slice(r.Phases, func(i, j int) bool { return r.Phases[i].ID < r.Phases[j].ID })

	for _, a := range it.graph.assumptions {
		r.UnsafeAssumptions = append(r.UnsafeAssumptions, AssumptionReport{
			ID:             a.ID,
			Description:    a.Description,
			Scope:          a.Scope,
			Phase:          a.Phase,
			AffectedValues: append([]int{}, a.AffectedValues...),
		})
	}
	sort.Slice(r.UnsafeAssumptions, func(i, j int) bool {
		return r.UnsafeAssumptions[i].ID < r.UnsafeAssumptions[j].ID
	})

	for _, v := range it.graph.values {
		r.Values = append(r.Values, ValueReport{
			ID:     v.ID,
			Region: v.Region,
			Origin: v.Origin.String(),
			Alive:  v.Alive,
		})
	}
	sort.Slice(r.Values, func(i, j int) bool { return r.Values[i].ID < r.Values[j].ID })

	if len(r.UnsafeAssumptions) > 0 {
		r.Verdict = VerdictSafeIfAssumptionsHold
	} else {
		r.Verdict = VerdictSafe
	}

	return r
}

// ExitCode maps a verdict to the process exit code from spec.md §4.5/§6:
// 0 = SAFE, 1 = SAFE_IF_ASSUMPTIONS_HOLD, 2 = UNSAFE (reserved).
func (r *Report) ExitCode() int {
	switch r.Verdict {
	case VerdictSafe:
		return 0
	case VerdictSafeIfAssumptionsHold:
		return 1
	default:
		return 2
	}
}
