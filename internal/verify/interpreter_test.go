package verify_test

import (
	"testing"

	"github.com/chiru-lang/chiru/internal/lang"
	"github.com/chiru-lang/chiru/internal/verify"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, src string) (*verify.Report, error) {
	t.Helper()
	decls, err := lang.Parse(src)
	require.NoError(t, err, "source must parse")
	it := verify.New()
	if err := it.Run(decls); err != nil {
		return nil, err
	}
	return verify.BuildReport(it), nil
}

// Scenario 1: trivial safe program.
func TestScenarioTrivialSafe(t *testing.T) {
	src := `
phase main
function f {
  region stack s
  let v in s
}
`
	report, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, verify.VerdictSafe, report.Verdict)
	assert.Equal(t, 0, report.ExitCode())
	require.Len(t, report.Values, 1)
	assert.False(t, report.Values[0].Alive, "value must be destroyed on scope exit")
	assert.Empty(t, report.UnsafeAssumptions)
}

// Scenario 2: UniqueMut strictly exclusive with any other capability.
func TestScenarioCapabilityConflict(t *testing.T) {
	src := `
phase main
function f {
  region heap h
  lifetime l in scope f
  let v in h
  capability UniqueMut v for l
  capability SharedRead v for l
}
`
	_, err := run(t, src)
	require.Error(t, err)
	var semErr *verify.SemanticError
	require.ErrorAs(t, err, &semErr)
	assert.Equal(t, "capability-conflict", semErr.Rule)
	assert.Contains(t, semErr.Error(), "UniqueMut")
}

// Scenario 3: drop with a live capability still referencing the value.
func TestScenarioDropWithLiveCapability(t *testing.T) {
	src := `
phase main
function f {
  region heap h
  lifetime l in scope f
  let v in h
  capability SharedRead v for l
  drop v
}
`
	_, err := run(t, src)
	require.Error(t, err)
	var semErr *verify.SemanticError
	require.ErrorAs(t, err, &semErr)
	assert.Equal(t, "drop-with-live-capability", semErr.Rule)
}

// Scenario 4: unsafe assumption downgrades verdict, ownership stays with
// the enclosing function scope (the unsafe-scope ownership quirk).
func TestScenarioUnsafeAssumption(t *testing.T) {
	src := `
phase main
function f {
  unsafe {
    region external e
    let v in e
    assume "v is aligned"
  }
}
`
	report, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, verify.VerdictSafeIfAssumptionsHold, report.Verdict)
	assert.Equal(t, 1, report.ExitCode())
	require.Len(t, report.Values, 1)
	assert.Equal(t, "unsafe", report.Values[0].Origin)
	require.Len(t, report.UnsafeAssumptions, 1)
	assert.Equal(t, "v is aligned", report.UnsafeAssumptions[0].Description)
}

// Scenario 5: assume outside any unsafe scope is rejected.
func TestScenarioAssumeOutsideUnsafe(t *testing.T) {
	src := `
phase main
function f {
  assume "anything"
}
`
	_, err := run(t, src)
	require.Error(t, err)
	var semErr *verify.SemanticError
	require.ErrorAs(t, err, &semErr)
	assert.Equal(t, "unsafe-placement", semErr.Rule)
}

// Scenario 6: a lifetime bound to the first-declared phase remains valid
// through a later phase declaration, since v0 never switches the current
// phase after the first.
func TestScenarioPhaseDeclarationOnlyFirstIsCurrent(t *testing.T) {
	src := `
phase build
phase run
function f {
  lifetime l in scope f
  region heap h
  let v in h
  capability Own v for l
}
`
	report, err := run(t, src)
	require.NoError(t, err)
	assert.Equal(t, verify.VerdictSafe, report.Verdict)

	require.Len(t, report.Phases, 2)
	assert.True(t, report.Phases[0].Current, "first-declared phase stays current")
	assert.False(t, report.Phases[1].Current)
}

func TestUnknownValueReferenceSuggestsClosestName(t *testing.T) {
	src := `
phase main
function f {
  region heap h
  lifetime l in scope f
  let value in h
  capability Own valu for l
}
`
	_, err := run(t, src)
	require.Error(t, err)
	var semErr *verify.SemanticError
	require.ErrorAs(t, err, &semErr)
	assert.Equal(t, "unknown-value", semErr.Rule)
	assert.Contains(t, semErr.Hint, `did you mean "value"`)
}

func TestDropFromEnclosingScopeForbidden(t *testing.T) {
	src := `
phase main
function f {
  region heap h
  let v in h
  unsafe {
    drop v
  }
}
`
	_, err := run(t, src)
	require.Error(t, err)
	var semErr *verify.SemanticError
	require.ErrorAs(t, err, &semErr)
	assert.Equal(t, "ownership-not-current-scope", semErr.Rule)
}

func TestDuplicatePhaseRejected(t *testing.T) {
	_, err := run(t, "phase main\nphase main\n")
	require.Error(t, err)
	var semErr *verify.SemanticError
	require.ErrorAs(t, err, &semErr)
	assert.Equal(t, "duplicate-phase", semErr.Rule)
}

func TestPhaseDeclarationInsideFunctionRejected(t *testing.T) {
	_, err := run(t, "function f {\n  phase main\n}\n")
	require.Error(t, err)
	var semErr *verify.SemanticError
	require.ErrorAs(t, err, &semErr)
	assert.Equal(t, "phase-scope", semErr.Rule)
}

// P7 / P8: report generation is idempotent over identical final state.
func TestReportGenerationIsIdempotent(t *testing.T) {
	src := `
phase main
function f {
  region stack s
  let v in s
}
`
	decls, err := lang.Parse(src)
	require.NoError(t, err)
	it := verify.New()
	require.NoError(t, it.Run(decls))

	first := verify.BuildReport(it)
	second := verify.BuildReport(it)
	assert.True(t, cmp.Equal(first, second), "%s", cmp.Diff(first, second))
}

func TestDoubleDropRejected(t *testing.T) {
	src := `
phase main
function f {
  region heap h
  let v in h
  drop v
  drop v
}
`
	_, err := run(t, src)
	require.Error(t, err)
	var semErr *verify.SemanticError
	require.ErrorAs(t, err, &semErr)
	assert.Equal(t, "lifecycle-double-destruction", semErr.Rule)
}

func TestUnclosedScopeRejected(t *testing.T) {
	decls, err := lang.Parse("phase main\n")
	require.NoError(t, err)
	decls = append(decls, lang.Decl{DKind: lang.DeclEnterFunction, Name: "f"})
	it := verify.New()
	err = it.Run(decls)
	require.Error(t, err)
}
