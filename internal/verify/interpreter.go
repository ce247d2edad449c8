// Package verify implements the constraint interpreter: the single pass
// over a parsed chiru program that incrementally constructs a typed
// constraint graph (scopes, regions, values, lifetimes, capabilities,
// unsafe assumptions) and reports a final verdict. This is "the core"
// described in spec.md §1 — everything else in this module is a narrow
// collaborator around it.
package verify

import (
	"sort"

	"github.com/chiru-lang/chiru/internal/invariant"
	"github.com/chiru-lang/chiru/internal/lang"
)

// Interpreter co-evolves the scope tree, phase registry, and constraint
// graph while walking a parsed program. Each operation is an atomic
// transaction: either all mutations succeed and invariants hold, or the
// program is rejected and the interpreter stops (no further declarations
// are processed, so no partial mutation from a later operation can ever
// surface).
type Interpreter struct {
	scopes *scopeTree
	phases *phaseRegistry
	graph  *graph
	bind   *bindingFrame
}

// New constructs a fresh interpreter with its module scope already
// entered, exactly as spec.md §4.1 requires ("the initial scope entered
// before interpretation begins is a Module scope"). A fresh instance must
// be constructed per run (spec.md §5): no state is shared across runs.
func New() *Interpreter {
	it := &Interpreter{
		scopes: newScopeTree(),
		phases: newPhaseRegistry(),
		graph:  newGraph(),
		bind:   newBindingFrame(),
	}
	it.scopes.enter(ScopeModule)
	return it
}

// Run interprets decls in source order, applying §4.3's operations. It
// stops at the first violation, as spec.md §7 requires; any scopes still
// open are not auto-closed, since the program was already rejected. The
// Module scope New entered is never exited by any grammar form (spec.md
// §4.1), so it is expected to still be the sole entry on the stack once a
// well-formed program ends; only additional, unclosed scopes are an error.
func (it *Interpreter) Run(decls []lang.Decl) error {
	for _, d := range decls {
		if err := it.apply(d); err != nil {
			return err
		}
	}
	if len(it.scopes.stack) > 1 {
		top := it.scopes.current()
		return semErr("unclosed-scope", "close every function/unsafe block before end of input",
			"scope %d (%s) was never closed", top.ID, top.Kind)
	}
	return nil
}

func (it *Interpreter) apply(d lang.Decl) error {
	switch d.DKind {
	case lang.DeclPhase:
		return it.declarePhase(d.Name)
	case lang.DeclEnterFunction:
		it.scopes.enter(ScopeFunction)
		return nil
	case lang.DeclEnterUnsafe:
		it.scopes.enter(ScopeUnsafe)
		return nil
	case lang.DeclExitBlock:
		return it.exitCurrentScope()
	case lang.DeclRegion:
		return it.declareRegion(d.RegionKind, d.Name)
	case lang.DeclLifetime:
		return it.createLifetime(d.Name)
	case lang.DeclLet:
		return it.allocateValue(d.Name, d.RegionName)
	case lang.DeclCapability:
		return it.createCapability(d.CapKind, d.ValueName, d.LifeName)
	case lang.DeclDrop:
		return it.dropValue(d.ValueName)
	case lang.DeclAssume:
		return it.addUnsafeAssumption(d.Text)
	default:
		invariant.Invariant(false, "unhandled declaration kind %v", d.DKind)
		return nil
	}
}

// declarePhase — declare_phase(name), spec.md §4.3. Allowed only at module
// scope; rejects duplicate names; the first declared phase becomes
// current and stays current (spec.md §9's open question, decided).
func (it *Interpreter) declarePhase(name string) error {
	cur := it.scopes.current()
	if cur.Kind != ScopeModule {
		return semErr("phase-scope",
			"move the phase declaration to module scope, outside any function/unsafe block",
			"phase %q declared outside module scope", name)
	}
	_, err := it.phases.declare(name)
	return err
}

// declareRegion — declare_region(kind, name_binding), spec.md §4.3.
func (it *Interpreter) declareRegion(kindTok, name string) error {
	kind := parseRegionKind(kindTok)
	r := it.graph.addRegion(kind, it.scopes.current().ID)
	it.bind.bindRegion(name, r.ID)
	return nil
}

func parseRegionKind(s string) RegionKind {
	switch s {
	case "stack":
		return RegionStack
	case "heap":
		return RegionHeap
	case "external":
		return RegionExternal
	case "static":
		return RegionStatic
	default:
		invariant.Invariant(false, "unreachable: parser already validated region kind %q", s)
		return RegionStack
	}
}

// createLifetime — create_lifetime(name_binding), spec.md §4.3. Requires a
// current phase to exist.
func (it *Interpreter) createLifetime(name string) error {
	if !it.phases.hasCurrent() {
		return semErr("no-current-phase",
			`declare at least one "phase" before creating a lifetime`,
			"cannot create lifetime %q: no phase has been declared yet", name)
	}
	lt := it.graph.addLifetime(it.scopes.current(), it.phases.current)
	it.bind.bindLifetime(name, lt.ID)
	return nil
}

// allocateValue — allocate_value(region_name), spec.md §4.3. Origin is
// Unsafe iff an Unsafe scope is on the stack; ownership goes to the
// effective (non-Unsafe) owner, never the Unsafe scope itself.
func (it *Interpreter) allocateValue(name, regionName string) error {
	regionID, ok := it.bind.resolveRegion(regionName)
	if !ok {
		return semErr("unknown-region", suggestHint(regionName, it.bind.regions, "region"),
			"unknown region %q", regionName)
	}
	region := it.graph.regions[regionID]
	origin := OriginSafe
	if it.scopes.inUnsafe() {
		origin = OriginUnsafe
	}
	v := it.graph.addValue(region, origin, it.scopes.effectiveOwner())
	it.bind.bindValue(name, v.ID)
	return nil
}

// createCapability — create_capability(kind, value_name, lifetime_name),
// spec.md §4.3.
func (it *Interpreter) createCapability(kindTok, valueName, lifeName string) error {
	valueID, ok := it.bind.resolveValue(valueName)
	if !ok {
		return semErr("unknown-value", suggestHint(valueName, it.bind.values, "value"),
			"unknown value %q", valueName)
	}
	lifeID, ok := it.bind.resolveLifetime(lifeName)
	if !ok {
		return semErr("unknown-lifetime", suggestHint(lifeName, it.bind.lifetimes, "lifetime"),
			"unknown lifetime %q", lifeName)
	}

	value := it.graph.values[valueID]
	lt := it.graph.lifetimes[lifeID]
	invariant.NotNil(it.phases.current, "current phase")

	kind := parseCapabilityKind(kindTok)
	_, err := it.graph.addCapability(kind, value, lt, it.scopes.current(), it.phases.current)
	return err
}

func parseCapabilityKind(s string) CapabilityKind {
	switch s {
	case "Own":
		return CapOwn
	case "SharedRead":
		return CapSharedRead
	case "UniqueMut":
		return CapUniqueMut
	case "ThreadSend":
		return CapThreadSend
	case "ThreadShare":
		return CapThreadShare
	default:
		invariant.Invariant(false, "unreachable: parser already validated capability kind %q", s)
		return CapSharedRead
	}
}

// dropValue — drop_value(value_name), spec.md §4.3. Ownership must be the
// *current* scope, not merely an enclosing one (spec.md §9's open
// question, decided: v0 forbids dropping from an enclosing scope).
func (it *Interpreter) dropValue(valueName string) error {
	valueID, ok := it.bind.resolveValue(valueName)
	if !ok {
		return semErr("unknown-value", suggestHint(valueName, it.bind.values, "value"),
			"unknown value %q", valueName)
	}
	value := it.graph.values[valueID]
	if !value.Alive {
		return semErr("lifecycle-double-destruction", "",
			"value %q is already destroyed", valueName)
	}
	owner, exists := it.graph.ownership[valueID]
	if !exists || owner != it.scopes.current().ID {
		return semErr("ownership-not-current-scope",
			"drop the value from the scope that owns it, or let the owning scope exit naturally",
			"value %q is not owned by the current scope", valueName)
	}
	return it.graph.dropValue(value)
}

// addUnsafeAssumption — add_unsafe_assumption(description, affected_values),
// spec.md §4.3. Legal only inside an Unsafe scope (I8); affected_values is
// a witness list of every value currently visible in the execution frame,
// i.e. alive and owned by a scope on the active stack.
func (it *Interpreter) addUnsafeAssumption(text string) error {
	if !it.scopes.inUnsafe() {
		return semErr("unsafe-placement",
			`wrap this "assume" in an "unsafe { }" block`,
			"assume used outside any unsafe scope")
	}
	if !it.phases.hasCurrent() {
		return semErr("no-current-phase",
			`declare at least one "phase" before recording an assumption`,
			"cannot record assumption: no phase has been declared yet")
	}
	it.graph.addAssumption(text, it.scopes.current(), it.phases.current, it.visibleValueIDs())
	return nil
}

func (it *Interpreter) visibleValueIDs() []int {
	onStack := make(map[int]bool, len(it.scopes.stack))
	for _, s := range it.scopes.stack {
		onStack[s.ID] = true
	}
	var ids []int
	for valueID, ownerScope := range it.graph.ownership {
		if onStack[ownerScope] {
			ids = append(ids, valueID)
		}
	}
	sort.Ints(ids)
	return ids
}

// exitCurrentScope runs the exit cascade (graph.exitScope) against the
// still-active top of stack, then pops it — matching spec.md §4.2's
// ordering where scope deactivation is the cascade's last step.
func (it *Interpreter) exitCurrentScope() error {
	top := it.scopes.current()
	if err := it.graph.exitScope(top); err != nil {
		return err
	}
	_, err := it.scopes.exit()
	return err
}

func suggestHint(name string, candidates map[string]int, kind string) string {
	if match := suggest(name, candidates); match != "" {
		return "did you mean \"" + match + "\"? (" + kind + ")"
	}
	return ""
}
