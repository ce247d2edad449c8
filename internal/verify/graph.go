package verify

import "github.com/chiru-lang/chiru/internal/invariant"

// RegionKind, Origin, and CapabilityKind are closed tagged variants: every
// site that inspects them must dispatch exhaustively (spec.md §9).
type RegionKind int

const (
	RegionStack RegionKind = iota
	RegionHeap
	RegionExternal
	RegionStatic
)

func (k RegionKind) String() string {
	switch k {
	case RegionStack:
		return "stack"
	case RegionHeap:
		return "heap"
	case RegionExternal:
		return "external"
	case RegionStatic:
		return "static"
	default:
		return "unknown"
	}
}

type Origin int

const (
	OriginSafe Origin = iota
	OriginUnsafe
)

func (o Origin) String() string {
	if o == OriginUnsafe {
		return "unsafe"
	}
	return "safe"
}

type CapabilityKind int

const (
	CapOwn CapabilityKind = iota
	CapSharedRead
	CapUniqueMut
	CapThreadSend
	CapThreadShare
)

func (k CapabilityKind) String() string {
	switch k {
	case CapOwn:
		return "Own"
	case CapSharedRead:
		return "SharedRead"
	case CapUniqueMut:
		return "UniqueMut"
	case CapThreadSend:
		return "ThreadSend"
	case CapThreadShare:
		return "ThreadShare"
	default:
		return "unknown"
	}
}

// Region — {id, kind, scope}.
type Region struct {
	ID    int
	Kind  RegionKind
	Scope int
}

// Value — {id, region, alive, origin}.
type Value struct {
	ID     int
	Region int
	Alive  bool
	Origin Origin
}

// Lifetime — {id, scope, phase, active}.
type Lifetime struct {
	ID     int
	Scope  int
	Phase  int
	Active bool
}

// Capability — {id, kind, value, lifetime, scope, phase}.
type Capability struct {
	ID       int
	Kind     CapabilityKind
	Value    int
	Lifetime int
	Scope    int
	Phase    int
}

// UnsafeAssumption — {id, description, scope, phase, affected_values}.
type UnsafeAssumption struct {
	ID             int
	Description    string
	Scope          int
	Phase          int
	AffectedValues []int
}

// graph holds the five entity tables plus the ownership edge set. It is
// exclusively owned by the interpreter; the report generator is handed a
// read-only view and must never mutate it (spec.md §5).
//
// Arenas keyed by dense integer ids, no back-reference cycles: ownership
// edges form a forest (value -> owning scope), capabilities reference
// values/lifetimes but live only in their own table (spec.md §9).
type graph struct {
	nextRegionID     int
	nextValueID      int
	nextLifetimeID   int
	nextCapID        int
	nextAssumptionID int

	regions      map[int]*Region
	values       map[int]*Value
	lifetimes    map[int]*Lifetime
	capabilities map[int]*Capability
	assumptions  map[int]*UnsafeAssumption

	// ownership maps value id -> owning scope id. A value has an entry
	// here iff it is alive (I1).
	ownership map[int]int

	// capsByValue indexes capability ids by the value they reference, for
	// the conflict check and for I7 (no capabilities alive at drop time).
	capsByValue map[int][]int
}

func newGraph() *graph {
	return &graph{
		regions:      make(map[int]*Region),
		values:       make(map[int]*Value),
		lifetimes:    make(map[int]*Lifetime),
		capabilities: make(map[int]*Capability),
		assumptions:  make(map[int]*UnsafeAssumption),
		ownership:    make(map[int]int),
		capsByValue:  make(map[int][]int),
	}
}

func (g *graph) addRegion(kind RegionKind, scope int) *Region {
	g.nextRegionID++
	r := &Region{ID: g.nextRegionID, Kind: kind, Scope: scope}
	g.regions[r.ID] = r
	return r
}

// addValue allocates a value and establishes its ownership edge. owner is
// never an Unsafe scope (I2) — the caller must pass effectiveOwner(), not
// current().
func (g *graph) addValue(region *Region, origin Origin, owner *Scope) *Value {
	invariant.Invariant(owner.Kind != ScopeUnsafe, "value ownership must never attribute to an unsafe scope")
	g.nextValueID++
	v := &Value{ID: g.nextValueID, Region: region.ID, Alive: true, Origin: origin}
	g.values[v.ID] = v
	g.ownership[v.ID] = owner.ID
	return v
}

func (g *graph) addLifetime(scope *Scope, phase *Phase) *Lifetime {
	g.nextLifetimeID++
	lt := &Lifetime{ID: g.nextLifetimeID, Scope: scope.ID, Phase: phase.ID, Active: true}
	g.lifetimes[lt.ID] = lt
	return lt
}

// addCapability enforces I3 (UniqueMut exclusivity), I4 (value alive,
// lifetime active), and I5 (phase match) before admitting the capability.
func (g *graph) addCapability(kind CapabilityKind, value *Value, lt *Lifetime, scope *Scope, currentPhase *Phase) (*Capability, error) {
	if !value.Alive {
		return nil, semErr("lifecycle-destroyed-value",
			"allocate a new value, or create the capability before dropping this one",
			"cannot create capability on value %d: already destroyed", value.ID)
	}
	if !lt.Active {
		return nil, semErr("lifecycle-inactive-lifetime",
			"create the lifetime in an enclosing scope that is still open",
			"cannot create capability: lifetime %d is not active", lt.ID)
	}
	if lt.Phase != currentPhase.ID {
		return nil, semErr("phase-violation",
			"create the capability under the same phase the lifetime was bound to",
			"capability phase mismatch: lifetime %d was bound under a different phase", lt.ID)
	}

	for _, existingID := range g.capsByValue[value.ID] {
		existing := g.capabilities[existingID]
		if existing.Kind == CapUniqueMut || kind == CapUniqueMut {
			return nil, semErr("capability-conflict",
				"end the conflicting capability's lifetime, or switch to SharedRead",
				"UniqueMut on value %d is strictly exclusive with any other capability (existing: %s, requested: %s)",
				value.ID, existing.Kind, kind)
		}
	}

	g.nextCapID++
	c := &Capability{ID: g.nextCapID, Kind: kind, Value: value.ID, Lifetime: lt.ID, Scope: scope.ID, Phase: currentPhase.ID}
	g.capabilities[c.ID] = c
	g.capsByValue[value.ID] = append(g.capsByValue[value.ID], c.ID)
	return c, nil
}

func (g *graph) addAssumption(description string, scope *Scope, phase *Phase, affected []int) *UnsafeAssumption {
	g.nextAssumptionID++
	a := &UnsafeAssumption{
		ID:             g.nextAssumptionID,
		Description:    description,
		Scope:          scope.ID,
		Phase:          phase.ID,
		AffectedValues: affected,
	}
	g.assumptions[a.ID] = a
	return a
}

// capabilitiesOn returns the ids of capabilities currently referencing
// value.
func (g *graph) capabilitiesOn(valueID int) []int {
	return g.capsByValue[valueID]
}

// dropValue destroys value explicitly. Callers must already have checked
// ownership (drop is scope-local, spec.md §4.3); this enforces I7 (no live
// capabilities) and I6 (destroyed exactly once).
func (g *graph) dropValue(value *Value) error {
	if !value.Alive {
		return semErr("lifecycle-double-destruction",
			"",
			"value %d is already destroyed", value.ID)
	}
	if caps := g.capsByValue[value.ID]; len(caps) > 0 {
		return semErr("drop-with-live-capability",
			"end all capabilities on this value before dropping it",
			"cannot drop value %d: %d capability(ies) still reference it", value.ID, len(caps))
	}
	value.Alive = false
	delete(g.ownership, value.ID)
	return nil
}

// exitScope runs the five-step cascade from spec.md §4.2, in the exact
// order specified so intermediate invariants hold: capabilities are
// removed before values are destroyed (guaranteeing I7 at step 3), and
// lifetimes are deactivated before capabilities are removed (keeping
// post-mortem queries consistent).
func (g *graph) exitScope(s *Scope) error {
	// 1. Deactivate every lifetime whose scope is S.
	for _, lt := range g.lifetimes {
		if lt.Scope == s.ID {
			lt.Active = false
		}
	}

	// 2. Delete every capability whose scope is S.
	for id, c := range g.capabilities {
		if c.Scope == s.ID {
			delete(g.capabilities, id)
			g.capsByValue[c.Value] = removeInt(g.capsByValue[c.Value], id)
		}
	}

	// 3. Destroy every value currently owned by S.
	for valueID, ownerScope := range g.ownership {
		if ownerScope != s.ID {
			continue
		}
		v := g.values[valueID]
		invariant.NotNil(v, "value")
		if !v.Alive {
			return semErr("lifecycle-double-destruction",
				"",
				"value %d owned by exiting scope %d is already destroyed", v.ID, s.ID)
		}
		v.Alive = false
	}

	// 4. Remove every ownership edge whose owner is S.
	for valueID, ownerScope := range g.ownership {
		if ownerScope == s.ID {
			delete(g.ownership, valueID)
		}
	}

	// 5. Deactivate scope S (done by scopeTree.exit, which the caller runs
	// right after this returns).
	return nil
}

func removeInt(s []int, v int) []int {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
