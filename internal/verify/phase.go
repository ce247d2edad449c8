package verify

// Phase is a module-level ordering label: {id, name, order}. Order equals
// declaration order (dense, zero-based).
type Phase struct {
	ID    int
	Name  string
	Order int
}

// phaseRegistry holds the ordered list of declared phases and tracks which
// one is current. v0 resolves the "which phase is current" open question
// (spec.md §9) as declaration-only: the first declared phase becomes
// current and stays current for the rest of the program; later
// declarations only extend the registry.
type phaseRegistry struct {
	nextID  int
	phases  []*Phase
	byName  map[string]*Phase
	current *Phase
}

func newPhaseRegistry() *phaseRegistry {
	return &phaseRegistry{byName: make(map[string]*Phase)}
}

func (r *phaseRegistry) declare(name string) (*Phase, error) {
	if _, exists := r.byName[name]; exists {
		return nil, semErr("duplicate-phase",
			"phases must be declared once each; drop the repeated declaration",
			"phase %q already declared", name)
	}
	r.nextID++
	p := &Phase{ID: r.nextID, Name: name, Order: len(r.phases)}
	r.phases = append(r.phases, p)
	r.byName[name] = p
	if r.current == nil {
		r.current = p
	}
	return p, nil
}

// hasCurrent reports whether any phase has been declared yet.
func (r *phaseRegistry) hasCurrent() bool {
	return r.current != nil
}
