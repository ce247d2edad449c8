package verify

import "github.com/lithammer/fuzzysearch/fuzzy"

// bindingFrame maps source identifiers to graph ids for the duration of
// interpretation. Three flat, program-global mappings: the source
// language's visibility rules permit forward use of any name declared
// before a use site regardless of block boundary, so graph lifetimes
// (bound to scopes) and textual names (bound to the whole program) are
// kept as separate concerns (spec.md §4.4). Later declarations shadow
// earlier ones by overwriting; no redeclaration check is enforced.
type bindingFrame struct {
	regions   map[string]int
	values    map[string]int
	lifetimes map[string]int
}

func newBindingFrame() *bindingFrame {
	return &bindingFrame{
		regions:   make(map[string]int),
		values:    make(map[string]int),
		lifetimes: make(map[string]int),
	}
}

func (f *bindingFrame) bindRegion(name string, id int)   { f.regions[name] = id }
func (f *bindingFrame) bindValue(name string, id int)    { f.values[name] = id }
func (f *bindingFrame) bindLifetime(name string, id int) { f.lifetimes[name] = id }

func (f *bindingFrame) resolveRegion(name string) (int, bool) {
	id, ok := f.regions[name]
	return id, ok
}

func (f *bindingFrame) resolveValue(name string) (int, bool) {
	id, ok := f.values[name]
	return id, ok
}

func (f *bindingFrame) resolveLifetime(name string) (int, bool) {
	id, ok := f.lifetimes[name]
	return id, ok
}

// suggest returns the closest known name of the given kind to use as a
// remediation hint on an "unknown name" error. Advisory only: it never
// changes acceptance/rejection, only the message on an already-rejected
// program. Grounded on runtime/planner.go's own use of
// github.com/lithammer/fuzzysearch/fuzzy for the same purpose.
func suggest(name string, candidates map[string]int) string {
	if len(candidates) == 0 {
		return ""
	}
	names := make([]string, 0, len(candidates))
	for n := range candidates {
		names = append(names, n)
	}
	matches := fuzzy.RankFindFold(name, names)
	if len(matches) == 0 {
		return ""
	}
	best := matches[0]
	for _, m := range matches[1:] {
		if m.Distance < best.Distance {
			best = m
		}
	}
	return best.Target
}
