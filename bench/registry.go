package bench

import (
	"fmt"
	"regexp"
)

// Registry is the table a harness reads to find benchmark units.
type Registry struct {
	units  []Unit
	byName map[string]Unit
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Unit)}
}

// Register validates u and adds it to the registry. A unit that fails
// validation is not registered, so the harness never schedules it.
func (r *Registry) Register(u Unit) error {
	if err := u.Validate(); err != nil {
		return err
	}

	if _, ok := r.byName[u.Name()]; ok {
		return &ConfigurationError{
			Unit:   u.Name(),
			Reason: "registered twice",
		}
	}

	r.units = append(r.units, u)
	r.byName[u.Name()] = u

	return nil
}

// Lookup returns the unit registered under name.
func (r *Registry) Lookup(name string) (Unit, error) {
	u, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUnit, name)
	}

	return u, nil
}

// Units returns the registered units in registration order.
func (r *Registry) Units() []Unit {
	return append([]Unit(nil), r.units...)
}

// Selection is a unit together with the operations chosen from it.
type Selection struct {
	Unit       Unit
	Operations []string
}

// Select returns every operation whose full name "unit.operation" matches
// at least one include pattern and no exclude pattern. No include patterns
// means everything is included.
func (r *Registry) Select(include, exclude []*regexp.Regexp) []Selection {
	var out []Selection

	for _, u := range r.units {
		var ops []string

		for _, op := range u.Operations() {
			full := u.Name() + "." + op
			if matchesAny(include, full, true) && !matchesAny(exclude, full, false) {
				ops = append(ops, op)
			}
		}

		if len(ops) > 0 {
			out = append(out, Selection{Unit: u, Operations: ops})
		}
	}

	return out
}

func matchesAny(patterns []*regexp.Regexp, s string, emptyResult bool) bool {
	if len(patterns) == 0 {
		return emptyResult
	}

	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}

	return false
}
