// Package registry stores class, instance and data declarations and enforces
// global coherence: at most one instance per (class, matching key), ever.
//
// Declarations accumulate in a Builder; Seal produces an immutable Registry
// that concurrent resolution can read without locking.
package registry

import (
	"sort"

	"github.com/funvibe/traitkit/internal/decl"
	"github.com/funvibe/traitkit/internal/defaults"
	"github.com/funvibe/traitkit/internal/typesystem"
)

// Registry is the sealed, read-only declaration database.
type Registry struct {
	classes   map[string]*decl.ClassDecl
	graphs    map[string]defaults.Graph
	data      map[string]*decl.DataDecl
	instances map[string][]*decl.InstanceDecl // sorted by matching key
}

// LookupClass returns a class declaration by name.
func (r *Registry) LookupClass(name string) (*decl.ClassDecl, bool) {
	c, ok := r.classes[name]
	return c, ok
}

// DefaultGraph returns the class's default dependency graph, derived once at
// registration and shared by all instances.
func (r *Registry) DefaultGraph(name string) (defaults.Graph, bool) {
	g, ok := r.graphs[name]
	return g, ok
}

// LookupData returns a structural type definition by name.
func (r *Registry) LookupData(name string) (*decl.DataDecl, bool) {
	d, ok := r.data[name]
	return d, ok
}

// InstancesOf returns a snapshot of the accepted instances of a class, in
// matching-key order. The slice is a copy; the declarations are shared and
// immutable.
func (r *Registry) InstancesOf(className string) []*decl.InstanceDecl {
	return append([]*decl.InstanceDecl(nil), r.instances[className]...)
}

// AllClasses returns the registered class names, sorted.
func (r *Registry) AllClasses() []string {
	names := make([]string, 0, len(r.classes))
	for name := range r.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllData returns the registered structural type names, sorted.
func (r *Registry) AllData() []string {
	names := make([]string, 0, len(r.data))
	for name := range r.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindInstance searches for the instance applicable to concrete argument
// types: the matching key must fall under the instance's key, and the full
// heads must unify with the arguments. The returned substitution maps the
// instance's free variables to concrete types, ready for requirement
// discharge. Coherence guarantees at most one match; instances are scanned in
// sorted key order so the scan itself is deterministic regardless.
func (r *Registry) FindInstance(className string, args []typesystem.Type) (*decl.InstanceDecl, typesystem.Subst, bool) {
	concreteKey := typesystem.KeyFor(args)
	for _, inst := range r.instances[className] {
		if len(inst.Heads) != len(args) {
			continue
		}
		if !inst.Key().Matches(concreteKey) {
			continue
		}

		totalSubst := make(typesystem.Subst)
		match := true
		for i, head := range inst.Heads {
			// Instance heads are generic; rename their variables so they
			// cannot collide with anything in the arguments.
			renamed := typesystem.RenameTypeVars(head, "inst")
			subst, err := typesystem.Unify(renamed, args[i].Apply(totalSubst))
			if err != nil {
				match = false
				break
			}
			totalSubst = subst.Compose(totalSubst)
		}
		if !match {
			continue
		}

		// Strip the rename suffix back off so requirement type variables
		// (declared in terms of the original head) resolve.
		cleaned := make(typesystem.Subst, len(totalSubst))
		for name, t := range totalSubst {
			cleaned[trimInstSuffix(name)] = t
		}
		return inst, cleaned, true
	}
	return nil, nil, false
}

func trimInstSuffix(name string) string {
	const suffix = "_inst"
	if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
		return name[:len(name)-len(suffix)]
	}
	return name
}
