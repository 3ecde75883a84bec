// Package resolve turns class constraints over concrete types into complete
// dictionaries: it locates the matching instance, discharges its requirements
// recursively, completes defaults, and falls back to structural synthesis for
// derivable classes.
package resolve

import (
	"strings"

	gocache "github.com/patrickmn/go-cache"

	"github.com/funvibe/traitkit/internal/config"
	"github.com/funvibe/traitkit/internal/decl"
	"github.com/funvibe/traitkit/internal/defaults"
	"github.com/funvibe/traitkit/internal/derive"
	"github.com/funvibe/traitkit/internal/diagnostics"
	"github.com/funvibe/traitkit/internal/log"
	"github.com/funvibe/traitkit/internal/registry"
	"github.com/funvibe/traitkit/internal/typesystem"
)

// Resolver answers constraint queries against one sealed registry. Resolved
// dictionaries are cached for the resolver's lifetime; since the registry is
// immutable the cache never goes stale. Safe for concurrent use.
type Resolver struct {
	reg   *registry.Registry
	cache *gocache.Cache
}

func New(reg *registry.Registry) *Resolver {
	return &Resolver{
		reg:   reg,
		cache: gocache.New(gocache.NoExpiration, 0),
	}
}

// Resolve produces the dictionary for a class constraint over concrete types.
// Failure modes: UnknownClass, ArityMismatch, NoInstance (naming the exact
// type that lacks an instance, however deep in the requirement chain).
func (r *Resolver) Resolve(className string, args []typesystem.Type) (*decl.Dictionary, error) {
	return r.resolve(className, args, map[string]bool{})
}

// Dict lets the synthesis engine discharge field obligations through the
// resolver.
func (r *Resolver) Dict(className string, args []typesystem.Type) (*decl.Dictionary, error) {
	return r.Resolve(className, args)
}

func (r *Resolver) resolve(className string, args []typesystem.Type, visiting map[string]bool) (*decl.Dictionary, error) {
	c, ok := r.reg.LookupClass(className)
	if !ok {
		return nil, diagnostics.New(diagnostics.UnknownClass, "unknown class %s", className)
	}
	if len(args) != c.Arity() {
		return nil, diagnostics.New(diagnostics.ArityMismatch,
			"class %s expects %d type argument(s), got %d", className, c.Arity(), len(args))
	}
	for _, a := range args {
		if !typesystem.IsGround(a) {
			return nil, diagnostics.New(diagnostics.NoInstance,
				"cannot resolve %s for non-concrete type %s", className, a.String())
		}
	}

	key := cacheKey(className, args)
	if cached, ok := r.cache.Get(key); ok {
		return cached.(*decl.Dictionary), nil
	}
	if visiting[key] {
		return nil, diagnostics.New(diagnostics.NoInstance,
			"constraint cycle while resolving %s for %s", className, typeList(args))
	}
	visiting[key] = true
	defer delete(visiting, key)

	dict, err := r.build(c, args, visiting)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, dict, gocache.NoExpiration)
	log.Debug(log.CatResolve, "resolved %s for %s", className, typeList(args))
	return dict, nil
}

func (r *Resolver) build(c *decl.ClassDecl, args []typesystem.Type, visiting map[string]bool) (*decl.Dictionary, error) {
	inst, subst, found := r.reg.FindInstance(c.Name, args)
	if !found {
		return r.synthesizeFallback(c, args, visiting)
	}

	// Discharge the instance's requirements first; a failure anywhere in the
	// chain reports the innermost missing type.
	requires := make([]*decl.Dictionary, 0, len(inst.Requirements))
	for _, req := range inst.Requirements {
		reqArgs, err := requirementArgs(req, subst)
		if err != nil {
			return nil, err
		}
		sub, err := r.resolve(req.Class, reqArgs, visiting)
		if err != nil {
			return nil, err
		}
		requires = append(requires, sub)
	}

	var dict *decl.Dictionary
	var err error
	if inst.Synthesized {
		dict, err = r.synthesize(c, args[0], visiting)
	} else {
		g, _ := r.reg.DefaultGraph(c.Name)
		dict, err = defaults.Complete(c, g, inst)
	}
	if err != nil {
		return nil, err
	}
	dict.Requires = requires
	return dict, nil
}

// synthesizeFallback covers derivable classes queried for a structurally
// defined type with no registered instance. The result is cached like any
// other dictionary but never enters the registry.
func (r *Resolver) synthesizeFallback(c *decl.ClassDecl, args []typesystem.Type, visiting map[string]bool) (*decl.Dictionary, error) {
	if config.IsDerivable(c.Name) && len(args) == 1 {
		if _, ok := r.reg.LookupData(typesystem.HeadKey(args[0])); ok {
			return r.synthesize(c, args[0], visiting)
		}
	}
	return nil, diagnostics.New(diagnostics.NoInstance,
		"no instance of %s for %s", c.Name, typeList(args))
}

func (r *Resolver) synthesize(c *decl.ClassDecl, head typesystem.Type, visiting map[string]bool) (*decl.Dictionary, error) {
	data, ok := r.reg.LookupData(typesystem.HeadKey(head))
	if !ok {
		return nil, diagnostics.New(diagnostics.NoInstance,
			"no instance of %s for %s", c.Name, head.String())
	}
	impls, err := derive.Synthesize(c, data, head, lookupFunc(func(className string, args []typesystem.Type) (*decl.Dictionary, error) {
		return r.resolve(className, args, visiting)
	}))
	if err != nil {
		return nil, err
	}
	inst := &decl.InstanceDecl{
		Class:       c.Name,
		Heads:       []typesystem.Type{head},
		Impls:       impls,
		Synthesized: true,
	}
	g, _ := r.reg.DefaultGraph(c.Name)
	return defaults.Complete(c, g, inst)
}

// requirementArgs instantiates one requirement's target types under the match
// substitution.
func requirementArgs(req typesystem.Constraint, subst typesystem.Subst) ([]typesystem.Type, error) {
	target, ok := subst[req.TypeVar]
	if !ok {
		return nil, diagnostics.New(diagnostics.NoInstance,
			"requirement %s references unbound type variable %s", req.Class, req.TypeVar)
	}
	args := []typesystem.Type{target}
	for _, extra := range req.Args {
		args = append(args, extra.Apply(subst))
	}
	return args, nil
}

type lookupFunc func(className string, args []typesystem.Type) (*decl.Dictionary, error)

func (f lookupFunc) Dict(className string, args []typesystem.Type) (*decl.Dictionary, error) {
	return f(className, args)
}

func cacheKey(className string, args []typesystem.Type) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, className)
	for _, a := range args {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, "|")
}

func typeList(args []typesystem.Type) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, a.String())
	}
	return strings.Join(parts, ", ")
}
