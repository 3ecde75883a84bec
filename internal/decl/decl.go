// Package decl defines the declaration records the engine consumes and the
// dictionary artifacts it produces. Declarations are created once at
// registration and are immutable afterwards.
package decl

import (
	"fmt"
	"strings"

	"github.com/funvibe/traitkit/internal/typesystem"
	"github.com/funvibe/traitkit/internal/value"
)

// MethodSig is one method signature declared by a class. The signature type
// references the class type parameters as typesystem.TVar.
type MethodSig struct {
	Name string
	Type typesystem.Type
}

// DefaultBody is a class-supplied fallback implementation for one method.
// Uses lists the sibling methods the body calls; these are the edges of the
// default dependency graph. Fn receives the owning dictionary so the body can
// delegate to whatever implementation the instance ended up with.
type DefaultBody struct {
	Uses []string
	Fn   func(dict *Dictionary, args ...value.Value) (value.Value, error)
}

// ClassDecl declares a type class: a name, ordered type parameters (arity at
// least 1), method signatures, and optional default bodies.
type ClassDecl struct {
	Name     string
	Params   []string
	Methods  []MethodSig
	Defaults map[string]DefaultBody
	Unit     string
}

// Arity returns the number of type parameters.
func (c *ClassDecl) Arity() int { return len(c.Params) }

// HasMethod reports whether name is declared by the class.
func (c *ClassDecl) HasMethod(name string) bool {
	for _, m := range c.Methods {
		if m.Name == name {
			return true
		}
	}
	return false
}

// MethodNames returns method names in declaration order.
func (c *ClassDecl) MethodNames() []string {
	names := make([]string, 0, len(c.Methods))
	for _, m := range c.Methods {
		names = append(names, m.Name)
	}
	return names
}

// HasDefault reports whether the class supplies a default body for name.
func (c *ClassDecl) HasDefault(name string) bool {
	_, ok := c.Defaults[name]
	return ok
}

// ImplSource records how a dictionary entry was produced.
type ImplSource string

const (
	SourceExplicit    ImplSource = "explicit"
	SourceDefault     ImplSource = "default"
	SourceSynthesized ImplSource = "synthesized"
)

// Impl is one concrete method implementation. Ref is a stable symbolic
// reference for the code generator; Fn, when present, is directly invocable.
// External implementations (bodies living in the host compiler) carry a Ref
// and a nil Fn.
type Impl struct {
	Method string
	Source ImplSource
	Ref    string
	Fn     value.Invocable
}

// InstanceDecl declares an implementation of a class for one head tuple.
// Heads carry one type per class parameter; the outermost constructor of each
// is concrete (or a free variable, treated as a wildcard by coherence).
// Requirements are obligations on the head's free variables, discharged
// recursively at resolution time.
type InstanceDecl struct {
	Class        string
	Heads        []typesystem.Type
	Requirements []typesystem.Constraint
	Impls        map[string]Impl
	Synthesized  bool // registered through explicit structural derivation
	Unit         string
}

// Key computes the instance's matching key.
func (i *InstanceDecl) Key() typesystem.MatchKey {
	return typesystem.KeyFor(i.Heads)
}

// HeadStrings renders the head types for diagnostics.
func (i *InstanceDecl) HeadStrings() []string {
	out := make([]string, 0, len(i.Heads))
	for _, h := range i.Heads {
		out = append(out, h.String())
	}
	return out
}

// CtorDecl is one constructor of a structural type: a name and ordered field
// types. Declaration order is semantic for synthesized ordering.
type CtorDecl struct {
	Name   string
	Fields []typesystem.Type
}

// DataDecl is the structural (sum-of-products) definition of a type, the
// input to structural synthesis.
type DataDecl struct {
	Name         string
	Params       []string
	Constructors []CtorDecl
	// Deriving lists classes whose instances are synthesized for this type.
	Deriving []string
	Unit     string
}

// Ctor returns the constructor with the given name and its declaration index.
func (d *DataDecl) Ctor(name string) (CtorDecl, int, bool) {
	for i, c := range d.Constructors {
		if c.Name == name {
			return c, i, true
		}
	}
	return CtorDecl{}, -1, false
}

// Dictionary is the resolved artifact for one (class, head tuple): a complete
// mapping from every method the class declares to a concrete implementation.
// Totality is an invariant; a dictionary with a missing method is never built.
type Dictionary struct {
	Class   string
	Heads   []typesystem.Type
	Methods map[string]Impl
	// Requires holds the dictionaries discharged for the source instance's
	// requirements, in declaration order.
	Requires []*Dictionary
	order    []string
}

// NewDictionary creates an empty dictionary shell with the class's method
// order fixed for deterministic iteration.
func NewDictionary(class string, heads []typesystem.Type, order []string) *Dictionary {
	return &Dictionary{
		Class:   class,
		Heads:   heads,
		Methods: make(map[string]Impl, len(order)),
		order:   append([]string(nil), order...),
	}
}

// MethodNames returns method names in class declaration order.
func (d *Dictionary) MethodNames() []string {
	return append([]string(nil), d.order...)
}

// Set installs one entry.
func (d *Dictionary) Set(impl Impl) {
	d.Methods[impl.Method] = impl
}

// Lookup returns the entry for a method.
func (d *Dictionary) Lookup(method string) (Impl, bool) {
	impl, ok := d.Methods[method]
	return impl, ok
}

// Invoke calls a method implementation by name.
func (d *Dictionary) Invoke(method string, args ...value.Value) (value.Value, error) {
	impl, ok := d.Methods[method]
	if !ok {
		return nil, fmt.Errorf("dictionary %s[%s] has no method %s", d.Class, d.headLabel(), method)
	}
	if impl.Fn == nil {
		return nil, fmt.Errorf("method %s of %s[%s] is external (ref %s)", method, d.Class, d.headLabel(), impl.Ref)
	}
	return impl.Fn(args...)
}

func (d *Dictionary) headLabel() string {
	parts := make([]string, 0, len(d.Heads))
	for _, h := range d.Heads {
		parts = append(parts, h.String())
	}
	return strings.Join(parts, ", ")
}

// EvidenceName builds the stable symbolic name for an instance's dictionary,
// e.g. $impl_Equal_List.
func EvidenceName(class string, key typesystem.MatchKey) string {
	return "$impl_" + class + "_" + strings.Join([]string(key), "_")
}

// MethodRef builds the stable symbolic name for one dictionary entry,
// e.g. $impl_Equal_List_eq.
func MethodRef(class string, key typesystem.MatchKey, method string) string {
	return EvidenceName(class, key) + "_" + method
}
