package typesystem

import (
	"fmt"
	"strings"
)

// Type is the interface for all types in our system.
type Type interface {
	String() string
	Apply(Subst) Type
	FreeTypeVariables() []TVar
}

// TVar represents a type variable (e.g. 'a', 'b', 't1').
type TVar struct {
	Name string
}

func (t TVar) String() string { return t.Name }

func (t TVar) Apply(s Subst) Type {
	if replacement, ok := s[t.Name]; ok {
		// Direct self-reference stays as-is
		if tv, ok := replacement.(TVar); ok && tv.Name == t.Name {
			return t
		}
		return replacement
	}
	return t
}

func (t TVar) FreeTypeVariables() []TVar {
	return []TVar{t}
}

// TCon represents a type constant/constructor (e.g. Int, Bool, List).
type TCon struct {
	Name string
}

func (t TCon) String() string { return t.Name }

func (t TCon) Apply(Subst) Type { return t }

func (t TCon) FreeTypeVariables() []TVar { return nil }

// TApp represents a type application (e.g. List Int).
type TApp struct {
	Constructor Type
	Args        []Type
}

func (t TApp) String() string {
	args := make([]string, 0, len(t.Args))
	for _, arg := range t.Args {
		args = append(args, arg.String())
	}
	if len(args) == 0 {
		return t.Constructor.String()
	}
	return fmt.Sprintf("(%s %s)", t.Constructor.String(), strings.Join(args, " "))
}

func (t TApp) Apply(s Subst) Type {
	newArgs := make([]Type, len(t.Args))
	for i, arg := range t.Args {
		newArgs[i] = arg.Apply(s)
	}
	newCtor := t.Constructor.Apply(s)

	// Flatten nested TApp: if the constructor resolved to an application,
	// merge the argument lists so (F<A>)<B> becomes F<A, B>.
	if ctorApp, ok := newCtor.(TApp); ok {
		merged := make([]Type, 0, len(ctorApp.Args)+len(newArgs))
		merged = append(merged, ctorApp.Args...)
		merged = append(merged, newArgs...)
		return TApp{Constructor: ctorApp.Constructor, Args: merged}
	}

	return TApp{Constructor: newCtor, Args: newArgs}
}

func (t TApp) FreeTypeVariables() []TVar {
	vars := t.Constructor.FreeTypeVariables()
	for _, arg := range t.Args {
		vars = append(vars, arg.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// TTuple represents a tuple type (e.g. (Int, Bool)).
type TTuple struct {
	Elements []Type
}

func (t TTuple) String() string {
	args := make([]string, 0, len(t.Elements))
	for _, el := range t.Elements {
		args = append(args, el.String())
	}
	return fmt.Sprintf("(%s)", strings.Join(args, ", "))
}

func (t TTuple) Apply(s Subst) Type {
	newElems := make([]Type, len(t.Elements))
	for i, e := range t.Elements {
		newElems[i] = e.Apply(s)
	}
	return TTuple{Elements: newElems}
}

func (t TTuple) FreeTypeVariables() []TVar {
	vars := []TVar{}
	for _, el := range t.Elements {
		vars = append(vars, el.FreeTypeVariables()...)
	}
	return uniqueTVars(vars)
}

// TFunc represents a function type (e.g. (Int, Int) -> Bool).
type TFunc struct {
	Params     []Type
	ReturnType Type
}

func (t TFunc) String() string {
	params := make([]string, 0, len(t.Params))
	for _, p := range t.Params {
		params = append(params, p.String())
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(params, ", "), t.ReturnType.String())
}

func (t TFunc) Apply(s Subst) Type {
	newParams := make([]Type, len(t.Params))
	for i, p := range t.Params {
		newParams[i] = p.Apply(s)
	}
	return TFunc{Params: newParams, ReturnType: t.ReturnType.Apply(s)}
}

func (t TFunc) FreeTypeVariables() []TVar {
	vars := []TVar{}
	for _, p := range t.Params {
		vars = append(vars, p.FreeTypeVariables()...)
	}
	vars = append(vars, t.ReturnType.FreeTypeVariables()...)
	return uniqueTVars(vars)
}

// Constraint represents a class obligation on instance type variables
// (e.g. a: Equal inside "instance Equal (List a)"), or a fully concrete
// (class, types) pair at a call site.
type Constraint struct {
	TypeVar string
	Class   string
	Args    []Type
}

func (c Constraint) String() string {
	if len(c.Args) == 0 {
		return fmt.Sprintf("%s: %s", c.TypeVar, c.Class)
	}
	args := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		args = append(args, a.String())
	}
	return fmt.Sprintf("%s: %s<%s>", c.TypeVar, c.Class, strings.Join(args, ", "))
}

// Subst is a mapping from type variables to types.
type Subst map[string]Type

// Compose combines two substitutions.
func (s1 Subst) Compose(s2 Subst) Subst {
	subst := Subst{}
	for k, v := range s2 {
		subst[k] = v
	}
	for k, v := range s1 {
		subst[k] = v.Apply(s2)
	}
	return subst
}

// RenameTypeVars returns a copy of t with every free variable suffixed,
// so instance heads never collide with query variables during unification.
func RenameTypeVars(t Type, suffix string) Type {
	vars := t.FreeTypeVariables()
	if len(vars) == 0 {
		return t
	}
	subst := make(Subst, len(vars))
	for _, v := range vars {
		subst[v.Name] = TVar{Name: v.Name + "_" + suffix}
	}
	return t.Apply(subst)
}

// IsGround reports whether t contains no type variables.
func IsGround(t Type) bool {
	return len(t.FreeTypeVariables()) == 0
}

func uniqueTVars(vars []TVar) []TVar {
	unique := []TVar{}
	seen := map[string]bool{}
	for _, v := range vars {
		if !seen[v.Name] {
			seen[v.Name] = true
			unique = append(unique, v)
		}
	}
	return unique
}
