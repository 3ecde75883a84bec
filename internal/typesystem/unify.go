package typesystem

import (
	"fmt"
	"reflect"
)

// Unify attempts to find a substitution that makes t1 and t2 equal.
// It enforces strict equality (invariant).
func Unify(t1, t2 Type) (Subst, error) {
	// If types are strictly equal
	if reflect.DeepEqual(t1, t2) {
		return Subst{}, nil
	}

	switch t1 := t1.(type) {
	case TVar:
		return Bind(t1, t2)

	case TCon:
		switch t2 := t2.(type) {
		case TVar:
			return Bind(t2, t1)
		case TCon:
			if t1.Name == t2.Name {
				return Subst{}, nil
			}
			return nil, errUnify(t1, t2)
		default:
			return nil, errUnify(t1, t2)
		}

	case TApp:
		switch t2 := t2.(type) {
		case TVar:
			return Bind(t2, t1)
		case TApp:
			s1, err := Unify(t1.Constructor, t2.Constructor)
			if err != nil {
				return nil, err
			}
			if len(t1.Args) != len(t2.Args) {
				return nil, errMismatch(fmt.Sprintf("type arguments length mismatch: %d vs %d", len(t1.Args), len(t2.Args)))
			}
			for i := 0; i < len(t1.Args); i++ {
				arg1 := t1.Args[i].Apply(s1)
				arg2 := t2.Args[i].Apply(s1)
				s2, err := Unify(arg1, arg2)
				if err != nil {
					return nil, err
				}
				s1 = s1.Compose(s2)
			}
			return s1, nil
		default:
			return nil, errUnify(t1, t2)
		}

	case TTuple:
		switch t2 := t2.(type) {
		case TVar:
			return Bind(t2, t1)
		case TTuple:
			if len(t1.Elements) != len(t2.Elements) {
				return nil, errMismatch(fmt.Sprintf("tuple length mismatch: %d vs %d", len(t1.Elements), len(t2.Elements)))
			}
			subst := Subst{}
			for i := range t1.Elements {
				e1 := t1.Elements[i].Apply(subst)
				e2 := t2.Elements[i].Apply(subst)
				s, err := Unify(e1, e2)
				if err != nil {
					return nil, err
				}
				subst = subst.Compose(s)
			}
			return subst, nil
		default:
			return nil, errUnify(t1, t2)
		}

	case TFunc:
		switch t2 := t2.(type) {
		case TVar:
			return Bind(t2, t1)
		case TFunc:
			if len(t1.Params) != len(t2.Params) {
				return nil, errMismatch(fmt.Sprintf("parameter count mismatch: %d vs %d", len(t1.Params), len(t2.Params)))
			}
			subst := Subst{}
			for i := range t1.Params {
				p1 := t1.Params[i].Apply(subst)
				p2 := t2.Params[i].Apply(subst)
				s, err := Unify(p1, p2)
				if err != nil {
					return nil, err
				}
				subst = subst.Compose(s)
			}
			s, err := Unify(t1.ReturnType.Apply(subst), t2.ReturnType.Apply(subst))
			if err != nil {
				return nil, err
			}
			return subst.Compose(s), nil
		default:
			return nil, errUnify(t1, t2)
		}
	}

	return nil, errUnify(t1, t2)
}

// Bind binds a type variable to a type, with an occurs check.
func Bind(tv TVar, t Type) (Subst, error) {
	// If t is the same variable, return empty substitution
	if tVal, ok := t.(TVar); ok && tVal.Name == tv.Name {
		return Subst{}, nil
	}

	// Occurs check: ensure tv does not appear in t (to avoid infinite types like a = List a)
	if OccursCheck(tv, t) {
		return nil, errMismatch(fmt.Sprintf("infinite type detected: %s in %s", tv, t))
	}

	return Subst{tv.Name: t}, nil
}

// OccursCheck reports whether tv occurs free in t.
func OccursCheck(tv TVar, t Type) bool {
	for _, v := range t.FreeTypeVariables() {
		if v.Name == tv.Name {
			return true
		}
	}
	return false
}

func errUnify(t1, t2 Type) error {
	return fmt.Errorf("cannot unify %s with %s", t1, t2)
}

func errMismatch(msg string) error {
	return fmt.Errorf("type mismatch: %s", msg)
}
