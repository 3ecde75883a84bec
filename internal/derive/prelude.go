package derive

import (
	"fmt"

	"github.com/funvibe/traitkit/internal/config"
	"github.com/funvibe/traitkit/internal/decl"
	"github.com/funvibe/traitkit/internal/registry"
	"github.com/funvibe/traitkit/internal/typesystem"
	"github.com/funvibe/traitkit/internal/value"
)

const preludeUnit = "prelude"

// Prelude registers the built-in derivable classes and their leaf instances
// for Int, Float, Bool, Char, and String. Every registry the engine builds
// starts from this baseline, so structural synthesis always bottoms out at a
// real implementation.
func Prelude(b *registry.Builder) error {
	for _, c := range preludeClasses() {
		if err := b.RegisterClass(c); err != nil {
			return err
		}
	}
	leafTypes := []string{
		config.IntTypeName, config.FloatTypeName, config.BoolTypeName,
		config.CharTypeName, config.StringTypeName,
	}
	for _, typeName := range leafTypes {
		head := typesystem.TCon{Name: typeName}
		for _, inst := range leafInstances(typeName, head) {
			if err := b.RegisterInstance(inst); err != nil {
				return err
			}
		}
	}
	return nil
}

func preludeClasses() []*decl.ClassDecl {
	a := typesystem.TVar{Name: "a"}
	boolT := typesystem.TCon{Name: config.BoolTypeName}
	stringT := typesystem.TCon{Name: config.StringTypeName}
	orderingT := typesystem.TCon{Name: "Ordering"}
	binBool := typesystem.TFunc{Params: []typesystem.Type{a, a}, ReturnType: boolT}
	binOrd := typesystem.TFunc{Params: []typesystem.Type{a, a}, ReturnType: orderingT}

	equal := &decl.ClassDecl{
		Name:   config.EqualClassName,
		Params: []string{"a"},
		Methods: []decl.MethodSig{
			{Name: config.EqMethodName, Type: binBool},
			{Name: config.NeqMethodName, Type: binBool},
		},
		Defaults: map[string]decl.DefaultBody{
			config.NeqMethodName: {
				Uses: []string{config.EqMethodName},
				Fn:   negationOf(config.EqMethodName),
			},
		},
		Unit: preludeUnit,
	}

	order := &decl.ClassDecl{
		Name:   config.OrderClassName,
		Params: []string{"a"},
		Methods: []decl.MethodSig{
			{Name: config.CmpMethodName, Type: binOrd},
			{Name: config.LtMethodName, Type: binBool},
			{Name: config.LeMethodName, Type: binBool},
			{Name: config.GtMethodName, Type: binBool},
			{Name: config.GeMethodName, Type: binBool},
		},
		Defaults: map[string]decl.DefaultBody{
			config.LtMethodName: {Uses: []string{config.CmpMethodName}, Fn: orderingTest(func(o value.Ordering) bool { return o == value.Less })},
			config.LeMethodName: {Uses: []string{config.CmpMethodName}, Fn: orderingTest(func(o value.Ordering) bool { return o != value.Greater })},
			config.GtMethodName: {Uses: []string{config.CmpMethodName}, Fn: orderingTest(func(o value.Ordering) bool { return o == value.Greater })},
			config.GeMethodName: {Uses: []string{config.CmpMethodName}, Fn: orderingTest(func(o value.Ordering) bool { return o != value.Less })},
		},
		Unit: preludeUnit,
	}

	show := &decl.ClassDecl{
		Name:   config.ShowClassName,
		Params: []string{"a"},
		Methods: []decl.MethodSig{
			{Name: config.ShowMethodName, Type: typesystem.TFunc{Params: []typesystem.Type{a}, ReturnType: stringT}},
		},
		Unit: preludeUnit,
	}

	return []*decl.ClassDecl{equal, order, show}
}

// negationOf builds a default body returning the boolean complement of a
// sibling method.
func negationOf(method string) func(*decl.Dictionary, ...value.Value) (value.Value, error) {
	return func(dict *decl.Dictionary, args ...value.Value) (value.Value, error) {
		v, err := dict.Invoke(method, args...)
		if err != nil {
			return nil, err
		}
		b, err := value.AsBool(v)
		if err != nil {
			return nil, err
		}
		return value.Bool(!b), nil
	}
}

// orderingTest builds a comparison default in terms of cmp.
func orderingTest(accept func(value.Ordering) bool) func(*decl.Dictionary, ...value.Value) (value.Value, error) {
	return func(dict *decl.Dictionary, args ...value.Value) (value.Value, error) {
		v, err := dict.Invoke(config.CmpMethodName, args...)
		if err != nil {
			return nil, err
		}
		ord, err := value.AsOrdering(v)
		if err != nil {
			return nil, err
		}
		return value.Bool(accept(ord)), nil
	}
}

func leafInstances(typeName string, head typesystem.TCon) []*decl.InstanceDecl {
	heads := []typesystem.Type{head}
	explicit := func(class, method string, fn value.Invocable) *decl.InstanceDecl {
		key := typesystem.KeyFor(heads)
		return &decl.InstanceDecl{
			Class: class,
			Heads: heads,
			Impls: map[string]decl.Impl{
				method: {Method: method, Source: decl.SourceExplicit, Ref: decl.MethodRef(class, key, method), Fn: fn},
			},
			Unit: preludeUnit,
		}
	}
	return []*decl.InstanceDecl{
		explicit(config.EqualClassName, config.EqMethodName, leafEq(typeName)),
		explicit(config.OrderClassName, config.CmpMethodName, leafCmp(typeName)),
		explicit(config.ShowClassName, config.ShowMethodName, leafShow()),
	}
}

func leafEq(typeName string) value.Invocable {
	return func(args ...value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("eq expects 2 arguments, got %d", len(args))
		}
		ord, err := compareLeaf(typeName, args[0], args[1])
		if err != nil {
			return nil, err
		}
		return value.Bool(ord == value.Equal), nil
	}
}

func leafCmp(typeName string) value.Invocable {
	return func(args ...value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("cmp expects 2 arguments, got %d", len(args))
		}
		ord, err := compareLeaf(typeName, args[0], args[1])
		if err != nil {
			return nil, err
		}
		return value.OrderingValue(ord), nil
	}
}

func leafShow() value.Invocable {
	return func(args ...value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("show expects 1 argument, got %d", len(args))
		}
		return value.Str(args[0].String()), nil
	}
}

// compareLeaf orders two values of one built-in type. Bool orders false
// before true.
func compareLeaf(typeName string, left, right value.Value) (value.Ordering, error) {
	switch typeName {
	case config.IntTypeName:
		l, lok := left.(value.Int)
		r, rok := right.(value.Int)
		if !lok || !rok {
			return 0, leafMismatch(typeName, left, right)
		}
		return rank(l < r, l == r), nil
	case config.FloatTypeName:
		l, lok := left.(value.Float)
		r, rok := right.(value.Float)
		if !lok || !rok {
			return 0, leafMismatch(typeName, left, right)
		}
		return rank(l < r, l == r), nil
	case config.BoolTypeName:
		l, lok := left.(value.Bool)
		r, rok := right.(value.Bool)
		if !lok || !rok {
			return 0, leafMismatch(typeName, left, right)
		}
		return rank(!bool(l) && bool(r), l == r), nil
	case config.CharTypeName:
		l, lok := left.(value.Char)
		r, rok := right.(value.Char)
		if !lok || !rok {
			return 0, leafMismatch(typeName, left, right)
		}
		return rank(l < r, l == r), nil
	case config.StringTypeName:
		l, lok := left.(value.Str)
		r, rok := right.(value.Str)
		if !lok || !rok {
			return 0, leafMismatch(typeName, left, right)
		}
		return rank(l < r, l == r), nil
	}
	return 0, fmt.Errorf("no built-in comparison for type %s", typeName)
}

func rank(less, equal bool) value.Ordering {
	switch {
	case less:
		return value.Less
	case equal:
		return value.Equal
	default:
		return value.Greater
	}
}

func leafMismatch(typeName string, left, right value.Value) error {
	return fmt.Errorf("type mismatch: %s comparison applied to %s and %s", typeName, left.String(), right.String())
}
