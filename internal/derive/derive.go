// Package derive synthesizes Equal, Order, and Show implementations from the
// structural (sum-of-products) definition of a type. Field obligations are
// discharged through a Lookup, so synthesis recurses through the same
// resolution path as any other constraint.
package derive

import (
	"fmt"
	"strings"

	"github.com/funvibe/traitkit/internal/config"
	"github.com/funvibe/traitkit/internal/decl"
	"github.com/funvibe/traitkit/internal/diagnostics"
	"github.com/funvibe/traitkit/internal/log"
	"github.com/funvibe/traitkit/internal/typesystem"
	"github.com/funvibe/traitkit/internal/value"
)

// Lookup resolves a class constraint to a complete dictionary. The resolver
// implements it; tests may supply a fixed table.
type Lookup interface {
	Dict(className string, args []typesystem.Type) (*decl.Dictionary, error)
}

// Synthesize builds the core method implementations of a derivable class for
// one structurally defined type: eq for Equal, cmp for Order, show for Show.
// The remaining class methods are filled in from defaults by the caller.
// Every constructor field must itself support the class; a field that does
// not fails with MissingFieldInstance.
func Synthesize(class *decl.ClassDecl, data *decl.DataDecl, head typesystem.Type, lk Lookup) (map[string]decl.Impl, error) {
	subst, err := headSubst(data, head)
	if err != nil {
		return nil, err
	}
	dicts, err := fieldDicts(class.Name, data, head, subst, lk)
	if err != nil {
		return nil, err
	}

	key := typesystem.KeyFor([]typesystem.Type{head})
	log.Debug(log.CatDerive, "synthesizing %s for %s (%d constructors)", class.Name, head.String(), len(data.Constructors))

	switch class.Name {
	case config.EqualClassName:
		return map[string]decl.Impl{
			config.EqMethodName: {
				Method: config.EqMethodName,
				Source: decl.SourceSynthesized,
				Ref:    decl.MethodRef(class.Name, key, config.EqMethodName),
				Fn:     structuralEq(data, dicts),
			},
		}, nil
	case config.OrderClassName:
		return map[string]decl.Impl{
			config.CmpMethodName: {
				Method: config.CmpMethodName,
				Source: decl.SourceSynthesized,
				Ref:    decl.MethodRef(class.Name, key, config.CmpMethodName),
				Fn:     structuralCmp(data, dicts),
			},
		}, nil
	case config.ShowClassName:
		return map[string]decl.Impl{
			config.ShowMethodName: {
				Method: config.ShowMethodName,
				Source: decl.SourceSynthesized,
				Ref:    decl.MethodRef(class.Name, key, config.ShowMethodName),
				Fn:     structuralShow(data, dicts),
			},
		}, nil
	}
	return nil, diagnostics.New(diagnostics.UnknownClass,
		"class %s is not derivable (derivable: %s)", class.Name, strings.Join(config.DerivableClasses, ", "))
}

// headSubst maps the data declaration's parameters to the head's concrete
// arguments so field types can be instantiated.
func headSubst(data *decl.DataDecl, head typesystem.Type) (typesystem.Subst, error) {
	var args []typesystem.Type
	if app, ok := head.(typesystem.TApp); ok {
		args = app.Args
	}
	if len(args) != len(data.Params) {
		return nil, diagnostics.New(diagnostics.ArityMismatch,
			"type %s takes %d parameter(s), head %s supplies %d", data.Name, len(data.Params), head.String(), len(args))
	}
	subst := make(typesystem.Subst, len(args))
	for i, p := range data.Params {
		subst[p] = args[i]
	}
	return subst, nil
}

// fieldDicts resolves one dictionary of the owning class per constructor
// field, in declaration order.
func fieldDicts(className string, data *decl.DataDecl, head typesystem.Type, subst typesystem.Subst, lk Lookup) (map[string][]*decl.Dictionary, error) {
	dicts := make(map[string][]*decl.Dictionary, len(data.Constructors))
	for _, ctor := range data.Constructors {
		perField := make([]*decl.Dictionary, len(ctor.Fields))
		for i, fieldType := range ctor.Fields {
			concrete := fieldType.Apply(subst)
			d, err := lk.Dict(className, []typesystem.Type{concrete})
			if err != nil {
				diag := diagnostics.New(diagnostics.MissingFieldInstance,
					"cannot derive %s for %s: field %d of constructor %s has type %s without a %s instance",
					className, head.String(), i, ctor.Name, concrete.String(), className)
				diag.Class = className
				diag.Heads = []string{head.String()}
				return nil, fmt.Errorf("%w: %w", diag, err)
			}
			perField[i] = d
		}
		dicts[ctor.Name] = perField
	}
	return dicts, nil
}

func asCon(v value.Value) (value.Con, error) {
	c, ok := v.(value.Con)
	if !ok {
		return value.Con{}, fmt.Errorf("expected a constructor value, got %s", v.String())
	}
	return c, nil
}

// structuralEq compares constructor tags first, then fields pairwise through
// the field dictionaries.
func structuralEq(data *decl.DataDecl, dicts map[string][]*decl.Dictionary) value.Invocable {
	return func(args ...value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("eq expects 2 arguments, got %d", len(args))
		}
		left, err := asCon(args[0])
		if err != nil {
			return nil, err
		}
		right, err := asCon(args[1])
		if err != nil {
			return nil, err
		}
		if left.Ctor != right.Ctor {
			return value.Bool(false), nil
		}
		for i, d := range dicts[left.Ctor] {
			v, err := d.Invoke(config.EqMethodName, left.Fields[i], right.Fields[i])
			if err != nil {
				return nil, err
			}
			same, err := value.AsBool(v)
			if err != nil {
				return nil, err
			}
			if !same {
				return value.Bool(false), nil
			}
		}
		return value.Bool(true), nil
	}
}

// structuralCmp ranks values by constructor declaration index, then
// lexicographically over fields.
func structuralCmp(data *decl.DataDecl, dicts map[string][]*decl.Dictionary) value.Invocable {
	return func(args ...value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("cmp expects 2 arguments, got %d", len(args))
		}
		left, err := asCon(args[0])
		if err != nil {
			return nil, err
		}
		right, err := asCon(args[1])
		if err != nil {
			return nil, err
		}
		_, li, ok := data.Ctor(left.Ctor)
		if !ok {
			return nil, fmt.Errorf("unknown constructor %s of type %s", left.Ctor, data.Name)
		}
		_, ri, ok := data.Ctor(right.Ctor)
		if !ok {
			return nil, fmt.Errorf("unknown constructor %s of type %s", right.Ctor, data.Name)
		}
		if li != ri {
			if li < ri {
				return value.OrderingValue(value.Less), nil
			}
			return value.OrderingValue(value.Greater), nil
		}
		for i, d := range dicts[left.Ctor] {
			v, err := d.Invoke(config.CmpMethodName, left.Fields[i], right.Fields[i])
			if err != nil {
				return nil, err
			}
			ord, err := value.AsOrdering(v)
			if err != nil {
				return nil, err
			}
			if ord != value.Equal {
				return value.OrderingValue(ord), nil
			}
		}
		return value.OrderingValue(value.Equal), nil
	}
}

// structuralShow renders "Ctor f1 f2", parenthesizing any field that is
// itself a constructor application with fields.
func structuralShow(data *decl.DataDecl, dicts map[string][]*decl.Dictionary) value.Invocable {
	return func(args ...value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("show expects 1 argument, got %d", len(args))
		}
		con, err := asCon(args[0])
		if err != nil {
			return nil, err
		}
		var sb strings.Builder
		sb.WriteString(con.Ctor)
		for i, d := range dicts[con.Ctor] {
			v, err := d.Invoke(config.ShowMethodName, con.Fields[i])
			if err != nil {
				return nil, err
			}
			rendered, ok := v.(value.Str)
			if !ok {
				return nil, fmt.Errorf("show must return a string, got %s", v.String())
			}
			sb.WriteByte(' ')
			if nested, ok := con.Fields[i].(value.Con); ok && len(nested.Fields) > 0 {
				sb.WriteByte('(')
				sb.WriteString(string(rendered))
				sb.WriteByte(')')
			} else {
				sb.WriteString(string(rendered))
			}
		}
		return value.Str(sb.String()), nil
	}
}
