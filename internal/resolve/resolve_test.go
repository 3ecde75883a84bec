package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/funvibe/traitkit/internal/config"
	"github.com/funvibe/traitkit/internal/decl"
	"github.com/funvibe/traitkit/internal/derive"
	"github.com/funvibe/traitkit/internal/diagnostics"
	"github.com/funvibe/traitkit/internal/registry"
	"github.com/funvibe/traitkit/internal/typesystem"
	"github.com/funvibe/traitkit/internal/value"
)

func intT() typesystem.Type  { return typesystem.TCon{Name: config.IntTypeName} }
func boolT() typesystem.Type { return typesystem.TCon{Name: config.BoolTypeName} }

func listOf(elem typesystem.Type) typesystem.Type {
	return typesystem.TApp{Constructor: typesystem.TCon{Name: "List"}, Args: []typesystem.Type{elem}}
}

func preludeBuilder(t *testing.T) *registry.Builder {
	t.Helper()
	b := registry.NewBuilder()
	require.NoError(t, derive.Prelude(b))
	return b
}

func stubEq(args ...value.Value) (value.Value, error) {
	return value.Bool(args[0].String() == args[1].String()), nil
}

// listEqualInstance is Equal for List elem, requiring Equal on the element.
func listEqualInstance() *decl.InstanceDecl {
	heads := []typesystem.Type{listOf(typesystem.TVar{Name: "a"})}
	key := typesystem.KeyFor(heads)
	return &decl.InstanceDecl{
		Class:        config.EqualClassName,
		Heads:        heads,
		Requirements: []typesystem.Constraint{{TypeVar: "a", Class: config.EqualClassName}},
		Impls: map[string]decl.Impl{
			config.EqMethodName: {
				Method: config.EqMethodName,
				Source: decl.SourceExplicit,
				Ref:    decl.MethodRef(config.EqualClassName, key, config.EqMethodName),
				Fn:     stubEq,
			},
		},
	}
}

func TestResolveLeafInstance(t *testing.T) {
	r := New(preludeBuilder(t).Seal())

	dict, err := r.Resolve(config.EqualClassName, []typesystem.Type{intT()})
	require.NoError(t, err)
	assert.Equal(t, config.EqualClassName, dict.Class)

	v, err := dict.Invoke(config.EqMethodName, value.Int(3), value.Int(3))
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), v)

	// The default-derived method is present and total.
	v, err = dict.Invoke(config.NeqMethodName, value.Int(3), value.Int(4))
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), v)
}

func TestResolveUnknownClass(t *testing.T) {
	r := New(preludeBuilder(t).Seal())

	_, err := r.Resolve("Frobnicate", []typesystem.Type{intT()})
	require.Error(t, err)
	assert.True(t, diagnostics.HasCode(err, diagnostics.UnknownClass))
}

func TestResolveDischargesRequirement(t *testing.T) {
	b := preludeBuilder(t)
	require.NoError(t, b.RegisterInstance(listEqualInstance()))
	r := New(b.Seal())

	dict, err := r.Resolve(config.EqualClassName, []typesystem.Type{listOf(intT())})
	require.NoError(t, err)
	require.Len(t, dict.Requires, 1)
	assert.Equal(t, config.EqualClassName, dict.Requires[0].Class)
	assert.Equal(t, config.IntTypeName, dict.Requires[0].Heads[0].String())
}

func TestResolveNamesInnermostMissingType(t *testing.T) {
	b := preludeBuilder(t)
	require.NoError(t, b.RegisterInstance(listEqualInstance()))
	r := New(b.Seal())

	// List (List X): the outer two layers match, the innermost element fails.
	query := listOf(listOf(typesystem.TCon{Name: "X"}))
	_, err := r.Resolve(config.EqualClassName, []typesystem.Type{query})
	require.Error(t, err)
	assert.True(t, diagnostics.HasCode(err, diagnostics.NoInstance))
	assert.Contains(t, err.Error(), "no instance of Equal for X")
}

func TestResolveRejectsNonConcreteQuery(t *testing.T) {
	r := New(preludeBuilder(t).Seal())

	_, err := r.Resolve(config.EqualClassName, []typesystem.Type{typesystem.TVar{Name: "a"}})
	require.Error(t, err)
	assert.True(t, diagnostics.HasCode(err, diagnostics.NoInstance))
}

func TestResolveSynthesizesOnDemand(t *testing.T) {
	b := preludeBuilder(t)
	require.NoError(t, b.RegisterData(&decl.DataDecl{
		Name: "Shape",
		Constructors: []decl.CtorDecl{
			{Name: "P", Fields: []typesystem.Type{intT()}},
			{Name: "Q", Fields: []typesystem.Type{intT()}},
		},
	}))
	r := New(b.Seal())

	dict, err := r.Resolve(config.OrderClassName, []typesystem.Type{typesystem.TCon{Name: "Shape"}})
	require.NoError(t, err)

	p3 := value.Con{Ctor: "P", Fields: []value.Value{value.Int(3)}}
	q3 := value.Con{Ctor: "Q", Fields: []value.Value{value.Int(3)}}
	v, err := dict.Invoke(config.CmpMethodName, p3, q3)
	require.NoError(t, err)
	ord, err := value.AsOrdering(v)
	require.NoError(t, err)
	assert.Equal(t, value.Less, ord)
}

func TestResolveSynthesisRequiresFieldInstances(t *testing.T) {
	b := preludeBuilder(t)
	require.NoError(t, b.RegisterData(&decl.DataDecl{
		Name: "Holder",
		Constructors: []decl.CtorDecl{
			{Name: "Hold", Fields: []typesystem.Type{typesystem.TCon{Name: "Opaque"}}},
		},
	}))
	r := New(b.Seal())

	_, err := r.Resolve(config.EqualClassName, []typesystem.Type{typesystem.TCon{Name: "Holder"}})
	require.Error(t, err)
	assert.True(t, diagnostics.HasCode(err, diagnostics.MissingFieldInstance))
}

func TestResolveCachesDictionaries(t *testing.T) {
	r := New(preludeBuilder(t).Seal())

	first, err := r.Resolve(config.ShowClassName, []typesystem.Type{boolT()})
	require.NoError(t, err)
	second, err := r.Resolve(config.ShowClassName, []typesystem.Type{boolT()})
	require.NoError(t, err)
	assert.Same(t, first, second)
}

// Resolution is deterministic: independent resolvers over independently built
// registries agree on the evidence shape for any query, and repeated queries
// agree with themselves.
func TestResolveDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		leaves := []typesystem.Type{intT(), boolT(), typesystem.TCon{Name: config.StringTypeName}}
		elem := rapid.SampledFrom(leaves).Draw(t, "elem")
		depth := rapid.IntRange(0, 3).Draw(t, "depth")
		query := elem
		for i := 0; i < depth; i++ {
			query = listOf(query)
		}
		className := rapid.SampledFrom([]string{config.EqualClassName}).Draw(t, "class")

		mk := func() *Resolver {
			b := registry.NewBuilder()
			if err := derive.Prelude(b); err != nil {
				t.Fatalf("prelude: %v", err)
			}
			if err := b.RegisterInstance(listEqualInstance()); err != nil {
				t.Fatalf("list instance: %v", err)
			}
			return New(b.Seal())
		}

		d1, err1 := mk().Resolve(className, []typesystem.Type{query})
		d2, err2 := mk().Resolve(className, []typesystem.Type{query})
		if (err1 == nil) != (err2 == nil) {
			t.Fatalf("divergent outcomes: %v vs %v", err1, err2)
		}
		if err1 != nil {
			if err1.Error() != err2.Error() {
				t.Fatalf("divergent errors: %q vs %q", err1.Error(), err2.Error())
			}
			return
		}
		if len(d1.Requires) != len(d2.Requires) {
			t.Fatalf("divergent requirement counts: %d vs %d", len(d1.Requires), len(d2.Requires))
		}
		m1, m2 := d1.MethodNames(), d2.MethodNames()
		if len(m1) != len(m2) {
			t.Fatalf("divergent method sets: %v vs %v", m1, m2)
		}
		for i := range m1 {
			if m1[i] != m2[i] {
				t.Fatalf("divergent method order: %v vs %v", m1, m2)
			}
		}
	})
}
